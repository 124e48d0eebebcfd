// Command codemode-server runs the Code-Mode session server.
// Flag parsing is intentionally minimal: stdlib flag locates
// --config/--stdio/--host/--port/--session-dir, then every business
// decision is deferred to config.Load and application setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codemoderun/codemode/internal/interfaces/stdio"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		host       string
		port       string
		stdioMode  bool
		sessionDir string
		configPath string
	)
	flag.StringVar(&host, "host", "", "bind host, overrides CODEMODE_HOST")
	flag.StringVar(&port, "port", "", "bind port, overrides CODEMODE_PORT")
	flag.BoolVar(&stdioMode, "stdio", false, "serve the MCP surface over stdin/stdout instead of HTTP")
	flag.StringVar(&sessionDir, "session-dir", "", "directory reserved for future session persistence")
	flag.StringVar(&configPath, "config", "config.json", "path to the JSON configuration document")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if sessionDir != "" {
		if err := os.MkdirAll(sessionDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "codemode-server: create session dir: %v\n", err)
			return 2
		}
	}

	app, err := newApplication(ctx, configPath, stdioMode)
	if err != nil {
		if stdioMode {
			_ = stdio.EmitConfigError(os.Stdout, err)
		} else {
			fmt.Fprintf(os.Stderr, "codemode-server: %v\n", err)
		}
		return 2
	}

	if host != "" {
		app.cfg.Ambient.Host = host
	}
	if port != "" {
		app.cfg.Ambient.Port = port
	}

	if stdioMode {
		if err := app.runStdio(ctx); err != nil {
			app.log.Error().Err(err).Msg("stdio server exited with error")
			return 1
		}
		return 0
	}

	if err := app.runHTTP(ctx); err != nil {
		app.log.Error().Err(err).Msg("http server exited with error")
		return 1
	}
	return 0
}
