package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/infrastructure/auth"
	"github.com/codemoderun/codemode/internal/infrastructure/config"
	"github.com/codemoderun/codemode/internal/infrastructure/logger"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver/routes/codemode"
	"github.com/codemoderun/codemode/internal/interfaces/stdio"
)

// application is the fully wired process: a facade with its servers
// already brought up, plus whichever surface (http or stdio) main
// decides to run.
type application struct {
	cfg    *config.Config
	log    zerolog.Logger
	facade *registry.Facade
}

// newApplication loads configuration, brings up every configured MCP
// server, and returns a ready-to-run application. Logging goes to
// stderr in every mode, so stdout stays free for the --stdio
// transport; stdoutReserved does not change that.
func newApplication(ctx context.Context, cfgPath string, stdoutReserved bool) (*application, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logOutput := os.Stderr
	level := cfg.Ambient.LogLevel
	format := cfg.Ambient.LogFormat
	if cfg.File.Logger != nil {
		if cfg.File.Logger.Level != "" {
			level = cfg.File.Logger.Level
		}
		if cfg.File.Logger.Format != "" {
			format = cfg.File.Logger.Format
		}
	}
	log := logger.Init(logger.Options{Level: level, Format: format, Output: logOutput})

	facade := registry.New()
	specs := cfg.MCPServerSpecs()
	if len(specs) > 0 {
		if err := facade.AddServers(ctx, specs); err != nil {
			log.Warn().Err(err).Msg("one or more MCP servers failed to register tools")
		}
	}

	return &application{cfg: cfg, log: log, facade: facade}, nil
}

// runHTTP serves both Code-Mode surfaces over the configured bind
// address until Run returns. There is no graceful shutdown beyond
// gin's default: Run blocks forever on the listener.
func (a *application) runHTTP(ctx context.Context) error {
	validator, err := auth.NewValidator(ctx, a.cfg.Ambient, a.log)
	if err != nil {
		return fmt.Errorf("init auth validator: %w", err)
	}

	srv := httpserver.New(a.cfg.Ambient.Host, a.cfg.Ambient.Port, a.facade, a.cfg.File.Name, a.cfg.File.Version, validator, a.log)
	a.log.Info().Str("host", a.cfg.Ambient.Host).Str("port", a.cfg.Ambient.Port).Msg("codemode-server listening")
	return srv.Run()
}

// runStdio serves the MCP surface over stdin/stdout.
func (a *application) runStdio(ctx context.Context) error {
	route := codemode.NewRoute(a.facade, a.cfg.File.Name, a.cfg.File.Version)
	return stdio.Run(ctx, route.Server())
}
