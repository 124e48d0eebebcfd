// Package logger builds the process-wide zerolog logger, adding an
// io.Writer override the stdio transport needs: stdout is reserved
// for the JSON-RPC wire protocol, so every log line must go to
// stderr in that mode.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures Init. Format is "json" or "console"; Output
// defaults to os.Stderr when nil.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init builds and returns the process logger. It does not install
// itself as the zerolog/log global — callers thread the returned
// Logger explicitly.
func Init(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if strings.EqualFold(opts.Format, "console") {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(writer).
		With().
		Timestamp().
		Str("service", "codemode-server").
		Logger().
		Level(parseLevel(opts.Level))
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
