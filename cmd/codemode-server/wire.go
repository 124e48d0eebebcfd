//go:build wireinject

// This file documents the dependency graph for google/wire; it is
// excluded from normal builds by the wireinject tag. main.go wires
// the application by hand, so this stays the authoritative wiring
// reference rather than a generated wire_gen.go.
package main

import (
	"github.com/google/wire"

	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/infrastructure/auth"
	"github.com/codemoderun/codemode/internal/infrastructure/config"
	"github.com/codemoderun/codemode/internal/interfaces/httpserver"
)

func buildApplication(cfgPath string) (*application, error) {
	wire.Build(
		config.Load,
		registry.New,
		auth.NewValidator,
		httpserver.New,
		wire.Struct(new(application), "*"),
	)
	return nil, nil
}
