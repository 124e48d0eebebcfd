// Package config loads the engine's two configuration layers: the JSON
// document (servers, name/version, logger, telemetry) and a small
// ambient env-tag overlay for concerns the JSON document never names
// (auth, bind address, log level/format overrides) — a split between
// file-free env config and env-only ambient fields.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/codemoderun/codemode/internal/infrastructure/mcpclient"
)

// AuthSpec is either {type:"bearer", token} or {type:"headers", headers}.
type AuthSpec struct {
	Type    string            `json:"type"`
	Token   string            `json:"token,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ServerSpec is the JSON union HttpServer | StdioServer. Exactly one
// of Command or Url is set.
type ServerSpec struct {
	Name    string   `json:"name"`
	Url     string   `json:"url,omitempty"`
	Auth    *AuthSpec `json:"auth,omitempty"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Env     []string `json:"env,omitempty"`
}

// LoggerSpec configures the zerolog output.
type LoggerSpec struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Level   string `json:"level,omitempty"`
	Format  string `json:"format,omitempty"`
	Colors  *bool  `json:"colors,omitempty"`
	File    string `json:"file,omitempty"`
}

// TelemetrySpec is accepted and carried verbatim; no exporter is wired
// in this release (no tracing/metrics SDK appeared anywhere in the
// example pack for a codemode-shaped service, so wiring one would be
// fabricating a dependency).
type TelemetrySpec struct {
	Traces  json.RawMessage `json:"traces,omitempty"`
	Metrics json.RawMessage `json:"metrics,omitempty"`
}

// FileConfig is the JSON document consumed verbatim by the core.
type FileConfig struct {
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	Servers   []ServerSpec   `json:"servers"`
	Logger    *LoggerSpec    `json:"logger,omitempty"`
	Telemetry *TelemetrySpec `json:"telemetry,omitempty"`
}

// Ambient holds the env-tag-driven fields that sit outside the JSON
// document: bind address defaults and optional auth.
type Ambient struct {
	Host      string `env:"CODEMODE_HOST" envDefault:"0.0.0.0"`
	Port      string `env:"CODEMODE_PORT" envDefault:"8080"`
	LogLevel  string `env:"CODEMODE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CODEMODE_LOG_FORMAT" envDefault:"json"`

	AuthEnabled bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer  string `env:"AUTH_ISSUER"`
	AuthJWKSURL string `env:"AUTH_JWKS_URL"`
}

// Config is the fully merged configuration handed to cmd/codemode-server.
type Config struct {
	File    FileConfig
	Ambient Ambient
}

// Load reads the JSON config at path and overlays the ambient env
// fields, applying the conditional-required-field pattern for auth.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var file FileConfig
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if strings.TrimSpace(file.Name) == "" {
		return nil, fmt.Errorf("config: \"name\" is required")
	}
	for i, s := range file.Servers {
		if s.Name == "" {
			return nil, fmt.Errorf("config: servers[%d] is missing \"name\"", i)
		}
		if (s.Url == "") == (s.Command == "") {
			return nil, fmt.Errorf("config: servers[%d] (%s) must set exactly one of \"url\" or \"command\"", i, s.Name)
		}
	}

	ambient := Ambient{}
	if err := env.Parse(&ambient); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if ambient.AuthEnabled {
		if strings.TrimSpace(ambient.AuthIssuer) == "" {
			return nil, fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(ambient.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	return &Config{File: file, Ambient: ambient}, nil
}

// MCPServerSpecs converts the configured servers into mcpclient specs,
// applying Auth as either a bearer header or raw header map.
func (c *Config) MCPServerSpecs() []mcpclient.ServerSpec {
	specs := make([]mcpclient.ServerSpec, 0, len(c.File.Servers))
	for _, s := range c.File.Servers {
		spec := mcpclient.ServerSpec{Name: s.Name}
		if s.Command != "" {
			spec.Stdio = &mcpclient.StdioTransportSpec{Command: s.Command, Args: s.Args, Env: s.Env}
		} else {
			headers := map[string]string{}
			if s.Auth != nil {
				switch s.Auth.Type {
				case "bearer":
					headers["Authorization"] = "Bearer " + s.Auth.Token
				case "headers":
					for k, v := range s.Auth.Headers {
						headers[k] = v
					}
				}
			}
			spec.Http = &mcpclient.HttpTransportSpec{URL: s.Url, Headers: headers}
		}
		specs = append(specs, spec)
	}
	return specs
}
