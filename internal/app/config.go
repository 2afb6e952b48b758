package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string   // .hcl file or directory
	VarFiles   []string // YAML variable files, applied in order
	Vars       []string // name=value literals, win over var files

	LogFormat string // "text" or "json"
	LogLevel  string // "debug", "info", "warn" or "error"
	Workers   int    // resolver pool size, 0 means one per CPU
	ServePort int    // watch-mode HTTP port for /health and /metrics, 0 disabled
	JSON      bool   // render the result as a single JSON document
}

// NewConfig validates a Config and fills nothing in: defaults live with
// the components that consume the fields.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q: options are 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("unknown log level %q: options are 'debug', 'info', 'warn' or 'error'", cfg.LogLevel)
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers cannot be negative")
	}
	if cfg.ServePort < 0 || cfg.ServePort > 65535 {
		return nil, fmt.Errorf("ServePort %d is outside the valid port range", cfg.ServePort)
	}
	return &cfg, nil
}
