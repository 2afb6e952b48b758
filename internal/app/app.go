package app

import (
	"io"
	"log/slog"

	"github.com/specialistvlad/terrane/internal/hcl"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Results go to outW, logs to logW; an App carries its own
// isolated logger so instances never interfere with each other.
type App struct {
	cfg     *Config
	outW    io.Writer
	logger  *slog.Logger
	loader  *hcl.Loader
	metrics *runMetrics
}

// NewApp is the constructor for the main application. Loading happens
// per run, not here, so watch mode can pick up workspace edits.
func NewApp(outW, logW io.Writer, cfg Config) (*App, error) {
	conf, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(conf, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		cfg:     conf,
		outW:    outW,
		logger:  logger,
		loader:  hcl.NewLoader(),
		metrics: newRunMetrics(),
	}, nil
}
