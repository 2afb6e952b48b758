package app

import (
	"io"
	"log/slog"
)

// newLogger creates the app's slog.Logger instance. It never touches the
// global logger, so embedding callers keep their own logging intact and
// several App instances can log side by side in tests.
func newLogger(cfg *Config, logW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(logW, opts))
	}
	return slog.New(slog.NewTextHandler(logW, opts))
}
