package app

import (
	"io"
	"log/slog"
)

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetupLogging installs a text logger on w as the process default. verbose
// forces debug level regardless of the configured one.
func SetupLogging(w io.Writer, cfg Config, verbose bool) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := NewLogger(w, level)
	slog.SetDefault(logger)
	return logger, nil
}
