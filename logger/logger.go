// SPDX-License-Identifier: EPL-2.0

// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a default logger writing to stderr. Stdout is kept free
// for commands that stream audio or YAML.
func Setup(level, format string) error {
	slog.SetDefault(New(os.Stderr, level, format))
	return nil
}

// New builds a logger for w. Unknown levels fall back to info and unknown
// formats to text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithFields returns the default logger with the given fields.
func WithFields(fields ...any) *slog.Logger {
	return slog.With(fields...)
}

// WithComponent returns the default logger tagged with a component field.
func WithComponent(component string) *slog.Logger {
	return slog.With("component", component)
}
