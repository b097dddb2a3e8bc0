package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"RequisiteGraph/internal/config"
)

// New creates a console slog.Logger with provided level string.
func New(level string) *slog.Logger {
	return NewWithConfig(config.LoggingConfig{Level: level}, os.Stdout)
}

// NewWithConfig builds a logger writing to w in text or JSON format.
func NewWithConfig(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: levelFromString(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
