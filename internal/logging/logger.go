// Package logging builds the leveled slog logger used by the trustfall CLI.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to a slog.Level. Supported values: "debug",
// "info", "warn", "error" (case-insensitive). Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// NewLogger creates a leveled slog.Logger writing text, or JSON lines when
// asJSON is set, to w.
func NewLogger(level string, w io.Writer, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Install makes a new logger the process default and returns it.
func Install(level string, w io.Writer, asJSON bool) *slog.Logger {
	logger := NewLogger(level, w, asJSON)
	slog.SetDefault(logger)
	return logger
}
