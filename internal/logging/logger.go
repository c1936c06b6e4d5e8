// Package logging builds the structured loggers handed to the pipeline
// components. Components take a *slog.Logger explicitly so resolution
// outcomes can be attributed and tested.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a text-handler logger writing to w at the named level.
// Unrecognized level names fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
