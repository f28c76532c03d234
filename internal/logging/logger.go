// Package logging configures the process-wide log/slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Setup installs the default slog logger.
//
// Level values: "debug", "info", "warn", "error" (default: "warn").
// Format values: "text", "json" (default: "text").
//
// Logs go to w (stderr in the CLI) so that stdout carries only progress output.
func Setup(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

