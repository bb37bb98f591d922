// Package logging provides the shared slog logger for the Lambda handlers.
package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON logger writing to stdout. CloudWatch ingests one JSON
// object per line, so the handler must not emit multi-line records.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level(),
	})
	return slog.New(handler)
}

// level reads LOG_LEVEL from the environment, defaulting to info.
func level() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
