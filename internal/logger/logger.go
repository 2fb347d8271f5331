package logger

import (
	"io"
	"log/slog"
	"os"
)

// InitLogger initializes and configures the application logger based on environment.
// JSON output is used when json is true, text otherwise.
// Returns a configured slog.Logger instance
func InitLogger(environment string, json bool) *slog.Logger {
	logger := New(os.Stdout, environment, json)

	// Set as default logger so it can be used throughout the application
	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w without touching the default logger
func New(w io.Writer, environment string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	// In development, use more verbose logging
	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true // Include source file and line number
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything, for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
