package config

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures and returns a structured logger.
// Empty arguments fall back to LOG_LEVEL and LOG_FORMAT.
func SetupLogger(levelOverride, formatOverride string) *slog.Logger {
	logLevel := levelOverride
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}

	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logFormat := formatOverride
	if logFormat == "" {
		logFormat = os.Getenv("LOG_FORMAT")
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Default to JSON for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "ivshop")
	slog.SetDefault(logger)

	return logger
}
