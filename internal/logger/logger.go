// Package logger provides structured logging for TeamPulse.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates a new slog Logger writing to stderr with the specified
// level and format, and installs it as the default logger.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stderr, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New creates a logger writing to w without touching the default logger.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// are treated as info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SchedulerLogger adapts a slog Logger to the gocron Logger interface.
type SchedulerLogger struct {
	log *slog.Logger
}

func NewSchedulerLogger(log *slog.Logger) *SchedulerLogger {
	return &SchedulerLogger{log: log.With("component", "gocron")}
}

func (l *SchedulerLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *SchedulerLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *SchedulerLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *SchedulerLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
