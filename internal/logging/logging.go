// Package logging provides the topic-based log sink used across symindex.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
)

// Logger writes formatted messages tagged with a topic
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger that writes text records to w at the given level
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard creates a Logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(io.Discard, slog.Level(100))
}

// ErrorLog adapts the sink for libraries that take a *log.Logger. Every
// line is logged at error level under topic.
func (l *Logger) ErrorLog(topic string) *log.Logger {
	return slog.NewLogLogger(l.slog.With("topic", topic).Handler(), slog.LevelError)
}

// Logf logs an informational message under topic
func (l *Logger) Logf(topic, format string, args ...any) {
	l.slog.Info(fmt.Sprintf(format, args...), "topic", topic)
}

// Warnf logs a recoverable failure under topic
func (l *Logger) Warnf(topic, format string, args ...any) {
	l.slog.Warn(fmt.Sprintf(format, args...), "topic", topic)
}

// Debugf logs a debug message under topic
func (l *Logger) Debugf(topic, format string, args ...any) {
	l.slog.Debug(fmt.Sprintf(format, args...), "topic", topic)
}

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
