// Package logging defines the Logger used across the configuration layers
// and a log/slog backed implementation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
)

// Logger provides a simple interface for leveled logging
type Logger interface {
	// Debug logs a message at debug level
	Debug(format string, args ...interface{})

	// Info logs a message at info level
	Info(format string, args ...interface{})

	// Warn logs a message at warning level
	Warn(format string, args ...interface{})

	// Error logs a message at error level
	Error(format string, args ...interface{})
}

// NopLogger discards everything
type NopLogger struct{}

// Debug implements Logger.Debug
func (NopLogger) Debug(format string, args ...interface{}) {}

// Info implements Logger.Info
func (NopLogger) Info(format string, args ...interface{}) {}

// Warn implements Logger.Warn
func (NopLogger) Warn(format string, args ...interface{}) {}

// Error implements Logger.Error
func (NopLogger) Error(format string, args ...interface{}) {}

// SlogLogger forwards formatted messages to a slog.Logger
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l; a nil l uses slog.Default()
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

// NewTextLogger writes text records to w at the given level
func NewTextLogger(w io.Writer, level slog.Level) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// With returns a logger that adds attrs to every record
func (s *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{l: s.l.With(args...)}
}

// Debug implements Logger.Debug
func (s *SlogLogger) Debug(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

// Info implements Logger.Info
func (s *SlogLogger) Info(format string, args ...interface{}) {
	s.l.Info(fmt.Sprintf(format, args...))
}

// Warn implements Logger.Warn
func (s *SlogLogger) Warn(format string, args ...interface{}) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

// Error implements Logger.Error
func (s *SlogLogger) Error(format string, args ...interface{}) {
	s.l.Error(fmt.Sprintf(format, args...))
}

// OrNop returns l, or a NopLogger when l is nil
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
