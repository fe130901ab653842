// Package logger provides structured logging for rcmatrix.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the logging interface used throughout rcmatrix. *slog.Logger-backed
// loggers and MockLogger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{l: s.l.WithGroup(name)}
}

// FromSlog wraps an existing *slog.Logger.
func FromSlog(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

var (
	mu     sync.RWMutex
	global Logger = New(os.Stderr, false, "text")
)

// New builds a slog-backed logger writing to w.
func New(w io.Writer, debug bool, format string) Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &slogLogger{l: slog.New(handler)}
}

// SetupLogger configures the global logger.
func SetupLogger(debug bool, format string) {
	SetGlobalLogger(New(os.Stderr, debug, format))
}

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// GetGlobalLogger returns the global logger.
func GetGlobalLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	GetGlobalLogger().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	GetGlobalLogger().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	GetGlobalLogger().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	GetGlobalLogger().Error(msg, args...)
}

// WithAnalysis returns a logger with analysis context.
func WithAnalysis(id, source string) Logger {
	return GetGlobalLogger().With("analysis_id", id, "source", source)
}

// WithStage returns a logger with pipeline stage context.
func WithStage(stage string) Logger {
	return GetGlobalLogger().With("stage", stage)
}
