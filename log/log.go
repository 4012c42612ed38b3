// Package log is the structured logger shared by the store, the HTTP API
// and the command line tool. It wraps log/slog with a compact handler.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelError LogLevel = "error"
	LevelWarn  LogLevel = "warn"
	LevelInfo  LogLevel = "info"
	LevelDebug LogLevel = "debug"
)

var (
	mu           sync.RWMutex
	logger       *slog.Logger
	currentLevel slog.Level
	output       io.Writer = os.Stderr
)

func init() {
	_ = SetLevel(LevelInfo)
}

// SetLevel configures the logging level
func SetLevel(level LogLevel) error {
	var lvl slog.Level
	switch level {
	case LevelError:
		lvl = slog.LevelError
	case LevelWarn:
		lvl = slog.LevelWarn
	case LevelInfo:
		lvl = slog.LevelInfo
	case LevelDebug:
		lvl = slog.LevelDebug
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	mu.Lock()
	defer mu.Unlock()
	currentLevel = lvl
	logger = slog.New(NewHandler(output, currentLevel))
	return nil
}

// SetOutput redirects log output, keeping the current level.
// A nil writer restores os.Stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	output = w
	logger = slog.New(NewHandler(output, currentLevel))
}

// ParseLevel converts a string to LogLevel
func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	switch level {
	case LevelError, LevelWarn, LevelInfo, LevelDebug:
		return level, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", s)
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Error logs an error message
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel <= slog.LevelDebug
}

// Logger is the common interface for all loggers
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Default returns the logger backed by the package-level functions
func Default() Logger {
	return defaultLogger{}
}

type defaultLogger struct{}

func (defaultLogger) Debug(msg string, args ...any) { Debug(msg, args...) }
func (defaultLogger) Info(msg string, args ...any)  { Info(msg, args...) }
func (defaultLogger) Warn(msg string, args ...any)  { Warn(msg, args...) }
func (defaultLogger) Error(msg string, args ...any) { Error(msg, args...) }

// Nop returns a logger that discards everything
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
