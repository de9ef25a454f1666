package logger

import (
	"io"
	"os"
	"sync/atomic"
)

var defLogger atomic.Pointer[Logger]

func init() {
	var l Logger = NewSlog(os.Stderr, InfoLevel, false)
	defLogger.Store(&l)
}

// GetLogger returns the package default logger.
func GetLogger() Logger {
	return *defLogger.Load()
}

// SetDefault replaces the package default logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&l)
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return NewSlog(io.Discard, ErrorLevel, false)
}

func Debug(msg string, keysAndValues ...any) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	GetLogger().Error(msg, keysAndValues...)
}

func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}
