// Package logger is the structured logging facade used by the transport, the
// motion controller and the CLI.
//
// Messages carry key/value pairs in the log/slog convention:
//
//	log.Debug("tx", "port", "/dev/ttyUSB0", "frame", "]")
//
// The default implementation writes JSON records, or human readable console
// records when ENV=development or when NewConsole is used.
package logger

import (
	"fmt"
	"strings"
)

// Level is a logging severity.
type Level int8

const (
	// DebugLevel carries wire traffic and polling detail.
	DebugLevel Level = iota - 1
	// InfoLevel is the default level.
	InfoLevel
	// WarnLevel marks recoverable failures such as a failed home.
	WarnLevel
	// ErrorLevel marks faults that need operator attention.
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

// ParseLevel maps a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("logger: unknown level %q", s)
	}
}

// Logger defines the logging methods used throughout go-mmc.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// With returns a child logger carrying the given key/value pairs.
	With(keyValues ...any) Logger
	Level() Level
	SetLevel(level Level)
}
