package logger

import (
	"os"
	"sync/atomic"

	charm "github.com/charmbracelet/log"
)

// defaultLogger is the global default NimbusLogger instance stored atomically.
var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(NewNimbusLogger(charm.Default()))
}

// Default returns the global default NimbusLogger instance.
func Default() *NimbusLogger {
	return defaultLogger.Load().(*NimbusLogger)
}

// SetDefault sets a new global default NimbusLogger instance.
func SetDefault(logger *NimbusLogger) {
	if logger != nil {
		defaultLogger.Store(logger)
	}
}

// New creates a new NimbusLogger with default settings.
func New() *NimbusLogger {
	return NewNimbusLogger(charm.New(os.Stderr))
}

// Package-level helpers forwarding to the default logger.

func Debug(msg interface{}, keyvals ...interface{}) { Default().Debug(msg, keyvals...) }

func Info(msg interface{}, keyvals ...interface{}) { Default().Info(msg, keyvals...) }

func Warn(msg interface{}, keyvals ...interface{}) { Default().Warn(msg, keyvals...) }

func Error(msg interface{}, keyvals ...interface{}) { Default().Error(msg, keyvals...) }
