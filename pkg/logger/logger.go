package logger

import (
	"fmt"
	"os"

	charm "github.com/charmbracelet/log"

	"github.com/nimbusdfir/nimbus/pkg/schema"
)

// OffLevel disables all output; charm has no built-in "off".
const OffLevel = charm.FatalLevel + 1

// NimbusLogger wraps a charmbracelet logger so call sites are decoupled
// from the backend and the log level can be parsed from configuration.
type NimbusLogger struct {
	*charm.Logger
}

// NewNimbusLogger wraps an existing charm logger.
func NewNimbusLogger(l *charm.Logger) *NimbusLogger {
	return &NimbusLogger{Logger: l}
}

// NewLogger creates a logger at the given level writing to the given file.
// An empty file means stderr; "/dev/stdout" and "/dev/stderr" are honored.
func NewLogger(level charm.Level, file string) (*NimbusLogger, error) {
	w := os.Stderr
	switch file {
	case "", "/dev/stderr":
	case "/dev/stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(file, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}

	l := charm.New(w)
	l.SetLevel(level)
	return NewNimbusLogger(l), nil
}

// NewLoggerFromCliConfig builds a logger from the merged CLI configuration.
func NewLoggerFromCliConfig(cfg *schema.NimbusConfiguration) (*NimbusLogger, error) {
	level, err := ParseLogLevel(cfg.Logs.Level)
	if err != nil {
		return nil, err
	}
	return NewLogger(level, cfg.Logs.File)
}

// ParseLogLevel converts a configured level name to a charm level.
// An empty string defaults to Info.
func ParseLogLevel(logLevel string) (charm.Level, error) {
	switch logLevel {
	case "":
		return charm.InfoLevel, nil
	case "Trace", "Debug":
		return charm.DebugLevel, nil
	case "Info":
		return charm.InfoLevel, nil
	case "Warning":
		return charm.WarnLevel, nil
	case "Off":
		return OffLevel, nil
	default:
		return charm.InfoLevel, fmt.Errorf("invalid log level '%s'. Supported log levels are Trace, Debug, Info, Warning, Off", logLevel)
	}
}
