package logger

import (
	"testing"

	charm "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusdfir/nimbus/pkg/schema"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected charm.Level
		wantErr  bool
	}{
		{"", charm.InfoLevel, false},
		{"Trace", charm.DebugLevel, false},
		{"Debug", charm.DebugLevel, false},
		{"Info", charm.InfoLevel, false},
		{"Warning", charm.WarnLevel, false},
		{"Off", OffLevel, false},
		{"Verbose", charm.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSetDefaultIgnoresNil(t *testing.T) {
	original := Default()
	SetDefault(nil)
	assert.Same(t, original, Default())
}

func TestNewLoggerFromCliConfigRejectsBadLevel(t *testing.T) {
	cfg := &schema.NimbusConfiguration{}
	cfg.Logs.Level = "Verbose"

	_, err := NewLoggerFromCliConfig(cfg)
	assert.Error(t, err)

	cfg.Logs.Level = "Debug"
	logger, err := NewLoggerFromCliConfig(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
