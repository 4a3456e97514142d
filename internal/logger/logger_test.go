package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		json  bool
		debug bool
		level zapcore.Level
	}{
		{"console info", false, false, zapcore.InfoLevel},
		{"json debug", true, true, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.json, tt.debug)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.level))
			assert.Equal(t, tt.debug, log.Core().Enabled(zapcore.DebugLevel))
		})
	}
}
