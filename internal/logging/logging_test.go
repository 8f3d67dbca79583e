package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		dev   bool
		want  zapcore.Level
	}{
		{"info", false, zapcore.InfoLevel},
		{"debug", true, zapcore.DebugLevel},
		{"WARN", false, zapcore.WarnLevel},
		{"error", true, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, lvl, err := New(tt.level, tt.dev)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Equal(t, tt.want, lvl.Level())
			assert.True(t, log.Core().Enabled(tt.want))
			assert.False(t, log.Core().Enabled(tt.want-1))
		})
	}
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New("loud", false)
	assert.Error(t, err)
}

func TestQuiet(t *testing.T) {
	log, lvl, err := New("debug", false)
	require.NoError(t, err)

	Quiet(lvl)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	lvl.SetLevel(zapcore.ErrorLevel)
	Quiet(lvl)
	assert.Equal(t, zapcore.ErrorLevel, lvl.Level())
}
