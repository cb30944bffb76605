package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		want          zapcore.Level
	}{
		{"debug", "json", zapcore.DebugLevel},
		{"WARN", "console", zapcore.WarnLevel},
		{"", "json", zapcore.InfoLevel},
		{"verbose", "console", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		logger, err := New(tt.level, tt.format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want), tt.level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tt.want-1), tt.level)
		}
	}
}
