package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		env   string
		want  zapcore.Level
	}{
		{"debug", "production", zapcore.DebugLevel},
		{"INFO", "development", zapcore.InfoLevel},
		{"warning", "development", zapcore.WarnLevel},
		{"error", "development", zapcore.ErrorLevel},
		{"", "production", zapcore.InfoLevel},
		{"bogus", "development", zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level, tt.env))
		})
	}
}

func TestNopLoggerAcceptsKeyValues(t *testing.T) {
	l := NewNop()
	l.Info("hello", "key", "value")
	l.Debug("odd", "dangling")
	l.Warn("warn")
	l.Error("error", "error", assert.AnError)
}
