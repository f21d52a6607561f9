package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew(t *testing.T) {
	jsonLogger := New("warn", "json")
	assert.NotNil(t, jsonLogger)
	assert.False(t, jsonLogger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, jsonLogger.Core().Enabled(zapcore.WarnLevel))

	consoleLogger := New("debug", "console")
	assert.True(t, consoleLogger.Core().Enabled(zapcore.DebugLevel))
}

func TestLoanFields(t *testing.T) {
	fields := LoanFields("top_up", "LN-1")
	assert.Len(t, fields, 2)
	assert.Equal(t, "operation", fields[0].Key)
	assert.Equal(t, "top_up", fields[0].String)
	assert.Equal(t, "loan_id", fields[1].Key)
	assert.Equal(t, "LN-1", fields[1].String)
}
