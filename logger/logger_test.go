package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		env, level string
		enabled    zapcore.Level
		disabled   zapcore.Level
	}{
		{"development", "debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"production", "warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"development", "nonsense", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tc := range cases {
		l, err := New(tc.env, tc.level)
		if err != nil {
			t.Fatalf("New(%s, %s): %v", tc.env, tc.level, err)
		}
		if !l.Core().Enabled(tc.enabled) || l.Core().Enabled(tc.disabled) {
			t.Fatalf("New(%s, %s): wrong level", tc.env, tc.level)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) returned nil")
	}
}
