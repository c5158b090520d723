package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	if GetZapLogger() == nil {
		t.Fatal("GetZapLogger() before Init must not be nil")
	}

	for _, format := range []string{"json", "text"} {
		if err := Init("warn", format); err != nil {
			t.Fatalf("Init(%s) error = %v", format, err)
		}
		if !GetZapLogger().Core().Enabled(zapcore.WarnLevel) {
			t.Error("warn should be enabled")
		}
		if GetZapLogger().Core().Enabled(zapcore.InfoLevel) {
			t.Error("info should be disabled at warn level")
		}
	}

	if err := Init("loud", "json"); err == nil {
		t.Error("Init with bad level should fail")
	}
	if Component("sequencer") == nil {
		t.Error("Component() returned nil")
	}
}
