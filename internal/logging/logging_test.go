package logging

import (
	"context"
	"log/slog"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zapcore.Level
	}{
		{slog.LevelDebug, zapcore.DebugLevel},
		{slog.LevelInfo, zapcore.InfoLevel},
		{slog.LevelWarn, zapcore.WarnLevel},
		{slog.LevelError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		if got := zapLevel(tt.in); got != tt.want {
			t.Errorf("zapLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		debugOn bool
		infoOn  bool
	}{
		{"json default", "", "", false, false, true},
		{"json debug", "debug", "json", false, true, true},
		{"text warn", "warn", "text", false, false, false},
		{"bad format", "info", "xml", true, false, false},
		{"bad level", "loud", "json", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync, err := Setup(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer sync()

			ctx := context.Background()
			if got := slog.Default().Enabled(ctx, slog.LevelDebug); got != tt.debugOn {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugOn)
			}
			if got := slog.Default().Enabled(ctx, slog.LevelInfo); got != tt.infoOn {
				t.Errorf("info enabled = %v, want %v", got, tt.infoOn)
			}
		})
	}
}
