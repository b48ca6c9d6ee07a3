package logging

import (
	"log/slog"
	"testing"

	"github.com/cuegrid/cuegrid-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewDoesNotPanic(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		log := New(config.LoggingConfig{Level: "debug", Format: format}, "test")
		log.Debug("hello", "k", "v")
	}
}

func TestWithAddsAttributes(t *testing.T) {
	log := Default().With("component", "test")
	if log == nil || log.Logger == nil {
		t.Fatal("With returned nil logger")
	}
	log.Info("attribute smoke test")
}
