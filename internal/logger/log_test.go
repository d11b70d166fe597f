package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/halwest-tech/kurdish-chat/backend/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := parseLevel(raw); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestInitWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "chat.log")
	Init(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1})

	Info("hello", "component", "test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file err: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}
