package telemetry

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"  Debug ", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShouldRedactKey(t *testing.T) {
	redacted := []string{"token", "api_key", "apikey", "GEMINI_API_KEY", "password", "authorization", "bearer_token", "client_secret"}
	for _, key := range redacted {
		if !shouldRedactKey(key) {
			t.Errorf("%q should be redacted", key)
		}
	}
	clear := []string{"subject", "deadline", "message", "level", ""}
	for _, key := range clear {
		if shouldRedactKey(key) {
			t.Errorf("%q should not be redacted", key)
		}
	}
}

func TestNewLogger_WritesJSONFile(t *testing.T) {
	home := t.TempDir()

	logger, closer, err := NewLogger(home, "info")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("test event", "subject", "Math", "api_key", "super-secret")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, "logs", "system.jsonl"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if line == "" {
		t.Fatal("log file is empty")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.Split(line, "\n")[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	if entry["msg"] != "test event" {
		t.Errorf("unexpected msg: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Errorf("time key should be renamed to timestamp: %v", entry)
	}
	if entry["component"] != "gostudy" {
		t.Errorf("component attr missing: %v", entry)
	}
	if entry["api_key"] != "[REDACTED]" {
		t.Errorf("sensitive attr not redacted: %v", entry)
	}
	if entry["subject"] != "Math" {
		t.Errorf("plain attr mangled: %v", entry)
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	home := t.TempDir()

	logger, closer, err := NewLogger(home, "warn")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	_ = closer.Close()

	data, err := os.ReadFile(filepath.Join(home, "logs", "system.jsonl"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("warn record missing")
	}
}
