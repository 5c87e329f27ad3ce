package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.WarnLevel},
		{"loud", zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLevel(tt.level); got != tt.want {
				t.Fatalf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payplan.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	log.Debug("hidden")
	log.Named("sync").Info("applied remote snapshot", zap.Uint64("generation", 7))
	_ = log.Sync()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", scanner.Text())
		}
		lines = append(lines, entry)
	}
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, want 1 (debug filtered)", len(lines))
	}
	entry := lines[0]
	if entry["msg"] != "applied remote snapshot" || entry["logger"] != "sync" || entry["level"] != "info" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["generation"] != float64(7) {
		t.Fatalf("generation = %v", entry["generation"])
	}
}

func TestNewBadFileFails(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Fatal("New() error = nil, want open failure")
	}
}

func TestNewDiscard(t *testing.T) {
	log, err := New(Config{Output: "discard"})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if log.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("discard logger is enabled")
	}
}
