package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gurubase.log")

	l, err := NewFileLogger(path, false)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	l.Debug("answer", "hidden at info level", nil)
	l.Info("answer", "stream opened", map[string]interface{}{"slug": "what-is-a-pod"})
	l.Error("submit", "summary failed", map[string]interface{}{"error": errors.New("boom")})
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), data)
	}

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Module  string                 `json:"module"`
		Details map[string]interface{} `json:"details"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Level != "INFO" || entry.Module != "answer" || entry.Details["slug"] != "what-is-a-pod" {
		t.Errorf("entry = %+v", entry)
	}
	if !strings.Contains(lines[1], `"error":"boom"`) {
		t.Errorf("error line missing error field: %s", lines[1])
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("x", "y", nil)
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
