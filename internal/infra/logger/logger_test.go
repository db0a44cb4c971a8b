package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestInitWritesJSONAtLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	l, err := initTo(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	l.Info("dropped")
	l.Warn("kept", "session_id", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["session_id"] != float64(3) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestInitRejectsUnknownSettings(t *testing.T) {
	if _, err := initTo(&bytes.Buffer{}, "loud", "json"); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := initTo(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatalf("expected format error")
	}
}
