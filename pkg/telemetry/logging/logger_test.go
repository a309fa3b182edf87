package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/callisto/pkg/config"
)

// TestNewWithWriter_JSON verifies JSON output and level filtering.
func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() failed: %v", err)
	}

	logger.Debug("should be filtered")
	logger.Info("session admitted", "session_id", "abc", "owner_id", "u-1")

	out := buf.String()
	if strings.Contains(out, "should be filtered") {
		t.Error("debug message should have been filtered at info level")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, out)
	}
	if entry["msg"] != "session admitted" {
		t.Errorf("msg = %v, want %q", entry["msg"], "session admitted")
	}
	if entry["session_id"] != "abc" {
		t.Errorf("session_id = %v, want abc", entry["session_id"])
	}
}

// TestNewWithWriter_Text verifies the text handler is selected.
func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() failed: %v", err)
	}

	logger.Debug("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text-formatted output, got: %s", buf.String())
	}
}

// TestNewWithWriter_InvalidLevel rejects unknown levels.
func TestNewWithWriter_InvalidLevel(t *testing.T) {
	_, err := NewWithWriter(config.LoggingConfig{Level: "shout", Format: "json"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// TestParseLevel covers the level table.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil {
			t.Errorf("parseLevel(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
