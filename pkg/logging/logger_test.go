package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"upper case", "ERROR", slog.LevelError},
		{"default info", "", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level")
	}
	if logger.Logger == nil {
		t.Fatal("Default() returned Logger with nil slog.Logger")
	}
	if logger == Default() {
		t.Error("Default() returned the same instance twice")
	}
}

func TestFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json").Info("hello", "patient_id", "p1")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["patient_id"] != "p1" {
		t.Fatalf("expected patient_id attribute, got %#v", entry)
	}

	buf.Reset()
	newLogger(&buf, "info", "text").Info("hello", "patient_id", "p1")
	if !strings.Contains(buf.String(), "patient_id=p1") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestWithKeepsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "text").With("agent", "cardiology")
	logger.Info("dispatched")
	if !strings.Contains(buf.String(), "agent=cardiology") {
		t.Fatalf("expected child attribute, got %q", buf.String())
	}
}
