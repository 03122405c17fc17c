package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.log")
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.File = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug("Model trained")
	logger.Sync()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := strings.TrimSpace(string(content))
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", line, err)
	}
	if entry["msg"] != "Model trained" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.log")
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.File = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("dropped")
	logger.Sync()

	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(content), "dropped") {
		t.Fatalf("expected info entry to be filtered, got %q", content)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestErrorFieldOmitsStackTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentiment.log")
	cfg := DefaultConfig()
	cfg.File = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cause := errors.Wrap(errors.New("resource error"), "open dataset")
	logger.Error("Pipeline failed", ErrorField(cause), ErrorField(nil))
	logger.Sync()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", content, err)
	}
	if entry["error"] != "open dataset: resource error" {
		t.Fatalf("unexpected error field %v", entry["error"])
	}
	if _, ok := entry["errorVerbose"]; ok {
		t.Fatalf("expected no stack trace, got %v", entry["errorVerbose"])
	}
}
