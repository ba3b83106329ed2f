package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogger_Initialize(t *testing.T) {
	Close()

	logFile := filepath.Join(t.TempDir(), "test.log")

	err := Initialize(Config{
		Level:    "debug",
		FilePath: logFile,
		Output:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	defer Close()

	log := Get()
	log.Debug("Debug message")
	log.Info("Info message")
	log.Warn("Warning message")
	log.Error("Error message")

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	for _, want := range []string{"Debug message", "Info message", "Warning message", "Error message"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log file missing %q", want)
		}
	}
}

func TestLogger_InvalidLevel(t *testing.T) {
	Close()

	if err := Initialize(Config{Level: "invalid", Output: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Expected no error for invalid level, got: %v", err)
	}
	defer Close()

	if Get().GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %s", Get().GetLevel())
	}
}

func TestLogger_JSONFormatWithFields(t *testing.T) {
	Close()

	var buf bytes.Buffer
	if err := Initialize(Config{Level: "info", Format: "json", Output: &buf}); err != nil {
		t.Fatal(err)
	}
	defer Close()

	WithFields(logrus.Fields{"unit": "eco-server", "step": "restart"}).Info("Restarting service")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["unit"] != "eco-server" || entry["msg"] != "Restarting service" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestLogger_CreateDirectory(t *testing.T) {
	Close()

	logFile := filepath.Join(t.TempDir(), "nested", "dir", "test.log")

	if err := Initialize(Config{Level: "info", FilePath: logFile, Output: &bytes.Buffer{}}); err != nil {
		t.Fatalf("Failed to initialize logger with nested dir: %v", err)
	}
	defer Close()

	Get().Info("Test message")

	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("Log file was not created: %v", err)
	}
}

func TestLogger_GetFallback(t *testing.T) {
	Close()
	defer Close()

	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
	WithField("key", "value").Debug("no panic")
}
