package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_DefaultConfig(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	if logger.config.Level != "info" {
		t.Errorf("expected default level = info, got %s", logger.config.Level)
	}

	if logger.config.Format != "console" {
		t.Errorf("expected default format = console, got %s", logger.config.Format)
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	cfg := &Config{
		Level:  "debug",
		Format: "console",
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Test that we can log without errors
	logger.Debug("test debug message")
	logger.Info("test info message")
	logger.Warn("test warn message")
	logger.Error("test error message")
}

func TestNew_FileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := &Config{
		Level:      "info",
		Format:     "json",
		OutputPath: logFile,
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	testMsg := "test log message"
	logger.Info(testMsg)

	// Sync to ensure message is written
	if err := logger.Sync(); err != nil {
		t.Logf("Sync() returned error (expected on stdout): %v", err)
	}

	// Read log file
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), testMsg) {
		t.Errorf("log file should contain %q, got: %s", testMsg, string(content))
	}

	// Verify JSON format
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		var logEntry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &logEntry); err != nil {
			t.Errorf("log line is not valid JSON: %v\nLine: %s", err, line)
		}
	}
}

func TestNew_InvalidLogLevel(t *testing.T) {
	cfg := &Config{
		Level: "verbose",
	}

	if _, err := New(cfg); err == nil {
		t.Error("New() should error for invalid log level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"trace", true},
		{"", true},
	}

	for _, tt := range tests {
		_, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestWithHelpers(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if l := logger.WithDocument("invoice.pdf"); l == nil {
		t.Error("WithDocument() returned nil")
	}
	if l := logger.WithPage(3); l == nil {
		t.Error("WithPage() returned nil")
	}
	if l := logger.WithStage("merge"); l == nil {
		t.Error("WithStage() returned nil")
	}
}

func TestGet_CreatesDefault(t *testing.T) {
	defaultLogger = nil
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
}
