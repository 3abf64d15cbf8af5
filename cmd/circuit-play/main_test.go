package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestRunReturnsSetupErrors verifies a failed start is reported to main as
// an error after the log file has been opened and released.
func TestRunReturnsSetupErrors(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "play.log")

	err := run("", "", filepath.Join(dir, "missing.yaml"), logPath)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %q, want loading config", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file not created: %v", err)
	}
	if err := os.Remove(logPath); err != nil {
		t.Errorf("removing log file: %v", err)
	}
}
