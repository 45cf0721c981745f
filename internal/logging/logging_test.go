package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupWritesToFile(t *testing.T) {
	t.Cleanup(func() { log.SetOutput(os.Stderr); log.SetLevel(log.InfoLevel) })

	file := filepath.Join(t.TempDir(), "app.log")
	closer, err := Setup("debug", file)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.WithField("booking", "42").Debug("booking confirmed")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "booking confirmed") || !strings.Contains(string(data), "booking=42") {
		t.Fatalf("unexpected log output %q", data)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup("chatty", ""); err == nil {
		t.Fatal("expected error for an unknown level")
	}
}
