package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"chatty", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got, want := DefaultLogPath(), "/data/iromo/logs/iromo.log"; got != want {
		t.Errorf("DefaultLogPath() = %q, want %q", got, want)
	}
}

func TestNew_FileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "iromo.log")
	var console bytes.Buffer

	log, closeFn, err := New(Options{Level: "debug", File: path, Console: &console})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Debug("quiet detail", zap.String("id", "t1"))
	log.Warn("blob left behind")
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2:\n%s", len(lines), data)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "quiet detail" || entry["id"] != "t1" {
		t.Errorf("first entry = %v", entry)
	}

	if strings.Contains(console.String(), "quiet detail") {
		t.Error("console received a debug entry")
	}
	if !strings.Contains(console.String(), "blob left behind") {
		t.Errorf("console missing warning: %q", console.String())
	}
}

func TestNew_Disabled(t *testing.T) {
	log, closeFn, err := New(Options{File: "-"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()
	log.Info("dropped")
}
