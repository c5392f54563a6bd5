package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	var buffer bytes.Buffer
	l := NewWithWriter(&buffer, slog.LevelInfo)
	l.Debug("hidden")
	l.Info("shown", "subtype", 3)

	got := buffer.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line written at info level: %s", got)
	}
	if !strings.Contains(got, "msg=shown subtype=3") {
		t.Errorf("want the info line got %s", got)
	}
	if err := l.Close(); err != nil {
		t.Error(err)
	}
}

func TestFileAndRotation(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "events.log")

	l, err := New(name, slog.LevelDebug)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Debug("first day")
	l.rotate()
	l.Info("second day")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("want the log and one backup, got %d files", len(entries))
	}

	current, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(current), "first day") {
		t.Error("the first day's line should have been rotated away")
	}
	if !strings.Contains(string(current), "second day") {
		t.Errorf("want the second day's line got %s", current)
	}
}
