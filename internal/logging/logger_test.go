package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "test.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hello", String(FieldItemID, "abc"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"item_id":"abc"`) {
		t.Fatalf("expected structured field in output, got %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestConsoleHandlerQuoting(t *testing.T) {
	var sb strings.Builder
	handler := newConsoleHandler(&writerFunc{&sb}, slog.LevelInfo)
	logger := slog.New(handler)
	logger.Info("stage completed", String("msg_detail", "two words"))
	out := sb.String()
	if !strings.Contains(out, `msg_detail="two words"`) {
		t.Fatalf("expected quoted attr, got %q", out)
	}
	if !strings.Contains(out, "INF stage completed") {
		t.Fatalf("expected level tag and message, got %q", out)
	}
}

type writerFunc struct{ sb *strings.Builder }

func (w *writerFunc) Write(p []byte) (int, error) { return w.sb.Write(p) }
