package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/byteowlz/a11yscan/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeFn()

	logger.Info("dropped")
	logger.Warn("kept", "component", "test")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"component":"test"`) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a11yscan.log")
	logger, closeFn, err := New(config.LoggingConfig{Level: "debug", File: path}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("to file")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("expected record in log file, got %q", data)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", MaxContext+10)
	got := Truncate(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != MaxContext+1 {
		t.Errorf("unexpected truncation: %d runes", len([]rune(got)))
	}
	if got := Truncate("short"); got != "short" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("data:image/png;base64," + strings.Repeat("A", 5000)); got != "data:image/png;…" {
		t.Errorf("data URI not reduced: %q", got)
	}
}
