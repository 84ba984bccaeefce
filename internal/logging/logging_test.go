package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesPlainLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel)
	log.Debug().Msg("hidden")
	log.Warn().Str("key", "settings").Msg("corrupt record")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug line to be filtered: %q", out)
	}
	if !strings.Contains(out, "corrupt record") || !strings.Contains(out, "key=settings") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes: %q", out)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tinytalk.log")
	log, closer, err := Open(path, zerolog.DebugLevel)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	log.Info().Msg("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("TINYTALK_LOG_PATH", "")
	got, err := ResolvePath("", "/fallback.log")
	if err != nil || got != "/fallback.log" {
		t.Fatalf("expected fallback, got %q %v", got, err)
	}
	t.Setenv("TINYTALK_LOG_PATH", "/env.log")
	got, _ = ResolvePath("", "/fallback.log")
	if got != "/env.log" {
		t.Fatalf("expected env path, got %q", got)
	}
	got, _ = ResolvePath("/flag.log", "/fallback.log")
	if got != "/flag.log" {
		t.Fatalf("expected flag path, got %q", got)
	}
	got, _ = ResolvePath("rel.log", "/fallback.log")
	if !filepath.IsAbs(got) {
		t.Fatalf("expected relative path to be made absolute, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel(""); err != nil || l != zerolog.InfoLevel {
		t.Fatalf("expected info default")
	}
	if l, err := ParseLevel(" DEBUG "); err != nil || l != zerolog.DebugLevel {
		t.Fatalf("expected debug level")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
