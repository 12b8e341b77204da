package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
)

func TestNewJSONWriter_WritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo)

	logger.InfoContext(context.Background(), "week loaded", "week", "12", "rows", 2, "error", errors.New("boom"))
	logger.Debug("dropped at info level")
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := sonic.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "week loaded" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["week"] != "12" {
		t.Fatalf("unexpected week field: %v", entry["week"])
	}
	if entry["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", entry["error"])
	}
}

func TestZapFields_OddArgs(t *testing.T) {
	fields := zapFields([]any{"a", 1, 42, "x", "dangling"})
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[1].Key != "arg" {
		t.Fatalf("expected non-string key to become arg, got %q", fields[1].Key)
	}
	if fields[2].Key != "dangling" {
		t.Fatalf("expected dangling key to be kept, got %q", fields[2].Key)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		" error ": LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%s want %s", in, got, want)
		}
	}
}

func TestNilLoggerFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected nop logger from nil receiver")
	}
}

func TestContextWith_AppendsFieldsToContextCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo)

	ctx := ContextWith(context.Background(), "run_id", "run-1")
	ctx = ContextWith(ctx, "week", "12")
	if ContextWith(ctx) != ctx {
		t.Fatalf("expected ContextWith without args to return ctx unchanged")
	}

	logger.InfoContext(ctx, "week loaded", "rows", 3)
	logger.Info("no context")
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %q", buf.String())
	}

	var entry map[string]any
	if err := sonic.UnmarshalString(lines[0], &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["run_id"] != "run-1" || entry["week"] != "12" || entry["rows"] != float64(3) {
		t.Fatalf("unexpected context fields: %v", entry)
	}
	if strings.Contains(lines[1], "run_id") {
		t.Fatalf("expected plain call without context fields, got %s", lines[1])
	}
}
