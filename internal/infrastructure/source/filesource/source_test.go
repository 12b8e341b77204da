package filesource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestSource_Fetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "weeks.json", `[{"week":"12"}]`)
	writeFile(t, dir, "archive/data_week_1.csv", "PLAYER,SCORE\nA,1")

	src, err := New(dir, 0)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	body, err := src.Fetch(context.Background(), "weeks.json")
	if err != nil || string(body) != `[{"week":"12"}]` {
		t.Fatalf("unexpected fetch result body=%q err=%v", body, err)
	}
	if _, err := src.Fetch(context.Background(), "archive/data_week_1.csv"); err != nil {
		t.Fatalf("fetch nested file: %v", err)
	}
}

func TestSource_FetchErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "big.csv", "0123456789")
	src, err := New(dir, 5)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	if _, err := src.Fetch(context.Background(), "missing.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
	if _, err := src.Fetch(context.Background(), "../etc/passwd"); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected outside root, got %v", err)
	}
	if _, err := src.Fetch(context.Background(), "big.csv"); err == nil {
		t.Fatalf("expected size limit error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Fetch(ctx, "big.csv"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestNew_RejectsMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := New(filepath.Join(t.TempDir(), "nope"), 0); err == nil {
		t.Fatalf("expected error for missing root")
	}
	if _, err := New("", 0); err == nil {
		t.Fatalf("expected error for empty root")
	}
}
