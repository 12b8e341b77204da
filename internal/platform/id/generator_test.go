package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator_NewID(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}

	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected uuid format, got %q: %v", first, err)
	}
}

func TestStatic_NewID(t *testing.T) {
	t.Parallel()

	got, err := Static("run-1").NewID()
	if err != nil || got != "run-1" {
		t.Fatalf("unexpected static id %q err=%v", got, err)
	}
}
