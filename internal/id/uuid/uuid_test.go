// Package uuid includes tests for the run ID generator.
package uuid

import (
	"testing"
)

// TestGeneratorNewRunID ensures generated IDs are unique, version 7 and ordered.
func TestGeneratorNewRunID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	id2, err := gen.NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	if id1.Version() != 7 {
		t.Fatalf("expected version 7, got %d", id1.Version())
	}
	if id1.String() >= id2.String() {
		t.Fatalf("expected %s to sort before %s", id1, id2)
	}
}
