package util

import (
	"strings"
	"testing"
)

func TestNewIDIsPrefixedAndOrdered(t *testing.T) {
	a := NewID("req")
	b := NewID("req")
	if !strings.HasPrefix(a, "req_") {
		t.Fatalf("expected req_ prefix, got %q", a)
	}
	if len(a) != len("req_")+26 {
		t.Fatalf("unexpected id length %d for %q", len(a), a)
	}
	if a >= b {
		t.Fatalf("ids must increase: %q then %q", a, b)
	}
	if id := NewID(""); strings.Contains(id, "_") {
		t.Fatalf("unprefixed id contains separator: %q", id)
	}
}
