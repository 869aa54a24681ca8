package source

import "testing"

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern("count")
	b := in.Intern("count")
	if a != b {
		t.Fatalf("same string interned twice: %v vs %v", a, b)
	}
	if s := in.MustLookup(a); s != "count" {
		t.Fatalf("lookup returned %q", s)
	}
}

func TestInternerEmptyString(t *testing.T) {
	in := NewInterner()
	if got := in.Intern(""); got != NoStringID {
		t.Fatalf("empty string must map to NoStringID, got %v", got)
	}
	if in.Len() != 1 {
		t.Fatalf("fresh interner length %d, want 1", in.Len())
	}
}

func TestInternerInvalidLookup(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(StringID(99)); ok {
		t.Fatalf("lookup of unknown id must fail")
	}
}
