package target

import "testing"

func TestDefaultDescriptorValid(t *testing.T) {
	d := X86_64LinuxGNU()
	if err := d.Validate(); err != nil {
		t.Fatalf("default descriptor invalid: %v", err)
	}
	if d.Pointer.Size != 64 || d.Int.Size != 32 {
		t.Fatalf("unexpected default widths: ptr=%d int=%d", d.Pointer.Size, d.Int.Size)
	}
}

func TestParseOverridesDeltasOnly(t *testing.T) {
	src := []byte(`
triple = "i686-linux-gnu"
endian = "little"

[types]
pointer = [32, 32]
long = [32, 32]
`)
	d, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Pointer.Size != 32 || d.Long.Size != 32 {
		t.Fatalf("overrides not applied: ptr=%d long=%d", d.Pointer.Size, d.Long.Size)
	}
	if d.Int.Size != 32 || d.Char.Size != 8 {
		t.Fatalf("defaults lost: int=%d char=%d", d.Int.Size, d.Char.Size)
	}
}

func TestParseRejectsBadEndian(t *testing.T) {
	if _, err := Parse([]byte(`endian = "middle"`)); err == nil {
		t.Fatalf("expected error for unknown endianness")
	}
}

func TestBuiltinLookup(t *testing.T) {
	d := X86_64LinuxGNU()
	id := d.FindBuiltin("__builtin_bswap32")
	if id == NoBuiltinID {
		t.Fatalf("bswap32 missing from default table")
	}
	b, ok := d.Builtin(id)
	if !ok || b.Attrs&BuiltinConst == 0 {
		t.Fatalf("bswap32 should be constant-foldable")
	}
	if d.FindBuiltin("__builtin_nonesuch") != NoBuiltinID {
		t.Fatalf("unknown builtin must map to NoBuiltinID")
	}
}
