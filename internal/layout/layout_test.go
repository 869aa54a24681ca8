package layout

import (
	"testing"

	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

type fixture struct {
	strs  *source.Interner
	types *types.Interner
	eng   *Engine
}

func newFixture() *fixture {
	strs := source.NewInterner()
	tin := types.NewInterner()
	return &fixture{
		strs:  strs,
		types: tin,
		eng:   New(target.X86_64LinuxGNU(), tin),
	}
}

func (fx *fixture) record(tag types.RecordTag, name string, pack uint8, fields ...types.Field) types.TypeID {
	id := fx.types.RegisterRecord(types.DeclRef(fx.types.Len()+1000), tag, fx.strs.Intern(name), source.Span{})
	fx.types.CompleteRecord(id, fields, pack)
	return id
}

func (fx *fixture) field(name string, t types.TypeID) types.Field {
	return types.Field{Name: fx.strs.Intern(name), Type: types.QualType{Type: t}, BitWidth: -1}
}

func (fx *fixture) bitField(name string, t types.TypeID, width int32) types.Field {
	return types.Field{Name: fx.strs.Intern(name), Type: types.QualType{Type: t}, BitWidth: width}
}

func TestBuiltinSizes(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	cases := []struct {
		name  string
		id    types.TypeID
		size  int
		align int
	}{
		{"char", b.Char, 8, 8},
		{"short", b.Short, 16, 16},
		{"int", b.Int, 32, 32},
		{"long", b.Long, 64, 64},
		{"long long", b.LongLong, 64, 64},
		{"float", b.Float, 32, 32},
		{"double", b.Double, 64, 64},
		{"long double", b.LongDouble, 128, 128},
	}
	for _, c := range cases {
		info, err := fx.eng.Of(c.id)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if info.Size != c.size || info.Align != c.align {
			t.Fatalf("%s: got size=%d align=%d, want %d/%d", c.name, info.Size, info.Align, c.size, c.align)
		}
	}
}

func TestPointerAndArray(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	ptr := fx.types.Pointer(types.QualType{Type: b.Int}, 0)
	info, err := fx.eng.Of(ptr)
	if err != nil {
		t.Fatalf("pointer: %v", err)
	}
	if info.Size != 64 || info.Align != 64 {
		t.Fatalf("pointer: got %d/%d", info.Size, info.Align)
	}

	arr := fx.types.ConstantArray(types.QualType{Type: b.Int}, 10)
	info, err = fx.eng.Of(arr)
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if info.Size != 320 || info.Align != 32 {
		t.Fatalf("int[10]: got size=%d align=%d", info.Size, info.Align)
	}

	inc := fx.types.IncompleteArray(types.QualType{Type: b.Double})
	info, err = fx.eng.Of(inc)
	if err != nil {
		t.Fatalf("incomplete array: %v", err)
	}
	if info.Size != 0 || info.Align != 64 {
		t.Fatalf("double[]: got size=%d align=%d", info.Size, info.Align)
	}
}

func TestPlainStructPadding(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	// struct { char a; int b; char c; } -> a@0, b@32, c@64, size 12, align 4
	id := fx.record(types.TagStruct, "S", 0,
		fx.field("a", b.Char),
		fx.field("b", b.Int),
		fx.field("c", b.Char),
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []int{0, 32, 64}
	for i, off := range info.FieldOffsets {
		if off != want[i] {
			t.Fatalf("field %d at %d, want %d", i, off, want[i])
		}
	}
	if info.Size != 96 || info.Align != 32 {
		t.Fatalf("got size=%d align=%d, want 96/32", info.Size, info.Align)
	}
}

func TestBitFieldUnit(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	// struct { char a; short b : 2; char c; }
	// The short unit opens unaligned at bit 8; closing it skips to bit 24
	// and rounds to short alignment, putting c at bit 32. Total 6 bytes.
	id := fx.record(types.TagStruct, "S", 0,
		fx.field("a", b.Char),
		fx.bitField("b", b.Short, 2),
		fx.field("c", b.Char),
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []int{0, 8, 32}
	for i, off := range info.FieldOffsets {
		if off != want[i] {
			t.Fatalf("field %d at bit %d, want %d", i, off, want[i])
		}
	}
	if info.Size != 48 {
		t.Fatalf("size %d bits, want 48", info.Size)
	}
	if info.Align != 16 {
		t.Fatalf("align %d, want 16 (short bit-field contributes)", info.Align)
	}
}

func TestBitFieldPacking(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	// Consecutive int bit-fields share a unit while they fit.
	id := fx.record(types.TagStruct, "Flags", 0,
		fx.bitField("a", b.Int, 5),
		fx.bitField("b", b.Int, 7),
		fx.bitField("c", b.Int, 25), // 5+7+25 > 32: new unit
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []int{0, 5, 32}
	for i, off := range info.FieldOffsets {
		if off != want[i] {
			t.Fatalf("field %d at bit %d, want %d", i, off, want[i])
		}
	}
	if info.Size != 64 {
		t.Fatalf("size %d bits, want 64", info.Size)
	}
}

func TestZeroWidthBitFieldClosesUnit(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.record(types.TagStruct, "S", 0,
		fx.bitField("a", b.Int, 3),
		fx.bitField("", b.Int, 0),
		fx.bitField("b", b.Int, 3),
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if info.FieldOffsets[0] != 0 {
		t.Fatalf("a at %d, want 0", info.FieldOffsets[0])
	}
	if info.FieldOffsets[2] != 32 {
		t.Fatalf("b at %d, want 32 after zero-width separator", info.FieldOffsets[2])
	}
}

func TestBitFieldTooWide(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.record(types.TagStruct, "S", 0,
		fx.bitField("a", b.Char, 9),
	)
	_, err := fx.eng.Of(id)
	lerr, ok := err.(*Error)
	if !ok || lerr.Kind != ErrBitFieldWidth {
		t.Fatalf("want ErrBitFieldWidth, got %v", err)
	}
}

func TestPragmaPackCap(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	// #pragma pack(1): no padding at all.
	id := fx.record(types.TagStruct, "P", 1,
		fx.field("a", b.Char),
		fx.field("b", b.Int),
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if info.FieldOffsets[1] != 8 {
		t.Fatalf("b at %d, want 8 under pack(1)", info.FieldOffsets[1])
	}
	if info.Size != 40 || info.Align != 8 {
		t.Fatalf("got size=%d align=%d, want 40/8", info.Size, info.Align)
	}

	// pack(2) caps alignment at 2 bytes but leaves smaller ones alone.
	id2 := fx.record(types.TagStruct, "P2", 2,
		fx.field("a", b.Char),
		fx.field("b", b.Long),
	)
	info, err = fx.eng.Of(id2)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if info.FieldOffsets[1] != 16 || info.Align != 16 {
		t.Fatalf("got b@%d align=%d, want 16/16", info.FieldOffsets[1], info.Align)
	}
}

func TestUnionLayout(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.record(types.TagUnion, "U", 0,
		fx.field("c", b.Char),
		fx.field("d", b.Double),
		fx.field("i", b.Int),
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	for i, off := range info.FieldOffsets {
		if off != 0 {
			t.Fatalf("union field %d at %d", i, off)
		}
	}
	if info.Size != 64 || info.Align != 64 {
		t.Fatalf("got size=%d align=%d, want 64/64", info.Size, info.Align)
	}
}

func TestRecursiveByValue(t *testing.T) {
	fx := newFixture()
	// struct Node { struct Node next; }
	id := fx.types.RegisterRecord(types.DeclRef(77), types.TagStruct, fx.strs.Intern("Node"), source.Span{})
	fx.types.CompleteRecord(id, []types.Field{
		{Name: fx.strs.Intern("next"), Type: types.QualType{Type: id}, BitWidth: -1},
	}, 0)
	_, err := fx.eng.Of(id)
	lerr, ok := err.(*Error)
	if !ok || lerr.Kind != ErrRecursive {
		t.Fatalf("want ErrRecursive, got %v", err)
	}
}

func TestRecursiveThroughPointerIsFine(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.types.RegisterRecord(types.DeclRef(78), types.TagStruct, fx.strs.Intern("List"), source.Span{})
	ptr := fx.types.Pointer(types.QualType{Type: id}, 0)
	fx.types.CompleteRecord(id, []types.Field{
		{Name: fx.strs.Intern("value"), Type: types.QualType{Type: b.Int}, BitWidth: -1},
		{Name: fx.strs.Intern("next"), Type: types.QualType{Type: ptr}, BitWidth: -1},
	}, 0)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if info.Size != 128 || info.FieldOffsets[1] != 64 {
		t.Fatalf("got size=%d next@%d, want 128/64", info.Size, info.FieldOffsets[1])
	}
}

func TestIncompleteRecord(t *testing.T) {
	fx := newFixture()
	id := fx.types.RegisterRecord(types.DeclRef(79), types.TagStruct, fx.strs.Intern("Fwd"), source.Span{})
	_, err := fx.eng.Of(id)
	lerr, ok := err.(*Error)
	if !ok || lerr.Kind != ErrIncomplete {
		t.Fatalf("want ErrIncomplete, got %v", err)
	}
}

func TestSlotInvariants(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.record(types.TagStruct, "S", 0,
		fx.field("a", b.Char),
		fx.bitField("b", b.Short, 2),
		fx.field("c", b.Char),
		fx.field("d", b.Long),
	)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	// Every slot fits inside the record; plain fields land on their
	// alignment; slots appear in offset order.
	prevEnd := 0
	for _, s := range info.Slots {
		if s.Offset < prevEnd {
			t.Fatalf("slot at %d overlaps previous end %d", s.Offset, prevEnd)
		}
		if s.Offset+s.Size > info.Size {
			t.Fatalf("slot [%d,%d) exceeds record size %d", s.Offset, s.Offset+s.Size, info.Size)
		}
		prevEnd = s.Offset + s.Size
	}
	for i, f := range []types.TypeID{b.Char, 0, b.Char, b.Long} {
		if f == 0 {
			continue // bit-field
		}
		fi, _ := fx.eng.Of(f)
		if info.FieldOffsets[i]%fi.Align != 0 {
			t.Fatalf("field %d offset %d not aligned to %d", i, info.FieldOffsets[i], fi.Align)
		}
	}
}

func TestEnumUsesUnderlying(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.types.RegisterEnum(types.DeclRef(80), fx.strs.Intern("Color"), source.Span{})
	fx.types.CompleteEnum(id, b.UChar)
	info, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if info.Size != 8 || info.Align != 8 {
		t.Fatalf("got %d/%d, want 8/8", info.Size, info.Align)
	}
}

func TestLayoutCached(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	id := fx.record(types.TagStruct, "S", 0, fx.field("a", b.Int))
	a, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	bb, err := fx.eng.Of(id)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if a.Size != bb.Size || &a.FieldOffsets[0] != &bb.FieldOffsets[0] {
		t.Fatalf("second lookup did not come from the cache")
	}
}
