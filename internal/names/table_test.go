package names

import (
	"testing"

	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

func TestIdentifierPointerIdentity(t *testing.T) {
	tbl := NewTable(nil, nil)
	a := tbl.Get("value")
	b := tbl.Get("value")
	if a != b {
		t.Fatalf("same spelling produced two identifiers")
	}
	if tbl.Get("other") == a {
		t.Fatalf("distinct spellings shared an identifier")
	}
}

func TestBuiltinTagging(t *testing.T) {
	tbl := NewTable(target.X86_64LinuxGNU(), nil)
	if tbl.Get("__builtin_memcpy").Builtin == target.NoBuiltinID {
		t.Fatalf("__builtin_memcpy should carry a builtin tag")
	}
	if tbl.Get("memmove").Builtin != target.NoBuiltinID {
		t.Fatalf("plain identifier must not carry a builtin tag")
	}
}

func TestConstructorNameEqualityAfterCanonicalization(t *testing.T) {
	in := types.NewInterner()
	strs := source.NewInterner()
	tbl := NewTable(nil, in)

	rec := in.RegisterRecord(types.DeclRef(1), types.TagClass, strs.Intern("C"), source.Span{})
	alias := in.RegisterTypedef(types.DeclRef(2), strs.Intern("C_alias"), types.MakeQual(rec))

	direct := tbl.ConstructorName(rec)
	viaAlias := tbl.ConstructorName(alias)
	if direct != viaAlias {
		t.Fatalf("constructor names of a class and its alias must be equal")
	}
	if direct == tbl.DestructorName(rec) {
		t.Fatalf("constructor and destructor names must differ")
	}
}

func TestOperatorNameSpelling(t *testing.T) {
	tbl := NewTable(nil, nil)
	n := tbl.OperatorName(OpEqualEqual)
	if n.String() != "operator==" {
		t.Fatalf("got %q", n.String())
	}
}
