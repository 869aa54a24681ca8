package types

import (
	"testing"

	"cinder/internal/source"
)

func TestInternerDeduplicatesCompounds(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	p1 := in.Pointer(MakeQual(b.Int), 0)
	p2 := in.Pointer(MakeQual(b.Int), 0)
	if p1 != p2 {
		t.Fatalf("pointer types should be deduplicated: %v vs %v", p1, p2)
	}
	cp := in.Pointer(QualType{Type: b.Int, Quals: QualConst}, 0)
	if cp == p1 {
		t.Fatalf("pointer to const int must differ from pointer to int")
	}
}

func TestCanonicalUnwrapsTypedefChains(t *testing.T) {
	in := NewInterner()
	strs := source.NewInterner()
	b := in.Builtins()

	td1 := in.RegisterTypedef(DeclRef(1), strs.Intern("word"), MakeQual(b.Int))
	td2 := in.RegisterTypedef(DeclRef(2), strs.Intern("dword"), MakeQual(td1))
	if got := in.Canonical(td2); got != b.Int {
		t.Fatalf("canonical(typedef chain) = %v, want int %v", got, b.Int)
	}

	// Pointer over typedef canonicalizes to pointer over int.
	pTd := in.Pointer(MakeQual(td1), 0)
	pInt := in.Pointer(MakeQual(b.Int), 0)
	if in.Canonical(pTd) != in.Canonical(pInt) {
		t.Fatalf("pointer over typedef not canonically equal to pointer over int")
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	in := NewInterner()
	strs := source.NewInterner()
	b := in.Builtins()

	td := in.RegisterTypedef(DeclRef(3), strs.Intern("len_t"), QualType{Type: b.ULong, Quals: QualConst})
	samples := []TypeID{
		b.Int,
		td,
		in.Pointer(MakeQual(td), 0),
		in.ConstantArray(MakeQual(td), 8),
		in.Function(MakeQual(b.Void), []QualType{MakeQual(td)}, false),
	}
	for _, id := range samples {
		once := in.Canonical(id)
		twice := in.Canonical(once)
		if once != twice {
			t.Fatalf("canonical not idempotent for %v: %v then %v", id, once, twice)
		}
	}
}

func TestTypedefSurfacesHiddenQualifiers(t *testing.T) {
	in := NewInterner()
	strs := source.NewInterner()
	b := in.Builtins()

	ci := in.RegisterTypedef(DeclRef(4), strs.Intern("ci"), QualType{Type: b.Int, Quals: QualConst})
	got := in.CanonicalQual(QualType{Type: ci, Quals: QualVolatile})
	if got.Type != b.Int || !got.Quals.Const() || !got.Quals.Volatile() {
		t.Fatalf("canonical qual = %+v, want const volatile int", got)
	}
}

func TestMutuallyRecursiveRecords(t *testing.T) {
	in := NewInterner()
	strs := source.NewInterner()

	// struct A { struct B *b; }; struct B { struct A *a; };
	a := in.RegisterRecord(DeclRef(10), TagStruct, strs.Intern("A"), source.Span{})
	bID := in.RegisterRecord(DeclRef(11), TagStruct, strs.Intern("B"), source.Span{})

	pb := in.Pointer(MakeQual(bID), 0)
	in.CompleteRecord(a, []Field{{Name: strs.Intern("b"), Type: MakeQual(pb), BitWidth: -1}}, 0)
	pa := in.Pointer(MakeQual(a), 0)
	in.CompleteRecord(bID, []Field{{Name: strs.Intern("a"), Type: MakeQual(pa), BitWidth: -1}}, 0)

	// Placeholder identity preserved through refinement.
	if got := in.RegisterRecord(DeclRef(10), TagStruct, strs.Intern("A"), source.Span{}); got != a {
		t.Fatalf("re-registering struct A changed its TypeID: %v vs %v", got, a)
	}
	infoA, ok := in.RecordInfo(a)
	if !ok || !infoA.Complete {
		t.Fatalf("struct A not complete after refinement")
	}

	// The type graph cycles A -> B* -> B -> A* -> A through decl handles.
	fieldType := infoA.Fields[0].Type.Type
	pointee, ok := in.Pointee(fieldType)
	if !ok || in.Canonical(pointee.Type) != bID {
		t.Fatalf("A.b does not point at struct B")
	}
	infoB, _ := in.RecordInfo(bID)
	backPointee, ok := in.Pointee(infoB.Fields[0].Type.Type)
	if !ok || in.Canonical(backPointee.Type) != a {
		t.Fatalf("B.a does not point back at struct A")
	}
}

func TestFunctionTypeIdentity(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	f1 := in.Function(MakeQual(b.Int), []QualType{MakeQual(b.Double)}, false)
	f2 := in.Function(MakeQual(b.Int), []QualType{MakeQual(b.Double)}, false)
	if f1 != f2 {
		t.Fatalf("identical function types not shared")
	}
	fv := in.Function(MakeQual(b.Int), []QualType{MakeQual(b.Double)}, true)
	if fv == f1 {
		t.Fatalf("variadic flag must affect identity")
	}
	np := in.FunctionNoProto(MakeQual(b.Int))
	proto := in.Function(MakeQual(b.Int), nil, false)
	if np == proto {
		t.Fatalf("no-proto and proto () must stay distinct")
	}
}

func TestDecay(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	arr := in.ConstantArray(MakeQual(b.Char), 16)
	decayed := in.Decay(MakeQual(arr))
	pointee, ok := in.Pointee(decayed.Type)
	if !ok || in.Canonical(pointee.Type) != b.Char {
		t.Fatalf("char[16] should decay to char*")
	}

	inc := in.IncompleteArray(MakeQual(b.Int))
	if !in.IsPointer(in.Decay(MakeQual(inc)).Type) {
		t.Fatalf("int[] should decay to int*")
	}
}
