package astio

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/sema"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

type fixture struct {
	s    *sema.Sema
	bag  *diag.Bag
	desc *target.Descriptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	in := types.NewInterner()
	strs := source.NewInterner()
	desc := target.X86_64LinuxGNU()
	unit := ast.NewUnit(in, names.NewTable(desc, in), strs)
	bag := diag.NewBag(64)
	s := sema.New(unit, sema.Options{
		Reporter: diag.BagReporter{Bag: bag},
		Target:   desc,
		Lang:     sema.LangC,
	})
	return &fixture{s: s, bag: bag, desc: desc}
}

func (f *fixture) finish(t *testing.T) *ast.Unit {
	t.Helper()
	f.s.ActOnEndTranslationUnit()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected sema errors: %v", f.bag.Items())
	}
	return f.s.Unit
}

func (f *fixture) roundTrip(t *testing.T, u *ast.Unit) *ast.Unit {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, u); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf, f.desc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return got
}

func spanAt(n uint32) source.Span {
	return source.Span{Start: n, End: n + 1}
}

func (f *fixture) intLit(v uint64) ast.ExprID {
	return f.s.ActOnIntLit(v, types.MakeQual(f.s.Builtins().Int), spanAt(0))
}

func (f *fixture) declFunc(name string, result types.TypeID, paramTypes []types.QualType, paramNames []string, body func() ast.StmtID) ast.DeclID {
	s := f.s
	fnType := s.Unit.Types.Function(types.MakeQual(result), paramTypes, false)
	var params []ast.DeclID
	for i, pt := range paramTypes {
		params = append(params, s.ActOnParam(s.Unit.Names.Get(paramNames[i]), pt, uint32(i), spanAt(1)))
	}
	id := s.ActOnFunctionDecl(s.Unit.Names.Get(name), fnType, params, ast.StorageNone, spanAt(1))
	s.ActOnStartFunctionBody(id)
	s.ActOnFinishFunctionBody(id, body())
	return id
}

// buildUnit assembles a unit touching every record family: a completed
// struct, a global with a string initializer, and a function exercising
// locals, a loop, member and pointer access, a switch, a goto, sizeof and a
// conditional.
func (f *fixture) buildUnit(t *testing.T) *ast.Unit {
	t.Helper()
	s := f.s
	b := s.Builtins()

	tag := s.ActOnTag(types.TagStruct, s.Unit.Names.Get("node"), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	s.ActOnField(tag, s.Unit.Names.Get("value"), types.MakeQual(b.Int), ast.NoExprID, spanAt(1))
	rec := s.Unit.Decl(tag).Type
	ptr := types.MakeQual(s.Unit.Types.Pointer(rec, 0))
	s.ActOnField(tag, s.Unit.Names.Get("next"), ptr, ast.NoExprID, spanAt(1))
	s.ActOnTagDefinitionFinish(tag)

	cstr := types.MakeQual(s.Unit.Types.Pointer(types.QualType{Type: b.Char, Quals: types.QualConst}, 0))
	gv := s.ActOnVariable(s.Unit.Names.Get("greeting"), cstr, ast.StorageNone, spanAt(2))
	s.ActOnVariableInit(gv, s.ActOnStringLit("hello", false, spanAt(2)))

	f.declFunc("total", b.Int, []types.QualType{ptr}, []string{"p"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(3))

		n := s.ActOnVariable(s.Unit.Names.Get("n"), types.MakeQual(b.Int), ast.StorageNone, spanAt(4))
		s.ActOnVariableInit(n, f.intLit(0))
		nDecl := s.ActOnDeclStmt([]ast.DeclID{n}, spanAt(4))

		sz := s.ActOnVariable(s.Unit.Names.Get("sz"), types.MakeQual(b.Int), ast.StorageNone, spanAt(5))
		s.ActOnVariableInit(sz, s.ActOnSizeOf(rec, ast.NoExprID, false, spanAt(5)))
		szDecl := s.ActOnDeclStmt([]ast.DeclID{sz}, spanAt(5))

		cond := s.ActOnBinary(ast.BinLT,
			s.ActOnIdentifierExpr(s.Unit.Names.Get("n"), spanAt(6)), f.intLit(10), spanAt(6))
		s.ActOnCompoundStart(spanAt(7))
		addVal := s.ActOnBinary(ast.BinAssign,
			s.ActOnIdentifierExpr(s.Unit.Names.Get("n"), spanAt(7)),
			s.ActOnBinary(ast.BinAdd,
				s.ActOnIdentifierExpr(s.Unit.Names.Get("n"), spanAt(7)),
				s.ActOnMember(s.ActOnIdentifierExpr(s.Unit.Names.Get("p"), spanAt(7)),
					s.Unit.Names.Get("value"), true, spanAt(7)),
				spanAt(7)),
			spanAt(7))
		advance := s.ActOnBinary(ast.BinAssign,
			s.ActOnIdentifierExpr(s.Unit.Names.Get("p"), spanAt(8)),
			s.ActOnMember(s.ActOnIdentifierExpr(s.Unit.Names.Get("p"), spanAt(8)),
				s.Unit.Names.Get("next"), true, spanAt(8)),
			spanAt(8))
		loopBody := s.ActOnCompoundFinish([]ast.StmtID{
			s.ActOnExprStmt(addVal, spanAt(7)),
			s.ActOnExprStmt(advance, spanAt(8)),
		}, spanAt(8))
		loop := s.ActOnWhile(cond, loopBody, spanAt(6))

		swID := s.ActOnSwitchStart(s.ActOnIdentifierExpr(s.Unit.Names.Get("n"), spanAt(9)), spanAt(9))
		s.ActOnCompoundStart(spanAt(9))
		caseRet := s.ActOnReturn(f.intLit(1), spanAt(10))
		caseStmt := s.ActOnCase(f.intLit(1), ast.NoExprID, caseRet, spanAt(10))
		defStmt := s.ActOnDefault(s.ActOnNullStmt(spanAt(11)), spanAt(11))
		swBody := s.ActOnCompoundFinish([]ast.StmtID{caseStmt, defStmt}, spanAt(11))
		sw := s.ActOnSwitchFinish(swID, swBody)

		jump := s.ActOnGoto(s.Unit.Names.Get("done"), spanAt(12))
		pick := s.ActOnConditional(
			s.ActOnBinary(ast.BinLT, s.ActOnIdentifierExpr(s.Unit.Names.Get("n"), spanAt(13)), f.intLit(1), spanAt(13)),
			s.ActOnIdentifierExpr(s.Unit.Names.Get("sz"), spanAt(13)),
			s.ActOnIdentifierExpr(s.Unit.Names.Get("n"), spanAt(13)),
			spanAt(13))
		ret := s.ActOnReturn(pick, spanAt(13))
		done := s.ActOnLabel(s.Unit.Names.Get("done"), ret, spanAt(13))

		return s.ActOnCompoundFinish([]ast.StmtID{nDecl, szDecl, loop, sw, jump, done}, spanAt(14))
	})

	return f.finish(t)
}

func TestRoundTripPreservesUnit(t *testing.T) {
	f := newFixture(t)
	u := f.buildUnit(t)
	got := f.roundTrip(t, u)
	if msg := Diff(u, got); msg != "" {
		t.Fatalf("round trip changed the unit: %s", msg)
	}
	if !Equal(u, got) {
		t.Fatalf("Equal disagrees with empty Diff")
	}
}

func TestReencodeIsStable(t *testing.T) {
	f := newFixture(t)
	u := f.buildUnit(t)

	var first bytes.Buffer
	if err := Write(&first, u); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(bytes.NewReader(first.Bytes()), f.desc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var second bytes.Buffer
	if err := Write(&second, got); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("stream not stable: %d bytes vs %d", first.Len(), second.Len())
	}
}

func TestDecodedUnitResolvesNames(t *testing.T) {
	f := newFixture(t)
	u := f.buildUnit(t)
	got := f.roundTrip(t, u)

	name := got.Names.IdentifierName(got.Names.Get("total"))
	found := got.LookupIn(got.Root, name, ast.NSOrdinary)
	if len(found) != 1 {
		t.Fatalf("lookup of total found %d decls", len(found))
	}
	d := got.Decl(found[0])
	if d.Kind != ast.DeclFunction || !d.Fn.Defined {
		t.Fatalf("total decoded as %v, defined=%v", d.Kind, d.Fn.Defined)
	}
	info, ok := got.Types.FnInfo(d.Type.Type)
	if !ok || len(info.Params) != 1 {
		t.Fatalf("decoded function type lost its prototype")
	}
	pointee, _ := got.Types.Lookup(info.Params[0].Type)
	if pointee.Kind != types.KindPointer {
		t.Fatalf("parameter is %v, want pointer", pointee.Kind)
	}
	recInfo, ok := got.Types.RecordInfo(pointee.Elem.Type)
	if !ok || !recInfo.Complete || len(recInfo.Fields) != 2 {
		t.Fatalf("decoded record lost its definition: %+v", recInfo)
	}
}

func TestDecodedStringsReintern(t *testing.T) {
	f := newFixture(t)
	u := f.buildUnit(t)
	got := f.roundTrip(t, u)

	var lit string
	for i := uint32(1); i <= got.Exprs.Len(); i++ {
		if x := got.Exprs.Get(i); x.Kind == ast.ExprStringLit {
			lit = got.Strings.MustLookup(x.Str.Value)
		}
	}
	if lit != "hello" {
		t.Fatalf("string literal decoded as %q", lit)
	}
}

func TestRejectsWrongSchema(t *testing.T) {
	var buf bytes.Buffer
	p := unitPayload{Magic: streamMagic, Schema: schemaVersion + 1}
	if err := msgpack.NewEncoder(&buf).Encode(&p); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Read(&buf, target.X86_64LinuxGNU()); err == nil {
		t.Fatalf("future schema must be rejected")
	}
}

func TestRejectsForeignStream(t *testing.T) {
	var buf bytes.Buffer
	p := unitPayload{Magic: "notas", Schema: schemaVersion}
	if err := msgpack.NewEncoder(&buf).Encode(&p); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Read(&buf, target.X86_64LinuxGNU()); err == nil {
		t.Fatalf("foreign magic must be rejected")
	}
}
