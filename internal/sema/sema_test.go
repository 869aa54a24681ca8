package sema

import (
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

func newTestSema(t *testing.T, lang Language) (*Sema, *diag.Bag) {
	t.Helper()
	in := types.NewInterner()
	strs := source.NewInterner()
	desc := target.X86_64LinuxGNU()
	unit := ast.NewUnit(in, names.NewTable(desc, in), strs)
	bag := diag.NewBag(64)
	s := New(unit, Options{
		Reporter: diag.BagReporter{Bag: bag},
		Target:   desc,
		Lang:     lang,
	})
	return s, bag
}

func spanAt(n uint32) source.Span {
	return source.Span{Start: n, End: n + 1}
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func intLit(s *Sema, v uint64) ast.ExprID {
	return s.ActOnIntLit(v, types.MakeQual(s.Builtins().Int), spanAt(0))
}

func TestTentativeDefinitionsMerge(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	x := s.Unit.Names.Get("x")
	qt := types.MakeQual(s.Builtins().Int)

	first := s.ActOnVariable(x, qt, ast.StorageNone, spanAt(1))
	second := s.ActOnVariable(x, qt, ast.StorageNone, spanAt(2))
	if second != first {
		t.Fatalf("tentative redeclaration did not merge: %v vs %v", second, first)
	}
	s.ActOnVariableInit(first, intLit(s, 7))
	s.ActOnEndTranslationUnit()
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if d := s.Unit.Decl(first); d.Var.Tentative {
		t.Fatalf("initializer must clear the tentative flag")
	}
}

func TestVariableTypeMismatch(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	x := s.Unit.Names.Get("x")
	b := s.Builtins()
	s.ActOnVariable(x, types.MakeQual(b.Int), ast.StorageNone, spanAt(1))
	s.ActOnVariable(x, types.MakeQual(b.Double), ast.StorageNone, spanAt(2))
	if !bag.HasErrors() {
		t.Fatalf("conflicting types must be diagnosed")
	}
}

func TestTypedefMerging(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	tname := s.Unit.Names.Get("word")
	b := s.Builtins()

	s.ActOnTypedef(tname, types.MakeQual(b.Int), spanAt(1))
	s.ActOnTypedef(tname, types.MakeQual(b.Int), spanAt(2))
	if bag.HasErrors() {
		t.Fatalf("identical typedef redeclaration must be accepted: %v", bag.Items())
	}
	s.ActOnTypedef(tname, types.MakeQual(b.Double), spanAt(3))
	if !hasCode(bag, diag.SemaTypedefMismatch) {
		t.Fatalf("conflicting typedef not diagnosed: %v", bag.Items())
	}
}

func TestBlockScopeShadowing(t *testing.T) {
	s, _ := newTestSema(t, LangC)
	x := s.Unit.Names.Get("x")
	b := s.Builtins()

	s.ActOnVariable(x, types.MakeQual(b.Int), ast.StorageNone, spanAt(1))

	s.ActOnCompoundStart(spanAt(2))
	s.ActOnVariable(x, types.MakeQual(b.Double), ast.StorageNone, spanAt(3))
	inner := s.ActOnIdentifierExpr(x, spanAt(4))
	if got := s.Unit.Expr(inner).Type.Type; s.Unit.Types.Canonical(got) != b.Double {
		t.Fatalf("inner x should resolve to the shadowing double")
	}
	s.ActOnCompoundFinish(nil, spanAt(5))

	outer := s.ActOnIdentifierExpr(x, spanAt(6))
	if got := s.Unit.Expr(outer).Type.Type; s.Unit.Types.Canonical(got) != b.Int {
		t.Fatalf("outer x should resolve to the file-scope int")
	}
}

func TestUsingDirectiveLookup(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	ns := s.ActOnStartNamespace(s.Unit.Names.Get("lib"), spanAt(1))
	s.ActOnVariable(s.Unit.Names.Get("flag"), types.MakeQual(b.Int), ast.StorageNone, spanAt(2))
	s.ActOnEndNamespace(ns)

	// Before the directive the name is invisible.
	before := s.ActOnIdentifierExpr(s.Unit.Names.Get("flag"), spanAt(3))
	if !s.Unit.Expr(before).Invalid {
		t.Fatalf("namespace member must not be visible before using-directive")
	}

	s.ActOnUsingDirective(s.Unit.Names.Get("lib"), spanAt(4))
	after := s.ActOnIdentifierExpr(s.Unit.Names.Get("flag"), spanAt(5))
	if s.Unit.Expr(after).Invalid {
		t.Fatalf("using-directive must make the member visible: %v", bag.Items())
	}
}

func TestAmbiguousBaseSubobject(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	defineClass := func(name string, field bool, bases ...ast.DeclID) ast.DeclID {
		id := s.ActOnTag(types.TagStruct, s.Unit.Names.Get(name), spanAt(1))
		s.ActOnStartTagDefinition(id, spanAt(1))
		for _, base := range bases {
			s.ActOnBaseSpecifier(id, base, false, spanAt(1))
		}
		if field {
			s.ActOnField(id, s.Unit.Names.Get("m"), types.MakeQual(b.Int), ast.NoExprID, spanAt(1))
		}
		s.ActOnTagDefinitionFinish(id)
		return id
	}

	top := defineClass("top", true)
	left := defineClass("left", false, top)
	right := defineClass("right", false, top)
	bottom := defineClass("bottom", false, left, right)

	v := s.ActOnVariable(s.Unit.Names.Get("d"), s.Unit.Decl(bottom).Type, ast.StorageNone, spanAt(2))
	_ = v
	ref := s.ActOnIdentifierExpr(s.Unit.Names.Get("d"), spanAt(3))
	got := s.ActOnMember(ref, s.Unit.Names.Get("m"), false, spanAt(4))
	if !s.Unit.Expr(got).Invalid {
		t.Fatalf("diamond member access must be ambiguous")
	}
	if !hasCode(bag, diag.SemaAmbiguousSubobject) {
		t.Fatalf("want subobject ambiguity diagnostic, got %v", bag.Items())
	}
}

func TestEnumUnderlyingType(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	e := s.ActOnStartEnum(s.Unit.Names.Get("color"), spanAt(1))
	s.ActOnEnumConstant(e, s.Unit.Names.Get("red"), ast.NoExprID, spanAt(2))
	s.ActOnEnumConstant(e, s.Unit.Names.Get("green"), ast.NoExprID, spanAt(3))
	s.ActOnEnumFinish(e)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	d := s.Unit.Decl(e)
	if d.Enum.Underlying != s.Builtins().Int {
		t.Fatalf("small enum should have int underlying type")
	}
	green := s.ActOnIdentifierExpr(s.Unit.Names.Get("green"), spanAt(4))
	if v := s.Evaluate(green); v.Kind != ConstInt || v.Int != 1 {
		t.Fatalf("green = %+v, want 1", v)
	}
}

func TestEnumeratorRedefinition(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	e := s.ActOnStartEnum(s.Unit.Names.Get("e"), spanAt(1))
	s.ActOnEnumConstant(e, s.Unit.Names.Get("dup"), ast.NoExprID, spanAt(2))
	s.ActOnEnumConstant(e, s.Unit.Names.Get("dup"), ast.NoExprID, spanAt(3))
	s.ActOnEnumFinish(e)
	if !hasCode(bag, diag.SemaRedefinition) {
		t.Fatalf("duplicate enumerator not diagnosed: %v", bag.Items())
	}
}

func TestPragmaPackAffectsLayout(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()

	s.ActOnPragmaPackPush(spanAt(1), nil, 1)
	id := s.ActOnTag(types.TagStruct, s.Unit.Names.Get("wire"), spanAt(2))
	s.ActOnStartTagDefinition(id, spanAt(2))
	s.ActOnField(id, s.Unit.Names.Get("tag"), types.MakeQual(b.Char), ast.NoExprID, spanAt(3))
	s.ActOnField(id, s.Unit.Names.Get("len"), types.MakeQual(b.Int), ast.NoExprID, spanAt(4))
	s.ActOnTagDefinitionFinish(id)
	s.ActOnPragmaPackPop(spanAt(5), nil)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	info, err := s.Layout.Of(s.Unit.Types.Canonical(s.Unit.Decl(id).Type.Type))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if info.Size != 40 || info.Align != 8 {
		t.Fatalf("packed struct size=%d align=%d, want 40/8", info.Size, info.Align)
	}
	if s.pack.Current() != 0 {
		t.Fatalf("pop must restore natural packing")
	}
}

func TestPragmaPackPopEmptyWarns(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	s.ActOnPragmaPackPop(spanAt(1), nil)
	if !hasCode(bag, diag.SemaPragmaPackEmpty) {
		t.Fatalf("pop of empty stack must warn: %v", bag.Items())
	}
}

func TestGotoUndeclaredLabel(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()
	fnType := s.Unit.Types.Function(types.MakeQual(b.Void), nil, false)
	f := s.ActOnFunctionDecl(s.Unit.Names.Get("f"), fnType, nil, ast.StorageNone, spanAt(1))

	s.ActOnStartFunctionBody(f)
	s.ActOnCompoundStart(spanAt(2))
	g := s.ActOnGoto(s.Unit.Names.Get("nowhere"), spanAt(2))
	body := s.ActOnCompoundFinish([]ast.StmtID{g}, spanAt(3))
	s.ActOnFinishFunctionBody(f, body)

	if !hasCode(bag, diag.SemaMissingLabel) {
		t.Fatalf("unresolved goto not diagnosed: %v", bag.Items())
	}
}

func TestLinkageSpecOwnsItsDeclarations(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	ls := s.ActOnLinkageSpecStart(ast.LinkageC, spanAt(1))
	fnType := s.Unit.Types.Function(types.MakeQual(b.Int), nil, false)
	f := s.ActOnFunctionDecl(s.Unit.Names.Get("cfun"), fnType, nil, ast.StorageNone, spanAt(2))
	s.ActOnLinkageSpecEnd(ls)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	d := s.Unit.Decl(ls)
	if !d.LinkSpec.Ctx.IsValid() {
		t.Fatalf("extern block must own a declaration context")
	}
	name := s.Unit.Names.IdentifierName(s.Unit.Names.Get("cfun"))
	found := s.Unit.LookupIn(d.LinkSpec.Ctx, name, ast.NSOrdinary)
	if len(found) != 1 || found[0] != f {
		t.Fatalf("function must be attached to the extern block's context, got %v", found)
	}
}

func TestVariableInitializedTwice(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	x := s.Unit.Names.Get("x")
	qt := types.MakeQual(s.Builtins().Int)

	first := s.ActOnVariable(x, qt, ast.StorageNone, spanAt(1))
	s.ActOnVariableInit(first, intLit(s, 1))

	second := s.ActOnVariable(x, qt, ast.StorageNone, spanAt(2))
	if second != first {
		t.Fatalf("redeclaration must merge into the earlier variable: %v vs %v", second, first)
	}
	s.ActOnVariableInit(second, intLit(s, 2))
	if !hasCode(bag, diag.SemaRedefinition) {
		t.Fatalf("second initializer must be a redefinition: %v", bag.Items())
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()
	fnType := s.Unit.Types.Function(types.MakeQual(b.Void), nil, false)
	f := s.ActOnFunctionDecl(s.Unit.Names.Get("f"), fnType, nil, ast.StorageNone, spanAt(1))
	s.ActOnStartFunctionBody(f)
	s.ActOnBreak(spanAt(2))
	s.ActOnFinishFunctionBody(f, ast.NoStmtID)
	if !hasCode(bag, diag.SemaBreakOutsideLoop) {
		t.Fatalf("break outside loop not diagnosed: %v", bag.Items())
	}
}

func TestDuplicateCaseLabel(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()
	fnType := s.Unit.Types.Function(types.MakeQual(b.Void), nil, false)
	f := s.ActOnFunctionDecl(s.Unit.Names.Get("f"), fnType, nil, ast.StorageNone, spanAt(1))
	s.ActOnStartFunctionBody(f)

	sw := s.ActOnSwitchStart(intLit(s, 0), spanAt(2))
	s.ActOnCase(intLit(s, 3), ast.NoExprID, ast.NoStmtID, spanAt(3))
	s.ActOnCase(intLit(s, 3), ast.NoExprID, ast.NoStmtID, spanAt(4))
	s.ActOnSwitchFinish(sw, ast.NoStmtID)
	s.ActOnFinishFunctionBody(f, ast.NoStmtID)

	if !hasCode(bag, diag.SemaDuplicateCase) {
		t.Fatalf("duplicate case not diagnosed: %v", bag.Items())
	}
}
