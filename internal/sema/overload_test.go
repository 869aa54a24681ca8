package sema

import (
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/types"
)

func declareFn(s *Sema, name string, result types.TypeID, params ...types.TypeID) ast.DeclID {
	ps := make([]types.QualType, len(params))
	for i, p := range params {
		ps[i] = types.MakeQual(p)
	}
	fnType := s.Unit.Types.Function(types.MakeQual(result), ps, false)
	return s.ActOnFunctionDecl(s.Unit.Names.Get(name), fnType, nil, ast.StorageNone, spanAt(0))
}

func TestPromotionBeatsConversion(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	fInt := declareFn(s, "f", b.Void, b.Int)
	fDouble := declareFn(s, "f", b.Void, b.Double)
	if fInt == fDouble {
		t.Fatalf("distinct signatures must not merge")
	}

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("f"), spanAt(1))
	arg := s.ActOnFloatLit("1.0f", 1.0, types.MakeQual(b.Float), spanAt(2))
	call := s.ActOnCall(callee, []ast.ExprID{arg}, spanAt(3))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	ce := s.Unit.Expr(call)
	if ce.Invalid || ce.Kind != ast.ExprCall {
		t.Fatalf("call did not resolve")
	}
	chosen := s.Unit.Expr(ce.Call.Callee)
	if chosen.Ref.Decl != fDouble {
		t.Fatalf("float argument must pick f(double) by promotion over f(int) by conversion")
	}
}

func TestExactMatchWins(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	fInt := declareFn(s, "g", b.Void, b.Int)
	declareFn(s, "g", b.Void, b.Double)

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("g"), spanAt(1))
	call := s.ActOnCall(callee, []ast.ExprID{intLit(s, 1)}, spanAt(2))
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	chosen := s.Unit.Expr(s.Unit.Expr(call).Call.Callee)
	if chosen.Ref.Decl != fInt {
		t.Fatalf("int argument must pick g(int) exactly")
	}
}

func TestAmbiguousCall(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	declareFn(s, "h", b.Void, b.Long)
	declareFn(s, "h", b.Void, b.UInt)

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("h"), spanAt(1))
	call := s.ActOnCall(callee, []ast.ExprID{intLit(s, 1)}, spanAt(2))

	if !s.Unit.Expr(call).Invalid {
		t.Fatalf("ambiguous call must produce an invalid expression")
	}
	if !hasCode(bag, diag.SemaAmbiguousCall) {
		t.Fatalf("want ambiguity diagnostic, got %v", bag.Items())
	}
}

func TestNoViableCandidate(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	declareFn(s, "k", b.Void, b.Int, b.Int)

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("k"), spanAt(1))
	call := s.ActOnCall(callee, []ast.ExprID{intLit(s, 1)}, spanAt(2))
	if !s.Unit.Expr(call).Invalid {
		t.Fatalf("arity mismatch must fail resolution")
	}
	if !hasCode(bag, diag.SemaNoViableCandidate) {
		t.Fatalf("want no-viable diagnostic, got %v", bag.Items())
	}
}

func TestDefaultArgumentFillsTail(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()
	in := s.Unit.Types

	p0 := s.ActOnParam(s.Unit.Names.Get("a"), types.MakeQual(b.Int), 0, spanAt(1))
	p1 := s.ActOnParam(s.Unit.Names.Get("n"), types.MakeQual(b.Int), 1, spanAt(2))
	s.ActOnParamDefault(p1, intLit(s, 10))

	fnType := in.Function(types.MakeQual(b.Int), []types.QualType{types.MakeQual(b.Int), types.MakeQual(b.Int)}, false)
	f := s.ActOnFunctionDecl(s.Unit.Names.Get("scale"), fnType, []ast.DeclID{p0, p1}, ast.StorageNone, spanAt(3))

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("scale"), spanAt(4))
	call := s.ActOnCall(callee, []ast.ExprID{intLit(s, 2)}, spanAt(5))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	ce := s.Unit.Expr(call)
	if len(ce.Call.Args) != 2 {
		t.Fatalf("default argument must fill the missing tail, got %d args", len(ce.Call.Args))
	}
	_ = f
}

func TestBuiltinCallFromSignature(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()

	abs := s.Unit.Names.Get("__builtin_abs")
	if abs.Builtin == 0 {
		t.Skip("target table has no abs builtin")
	}
	callee := s.ActOnIdentifierExpr(abs, spanAt(1))
	call := s.ActOnCall(callee, []ast.ExprID{intLit(s, 5)}, spanAt(2))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	ce := s.Unit.Expr(call)
	if ce.Call.Builtin != abs.Builtin {
		t.Fatalf("call must carry the builtin id for lowering")
	}
	if s.Unit.Types.Canonical(ce.Type.Type) != b.Int {
		t.Fatalf("abs result type = %s, want int", s.SpellType(ce.Type))
	}
}

func TestConstBuiltinFoldsInConstEval(t *testing.T) {
	s, _ := newTestSema(t, LangC)

	pop := s.Unit.Names.Get("__builtin_popcount")
	if pop.Builtin == 0 {
		t.Skip("target table has no popcount builtin")
	}
	callee := s.ActOnIdentifierExpr(pop, spanAt(1))
	call := s.ActOnCall(callee, []ast.ExprID{intLit(s, 0xFF)}, spanAt(2))
	v := s.Evaluate(call)
	if v.Kind != ConstInt || v.Int != 8 {
		t.Fatalf("popcount(0xFF) = %+v, want 8", v)
	}
}

func TestVariadicArgumentsPromote(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()
	in := s.Unit.Types

	charPtr := in.Pointer(types.MakeQual(b.Char), 0)
	fnType := in.Function(types.MakeQual(b.Int), []types.QualType{types.MakeQual(charPtr)}, true)
	s.ActOnFunctionDecl(s.Unit.Names.Get("logf_"), fnType, nil, ast.StorageNone, spanAt(1))

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("logf_"), spanAt(2))
	fmtArg := s.ActOnStringLit("%f", false, spanAt(3))
	fltArg := s.ActOnFloatLit("2.5f", 2.5, types.MakeQual(b.Float), spanAt(4))
	call := s.ActOnCall(callee, []ast.ExprID{fmtArg, fltArg}, spanAt(5))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	ce := s.Unit.Expr(call)
	promoted := s.Unit.Expr(ce.Call.Args[1])
	if got := in.Canonical(promoted.Type.Type); got != b.Double {
		t.Fatalf("variadic float argument must promote to double, got %s", s.SpellType(promoted.Type))
	}
}

func TestThirdOverloadJoinsSet(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	declareFn(s, "w", b.Void, b.Double, b.Double)
	declareFn(s, "w", b.Void, b.Float, b.Int)
	third := declareFn(s, "w", b.Void, b.Double, b.Float)
	if hasCode(bag, diag.SemaRedefinition) {
		t.Fatalf("a third overload must join the set, got %v", bag.Items())
	}

	name := s.Unit.Names.IdentifierName(s.Unit.Names.Get("w"))
	found := s.Unit.LookupIn(s.Unit.Root, name, ast.NSOrdinary)
	if len(found) != 1 || s.Unit.Decl(found[0]).Kind != ast.DeclOverloadSet {
		t.Fatalf("the name must stay visible as one overload set, got %v", found)
	}
	if got := len(s.Unit.Decl(found[0]).Overload.Members); got != 3 {
		t.Fatalf("overload set has %d members, want 3", got)
	}

	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("w"), spanAt(1))
	d := s.ActOnFloatLit("1.0", 1.0, types.MakeQual(b.Double), spanAt(2))
	fl := s.ActOnFloatLit("2.0f", 2.0, types.MakeQual(b.Float), spanAt(3))
	call := s.ActOnCall(callee, []ast.ExprID{d, fl}, spanAt(4))
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	chosen := s.Unit.Expr(s.Unit.Expr(call).Call.Callee)
	if chosen.Ref.Decl != third {
		t.Fatalf("(double, float) must pick the exact third overload")
	}
}

func TestWinnerMustDominateAllCandidates(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()

	declareFn(s, "q", b.Void, b.Double, b.Double)
	declareFn(s, "q", b.Void, b.Float, b.Int)
	declareFn(s, "q", b.Void, b.Double, b.Float)

	// Against (float, float) the third overload beats the candidates it
	// meets in the tournament but does not dominate the second one.
	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("q"), spanAt(1))
	a1 := s.ActOnFloatLit("1.0f", 1.0, types.MakeQual(b.Float), spanAt(2))
	a2 := s.ActOnFloatLit("2.0f", 2.0, types.MakeQual(b.Float), spanAt(3))
	call := s.ActOnCall(callee, []ast.ExprID{a1, a2}, spanAt(4))

	if !s.Unit.Expr(call).Invalid {
		t.Fatalf("no candidate dominates; the call must fail")
	}
	if !hasCode(bag, diag.SemaAmbiguousCall) {
		t.Fatalf("want ambiguity diagnostic, got %v", bag.Items())
	}
}

func defineRecord(s *Sema, name string, fields ...string) (ast.DeclID, types.QualType) {
	b := s.Builtins()
	tag := s.ActOnTag(types.TagStruct, s.Unit.Names.Get(name), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	for _, f := range fields {
		s.ActOnField(tag, s.Unit.Names.Get(f), types.MakeQual(b.Double), ast.NoExprID, spanAt(1))
	}
	s.ActOnTagDefinitionFinish(tag)
	return tag, s.Unit.Decl(tag).Type
}

func TestDeclaredOperatorResolvesBinary(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	in := s.Unit.Types

	_, vt := defineRecord(s, "vec2", "x", "y")
	fnType := in.Function(vt, []types.QualType{vt, vt}, false)
	plus := s.ActOnOperatorFunctionDecl(names.OpPlus, fnType, nil, ast.StorageNone, spanAt(2))

	s.ActOnVariable(s.Unit.Names.Get("a"), vt, ast.StorageNone, spanAt(3))
	s.ActOnVariable(s.Unit.Names.Get("c"), vt, ast.StorageNone, spanAt(3))
	lhs := s.ActOnIdentifierExpr(s.Unit.Names.Get("a"), spanAt(4))
	rhs := s.ActOnIdentifierExpr(s.Unit.Names.Get("c"), spanAt(5))
	sum := s.ActOnBinary(ast.BinAdd, lhs, rhs, spanAt(6))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	e := s.Unit.Expr(sum)
	if e.Kind != ast.ExprCall {
		t.Fatalf("class operands must dispatch operator+ as a call, got kind %v", e.Kind)
	}
	if s.Unit.Expr(e.Call.Callee).Ref.Decl != plus {
		t.Fatalf("the declared operator function must win resolution")
	}
	if in.Canonical(e.Type.Type) != in.Canonical(vt.Type) {
		t.Fatalf("operator call must carry the operator's result type")
	}
}

func TestMemberOperatorBindsLeftOperand(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()
	in := s.Unit.Types

	tag := s.ActOnTag(types.TagStruct, s.Unit.Names.Get("acc"), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	s.ActOnField(tag, s.Unit.Names.Get("total"), types.MakeQual(b.Int), ast.NoExprID, spanAt(1))
	memType := in.Function(types.MakeQual(b.Int), []types.QualType{types.MakeQual(b.Int)}, false)
	member := s.ActOnOperatorFunctionDecl(names.OpPlus, memType, nil, ast.StorageNone, spanAt(1))
	s.ActOnTagDefinitionFinish(tag)
	at := s.Unit.Decl(tag).Type

	s.ActOnVariable(s.Unit.Names.Get("a"), at, ast.StorageNone, spanAt(2))
	lhs := s.ActOnIdentifierExpr(s.Unit.Names.Get("a"), spanAt(3))
	sum := s.ActOnBinary(ast.BinAdd, lhs, intLit(s, 5), spanAt(4))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	e := s.Unit.Expr(sum)
	if e.Kind != ast.ExprCall {
		t.Fatalf("member operator must dispatch as a call, got kind %v", e.Kind)
	}
	if s.Unit.Expr(e.Call.Callee).Ref.Decl != member {
		t.Fatalf("resolution must land on the member operator")
	}
	if got := in.Canonical(e.Type.Type); got != b.Int {
		t.Fatalf("member operator result must be int, got %s", s.SpellType(e.Type))
	}
}

func TestConversionFunctionReachesBuiltinOperator(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()
	in := s.Unit.Types

	tag := s.ActOnTag(types.TagStruct, s.Unit.Names.Get("meters"), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	s.ActOnField(tag, s.Unit.Names.Get("raw"), types.MakeQual(b.Double), ast.NoExprID, spanAt(1))
	convType := in.Function(types.MakeQual(b.Double), nil, false)
	conv := s.ActOnConversionFunctionDecl(b.Double, convType, spanAt(1))
	s.ActOnTagDefinitionFinish(tag)
	mt := s.Unit.Decl(tag).Type

	s.ActOnVariable(s.Unit.Names.Get("m"), mt, ast.StorageNone, spanAt(2))
	lhs := s.ActOnIdentifierExpr(s.Unit.Names.Get("m"), spanAt(3))
	rhs := s.ActOnFloatLit("1.5", 1.5, types.MakeQual(b.Double), spanAt(4))
	sum := s.ActOnBinary(ast.BinAdd, lhs, rhs, spanAt(5))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	e := s.Unit.Expr(sum)
	if e.Kind != ast.ExprBinary {
		t.Fatalf("the built-in operator must win, got kind %v", e.Kind)
	}
	if got := in.Canonical(e.Type.Type); got != b.Double {
		t.Fatalf("result must be double, got %s", s.SpellType(e.Type))
	}
	le := s.Unit.Expr(e.Binary.Left)
	if le.Kind != ast.ExprCall {
		t.Fatalf("the class operand must route through its conversion function")
	}
	if s.Unit.Expr(le.Call.Callee).Ref.Decl != conv {
		t.Fatalf("the conversion call must name operator double")
	}
}

func TestArgumentTypeSuppliesNamespaceOverload(t *testing.T) {
	s, bag := newTestSema(t, LangCXX)
	b := s.Builtins()
	in := s.Unit.Types

	declareFn(s, "norm", b.Int, b.Double)

	ns := s.ActOnStartNamespace(s.Unit.Names.Get("phys"), spanAt(1))
	_, ut := defineRecord(s, "unit", "v")
	fnType := in.Function(types.MakeQual(b.Int), []types.QualType{ut}, false)
	nsNorm := s.ActOnFunctionDecl(s.Unit.Names.Get("norm"), fnType, nil, ast.StorageNone, spanAt(2))
	s.ActOnEndNamespace(ns)

	s.ActOnVariable(s.Unit.Names.Get("u"), ut, ast.StorageNone, spanAt(3))
	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("norm"), spanAt(4))
	arg := s.ActOnIdentifierExpr(s.Unit.Names.Get("u"), spanAt(5))
	call := s.ActOnCall(callee, []ast.ExprID{arg}, spanAt(6))

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	chosen := s.Unit.Expr(s.Unit.Expr(call).Call.Callee)
	if chosen.Ref.Decl != nsNorm {
		t.Fatalf("the argument's namespace must supply the viable overload")
	}
}
