package irgen

import (
	"strings"
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/ir"
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
	logs map[string]*ir.Recorder
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
	return &fixture{s: s, bag: bag, desc: desc, logs: make(map[string]*ir.Recorder)}
}

// lower finishes the unit, runs the generator with a recorder on every
// function, and validates the result.
func (f *fixture) lower(t *testing.T) *ir.Module {
	t.Helper()
	f.s.ActOnEndTranslationUnit()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected sema errors: %v", f.bag.Items())
	}
	g := New(f.s.Unit, f.s.Layout, f.desc, diag.BagReporter{Bag: f.bag})
	g.BuilderHook = func(fn *ir.Func, b ir.Builder) ir.Builder {
		r := ir.NewRecorder(fn)
		f.logs[fn.Name] = r
		return r
	}
	m := g.Lower()
	if f.bag.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", f.bag.Items())
	}
	if err := ir.Validate(m); err != nil {
		t.Fatalf("invalid module: %v", err)
	}
	return m
}

func (f *fixture) log(t *testing.T, fn string) []string {
	t.Helper()
	r, ok := f.logs[fn]
	if !ok {
		t.Fatalf("function %q was not lowered", fn)
	}
	return r.Log
}

func spanAt(n uint32) source.Span {
	return source.Span{Start: n, End: n + 1}
}

func hasLine(log []string, substr string) bool {
	for _, line := range log {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func countLines(log []string, substr string) int {
	n := 0
	for _, line := range log {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func findFunc(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()
	for _, fn := range m.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function %q in module", name)
	return nil
}

func findGlobal(t *testing.T, m *ir.Module, name string) *ir.Global {
	t.Helper()
	for i := range m.Globals {
		if m.Globals[i].Name == name {
			return &m.Globals[i]
		}
	}
	t.Fatalf("no global %q in module", name)
	return nil
}

func (f *fixture) intLit(v uint64) ast.ExprID {
	return f.s.ActOnIntLit(v, types.MakeQual(f.s.Builtins().Int), spanAt(0))
}

// declFunc declares a function and runs body inside it.
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

func TestReturnConstantEmissionOrder(t *testing.T) {
	f := newFixture(t)
	s := f.s
	f.declFunc("f", s.Builtins().Int, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		ret := s.ActOnReturn(f.intLit(42), spanAt(3))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(4))
	})
	f.lower(t)

	want := []string{
		"block b0 entry",
		"insert b0",
		"alloca v0 static",
		"block b1 exit",
		"store v0 <- v1",
		"br b1",
		"insert b1",
		"load v2 v0",
		"ret v2",
	}
	got := f.log(t, "f")
	if len(got) != len(want) {
		t.Fatalf("log length %d, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("log[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIfLowersToCondBr(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	f.declFunc("f", b.Int, []types.QualType{types.MakeQual(b.Int)}, []string{"x"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		cond := s.ActOnIdentifierExpr(s.Unit.Names.Get("x"), spanAt(3))
		then := s.ActOnReturn(f.intLit(1), spanAt(4))
		ifs := s.ActOnIf(cond, then, ast.NoStmtID, spanAt(5))
		tail := s.ActOnReturn(f.intLit(0), spanAt(6))
		return s.ActOnCompoundFinish([]ast.StmtID{ifs, tail}, spanAt(7))
	})
	m := f.lower(t)

	log := f.log(t, "f")
	if !hasLine(log, "condbr") {
		t.Fatalf("if statement did not produce a condbr: %q", log)
	}
	if !hasLine(log, "cmp") {
		t.Fatalf("scalar condition must compare against zero: %q", log)
	}
	fn := findFunc(t, m, "f")
	// entry, exit, if.then, if.end
	if len(fn.Blocks) != 4 {
		t.Fatalf("block count %d, want 4", len(fn.Blocks))
	}
}

func TestWhileLoopShape(t *testing.T) {
	f := newFixture(t)
	s := f.s
	f.declFunc("f", s.Builtins().Void, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		s.LoopEnter()
		brk := s.ActOnBreak(spanAt(3))
		s.LoopExit()
		loop := s.ActOnWhile(f.intLit(1), brk, spanAt(4))
		return s.ActOnCompoundFinish([]ast.StmtID{loop}, spanAt(5))
	})
	m := f.lower(t)

	fn := findFunc(t, m, "f")
	names := make(map[string]bool, len(fn.Blocks))
	for i := range fn.Blocks {
		names[fn.Blocks[i].Name] = true
	}
	for _, want := range []string{"while.cond", "while.body", "while.end"} {
		if !names[want] {
			t.Fatalf("missing loop block %q, have %v", want, names)
		}
	}
	log := f.log(t, "f")
	if got := log[len(log)-1]; got != "ret void" {
		t.Fatalf("void function must end in ret void, got %q", got)
	}
}

func TestSwitchDispatch(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	f.declFunc("f", b.Void, []types.QualType{types.MakeQual(b.Int)}, []string{"x"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		cond := s.ActOnIdentifierExpr(s.Unit.Names.Get("x"), spanAt(3))
		sw := s.ActOnSwitchStart(cond, spanAt(3))
		s.ActOnCompoundStart(spanAt(3))
		c1 := s.ActOnCase(f.intLit(1), ast.NoExprID, s.ActOnBreak(spanAt(4)), spanAt(4))
		def := s.ActOnDefault(s.ActOnBreak(spanAt(5)), spanAt(5))
		body := s.ActOnCompoundFinish([]ast.StmtID{c1, def}, spanAt(6))
		swStmt := s.ActOnSwitchFinish(sw, body)
		return s.ActOnCompoundFinish([]ast.StmtID{swStmt}, spanAt(7))
	})
	m := f.lower(t)

	log := f.log(t, "f")
	if !hasLine(log, "switch v") {
		t.Fatalf("no switch terminator emitted: %q", log)
	}
	if !hasLine(log, "cases=1") {
		t.Fatalf("switch should carry one table case: %q", log)
	}
	fn := findFunc(t, m, "f")
	dead := false
	for i := range fn.Blocks {
		if fn.Blocks[i].Dead {
			dead = true
		}
	}
	if !dead {
		t.Fatalf("statements before the first case must land in a dead block")
	}
}

func TestLogicalAndShortCircuits(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	qt := types.MakeQual(b.Int)
	f.declFunc("f", b.Int, []types.QualType{qt, qt}, []string{"a", "z"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		lhs := s.ActOnIdentifierExpr(s.Unit.Names.Get("a"), spanAt(3))
		rhs := s.ActOnIdentifierExpr(s.Unit.Names.Get("z"), spanAt(4))
		and := s.ActOnBinary(ast.BinLAnd, lhs, rhs, spanAt(5))
		ret := s.ActOnReturn(and, spanAt(6))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(7))
	})
	f.lower(t)

	log := f.log(t, "f")
	if !hasLine(log, "phi") {
		t.Fatalf("short-circuit must merge through a phi: %q", log)
	}
	if countLines(log, "condbr") != 1 {
		t.Fatalf("exactly one condbr expected for &&: %q", log)
	}
}

func TestMemberStoreThroughPointer(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()

	tag := s.ActOnTag(types.TagStruct, s.Unit.Names.Get("node"), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	s.ActOnField(tag, s.Unit.Names.Get("next"), types.MakeQual(b.Int), ast.NoExprID, spanAt(1))
	s.ActOnField(tag, s.Unit.Names.Get("value"), types.MakeQual(b.Int), ast.NoExprID, spanAt(1))
	s.ActOnTagDefinitionFinish(tag)

	rec := s.Unit.Decl(tag).Type
	ptr := types.MakeQual(s.Unit.Types.Pointer(rec, 0))

	f.declFunc("f", b.Void, []types.QualType{ptr}, []string{"p"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		base := s.ActOnIdentifierExpr(s.Unit.Names.Get("p"), spanAt(3))
		mem := s.ActOnMember(base, s.Unit.Names.Get("value"), true, spanAt(4))
		asg := s.ActOnBinary(ast.BinAssign, mem, f.intLit(7), spanAt(5))
		es := s.ActOnExprStmt(asg, spanAt(6))
		return s.ActOnCompoundFinish([]ast.StmtID{es}, spanAt(7))
	})
	f.lower(t)

	log := f.log(t, "f")
	if !hasLine(log, "fieldaddr") {
		t.Fatalf("member assignment must go through fieldaddr: %q", log)
	}
	if !hasLine(log, ".1") {
		t.Fatalf("second field must use index 1: %q", log)
	}
}

func TestIndexThroughPointerParam(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	ptr := types.MakeQual(s.Unit.Types.Pointer(types.MakeQual(b.Int), 0))
	f.declFunc("f", b.Int, []types.QualType{ptr}, []string{"p"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		base := s.ActOnIdentifierExpr(s.Unit.Names.Get("p"), spanAt(3))
		idx := s.ActOnIndex(base, f.intLit(2), spanAt(4))
		ret := s.ActOnReturn(idx, spanAt(5))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(6))
	})
	f.lower(t)

	if !hasLine(f.log(t, "f"), "indexaddr") {
		t.Fatalf("subscript must scale through indexaddr: %q", f.log(t, "f"))
	}
}

func TestGlobalInitializerFolds(t *testing.T) {
	f := newFixture(t)
	s := f.s
	vd := s.ActOnVariable(s.Unit.Names.Get("g"), types.MakeQual(s.Builtins().Int), ast.StorageNone, spanAt(1))
	sum := s.ActOnBinary(ast.BinAdd,
		s.ActOnBinary(ast.BinMul, f.intLit(2), f.intLit(3), spanAt(2)),
		f.intLit(1), spanAt(3))
	s.ActOnVariableInit(vd, sum)
	m := f.lower(t)

	gv := findGlobal(t, m, "g")
	if gv.Init.Kind != ir.ConstInt || gv.Init.Int != 7 {
		t.Fatalf("initializer folded to %+v, want 7", gv.Init)
	}
	if gv.Linkage != ir.LinkExternal {
		t.Fatalf("plain definition must have external linkage")
	}
}

func TestTentativeDefinitionGetsCommonLinkage(t *testing.T) {
	f := newFixture(t)
	s := f.s
	s.ActOnVariable(s.Unit.Names.Get("buf"), types.MakeQual(s.Builtins().Int), ast.StorageNone, spanAt(1))
	m := f.lower(t)

	gv := findGlobal(t, m, "buf")
	if gv.Linkage != ir.LinkCommon {
		t.Fatalf("tentative definition linkage = %v, want common", gv.Linkage)
	}
	if gv.Init.Kind != ir.ConstInvalid {
		t.Fatalf("tentative definition carries no initializer, got %+v", gv.Init)
	}
}

func TestStaticLocalBecomesModuleGlobal(t *testing.T) {
	f := newFixture(t)
	s := f.s
	f.declFunc("tick", s.Builtins().Int, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		c := s.ActOnVariable(s.Unit.Names.Get("count"), types.MakeQual(s.Builtins().Int), ast.StorageStatic, spanAt(3))
		s.ActOnVariableInit(c, f.intLit(5))
		ds := s.ActOnDeclStmt([]ast.DeclID{c}, spanAt(3))
		ref := s.ActOnIdentifierExpr(s.Unit.Names.Get("count"), spanAt(4))
		ret := s.ActOnReturn(ref, spanAt(5))
		return s.ActOnCompoundFinish([]ast.StmtID{ds, ret}, spanAt(6))
	})
	m := f.lower(t)

	gv := findGlobal(t, m, "tick.count")
	if gv.Linkage != ir.LinkInternal {
		t.Fatalf("static local linkage = %v, want internal", gv.Linkage)
	}
	if gv.Init.Kind != ir.ConstInt || gv.Init.Int != 5 {
		t.Fatalf("static local initializer = %+v, want 5", gv.Init)
	}
	// No store into the module global: initialization happened at compile
	// time. Stores to SSA slots (the return slot) are fine.
	if hasLine(f.log(t, "tick"), "store G") {
		t.Fatalf("static local must not be stored at runtime: %q", f.log(t, "tick"))
	}
}

func TestStringLiteralsShareOneGlobal(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	charPtr := types.MakeQual(s.Unit.Types.Pointer(types.MakeQual(b.Char), 0))

	a := s.ActOnVariable(s.Unit.Names.Get("a"), charPtr, ast.StorageNone, spanAt(1))
	s.ActOnVariableInit(a, s.ActOnStringLit("hi", false, spanAt(1)))
	c := s.ActOnVariable(s.Unit.Names.Get("c"), charPtr, ast.StorageNone, spanAt(2))
	s.ActOnVariableInit(c, s.ActOnStringLit("hi", false, spanAt(2)))
	m := f.lower(t)

	strGlobals := 0
	for i := range m.Globals {
		if m.Globals[i].Name == ".str" {
			strGlobals++
		}
	}
	if strGlobals != 1 {
		t.Fatalf("identical literals must share one global, have %d", strGlobals)
	}
	av := findGlobal(t, m, "a")
	cv := findGlobal(t, m, "c")
	if av.Init.Kind != ir.ConstGlobalAddr || cv.Init.Kind != ir.ConstGlobalAddr {
		t.Fatalf("pointer initializers must fold to global addresses: %+v %+v", av.Init, cv.Init)
	}
	if av.Init.Global != cv.Init.Global {
		t.Fatalf("both pointers must reference the same literal global")
	}
}

func TestCallReturnsScalar(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	f.declFunc("leaf", b.Int, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		ret := s.ActOnReturn(f.intLit(3), spanAt(3))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(4))
	})
	f.declFunc("root", b.Int, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(5))
		callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("leaf"), spanAt(6))
		call := s.ActOnCall(callee, nil, spanAt(7))
		ret := s.ActOnReturn(call, spanAt(8))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(9))
	})
	m := f.lower(t)

	if !hasLine(f.log(t, "root"), "call") {
		t.Fatalf("no call emitted: %q", f.log(t, "root"))
	}
	if len(m.Funcs) != 2 {
		t.Fatalf("module should carry both functions, have %d", len(m.Funcs))
	}
}

func TestStructReturnUsesHiddenPointer(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()

	tag := s.ActOnTag(types.TagStruct, s.Unit.Names.Get("triple"), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	for _, n := range []string{"x", "y", "z"} {
		s.ActOnField(tag, s.Unit.Names.Get(n), types.MakeQual(b.Long), ast.NoExprID, spanAt(1))
	}
	s.ActOnTagDefinitionFinish(tag)
	rec := s.Unit.Decl(tag).Type

	s.ActOnVariable(s.Unit.Names.Get("unit"), rec, ast.StorageNone, spanAt(2))

	f.declFunc("make_triple", rec.Type, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(3))
		ref := s.ActOnIdentifierExpr(s.Unit.Names.Get("unit"), spanAt(4))
		ret := s.ActOnReturn(ref, spanAt(5))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(6))
	})
	m := f.lower(t)

	fn := findFunc(t, m, "make_triple")
	if !fn.SRet {
		t.Fatalf("24-byte record result must use the sret convention")
	}
	if len(fn.Params) != 1 || fn.Params[0].Name != "sret" {
		t.Fatalf("hidden result parameter missing: %+v", fn.Params)
	}
	log := f.log(t, "make_triple")
	if !hasLine(log, "intrinsic memcpy") {
		t.Fatalf("record return must copy into the result slot: %q", log)
	}
	if log[len(log)-1] != "ret void" {
		t.Fatalf("sret function must return void, got %q", log[len(log)-1])
	}
}

func TestBuiltinLowersToIntrinsic(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	f.declFunc("f", b.Int, []types.QualType{types.MakeQual(b.Int)}, []string{"x"}, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("__builtin_popcount"), spanAt(3))
		arg := s.ActOnIdentifierExpr(s.Unit.Names.Get("x"), spanAt(4))
		call := s.ActOnCall(callee, []ast.ExprID{arg}, spanAt(5))
		ret := s.ActOnReturn(call, spanAt(6))
		return s.ActOnCompoundFinish([]ast.StmtID{ret}, spanAt(7))
	})
	f.lower(t)

	log := f.log(t, "f")
	if !hasLine(log, "intrinsic popcount") {
		t.Fatalf("builtin call must lower to its intrinsic: %q", log)
	}
	if hasLine(log, "call") {
		t.Fatalf("intrinsic builtins must not produce a call: %q", log)
	}
}

func TestComplexLowersAsComponentPair(t *testing.T) {
	f := newFixture(t)
	s := f.s
	b := s.Builtins()
	cd := types.MakeQual(s.Unit.Types.Complex(b.Double))

	f.declFunc("f", b.Void, nil, nil, func() ast.StmtID {
		s.ActOnCompoundStart(spanAt(2))
		z := s.ActOnVariable(s.Unit.Names.Get("z"), cd, ast.StorageNone, spanAt(3))
		s.ActOnVariableInit(z, s.ActOnFloatLit("1.5", 1.5, types.MakeQual(b.Double), spanAt(3)))
		dz := s.ActOnDeclStmt([]ast.DeclID{z}, spanAt(3))

		w := s.ActOnVariable(s.Unit.Names.Get("w"), cd, ast.StorageNone, spanAt(4))
		s.ActOnVariableInit(w, s.ActOnFloatLit("0.0", 0.0, types.MakeQual(b.Double), spanAt(4)))
		dw := s.ActOnDeclStmt([]ast.DeclID{w}, spanAt(4))

		dst := s.ActOnIdentifierExpr(s.Unit.Names.Get("w"), spanAt(5))
		zr := s.ActOnIdentifierExpr(s.Unit.Names.Get("z"), spanAt(5))
		wr := s.ActOnIdentifierExpr(s.Unit.Names.Get("w"), spanAt(5))
		sum := s.ActOnBinary(ast.BinAdd, zr, wr, spanAt(5))
		asg := s.ActOnExprStmt(s.ActOnBinary(ast.BinAssign, dst, sum, spanAt(5)), spanAt(5))
		return s.ActOnCompoundFinish([]ast.StmtID{dz, dw, asg}, spanAt(6))
	})
	f.lower(t)

	log := f.log(t, "f")
	if !hasLine(log, "fieldaddr") {
		t.Fatalf("complex values must address their components: %q", log)
	}
	if got := countLines(log, " add "); got != 2 {
		t.Fatalf("complex addition must lower componentwise, got %d adds: %q", got, log)
	}
	// Each initializer and the assignment write a real and an imaginary slot.
	if got := countLines(log, "store"); got < 6 {
		t.Fatalf("component stores missing, got %d: %q", got, log)
	}
}
