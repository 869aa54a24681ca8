package cfg

import (
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/sema"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

type fixture struct {
	s   *sema.Sema
	bag *diag.Bag
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
	return &fixture{s: s, bag: bag}
}

func spanAt(n uint32) source.Span {
	return source.Span{Start: n, End: n + 1}
}

func (f *fixture) intLit(v uint64) ast.ExprID {
	return f.s.ActOnIntLit(v, types.MakeQual(f.s.Builtins().Int), spanAt(0))
}

// fn declares a function, runs body inside it, and returns its graph.
func (f *fixture) fn(t *testing.T, name string, paramTypes []types.QualType, paramNames []string, body func() []ast.StmtID) *Graph {
	t.Helper()
	s := f.s
	fnType := s.Unit.Types.Function(types.MakeQual(s.Builtins().Int), paramTypes, false)
	var params []ast.DeclID
	for i, pt := range paramTypes {
		params = append(params, s.ActOnParam(s.Unit.Names.Get(paramNames[i]), pt, uint32(i), spanAt(1)))
	}
	id := s.ActOnFunctionDecl(s.Unit.Names.Get(name), fnType, params, ast.StorageNone, spanAt(1))
	s.ActOnStartFunctionBody(id)
	s.ActOnCompoundStart(spanAt(2))
	stmts := body()
	s.ActOnFinishFunctionBody(id, s.ActOnCompoundFinish(stmts, spanAt(3)))
	if f.bag.HasErrors() {
		t.Fatalf("unexpected analysis errors: %v", f.bag.Items())
	}
	return Build(s.Unit, id)
}

// local declares `int name = init` and returns the decl statement.
func (f *fixture) local(name string, init ast.ExprID) (ast.DeclID, ast.StmtID) {
	s := f.s
	d := s.ActOnVariable(s.Unit.Names.Get(name), types.MakeQual(s.Builtins().Int), ast.StorageNone, spanAt(4))
	if init.IsValid() {
		s.ActOnVariableInit(d, init)
	}
	return d, s.ActOnDeclStmt([]ast.DeclID{d}, spanAt(4))
}

func (f *fixture) assign(name string, rhs ast.ExprID, at uint32) ast.StmtID {
	s := f.s
	lhs := s.ActOnIdentifierExpr(s.Unit.Names.Get(name), spanAt(at))
	return s.ActOnExprStmt(s.ActOnBinary(ast.BinAssign, lhs, rhs, spanAt(at)), spanAt(at))
}

func (f *fixture) ref(name string, at uint32) ast.ExprID {
	return f.s.ActOnIdentifierExpr(f.s.Unit.Names.Get(name), spanAt(at))
}

// checkEdges verifies the pred/succ lists mirror each other exactly.
func checkEdges(t *testing.T, g *Graph) {
	t.Helper()
	count := func(list []BlockID, id BlockID) int {
		n := 0
		for _, x := range list {
			if x == id {
				n++
			}
		}
		return n
	}
	for _, b := range g.Blocks {
		for _, s := range b.Succs {
			to := g.Block(s)
			if to == nil {
				t.Fatalf("B%d has successor B%d out of range", b.ID, s)
			}
			if count(b.Succs, s) != count(to.Preds, b.ID) {
				t.Fatalf("edge B%d->B%d not mirrored in preds", b.ID, s)
			}
		}
		for _, p := range b.Preds {
			from := g.Block(p)
			if from == nil {
				t.Fatalf("B%d has predecessor B%d out of range", b.ID, p)
			}
			if count(b.Preds, p) != count(from.Succs, b.ID) {
				t.Fatalf("edge B%d->B%d not mirrored in succs", p, b.ID)
			}
		}
	}
}

func findTerm(t *testing.T, g *Graph, term TermKind) *Block {
	t.Helper()
	for _, b := range g.Blocks {
		if b.Term == term {
			return b
		}
	}
	t.Fatalf("no block with terminator %d", term)
	return nil
}

func TestIfElseEdges(t *testing.T) {
	f := newFixture(t)
	s := f.s
	qt := types.MakeQual(s.Builtins().Int)
	g := f.fn(t, "f", []types.QualType{qt}, []string{"x"}, func() []ast.StmtID {
		then := s.ActOnReturn(f.intLit(1), spanAt(5))
		els := s.ActOnReturn(f.intLit(2), spanAt(6))
		ifs := s.ActOnIf(f.ref("x", 4), then, els, spanAt(4))
		return []ast.StmtID{ifs}
	})

	checkEdges(t, g)
	cond := findTerm(t, g, TermIf)
	if len(cond.Succs) != 2 {
		t.Fatalf("if block has %d successors, want 2", len(cond.Succs))
	}
	for _, succ := range cond.Succs {
		b := g.Block(succ)
		if b.Term != TermReturn {
			t.Fatalf("if arm B%d does not return", succ)
		}
		if len(b.Succs) != 1 || b.Succs[0] != g.Exit {
			t.Fatalf("return block B%d must lead to exit", succ)
		}
	}
	if !g.Block(g.Exit).Reachable {
		t.Fatalf("exit must be reachable")
	}
}

func TestWhileLoopEdges(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("i", f.intLit(0))
		body := f.assign("i", f.intLit(1), 6)
		loop := s.ActOnWhile(f.ref("i", 5), body, spanAt(5))
		ret := s.ActOnReturn(f.ref("i", 7), spanAt(7))
		return []ast.StmtID{decl, loop, ret}
	})

	checkEdges(t, g)
	cond := findTerm(t, g, TermLoop)
	if len(cond.Succs) != 2 {
		t.Fatalf("loop test has %d successors, want 2", len(cond.Succs))
	}
	// The body branches back to the test.
	body := g.Block(cond.Succs[0])
	if len(body.Succs) != 1 || body.Succs[0] != cond.ID {
		t.Fatalf("loop body must return to the test, goes to %v", body.Succs)
	}
}

func TestGotoBackpatch(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("x", f.intLit(0))
		step := f.assign("x", f.intLit(1), 5)
		label := s.ActOnLabel(s.Unit.Names.Get("again"), step, spanAt(5))
		jump := s.ActOnGoto(s.Unit.Names.Get("again"), spanAt(6))
		return []ast.StmtID{decl, label, jump}
	})

	checkEdges(t, g)
	blk := findTerm(t, g, TermGoto)
	if len(blk.Succs) != 1 {
		t.Fatalf("goto block has %d successors, want 1", len(blk.Succs))
	}
	target := g.Block(blk.Succs[0])
	if target.Label == nil || target.Label.String() != "again" {
		t.Fatalf("goto must land on the label block, landed on B%d", target.ID)
	}
	// The label precedes the goto, so the edge is a back edge into
	// the block holding the goto itself.
	if target.ID != blk.ID {
		t.Fatalf("label and goto should share one self-looping block")
	}
	if !blk.Reachable {
		t.Fatalf("the loop is entered from the declaration block")
	}
}

func TestGotoUnknownLabelKeepsNoSuccessor(t *testing.T) {
	f := newFixture(t)
	s := f.s
	fnType := s.Unit.Types.Function(types.MakeQual(s.Builtins().Int), nil, false)
	id := s.ActOnFunctionDecl(s.Unit.Names.Get("f"), fnType, nil, ast.StorageNone, spanAt(1))
	s.ActOnStartFunctionBody(id)
	s.ActOnCompoundStart(spanAt(2))
	jump := s.ActOnGoto(s.Unit.Names.Get("nowhere"), spanAt(3))
	ret := s.ActOnReturn(f.intLit(0), spanAt(4))
	s.ActOnFinishFunctionBody(id, s.ActOnCompoundFinish([]ast.StmtID{jump, ret}, spanAt(5)))
	g := Build(s.Unit, id)

	checkEdges(t, g)
	blk := findTerm(t, g, TermGoto)
	if len(blk.Succs) != 0 {
		t.Fatalf("goto with no target has successors %v, want none", blk.Succs)
	}
}

func TestCodeAfterReturnIsRetained(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("x", f.intLit(0))
		ret := s.ActOnReturn(f.intLit(0), spanAt(5))
		dead := f.assign("x", f.intLit(1), 6)
		return []ast.StmtID{decl, ret, dead}
	})

	checkEdges(t, g)
	var deadBlk *Block
	for _, b := range g.Blocks {
		if !b.Reachable && len(b.Elems) > 0 {
			deadBlk = b
		}
	}
	if deadBlk == nil {
		t.Fatalf("statement after return must survive as an unmarked block")
	}
	if len(deadBlk.Preds) != 0 {
		t.Fatalf("unreachable block has predecessors %v", deadBlk.Preds)
	}

	bag := diag.NewBag(8)
	ReportUnreachable(s.Unit, g, diag.BagReporter{Bag: bag})
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.FlowUnreachableCode {
			found = true
		}
	}
	if !found {
		t.Fatalf("unreachable code not reported: %v", bag.Items())
	}
}

func TestSwitchCaseEdges(t *testing.T) {
	f := newFixture(t)
	s := f.s
	qt := types.MakeQual(s.Builtins().Int)
	g := f.fn(t, "f", []types.QualType{qt}, []string{"x"}, func() []ast.StmtID {
		sw := s.ActOnSwitchStart(f.ref("x", 4), spanAt(4))
		s.ActOnCompoundStart(spanAt(4))
		c1 := s.ActOnCase(f.intLit(1), ast.NoExprID, s.ActOnBreak(spanAt(5)), spanAt(5))
		c2 := s.ActOnCase(f.intLit(2), ast.NoExprID, s.ActOnBreak(spanAt(6)), spanAt(6))
		def := s.ActOnDefault(s.ActOnBreak(spanAt(7)), spanAt(7))
		body := s.ActOnCompoundFinish([]ast.StmtID{c1, c2, def}, spanAt(8))
		ret := s.ActOnReturn(f.intLit(0), spanAt(9))
		return []ast.StmtID{s.ActOnSwitchFinish(sw, body), ret}
	})

	checkEdges(t, g)
	sw := findTerm(t, g, TermSwitch)
	if len(sw.Succs) != 3 {
		t.Fatalf("switch has %d successors, want 3", len(sw.Succs))
	}
	for _, succ := range sw.Succs {
		if !g.Block(succ).Reachable {
			t.Fatalf("case block B%d unreachable", succ)
		}
	}
}

func TestForLoopIncrementBlock(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("i", f.intLit(0))
		inc := s.ActOnBinary(ast.BinAssign, f.ref("i", 5),
			s.ActOnBinary(ast.BinAdd, f.ref("i", 5), f.intLit(1), spanAt(5)), spanAt(5))
		s.LoopEnter()
		body := s.ActOnContinue(spanAt(6))
		s.LoopExit()
		loop := s.ActOnFor(ast.NoStmtID, f.ref("i", 5), inc, body, spanAt(5))
		ret := s.ActOnReturn(f.ref("i", 7), spanAt(7))
		return []ast.StmtID{decl, loop, ret}
	})

	checkEdges(t, g)
	cond := findTerm(t, g, TermLoop)
	cont := findTerm(t, g, TermContinue)
	// continue runs the increment, not the test directly.
	incBlk := g.Block(cont.Succs[0])
	if incBlk.ID == cond.ID {
		t.Fatalf("continue must route through the increment block")
	}
	if len(incBlk.Elems) != 1 || !incBlk.Elems[0].Expr.IsValid() {
		t.Fatalf("increment block must hold the increment expression")
	}
	if len(incBlk.Succs) != 1 || incBlk.Succs[0] != cond.ID {
		t.Fatalf("increment must flow into the test")
	}
}
