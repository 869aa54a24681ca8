package cfg

import (
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
)

func deadStores(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Items() {
		if d.Code == diag.FlowDeadStore {
			out = append(out, d.Message)
		}
	}
	return out
}

func TestOverwrittenStoreIsDead(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("x", ast.NoExprID)
		first := f.assign("x", f.intLit(1), 5)
		second := f.assign("x", f.intLit(2), 6)
		ret := s.ActOnReturn(f.ref("x", 7), spanAt(7))
		return []ast.StmtID{decl, first, second, ret}
	})

	bag := diag.NewBag(8)
	c := &DeadStoreChecker{Unit: s.Unit, Reporter: diag.BagReporter{Bag: bag}}
	c.Check(g)

	got := deadStores(bag)
	if len(got) != 1 {
		t.Fatalf("want exactly one dead store, got %v", got)
	}
	if got[0] != "value stored to 'x' is never read" {
		t.Fatalf("unexpected message %q", got[0])
	}
}

func TestDeadInitialization(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("x", f.intLit(1))
		over := f.assign("x", f.intLit(2), 5)
		ret := s.ActOnReturn(f.ref("x", 6), spanAt(6))
		return []ast.StmtID{decl, over, ret}
	})

	bag := diag.NewBag(8)
	c := &DeadStoreChecker{Unit: s.Unit, Reporter: diag.BagReporter{Bag: bag}}
	c.Check(g)

	got := deadStores(bag)
	if len(got) != 1 {
		t.Fatalf("want one report for the initialization, got %v", got)
	}
	if got[0] != "value stored to 'x' during its initialization is never read" {
		t.Fatalf("unexpected message %q", got[0])
	}
}

func TestStoreReadInBranchIsLive(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, declC := f.local("c", f.intLit(0))
		_, declX := f.local("x", ast.NoExprID)
		store := f.assign("x", f.intLit(1), 5)
		then := s.ActOnReturn(f.ref("x", 6), spanAt(6))
		ifs := s.ActOnIf(f.ref("c", 5), then, ast.NoStmtID, spanAt(5))
		ret := s.ActOnReturn(f.intLit(0), spanAt(7))
		return []ast.StmtID{declC, declX, store, ifs, ret}
	})

	bag := diag.NewBag(8)
	c := &DeadStoreChecker{Unit: s.Unit, Reporter: diag.BagReporter{Bag: bag}}
	c.Check(g)

	if got := deadStores(bag); len(got) != 0 {
		t.Fatalf("store read on one path must stay silent, got %v", got)
	}
}

func TestPragmaUnusedSuppresses(t *testing.T) {
	f := newFixture(t)
	s := f.s
	var target ast.DeclID
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		d, decl := f.local("scratch", ast.NoExprID)
		target = d
		store := f.assign("scratch", f.intLit(1), 5)
		ret := s.ActOnReturn(f.intLit(0), spanAt(6))
		return []ast.StmtID{decl, store, ret}
	})

	bag := diag.NewBag(8)
	c := &DeadStoreChecker{
		Unit:     s.Unit,
		Reporter: diag.BagReporter{Bag: bag},
		Ignore:   func(id ast.DeclID) bool { return id == target },
	}
	c.Check(g)

	if got := deadStores(bag); len(got) != 0 {
		t.Fatalf("ignored variable must stay silent, got %v", got)
	}
}

func TestAddressTakenIsExempt(t *testing.T) {
	f := newFixture(t)
	s := f.s
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		_, decl := f.local("x", ast.NoExprID)
		store := f.assign("x", f.intLit(1), 5)
		addr := s.ActOnUnary(ast.UnAddrOf, f.ref("x", 6), spanAt(6))
		use := s.ActOnExprStmt(addr, spanAt(6))
		ret := s.ActOnReturn(f.intLit(0), spanAt(7))
		return []ast.StmtID{decl, store, use, ret}
	})

	bag := diag.NewBag(8)
	c := &DeadStoreChecker{Unit: s.Unit, Reporter: diag.BagReporter{Bag: bag}}
	c.Check(g)

	if got := deadStores(bag); len(got) != 0 {
		t.Fatalf("address-taken variable must stay silent, got %v", got)
	}
}

func TestLivenessAcrossLoop(t *testing.T) {
	f := newFixture(t)
	s := f.s
	var x ast.DeclID
	g := f.fn(t, "f", nil, nil, func() []ast.StmtID {
		d, decl := f.local("x", f.intLit(0))
		x = d
		body := f.assign("x", s.ActOnBinary(ast.BinAdd, f.ref("x", 6), f.intLit(1), spanAt(6)), 6)
		loop := s.ActOnWhile(f.ref("x", 5), body, spanAt(5))
		ret := s.ActOnReturn(f.intLit(0), spanAt(7))
		return []ast.StmtID{decl, loop, ret}
	})

	lv := Liveness{Unit: s.Unit}
	res := Solve[DeclSet](g, lv)
	cond := findTerm(t, g, TermLoop)
	if !res.Out[cond.ID].Has(x) {
		t.Fatalf("x must be live around the loop back edge")
	}
}
