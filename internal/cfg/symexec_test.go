package cfg

import (
	"testing"

	"cinder/internal/ast"
	"cinder/internal/types"
)

// symFixture declares an int variable and returns an expression
// builder bound to it.
func symFixture(t *testing.T) (*fixture, *Executor) {
	t.Helper()
	f := newFixture(t)
	s := f.s
	s.ActOnVariable(s.Unit.Names.Get("x"), types.MakeQual(s.Builtins().Int), ast.StorageNone, spanAt(1))
	return f, NewExecutor(s.Unit)
}

func (f *fixture) cmp(op ast.BinaryOp, name string, v uint64) ast.ExprID {
	return f.s.ActOnBinary(op, f.ref(name, 2), f.intLit(v), spanAt(2))
}

func TestAssumeEqualThenNotEqualIsInfeasible(t *testing.T) {
	f, x := symFixture(t)
	eq := f.cmp(ast.BinEQ, "x", 5)
	ne := f.cmp(ast.BinNE, "x", 5)

	st, ok := x.Assume(NewState(), eq, true)
	if !ok {
		t.Fatalf("x == 5 must be feasible on a fresh state")
	}
	if _, ok = x.Assume(st, ne, true); ok {
		t.Fatalf("x != 5 must be infeasible after assuming x == 5")
	}
}

func TestAssumeRefinesToConstant(t *testing.T) {
	f, x := symFixture(t)
	eq := f.cmp(ast.BinEQ, "x", 7)

	st, ok := x.Assume(NewState(), eq, true)
	if !ok {
		t.Fatalf("x == 7 must be feasible")
	}
	v := x.Eval(&st, f.ref("x", 3))
	if v.Kind != SymSymbol {
		t.Fatalf("reads of x stay symbolic, got kind %d", v.Kind)
	}
	got, pinned := st.CM.value(v.Sym)
	if !pinned || got != 7 {
		t.Fatalf("constraint must pin x to 7, got (%d, %v)", got, pinned)
	}
}

func TestAssumeNegatedBranch(t *testing.T) {
	f, x := symFixture(t)
	eq := f.cmp(ast.BinEQ, "x", 3)

	// The false edge of (x == 3) means x != 3.
	st, ok := x.Assume(NewState(), eq, false)
	if !ok {
		t.Fatalf("the false branch of x == 3 is feasible")
	}
	if _, ok = x.Assume(st, eq, true); ok {
		t.Fatalf("x == 3 must be infeasible on the false branch")
	}
}

func TestAssumeConstantCondition(t *testing.T) {
	f, x := symFixture(t)
	if _, ok := x.Assume(NewState(), f.intLit(0), true); ok {
		t.Fatalf("the true branch of a zero condition is infeasible")
	}
	if _, ok := x.Assume(NewState(), f.intLit(1), true); !ok {
		t.Fatalf("the true branch of a nonzero condition is feasible")
	}
}

func TestAssumeNotFlipsTruth(t *testing.T) {
	f, x := symFixture(t)
	not := f.s.ActOnUnary(ast.UnLNot, f.cmp(ast.BinEQ, "x", 2), spanAt(3))

	st, ok := x.Assume(NewState(), not, true)
	if !ok {
		t.Fatalf("!(x == 2) must be feasible")
	}
	if _, ok = x.Assume(st, f.cmp(ast.BinEQ, "x", 2), true); ok {
		t.Fatalf("x == 2 contradicts !(x == 2)")
	}
}

func TestAssumeDoesNotMutateInput(t *testing.T) {
	f, x := symFixture(t)
	base := NewState()
	eq := f.cmp(ast.BinEQ, "x", 1)
	ne := f.cmp(ast.BinNE, "x", 1)

	then, ok1 := x.Assume(base, eq, true)
	els, ok2 := x.Assume(base, ne, true)
	if !ok1 || !ok2 {
		t.Fatalf("both branch states must be feasible from the base")
	}
	// Each branch refines its own copy.
	if _, ok := x.Assume(then, ne, true); ok {
		t.Fatalf("then-state leaked")
	}
	if _, ok := x.Assume(els, eq, true); ok {
		t.Fatalf("else-state leaked")
	}
}

func TestRemoveDeadReapsSymbols(t *testing.T) {
	f, x := symFixture(t)
	st := NewState()
	// Materialize a symbol for x and pin it.
	st2, ok := x.Assume(st, f.cmp(ast.BinEQ, "x", 9), true)
	if !ok {
		t.Fatalf("x == 9 must be feasible")
	}
	if len(st2.Store) != 1 {
		t.Fatalf("the read of x must leave a store binding")
	}

	var dead []SymbolID
	st3 := st2.RemoveDead(DeclSet{}, func(sym SymbolID) { dead = append(dead, sym) })
	if len(st3.Store) != 0 {
		t.Fatalf("bindings of dead variables must drop")
	}
	if len(dead) != 1 {
		t.Fatalf("the unreferenced symbol must be reported, got %v", dead)
	}
	if len(st3.CM) != 0 {
		t.Fatalf("constraints on dead symbols must drop")
	}
}
