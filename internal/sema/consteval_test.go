package sema

import (
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/types"
)

func TestEvaluateArithmetic(t *testing.T) {
	s, _ := newTestSema(t, LangC)

	sum := s.ActOnBinary(ast.BinAdd, intLit(s, 1), intLit(s, 2), spanAt(1))
	prod := s.ActOnBinary(ast.BinMul, s.ActOnParen(sum, spanAt(2)), intLit(s, 3), spanAt(3))
	if v := s.Evaluate(prod); v.Kind != ConstInt || v.Int != 9 {
		t.Fatalf("(1+2)*3 = %+v, want 9", v)
	}

	shifted := s.ActOnBinary(ast.BinShl, intLit(s, 1), intLit(s, 10), spanAt(4))
	if v := s.Evaluate(shifted); v.Int != 1024 {
		t.Fatalf("1<<10 = %+v, want 1024", v)
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	s, _ := newTestSema(t, LangC)

	// 0 && (x = 1): the right side never evaluates, so no side effects leak.
	x := s.Unit.Names.Get("x")
	s.ActOnVariable(x, types.MakeQual(s.Builtins().Int), ast.StorageNone, spanAt(1))
	assign := s.ActOnBinary(ast.BinAssign, s.ActOnIdentifierExpr(x, spanAt(2)), intLit(s, 1), spanAt(3))
	e := s.ActOnBinary(ast.BinLAnd, intLit(s, 0), assign, spanAt(4))

	v := s.Evaluate(e)
	if v.Kind != ConstInt || v.Int != 0 || v.SideEffects {
		t.Fatalf("0 && (x=1) = %+v, want constant 0 without side effects", v)
	}
}

func TestEvaluateOverflowWarns(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	ll := types.MakeQual(s.Builtins().LongLong)

	big := s.ActOnIntLit(1<<63-1, ll, spanAt(1))
	one := s.ActOnIntLit(1, ll, spanAt(2))
	e := s.ActOnBinary(ast.BinAdd, big, one, spanAt(3))

	v := s.Evaluate(e)
	if v.Kind == ConstInt {
		t.Fatalf("overflowing add must not produce a value, got %+v", v)
	}
	if !hasCode(bag, diag.SemaConstExprOverflow) {
		t.Fatalf("want overflow warning, got %v", bag.Items())
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	s, _ := newTestSema(t, LangC)
	e := s.ActOnBinary(ast.BinDiv, intLit(s, 10), intLit(s, 0), spanAt(1))
	if v := s.Evaluate(e); v.Kind == ConstInt {
		t.Fatalf("division by zero must not fold, got %+v", v)
	}
}

func TestEvaluateSizeOf(t *testing.T) {
	s, _ := newTestSema(t, LangC)
	b := s.Builtins()

	e := s.ActOnSizeOf(types.MakeQual(b.Int), ast.NoExprID, false, spanAt(1))
	if v := s.Evaluate(e); v.Kind != ConstInt || v.Int != 4 {
		t.Fatalf("sizeof(int) = %+v, want 4", v)
	}
	a := s.ActOnSizeOf(types.MakeQual(b.Double), ast.NoExprID, true, spanAt(2))
	if v := s.Evaluate(a); v.Int != 8 {
		t.Fatalf("alignof(double) = %+v, want 8", v)
	}
}

func TestEvaluateConditional(t *testing.T) {
	s, _ := newTestSema(t, LangC)
	e := s.ActOnConditional(intLit(s, 1), intLit(s, 42), intLit(s, 7), spanAt(1))
	if v := s.Evaluate(e); v.Kind != ConstInt || v.Int != 42 {
		t.Fatalf("1 ? 42 : 7 = %+v, want 42", v)
	}
}

func TestRequireIntConstRejectsCalls(t *testing.T) {
	s, bag := newTestSema(t, LangC)
	b := s.Builtins()
	in := s.Unit.Types

	fnType := in.Function(types.MakeQual(b.Int), nil, false)
	s.ActOnFunctionDecl(s.Unit.Names.Get("rnd"), fnType, nil, ast.StorageNone, spanAt(1))
	callee := s.ActOnIdentifierExpr(s.Unit.Names.Get("rnd"), spanAt(2))
	call := s.ActOnCall(callee, nil, spanAt(3))

	if _, ok := s.RequireIntConst(call, "array bound"); ok {
		t.Fatalf("call must not be a constant expression")
	}
	if !hasCode(bag, diag.SemaConstExprSideEffects) {
		t.Fatalf("want side-effect diagnostic, got %v", bag.Items())
	}
}
