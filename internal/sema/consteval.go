package sema

import (
	"math/big"

	"cinder/internal/ast"
	"cinder/internal/diag"
)

// ConstKind classifies an evaluated constant.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstInt
	ConstFloat
	ConstNullPointer
)

// ConstValue is the result of constant evaluation. Floats use big.Float so
// cross-compilation does not depend on the host's long double.
type ConstValue struct {
	Kind  ConstKind
	Int   int64
	Float *big.Float
	// SideEffects marks expressions that computed a value but performed
	// assignments or calls along the way; such expressions are not
	// constants.
	SideEffects bool
}

// IsConst reports a usable compile-time constant.
func (v ConstValue) IsConst() bool {
	return v.Kind != ConstNone && !v.SideEffects
}

const evalDepthLimit = 512

// Evaluate runs the bounded recursive evaluator over an expression.
// Diagnostics (overflow) go to the reporter; an unevaluable expression
// returns Kind ConstNone without a diagnostic so callers can decide whether
// a constant was required.
func (s *Sema) Evaluate(id ast.ExprID) ConstValue {
	return s.eval(id, 0)
}

// RequireIntConst evaluates and diagnoses when the expression is not an
// integer constant; used for array bounds, bit-field widths, case labels,
// and enumerator values.
func (s *Sema) RequireIntConst(id ast.ExprID, what string) (int64, bool) {
	e := s.Unit.Expr(id)
	if e == nil {
		return 0, false
	}
	v := s.eval(id, 0)
	if v.SideEffects {
		diag.ReportError(s.Reporter, diag.SemaConstExprSideEffects, e.Span,
			what+" is not a constant expression").Emit()
		return 0, false
	}
	switch v.Kind {
	case ConstInt:
		return v.Int, true
	case ConstFloat:
		i, _ := v.Float.Int64()
		return i, true
	default:
		diag.ReportError(s.Reporter, diag.SemaConstExprRequired, e.Span,
			what+" must be a constant expression").Emit()
		return 0, false
	}
}

func (s *Sema) eval(id ast.ExprID, depth int) ConstValue {
	if depth > evalDepthLimit {
		return ConstValue{}
	}
	e := s.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ConstValue{}
	}
	switch e.Kind {
	case ast.ExprIntLit, ast.ExprCharLit:
		v := int64(e.Int.Value)
		if e.Int.Negative {
			v = -v
		}
		return ConstValue{Kind: ConstInt, Int: v}

	case ast.ExprFloatLit:
		f, _, err := big.ParseFloat(e.Float.Text, 10, 128, big.ToNearestEven)
		if err != nil {
			f = big.NewFloat(e.Float.Value)
		}
		return ConstValue{Kind: ConstFloat, Float: f}

	case ast.ExprParen:
		return s.eval(e.Paren.Operand, depth+1)

	case ast.ExprDeclRef:
		d := s.Unit.Decl(e.Ref.Decl)
		if d != nil && d.Kind == ast.DeclEnumConstant {
			return ConstValue{Kind: ConstInt, Int: d.EnumConst.Value}
		}
		return ConstValue{}

	case ast.ExprUnary:
		return s.evalUnary(e, depth)

	case ast.ExprBinary:
		return s.evalBinary(e, depth)

	case ast.ExprConditional:
		cond := s.eval(e.Cond.Cond, depth+1)
		if cond.Kind != ConstInt {
			return ConstValue{}
		}
		var v ConstValue
		if cond.Int != 0 {
			v = s.eval(e.Cond.Then, depth+1)
		} else {
			v = s.eval(e.Cond.Else, depth+1)
		}
		v.SideEffects = v.SideEffects || cond.SideEffects
		return v

	case ast.ExprCast, ast.ExprImplicitCast:
		return s.evalCast(e, depth)

	case ast.ExprSizeOf:
		return s.evalSizeOf(e)

	case ast.ExprCall:
		// A call may still fold (constant builtins); anything else has
		// side effects.
		if e.Call.Builtin != 0 {
			if v, ok := s.foldBuiltin(e); ok {
				return v
			}
		}
		return ConstValue{SideEffects: true}

	default:
		return ConstValue{}
	}
}

func (s *Sema) evalUnary(e *ast.Expr, depth int) ConstValue {
	op := s.eval(e.Unary.Operand, depth+1)
	switch e.Unary.Op {
	case ast.UnPlus:
		return op
	case ast.UnMinus:
		switch op.Kind {
		case ConstInt:
			if op.Int == minInt64 {
				s.overflow(e)
				return ConstValue{SideEffects: op.SideEffects}
			}
			op.Int = -op.Int
			return op
		case ConstFloat:
			op.Float = new(big.Float).Neg(op.Float)
			return op
		}
	case ast.UnNot:
		if op.Kind == ConstInt {
			op.Int = ^op.Int
			return op
		}
	case ast.UnLNot:
		if op.Kind == ConstInt {
			op.Int = b2i(op.Int == 0)
			return op
		}
		if op.Kind == ConstFloat {
			return ConstValue{Kind: ConstInt, Int: b2i(op.Float.Sign() == 0), SideEffects: op.SideEffects}
		}
	case ast.UnPreInc, ast.UnPreDec, ast.UnPostInc, ast.UnPostDec:
		return ConstValue{SideEffects: true}
	}
	return ConstValue{SideEffects: op.SideEffects}
}

const minInt64 = -1 << 63

func (s *Sema) evalBinary(e *ast.Expr, depth int) ConstValue {
	if e.Binary.Op.IsAssignment() {
		return ConstValue{SideEffects: true}
	}
	l := s.eval(e.Binary.Left, depth+1)

	// Short-circuit operators only evaluate the right side when needed.
	if e.Binary.Op == ast.BinLAnd || e.Binary.Op == ast.BinLOr {
		if l.Kind != ConstInt {
			return ConstValue{SideEffects: l.SideEffects}
		}
		if e.Binary.Op == ast.BinLAnd && l.Int == 0 {
			return ConstValue{Kind: ConstInt, Int: 0, SideEffects: l.SideEffects}
		}
		if e.Binary.Op == ast.BinLOr && l.Int != 0 {
			return ConstValue{Kind: ConstInt, Int: 1, SideEffects: l.SideEffects}
		}
		r := s.eval(e.Binary.Right, depth+1)
		if r.Kind != ConstInt {
			return ConstValue{SideEffects: l.SideEffects || r.SideEffects}
		}
		return ConstValue{Kind: ConstInt, Int: b2i(r.Int != 0), SideEffects: l.SideEffects || r.SideEffects}
	}

	r := s.eval(e.Binary.Right, depth+1)
	se := l.SideEffects || r.SideEffects
	if e.Binary.Op == ast.BinComma {
		r.SideEffects = true
		return r
	}
	if l.Kind == ConstNone || r.Kind == ConstNone {
		return ConstValue{SideEffects: se}
	}

	if l.Kind == ConstFloat || r.Kind == ConstFloat {
		return s.evalFloatBinary(e, toFloat(l), toFloat(r), se)
	}
	return s.evalIntBinary(e, l.Int, r.Int, se)
}

func (s *Sema) evalIntBinary(e *ast.Expr, l, r int64, se bool) ConstValue {
	ok := true
	var v int64
	switch e.Binary.Op {
	case ast.BinAdd:
		v, ok = addOverflow(l, r)
	case ast.BinSub:
		v, ok = subOverflow(l, r)
	case ast.BinMul:
		v, ok = mulOverflow(l, r)
	case ast.BinDiv:
		if r == 0 || (l == minInt64 && r == -1) {
			ok = false
		} else {
			v = l / r
		}
	case ast.BinRem:
		if r == 0 || (l == minInt64 && r == -1) {
			ok = false
		} else {
			v = l % r
		}
	case ast.BinShl:
		if r < 0 || r >= 64 {
			ok = false
		} else {
			v = l << uint(r)
		}
	case ast.BinShr:
		if r < 0 || r >= 64 {
			ok = false
		} else {
			v = l >> uint(r)
		}
	case ast.BinAnd:
		v = l & r
	case ast.BinOr:
		v = l | r
	case ast.BinXor:
		v = l ^ r
	case ast.BinLT:
		v = b2i(l < r)
	case ast.BinGT:
		v = b2i(l > r)
	case ast.BinLE:
		v = b2i(l <= r)
	case ast.BinGE:
		v = b2i(l >= r)
	case ast.BinEQ:
		v = b2i(l == r)
	case ast.BinNE:
		v = b2i(l != r)
	default:
		return ConstValue{SideEffects: se}
	}
	if !ok {
		s.overflow(e)
		return ConstValue{SideEffects: se}
	}
	return ConstValue{Kind: ConstInt, Int: v, SideEffects: se}
}

func (s *Sema) evalFloatBinary(e *ast.Expr, l, r *big.Float, se bool) ConstValue {
	res := new(big.Float).SetPrec(128)
	switch e.Binary.Op {
	case ast.BinAdd:
		res.Add(l, r)
	case ast.BinSub:
		res.Sub(l, r)
	case ast.BinMul:
		res.Mul(l, r)
	case ast.BinDiv:
		if r.Sign() == 0 {
			return ConstValue{SideEffects: se}
		}
		res.Quo(l, r)
	case ast.BinLT:
		return ConstValue{Kind: ConstInt, Int: b2i(l.Cmp(r) < 0), SideEffects: se}
	case ast.BinGT:
		return ConstValue{Kind: ConstInt, Int: b2i(l.Cmp(r) > 0), SideEffects: se}
	case ast.BinLE:
		return ConstValue{Kind: ConstInt, Int: b2i(l.Cmp(r) <= 0), SideEffects: se}
	case ast.BinGE:
		return ConstValue{Kind: ConstInt, Int: b2i(l.Cmp(r) >= 0), SideEffects: se}
	case ast.BinEQ:
		return ConstValue{Kind: ConstInt, Int: b2i(l.Cmp(r) == 0), SideEffects: se}
	case ast.BinNE:
		return ConstValue{Kind: ConstInt, Int: b2i(l.Cmp(r) != 0), SideEffects: se}
	default:
		return ConstValue{SideEffects: se}
	}
	return ConstValue{Kind: ConstFloat, Float: res, SideEffects: se}
}

func (s *Sema) evalCast(e *ast.Expr, depth int) ConstValue {
	op := s.eval(e.Cast.Operand, depth+1)
	in := s.Unit.Types
	to := in.CanonicalQual(e.Type)

	switch {
	case in.IsInteger(to.Type):
		switch op.Kind {
		case ConstInt:
			return op
		case ConstFloat:
			i, _ := op.Float.Int64()
			return ConstValue{Kind: ConstInt, Int: i, SideEffects: op.SideEffects}
		}
	case in.IsFloating(to.Type):
		switch op.Kind {
		case ConstFloat:
			return op
		case ConstInt:
			return ConstValue{Kind: ConstFloat, Float: new(big.Float).SetInt64(op.Int), SideEffects: op.SideEffects}
		}
	case in.IsPointer(to.Type):
		if op.Kind == ConstInt && op.Int == 0 {
			return ConstValue{Kind: ConstNullPointer, SideEffects: op.SideEffects}
		}
		if op.Kind == ConstNullPointer {
			return op
		}
	}
	return ConstValue{SideEffects: op.SideEffects}
}

func (s *Sema) evalSizeOf(e *ast.Expr) ConstValue {
	in := s.Unit.Types
	qt := e.Size.OfType
	if e.Size.Operand.IsValid() {
		if op := s.Unit.Expr(e.Size.Operand); op != nil {
			qt = op.Type
		}
	}
	if qt.IsNull() {
		return ConstValue{}
	}
	info, err := s.Layout.Of(in.Canonical(qt.Type))
	if err != nil {
		return ConstValue{}
	}
	if e.Size.IsAlignOf {
		return ConstValue{Kind: ConstInt, Int: int64(info.Align / 8)}
	}
	return ConstValue{Kind: ConstInt, Int: int64(info.Size / 8)}
}

func (s *Sema) overflow(e *ast.Expr) {
	diag.ReportWarning(s.Reporter, diag.SemaConstExprOverflow, e.Span,
		"overflow in constant expression").Emit()
}

func toFloat(v ConstValue) *big.Float {
	if v.Kind == ConstFloat {
		return v.Float
	}
	return new(big.Float).SetInt64(v.Int)
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func addOverflow(a, b int64) (int64, bool) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, false
	}
	return s, true
}

func subOverflow(a, b int64) (int64, bool) {
	s := a - b
	if (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0) {
		return 0, false
	}
	return s, true
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}
