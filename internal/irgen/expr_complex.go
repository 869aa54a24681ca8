package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/ir"
	"cinder/internal/source"
	"cinder/internal/types"
)

// A _Complex value lives in memory as a two-element struct of its element
// type: the real part at field 0, the imaginary part at field 1. Loads and
// stores go through the component addresses; arithmetic works on the
// component pairs.

func (l *lowering) complexElem(canon types.TypeID) types.TypeID {
	tys := l.g.Unit.Types
	tt, ok := tys.Lookup(canon)
	if !ok || tt.Kind != types.KindComplex {
		return types.NoTypeID
	}
	return tys.Canonical(tt.Elem.Type)
}

func (l *lowering) complexPartAddrs(addr ir.ValueID, canon types.TypeID, span source.Span) (re, im ir.ValueID) {
	elem := l.complexElem(canon)
	ptr := l.g.ptrTo(types.MakeQual(elem))
	re = l.b.FieldAddr(ptr, addr, 0, span)
	im = l.b.FieldAddr(ptr, addr, 1, span)
	return re, im
}

func (l *lowering) complexLoad(addr ir.ValueID, canon types.TypeID, span source.Span) (re, im ir.ValueID) {
	elem := l.complexElem(canon)
	reAddr, imAddr := l.complexPartAddrs(addr, canon, span)
	re = l.b.Load(elem, reAddr, false, span)
	im = l.b.Load(elem, imAddr, false, span)
	return re, im
}

func (l *lowering) complexStore(addr ir.ValueID, canon types.TypeID, re, im ir.ValueID, span source.Span) {
	reAddr, imAddr := l.complexPartAddrs(addr, canon, span)
	l.b.Store(reAddr, re, false, span)
	l.b.Store(imAddr, im, false, span)
}

// complexValue lowers a complex-typed expression to its component pair.
func (l *lowering) complexValue(id ast.ExprID) (re, im ir.ValueID) {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.NoValueID, ir.NoValueID
	}
	canon := l.canonOf(id)

	switch e.Kind {
	case ast.ExprDeclRef, ast.ExprMember, ast.ExprIndex:
		ref := l.lvalue(id)
		return l.complexLoad(ref.addr, canon, e.Span)
	case ast.ExprParen:
		return l.complexValue(e.Paren.Operand)
	case ast.ExprUnary:
		switch e.Unary.Op {
		case ast.UnDeref:
			ref := l.lvalue(id)
			return l.complexLoad(ref.addr, canon, e.Span)
		case ast.UnMinus:
			re, im = l.complexValue(e.Unary.Operand)
			elem := l.complexElem(canon)
			float := l.g.Unit.Types.IsFloating(elem)
			zero := l.complexZero(elem, float)
			re = l.b.Bin(ir.BinSub, elem, zero, re, float, false, e.Span)
			im = l.b.Bin(ir.BinSub, elem, zero, im, float, false, e.Span)
			return re, im
		case ast.UnPlus:
			return l.complexValue(e.Unary.Operand)
		}
	case ast.ExprCast, ast.ExprImplicitCast:
		elem := l.complexElem(canon)
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastLValueToRValue:
			return l.complexValue(e.Cast.Operand)
		case ast.CastRealToComplex:
			// The imaginary part of a widened real is zero.
			src := l.canonOf(e.Cast.Operand)
			v := l.numConvert(l.scalar(e.Cast.Operand), src, elem, e.Span)
			return v, l.complexZero(elem, l.g.Unit.Types.IsFloating(elem))
		case ast.CastFloating, ast.CastIntegral:
			src := l.complexElem(l.canonOf(e.Cast.Operand))
			re, im = l.complexValue(e.Cast.Operand)
			re = l.numConvert(re, src, elem, e.Span)
			im = l.numConvert(im, src, elem, e.Span)
			return re, im
		}
	case ast.ExprBinary:
		return l.complexBinary(e, canon)
	}
	diag.ReportError(l.g.Reporter, diag.IRInvalidDeclReached, e.Span,
		"expression cannot be lowered as a complex value").Emit()
	return ir.NoValueID, ir.NoValueID
}

// numConvert widens or narrows a scalar between arithmetic representations.
func (l *lowering) numConvert(v ir.ValueID, src, dst types.TypeID, span source.Span) ir.ValueID {
	tys := l.g.Unit.Types
	if src == dst || !v.IsValid() {
		return v
	}
	switch {
	case tys.IsFloating(src) && tys.IsFloating(dst):
		srcInfo, _ := l.g.Layout.Of(src)
		dstInfo, _ := l.g.Layout.Of(dst)
		switch {
		case dstInfo.Size > srcInfo.Size:
			return l.b.Cast(ir.CastFPExt, dst, v, span)
		case dstInfo.Size < srcInfo.Size:
			return l.b.Cast(ir.CastFPTrunc, dst, v, span)
		}
		return v
	case tys.IsFloating(dst):
		if l.isUnsigned(src) {
			return l.b.Cast(ir.CastUIToFP, dst, v, span)
		}
		return l.b.Cast(ir.CastSIToFP, dst, v, span)
	case tys.IsFloating(src):
		if l.isUnsigned(dst) {
			return l.b.Cast(ir.CastFPToUI, dst, v, span)
		}
		return l.b.Cast(ir.CastFPToSI, dst, v, span)
	}
	return l.intConvert(v, src, dst, span)
}

func (l *lowering) complexZero(elem types.TypeID, float bool) ir.ValueID {
	if float {
		return l.b.ConstFloat(elem, 0)
	}
	return l.b.ConstInt(elem, 0)
}

func (l *lowering) complexBinary(e *ast.Expr, canon types.TypeID) (re, im ir.ValueID) {
	elem := l.complexElem(canon)
	float := l.g.Unit.Types.IsFloating(elem)

	switch e.Binary.Op {
	case ast.BinAssign:
		return l.complexAssign(e, canon)
	case ast.BinComma:
		l.exprForEffect(e.Binary.Left)
		return l.complexValue(e.Binary.Right)
	case ast.BinAdd, ast.BinSub:
		op := ir.BinAdd
		if e.Binary.Op == ast.BinSub {
			op = ir.BinSub
		}
		lr, li := l.complexValue(e.Binary.Left)
		rr, ri := l.complexValue(e.Binary.Right)
		re = l.b.Bin(op, elem, lr, rr, float, false, e.Span)
		im = l.b.Bin(op, elem, li, ri, float, false, e.Span)
		return re, im
	case ast.BinMul:
		// (a+bi)(c+di) = (ac-bd) + (ad+bc)i
		a, b := l.complexValue(e.Binary.Left)
		c, d := l.complexValue(e.Binary.Right)
		ac := l.b.Bin(ir.BinMul, elem, a, c, float, false, e.Span)
		bd := l.b.Bin(ir.BinMul, elem, b, d, float, false, e.Span)
		ad := l.b.Bin(ir.BinMul, elem, a, d, float, false, e.Span)
		bc := l.b.Bin(ir.BinMul, elem, b, c, float, false, e.Span)
		re = l.b.Bin(ir.BinSub, elem, ac, bd, float, false, e.Span)
		im = l.b.Bin(ir.BinAdd, elem, ad, bc, float, false, e.Span)
		return re, im
	}
	diag.ReportError(l.g.Reporter, diag.IRInvalidDeclReached, e.Span,
		"complex operator is not lowered").Emit()
	return ir.NoValueID, ir.NoValueID
}

func (l *lowering) complexAssign(e *ast.Expr, canon types.TypeID) (re, im ir.ValueID) {
	dst := l.lvalue(e.Binary.Left)
	re, im = l.complexValue(e.Binary.Right)
	l.complexStore(dst.addr, canon, re, im, e.Span)
	return re, im
}

// complexForEffect lowers a complex expression discarding its value.
func (l *lowering) complexForEffect(id ast.ExprID) {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return
	}
	if e.Kind == ast.ExprBinary && e.Binary.Op == ast.BinAssign {
		l.complexAssign(e, l.canonOf(id))
		return
	}
	l.complexValue(id)
}
