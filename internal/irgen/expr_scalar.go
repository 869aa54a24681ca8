package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/ir"
	"cinder/internal/source"
	"cinder/internal/types"
)

func (l *lowering) canonOf(id ast.ExprID) types.TypeID {
	e := l.g.Unit.Expr(id)
	if e == nil {
		return types.NoTypeID
	}
	return l.g.Unit.Types.Canonical(e.Type.Type)
}

func (l *lowering) intInfo(canon types.TypeID) (bits int, signed bool) {
	return l.g.intInfo(canon)
}

func (l *lowering) isUnsigned(canon types.TypeID) bool {
	tys := l.g.Unit.Types
	if tys.IsPointer(canon) {
		return true
	}
	if !tys.IsInteger(canon) {
		return false
	}
	_, signed := l.intInfo(canon)
	return !signed
}

// exprForEffect lowers an expression discarding its value.
func (l *lowering) exprForEffect(id ast.ExprID) {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return
	}
	tys := l.g.Unit.Types
	canon := l.canonOf(id)
	switch {
	case e.Kind == ast.ExprCast || e.Kind == ast.ExprImplicitCast:
		if tys.IsVoid(canon) {
			l.exprForEffect(e.Cast.Operand)
			return
		}
		if tys.IsComplex(canon) {
			l.complexForEffect(id)
			return
		}
		l.scalar(id)
	case e.Kind == ast.ExprParen:
		l.exprForEffect(e.Paren.Operand)
	case e.Kind == ast.ExprCall && (canon == types.NoTypeID || tys.IsVoid(canon)):
		l.call(id)
	case tys.IsRecord(canon) || tys.IsArray(canon):
		l.aggregate(id)
	case tys.IsComplex(canon):
		l.complexForEffect(id)
	default:
		l.scalar(id)
	}
}

// condValue lowers an expression to an i1.
func (l *lowering) condValue(id ast.ExprID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	bt := l.g.Unit.Types.Builtins()
	if e == nil || e.Invalid {
		return l.b.ConstInt(bt.Bool, 0)
	}
	switch e.Kind {
	case ast.ExprParen:
		return l.condValue(e.Paren.Operand)
	case ast.ExprBinary:
		switch {
		case e.Binary.Op.IsComparison():
			return l.comparison(e)
		case e.Binary.Op == ast.BinLAnd || e.Binary.Op == ast.BinLOr:
			return l.logical(e)
		}
	case ast.ExprUnary:
		if e.Unary.Op == ast.UnLNot {
			inner := l.condValue(e.Unary.Operand)
			zero := l.b.ConstInt(bt.Bool, 0)
			return l.b.Cmp(ir.CmpEQ, bt.Bool, inner, zero, false, false, e.Span)
		}
	}
	v := l.scalar(id)
	canon := l.canonOf(id)
	float := l.g.Unit.Types.IsFloating(canon)
	var zero ir.ValueID
	if float {
		zero = l.b.ConstFloat(canon, 0)
	} else if l.g.Unit.Types.IsPointer(canon) {
		zero = l.b.Null(canon)
	} else {
		zero = l.b.ConstInt(canon, 0)
	}
	return l.b.Cmp(ir.CmpNE, bt.Bool, v, zero, float, false, e.Span)
}

// scalar lowers an expression of scalar type to an SSA value.
func (l *lowering) scalar(id ast.ExprID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.NoValueID
	}
	canon := l.canonOf(id)

	switch e.Kind {
	case ast.ExprIntLit, ast.ExprCharLit:
		v := int64(e.Int.Value)
		if e.Int.Negative {
			v = -v
		}
		return l.b.ConstInt(canon, v)
	case ast.ExprFloatLit:
		return l.b.ConstFloat(canon, e.Float.Value)
	case ast.ExprStringLit:
		return l.stringAddr(id)
	case ast.ExprDeclRef:
		return l.declRefScalar(e, canon)
	case ast.ExprParen:
		return l.scalar(e.Paren.Operand)
	case ast.ExprUnary:
		return l.unary(e, canon)
	case ast.ExprBinary:
		return l.binary(e, canon)
	case ast.ExprConditional:
		return l.conditional(e, canon)
	case ast.ExprCall:
		return l.call(id)
	case ast.ExprMember, ast.ExprIndex:
		ref := l.lvalue(id)
		return l.loadRef(ref, canon, e.Span)
	case ast.ExprCast, ast.ExprImplicitCast:
		return l.castScalar(e, canon)
	case ast.ExprSizeOf:
		return l.sizeOf(e, canon)
	case ast.ExprInitList:
		if len(e.Init.Elems) > 0 {
			return l.scalar(e.Init.Elems[0])
		}
		return l.b.ConstInt(canon, 0)
	default:
		diag.ReportError(l.g.Reporter, diag.IRInvalidDeclReached, e.Span,
			"expression kind cannot be lowered to a scalar").Emit()
		return ir.NoValueID
	}
}

func (l *lowering) declRefScalar(e *ast.Expr, canon types.TypeID) ir.ValueID {
	d := l.g.Unit.Decl(e.Ref.Decl)
	if d == nil {
		return ir.NoValueID
	}
	switch d.Kind {
	case ast.DeclEnumConstant:
		return l.b.ConstInt(canon, d.EnumConst.Value)
	case ast.DeclFunction:
		fid := l.g.declareFunc(e.Ref.Decl)
		return l.b.FuncAddr(fid, l.g.ptrTo(types.MakeQual(canon)))
	default:
		ref := l.lvalueDecl(e.Ref.Decl, e.Span)
		return l.loadRef(ref, canon, e.Span)
	}
}

func (l *lowering) sizeOf(e *ast.Expr, canon types.TypeID) ir.ValueID {
	qt := e.Size.OfType
	if qt.IsNull() && e.Size.Operand.IsValid() {
		qt = l.g.Unit.Expr(e.Size.Operand).Type
	}
	info, ok := l.g.layoutOf(l.g.Unit.Types.Canonical(qt.Type), e.Span)
	if !ok {
		return l.b.ConstInt(canon, 0)
	}
	if e.Size.IsAlignOf {
		return l.b.ConstInt(canon, int64(info.Align/8))
	}
	return l.b.ConstInt(canon, int64(info.Size/8))
}

func (l *lowering) unary(e *ast.Expr, canon types.TypeID) ir.ValueID {
	tys := l.g.Unit.Types
	bt := tys.Builtins()
	float := tys.IsFloating(canon)
	switch e.Unary.Op {
	case ast.UnPlus:
		return l.scalar(e.Unary.Operand)
	case ast.UnMinus:
		v := l.scalar(e.Unary.Operand)
		var zero ir.ValueID
		if float {
			zero = l.b.ConstFloat(canon, 0)
		} else {
			zero = l.b.ConstInt(canon, 0)
		}
		return l.b.Bin(ir.BinSub, canon, zero, v, float, l.isUnsigned(canon), e.Span)
	case ast.UnNot:
		v := l.scalar(e.Unary.Operand)
		allOnes := l.b.ConstInt(canon, -1)
		return l.b.Bin(ir.BinXor, canon, v, allOnes, false, false, e.Span)
	case ast.UnLNot:
		inner := l.condValue(e.Unary.Operand)
		zero := l.b.ConstInt(bt.Bool, 0)
		isZero := l.b.Cmp(ir.CmpEQ, bt.Bool, inner, zero, false, false, e.Span)
		return l.b.Cast(ir.CastZExt, canon, isZero, e.Span)
	case ast.UnDeref:
		addr := l.scalar(e.Unary.Operand)
		return l.b.Load(canon, addr, false, e.Span)
	case ast.UnAddrOf:
		ref := l.lvalue(e.Unary.Operand)
		return ref.addr
	case ast.UnPreInc, ast.UnPreDec, ast.UnPostInc, ast.UnPostDec:
		return l.incDec(e, canon)
	default:
		return ir.NoValueID
	}
}

func (l *lowering) incDec(e *ast.Expr, canon types.TypeID) ir.ValueID {
	tys := l.g.Unit.Types
	ref := l.lvalue(e.Unary.Operand)
	old := l.loadRef(ref, canon, e.Span)

	var next ir.ValueID
	delta := int64(1)
	if e.Unary.Op == ast.UnPreDec || e.Unary.Op == ast.UnPostDec {
		delta = -1
	}
	switch {
	case tys.IsPointer(canon):
		idx := l.b.ConstInt(tys.Builtins().Long, delta)
		next = l.b.IndexAddr(canon, old, idx, e.Span)
	case tys.IsFloating(canon):
		one := l.b.ConstFloat(canon, float64(delta))
		next = l.b.Bin(ir.BinAdd, canon, old, one, true, false, e.Span)
	default:
		one := l.b.ConstInt(canon, delta)
		next = l.b.Bin(ir.BinAdd, canon, old, one, false, l.isUnsigned(canon), e.Span)
	}
	l.storeRef(ref, next, e.Span)
	if e.Unary.Op == ast.UnPostInc || e.Unary.Op == ast.UnPostDec {
		return old
	}
	return next
}

func (l *lowering) binary(e *ast.Expr, canon types.TypeID) ir.ValueID {
	tys := l.g.Unit.Types
	op := e.Binary.Op
	switch {
	case op == ast.BinComma:
		l.exprForEffect(e.Binary.Left)
		return l.scalar(e.Binary.Right)
	case op == ast.BinLAnd || op == ast.BinLOr:
		cond := l.logical(e)
		return l.b.Cast(ir.CastZExt, canon, cond, e.Span)
	case op.IsComparison():
		cond := l.comparison(e)
		return l.b.Cast(ir.CastZExt, canon, cond, e.Span)
	case op.IsAssignment():
		return l.assign(e, canon)
	}

	lhsCanon := l.canonOf(e.Binary.Left)
	rhsCanon := l.canonOf(e.Binary.Right)
	lhs := l.scalar(e.Binary.Left)
	rhs := l.scalar(e.Binary.Right)

	// Pointer arithmetic scales by the element.
	if tys.IsPointer(lhsCanon) && tys.IsInteger(rhsCanon) {
		return l.pointerOffset(canon, lhs, rhs, op == ast.BinSub, e)
	}
	if tys.IsInteger(lhsCanon) && tys.IsPointer(rhsCanon) && op == ast.BinAdd {
		return l.pointerOffset(canon, rhs, lhs, false, e)
	}
	if tys.IsPointer(lhsCanon) && tys.IsPointer(rhsCanon) && op == ast.BinSub {
		return l.pointerDiff(canon, lhs, rhs, lhsCanon, e)
	}

	return l.b.Bin(binOpOf(op), canon, lhs, rhs, tys.IsFloating(canon), l.isUnsigned(canon), e.Span)
}

func binOpOf(op ast.BinaryOp) ir.BinOp {
	switch op {
	case ast.BinAdd, ast.BinAddAssign:
		return ir.BinAdd
	case ast.BinSub, ast.BinSubAssign:
		return ir.BinSub
	case ast.BinMul, ast.BinMulAssign:
		return ir.BinMul
	case ast.BinDiv, ast.BinDivAssign:
		return ir.BinDiv
	case ast.BinRem, ast.BinRemAssign:
		return ir.BinRem
	case ast.BinShl, ast.BinShlAssign:
		return ir.BinShl
	case ast.BinShr, ast.BinShrAssign:
		return ir.BinShr
	case ast.BinAnd, ast.BinAndAssign:
		return ir.BinAnd
	case ast.BinOr, ast.BinOrAssign:
		return ir.BinOr
	case ast.BinXor, ast.BinXorAssign:
		return ir.BinXor
	default:
		return ir.BinAdd
	}
}

func cmpPredOf(op ast.BinaryOp) ir.CmpPred {
	switch op {
	case ast.BinLT:
		return ir.CmpLT
	case ast.BinGT:
		return ir.CmpGT
	case ast.BinLE:
		return ir.CmpLE
	case ast.BinGE:
		return ir.CmpGE
	case ast.BinEQ:
		return ir.CmpEQ
	default:
		return ir.CmpNE
	}
}

// comparison yields an i1. The widening back to int is the caller's.
func (l *lowering) comparison(e *ast.Expr) ir.ValueID {
	tys := l.g.Unit.Types
	bt := tys.Builtins()
	operandCanon := l.canonOf(e.Binary.Left)
	lhs := l.scalar(e.Binary.Left)
	rhs := l.scalar(e.Binary.Right)
	float := tys.IsFloating(operandCanon)
	return l.b.Cmp(cmpPredOf(e.Binary.Op), bt.Bool, lhs, rhs, float, l.isUnsigned(operandCanon), e.Span)
}

// logical lowers && and || with short-circuit blocks and a phi.
func (l *lowering) logical(e *ast.Expr) ir.ValueID {
	bt := l.g.Unit.Types.Builtins()
	isAnd := e.Binary.Op == ast.BinLAnd

	lhs := l.condValue(e.Binary.Left)
	fromLHS := l.b.InsertBlock()
	rhsBB := l.b.NewBlock("land.rhs")
	endBB := l.b.NewBlock("land.end")
	if isAnd {
		l.b.CondBr(lhs, rhsBB, endBB)
	} else {
		l.b.CondBr(lhs, endBB, rhsBB)
	}

	l.b.SetInsertPoint(rhsBB)
	rhs := l.condValue(e.Binary.Right)
	fromRHS := l.b.InsertBlock()
	l.b.Br(endBB)

	l.b.SetInsertPoint(endBB)
	short := int64(0)
	if !isAnd {
		short = 1
	}
	shortV := l.b.ConstInt(bt.Bool, short)
	return l.b.Phi(bt.Bool, []ir.PhiEdge{
		{Value: shortV, From: fromLHS},
		{Value: rhs, From: fromRHS},
	}, e.Span)
}

func (l *lowering) assign(e *ast.Expr, canon types.TypeID) ir.ValueID {
	tys := l.g.Unit.Types
	ref := l.lvalue(e.Binary.Left)
	if e.Binary.Op == ast.BinAssign {
		v := l.scalar(e.Binary.Right)
		l.storeRef(ref, v, e.Span)
		return v
	}
	old := l.loadRef(ref, canon, e.Span)
	rhs := l.scalar(e.Binary.Right)
	var next ir.ValueID
	if tys.IsPointer(canon) {
		next = l.pointerOffset(canon, old, rhs, e.Binary.Op == ast.BinSubAssign, e)
	} else {
		next = l.b.Bin(binOpOf(e.Binary.Op), canon, old, rhs, tys.IsFloating(canon), l.isUnsigned(canon), e.Span)
	}
	l.storeRef(ref, next, e.Span)
	return next
}

func (l *lowering) pointerOffset(ptrType types.TypeID, ptr, idx ir.ValueID, negate bool, e *ast.Expr) ir.ValueID {
	bt := l.g.Unit.Types.Builtins()
	if negate {
		zero := l.b.ConstInt(bt.Long, 0)
		idx = l.b.Bin(ir.BinSub, bt.Long, zero, idx, false, false, e.Span)
	}
	return l.b.IndexAddr(ptrType, ptr, idx, e.Span)
}

func (l *lowering) pointerDiff(canon types.TypeID, lhs, rhs ir.ValueID, ptrCanon types.TypeID, e *ast.Expr) ir.ValueID {
	tys := l.g.Unit.Types
	li := l.b.Cast(ir.CastPtrToInt, canon, lhs, e.Span)
	ri := l.b.Cast(ir.CastPtrToInt, canon, rhs, e.Span)
	diff := l.b.Bin(ir.BinSub, canon, li, ri, false, false, e.Span)
	elemSize := int64(1)
	if pointee, ok := tys.Pointee(ptrCanon); ok {
		if info, err := l.g.Layout.Of(tys.Canonical(pointee.Type)); err == nil && info.Size > 0 {
			elemSize = int64(info.Size / 8)
		}
	}
	if elemSize == 1 {
		return diff
	}
	size := l.b.ConstInt(canon, elemSize)
	return l.b.Bin(ir.BinDiv, canon, diff, size, false, false, e.Span)
}

func (l *lowering) conditional(e *ast.Expr, canon types.TypeID) ir.ValueID {
	cond := l.condValue(e.Cond.Cond)
	thenBB := l.b.NewBlock("cond.then")
	elseBB := l.b.NewBlock("cond.else")
	endBB := l.b.NewBlock("cond.end")
	l.b.CondBr(cond, thenBB, elseBB)

	l.b.SetInsertPoint(thenBB)
	thenV := l.scalar(e.Cond.Then)
	fromThen := l.b.InsertBlock()
	l.b.Br(endBB)

	l.b.SetInsertPoint(elseBB)
	elseV := l.scalar(e.Cond.Else)
	fromElse := l.b.InsertBlock()
	l.b.Br(endBB)

	l.b.SetInsertPoint(endBB)
	return l.b.Phi(canon, []ir.PhiEdge{
		{Value: thenV, From: fromThen},
		{Value: elseV, From: fromElse},
	}, e.Span)
}

// castScalar maps the analyzer's cast kinds onto IR conversions.
func (l *lowering) castScalar(e *ast.Expr, canon types.TypeID) ir.ValueID {
	op := e.Cast.Operand
	srcCanon := l.canonOf(op)

	switch e.Cast.Cast {
	case ast.CastNoop, ast.CastQualification:
		return l.scalar(op)
	case ast.CastLValueToRValue:
		ref := l.lvalue(op)
		return l.loadRef(ref, canon, e.Span)
	case ast.CastArrayToPointer:
		return l.arrayDecay(op, canon, e.Span)
	case ast.CastFunctionToPointer:
		return l.scalar(op)
	case ast.CastToBool:
		cond := l.condValue(op)
		return l.b.Cast(ir.CastZExt, canon, cond, e.Span)
	case ast.CastIntegral:
		v := l.scalar(op)
		return l.intConvert(v, srcCanon, canon, e.Span)
	case ast.CastFloating:
		v := l.scalar(op)
		srcInfo, _ := l.g.Layout.Of(srcCanon)
		dstInfo, _ := l.g.Layout.Of(canon)
		switch {
		case dstInfo.Size > srcInfo.Size:
			return l.b.Cast(ir.CastFPExt, canon, v, e.Span)
		case dstInfo.Size < srcInfo.Size:
			return l.b.Cast(ir.CastFPTrunc, canon, v, e.Span)
		default:
			return v
		}
	case ast.CastIntToFloat:
		v := l.scalar(op)
		if l.isUnsigned(srcCanon) {
			return l.b.Cast(ir.CastUIToFP, canon, v, e.Span)
		}
		return l.b.Cast(ir.CastSIToFP, canon, v, e.Span)
	case ast.CastFloatToInt:
		v := l.scalar(op)
		if l.isUnsigned(canon) {
			return l.b.Cast(ir.CastFPToUI, canon, v, e.Span)
		}
		return l.b.Cast(ir.CastFPToSI, canon, v, e.Span)
	case ast.CastIntToPointer:
		v := l.scalar(op)
		return l.b.Cast(ir.CastIntToPtr, canon, v, e.Span)
	case ast.CastPointerToInt:
		v := l.scalar(op)
		return l.b.Cast(ir.CastPtrToInt, canon, v, e.Span)
	default:
		// Pointer, bitcast, derived-to-base, member pointer.
		v := l.scalar(op)
		if srcCanon == canon {
			return v
		}
		return l.b.Cast(ir.CastBit, canon, v, e.Span)
	}
}

// intConvert widens or narrows between integer representations.
func (l *lowering) intConvert(v ir.ValueID, src, dst types.TypeID, span source.Span) ir.ValueID {
	srcBits, srcSigned := l.intInfo(src)
	dstBits, _ := l.intInfo(dst)
	switch {
	case dstBits > srcBits && srcSigned:
		return l.b.Cast(ir.CastSExt, dst, v, span)
	case dstBits > srcBits:
		return l.b.Cast(ir.CastZExt, dst, v, span)
	case dstBits < srcBits:
		return l.b.Cast(ir.CastTrunc, dst, v, span)
	case src != dst:
		return l.b.Cast(ir.CastBit, dst, v, span)
	default:
		return v
	}
}
