package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/ir"
	"cinder/internal/source"
	"cinder/internal/types"
)

// bitFieldRef describes a bit-field access: the loaded storage unit is
// shifted and masked to extract or update Width bits at Shift.
type bitFieldRef struct {
	unitType types.TypeID
	shift    int
	width    int
	signed   bool
}

// lvalRef is the result of the lvalue emitter: a typed address plus
// the volatility of the designated object.
type lvalRef struct {
	addr     ir.ValueID
	volatile bool
	bits     *bitFieldRef
}

// lvalue lowers an expression to an address.
func (l *lowering) lvalue(id ast.ExprID) lvalRef {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return lvalRef{addr: ir.NoValueID}
	}
	switch e.Kind {
	case ast.ExprDeclRef:
		return l.lvalueDecl(e.Ref.Decl, e.Span)
	case ast.ExprParen:
		return l.lvalue(e.Paren.Operand)
	case ast.ExprStringLit:
		return lvalRef{addr: l.stringAddr(id)}
	case ast.ExprUnary:
		if e.Unary.Op == ast.UnDeref {
			addr := l.scalar(e.Unary.Operand)
			vol := false
			if pointee, ok := l.g.Unit.Types.Pointee(l.canonOf(e.Unary.Operand)); ok {
				vol = pointee.Quals.Volatile()
			}
			return lvalRef{addr: addr, volatile: vol}
		}
		if e.Unary.Op == ast.UnPreInc || e.Unary.Op == ast.UnPreDec {
			// ++x is an lvalue in C++; evaluate and re-take the place.
			l.scalar(id)
			return l.lvalue(e.Unary.Operand)
		}
	case ast.ExprMember:
		return l.memberRef(e)
	case ast.ExprIndex:
		return l.indexRef(e)
	case ast.ExprCast, ast.ExprImplicitCast:
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastDerivedToBase:
			return l.lvalue(e.Cast.Operand)
		}
	case ast.ExprBinary:
		if e.Binary.Op == ast.BinComma {
			l.exprForEffect(e.Binary.Left)
			return l.lvalue(e.Binary.Right)
		}
		if e.Binary.Op.IsAssignment() {
			// Assignment is an lvalue in C++; store then reuse the place.
			l.scalar(id)
			return l.lvalue(e.Binary.Left)
		}
	}
	diag.ReportError(l.g.Reporter, diag.IRInvalidDeclReached, e.Span,
		"expression does not designate an object").Emit()
	return lvalRef{addr: ir.NoValueID}
}

// lvalueDecl resolves a declaration reference to storage, declaring a
// module global on first sight of an external object.
func (l *lowering) lvalueDecl(id ast.DeclID, span source.Span) lvalRef {
	if addr, ok := l.locals[id]; ok {
		d := l.g.Unit.Decl(id)
		return lvalRef{addr: addr, volatile: d != nil && d.Type.Quals.Volatile()}
	}
	d := l.g.Unit.Decl(id)
	if d == nil {
		return lvalRef{addr: ir.NoValueID}
	}
	if d.Kind == ast.DeclFunction {
		fid := l.g.declareFunc(id)
		canon := l.g.Unit.Types.Canonical(d.Type.Type)
		return lvalRef{addr: l.b.FuncAddr(fid, l.g.ptrTo(types.MakeQual(canon)))}
	}
	gid := l.g.externGlobal(id)
	canon := l.g.Unit.Types.Canonical(d.Type.Type)
	addr := l.b.GlobalAddr(gid, l.g.ptrTo(types.MakeQual(canon)))
	return lvalRef{addr: addr, volatile: d.Type.Quals.Volatile()}
}

// externGlobal ensures a module global exists for a file-scope object
// referenced before (or without) its definition in this unit.
func (g *Generator) externGlobal(id ast.DeclID) ir.GlobalID {
	first := g.firstDecl(id)
	if gid, ok := g.globalOf[first]; ok {
		return gid
	}
	d := g.Unit.Decl(id)
	canon := g.Unit.Types.Canonical(d.Type.Type)
	align := int32(8)
	if info, err := g.Layout.Of(canon); err == nil {
		align = int32(info.Align)
	}
	gid := g.Module.AddGlobal(ir.Global{
		Decl:    id,
		Name:    g.spellName(d),
		Type:    canon,
		Linkage: ir.LinkExternal,
		Align:   align,
		Span:    d.Span,
	})
	g.globalOf[first] = gid
	return gid
}

// memberRef computes the address of base.field / base->field,
// detecting bit-fields from the field's evaluated width.
func (l *lowering) memberRef(e *ast.Expr) lvalRef {
	tys := l.g.Unit.Types
	fd := l.g.Unit.Decl(e.Member.Field)
	if fd == nil {
		return lvalRef{addr: ir.NoValueID}
	}

	var base ir.ValueID
	var vol bool
	var recCanon types.TypeID
	if e.Member.Arrow {
		base = l.scalar(e.Member.Base)
		if pointee, ok := tys.Pointee(l.canonOf(e.Member.Base)); ok {
			vol = pointee.Quals.Volatile()
			recCanon = tys.Canonical(pointee.Type)
		}
	} else {
		ref := l.aggregateRef(e.Member.Base)
		base = ref.addr
		vol = ref.volatile
		recCanon = l.canonOf(e.Member.Base)
	}
	vol = vol || fd.Type.Quals.Volatile()

	fieldCanon := tys.Canonical(fd.Type.Type)
	ptr := l.g.ptrTo(types.MakeQual(fieldCanon))
	index := int32(fd.Field.Index)
	addr := l.b.FieldAddr(ptr, base, index, e.Span)

	if fd.Field.Width >= 0 {
		return lvalRef{addr: addr, volatile: vol, bits: l.bitFieldOf(recCanon, fd, fieldCanon)}
	}
	return lvalRef{addr: addr, volatile: vol}
}

// bitFieldOf derives shift/width of a bit-field from the record layout.
func (l *lowering) bitFieldOf(recCanon types.TypeID, fd *ast.Decl, fieldCanon types.TypeID) *bitFieldRef {
	width := int(fd.Field.Width)
	_, signed := l.intInfo(fieldCanon)
	shift := 0
	if info, err := l.g.Layout.Of(recCanon); err == nil {
		i := int(fd.Field.Index)
		if i < len(info.FieldOffsets) {
			unitBits := 32
			if fi, err2 := l.g.Layout.Of(fieldCanon); err2 == nil {
				unitBits = fi.Size
			}
			if unitBits > 0 {
				shift = info.FieldOffsets[i] % unitBits
			}
		}
	}
	return &bitFieldRef{unitType: fieldCanon, shift: shift, width: width, signed: signed}
}

// indexRef computes the address of base[index].
func (l *lowering) indexRef(e *ast.Expr) lvalRef {
	tys := l.g.Unit.Types
	baseCanon := l.canonOf(e.Index.Base)

	var base ir.ValueID
	var vol bool
	var elem types.QualType
	if tys.IsPointer(baseCanon) {
		base = l.scalar(e.Index.Base)
		elem, _ = tys.Pointee(baseCanon)
	} else {
		// Array not decayed by an explicit cast node.
		ref := l.aggregateRef(e.Index.Base)
		base = ref.addr
		vol = ref.volatile
		elem, _ = tys.ElemOf(baseCanon)
	}
	vol = vol || elem.Quals.Volatile()
	idx := l.scalar(e.Index.Index)
	ptr := l.g.ptrTo(types.MakeQual(tys.Canonical(elem.Type)))
	return lvalRef{addr: l.b.IndexAddr(ptr, base, idx, e.Span), volatile: vol}
}

// loadRef reads through an lvalue reference, extracting bit-fields
// with explicit shifts.
func (l *lowering) loadRef(ref lvalRef, canon types.TypeID, span source.Span) ir.ValueID {
	if !ref.addr.IsValid() {
		return ir.NoValueID
	}
	if ref.bits == nil {
		return l.b.Load(canon, ref.addr, ref.volatile, span)
	}
	bf := ref.bits
	unitBits := 32
	if info, err := l.g.Layout.Of(bf.unitType); err == nil {
		unitBits = info.Size
	}
	unit := l.b.Load(bf.unitType, ref.addr, ref.volatile, span)
	up := l.b.ConstInt(bf.unitType, int64(unitBits-bf.shift-bf.width))
	down := l.b.ConstInt(bf.unitType, int64(unitBits-bf.width))
	v := l.b.Bin(ir.BinShl, bf.unitType, unit, up, false, false, span)
	// Arithmetic shift sign-extends signed bit-fields.
	v = l.b.Bin(ir.BinShr, bf.unitType, v, down, false, !bf.signed, span)
	return l.intConvert(v, bf.unitType, canon, span)
}

// storeRef writes through an lvalue reference, merging bit-fields
// read-modify-write.
func (l *lowering) storeRef(ref lvalRef, v ir.ValueID, span source.Span) {
	if !ref.addr.IsValid() {
		return
	}
	if ref.bits == nil {
		l.b.Store(ref.addr, v, ref.volatile, span)
		return
	}
	bf := ref.bits
	mask := int64((uint64(1)<<uint(bf.width))-1) << uint(bf.shift)
	old := l.b.Load(bf.unitType, ref.addr, ref.volatile, span)
	keep := l.b.Bin(ir.BinAnd, bf.unitType, old, l.b.ConstInt(bf.unitType, ^mask), false, false, span)
	shifted := l.b.Bin(ir.BinShl, bf.unitType, v, l.b.ConstInt(bf.unitType, int64(bf.shift)), false, false, span)
	masked := l.b.Bin(ir.BinAnd, bf.unitType, shifted, l.b.ConstInt(bf.unitType, mask), false, false, span)
	merged := l.b.Bin(ir.BinOr, bf.unitType, keep, masked, false, false, span)
	l.b.Store(ref.addr, merged, ref.volatile, span)
}

// stringAddr materializes a string literal as a shared internal global
// and yields its address.
func (l *lowering) stringAddr(id ast.ExprID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	tys := l.g.Unit.Types
	body := l.g.Unit.Strings.MustLookup(e.Str.Value)
	arr := tys.ConstantArray(types.MakeQual(tys.Builtins().Char), uint32(len(body)+1))
	gid := l.g.Module.InternString(body, arr, e.Span)
	return l.b.GlobalAddr(gid, l.g.ptrTo(types.MakeQual(arr)))
}

// arrayDecay lowers array-to-pointer conversion.
func (l *lowering) arrayDecay(op ast.ExprID, ptrCanon types.TypeID, span source.Span) ir.ValueID {
	ref := l.aggregateRef(op)
	if !ref.addr.IsValid() {
		return ir.NoValueID
	}
	return l.b.Cast(ir.CastBit, ptrCanon, ref.addr, span)
}

// aggregateRef is lvalue for aggregate-typed expressions; it tolerates
// rvalue aggregates by materializing a temporary.
func (l *lowering) aggregateRef(id ast.ExprID) lvalRef {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return lvalRef{addr: ir.NoValueID}
	}
	switch e.Kind {
	case ast.ExprDeclRef, ast.ExprMember, ast.ExprIndex, ast.ExprStringLit:
		return l.lvalue(id)
	case ast.ExprParen:
		return l.aggregateRef(e.Paren.Operand)
	case ast.ExprUnary:
		if e.Unary.Op == ast.UnDeref {
			return l.lvalue(id)
		}
	case ast.ExprCast, ast.ExprImplicitCast:
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastLValueToRValue, ast.CastDerivedToBase:
			return l.aggregateRef(e.Cast.Operand)
		}
	}
	return lvalRef{addr: l.aggregate(id)}
}

// aggregate lowers an aggregate-typed expression to the address of its
// value, materializing temporaries for rvalues.
func (l *lowering) aggregate(id ast.ExprID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.NoValueID
	}
	canon := l.canonOf(id)

	switch e.Kind {
	case ast.ExprDeclRef, ast.ExprMember, ast.ExprIndex, ast.ExprStringLit:
		return l.lvalue(id).addr
	case ast.ExprParen:
		return l.aggregate(e.Paren.Operand)
	case ast.ExprUnary:
		if e.Unary.Op == ast.UnDeref {
			return l.lvalue(id).addr
		}
	case ast.ExprCast, ast.ExprImplicitCast:
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastLValueToRValue, ast.CastDerivedToBase:
			return l.aggregate(e.Cast.Operand)
		}
	case ast.ExprBinary:
		switch e.Binary.Op {
		case ast.BinAssign:
			dst := l.lvalue(e.Binary.Left)
			src := l.aggregate(e.Binary.Right)
			l.emitMemcpy(dst.addr, src, canon, e.Span)
			return dst.addr
		case ast.BinComma:
			l.exprForEffect(e.Binary.Left)
			return l.aggregate(e.Binary.Right)
		}
	case ast.ExprConditional:
		return l.conditionalAggregate(e, canon)
	case ast.ExprCall:
		return l.callAggregate(id, canon)
	case ast.ExprInitList:
		tmp := l.b.StaticAlloca(canon, l.g.ptrTo(types.MakeQual(canon)), l.alignOf(canon), e.Span)
		l.aggregateInit(tmp, canon, id)
		return tmp
	}
	// Complex rvalues materialize into a temporary through their
	// component pair.
	if l.g.Unit.Types.IsComplex(canon) {
		tmp := l.b.StaticAlloca(canon, l.g.ptrTo(types.MakeQual(canon)), l.alignOf(canon), e.Span)
		re, im := l.complexValue(id)
		l.complexStore(tmp, canon, re, im, e.Span)
		return tmp
	}
	diag.ReportError(l.g.Reporter, diag.IRInvalidDeclReached, e.Span,
		"expression cannot be lowered as an aggregate").Emit()
	return ir.NoValueID
}

func (l *lowering) conditionalAggregate(e *ast.Expr, canon types.TypeID) ir.ValueID {
	cond := l.condValue(e.Cond.Cond)
	thenBB := l.b.NewBlock("cond.then")
	elseBB := l.b.NewBlock("cond.else")
	endBB := l.b.NewBlock("cond.end")
	ptr := l.g.ptrTo(types.MakeQual(canon))
	l.b.CondBr(cond, thenBB, elseBB)

	l.b.SetInsertPoint(thenBB)
	thenV := l.aggregate(e.Cond.Then)
	fromThen := l.b.InsertBlock()
	l.b.Br(endBB)

	l.b.SetInsertPoint(elseBB)
	elseV := l.aggregate(e.Cond.Else)
	fromElse := l.b.InsertBlock()
	l.b.Br(endBB)

	l.b.SetInsertPoint(endBB)
	return l.b.Phi(ptr, []ir.PhiEdge{
		{Value: thenV, From: fromThen},
		{Value: elseV, From: fromElse},
	}, e.Span)
}

// emitMemcpy copies size-of-canon bytes from src to dst.
func (l *lowering) emitMemcpy(dst, src ir.ValueID, canon types.TypeID, span source.Span) {
	if !dst.IsValid() || !src.IsValid() {
		return
	}
	info, ok := l.g.layoutOf(canon, span)
	if !ok {
		return
	}
	size := l.b.ConstInt(l.g.Unit.Types.Builtins().Long, int64(info.Size/8))
	l.b.Intrinsic(ir.IntrMemcpy, types.NoTypeID, []ir.ValueID{dst, src, size}, span)
}

// aggregateInit runs a braced initializer into storage, zero-filling
// the trailing elements.
func (l *lowering) aggregateInit(slot ir.ValueID, canon types.TypeID, initID ast.ExprID) {
	e := l.g.Unit.Expr(initID)
	tys := l.g.Unit.Types
	if e == nil || e.Invalid {
		return
	}
	if e.Kind != ast.ExprInitList {
		src := l.aggregate(initID)
		l.emitMemcpy(slot, src, canon, e.Span)
		return
	}

	// Zero the whole object first; element stores overwrite.
	info, ok := l.g.layoutOf(canon, e.Span)
	if !ok {
		return
	}
	bt := tys.Builtins()
	zero := l.b.ConstInt(bt.Int, 0)
	size := l.b.ConstInt(bt.Long, int64(info.Size/8))
	l.b.Intrinsic(ir.IntrMemset, types.NoTypeID, []ir.ValueID{slot, zero, size}, e.Span)

	if tys.IsRecord(canon) {
		rec, _ := tys.RecordInfo(canon)
		if rec == nil {
			return
		}
		for i, elem := range e.Init.Elems {
			if i >= len(rec.Fields) {
				break
			}
			f := rec.Fields[i]
			fCanon := tys.Canonical(f.Type.Type)
			ptr := l.g.ptrTo(types.MakeQual(fCanon))
			addr := l.b.FieldAddr(ptr, slot, int32(i), l.g.Unit.Expr(elem).Span)
			l.initElement(addr, fCanon, elem)
		}
		return
	}

	// Array.
	elemQT, _ := tys.ElemOf(canon)
	elemCanon := tys.Canonical(elemQT.Type)
	ptr := l.g.ptrTo(types.MakeQual(elemCanon))
	for i, elem := range e.Init.Elems {
		idx := l.b.ConstInt(bt.Long, int64(i))
		addr := l.b.IndexAddr(ptr, slot, idx, l.g.Unit.Expr(elem).Span)
		l.initElement(addr, elemCanon, elem)
	}
}

func (l *lowering) initElement(addr ir.ValueID, canon types.TypeID, elem ast.ExprID) {
	tys := l.g.Unit.Types
	if tys.IsRecord(canon) || tys.IsArray(canon) {
		l.aggregateInit(addr, canon, elem)
		return
	}
	v := l.scalar(elem)
	l.b.Store(addr, v, false, l.g.Unit.Expr(elem).Span)
}
