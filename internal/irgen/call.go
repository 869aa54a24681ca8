package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/ir"
	"cinder/internal/source"
	"cinder/internal/types"
)

// coercedIntType picks an integer type of exactly bits width for small
// record returns passed in a register.
func (g *Generator) coercedIntType(bits int) (types.TypeID, bool) {
	bt := g.Unit.Types.Builtins()
	switch bits {
	case g.Target.Char.Size:
		return bt.UChar, true
	case g.Target.Short.Size:
		return bt.UShort, true
	case g.Target.Int.Size:
		return bt.UInt, true
	case g.Target.LongLong.Size:
		return bt.ULongLong, true
	}
	return types.NoTypeID, false
}

// callee lowers the callee expression to a callable value, resolving
// direct calls to function addresses.
func (l *lowering) callee(id ast.ExprID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.NoValueID
	}
	switch e.Kind {
	case ast.ExprParen:
		return l.callee(e.Paren.Operand)
	case ast.ExprCast, ast.ExprImplicitCast:
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastFunctionToPointer:
			return l.callee(e.Cast.Operand)
		}
	case ast.ExprUnary:
		// (*f)(...) calls through the pointer value.
		if e.Unary.Op == ast.UnDeref {
			return l.callee(e.Unary.Operand)
		}
	case ast.ExprDeclRef:
		d := l.g.Unit.Decl(e.Ref.Decl)
		if d != nil && d.Kind == ast.DeclFunction {
			fid := l.g.declareFunc(e.Ref.Decl)
			fnCanon := l.g.Unit.Types.Canonical(d.Type.Type)
			return l.b.FuncAddr(fid, l.g.ptrTo(types.MakeQual(fnCanon)))
		}
	}
	return l.scalar(id)
}

// callArgs lowers call arguments. Aggregates are copied to fresh
// temporaries and passed by pointer.
func (l *lowering) callArgs(e *ast.Expr) (args []ir.ValueID, byval []bool) {
	args = make([]ir.ValueID, 0, len(e.Call.Args))
	byval = make([]bool, 0, len(e.Call.Args))
	for _, a := range e.Call.Args {
		canon := l.canonOf(a)
		if l.g.passedByValPointer(canon) {
			span := l.g.Unit.Expr(a).Span
			src := l.aggregate(a)
			tmp := l.b.StaticAlloca(canon, l.g.ptrTo(types.MakeQual(canon)), l.alignOf(canon), span)
			l.emitMemcpy(tmp, src, canon, span)
			args = append(args, tmp)
			byval = append(byval, true)
			continue
		}
		args = append(args, l.scalar(a))
		byval = append(byval, false)
	}
	return args, byval
}

// call lowers a call with a void or scalar result.
func (l *lowering) call(id ast.ExprID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.NoValueID
	}
	if e.Call.Builtin != 0 {
		return l.builtinCall(id, e)
	}
	tys := l.g.Unit.Types
	canon := l.canonOf(id)
	if tys.IsRecord(canon) {
		// Record result requested as a scalar: lower the aggregate form
		// for its effects.
		l.callAggregate(id, canon)
		return ir.NoValueID
	}

	callee := l.callee(e.Call.Callee)
	args, byval := l.callArgs(e)
	result := canon
	if canon == types.NoTypeID || tys.IsVoid(canon) {
		result = types.NoTypeID
	}
	return l.b.Call(result, callee, args, ir.CallOpts{SRet: ir.NoValueID, ByVal: byval}, e.Span)
}

// callAggregate lowers a record-returning call and yields the address
// of the result. Small records come back coerced in a register; larger
// ones through a hidden result pointer.
func (l *lowering) callAggregate(id ast.ExprID, canon types.TypeID) ir.ValueID {
	e := l.g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.NoValueID
	}
	ptr := l.g.ptrTo(types.MakeQual(canon))
	tmp := l.b.StaticAlloca(canon, ptr, l.alignOf(canon), e.Span)

	callee := l.callee(e.Call.Callee)
	args, byval := l.callArgs(e)

	result, sret := l.g.classifyResult(canon)
	if !sret {
		v := l.b.Call(result, callee, args, ir.CallOpts{SRet: ir.NoValueID, ByVal: byval, Coerced: true}, e.Span)
		slot := l.b.Cast(ir.CastBit, l.g.ptrTo(types.MakeQual(result)), tmp, e.Span)
		l.b.Store(slot, v, false, e.Span)
		return tmp
	}

	l.b.Call(types.NoTypeID, callee, args, ir.CallOpts{SRet: tmp, ByVal: byval}, e.Span)
	return tmp
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// libcall lowers a builtin with no intrinsic form as a plain call to
// the library function of the same name.
func (l *lowering) libcall(e *ast.Expr, name string, span source.Span) ir.ValueID {
	tys := l.g.Unit.Types
	canon := tys.Canonical(e.Type.Type)
	args, byval := l.callArgs(e)

	fnType := tys.FunctionNoProto(types.MakeQual(canon))
	fn := l.g.libFunc(name, fnType, span)
	callee := l.b.FuncAddr(fn, l.g.ptrTo(types.MakeQual(fnType)))
	result := canon
	if canon == types.NoTypeID || tys.IsVoid(canon) {
		result = types.NoTypeID
	}
	return l.b.Call(result, callee, args, ir.CallOpts{SRet: ir.NoValueID, ByVal: byval}, e.Span)
}

// libFunc declares (once) an external function shell for library
// fallbacks of builtins.
func (g *Generator) libFunc(name string, fnType types.TypeID, span source.Span) ir.FuncID {
	if fid, ok := g.libFuncs[name]; ok {
		return fid
	}
	result := types.NoTypeID
	if info, ok := g.Unit.Types.FnInfo(fnType); ok {
		r := g.Unit.Types.Canonical(info.Result.Type)
		if !g.Unit.Types.IsVoid(r) {
			result = r
		}
	}
	f := g.Module.AddFunc(name, ast.NoDeclID, fnType, result, span)
	g.libFuncs[name] = f.ID
	return f.ID
}
