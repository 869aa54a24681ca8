package sema

import (
	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/types"
)

// castTo wraps an expression in an implicit cast node.
func (s *Sema) castTo(id ast.ExprID, to types.QualType, kind ast.CastKind) ast.ExprID {
	e := s.Unit.Expr(id)
	if e == nil {
		return id
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprImplicitCast,
		Type: to,
		VC:   ast.VCRValue,
		Span: e.Span,
		Cast: ast.CastExpr{Cast: kind, Operand: id},
	})
}

// rvalue applies the lvalue transformations: array/function decay and
// lvalue-to-rvalue.
func (s *Sema) rvalue(id ast.ExprID) ast.ExprID {
	in := s.Unit.Types
	e := s.Unit.Expr(id)
	if e == nil || e.Invalid {
		return id
	}
	canon := in.Canonical(e.Type.Type)
	tt, ok := in.Lookup(canon)
	if !ok {
		return id
	}
	switch tt.Kind {
	case types.KindConstantArray, types.KindIncompleteArray, types.KindVariableArray:
		return s.castTo(id, in.Decay(e.Type), ast.CastArrayToPointer)
	case types.KindFunction:
		return s.castTo(id, in.Decay(e.Type), ast.CastFunctionToPointer)
	}
	if e.VC != ast.VCRValue {
		return s.castTo(id, e.Type.Unqualified(), ast.CastLValueToRValue)
	}
	return id
}

// promoted returns the type after integral/floating promotion, inserting the
// cast when one applies. Used by the unary operators.
func (s *Sema) promoted(id ast.ExprID) types.QualType {
	e := s.Unit.Expr(id)
	if e == nil {
		return types.QualType{}
	}
	if p, ok := s.promotedType(s.Unit.Types.Canonical(e.Type.Type)); ok {
		return types.MakeQual(p)
	}
	return e.Type.Unqualified()
}

// promoteInSwitch applies integral promotion to a switch condition.
func (s *Sema) promoteInSwitch(id ast.ExprID) ast.ExprID {
	id = s.rvalue(id)
	if p, ok := s.promotedType(s.Unit.Types.Canonical(s.exprType(id).Type)); ok {
		id = s.castTo(id, types.MakeQual(p), ast.CastIntegral)
	}
	return id
}

// arithRank orders arithmetic types for the usual arithmetic conversions.
func arithRank(k types.BuiltinKind) int {
	switch k {
	case types.BuiltinBool:
		return 0
	case types.BuiltinChar, types.BuiltinSChar, types.BuiltinUChar:
		return 1
	case types.BuiltinShort, types.BuiltinUShort:
		return 2
	case types.BuiltinInt, types.BuiltinUInt:
		return 3
	case types.BuiltinLong, types.BuiltinULong:
		return 4
	case types.BuiltinLongLong, types.BuiltinULongLong:
		return 5
	case types.BuiltinFloat:
		return 10
	case types.BuiltinDouble:
		return 11
	case types.BuiltinLongDouble:
		return 12
	default:
		return -1
	}
}

func isUnsignedKind(k types.BuiltinKind) bool {
	switch k {
	case types.BuiltinBool, types.BuiltinUChar, types.BuiltinUShort,
		types.BuiltinUInt, types.BuiltinULong, types.BuiltinULongLong:
		return true
	}
	return false
}

// usualArithmetic computes the common type of two arithmetic operands:
// float ranks dominate; below int everything promotes to int; unsigned wins
// at equal rank.
func (s *Sema) usualArithmetic(a, b types.TypeID) types.TypeID {
	in := s.Unit.Types
	bt := s.Builtins()

	// Complex dominates: the result is complex of the common element type.
	ea, ca := s.complexElemType(a)
	eb, cb := s.complexElemType(b)
	if ca || cb {
		return in.Complex(s.usualArithmetic(ea, eb))
	}

	ka := s.builtinKindOf(a)
	kb := s.builtinKindOf(b)
	ra, rb := arithRank(ka), arithRank(kb)
	if ra < 0 || rb < 0 {
		return bt.Int
	}
	r := ra
	hi, hiKind := a, ka
	if rb > ra {
		r = rb
		hi, hiKind = b, kb
	}
	if r >= 10 {
		return in.Canonical(hi)
	}
	if r <= 3 {
		// Integral promotion floor.
		if r < 3 {
			return bt.Int
		}
		if isUnsignedKind(ka) && ra == 3 || isUnsignedKind(kb) && rb == 3 {
			return bt.UInt
		}
		return bt.Int
	}
	// Same rank, one unsigned: unsigned wins.
	if ra == rb && (isUnsignedKind(ka) || isUnsignedKind(kb)) {
		if isUnsignedKind(hiKind) {
			return in.Canonical(hi)
		}
		if isUnsignedKind(ka) {
			return in.Canonical(a)
		}
		return in.Canonical(b)
	}
	return in.Canonical(hi)
}

// complexElemType unwraps a complex type to its element; a non-complex
// type comes back unchanged with ok=false.
func (s *Sema) complexElemType(id types.TypeID) (types.TypeID, bool) {
	in := s.Unit.Types
	canon := in.Canonical(id)
	if tt, ok := in.Lookup(canon); ok && tt.Kind == types.KindComplex {
		return in.Canonical(tt.Elem.Type), true
	}
	return canon, false
}

// builtinKindOf resolves enums to their underlying builtin kind.
func (s *Sema) builtinKindOf(id types.TypeID) types.BuiltinKind {
	in := s.Unit.Types
	canon := in.Canonical(id)
	tt, ok := in.Lookup(canon)
	if !ok {
		return types.BuiltinVoid
	}
	if tt.Kind == types.KindEnum {
		if info, ok := in.EnumInfo(canon); ok && info.Underlying != types.NoTypeID {
			return s.builtinKindOf(info.Underlying)
		}
		return types.BuiltinInt
	}
	if tt.Kind != types.KindBuiltin {
		return types.BuiltinVoid
	}
	return tt.Builtin
}

// implicitConvert casts an expression to the target arithmetic type when it
// is not already of it.
func (s *Sema) implicitConvert(id ast.ExprID, to types.QualType) ast.ExprID {
	in := s.Unit.Types
	from := in.Canonical(s.exprType(id).Type)
	toC := in.Canonical(to.Type)
	if in.Equal(from, toC) {
		return id
	}
	if kind, ok := s.conversionCast(from, toC); ok {
		return s.castTo(id, to, kind)
	}
	return id
}

// initConvert converts an initializer/argument/return value to the target
// type, returning NoExprID when the conversion is ill-formed.
func (s *Sema) initConvert(id ast.ExprID, to types.QualType) ast.ExprID {
	in := s.Unit.Types
	e := s.Unit.Expr(id)
	if e == nil || e.Invalid {
		return id
	}
	// Braced lists and string literals initialize aggregates structurally.
	if e.Kind == ast.ExprInitList {
		return s.checkInitList(id, to)
	}
	if e.Kind == ast.ExprStringLit && in.IsArray(in.Canonical(to.Type)) {
		return id
	}

	ics := s.ConvertToParam(e.Type, e.VC, to)
	if !ics.Viable() {
		return ast.NoExprID
	}
	if ics.Kind == ICSUserDefined {
		return s.applyUserConversion(id, ics, to)
	}
	// Reference binding keeps the glvalue; only a derived-to-base
	// adjustment materializes.
	if tt, ok := in.Lookup(in.Canonical(to.Type)); ok && tt.Kind == types.KindReference {
		if ics.Std.Second == ast.CastDerivedToBase {
			return s.castTo(id, tt.Elem, ast.CastDerivedToBase)
		}
		return id
	}
	out := id
	if ics.Std.First != ast.CastNoop {
		out = s.rvalue(out)
	} else if e.VC != ast.VCRValue {
		out = s.rvalue(out)
	}
	if ics.Std.Second != ast.CastNoop {
		out = s.castTo(out, in.CanonicalQual(to).Unqualified(), ics.Std.Second)
	} else if ics.Std.Qualification {
		out = s.castTo(out, to, ast.CastQualification)
	}
	return out
}

// applyUserConversion routes a value through a conversion function. The
// converted object travels as the call's implicit first argument; any
// standard sequence on the result follows as a cast.
func (s *Sema) applyUserConversion(id ast.ExprID, ics ICS, to types.QualType) ast.ExprID {
	in := s.Unit.Types
	d := s.Unit.Decl(ics.Conv)
	if d == nil {
		return ast.NoExprID
	}
	fn, ok := in.FnInfo(in.Canonical(d.Type.Type))
	if !ok {
		return ast.NoExprID
	}
	e := s.Unit.Expr(id)
	ref := s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprDeclRef,
		Type: types.MakeQual(d.Type.Type),
		VC:   ast.VCLValue,
		Span: e.Span,
		Ref:  ast.DeclRefExpr{Decl: ics.Conv},
	})
	out := s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprCall,
		Type: fn.Result,
		VC:   ast.VCRValue,
		Span: e.Span,
		Call: ast.CallExpr{Callee: ref, Args: []ast.ExprID{id}},
	})
	if ics.After.Second != ast.CastNoop {
		out = s.castTo(out, in.CanonicalQual(to).Unqualified(), ics.After.Second)
	} else if ics.After.Qualification {
		out = s.castTo(out, to, ast.CastQualification)
	}
	return out
}

// checkInitList checks a braced initializer against an aggregate type,
// converting each element.
func (s *Sema) checkInitList(id ast.ExprID, to types.QualType) ast.ExprID {
	in := s.Unit.Types
	e := s.Unit.Expr(id)
	canon := in.Canonical(to.Type)
	tt, ok := in.Lookup(canon)
	if !ok {
		return ast.NoExprID
	}

	switch tt.Kind {
	case types.KindConstantArray:
		if uint32(len(e.Init.Elems)) > tt.Count {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, e.Span,
				"excess elements in array initializer").Emit()
			return ast.NoExprID
		}
		for i, el := range e.Init.Elems {
			conv := s.initConvert(el, tt.Elem)
			if !conv.IsValid() {
				return ast.NoExprID
			}
			e.Init.Elems[i] = conv
		}
	case types.KindRecord:
		info, ok := in.RecordInfo(canon)
		if !ok || !info.Complete {
			return ast.NoExprID
		}
		if len(e.Init.Elems) > len(info.Fields) && info.Tag != types.TagUnion {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, e.Span,
				"excess elements in struct initializer").Emit()
			return ast.NoExprID
		}
		for i, el := range e.Init.Elems {
			if i >= len(info.Fields) {
				break
			}
			conv := s.initConvert(el, info.Fields[i].Type)
			if !conv.IsValid() {
				return ast.NoExprID
			}
			e.Init.Elems[i] = conv
		}
	default:
		// Scalar in braces: { x }.
		if len(e.Init.Elems) != 1 {
			return ast.NoExprID
		}
		conv := s.initConvert(e.Init.Elems[0], to)
		if !conv.IsValid() {
			return ast.NoExprID
		}
		e.Init.Elems[0] = conv
	}
	e.Type = to
	return id
}

// conditionConvert prepares an expression for boolean context.
func (s *Sema) conditionConvert(id ast.ExprID) ast.ExprID {
	in := s.Unit.Types
	id = s.rvalue(id)
	e := s.Unit.Expr(id)
	if e == nil || e.Invalid {
		return id
	}
	if !in.IsScalar(in.Canonical(e.Type.Type)) {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, e.Span,
			"statement requires expression of scalar type").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(e.Type)}).
			Emit()
		return s.PoisonExpr(id)
	}
	return id
}

// isNullConstant reports an integer constant expression with value zero.
func (s *Sema) isNullConstant(id ast.ExprID) bool {
	v := s.Evaluate(id)
	return v.Kind == ConstInt && v.Int == 0 && !v.SideEffects
}
