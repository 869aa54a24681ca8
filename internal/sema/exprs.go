package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// ActOnIntLit builds an integer literal of the given type.
func (s *Sema) ActOnIntLit(value uint64, qt types.QualType, span source.Span) ast.ExprID {
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprIntLit,
		Type: qt,
		VC:   ast.VCRValue,
		Span: span,
		Int:  ast.IntLitExpr{Value: value},
	})
}

// ActOnCharLit builds a character literal (type int in C).
func (s *Sema) ActOnCharLit(value uint64, span source.Span) ast.ExprID {
	qt := types.MakeQual(s.Builtins().Int)
	if s.Lang == LangCXX {
		qt = types.MakeQual(s.Builtins().Char)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprCharLit,
		Type: qt,
		VC:   ast.VCRValue,
		Span: span,
		Int:  ast.IntLitExpr{Value: value},
	})
}

// ActOnFloatLit builds a floating literal.
func (s *Sema) ActOnFloatLit(text string, value float64, qt types.QualType, span source.Span) ast.ExprID {
	return s.Unit.NewExpr(ast.Expr{
		Kind:  ast.ExprFloatLit,
		Type:  qt,
		VC:    ast.VCRValue,
		Span:  span,
		Float: ast.FloatLitExpr{Text: text, Value: value},
	})
}

// ActOnStringLit builds a string literal: type char[len+1], lvalue.
func (s *Sema) ActOnStringLit(value string, wide bool, span source.Span) ast.ExprID {
	in := s.Unit.Types
	elem := s.Builtins().Char
	arr := in.ConstantArray(types.MakeQual(elem), uint32(len(value)+1))
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprStringLit,
		Type: types.MakeQual(arr),
		VC:   ast.VCLValue,
		Span: span,
		Str:  ast.StringLitExpr{Value: s.Unit.Strings.Intern(value), Wide: wide},
	})
}

// ActOnIdentifierExpr resolves an identifier in expression position. Calls
// to unresolved builtin spellings sink into CallExpr.Builtin at call time.
func (s *Sema) ActOnIdentifierExpr(ident *names.Identifier, span source.Span) ast.ExprID {
	res := s.LookupName(s.Unit.Names.IdentifierName(ident), LookupOrdinary)
	switch res.Kind {
	case ResNotFound:
		if ident.Builtin != 0 {
			return s.builtinRefExpr(ident, span)
		}
		diag.ReportError(s.Reporter, diag.SemaNameNotFound, span,
			fmt.Sprintf("use of undeclared identifier '%s'", ident.String())).
			WithArg(diag.Arg{Kind: diag.ArgIdentifier, Text: ident.String()}).
			Emit()
		return s.invalidExpr(span)

	case ResAmbiguousReference, ResAmbiguousSubobjects, ResAmbiguousSubobjectTypes:
		b := diag.ReportError(s.Reporter, diag.SemaAmbiguousLookup, span,
			fmt.Sprintf("reference to '%s' is ambiguous", ident.String()))
		for _, c := range res.Decls {
			if d := s.Unit.Decl(c); d != nil {
				b.WithNote(d.Span, "candidate found by name lookup")
			}
		}
		b.Emit()
		return s.invalidExpr(span)
	}

	declID := res.First()
	if res.Kind == ResOverloadSet {
		// Defer the choice to the call; reference the set through its first
		// member and let ActOnCall re-resolve.
		declID = res.Decls[0]
	}
	d := s.Unit.Decl(declID)
	if d == nil {
		return s.invalidExpr(span)
	}
	vc := ast.VCLValue
	qt := d.Type
	if d.Kind == ast.DeclEnumConstant {
		vc = ast.VCRValue
	}
	if d.Kind == ast.DeclFunction {
		vc = ast.VCLValue
	}
	e := s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprDeclRef,
		Type: qt,
		VC:   vc,
		Span: span,
		Ref:  ast.DeclRefExpr{Decl: declID},
	})
	if d.Invalid {
		s.PoisonExpr(e)
	}
	return e
}

// builtinRefExpr types a reference to a target builtin from its signature.
func (s *Sema) builtinRefExpr(ident *names.Identifier, span source.Span) ast.ExprID {
	fnType, ok := s.builtinType(ident.Builtin)
	if !ok {
		diag.ReportError(s.Reporter, diag.IRUnsupportedBuiltin, span,
			fmt.Sprintf("builtin '%s' has an unsupported signature", ident.String())).Emit()
		return s.invalidExpr(span)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprDeclRef,
		Type: types.MakeQual(fnType),
		VC:   ast.VCLValue,
		Span: span,
		Ref:  ast.DeclRefExpr{Decl: ast.NoDeclID},
	})
}

// ActOnParen wraps a parenthesized expression, keeping type and category.
func (s *Sema) ActOnParen(op ast.ExprID, span source.Span) ast.ExprID {
	inner := s.Unit.Expr(op)
	e := ast.Expr{Kind: ast.ExprParen, Span: span, Paren: ast.ParenExpr{Operand: op}}
	if inner != nil {
		e.Type = inner.Type
		e.VC = inner.VC
		e.Invalid = inner.Invalid
	}
	return s.Unit.NewExpr(e)
}

// ActOnUnary type-checks a unary operation.
func (s *Sema) ActOnUnary(op ast.UnaryOp, operand ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	oe := s.Unit.Expr(operand)
	if oe == nil || oe.Invalid {
		return s.invalidExpr(span)
	}

	switch op {
	case ast.UnPlus, ast.UnMinus:
		operand = s.rvalue(operand)
		qt := s.promoted(operand)
		if !in.IsArithmetic(in.Canonical(qt.Type)) {
			return s.badUnary(op, operand, span)
		}
		return s.newUnary(op, operand, qt, ast.VCRValue, span)

	case ast.UnNot:
		operand = s.rvalue(operand)
		qt := s.promoted(operand)
		if !in.IsInteger(in.Canonical(qt.Type)) {
			return s.badUnary(op, operand, span)
		}
		return s.newUnary(op, operand, qt, ast.VCRValue, span)

	case ast.UnLNot:
		operand = s.rvalue(operand)
		if !in.IsScalar(in.Canonical(s.exprType(operand).Type)) {
			return s.badUnary(op, operand, span)
		}
		return s.newUnary(op, operand, types.MakeQual(s.Builtins().Int), ast.VCRValue, span)

	case ast.UnDeref:
		operand = s.rvalue(operand)
		pointee, ok := in.Pointee(in.Canonical(s.exprType(operand).Type))
		if !ok {
			return s.badUnary(op, operand, span)
		}
		return s.newUnary(op, operand, pointee, ast.VCLValue, span)

	case ast.UnAddrOf:
		if oe.VC == ast.VCRValue {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
				"cannot take the address of an rvalue").Emit()
			return s.invalidExpr(span)
		}
		if oe.VC == ast.VCBitField {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
				"address of bit-field requested").Emit()
			return s.invalidExpr(span)
		}
		ptr := in.Pointer(oe.Type, 0)
		return s.newUnary(op, operand, types.MakeQual(ptr), ast.VCRValue, span)

	case ast.UnPreInc, ast.UnPreDec, ast.UnPostInc, ast.UnPostDec:
		if oe.VC == ast.VCRValue {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
				"expression is not assignable").Emit()
			return s.invalidExpr(span)
		}
		canon := in.Canonical(oe.Type.Type)
		if !in.IsArithmetic(canon) && !in.IsPointer(canon) {
			return s.badUnary(op, operand, span)
		}
		vc := ast.VCRValue
		if (op == ast.UnPreInc || op == ast.UnPreDec) && s.Lang == LangCXX {
			vc = ast.VCLValue
		}
		return s.newUnary(op, operand, oe.Type, vc, span)
	}
	return s.invalidExpr(span)
}

func (s *Sema) newUnary(op ast.UnaryOp, operand ast.ExprID, qt types.QualType, vc ast.ValueCategory, span source.Span) ast.ExprID {
	return s.Unit.NewExpr(ast.Expr{
		Kind:  ast.ExprUnary,
		Type:  qt,
		VC:    vc,
		Span:  span,
		Unary: ast.UnaryExpr{Op: op, Operand: operand},
	})
}

func (s *Sema) badUnary(op ast.UnaryOp, operand ast.ExprID, span source.Span) ast.ExprID {
	diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
		fmt.Sprintf("invalid argument type '%s' to unary expression", s.SpellType(s.exprType(operand)))).
		WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(s.exprType(operand))}).
		Emit()
	return s.invalidExpr(span)
}

// ActOnBinary type-checks a binary operation, applying the usual arithmetic
// conversions and inserting implicit casts.
func (s *Sema) ActOnBinary(op ast.BinaryOp, lhs, rhs ast.ExprID, span source.Span) ast.ExprID {
	le := s.Unit.Expr(lhs)
	re := s.Unit.Expr(rhs)
	if le == nil || re == nil || le.Invalid || re.Invalid {
		return s.invalidExpr(span)
	}
	in := s.Unit.Types

	if op.IsAssignment() {
		return s.actOnAssign(op, lhs, rhs, span)
	}
	if s.Lang == LangCXX && op != ast.BinComma &&
		(in.IsRecord(in.Canonical(le.Type.Type)) || in.IsRecord(in.Canonical(re.Type.Type))) {
		return s.resolveOperatorCall(op, lhs, rhs, span)
	}
	if op == ast.BinComma {
		rhs = s.rvalue(rhs)
		return s.newBinary(op, lhs, rhs, s.exprType(rhs), span)
	}
	if op == ast.BinLAnd || op == ast.BinLOr {
		lhs, rhs = s.rvalue(lhs), s.rvalue(rhs)
		for _, side := range []ast.ExprID{lhs, rhs} {
			if !in.IsScalar(in.Canonical(s.exprType(side).Type)) {
				return s.badBinary(op, lhs, rhs, span)
			}
		}
		return s.newBinary(op, lhs, rhs, types.MakeQual(s.Builtins().Int), span)
	}

	lhs, rhs = s.rvalue(lhs), s.rvalue(rhs)
	lt := in.Canonical(s.exprType(lhs).Type)
	rt := in.Canonical(s.exprType(rhs).Type)

	// Pointer arithmetic and comparisons.
	if in.IsPointer(lt) || in.IsPointer(rt) {
		return s.pointerBinary(op, lhs, rhs, span)
	}

	if !in.IsArithmetic(lt) || !in.IsArithmetic(rt) {
		return s.badBinary(op, lhs, rhs, span)
	}

	common := s.usualArithmetic(lt, rt)
	lhs = s.implicitConvert(lhs, types.MakeQual(common))
	rhs = s.implicitConvert(rhs, types.MakeQual(common))

	result := types.MakeQual(common)
	if op.IsComparison() {
		result = types.MakeQual(s.Builtins().Int)
	}
	return s.newBinary(op, lhs, rhs, result, span)
}

// pointerBinary handles ptr+int, ptr-int, ptr-ptr, and pointer comparisons.
func (s *Sema) pointerBinary(op ast.BinaryOp, lhs, rhs ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	lt := in.Canonical(s.exprType(lhs).Type)
	rt := in.Canonical(s.exprType(rhs).Type)
	b := s.Builtins()

	switch op {
	case ast.BinAdd:
		if in.IsPointer(lt) && in.IsInteger(rt) {
			return s.newBinary(op, lhs, rhs, s.exprType(lhs), span)
		}
		if in.IsInteger(lt) && in.IsPointer(rt) {
			return s.newBinary(op, lhs, rhs, s.exprType(rhs), span)
		}
	case ast.BinSub:
		if in.IsPointer(lt) && in.IsInteger(rt) {
			return s.newBinary(op, lhs, rhs, s.exprType(lhs), span)
		}
		if in.IsPointer(lt) && in.IsPointer(rt) && in.Equal(lt, rt) {
			return s.newBinary(op, lhs, rhs, types.MakeQual(b.Long), span)
		}
	case ast.BinEQ, ast.BinNE, ast.BinLT, ast.BinGT, ast.BinLE, ast.BinGE:
		if in.IsPointer(lt) && in.IsPointer(rt) {
			return s.newBinary(op, lhs, rhs, types.MakeQual(b.Int), span)
		}
		// Null pointer constant against a pointer.
		if in.IsPointer(lt) && s.isNullConstant(rhs) {
			rhs = s.castTo(rhs, s.exprType(lhs), ast.CastIntToPointer)
			return s.newBinary(op, lhs, rhs, types.MakeQual(b.Int), span)
		}
		if in.IsPointer(rt) && s.isNullConstant(lhs) {
			lhs = s.castTo(lhs, s.exprType(rhs), ast.CastIntToPointer)
			return s.newBinary(op, lhs, rhs, types.MakeQual(b.Int), span)
		}
	}
	return s.badBinary(op, lhs, rhs, span)
}

func (s *Sema) newBinary(op ast.BinaryOp, lhs, rhs ast.ExprID, qt types.QualType, span source.Span) ast.ExprID {
	return s.Unit.NewExpr(ast.Expr{
		Kind:   ast.ExprBinary,
		Type:   qt,
		VC:     ast.VCRValue,
		Span:   span,
		Binary: ast.BinaryExpr{Op: op, Left: lhs, Right: rhs},
	})
}

func (s *Sema) badBinary(op ast.BinaryOp, lhs, rhs ast.ExprID, span source.Span) ast.ExprID {
	diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
		fmt.Sprintf("invalid operands to binary expression ('%s' and '%s')",
			s.SpellType(s.exprType(lhs)), s.SpellType(s.exprType(rhs)))).
		WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(s.exprType(lhs))}).
		WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(s.exprType(rhs))}).
		Emit()
	return s.invalidExpr(span)
}

// actOnAssign checks assignability and converts the right side.
func (s *Sema) actOnAssign(op ast.BinaryOp, lhs, rhs ast.ExprID, span source.Span) ast.ExprID {
	le := s.Unit.Expr(lhs)
	if le.VC == ast.VCRValue {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			"expression is not assignable").Emit()
		return s.invalidExpr(span)
	}
	if le.Type.Quals.Const() {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			"cannot assign to a const-qualified value").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(le.Type)}).
			Emit()
		return s.invalidExpr(span)
	}
	conv := s.initConvert(rhs, le.Type)
	if !conv.IsValid() {
		return s.badBinary(op, lhs, rhs, span)
	}
	vc := ast.VCRValue
	if s.Lang == LangCXX {
		vc = ast.VCLValue
	}
	e := s.newBinary(op, lhs, conv, le.Type.Unqualified(), span)
	s.Unit.Expr(e).VC = vc
	return e
}

// ActOnConditional types cond ? a : b.
func (s *Sema) ActOnConditional(cond, then, els ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	cond = s.conditionConvert(cond)
	then, els = s.rvalue(then), s.rvalue(els)
	tt := in.Canonical(s.exprType(then).Type)
	et := in.Canonical(s.exprType(els).Type)

	var result types.QualType
	switch {
	case in.Equal(tt, et):
		result = types.MakeQual(tt)
	case in.IsArithmetic(tt) && in.IsArithmetic(et):
		common := s.usualArithmetic(tt, et)
		then = s.implicitConvert(then, types.MakeQual(common))
		els = s.implicitConvert(els, types.MakeQual(common))
		result = types.MakeQual(common)
	case in.IsPointer(tt) && s.isNullConstant(els):
		els = s.castTo(els, s.exprType(then), ast.CastIntToPointer)
		result = s.exprType(then)
	case in.IsPointer(et) && s.isNullConstant(then):
		then = s.castTo(then, s.exprType(els), ast.CastIntToPointer)
		result = s.exprType(els)
	default:
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			fmt.Sprintf("incompatible operand types ('%s' and '%s')",
				s.SpellType(s.exprType(then)), s.SpellType(s.exprType(els)))).Emit()
		return s.invalidExpr(span)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprConditional,
		Type: result,
		VC:   ast.VCRValue,
		Span: span,
		Cond: ast.ConditionalExpr{Cond: cond, Then: then, Else: els},
	})
}

// ActOnMember types base.field and base->field.
func (s *Sema) ActOnMember(base ast.ExprID, ident *names.Identifier, arrow bool, span source.Span) ast.ExprID {
	in := s.Unit.Types
	be := s.Unit.Expr(base)
	if be == nil || be.Invalid {
		return s.invalidExpr(span)
	}

	recType := in.Canonical(be.Type.Type)
	baseQuals := be.Type.Quals
	if arrow {
		base = s.rvalue(base)
		pointee, ok := in.Pointee(in.Canonical(s.exprType(base).Type))
		if !ok {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
				fmt.Sprintf("member reference type '%s' is not a pointer", s.SpellType(be.Type))).Emit()
			return s.invalidExpr(span)
		}
		recType = in.Canonical(pointee.Type)
		baseQuals = pointee.Quals
	}

	info, ok := in.RecordInfo(recType)
	if !ok || !info.Complete {
		diag.ReportError(s.Reporter, diag.SemaIncompleteType, span,
			"member access into incomplete type").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(types.MakeQual(recType))}).
			Emit()
		return s.invalidExpr(span)
	}
	rd := s.Unit.Decl(ast.DeclID(info.Decl))
	if rd == nil || !rd.Record.Ctx.IsValid() {
		return s.invalidExpr(span)
	}
	res := s.LookupQualified(rd.Record.Ctx, s.Unit.Names.IdentifierName(ident), LookupMember)
	if !res.Found() {
		code := diag.SemaNameNotFound
		msg := fmt.Sprintf("no member named '%s' in '%s'", ident.String(), s.SpellType(types.MakeQual(recType)))
		if res.Kind == ResAmbiguousSubobjects || res.Kind == ResAmbiguousSubobjectTypes {
			code = diag.SemaAmbiguousSubobject
			msg = fmt.Sprintf("non-static member '%s' found in multiple base-class subobjects", ident.String())
		}
		b := diag.ReportError(s.Reporter, code, span, msg)
		for _, c := range res.Decls {
			if d := s.Unit.Decl(c); d != nil {
				b.WithNote(d.Span, "member found by ambiguous name lookup")
			}
		}
		b.Emit()
		return s.invalidExpr(span)
	}

	fieldID := res.First()
	fd := s.Unit.Decl(fieldID)
	vc := ast.VCLValue
	if fd.Kind == ast.DeclField && fd.Field.Width >= 0 {
		vc = ast.VCBitField
	}
	memberType := fd.Type.WithQuals(baseQuals)
	return s.Unit.NewExpr(ast.Expr{
		Kind:   ast.ExprMember,
		Type:   memberType,
		VC:     vc,
		Span:   span,
		Member: ast.MemberExpr{Base: base, Field: fieldID, Arrow: arrow},
	})
}

// ActOnIndex types base[index].
func (s *Sema) ActOnIndex(base, index ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	base, index = s.rvalue(base), s.rvalue(index)
	bt := in.Canonical(s.exprType(base).Type)
	it := in.Canonical(s.exprType(index).Type)

	// C allows index[base] too.
	if !in.IsPointer(bt) && in.IsPointer(it) {
		base, index = index, base
		bt = it
	}
	pointee, ok := in.Pointee(bt)
	if !ok || !in.IsInteger(in.Canonical(s.exprType(index).Type)) {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			"subscripted value is not an array or pointer").Emit()
		return s.invalidExpr(span)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind:  ast.ExprIndex,
		Type:  pointee,
		VC:    ast.VCLValue,
		Span:  span,
		Index: ast.IndexExpr{Base: base, Index: index},
	})
}

// ActOnSizeOf types sizeof/alignof.
func (s *Sema) ActOnSizeOf(ofType types.QualType, operand ast.ExprID, isAlign bool, span source.Span) ast.ExprID {
	qt := ofType
	if operand.IsValid() {
		qt = s.exprType(operand)
	}
	if !qt.IsNull() && !s.Unit.Types.IsComplete(qt.Type) {
		diag.ReportError(s.Reporter, diag.SemaIncompleteType, span,
			"invalid application of 'sizeof' to an incomplete type").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(qt)}).
			Emit()
		return s.invalidExpr(span)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprSizeOf,
		Type: types.MakeQual(s.Builtins().ULong),
		VC:   ast.VCRValue,
		Span: span,
		Size: ast.SizeOfExpr{OfType: ofType, Operand: operand, IsAlignOf: isAlign},
	})
}

// ActOnExplicitCast types a C-style cast.
func (s *Sema) ActOnExplicitCast(to types.QualType, operand ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	operand = s.rvalue(operand)
	from := in.Canonical(s.exprType(operand).Type)
	toC := in.Canonical(to.Type)

	kind := ast.CastBitCast
	switch {
	case in.Equal(from, toC):
		kind = ast.CastNoop
	case in.IsVoid(toC):
		kind = ast.CastNoop
	case in.IsInteger(from) && in.IsInteger(toC):
		kind = ast.CastIntegral
	case in.IsFloating(from) && in.IsFloating(toC):
		kind = ast.CastFloating
	case in.IsInteger(from) && in.IsFloating(toC):
		kind = ast.CastIntToFloat
	case in.IsFloating(from) && in.IsInteger(toC):
		kind = ast.CastFloatToInt
	case in.IsPointer(from) && in.IsPointer(toC):
		kind = ast.CastBitCast
	case in.IsInteger(from) && in.IsPointer(toC):
		kind = ast.CastIntToPointer
	case in.IsPointer(from) && in.IsInteger(toC):
		kind = ast.CastPointerToInt
	case in.IsFloating(from) && in.IsPointer(toC), in.IsPointer(from) && in.IsFloating(toC):
		diag.ReportError(s.Reporter, diag.SemaInvalidConversion, span,
			fmt.Sprintf("cannot cast '%s' to '%s'",
				s.SpellType(s.exprType(operand)), s.SpellType(to))).Emit()
		return s.invalidExpr(span)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprCast,
		Type: to,
		VC:   ast.VCRValue,
		Span: span,
		Cast: ast.CastExpr{Cast: kind, Operand: operand},
	})
}

// ActOnInitList wraps a braced initializer; element checking happens at the
// point of use where the target type is known.
func (s *Sema) ActOnInitList(elems []ast.ExprID, span source.Span) ast.ExprID {
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprInitList,
		VC:   ast.VCRValue,
		Span: span,
		Init: ast.InitListExpr{Elems: elems},
	})
}

func (s *Sema) invalidExpr(span source.Span) ast.ExprID {
	return s.Unit.NewExpr(ast.Expr{Kind: ast.ExprInvalid, Span: span, Invalid: true})
}

func (s *Sema) exprType(id ast.ExprID) types.QualType {
	if e := s.Unit.Expr(id); e != nil {
		return e.Type
	}
	return types.QualType{}
}
