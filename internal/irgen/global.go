package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/ir"
	"cinder/internal/types"
)

// intInfo returns width and signedness of an integer-ish type; enums
// answer for their underlying type.
func (g *Generator) intInfo(canon types.TypeID) (bits int, signed bool) {
	tys := g.Unit.Types
	t, ok := tys.Lookup(canon)
	if !ok {
		return 32, true
	}
	if t.Kind == types.KindEnum {
		if info, ok := tys.EnumInfo(canon); ok && info.Underlying != types.NoTypeID {
			return g.intInfo(tys.Canonical(info.Underlying))
		}
		return g.Target.Int.Size, true
	}
	info, err := g.Layout.Of(canon)
	if err != nil {
		return 32, true
	}
	signed = true
	if t.Kind == types.KindBuiltin {
		if t.Builtin == types.BuiltinChar {
			signed = g.Target.CharIsSigned
		} else {
			signed = t.Builtin.IsSignedInteger()
		}
	}
	return info.Size, signed
}

// truncInt wraps a folded value to the representation of its type.
func (g *Generator) truncInt(v int64, canon types.TypeID) int64 {
	bits, signed := g.intInfo(canon)
	if bits <= 0 || bits >= 64 {
		return v
	}
	shift := uint(64 - bits)
	u := uint64(v) << shift
	if signed {
		return int64(u) >> shift
	}
	return int64(u >> shift)
}

func constInt(canon types.TypeID, v int64) ir.Const {
	return ir.Const{Kind: ir.ConstInt, Type: canon, Int: v}
}

func boolConst(canon types.TypeID, b bool) ir.Const {
	if b {
		return constInt(canon, 1)
	}
	return constInt(canon, 0)
}

// foldConst evaluates an initializer expression at compile time. It
// covers the forms a C static initializer may take: arithmetic over
// literals and enumerators, sizeof, address of file-scope objects and
// string literals, casts between them, and braced aggregates.
func (g *Generator) foldConst(id ast.ExprID) (ir.Const, bool) {
	e := g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.Const{}, false
	}
	tys := g.Unit.Types
	canon := tys.Canonical(e.Type.Type)

	switch e.Kind {
	case ast.ExprIntLit, ast.ExprCharLit:
		v := int64(e.Int.Value)
		if e.Int.Negative {
			v = -v
		}
		return constInt(canon, g.truncInt(v, canon)), true

	case ast.ExprFloatLit:
		return ir.Const{Kind: ir.ConstFloat, Type: canon, Float: e.Float.Value}, true

	case ast.ExprStringLit:
		body := g.Unit.Strings.MustLookup(e.Str.Value)
		return ir.Const{Kind: ir.ConstString, Type: canon, Str: body}, true

	case ast.ExprParen:
		return g.foldConst(e.Paren.Operand)

	case ast.ExprDeclRef:
		d := g.Unit.Decl(e.Ref.Decl)
		if d != nil && d.Kind == ast.DeclEnumConstant {
			return constInt(canon, d.EnumConst.Value), true
		}
		return ir.Const{}, false

	case ast.ExprSizeOf:
		return g.foldSizeOf(e, canon)

	case ast.ExprUnary:
		return g.foldUnary(e, canon)

	case ast.ExprBinary:
		return g.foldBinary(e, canon)

	case ast.ExprConditional:
		cond, ok := g.foldConst(e.Cond.Cond)
		if !ok || cond.Kind != ir.ConstInt {
			return ir.Const{}, false
		}
		if cond.Int != 0 {
			return g.foldConst(e.Cond.Then)
		}
		return g.foldConst(e.Cond.Else)

	case ast.ExprCast, ast.ExprImplicitCast:
		return g.foldCast(e, canon)

	case ast.ExprInitList:
		elems := make([]ir.Const, 0, len(e.Init.Elems))
		for _, el := range e.Init.Elems {
			c, ok := g.foldConst(el)
			if !ok {
				return ir.Const{}, false
			}
			elems = append(elems, c)
		}
		return ir.Const{Kind: ir.ConstAggregate, Type: canon, Elems: elems}, true
	}
	return ir.Const{}, false
}

func (g *Generator) foldSizeOf(e *ast.Expr, canon types.TypeID) (ir.Const, bool) {
	of := e.Size.OfType.Type
	if of == types.NoTypeID && e.Size.Operand.IsValid() {
		of = g.Unit.Expr(e.Size.Operand).Type.Type
	}
	info, err := g.Layout.Of(g.Unit.Types.Canonical(of))
	if err != nil {
		return ir.Const{}, false
	}
	if e.Size.IsAlignOf {
		return constInt(canon, int64(info.Align/8)), true
	}
	return constInt(canon, int64(info.Size/8)), true
}

func (g *Generator) foldUnary(e *ast.Expr, canon types.TypeID) (ir.Const, bool) {
	if e.Unary.Op == ast.UnAddrOf {
		return g.foldAddr(e.Unary.Operand, canon)
	}
	op, ok := g.foldConst(e.Unary.Operand)
	if !ok {
		return ir.Const{}, false
	}
	switch op.Kind {
	case ir.ConstInt:
		switch e.Unary.Op {
		case ast.UnPlus:
			return constInt(canon, op.Int), true
		case ast.UnMinus:
			return constInt(canon, g.truncInt(-op.Int, canon)), true
		case ast.UnNot:
			return constInt(canon, g.truncInt(^op.Int, canon)), true
		case ast.UnLNot:
			return boolConst(canon, op.Int == 0), true
		}
	case ir.ConstFloat:
		switch e.Unary.Op {
		case ast.UnPlus:
			return ir.Const{Kind: ir.ConstFloat, Type: canon, Float: op.Float}, true
		case ast.UnMinus:
			return ir.Const{Kind: ir.ConstFloat, Type: canon, Float: -op.Float}, true
		case ast.UnLNot:
			return boolConst(canon, op.Float == 0), true
		}
	}
	return ir.Const{}, false
}

// foldAddr folds &object for file-scope objects and string literals.
func (g *Generator) foldAddr(id ast.ExprID, canon types.TypeID) (ir.Const, bool) {
	e := g.Unit.Expr(id)
	if e == nil || e.Invalid {
		return ir.Const{}, false
	}
	switch e.Kind {
	case ast.ExprParen:
		return g.foldAddr(e.Paren.Operand, canon)
	case ast.ExprStringLit:
		gid, ok := g.internLit(id)
		if !ok {
			return ir.Const{}, false
		}
		return ir.Const{Kind: ir.ConstGlobalAddr, Type: canon, Global: gid}, true
	case ast.ExprDeclRef:
		d := g.Unit.Decl(e.Ref.Decl)
		if d == nil || d.Kind != ast.DeclVariable {
			return ir.Const{}, false
		}
		gid := g.externGlobal(e.Ref.Decl)
		return ir.Const{Kind: ir.ConstGlobalAddr, Type: canon, Global: gid}, true
	}
	return ir.Const{}, false
}

func (g *Generator) internLit(id ast.ExprID) (ir.GlobalID, bool) {
	e := g.Unit.Expr(id)
	if e == nil || e.Kind != ast.ExprStringLit {
		return ir.NoGlobalID, false
	}
	tys := g.Unit.Types
	body := g.Unit.Strings.MustLookup(e.Str.Value)
	arr := tys.ConstantArray(types.MakeQual(tys.Builtins().Char), uint32(len(body)+1))
	return g.Module.InternString(body, arr, e.Span), true
}

func (g *Generator) foldBinary(e *ast.Expr, canon types.TypeID) (ir.Const, bool) {
	l, ok := g.foldConst(e.Binary.Left)
	if !ok {
		return ir.Const{}, false
	}
	r, ok := g.foldConst(e.Binary.Right)
	if !ok {
		return ir.Const{}, false
	}
	if l.Kind == ir.ConstFloat || r.Kind == ir.ConstFloat {
		return g.foldFloatBinary(e.Binary.Op, l, r, canon)
	}
	if l.Kind != ir.ConstInt || r.Kind != ir.ConstInt {
		return ir.Const{}, false
	}

	operandCanon := g.Unit.Types.Canonical(g.Unit.Expr(e.Binary.Left).Type.Type)
	_, signed := g.intInfo(operandCanon)
	a, b := l.Int, r.Int

	switch e.Binary.Op {
	case ast.BinAdd:
		return constInt(canon, g.truncInt(a+b, canon)), true
	case ast.BinSub:
		return constInt(canon, g.truncInt(a-b, canon)), true
	case ast.BinMul:
		return constInt(canon, g.truncInt(a*b, canon)), true
	case ast.BinDiv:
		if b == 0 {
			return ir.Const{}, false
		}
		if !signed {
			return constInt(canon, int64(uint64(a)/uint64(b))), true
		}
		return constInt(canon, g.truncInt(a/b, canon)), true
	case ast.BinRem:
		if b == 0 {
			return ir.Const{}, false
		}
		if !signed {
			return constInt(canon, int64(uint64(a)%uint64(b))), true
		}
		return constInt(canon, g.truncInt(a%b, canon)), true
	case ast.BinShl:
		return constInt(canon, g.truncInt(a<<uint64(b), canon)), true
	case ast.BinShr:
		if !signed {
			return constInt(canon, int64(uint64(a)>>uint64(b))), true
		}
		return constInt(canon, a>>uint64(b)), true
	case ast.BinAnd:
		return constInt(canon, a&b), true
	case ast.BinOr:
		return constInt(canon, a|b), true
	case ast.BinXor:
		return constInt(canon, a^b), true
	case ast.BinLAnd:
		return boolConst(canon, a != 0 && b != 0), true
	case ast.BinLOr:
		return boolConst(canon, a != 0 || b != 0), true
	case ast.BinEQ:
		return boolConst(canon, a == b), true
	case ast.BinNE:
		return boolConst(canon, a != b), true
	case ast.BinLT:
		if !signed {
			return boolConst(canon, uint64(a) < uint64(b)), true
		}
		return boolConst(canon, a < b), true
	case ast.BinGT:
		if !signed {
			return boolConst(canon, uint64(a) > uint64(b)), true
		}
		return boolConst(canon, a > b), true
	case ast.BinLE:
		if !signed {
			return boolConst(canon, uint64(a) <= uint64(b)), true
		}
		return boolConst(canon, a <= b), true
	case ast.BinGE:
		if !signed {
			return boolConst(canon, uint64(a) >= uint64(b)), true
		}
		return boolConst(canon, a >= b), true
	case ast.BinComma:
		return r, true
	}
	return ir.Const{}, false
}

func (g *Generator) foldFloatBinary(op ast.BinaryOp, l, r ir.Const, canon types.TypeID) (ir.Const, bool) {
	fa, ok := floatOf(l)
	if !ok {
		return ir.Const{}, false
	}
	fb, ok := floatOf(r)
	if !ok {
		return ir.Const{}, false
	}
	fc := func(v float64) (ir.Const, bool) {
		return ir.Const{Kind: ir.ConstFloat, Type: canon, Float: v}, true
	}
	switch op {
	case ast.BinAdd:
		return fc(fa + fb)
	case ast.BinSub:
		return fc(fa - fb)
	case ast.BinMul:
		return fc(fa * fb)
	case ast.BinDiv:
		if fb == 0 {
			return ir.Const{}, false
		}
		return fc(fa / fb)
	case ast.BinEQ:
		return boolConst(canon, fa == fb), true
	case ast.BinNE:
		return boolConst(canon, fa != fb), true
	case ast.BinLT:
		return boolConst(canon, fa < fb), true
	case ast.BinGT:
		return boolConst(canon, fa > fb), true
	case ast.BinLE:
		return boolConst(canon, fa <= fb), true
	case ast.BinGE:
		return boolConst(canon, fa >= fb), true
	}
	return ir.Const{}, false
}

func floatOf(c ir.Const) (float64, bool) {
	switch c.Kind {
	case ir.ConstFloat:
		return c.Float, true
	case ir.ConstInt:
		return float64(c.Int), true
	}
	return 0, false
}

func (g *Generator) foldCast(e *ast.Expr, canon types.TypeID) (ir.Const, bool) {
	switch e.Cast.Cast {
	case ast.CastArrayToPointer:
		// Pointer to a string literal's storage.
		if gid, ok := g.internLit(e.Cast.Operand); ok {
			return ir.Const{Kind: ir.ConstGlobalAddr, Type: canon, Global: gid}, true
		}
		return g.foldAddr(e.Cast.Operand, canon)
	case ast.CastFunctionToPointer:
		return ir.Const{}, false
	}

	op, ok := g.foldConst(e.Cast.Operand)
	if !ok {
		return ir.Const{}, false
	}
	switch e.Cast.Cast {
	case ast.CastNoop, ast.CastQualification, ast.CastLValueToRValue, ast.CastBitCast:
		op.Type = canon
		return op, true
	case ast.CastIntegral:
		if op.Kind != ir.ConstInt {
			return ir.Const{}, false
		}
		return constInt(canon, g.truncInt(op.Int, canon)), true
	case ast.CastFloating:
		if op.Kind != ir.ConstFloat {
			return ir.Const{}, false
		}
		op.Type = canon
		return op, true
	case ast.CastIntToFloat:
		if op.Kind != ir.ConstInt {
			return ir.Const{}, false
		}
		srcCanon := g.Unit.Types.Canonical(g.Unit.Expr(e.Cast.Operand).Type.Type)
		if _, signed := g.intInfo(srcCanon); !signed {
			return ir.Const{Kind: ir.ConstFloat, Type: canon, Float: float64(uint64(op.Int))}, true
		}
		return ir.Const{Kind: ir.ConstFloat, Type: canon, Float: float64(op.Int)}, true
	case ast.CastFloatToInt:
		if op.Kind != ir.ConstFloat {
			return ir.Const{}, false
		}
		return constInt(canon, g.truncInt(int64(op.Float), canon)), true
	case ast.CastToBool:
		switch op.Kind {
		case ir.ConstInt:
			return boolConst(canon, op.Int != 0), true
		case ir.ConstFloat:
			return boolConst(canon, op.Float != 0), true
		case ir.ConstNull:
			return boolConst(canon, false), true
		case ir.ConstGlobalAddr:
			return boolConst(canon, true), true
		}
		return ir.Const{}, false
	case ast.CastIntToPointer:
		if op.Kind == ir.ConstInt && op.Int == 0 {
			return ir.Const{Kind: ir.ConstNull, Type: canon}, true
		}
		src := op
		return ir.Const{Kind: ir.ConstCast, Type: canon, Cast: ir.CastIntToPtr, Src: &src}, true
	case ast.CastPointerToInt:
		src := op
		return ir.Const{Kind: ir.ConstCast, Type: canon, Cast: ir.CastPtrToInt, Src: &src}, true
	case ast.CastPointer:
		if op.Kind == ir.ConstInt && op.Int == 0 {
			return ir.Const{Kind: ir.ConstNull, Type: canon}, true
		}
		op.Type = canon
		return op, true
	}
	return ir.Const{}, false
}
