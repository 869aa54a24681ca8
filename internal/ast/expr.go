package ast

import (
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIntLit
	ExprFloatLit
	ExprCharLit
	ExprStringLit
	ExprDeclRef
	ExprParen
	ExprUnary
	ExprBinary
	ExprConditional
	ExprCall
	ExprMember
	ExprIndex
	ExprCast         // explicit cast
	ExprImplicitCast // inserted by the analyzer
	ExprSizeOf
	ExprInitList
)

// ValueCategory of an expression.
type ValueCategory uint8

const (
	VCRValue ValueCategory = iota
	VCLValue
	VCBitField // lvalue that designates a bit-field
)

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnPlus UnaryOp = iota
	UnMinus
	UnNot  // ~
	UnLNot // !
	UnDeref
	UnAddrOf
	UnPreInc
	UnPreDec
	UnPostInc
	UnPostDec
)

// BinaryOp enumerates binary operators, compound assignments included.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinShl
	BinShr
	BinAnd
	BinOr
	BinXor
	BinLT
	BinGT
	BinLE
	BinGE
	BinEQ
	BinNE
	BinLAnd
	BinLOr
	BinComma
	BinAssign
	BinAddAssign
	BinSubAssign
	BinMulAssign
	BinDivAssign
	BinRemAssign
	BinShlAssign
	BinShrAssign
	BinAndAssign
	BinOrAssign
	BinXorAssign
)

// IsAssignment reports plain and compound assignment operators.
func (op BinaryOp) IsAssignment() bool {
	return op >= BinAssign
}

// IsComparison reports the relational and equality operators.
func (op BinaryOp) IsComparison() bool {
	return op >= BinLT && op <= BinNE
}

// CastKind classifies the conversion an implicit or explicit cast performs.
type CastKind uint8

const (
	CastNoop CastKind = iota
	CastBitCast
	CastLValueToRValue
	CastArrayToPointer
	CastFunctionToPointer
	CastIntegral
	CastFloating
	CastIntToFloat
	CastFloatToInt
	CastToBool
	CastPointer
	CastIntToPointer
	CastPointerToInt
	CastDerivedToBase
	CastMemberPointer
	CastQualification
	CastRealToComplex
)

// IntLitExpr carries integer and character literals.
type IntLitExpr struct {
	Value    uint64
	Negative bool
}

// FloatLitExpr keeps the literal text as the source of truth alongside the
// parsed value.
type FloatLitExpr struct {
	Text  string
	Value float64
}

// StringLitExpr carries string literals by interned value, so identical
// literals can share one IR global.
type StringLitExpr struct {
	Value source.StringID
	Wide  bool
}

// DeclRefExpr references a declaration by stable handle.
type DeclRefExpr struct {
	Decl DeclID
}

// ParenExpr wraps a parenthesized subexpression.
type ParenExpr struct {
	Operand ExprID
}

// UnaryExpr is a unary operation.
type UnaryExpr struct {
	Op      UnaryOp
	Operand ExprID
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Op    BinaryOp
	Left  ExprID
	Right ExprID
}

// ConditionalExpr is cond ? then : else.
type ConditionalExpr struct {
	Cond ExprID
	Then ExprID
	Else ExprID
}

// CallExpr is a call. Builtin is non-zero when the callee resolved to a
// target builtin; lowering dispatches on it.
type CallExpr struct {
	Callee  ExprID
	Args    []ExprID
	Builtin target.BuiltinID
}

// MemberExpr is base.field or base->field.
type MemberExpr struct {
	Base  ExprID
	Field DeclID
	Arrow bool
}

// IndexExpr is base[index].
type IndexExpr struct {
	Base  ExprID
	Index ExprID
}

// CastExpr serves both explicit and implicit casts.
type CastExpr struct {
	Cast    CastKind
	Operand ExprID
}

// SizeOfExpr is sizeof/alignof over a type or an expression.
type SizeOfExpr struct {
	OfType    types.QualType
	Operand   ExprID
	IsAlignOf bool
}

// InitListExpr is a braced initializer list.
type InitListExpr struct {
	Elems []ExprID
}

// Expr is an expression node. Type and VC are filled by the semantic
// analyzer; Invalid poisons the containing declaration.
type Expr struct {
	Kind    ExprKind
	Type    types.QualType
	VC      ValueCategory
	Span    source.Span
	Invalid bool

	Int    IntLitExpr
	Float  FloatLitExpr
	Str    StringLitExpr
	Ref    DeclRefExpr
	Paren  ParenExpr
	Unary  UnaryExpr
	Binary BinaryExpr
	Cond   ConditionalExpr
	Call   CallExpr
	Member MemberExpr
	Index  IndexExpr
	Cast   CastExpr
	Size   SizeOfExpr
	Init   InitListExpr
}

// OperatorOfBinary maps a binary operator to the operator-function name kind
// used when building C++ operator overload candidates.
func OperatorOfBinary(op BinaryOp) names.OperatorKind {
	switch op {
	case BinAdd, BinAddAssign:
		return names.OpPlus
	case BinSub, BinSubAssign:
		return names.OpMinus
	case BinMul, BinMulAssign:
		return names.OpStar
	case BinDiv, BinDivAssign:
		return names.OpSlash
	case BinRem, BinRemAssign:
		return names.OpPercent
	case BinShl, BinShlAssign:
		return names.OpLessLess
	case BinShr, BinShrAssign:
		return names.OpGreaterGreater
	case BinAnd, BinAndAssign:
		return names.OpAmp
	case BinOr, BinOrAssign:
		return names.OpPipe
	case BinXor, BinXorAssign:
		return names.OpCaret
	case BinLT:
		return names.OpLess
	case BinGT:
		return names.OpGreater
	case BinLE:
		return names.OpLessEqual
	case BinGE:
		return names.OpGreaterEqual
	case BinEQ:
		return names.OpEqualEqual
	case BinNE:
		return names.OpExclaimEqual
	case BinLAnd:
		return names.OpAmpAmp
	case BinLOr:
		return names.OpPipePipe
	case BinAssign:
		return names.OpEqual
	default:
		return names.OpNone
	}
}
