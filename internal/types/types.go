package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// DeclRef is an opaque handle to the declaration that introduced a nominal
// type (record, enum, typedef). The AST layer supplies it; the type system
// never looks inside. Recursion in the type graph goes through these handles
// rather than structural cycles.
type DeclRef uint32

const NoDeclRef DeclRef = 0

// ExprRef is an opaque handle to an expression, used by variable-length
// array types and typeof(expr).
type ExprRef uint32

const NoExprRef ExprRef = 0

// Kind enumerates all supported shapes of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBuiltin
	KindComplex
	KindPointer
	KindReference
	KindMemberPointer
	KindConstantArray
	KindIncompleteArray
	KindVariableArray
	KindVector
	KindExtVector
	KindFunction
	KindRecord
	KindEnum
	KindTypedef
	KindTypeOfExpr
	KindTypeOfType
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindBuiltin:
		return "builtin"
	case KindComplex:
		return "complex"
	case KindPointer:
		return "pointer"
	case KindReference:
		return "reference"
	case KindMemberPointer:
		return "member-pointer"
	case KindConstantArray:
		return "constant-array"
	case KindIncompleteArray:
		return "incomplete-array"
	case KindVariableArray:
		return "variable-array"
	case KindVector:
		return "vector"
	case KindExtVector:
		return "ext-vector"
	case KindFunction:
		return "function"
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	case KindTypedef:
		return "typedef"
	case KindTypeOfExpr:
		return "typeof-expr"
	case KindTypeOfType:
		return "typeof-type"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// BuiltinKind is the payload of KindBuiltin types.
type BuiltinKind uint8

const (
	BuiltinVoid BuiltinKind = iota
	BuiltinBool
	BuiltinChar // plain char; signedness comes from the target
	BuiltinSChar
	BuiltinUChar
	BuiltinShort
	BuiltinUShort
	BuiltinInt
	BuiltinUInt
	BuiltinLong
	BuiltinULong
	BuiltinLongLong
	BuiltinULongLong
	BuiltinFloat
	BuiltinDouble
	BuiltinLongDouble
)

func (k BuiltinKind) String() string {
	switch k {
	case BuiltinVoid:
		return "void"
	case BuiltinBool:
		return "_Bool"
	case BuiltinChar:
		return "char"
	case BuiltinSChar:
		return "signed char"
	case BuiltinUChar:
		return "unsigned char"
	case BuiltinShort:
		return "short"
	case BuiltinUShort:
		return "unsigned short"
	case BuiltinInt:
		return "int"
	case BuiltinUInt:
		return "unsigned int"
	case BuiltinLong:
		return "long"
	case BuiltinULong:
		return "unsigned long"
	case BuiltinLongLong:
		return "long long"
	case BuiltinULongLong:
		return "unsigned long long"
	case BuiltinFloat:
		return "float"
	case BuiltinDouble:
		return "double"
	case BuiltinLongDouble:
		return "long double"
	default:
		return fmt.Sprintf("BuiltinKind(%d)", k)
	}
}

// IsInteger reports whether the builtin is an integer type (bool and the
// char flavors included).
func (k BuiltinKind) IsInteger() bool {
	return k >= BuiltinBool && k <= BuiltinULongLong
}

// IsFloating reports float, double, long double.
func (k BuiltinKind) IsFloating() bool {
	return k >= BuiltinFloat && k <= BuiltinLongDouble
}

// IsSignedInteger reports signed integer builtins; plain char counts as
// signed only when the target says so, which the caller decides.
func (k BuiltinKind) IsSignedInteger() bool {
	switch k {
	case BuiltinSChar, BuiltinShort, BuiltinInt, BuiltinLong, BuiltinLongLong:
		return true
	}
	return false
}

// IsUnsignedInteger reports unsigned integer builtins.
func (k BuiltinKind) IsUnsignedInteger() bool {
	switch k {
	case BuiltinBool, BuiltinUChar, BuiltinUShort, BuiltinUInt, BuiltinULong, BuiltinULongLong:
		return true
	}
	return false
}

// Type is a compact descriptor for any supported type. Variable-length
// payloads (function parameter lists, record fields) live in side tables
// addressed by Payload.
type Type struct {
	Kind    Kind
	Builtin BuiltinKind // KindBuiltin
	Elem    QualType    // pointee / element / referenced / complex element / member pointee / typeof(type) payload
	Count   uint32      // constant arrays, vectors
	Addr    uint8       // address space for pointers
	Class   TypeID      // member pointers: the class type
	Decl    DeclRef     // nominal kinds: record / enum / typedef
	Size    ExprRef     // variable arrays: size expression; typeof(expr): the expression
	Payload uint32      // side-table slot for function/record/enum/typedef info
}

// RecordTag distinguishes the class-key of a record declaration.
type RecordTag uint8

const (
	TagStruct RecordTag = iota
	TagUnion
	TagClass
)

func (t RecordTag) String() string {
	switch t {
	case TagUnion:
		return "union"
	case TagClass:
		return "class"
	default:
		return "struct"
	}
}
