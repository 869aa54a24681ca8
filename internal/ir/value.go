package ir

import (
	"cinder/internal/types"
)

// ValueKind distinguishes the ways an SSA value comes into being.
type ValueKind uint8

const (
	// ValueInvalid is the zero value; it never appears in well-formed IR.
	ValueInvalid ValueKind = iota
	// ValueConstInt is an integer constant.
	ValueConstInt
	// ValueConstFloat is a floating-point constant.
	ValueConstFloat
	// ValueConstNull is a null pointer constant.
	ValueConstNull
	// ValueGlobal is the address of a module global.
	ValueGlobal
	// ValueFunc is the address of a module function.
	ValueFunc
	// ValueArg is a function argument.
	ValueArg
	// ValueInstr is the result of an instruction.
	ValueInstr
)

// Value is one SSA value of a function. Values live in the owning
// function's arena and are referenced by ValueID.
type Value struct {
	Kind ValueKind
	Type types.TypeID

	Int    int64    // ValueConstInt
	Float  float64  // ValueConstFloat
	Global GlobalID // ValueGlobal
	Fn     FuncID   // ValueFunc
	Arg    int32    // ValueArg: parameter index
	Block  BlockID  // ValueInstr: defining block
	Index  int32    // ValueInstr: instruction index within Block
}

// ConstKind distinguishes folded global-initializer constants.
type ConstKind uint8

const (
	ConstInvalid ConstKind = iota
	ConstInt
	ConstFloat
	ConstNull
	// ConstString is a string-literal body; the driver materializes it
	// as an internal-linkage global shared by literal value.
	ConstString
	// ConstAggregate is a braced initializer; trailing elements not
	// listed are implicitly zero.
	ConstAggregate
	// ConstGlobalAddr is the address of a global, with byte offset.
	ConstGlobalAddr
	// ConstCast wraps another constant in a compile-time conversion.
	ConstCast
)

// Const is a folded compile-time constant. Global initializers are
// trees of Const; no runtime emission is involved.
type Const struct {
	Kind ConstKind
	Type types.TypeID

	Int    int64
	Float  float64
	Str    string
	Elems  []Const
	Global GlobalID
	Offset int64
	Cast   CastOp
	Src    *Const
}

// IsZero reports whether the constant is all-zero bits, so emitters
// can fold it into zero-fill.
func (c Const) IsZero() bool {
	switch c.Kind {
	case ConstInt:
		return c.Int == 0
	case ConstFloat:
		return c.Float == 0
	case ConstNull:
		return true
	case ConstAggregate:
		for _, e := range c.Elems {
			if !e.IsZero() {
				return false
			}
		}
		return true
	default:
		return false
	}
}
