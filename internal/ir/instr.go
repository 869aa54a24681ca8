package ir

import (
	"cinder/internal/source"
	"cinder/internal/types"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrAlloca reserves stack storage for one object.
	InstrAlloca InstrKind = iota
	// InstrBin is a two-operand arithmetic or bitwise instruction.
	InstrBin
	// InstrCmp compares two operands and produces an i1.
	InstrCmp
	// InstrCast converts a value between representations.
	InstrCast
	// InstrFieldAddr computes the address of a record field.
	InstrFieldAddr
	// InstrIndexAddr computes the address of an array element.
	InstrIndexAddr
	// InstrLoad reads through a pointer.
	InstrLoad
	// InstrStore writes through a pointer.
	InstrStore
	// InstrCall invokes a function.
	InstrCall
	// InstrPhi merges values arriving from predecessor blocks.
	InstrPhi
	// InstrIntrinsic is a target intrinsic selected by enum id.
	InstrIntrinsic
	// InstrSelect picks one of two values by an i1 condition.
	InstrSelect
)

// BinOp is the operator of an InstrBin.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
)

// CmpPred is the predicate of an InstrCmp.
type CmpPred uint8

const (
	CmpEQ CmpPred = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

// CastOp enumerates value conversions.
type CastOp uint8

const (
	CastBit CastOp = iota
	CastTrunc
	CastZExt
	CastSExt
	CastFPTrunc
	CastFPExt
	CastFPToSI
	CastFPToUI
	CastSIToFP
	CastUIToFP
	CastPtrToInt
	CastIntToPtr
)

// IntrinsicID enumerates target intrinsics.
type IntrinsicID uint8

const (
	IntrNone IntrinsicID = iota
	IntrBswap
	IntrCtz
	IntrClz
	IntrPopcount
	IntrMemcpy
	IntrMemset
	IntrVAStart
	IntrVAEnd
	IntrVACopy
	IntrSetjmp
	IntrLongjmp
	IntrFence
	IntrAtomicLoad
	IntrAtomicStore
	IntrAtomicXchg
	IntrAtomicAdd
	IntrAtomicSub
	IntrAtomicAnd
	IntrAtomicOr
	IntrAtomicXor
	IntrAtomicCmpXchg
	IntrPrefetch
	IntrStackSave
	IntrStackRestore
	IntrTrap
)

var intrinsicNames = [...]string{
	IntrNone:          "none",
	IntrBswap:         "bswap",
	IntrCtz:           "ctz",
	IntrClz:           "clz",
	IntrPopcount:      "popcount",
	IntrMemcpy:        "memcpy",
	IntrMemset:        "memset",
	IntrVAStart:       "va_start",
	IntrVAEnd:         "va_end",
	IntrVACopy:        "va_copy",
	IntrSetjmp:        "setjmp",
	IntrLongjmp:       "longjmp",
	IntrFence:         "fence",
	IntrAtomicLoad:    "atomic.load",
	IntrAtomicStore:   "atomic.store",
	IntrAtomicXchg:    "atomic.xchg",
	IntrAtomicAdd:     "atomic.add",
	IntrAtomicSub:     "atomic.sub",
	IntrAtomicAnd:     "atomic.and",
	IntrAtomicOr:      "atomic.or",
	IntrAtomicXor:     "atomic.xor",
	IntrAtomicCmpXchg: "atomic.cmpxchg",
	IntrPrefetch:      "prefetch",
	IntrStackSave:     "stacksave",
	IntrStackRestore:  "stackrestore",
	IntrTrap:          "trap",
}

func (id IntrinsicID) String() string {
	if int(id) < len(intrinsicNames) {
		return intrinsicNames[id]
	}
	return "intrinsic?"
}

// AllocaInstr reserves storage for one object of Elem type. Count is
// the element count for variable-length arrays, NoValueID otherwise.
type AllocaInstr struct {
	Elem  types.TypeID
	Count ValueID
	Align int32 // bits
}

// BinInstr is a binary arithmetic instruction. Float selects the
// floating-point form; Unsigned selects unsigned division, remainder
// and shift semantics.
type BinInstr struct {
	Op       BinOp
	LHS, RHS ValueID
	Float    bool
	Unsigned bool
}

// CmpInstr compares LHS and RHS. The result type is i1.
type CmpInstr struct {
	Pred     CmpPred
	LHS, RHS ValueID
	Float    bool
	Unsigned bool
}

type CastInstr struct {
	Op  CastOp
	Src ValueID
}

// FieldAddrInstr computes &base->field. Field is the layout field
// index, not a byte offset.
type FieldAddrInstr struct {
	Base  ValueID
	Field int32
}

type IndexAddrInstr struct {
	Base  ValueID
	Index ValueID
}

type LoadInstr struct {
	Addr     ValueID
	Volatile bool
}

type StoreInstr struct {
	Addr     ValueID
	Val      ValueID
	Volatile bool
}

// CallInstr invokes Callee with Args. SRet, when valid, is the hidden
// first argument pointing at indirect-return storage; ByVal marks
// arguments that are pointers to by-value aggregate temporaries.
type CallInstr struct {
	Callee ValueID
	Args   []ValueID
	SRet   ValueID
	ByVal  []bool
	// Coerced is set when a small aggregate return is passed back in
	// an integer register of the same size.
	Coerced bool
}

// PhiEdge is one incoming value of a phi.
type PhiEdge struct {
	Value ValueID
	From  BlockID
}

type PhiInstr struct {
	Edges []PhiEdge
}

type IntrinsicInstr struct {
	ID   IntrinsicID
	Args []ValueID
}

type SelectInstr struct {
	Cond     ValueID
	Then     ValueID
	Else     ValueID
}

// Instr is one instruction. Result is the SSA value it defines, or
// NoValueID for instructions without a result (store, void call).
type Instr struct {
	Kind   InstrKind
	Result ValueID
	Type   types.TypeID
	Span   source.Span

	Alloca    AllocaInstr
	Bin       BinInstr
	Cmp       CmpInstr
	Cast      CastInstr
	FieldAddr FieldAddrInstr
	IndexAddr IndexAddrInstr
	Load      LoadInstr
	Store     StoreInstr
	Call      CallInstr
	Phi       PhiInstr
	Intrinsic IntrinsicInstr
	Select    SelectInstr
}
