package ir

import (
	"cinder/internal/ast"
	"cinder/internal/source"
	"cinder/internal/types"
)

// Param is one function parameter. Value is the argument's SSA value;
// ByVal marks pointers to caller-materialized aggregate copies.
type Param struct {
	Name  string
	Type  types.TypeID
	Value ValueID
	ByVal bool
}

// Func is one lowered function. The first block in Blocks is the
// entry. Values is the function's SSA value arena; ValueIDs index it.
type Func struct {
	ID   FuncID
	Decl ast.DeclID
	Name string
	Span source.Span

	Type   types.TypeID // the function type
	Result types.TypeID
	// SRet is set when the result is returned through a hidden pointer
	// argument instead of registers.
	SRet bool

	Params []Param
	Blocks []Block
	Values []Value
}

// Entry returns the entry block id.
func (f *Func) Entry() BlockID {
	if f == nil || len(f.Blocks) == 0 {
		return NoBlockID
	}
	return f.Blocks[0].ID
}

// Block returns the block with the given id, nil if out of range.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// Value returns the value with the given id, zero Value if invalid.
func (f *Func) Value(id ValueID) Value {
	if f == nil || id < 0 || int(id) >= len(f.Values) {
		return Value{}
	}
	return f.Values[id]
}
