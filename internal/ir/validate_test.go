package ir

import (
	"strings"
	"testing"

	"cinder/internal/source"
	"cinder/internal/types"
)

func newTestFunc(t *testing.T) (*Func, types.Builtins) {
	t.Helper()
	in := types.NewInterner()
	b := in.Builtins()
	m := NewModule("test")
	fn := m.AddFunc("f", 0, in.Function(types.MakeQual(b.Int), nil, false), b.Int, source.Span{})
	return fn, b
}

func TestBuilderReturnsConstant(t *testing.T) {
	fn, bt := newTestFunc(t)
	b := NewFuncBuilder(fn)

	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)
	b.Ret(b.ConstInt(bt.Int, 42))

	if err := ValidateFunc(fn); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if fn.Blocks[0].Term.Kind != TermRet || !fn.Blocks[0].Term.Ret.HasValue {
		t.Fatalf("bad terminator: %+v", fn.Blocks[0].Term)
	}
}

func TestStaticAllocaHoistsToEntryHead(t *testing.T) {
	fn, bt := newTestFunc(t)
	b := NewFuncBuilder(fn)

	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)
	one := b.ConstInt(bt.Int, 1)
	sum := b.Bin(BinAdd, bt.Int, one, one, false, false, source.Span{})
	slot := b.StaticAlloca(bt.Int, bt.Int, 32, source.Span{})
	b.Ret(sum)

	if fn.Blocks[0].Instrs[0].Kind != InstrAlloca {
		t.Fatalf("alloca must move to the entry head, got %v", fn.Blocks[0].Instrs[0].Kind)
	}
	if got := fn.Value(slot); got.Index != 0 {
		t.Fatalf("alloca value index = %d, want 0", got.Index)
	}
	// The instruction emitted before the hoist shifts down by one.
	if got := fn.Value(sum); got.Index != 1 {
		t.Fatalf("shifted value index = %d, want 1", got.Index)
	}
}

func TestEmissionAfterTerminatorIsDropped(t *testing.T) {
	fn, bt := newTestFunc(t)
	b := NewFuncBuilder(fn)

	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)
	b.Ret(b.ConstInt(bt.Int, 0))
	if !b.Terminated() {
		t.Fatalf("block must report terminated")
	}
	if got := b.Bin(BinAdd, bt.Int, 0, 0, false, false, source.Span{}); got.IsValid() {
		t.Fatalf("emission after ret must be dropped, got v%d", got)
	}
	if len(fn.Blocks[0].Instrs) != 0 {
		t.Fatalf("dead instruction reached the block")
	}
}

func TestValidateUnterminatedBlock(t *testing.T) {
	fn, _ := newTestFunc(t)
	b := NewFuncBuilder(fn)
	b.SetInsertPoint(b.NewBlock("entry"))

	err := ValidateFunc(fn)
	if err == nil || !strings.Contains(err.Error(), "not terminated") {
		t.Fatalf("want unterminated-block error, got %v", err)
	}
}

func TestValidateMissingBranchTarget(t *testing.T) {
	fn, _ := newTestFunc(t)
	b := NewFuncBuilder(fn)
	b.SetInsertPoint(b.NewBlock("entry"))
	b.Br(BlockID(7))

	err := ValidateFunc(fn)
	if err == nil || !strings.Contains(err.Error(), "missing block") {
		t.Fatalf("want missing-target error, got %v", err)
	}
}

func TestValidateOrphanBlock(t *testing.T) {
	fn, bt := newTestFunc(t)
	b := NewFuncBuilder(fn)

	entry := b.NewBlock("entry")
	orphan := b.NewBlock("orphan")
	b.SetInsertPoint(entry)
	b.Ret(b.ConstInt(bt.Int, 0))
	b.SetInsertPoint(orphan)
	b.Ret(b.ConstInt(bt.Int, 1))

	err := ValidateFunc(fn)
	if err == nil || !strings.Contains(err.Error(), "no predecessors") {
		t.Fatalf("want orphan-block error, got %v", err)
	}
}

func TestValidateAcceptsUnreachableOrphan(t *testing.T) {
	fn, bt := newTestFunc(t)
	b := NewFuncBuilder(fn)

	entry := b.NewBlock("entry")
	dead := b.NewBlock("dead")
	b.SetInsertPoint(entry)
	b.Ret(b.ConstInt(bt.Int, 0))
	b.SetInsertPoint(dead)
	b.Unreachable()

	if err := ValidateFunc(fn); err != nil {
		t.Fatalf("unreachable orphan must pass: %v", err)
	}
}

func TestValidateOperandRange(t *testing.T) {
	fn, bt := newTestFunc(t)
	b := NewFuncBuilder(fn)
	b.SetInsertPoint(b.NewBlock("entry"))
	b.Bin(BinAdd, bt.Int, ValueID(99), ValueID(100), false, false, source.Span{})
	b.RetVoid()

	err := ValidateFunc(fn)
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("want operand-range error, got %v", err)
	}
}

func TestStringGlobalsShared(t *testing.T) {
	in := types.NewInterner()
	bt := in.Builtins()
	arr := in.ConstantArray(types.MakeQual(bt.Char), 6)
	m := NewModule("test")

	a := m.InternString("hello", arr, source.Span{})
	b := m.InternString("hello", arr, source.Span{})
	c := m.InternString("world", arr, source.Span{})
	if a != b {
		t.Fatalf("equal literals must share a global: G%d vs G%d", a, b)
	}
	if a == c {
		t.Fatalf("distinct literals must not share")
	}
	if g := m.Global(a); g.Linkage != LinkInternal || !g.Constant {
		t.Fatalf("literal global must be internal constant: %+v", g)
	}
}
