package ir

import (
	"cinder/internal/source"
	"cinder/internal/types"
)

// Builder is the emission sink of the lowering pass. The default
// implementation appends to a Func; tests substitute a recorder.
type Builder interface {
	// NewBlock appends an empty block. The first block created is the
	// function entry.
	NewBlock(name string) BlockID
	// SetInsertPoint moves emission to the end of bb.
	SetInsertPoint(bb BlockID)
	// InsertBlock returns the current insertion block.
	InsertBlock() BlockID
	// Terminated reports whether the insertion block already ends in
	// a terminator.
	Terminated() bool

	ConstInt(t types.TypeID, v int64) ValueID
	ConstFloat(t types.TypeID, v float64) ValueID
	Null(t types.TypeID) ValueID
	GlobalAddr(g GlobalID, t types.TypeID) ValueID
	FuncAddr(f FuncID, t types.TypeID) ValueID
	Arg(index int) ValueID

	// StaticAlloca inserts at the function's alloca insertion point in
	// the entry block, so every local dominates its uses.
	StaticAlloca(elem types.TypeID, ptr types.TypeID, align int32, span source.Span) ValueID
	// DynAlloca emits at the current point; used for variable-length
	// arrays.
	DynAlloca(elem types.TypeID, ptr types.TypeID, count ValueID, align int32, span source.Span) ValueID

	Bin(op BinOp, t types.TypeID, lhs, rhs ValueID, float, unsigned bool, span source.Span) ValueID
	Cmp(pred CmpPred, i1 types.TypeID, lhs, rhs ValueID, float, unsigned bool, span source.Span) ValueID
	Cast(op CastOp, t types.TypeID, src ValueID, span source.Span) ValueID
	FieldAddr(t types.TypeID, base ValueID, field int32, span source.Span) ValueID
	IndexAddr(t types.TypeID, base, index ValueID, span source.Span) ValueID
	Load(t types.TypeID, addr ValueID, volatile bool, span source.Span) ValueID
	Store(addr, val ValueID, volatile bool, span source.Span)
	Call(result types.TypeID, callee ValueID, args []ValueID, opts CallOpts, span source.Span) ValueID
	Intrinsic(id IntrinsicID, result types.TypeID, args []ValueID, span source.Span) ValueID
	Phi(t types.TypeID, edges []PhiEdge, span source.Span) ValueID
	Select(t types.TypeID, cond, then, els ValueID, span source.Span) ValueID

	Ret(v ValueID)
	RetVoid()
	Br(target BlockID)
	CondBr(cond ValueID, then, els BlockID)
	Switch(v ValueID, def BlockID, cases []SwitchCase)
	Unreachable()
}

// CallOpts carries the ABI classification of one call site.
type CallOpts struct {
	SRet    ValueID
	ByVal   []bool
	Coerced bool
}

// FuncBuilder emits into a Func. It is the production Builder.
type FuncBuilder struct {
	fn     *Func
	cur    BlockID
	// allocaAt is the number of instructions at the head of the entry
	// block reserved for static allocas.
	allocaAt int
}

// NewFuncBuilder wraps fn. The caller creates the entry block first.
func NewFuncBuilder(fn *Func) *FuncBuilder {
	return &FuncBuilder{fn: fn, cur: NoBlockID}
}

// Func returns the function under construction.
func (b *FuncBuilder) Func() *Func { return b.fn }

func (b *FuncBuilder) NewBlock(name string) BlockID {
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, Block{ID: id, Name: name})
	return id
}

func (b *FuncBuilder) SetInsertPoint(bb BlockID) { b.cur = bb }

func (b *FuncBuilder) InsertBlock() BlockID { return b.cur }

func (b *FuncBuilder) Terminated() bool {
	blk := b.fn.Block(b.cur)
	return blk == nil || blk.Terminated()
}

func (b *FuncBuilder) newValue(v Value) ValueID {
	id := ValueID(len(b.fn.Values))
	b.fn.Values = append(b.fn.Values, v)
	return id
}

func (b *FuncBuilder) ConstInt(t types.TypeID, v int64) ValueID {
	return b.newValue(Value{Kind: ValueConstInt, Type: t, Int: v})
}

func (b *FuncBuilder) ConstFloat(t types.TypeID, v float64) ValueID {
	return b.newValue(Value{Kind: ValueConstFloat, Type: t, Float: v})
}

func (b *FuncBuilder) Null(t types.TypeID) ValueID {
	return b.newValue(Value{Kind: ValueConstNull, Type: t})
}

func (b *FuncBuilder) GlobalAddr(g GlobalID, t types.TypeID) ValueID {
	return b.newValue(Value{Kind: ValueGlobal, Type: t, Global: g})
}

func (b *FuncBuilder) FuncAddr(f FuncID, t types.TypeID) ValueID {
	return b.newValue(Value{Kind: ValueFunc, Type: t, Fn: f})
}

func (b *FuncBuilder) Arg(index int) ValueID {
	if index < 0 || index >= len(b.fn.Params) {
		return NoValueID
	}
	return b.fn.Params[index].Value
}

// append places in at the end of the insertion block and registers
// its result value when the instruction defines one.
func (b *FuncBuilder) append(in Instr, hasResult bool) ValueID {
	blk := b.fn.Block(b.cur)
	if blk == nil || blk.Terminated() {
		// Emission after a terminator is dropped; the lowering pass
		// guards against it, the builder just stays safe.
		return NoValueID
	}
	if hasResult {
		in.Result = b.newValue(Value{
			Kind:  ValueInstr,
			Type:  in.Type,
			Block: blk.ID,
			Index: int32(len(blk.Instrs)),
		})
	} else {
		in.Result = NoValueID
	}
	blk.Instrs = append(blk.Instrs, in)
	return in.Result
}

func (b *FuncBuilder) StaticAlloca(elem, ptr types.TypeID, align int32, span source.Span) ValueID {
	entry := b.fn.Block(b.fn.Entry())
	if entry == nil {
		return NoValueID
	}
	at := int32(b.allocaAt)
	// Values defined at or after the insertion point in the entry
	// block shift down by one.
	for i := range b.fn.Values {
		v := &b.fn.Values[i]
		if v.Kind == ValueInstr && v.Block == entry.ID && v.Index >= at {
			v.Index++
		}
	}
	in := Instr{
		Kind:   InstrAlloca,
		Type:   ptr,
		Span:   span,
		Alloca: AllocaInstr{Elem: elem, Count: NoValueID, Align: align},
	}
	in.Result = b.newValue(Value{
		Kind:  ValueInstr,
		Type:  ptr,
		Block: entry.ID,
		Index: at,
	})
	entry.Instrs = append(entry.Instrs, Instr{})
	copy(entry.Instrs[b.allocaAt+1:], entry.Instrs[b.allocaAt:])
	entry.Instrs[b.allocaAt] = in
	b.allocaAt++
	return in.Result
}

func (b *FuncBuilder) DynAlloca(elem, ptr types.TypeID, count ValueID, align int32, span source.Span) ValueID {
	return b.append(Instr{
		Kind:   InstrAlloca,
		Type:   ptr,
		Span:   span,
		Alloca: AllocaInstr{Elem: elem, Count: count, Align: align},
	}, true)
}

func (b *FuncBuilder) Bin(op BinOp, t types.TypeID, lhs, rhs ValueID, float, unsigned bool, span source.Span) ValueID {
	return b.append(Instr{
		Kind: InstrBin,
		Type: t,
		Span: span,
		Bin:  BinInstr{Op: op, LHS: lhs, RHS: rhs, Float: float, Unsigned: unsigned},
	}, true)
}

func (b *FuncBuilder) Cmp(pred CmpPred, i1 types.TypeID, lhs, rhs ValueID, float, unsigned bool, span source.Span) ValueID {
	return b.append(Instr{
		Kind: InstrCmp,
		Type: i1,
		Span: span,
		Cmp:  CmpInstr{Pred: pred, LHS: lhs, RHS: rhs, Float: float, Unsigned: unsigned},
	}, true)
}

func (b *FuncBuilder) Cast(op CastOp, t types.TypeID, src ValueID, span source.Span) ValueID {
	return b.append(Instr{
		Kind: InstrCast,
		Type: t,
		Span: span,
		Cast: CastInstr{Op: op, Src: src},
	}, true)
}

func (b *FuncBuilder) FieldAddr(t types.TypeID, base ValueID, field int32, span source.Span) ValueID {
	return b.append(Instr{
		Kind:      InstrFieldAddr,
		Type:      t,
		Span:      span,
		FieldAddr: FieldAddrInstr{Base: base, Field: field},
	}, true)
}

func (b *FuncBuilder) IndexAddr(t types.TypeID, base, index ValueID, span source.Span) ValueID {
	return b.append(Instr{
		Kind:      InstrIndexAddr,
		Type:      t,
		Span:      span,
		IndexAddr: IndexAddrInstr{Base: base, Index: index},
	}, true)
}

func (b *FuncBuilder) Load(t types.TypeID, addr ValueID, volatile bool, span source.Span) ValueID {
	return b.append(Instr{
		Kind: InstrLoad,
		Type: t,
		Span: span,
		Load: LoadInstr{Addr: addr, Volatile: volatile},
	}, true)
}

func (b *FuncBuilder) Store(addr, val ValueID, volatile bool, span source.Span) {
	b.append(Instr{
		Kind:  InstrStore,
		Span:  span,
		Store: StoreInstr{Addr: addr, Val: val, Volatile: volatile},
	}, false)
}

func (b *FuncBuilder) Call(result types.TypeID, callee ValueID, args []ValueID, opts CallOpts, span source.Span) ValueID {
	hasResult := result != types.NoTypeID
	return b.append(Instr{
		Kind: InstrCall,
		Type: result,
		Span: span,
		Call: CallInstr{Callee: callee, Args: args, SRet: opts.SRet, ByVal: opts.ByVal, Coerced: opts.Coerced},
	}, hasResult)
}

func (b *FuncBuilder) Intrinsic(id IntrinsicID, result types.TypeID, args []ValueID, span source.Span) ValueID {
	hasResult := result != types.NoTypeID
	return b.append(Instr{
		Kind:      InstrIntrinsic,
		Type:      result,
		Span:      span,
		Intrinsic: IntrinsicInstr{ID: id, Args: args},
	}, hasResult)
}

func (b *FuncBuilder) Phi(t types.TypeID, edges []PhiEdge, span source.Span) ValueID {
	return b.append(Instr{
		Kind: InstrPhi,
		Type: t,
		Span: span,
		Phi:  PhiInstr{Edges: edges},
	}, true)
}

func (b *FuncBuilder) Select(t types.TypeID, cond, then, els ValueID, span source.Span) ValueID {
	return b.append(Instr{
		Kind:   InstrSelect,
		Type:   t,
		Span:   span,
		Select: SelectInstr{Cond: cond, Then: then, Else: els},
	}, true)
}

func (b *FuncBuilder) terminate(t Terminator) {
	blk := b.fn.Block(b.cur)
	if blk == nil || blk.Terminated() {
		return
	}
	blk.Term = t
}

func (b *FuncBuilder) Ret(v ValueID) {
	b.terminate(Terminator{Kind: TermRet, Ret: RetTerm{HasValue: true, Value: v}})
}

func (b *FuncBuilder) RetVoid() {
	b.terminate(Terminator{Kind: TermRet})
}

func (b *FuncBuilder) Br(target BlockID) {
	b.terminate(Terminator{Kind: TermBr, Br: BrTerm{Target: target}})
}

func (b *FuncBuilder) CondBr(cond ValueID, then, els BlockID) {
	b.terminate(Terminator{Kind: TermCondBr, CondBr: CondBrTerm{Cond: cond, Then: then, Else: els}})
}

func (b *FuncBuilder) Switch(v ValueID, def BlockID, cases []SwitchCase) {
	b.terminate(Terminator{Kind: TermSwitch, Switch: SwitchTerm{Value: v, Default: def, Cases: cases}})
}

func (b *FuncBuilder) Unreachable() {
	b.terminate(Terminator{Kind: TermUnreachable})
}
