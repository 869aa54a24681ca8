package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/ir"
	"cinder/internal/names"
	"cinder/internal/types"
)

// loopFrame is one entry of the break/continue target stack.
type loopFrame struct {
	brk  ir.BlockID
	cont ir.BlockID
}

// rangeCase is a GNU case-range entry; it lowers to a comparison chain
// off the switch default edge.
type rangeCase struct {
	lo, hi int64
	target ir.BlockID
}

// switchFrame collects case destinations while the body is lowered.
type switchFrame struct {
	dispatch ir.BlockID // block that receives the switch terminator
	after    ir.BlockID
	cond     ir.ValueID
	condType types.TypeID
	cases    []ir.SwitchCase
	ranges   []rangeCase
	def      ir.BlockID
}

// lowering is the per-function state.
type lowering struct {
	g  *Generator
	b  ir.Builder
	fn *ir.Func

	locals map[ast.DeclID]ir.ValueID
	labels map[*names.Identifier]ir.BlockID

	loops    []loopFrame
	switches []*switchFrame

	// Single-return design: stores target the slot, then branch to
	// exit, which performs the only ret. For sret functions the slot
	// is the hidden result pointer.
	retSlot  ir.ValueID
	resCanon types.TypeID
	exit     ir.BlockID

	// vla stack-save values per open scope; restored on scope exit.
	vlaSaves [][]ir.ValueID
}

func (g *Generator) lowerFunc(fid ir.FuncID, declID ast.DeclID) {
	d := g.Unit.Decl(declID)
	fn := g.Module.Func(fid)
	fn.Decl = declID
	fn.Span = d.Span

	l := &lowering{
		g:      g,
		fn:     fn,
		locals: make(map[ast.DeclID]ir.ValueID),
		labels: make(map[*names.Identifier]ir.BlockID),
	}
	var b ir.Builder = ir.NewFuncBuilder(fn)
	if g.BuilderHook != nil {
		b = g.BuilderHook(fn, b)
	}
	l.b = b

	entry := b.NewBlock("entry")
	b.SetInsertPoint(entry)

	l.resCanon = g.resultType(g.Unit.Types.Canonical(d.Type.Type))
	l.setupParams(d)
	l.setupReturn(d)

	l.stmt(d.Fn.Body)

	// Fall off the end of the body.
	if !b.Terminated() {
		b.Br(l.exit)
	}
	b.SetInsertPoint(l.exit)
	switch {
	case fn.SRet || !l.retSlot.IsValid():
		b.RetVoid()
	case fn.Result != l.resCanon:
		// Coerced small-record return: reread the slot as the register
		// integer.
		slot := b.Cast(ir.CastBit, g.ptrTo(types.MakeQual(fn.Result)), l.retSlot, d.Span)
		b.Ret(b.Load(fn.Result, slot, false, d.Span))
	default:
		b.Ret(b.Load(fn.Result, l.retSlot, false, d.Span))
	}
}

// setupParams materializes every parameter: scalars are stored into a
// fresh alloca so their address exists; by-value aggregates arrive as
// pointers to caller copies and are used in place.
func (l *lowering) setupParams(d *ast.Decl) {
	tys := l.g.Unit.Types
	argBase := 0
	if l.fn.SRet {
		// Hidden first argument: the caller's result slot.
		ptr := l.g.ptrTo(types.MakeQual(l.resCanon))
		av := ir.ValueID(len(l.fn.Values))
		l.fn.Values = append(l.fn.Values, ir.Value{Kind: ir.ValueArg, Type: ptr, Arg: 0})
		l.fn.Params = append(l.fn.Params, ir.Param{Name: "sret", Type: ptr, Value: av})
		l.retSlot = av
		argBase = 1
	}
	for i, pid := range d.Fn.Params {
		pd := l.g.Unit.Decl(pid)
		if pd == nil {
			continue
		}
		canon := tys.Canonical(pd.Type.Type)
		byval := l.g.passedByValPointer(canon)
		ptr := l.g.ptrTo(types.MakeQual(canon))

		argType := canon
		if byval {
			argType = ptr
		}
		av := ir.ValueID(len(l.fn.Values))
		l.fn.Values = append(l.fn.Values, ir.Value{Kind: ir.ValueArg, Type: argType, Arg: int32(argBase + i)})
		l.fn.Params = append(l.fn.Params, ir.Param{
			Name:  pd.Name.String(),
			Type:  argType,
			Value: av,
			ByVal: byval,
		})

		if byval {
			// Already a pointer to the caller's copy.
			l.locals[pid] = av
			continue
		}
		slot := l.b.StaticAlloca(canon, ptr, l.alignOf(canon), pd.Span)
		l.b.Store(slot, av, false, pd.Span)
		l.locals[pid] = slot
	}
}

func (l *lowering) alignOf(t types.TypeID) int32 {
	info, err := l.g.Layout.Of(t)
	if err != nil {
		return 8
	}
	return int32(info.Align)
}

func (l *lowering) setupReturn(d *ast.Decl) {
	tys := l.g.Unit.Types
	switch {
	case l.fn.SRet:
		// retSlot is the hidden argument.
	case l.resCanon == types.NoTypeID || tys.IsVoid(l.resCanon):
		l.retSlot = ir.NoValueID
	default:
		ptr := l.g.ptrTo(types.MakeQual(l.resCanon))
		l.retSlot = l.b.StaticAlloca(l.resCanon, ptr, l.alignOf(l.resCanon), d.Span)
	}
	l.exit = l.b.NewBlock("exit")
}

// startBlock moves emission to bb, first closing the current block
// with a fallthrough branch if it is still open.
func (l *lowering) startBlock(bb ir.BlockID) {
	if !l.b.Terminated() {
		l.b.Br(bb)
	}
	l.b.SetInsertPoint(bb)
}

// deadBlock opens a block for statically unreachable code.
func (l *lowering) deadBlock(name string) ir.BlockID {
	bb := l.b.NewBlock(name)
	if blk := l.fn.Block(bb); blk != nil {
		blk.Dead = true
	}
	return bb
}

// ensureOpen gives trailing statements after a terminator somewhere to
// lower into.
func (l *lowering) ensureOpen() {
	if l.b.Terminated() {
		l.b.SetInsertPoint(l.deadBlock("dead"))
	}
}

func (l *lowering) pushLoop(brk, cont ir.BlockID) {
	l.loops = append(l.loops, loopFrame{brk: brk, cont: cont})
}

func (l *lowering) popLoop() {
	l.loops = l.loops[:len(l.loops)-1]
}

// labelBlock returns the block of a source label, creating it on first
// reference. Forward gotos resolve through the same map, so no
// terminator patching is needed.
func (l *lowering) labelBlock(name *names.Identifier) ir.BlockID {
	if bb, ok := l.labels[name]; ok {
		return bb
	}
	bb := l.b.NewBlock("label." + name.Text)
	l.labels[name] = bb
	return bb
}

// passedByValPointer reports aggregate types that travel as pointers
// to caller-materialized copies.
func (g *Generator) passedByValPointer(canon types.TypeID) bool {
	tys := g.Unit.Types
	return tys.IsRecord(canon) || tys.IsArray(canon) || tys.IsComplex(canon)
}
