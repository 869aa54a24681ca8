package ir

import (
	"fmt"

	"cinder/internal/source"
	"cinder/internal/types"
)

// Recorder is a Builder that wraps a FuncBuilder and additionally logs
// every emission as a line of text. Tests assert on the log to pin
// down lowering order without inspecting the IR structurally.
type Recorder struct {
	inner *FuncBuilder
	Log   []string
}

// NewRecorder records emissions into fn.
func NewRecorder(fn *Func) *Recorder {
	return &Recorder{inner: NewFuncBuilder(fn)}
}

// Func returns the function under construction.
func (r *Recorder) Func() *Func { return r.inner.Func() }

func (r *Recorder) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func (r *Recorder) NewBlock(name string) BlockID {
	id := r.inner.NewBlock(name)
	r.logf("block b%d %s", id, name)
	return id
}

func (r *Recorder) SetInsertPoint(bb BlockID) {
	r.inner.SetInsertPoint(bb)
	r.logf("insert b%d", bb)
}

func (r *Recorder) InsertBlock() BlockID { return r.inner.InsertBlock() }
func (r *Recorder) Terminated() bool     { return r.inner.Terminated() }

func (r *Recorder) ConstInt(t types.TypeID, v int64) ValueID {
	return r.inner.ConstInt(t, v)
}

func (r *Recorder) ConstFloat(t types.TypeID, v float64) ValueID {
	return r.inner.ConstFloat(t, v)
}

func (r *Recorder) Null(t types.TypeID) ValueID { return r.inner.Null(t) }

func (r *Recorder) GlobalAddr(g GlobalID, t types.TypeID) ValueID {
	return r.inner.GlobalAddr(g, t)
}

func (r *Recorder) FuncAddr(f FuncID, t types.TypeID) ValueID {
	return r.inner.FuncAddr(f, t)
}

func (r *Recorder) Arg(index int) ValueID { return r.inner.Arg(index) }

func (r *Recorder) StaticAlloca(elem, ptr types.TypeID, align int32, span source.Span) ValueID {
	id := r.inner.StaticAlloca(elem, ptr, align, span)
	r.logf("alloca v%d static", id)
	return id
}

func (r *Recorder) DynAlloca(elem, ptr types.TypeID, count ValueID, align int32, span source.Span) ValueID {
	id := r.inner.DynAlloca(elem, ptr, count, align, span)
	r.logf("alloca v%d dyn count=v%d", id, count)
	return id
}

func (r *Recorder) Bin(op BinOp, t types.TypeID, lhs, rhs ValueID, float, unsigned bool, span source.Span) ValueID {
	id := r.inner.Bin(op, t, lhs, rhs, float, unsigned, span)
	r.logf("bin v%d %s v%d v%d", id, binOpNames[op], lhs, rhs)
	return id
}

func (r *Recorder) Cmp(pred CmpPred, i1 types.TypeID, lhs, rhs ValueID, float, unsigned bool, span source.Span) ValueID {
	id := r.inner.Cmp(pred, i1, lhs, rhs, float, unsigned, span)
	r.logf("cmp v%d %s v%d v%d", id, cmpPredNames[pred], lhs, rhs)
	return id
}

func (r *Recorder) Cast(op CastOp, t types.TypeID, src ValueID, span source.Span) ValueID {
	id := r.inner.Cast(op, t, src, span)
	r.logf("cast v%d %s v%d", id, castOpNames[op], src)
	return id
}

func (r *Recorder) FieldAddr(t types.TypeID, base ValueID, field int32, span source.Span) ValueID {
	id := r.inner.FieldAddr(t, base, field, span)
	r.logf("fieldaddr v%d v%d.%d", id, base, field)
	return id
}

func (r *Recorder) IndexAddr(t types.TypeID, base, index ValueID, span source.Span) ValueID {
	id := r.inner.IndexAddr(t, base, index, span)
	r.logf("indexaddr v%d v%d[v%d]", id, base, index)
	return id
}

func (r *Recorder) Load(t types.TypeID, addr ValueID, volatile bool, span source.Span) ValueID {
	id := r.inner.Load(t, addr, volatile, span)
	if volatile {
		r.logf("load v%d v%d volatile", id, addr)
	} else {
		r.logf("load v%d v%d", id, addr)
	}
	return id
}

func (r *Recorder) Store(addr, val ValueID, volatile bool, span source.Span) {
	r.inner.Store(addr, val, volatile, span)
	if volatile {
		r.logf("store v%d <- v%d volatile", addr, val)
	} else {
		r.logf("store v%d <- v%d", addr, val)
	}
}

func (r *Recorder) Call(result types.TypeID, callee ValueID, args []ValueID, opts CallOpts, span source.Span) ValueID {
	id := r.inner.Call(result, callee, args, opts, span)
	suffix := ""
	if opts.SRet.IsValid() {
		suffix = " sret"
	}
	r.logf("call v%d callee=v%d args=%d%s", id, callee, len(args), suffix)
	return id
}

func (r *Recorder) Intrinsic(id IntrinsicID, result types.TypeID, args []ValueID, span source.Span) ValueID {
	v := r.inner.Intrinsic(id, result, args, span)
	r.logf("intrinsic %s args=%d", id, len(args))
	return v
}

func (r *Recorder) Phi(t types.TypeID, edges []PhiEdge, span source.Span) ValueID {
	id := r.inner.Phi(t, edges, span)
	r.logf("phi v%d edges=%d", id, len(edges))
	return id
}

func (r *Recorder) Select(t types.TypeID, cond, then, els ValueID, span source.Span) ValueID {
	id := r.inner.Select(t, cond, then, els, span)
	r.logf("select v%d v%d v%d v%d", id, cond, then, els)
	return id
}

func (r *Recorder) Ret(v ValueID) {
	r.inner.Ret(v)
	r.logf("ret v%d", v)
}

func (r *Recorder) RetVoid() {
	r.inner.RetVoid()
	r.logf("ret void")
}

func (r *Recorder) Br(target BlockID) {
	r.inner.Br(target)
	r.logf("br b%d", target)
}

func (r *Recorder) CondBr(cond ValueID, then, els BlockID) {
	r.inner.CondBr(cond, then, els)
	r.logf("condbr v%d b%d b%d", cond, then, els)
}

func (r *Recorder) Switch(v ValueID, def BlockID, cases []SwitchCase) {
	r.inner.Switch(v, def, cases)
	r.logf("switch v%d cases=%d default=b%d", v, len(cases), def)
}

func (r *Recorder) Unreachable() {
	r.inner.Unreachable()
	r.logf("unreachable")
}
