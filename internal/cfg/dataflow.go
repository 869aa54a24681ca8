package cfg

// Direction selects whether facts propagate with or against the flow
// of control.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// Analysis is one dataflow problem. V is the lattice value attached to
// block boundaries; Bottom is the identity of Join. Transfer maps the
// value across one element, in execution order for forward analyses
// and against it for backward ones. TransferTerm accounts for the
// block terminator, which is not an element.
type Analysis[V any] interface {
	Direction() Direction
	Bottom() V
	Join(a, b V) V
	Equal(a, b V) bool
	Transfer(el Element, v V) V
	TransferTerm(b *Block, v V) V
}

// Result holds the fixed point: one value per block boundary. In is
// the value at block entry, Out at block exit, regardless of
// direction.
type Result[V any] struct {
	In  []V
	Out []V
}

// Solve runs the worklist to a fixed point over the reachable part of
// the graph. Unreachable blocks keep Bottom on both sides.
func Solve[V any](g *Graph, a Analysis[V]) *Result[V] {
	n := len(g.Blocks)
	res := &Result[V]{In: make([]V, n), Out: make([]V, n)}
	for i := 0; i < n; i++ {
		res.In[i] = a.Bottom()
		res.Out[i] = a.Bottom()
	}

	queued := make([]bool, n)
	var work []BlockID
	push := func(id BlockID) {
		if !queued[id] {
			queued[id] = true
			work = append(work, id)
		}
	}
	for _, b := range g.Blocks {
		if b.Reachable {
			push(b.ID)
		}
	}

	backward := a.Direction() == Backward
	for len(work) > 0 {
		id := work[0]
		work = work[1:]
		queued[id] = false
		b := g.Blocks[id]

		if backward {
			out := a.Bottom()
			for _, s := range b.Succs {
				out = a.Join(out, res.In[s])
			}
			res.Out[id] = out
			in := transferBlock(a, b, out, true)
			if !a.Equal(in, res.In[id]) {
				res.In[id] = in
				for _, p := range b.Preds {
					push(p)
				}
			}
		} else {
			in := a.Bottom()
			for _, p := range b.Preds {
				in = a.Join(in, res.Out[p])
			}
			res.In[id] = in
			out := transferBlock(a, b, in, false)
			if !a.Equal(out, res.Out[id]) {
				res.Out[id] = out
				for _, s := range b.Succs {
					push(s)
				}
			}
		}
	}
	return res
}

// transferBlock folds the transfer function over a whole block. For
// backward problems the terminator applies first and the elements run
// last-to-first.
func transferBlock[V any](a Analysis[V], b *Block, v V, backward bool) V {
	if backward {
		v = a.TransferTerm(b, v)
		for i := len(b.Elems) - 1; i >= 0; i-- {
			v = a.Transfer(b.Elems[i], v)
		}
		return v
	}
	for _, el := range b.Elems {
		v = a.Transfer(el, v)
	}
	return a.TransferTerm(b, v)
}

// Observer receives the value holding immediately before an element in
// analysis order: the entry-side value for forward problems, the
// exit-side value for backward ones.
type Observer[V any] func(b *Block, el Element, v V)

// Observe replays the fixed point over every reachable block and calls
// obs per element with the pre-element value.
func Observe[V any](g *Graph, a Analysis[V], res *Result[V], obs Observer[V]) {
	backward := a.Direction() == Backward
	for _, b := range g.Blocks {
		if !b.Reachable {
			continue
		}
		if backward {
			v := a.TransferTerm(b, res.Out[b.ID])
			for i := len(b.Elems) - 1; i >= 0; i-- {
				obs(b, b.Elems[i], v)
				v = a.Transfer(b.Elems[i], v)
			}
		} else {
			v := res.In[b.ID]
			for _, el := range b.Elems {
				obs(b, el, v)
				v = a.Transfer(el, v)
			}
		}
	}
}
