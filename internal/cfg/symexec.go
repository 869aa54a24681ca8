package cfg

import "cinder/internal/ast"

// SymbolID names one symbolic value produced during path exploration.
type SymbolID int32

// NoSymbolID marks an absent symbol.
const NoSymbolID SymbolID = -1

// SymKind classifies a symbolic value.
type SymKind uint8

const (
	// SymUnknown is a value the executor cannot track.
	SymUnknown SymKind = iota
	// SymConst is a known integer constant.
	SymConst
	// SymSymbol is an opaque value constrained through the manager.
	SymSymbol
)

// SymValue is a symbolic value: a constant, a symbol, or unknown.
type SymValue struct {
	Kind SymKind
	Int  int64
	Sym  SymbolID
}

// ConstVal makes a constant symbolic value.
func ConstVal(v int64) SymValue { return SymValue{Kind: SymConst, Int: v} }

// SymbolVal makes a symbol-backed value.
func SymbolVal(id SymbolID) SymValue { return SymValue{Kind: SymSymbol, Sym: id} }

// Environment binds expressions to symbolic values. Block bindings
// survive block boundaries; sub-expression bindings are scratch state
// dropped when a block ends.
type Environment struct {
	blocks map[ast.ExprID]SymValue
	subs   map[ast.ExprID]SymValue
}

// BindBlock records a binding that outlives the current block.
func (e *Environment) BindBlock(id ast.ExprID, v SymValue) {
	if e.blocks == nil {
		e.blocks = map[ast.ExprID]SymValue{}
	}
	e.blocks[id] = v
}

// BindSub records a binding local to the current block.
func (e *Environment) BindSub(id ast.ExprID, v SymValue) {
	if e.subs == nil {
		e.subs = map[ast.ExprID]SymValue{}
	}
	e.subs[id] = v
}

// Lookup finds a binding, sub-expression bindings first.
func (e *Environment) Lookup(id ast.ExprID) (SymValue, bool) {
	if v, ok := e.subs[id]; ok {
		return v, true
	}
	v, ok := e.blocks[id]
	return v, ok
}

func (e *Environment) clone() Environment {
	out := Environment{}
	for k, v := range e.blocks {
		out.BindBlock(k, v)
	}
	for k, v := range e.subs {
		out.BindSub(k, v)
	}
	return out
}

// Store maps variable storage to symbolic values.
type Store map[ast.DeclID]SymValue

func (s Store) clone() Store {
	out := make(Store, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// constraint is the known facts about one symbol: if eq is non-nil the
// symbol is one of its members; it is never a member of ne.
type constraint struct {
	eq map[int64]bool
	ne map[int64]bool
}

func (c *constraint) clone() *constraint {
	out := &constraint{}
	if c.eq != nil {
		out.eq = make(map[int64]bool, len(c.eq))
		for v := range c.eq {
			out.eq[v] = true
		}
	}
	if c.ne != nil {
		out.ne = make(map[int64]bool, len(c.ne))
		for v := range c.ne {
			out.ne[v] = true
		}
	}
	return out
}

// ConstraintManager keeps per-symbol equality and disequality sets
// over constant integers.
type ConstraintManager map[SymbolID]*constraint

func (cm ConstraintManager) clone() ConstraintManager {
	out := make(ConstraintManager, len(cm))
	for k, v := range cm {
		out[k] = v.clone()
	}
	return out
}

// assumeEq refines the manager with sym == v; reports feasibility.
func (cm ConstraintManager) assumeEq(sym SymbolID, v int64) bool {
	c := cm[sym]
	if c == nil {
		c = &constraint{}
		cm[sym] = c
	}
	if c.ne[v] {
		return false
	}
	if c.eq != nil && !c.eq[v] {
		return false
	}
	c.eq = map[int64]bool{v: true}
	return true
}

// assumeNe refines the manager with sym != v; reports feasibility.
func (cm ConstraintManager) assumeNe(sym SymbolID, v int64) bool {
	c := cm[sym]
	if c == nil {
		c = &constraint{}
		cm[sym] = c
	}
	if c.eq != nil {
		delete(c.eq, v)
		if len(c.eq) == 0 {
			return false
		}
	}
	if c.ne == nil {
		c.ne = map[int64]bool{}
	}
	c.ne[v] = true
	return true
}

// value returns the single constant the symbol must equal, if pinned.
func (cm ConstraintManager) value(sym SymbolID) (int64, bool) {
	c := cm[sym]
	if c == nil || len(c.eq) != 1 {
		return 0, false
	}
	for v := range c.eq {
		return v, true
	}
	return 0, false
}

// State is one point of a symbolic path.
type State struct {
	Env   Environment
	Store Store
	CM    ConstraintManager
}

// NewState returns an empty state.
func NewState() State {
	return State{Store: Store{}, CM: ConstraintManager{}}
}

// Clone deep-copies the state so a branch can diverge.
func (st State) Clone() State {
	return State{Env: st.Env.clone(), Store: st.Store.clone(), CM: st.CM.clone()}
}

// EnterBlock drops the sub-expression bindings at a block boundary.
func (st State) EnterBlock() State {
	st.Env.subs = nil
	return st
}

// RemoveDead drops store bindings for variables outside live and
// constraint entries for symbols nothing references anymore. Each such
// symbol is reported once through onDead so checkers can finalize
// whatever they track on it.
func (st State) RemoveDead(live DeclSet, onDead func(SymbolID)) State {
	out := st.Clone()
	for d := range out.Store {
		if !live.Has(d) {
			delete(out.Store, d)
		}
	}
	out.Env.subs = nil

	referenced := map[SymbolID]bool{}
	for _, v := range out.Store {
		if v.Kind == SymSymbol {
			referenced[v.Sym] = true
		}
	}
	for _, v := range out.Env.blocks {
		if v.Kind == SymSymbol {
			referenced[v.Sym] = true
		}
	}
	for sym := range out.CM {
		if !referenced[sym] {
			delete(out.CM, sym)
			if onDead != nil {
				onDead(sym)
			}
		}
	}
	return out
}

// Executor evaluates expressions symbolically and refines states along
// branches. It owns the symbol counter, so one executor serves one
// function walk.
type Executor struct {
	Unit *ast.Unit
	next SymbolID
}

// NewExecutor returns an executor over the unit.
func NewExecutor(unit *ast.Unit) *Executor {
	return &Executor{Unit: unit}
}

func (x *Executor) fresh() SymbolID {
	id := x.next
	x.next++
	return id
}

// Eval computes the symbolic value of an expression in the state,
// conjuring a fresh symbol for untracked variable reads. The state is
// updated in place with any new binding.
func (x *Executor) Eval(st *State, id ast.ExprID) SymValue {
	e := x.Unit.Expr(id)
	if e == nil {
		return SymValue{}
	}
	switch e.Kind {
	case ast.ExprIntLit:
		v := int64(e.Int.Value)
		if e.Int.Negative {
			v = -v
		}
		return ConstVal(v)
	case ast.ExprParen:
		return x.Eval(st, e.Paren.Operand)
	case ast.ExprImplicitCast, ast.ExprCast:
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastLValueToRValue, ast.CastIntegral, ast.CastToBool:
			return x.Eval(st, e.Cast.Operand)
		}
		return SymValue{}
	case ast.ExprDeclRef:
		d := x.Unit.Decl(e.Ref.Decl)
		if d == nil || (d.Kind != ast.DeclVariable && d.Kind != ast.DeclParameter) {
			return SymValue{}
		}
		if v, ok := st.Store[e.Ref.Decl]; ok {
			return v
		}
		v := SymbolVal(x.fresh())
		st.Store[e.Ref.Decl] = v
		return v
	case ast.ExprUnary:
		if e.Unary.Op == ast.UnMinus {
			if v := x.Eval(st, e.Unary.Operand); v.Kind == SymConst {
				return ConstVal(-v.Int)
			}
		}
		return SymValue{}
	case ast.ExprBinary:
		return x.evalBinary(st, e)
	}
	return SymValue{}
}

func (x *Executor) evalBinary(st *State, e *ast.Expr) SymValue {
	l := x.Eval(st, e.Binary.Left)
	r := x.Eval(st, e.Binary.Right)
	// Symbols pinned to one constant fold like constants.
	if l.Kind == SymSymbol {
		if v, ok := st.CM.value(l.Sym); ok {
			l = ConstVal(v)
		}
	}
	if r.Kind == SymSymbol {
		if v, ok := st.CM.value(r.Sym); ok {
			r = ConstVal(v)
		}
	}
	if l.Kind != SymConst || r.Kind != SymConst {
		return SymValue{}
	}
	b2i := func(b bool) SymValue {
		if b {
			return ConstVal(1)
		}
		return ConstVal(0)
	}
	switch e.Binary.Op {
	case ast.BinAdd:
		return ConstVal(l.Int + r.Int)
	case ast.BinSub:
		return ConstVal(l.Int - r.Int)
	case ast.BinMul:
		return ConstVal(l.Int * r.Int)
	case ast.BinEQ:
		return b2i(l.Int == r.Int)
	case ast.BinNE:
		return b2i(l.Int != r.Int)
	case ast.BinLT:
		return b2i(l.Int < r.Int)
	case ast.BinGT:
		return b2i(l.Int > r.Int)
	case ast.BinLE:
		return b2i(l.Int <= r.Int)
	case ast.BinGE:
		return b2i(l.Int >= r.Int)
	}
	return SymValue{}
}

// Assume refines the state with the condition holding (or not) and
// reports whether the resulting path is feasible. The input state is
// never modified.
func (x *Executor) Assume(st State, cond ast.ExprID, truth bool) (State, bool) {
	out := st.Clone()
	ok := x.assume(&out, cond, truth)
	return out, ok
}

func (x *Executor) assume(st *State, cond ast.ExprID, truth bool) bool {
	e := x.Unit.Expr(cond)
	if e == nil {
		return true
	}
	switch e.Kind {
	case ast.ExprParen:
		return x.assume(st, e.Paren.Operand, truth)
	case ast.ExprImplicitCast, ast.ExprCast:
		switch e.Cast.Cast {
		case ast.CastNoop, ast.CastQualification, ast.CastLValueToRValue, ast.CastIntegral, ast.CastToBool:
			return x.assume(st, e.Cast.Operand, truth)
		}
		return true
	case ast.ExprUnary:
		if e.Unary.Op == ast.UnLNot {
			return x.assume(st, e.Unary.Operand, !truth)
		}
	case ast.ExprBinary:
		switch e.Binary.Op {
		case ast.BinEQ:
			return x.assumeCompare(st, e, truth)
		case ast.BinNE:
			return x.assumeCompare(st, e, !truth)
		case ast.BinLAnd:
			if truth {
				return x.assume(st, e.Binary.Left, true) && x.assume(st, e.Binary.Right, true)
			}
			return true
		case ast.BinLOr:
			if !truth {
				return x.assume(st, e.Binary.Left, false) && x.assume(st, e.Binary.Right, false)
			}
			return true
		}
	}
	// Unstructured condition: fall back to its symbolic value, which
	// still rules out constant conditions on the wrong branch and
	// pins symbols compared against zero.
	v := x.Eval(st, cond)
	switch v.Kind {
	case SymConst:
		return (v.Int != 0) == truth
	case SymSymbol:
		if !truth {
			return st.CM.assumeEq(v.Sym, 0)
		}
		return st.CM.assumeNe(v.Sym, 0)
	}
	return true
}

// assumeCompare handles sym-vs-constant equality. eq reflects the
// equality holding after truth is folded in.
func (x *Executor) assumeCompare(st *State, e *ast.Expr, eq bool) bool {
	l := x.Eval(st, e.Binary.Left)
	r := x.Eval(st, e.Binary.Right)
	if l.Kind == SymConst && r.Kind == SymSymbol {
		l, r = r, l
	}
	if l.Kind == SymSymbol && r.Kind == SymConst {
		if eq {
			return st.CM.assumeEq(l.Sym, r.Int)
		}
		return st.CM.assumeNe(l.Sym, r.Int)
	}
	if l.Kind == SymConst && r.Kind == SymConst {
		return (l.Int == r.Int) == eq
	}
	return true
}
