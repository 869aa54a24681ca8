package cfg

import "cinder/internal/ast"

// DeclSet is a set of local declarations. A nil DeclSet is empty.
type DeclSet map[ast.DeclID]struct{}

func (s DeclSet) add(id ast.DeclID)    { s[id] = struct{}{} }
func (s DeclSet) remove(id ast.DeclID) { delete(s, id) }

// Has reports membership; safe on nil sets.
func (s DeclSet) Has(id ast.DeclID) bool {
	_, ok := s[id]
	return ok
}

func cloneSet(s DeclSet) DeclSet {
	out := make(DeclSet, len(s))
	for id := range s {
		out.add(id)
	}
	return out
}

func unionSet(dst, src DeclSet) DeclSet {
	if dst == nil {
		dst = DeclSet{}
	}
	for id := range src {
		dst.add(id)
	}
	return dst
}

func setEqual(a, b DeclSet) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}
	return true
}

// Liveness is the backward may-analysis over variable and parameter
// declarations: a declaration is live where some path still reads it.
type Liveness struct {
	Unit *ast.Unit
}

func (Liveness) Direction() Direction { return Backward }

func (Liveness) Bottom() DeclSet { return DeclSet{} }

func (Liveness) Join(a, b DeclSet) DeclSet { return unionSet(cloneSet(a), b) }

func (Liveness) Equal(a, b DeclSet) bool { return setEqual(a, b) }

// Transfer applies live = (live \ defs) ∪ uses for one element.
func (lv Liveness) Transfer(el Element, live DeclSet) DeclSet {
	live = cloneSet(live)
	if el.Expr.IsValid() {
		lv.stmtExpr(el.Expr, live)
		return live
	}
	s := lv.Unit.Stmt(el.Stmt)
	if s == nil {
		return live
	}
	switch s.Kind {
	case ast.StmtExpr:
		lv.stmtExpr(s.Expr.E, live)
	case ast.StmtDecl:
		for i := len(s.Decl.Decls) - 1; i >= 0; i-- {
			d := lv.Unit.Decl(s.Decl.Decls[i])
			if d == nil || d.Kind != ast.DeclVariable {
				continue
			}
			live.remove(s.Decl.Decls[i])
			if d.Var.Init.IsValid() {
				lv.uses(d.Var.Init, live)
			}
		}
	}
	return live
}

// TransferTerm adds the uses of the terminating condition or return
// value.
func (lv Liveness) TransferTerm(b *Block, live DeclSet) DeclSet {
	if !b.TermStmt.IsValid() {
		return live
	}
	s := lv.Unit.Stmt(b.TermStmt)
	if s == nil {
		return live
	}
	live = cloneSet(live)
	switch s.Kind {
	case ast.StmtIf:
		lv.uses(s.If.Cond, live)
	case ast.StmtWhile, ast.StmtDo:
		lv.uses(s.While.Cond, live)
	case ast.StmtFor:
		if s.For.Cond.IsValid() {
			lv.uses(s.For.Cond, live)
		}
	case ast.StmtSwitch:
		lv.uses(s.Switch.Cond, live)
	case ast.StmtReturn:
		if s.Return.Value.IsValid() {
			lv.uses(s.Return.Value, live)
		}
	}
	return live
}

// stmtExpr handles a statement-position expression, where a plain
// assignment to a variable kills it. Kills apply only at the top level
// so nested writes stay conservative.
func (lv Liveness) stmtExpr(id ast.ExprID, live DeclSet) {
	e := lv.Unit.Expr(id)
	if e == nil {
		return
	}
	switch {
	case e.Kind == ast.ExprParen:
		lv.stmtExpr(e.Paren.Operand, live)
	case e.Kind == ast.ExprBinary && e.Binary.Op == ast.BinComma:
		lv.stmtExpr(e.Binary.Right, live)
		lv.stmtExpr(e.Binary.Left, live)
	case e.Kind == ast.ExprBinary && e.Binary.Op == ast.BinAssign:
		if d := lv.PlainTarget(id); d != ast.NoDeclID {
			live.remove(d)
		} else {
			lv.uses(e.Binary.Left, live)
		}
		lv.uses(e.Binary.Right, live)
	default:
		lv.uses(id, live)
	}
}

// PlainTarget returns the variable or parameter a plain assignment
// writes, NoDeclID when the left side is anything more involved.
func (lv Liveness) PlainTarget(id ast.ExprID) ast.DeclID {
	e := lv.Unit.Expr(id)
	if e == nil {
		return ast.NoDeclID
	}
	switch e.Kind {
	case ast.ExprParen:
		return lv.PlainTarget(e.Paren.Operand)
	case ast.ExprImplicitCast, ast.ExprCast:
		return lv.PlainTarget(e.Cast.Operand)
	case ast.ExprBinary:
		if e.Binary.Op == ast.BinAssign {
			return lv.PlainTarget(e.Binary.Left)
		}
	case ast.ExprDeclRef:
		d := lv.Unit.Decl(e.Ref.Decl)
		if d != nil && (d.Kind == ast.DeclVariable || d.Kind == ast.DeclParameter) {
			return e.Ref.Decl
		}
	}
	return ast.NoDeclID
}

// uses adds every variable and parameter the expression reads. Taking
// an address counts as a read; sizeof operands are unevaluated.
func (lv Liveness) uses(id ast.ExprID, live DeclSet) {
	if !id.IsValid() {
		return
	}
	e := lv.Unit.Expr(id)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprDeclRef:
		d := lv.Unit.Decl(e.Ref.Decl)
		if d != nil && (d.Kind == ast.DeclVariable || d.Kind == ast.DeclParameter) {
			live.add(e.Ref.Decl)
		}
	case ast.ExprParen:
		lv.uses(e.Paren.Operand, live)
	case ast.ExprUnary:
		lv.uses(e.Unary.Operand, live)
	case ast.ExprBinary:
		lv.uses(e.Binary.Left, live)
		lv.uses(e.Binary.Right, live)
	case ast.ExprConditional:
		lv.uses(e.Cond.Cond, live)
		lv.uses(e.Cond.Then, live)
		lv.uses(e.Cond.Else, live)
	case ast.ExprCall:
		lv.uses(e.Call.Callee, live)
		for _, a := range e.Call.Args {
			lv.uses(a, live)
		}
	case ast.ExprMember:
		lv.uses(e.Member.Base, live)
	case ast.ExprIndex:
		lv.uses(e.Index.Base, live)
		lv.uses(e.Index.Index, live)
	case ast.ExprCast, ast.ExprImplicitCast:
		lv.uses(e.Cast.Operand, live)
	case ast.ExprInitList:
		for _, el := range e.Init.Elems {
			lv.uses(el, live)
		}
	}
}
