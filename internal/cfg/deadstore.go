package cfg

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/source"
)

// DeadStoreChecker reports assignments whose value no path ever reads.
// Ignore suppresses declarations named in a #pragma unused.
type DeadStoreChecker struct {
	Unit     *ast.Unit
	Reporter diag.Reporter
	Ignore   func(ast.DeclID) bool
}

// Check runs liveness over the graph and walks it once more, flagging
// dead stores and dead initializations.
func (c *DeadStoreChecker) Check(g *Graph) {
	lv := Liveness{Unit: c.Unit}
	res := Solve[DeclSet](g, lv)
	escaped := c.escapes(g)

	Observe(g, lv, res, func(_ *Block, el Element, after DeclSet) {
		if el.Expr.IsValid() {
			c.checkExpr(el.Expr, after, escaped, lv)
			return
		}
		s := c.Unit.Stmt(el.Stmt)
		if s == nil {
			return
		}
		switch s.Kind {
		case ast.StmtExpr:
			c.checkExpr(s.Expr.E, after, escaped, lv)
		case ast.StmtDecl:
			for _, id := range s.Decl.Decls {
				c.checkInit(id, after, escaped)
			}
		}
	})
}

func (c *DeadStoreChecker) checkExpr(id ast.ExprID, after DeclSet, escaped DeclSet, lv Liveness) {
	e := c.Unit.Expr(id)
	if e == nil {
		return
	}
	switch {
	case e.Kind == ast.ExprParen:
		c.checkExpr(e.Paren.Operand, after, escaped, lv)
	case e.Kind == ast.ExprBinary && e.Binary.Op == ast.BinComma:
		// The right operand sees the same post-statement liveness;
		// the left is approximated with it as well.
		c.checkExpr(e.Binary.Left, after, escaped, lv)
		c.checkExpr(e.Binary.Right, after, escaped, lv)
	case e.Kind == ast.ExprBinary && e.Binary.Op.IsAssignment():
		d := lv.PlainTarget(e.Binary.Left)
		if d == ast.NoDeclID || after.Has(d) || c.exempt(d, escaped) {
			return
		}
		decl := c.Unit.Decl(d)
		diag.ReportWarning(c.Reporter, diag.FlowDeadStore, e.Span,
			fmt.Sprintf("value stored to '%s' is never read", decl.Name.String())).Emit()
	}
}

func (c *DeadStoreChecker) checkInit(id ast.DeclID, after DeclSet, escaped DeclSet) {
	d := c.Unit.Decl(id)
	if d == nil || d.Kind != ast.DeclVariable || !d.Var.Init.IsValid() {
		return
	}
	if after.Has(id) || c.exempt(id, escaped) {
		return
	}
	diag.ReportWarning(c.Reporter, diag.FlowDeadStore, d.Span,
		fmt.Sprintf("value stored to '%s' during its initialization is never read", d.Name.String())).Emit()
}

// exempt filters declarations the checker cannot reason about:
// address-taken, volatile, aggregate-typed, non-automatic, or named in
// a #pragma unused.
func (c *DeadStoreChecker) exempt(id ast.DeclID, escaped DeclSet) bool {
	if escaped.Has(id) {
		return true
	}
	if c.Ignore != nil && c.Ignore(id) {
		return true
	}
	d := c.Unit.Decl(id)
	if d == nil || d.Invalid {
		return true
	}
	if d.Kind == ast.DeclVariable &&
		d.Storage != ast.StorageNone && d.Storage != ast.StorageAuto && d.Storage != ast.StorageRegister {
		return true
	}
	if d.Type.Quals.Volatile() {
		return true
	}
	canon := c.Unit.Types.Canonical(d.Type.Type)
	if c.Unit.Types.IsRecord(canon) || c.Unit.Types.IsArray(canon) {
		return true
	}
	return false
}

// escapes collects every declaration whose address the function takes.
// Stores through the escaped pointer cannot be tracked, so such
// variables are never reported.
func (c *DeadStoreChecker) escapes(g *Graph) DeclSet {
	out := DeclSet{}
	lv := Liveness{Unit: c.Unit}
	var walk func(id ast.ExprID)
	walk = func(id ast.ExprID) {
		if !id.IsValid() {
			return
		}
		e := c.Unit.Expr(id)
		if e == nil {
			return
		}
		if e.Kind == ast.ExprUnary && e.Unary.Op == ast.UnAddrOf {
			if d := lv.PlainTarget(e.Unary.Operand); d != ast.NoDeclID {
				out.add(d)
			}
		}
		switch e.Kind {
		case ast.ExprParen:
			walk(e.Paren.Operand)
		case ast.ExprUnary:
			walk(e.Unary.Operand)
		case ast.ExprBinary:
			walk(e.Binary.Left)
			walk(e.Binary.Right)
		case ast.ExprConditional:
			walk(e.Cond.Cond)
			walk(e.Cond.Then)
			walk(e.Cond.Else)
		case ast.ExprCall:
			walk(e.Call.Callee)
			for _, a := range e.Call.Args {
				walk(a)
			}
		case ast.ExprMember:
			walk(e.Member.Base)
		case ast.ExprIndex:
			walk(e.Index.Base)
			walk(e.Index.Index)
		case ast.ExprCast, ast.ExprImplicitCast:
			walk(e.Cast.Operand)
		case ast.ExprInitList:
			for _, el := range e.Init.Elems {
				walk(el)
			}
		}
	}
	eachExpr(c.Unit, g, walk)
	return out
}

// eachExpr feeds every expression the graph mentions to fn, including
// terminator conditions and local initializers.
func eachExpr(unit *ast.Unit, g *Graph, fn func(ast.ExprID)) {
	for _, b := range g.Blocks {
		for _, el := range b.Elems {
			if el.Expr.IsValid() {
				fn(el.Expr)
				continue
			}
			s := unit.Stmt(el.Stmt)
			if s == nil {
				continue
			}
			switch s.Kind {
			case ast.StmtExpr:
				fn(s.Expr.E)
			case ast.StmtDecl:
				for _, id := range s.Decl.Decls {
					if d := unit.Decl(id); d != nil && d.Kind == ast.DeclVariable && d.Var.Init.IsValid() {
						fn(d.Var.Init)
					}
				}
			}
		}
		if !b.TermStmt.IsValid() {
			continue
		}
		s := unit.Stmt(b.TermStmt)
		if s == nil {
			continue
		}
		switch s.Kind {
		case ast.StmtIf:
			fn(s.If.Cond)
		case ast.StmtWhile, ast.StmtDo:
			fn(s.While.Cond)
		case ast.StmtFor:
			if s.For.Cond.IsValid() {
				fn(s.For.Cond)
			}
		case ast.StmtSwitch:
			fn(s.Switch.Cond)
		case ast.StmtReturn:
			if s.Return.Value.IsValid() {
				fn(s.Return.Value)
			}
		}
	}
}

// ReportUnreachable flags the first statement of every block the sweep
// left unmarked. Empty unreachable blocks with no terminator statement
// are construction artifacts and stay silent.
func ReportUnreachable(unit *ast.Unit, g *Graph, rep diag.Reporter) {
	for _, b := range g.Blocks {
		if b.Reachable {
			continue
		}
		var span source.Span
		switch {
		case len(b.Elems) > 0 && b.Elems[0].Expr.IsValid():
			span = unit.Expr(b.Elems[0].Expr).Span
		case len(b.Elems) > 0:
			span = unit.Stmt(b.Elems[0].Stmt).Span
		case b.TermStmt.IsValid():
			span = unit.Stmt(b.TermStmt).Span
		default:
			continue
		}
		diag.ReportWarning(rep, diag.FlowUnreachableCode, span, "code will never be executed").Emit()
	}
}
