package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
)

// ActOnCompoundStart opens a block scope.
func (s *Sema) ActOnCompoundStart(span source.Span) {
	ctx := s.Unit.NewContext(ast.CtxBlock, s.CurrentContext(), ast.NoDeclID, span)
	s.PushScope(ScopeBlock, ctx)
}

// ActOnCompoundFinish closes the block scope and builds the statement.
func (s *Sema) ActOnCompoundFinish(body []ast.StmtID, span source.Span) ast.StmtID {
	s.PopScope()
	return s.Unit.NewStmt(ast.Stmt{
		Kind:     ast.StmtCompound,
		Span:     span,
		Compound: ast.CompoundStmt{Body: body},
	})
}

// ActOnIf builds an if statement; the condition converts to bool context.
func (s *Sema) ActOnIf(cond ast.ExprID, then, els ast.StmtID, span source.Span) ast.StmtID {
	cond = s.conditionConvert(cond)
	return s.Unit.NewStmt(ast.Stmt{
		Kind: ast.StmtIf,
		Span: span,
		If:   ast.IfStmt{Cond: cond, Then: then, Else: els},
	})
}

// ActOnWhile builds a while loop.
func (s *Sema) ActOnWhile(cond ast.ExprID, body ast.StmtID, span source.Span) ast.StmtID {
	cond = s.conditionConvert(cond)
	return s.Unit.NewStmt(ast.Stmt{
		Kind:  ast.StmtWhile,
		Span:  span,
		While: ast.WhileStmt{Cond: cond, Body: body},
	})
}

// ActOnDo builds a do-while loop.
func (s *Sema) ActOnDo(body ast.StmtID, cond ast.ExprID, span source.Span) ast.StmtID {
	cond = s.conditionConvert(cond)
	return s.Unit.NewStmt(ast.Stmt{
		Kind:  ast.StmtDo,
		Span:  span,
		While: ast.WhileStmt{Cond: cond, Body: body},
	})
}

// ActOnFor builds a for loop; each header part may be absent.
func (s *Sema) ActOnFor(init ast.StmtID, cond ast.ExprID, inc ast.ExprID, body ast.StmtID, span source.Span) ast.StmtID {
	if cond.IsValid() {
		cond = s.conditionConvert(cond)
	}
	return s.Unit.NewStmt(ast.Stmt{
		Kind: ast.StmtFor,
		Span: span,
		For:  ast.ForStmt{Init: init, Cond: cond, Inc: inc, Body: body},
	})
}

// LoopEnter/LoopExit bracket loop bodies for break/continue validation.
func (s *Sema) LoopEnter() {
	if s.fn != nil {
		s.fn.loopDepth++
	}
}

func (s *Sema) LoopExit() {
	if s.fn != nil {
		s.fn.loopDepth--
	}
}

// ActOnSwitchStart promotes the controlling expression and opens the case
// label tracker.
func (s *Sema) ActOnSwitchStart(cond ast.ExprID, span source.Span) ast.StmtID {
	e := s.Unit.Expr(cond)
	if e != nil && !e.Invalid && !s.Unit.Types.IsInteger(s.Unit.Types.Canonical(e.Type.Type)) {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, e.Span,
			"statement requires expression of integer type").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(e.Type)}).
			Emit()
		s.PoisonExpr(cond)
	}
	cond = s.promoteInSwitch(cond)
	id := s.Unit.NewStmt(ast.Stmt{
		Kind:   ast.StmtSwitch,
		Span:   span,
		Switch: ast.SwitchStmt{Cond: cond},
	})
	if s.fn != nil {
		s.fn.switches = append(s.fn.switches, &switchState{stmt: id, seen: make(map[int64]ast.StmtID)})
	}
	return id
}

// ActOnSwitchFinish attaches the body and closes the tracker.
func (s *Sema) ActOnSwitchFinish(switchID ast.StmtID, body ast.StmtID) ast.StmtID {
	if st := s.Unit.Stmt(switchID); st != nil {
		st.Switch.Body = body
	}
	if s.fn != nil && len(s.fn.switches) > 0 {
		s.fn.switches = s.fn.switches[:len(s.fn.switches)-1]
	}
	return switchID
}

// ActOnCase evaluates the label (or both ends of a GNU case range) and
// checks duplicates within the enclosing switch.
func (s *Sema) ActOnCase(lo, hi ast.ExprID, body ast.StmtID, span source.Span) ast.StmtID {
	loVal, ok := s.RequireIntConst(lo, "case label")
	hiVal := loVal
	if ok && hi.IsValid() {
		hiVal, ok = s.RequireIntConst(hi, "case range end")
	}
	id := s.Unit.NewStmt(ast.Stmt{
		Kind: ast.StmtCase,
		Span: span,
		Case: ast.CaseStmt{Lo: lo, Hi: hi, Body: body, LoVal: loVal, HiVal: hiVal},
	})
	if !ok {
		if st := s.Unit.Stmt(id); st != nil {
			st.Invalid = true
		}
		return id
	}
	sw := s.currentSwitch()
	if sw == nil {
		diag.ReportError(s.Reporter, diag.SemaBreakOutsideLoop, span,
			"'case' statement not in switch statement").Emit()
		return id
	}
	if hiVal-loVal > 4096 {
		// Huge GNU case ranges: record the low endpoint only.
		hiVal = loVal
	}
	for v := loVal; v <= hiVal; v++ {
		if prev, dup := sw.seen[v]; dup {
			b := diag.ReportError(s.Reporter, diag.SemaDuplicateCase, span,
				fmt.Sprintf("duplicate case value %d", v)).
				WithArg(diag.Arg{Kind: diag.ArgInt, Int: v, Text: fmt.Sprintf("%d", v)})
			if ps := s.Unit.Stmt(prev); ps != nil {
				b.WithNote(ps.Span, "previous case defined here")
			}
			b.Emit()
			break
		}
		sw.seen[v] = id
		if v == hiVal { // avoid wrap on int64 max
			break
		}
	}
	return id
}

// ActOnDefault builds the default label of a switch.
func (s *Sema) ActOnDefault(body ast.StmtID, span source.Span) ast.StmtID {
	if s.currentSwitch() == nil {
		diag.ReportError(s.Reporter, diag.SemaBreakOutsideLoop, span,
			"'default' statement not in switch statement").Emit()
	}
	return s.Unit.NewStmt(ast.Stmt{
		Kind:    ast.StmtDefault,
		Span:    span,
		Default: ast.DefaultStmt{Body: body},
	})
}

func (s *Sema) currentSwitch() *switchState {
	if s.fn == nil || len(s.fn.switches) == 0 {
		return nil
	}
	return s.fn.switches[len(s.fn.switches)-1]
}

// ActOnLabel registers a label; duplicate labels in one function conflict.
func (s *Sema) ActOnLabel(name *names.Identifier, body ast.StmtID, span source.Span) ast.StmtID {
	id := s.Unit.NewStmt(ast.Stmt{
		Kind:  ast.StmtLabel,
		Span:  span,
		Label: ast.LabelStmt{Name: name, Body: body},
	})
	if s.fn != nil {
		if prev, dup := s.fn.labels[name]; dup {
			b := diag.ReportError(s.Reporter, diag.SemaRedefinition, span,
				fmt.Sprintf("redefinition of label '%s'", name.String()))
			if ps := s.Unit.Stmt(prev); ps != nil {
				b.WithNote(ps.Span, "previous definition is here")
			}
			b.Emit()
		} else {
			s.fn.labels[name] = id
		}
	}
	return id
}

// ActOnGoto builds a goto; the target label may not exist yet, so the
// reference is recorded for backpatch at function end.
func (s *Sema) ActOnGoto(name *names.Identifier, span source.Span) ast.StmtID {
	id := s.Unit.NewStmt(ast.Stmt{
		Kind: ast.StmtGoto,
		Span: span,
		Goto: ast.GotoStmt{Name: name},
	})
	if s.fn != nil {
		s.fn.gotos = append(s.fn.gotos, id)
	}
	return id
}

// LabelTarget resolves a goto's label statement after the body finished.
func (s *Sema) LabelTarget(name *names.Identifier) (ast.StmtID, bool) {
	if s.fn == nil {
		return ast.NoStmtID, false
	}
	id, ok := s.fn.labels[name]
	return id, ok
}

// ActOnBreak validates the enclosing construct.
func (s *Sema) ActOnBreak(span source.Span) ast.StmtID {
	if s.fn == nil || (s.fn.loopDepth == 0 && len(s.fn.switches) == 0) {
		diag.ReportError(s.Reporter, diag.SemaBreakOutsideLoop, span,
			"'break' statement not in loop or switch statement").Emit()
	}
	return s.Unit.NewStmt(ast.Stmt{Kind: ast.StmtBreak, Span: span})
}

// ActOnContinue validates the enclosing loop.
func (s *Sema) ActOnContinue(span source.Span) ast.StmtID {
	if s.fn == nil || s.fn.loopDepth == 0 {
		diag.ReportError(s.Reporter, diag.SemaContinueOutsideLoop, span,
			"'continue' statement not in loop statement").Emit()
	}
	return s.Unit.NewStmt(ast.Stmt{Kind: ast.StmtContinue, Span: span})
}

// ActOnReturn converts the value to the function's result type.
func (s *Sema) ActOnReturn(value ast.ExprID, span source.Span) ast.StmtID {
	if value.IsValid() && s.fn != nil {
		conv := s.initConvert(value, s.fn.result)
		if conv.IsValid() {
			value = conv
		} else if e := s.Unit.Expr(value); e != nil && !e.Invalid {
			diag.ReportError(s.Reporter, diag.SemaInvalidConversion, e.Span,
				fmt.Sprintf("returning '%s' from a function with result type '%s'",
					s.SpellType(e.Type), s.SpellType(s.fn.result))).
				WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(e.Type)}).
				WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(s.fn.result)}).
				Emit()
			s.PoisonExpr(value)
		}
	}
	return s.Unit.NewStmt(ast.Stmt{
		Kind:   ast.StmtReturn,
		Span:   span,
		Return: ast.ReturnStmt{Value: value},
	})
}

// ActOnDeclStmt wraps local declarations in a statement.
func (s *Sema) ActOnDeclStmt(decls []ast.DeclID, span source.Span) ast.StmtID {
	return s.Unit.NewStmt(ast.Stmt{
		Kind: ast.StmtDecl,
		Span: span,
		Decl: ast.DeclStmt{Decls: decls},
	})
}

// ActOnExprStmt wraps an expression evaluated for effect.
func (s *Sema) ActOnExprStmt(e ast.ExprID, span source.Span) ast.StmtID {
	return s.Unit.NewStmt(ast.Stmt{
		Kind: ast.StmtExpr,
		Span: span,
		Expr: ast.ExprStmt{E: e},
	})
}

// ActOnNullStmt builds the empty statement.
func (s *Sema) ActOnNullStmt(span source.Span) ast.StmtID {
	return s.Unit.NewStmt(ast.Stmt{Kind: ast.StmtNull, Span: span})
}
