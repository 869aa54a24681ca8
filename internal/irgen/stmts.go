package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/ir"
	"cinder/internal/types"
)

func (l *lowering) stmt(id ast.StmtID) {
	s := l.g.Unit.Stmt(id)
	if s == nil || s.Invalid {
		return
	}
	l.ensureOpen()
	switch s.Kind {
	case ast.StmtCompound:
		l.compound(s)
	case ast.StmtIf:
		l.ifStmt(s)
	case ast.StmtWhile:
		l.whileStmt(s)
	case ast.StmtDo:
		l.doStmt(s)
	case ast.StmtFor:
		l.forStmt(s)
	case ast.StmtSwitch:
		l.switchStmt(s)
	case ast.StmtCase:
		l.caseStmt(s)
	case ast.StmtDefault:
		l.defaultStmt(s)
	case ast.StmtLabel:
		l.labelStmt(s)
	case ast.StmtGoto:
		l.b.Br(l.labelBlock(s.Goto.Name))
	case ast.StmtBreak:
		if n := len(l.loops); n > 0 {
			l.b.Br(l.loops[n-1].brk)
		}
	case ast.StmtContinue:
		for i := len(l.loops) - 1; i >= 0; i-- {
			if l.loops[i].cont.IsValid() {
				l.b.Br(l.loops[i].cont)
				break
			}
		}
	case ast.StmtReturn:
		l.returnStmt(s)
	case ast.StmtDecl:
		for _, did := range s.Decl.Decls {
			l.localDecl(did)
		}
	case ast.StmtExpr:
		l.exprForEffect(s.Expr.E)
	case ast.StmtNull:
	}
}

// compound opens a VLA scope so stack space allocated inside is
// released on exit.
func (l *lowering) compound(s *ast.Stmt) {
	l.vlaSaves = append(l.vlaSaves, nil)
	for _, child := range s.Compound.Body {
		l.stmt(child)
	}
	saves := l.vlaSaves[len(l.vlaSaves)-1]
	l.vlaSaves = l.vlaSaves[:len(l.vlaSaves)-1]
	if len(saves) > 0 && !l.b.Terminated() {
		// Restore in reverse allocation order.
		for i := len(saves) - 1; i >= 0; i-- {
			l.b.Intrinsic(ir.IntrStackRestore, types.NoTypeID, []ir.ValueID{saves[i]}, s.Span)
		}
	}
}

func (l *lowering) ifStmt(s *ast.Stmt) {
	then := l.b.NewBlock("if.then")
	merge := l.b.NewBlock("if.end")
	els := merge
	if s.If.Else.IsValid() {
		els = l.b.NewBlock("if.else")
	}
	cond := l.condValue(s.If.Cond)
	l.b.CondBr(cond, then, els)

	l.b.SetInsertPoint(then)
	l.stmt(s.If.Then)
	if !l.b.Terminated() {
		l.b.Br(merge)
	}
	if s.If.Else.IsValid() {
		l.b.SetInsertPoint(els)
		l.stmt(s.If.Else)
		if !l.b.Terminated() {
			l.b.Br(merge)
		}
	}
	l.b.SetInsertPoint(merge)
}

func (l *lowering) whileStmt(s *ast.Stmt) {
	header := l.b.NewBlock("while.cond")
	body := l.b.NewBlock("while.body")
	exit := l.b.NewBlock("while.end")

	l.b.Br(header)
	l.b.SetInsertPoint(header)
	cond := l.condValue(s.While.Cond)
	l.b.CondBr(cond, body, exit)

	l.b.SetInsertPoint(body)
	l.pushLoop(exit, header)
	l.stmt(s.While.Body)
	l.popLoop()
	if !l.b.Terminated() {
		l.b.Br(header)
	}
	l.b.SetInsertPoint(exit)
}

func (l *lowering) doStmt(s *ast.Stmt) {
	body := l.b.NewBlock("do.body")
	header := l.b.NewBlock("do.cond")
	exit := l.b.NewBlock("do.end")

	l.b.Br(body)
	l.b.SetInsertPoint(body)
	l.pushLoop(exit, header)
	l.stmt(s.While.Body)
	l.popLoop()
	if !l.b.Terminated() {
		l.b.Br(header)
	}
	l.b.SetInsertPoint(header)
	cond := l.condValue(s.While.Cond)
	l.b.CondBr(cond, body, exit)
	l.b.SetInsertPoint(exit)
}

func (l *lowering) forStmt(s *ast.Stmt) {
	if s.For.Init.IsValid() {
		l.stmt(s.For.Init)
	}
	header := l.b.NewBlock("for.cond")
	body := l.b.NewBlock("for.body")
	inc := l.b.NewBlock("for.inc")
	exit := l.b.NewBlock("for.end")

	l.startBlock(header)
	if s.For.Cond.IsValid() {
		cond := l.condValue(s.For.Cond)
		l.b.CondBr(cond, body, exit)
	} else {
		l.b.Br(body)
	}

	l.b.SetInsertPoint(body)
	l.pushLoop(exit, inc)
	l.stmt(s.For.Body)
	l.popLoop()
	if !l.b.Terminated() {
		l.b.Br(inc)
	}
	l.b.SetInsertPoint(inc)
	if s.For.Inc.IsValid() {
		l.exprForEffect(s.For.Inc)
	}
	l.b.Br(header)
	l.b.SetInsertPoint(exit)
}

// switchStmt leaves the dispatch block open, lowers the body while the
// frame collects destinations, then comes back to emit the switch
// terminator. Case ranges chain comparisons off the default edge.
func (l *lowering) switchStmt(s *ast.Stmt) {
	cond := l.scalar(s.Switch.Cond)
	condType := l.canonOf(s.Switch.Cond)
	dispatch := l.b.InsertBlock()
	after := l.b.NewBlock("switch.end")

	frame := &switchFrame{
		dispatch: dispatch,
		after:    after,
		cond:     cond,
		condType: condType,
		def:      ir.NoBlockID,
	}
	l.switches = append(l.switches, frame)
	l.pushLoop(after, ir.NoBlockID)

	// Statements before the first case label are unreachable.
	l.b.SetInsertPoint(l.deadBlock("switch.body"))
	l.stmt(s.Switch.Body)
	if !l.b.Terminated() {
		l.b.Br(after)
	}

	l.popLoop()
	l.switches = l.switches[:len(l.switches)-1]

	def := frame.def
	if !def.IsValid() {
		def = after
	}
	// Ranges test between the table and the default.
	for _, rc := range frame.ranges {
		check := l.b.NewBlock("switch.range")
		l.emitRangeCheck(frame, check, rc, def)
		def = check
	}
	l.b.SetInsertPoint(dispatch)
	l.b.Switch(frame.cond, def, frame.cases)
	l.b.SetInsertPoint(after)
}

// emitRangeCheck fills one link of the range-comparison chain. The
// last link falls through to the real default.
func (l *lowering) emitRangeCheck(frame *switchFrame, check ir.BlockID, rc rangeCase, prev ir.BlockID) {
	bt := l.g.Unit.Types.Builtins()
	span := l.g.Unit.Decl(l.fn.Decl).Span
	l.b.SetInsertPoint(check)
	lo := l.b.ConstInt(frame.condType, rc.lo)
	hi := l.b.ConstInt(frame.condType, rc.hi)
	geLo := l.b.Cmp(ir.CmpGE, bt.Bool, frame.cond, lo, false, false, span)
	leHi := l.b.Cmp(ir.CmpLE, bt.Bool, frame.cond, hi, false, false, span)
	in := l.b.Bin(ir.BinAnd, bt.Bool, geLo, leHi, false, false, span)
	l.b.CondBr(in, rc.target, prev)
}

func (l *lowering) caseStmt(s *ast.Stmt) {
	if len(l.switches) == 0 {
		l.stmt(s.Case.Body)
		return
	}
	frame := l.switches[len(l.switches)-1]
	bb := l.b.NewBlock("case")
	l.startBlock(bb) // fallthrough from previous case
	if s.Case.Hi != ast.NoExprID {
		frame.ranges = append(frame.ranges, rangeCase{lo: s.Case.LoVal, hi: s.Case.HiVal, target: bb})
	} else {
		frame.cases = append(frame.cases, ir.SwitchCase{Value: s.Case.LoVal, Target: bb})
	}
	l.stmt(s.Case.Body)
}

func (l *lowering) defaultStmt(s *ast.Stmt) {
	if len(l.switches) == 0 {
		l.stmt(s.Default.Body)
		return
	}
	frame := l.switches[len(l.switches)-1]
	bb := l.b.NewBlock("default")
	l.startBlock(bb)
	frame.def = bb
	l.stmt(s.Default.Body)
}

func (l *lowering) labelStmt(s *ast.Stmt) {
	bb := l.labelBlock(s.Label.Name)
	l.startBlock(bb)
	l.stmt(s.Label.Body)
}

func (l *lowering) returnStmt(s *ast.Stmt) {
	if s.Return.Value.IsValid() && l.retSlot.IsValid() {
		canon := l.canonOf(s.Return.Value)
		if l.g.Unit.Types.IsRecord(canon) {
			src := l.aggregate(s.Return.Value)
			l.emitMemcpy(l.retSlot, src, canon, s.Span)
		} else if l.g.Unit.Types.IsComplex(canon) {
			re, im := l.complexValue(s.Return.Value)
			l.complexStore(l.retSlot, canon, re, im, s.Span)
		} else {
			v := l.scalar(s.Return.Value)
			l.b.Store(l.retSlot, v, false, s.Span)
		}
	} else if s.Return.Value.IsValid() {
		l.exprForEffect(s.Return.Value)
	}
	l.b.Br(l.exit)
}

// localDecl materializes one block-scope variable.
func (l *lowering) localDecl(id ast.DeclID) {
	d := l.g.Unit.Decl(id)
	if d == nil || d.Invalid || d.Kind != ast.DeclVariable {
		return
	}
	tys := l.g.Unit.Types
	canon := tys.Canonical(d.Type.Type)
	ptr := l.g.ptrTo(types.MakeQual(canon))

	if d.Storage == ast.StorageStatic {
		// Block-scope static: storage lives in the module, initialized
		// once at compile time.
		gid := l.g.staticLocal(id, l.fn.Name)
		l.locals[id] = l.b.GlobalAddr(gid, ptr)
		return
	}

	if t, ok := tys.Lookup(canon); ok && t.Kind == types.KindVariableArray {
		// VLA: save the stack, allocate dynamically, restore at scope
		// exit.
		save := l.b.Intrinsic(ir.IntrStackSave, l.g.ptrTo(types.MakeQual(tys.Builtins().Char)), nil, d.Span)
		if n := len(l.vlaSaves); n > 0 {
			l.vlaSaves[n-1] = append(l.vlaSaves[n-1], save)
		}
		count := l.vlaCount(canon)
		elem, _ := tys.ElemOf(canon)
		elemCanon := tys.Canonical(elem.Type)
		slot := l.b.DynAlloca(elemCanon, ptr, count, l.alignOf(elemCanon), d.Span)
		l.locals[id] = slot
		return
	}

	slot := l.b.StaticAlloca(canon, ptr, l.alignOf(canon), d.Span)
	l.locals[id] = slot

	if !d.Var.Init.IsValid() {
		return
	}
	if tys.IsRecord(canon) || tys.IsArray(canon) {
		l.aggregateInit(slot, canon, d.Var.Init)
		return
	}
	if tys.IsComplex(canon) {
		re, im := l.complexValue(d.Var.Init)
		l.complexStore(slot, canon, re, im, d.Span)
		return
	}
	v := l.scalar(d.Var.Init)
	l.b.Store(slot, v, d.Type.Quals.Volatile(), d.Span)
}

// vlaCount evaluates the size expression of a variable array.
func (l *lowering) vlaCount(canon types.TypeID) ir.ValueID {
	tys := l.g.Unit.Types
	t, _ := tys.Lookup(canon)
	if expr := ast.ExprID(t.Size); expr.IsValid() {
		return l.scalar(expr)
	}
	return l.b.ConstInt(tys.Builtins().Long, 1)
}
