package cfg

import (
	"cinder/internal/ast"
	"cinder/internal/names"
)

// builder assembles a graph by walking the statement tree in reverse,
// so every block's successor exists before the block itself. Elements
// are appended back-to-front and reversed when the block is sealed.
type builder struct {
	unit *ast.Unit
	g    *Graph

	cur  *Block
	succ BlockID

	breaks    []BlockID
	continues []BlockID
	switches  []*switchScope
	labels    map[*names.Identifier]BlockID
	pending   []pendingGoto
}

type switchScope struct {
	sw    *Block
	cases []BlockID
	def   BlockID
}

// pendingGoto is a jump to a label the walk has not reached yet; such
// labels are textually earlier than the goto and resolve at the end.
type pendingGoto struct {
	block BlockID
	name  *names.Identifier
}

// Build constructs the control-flow graph of a function body. The
// entry block is a synthetic empty block; every return edge leads to
// the shared exit block. Blocks with no path from entry stay in the
// graph unmarked, so checkers can see code after a return or goto.
func Build(unit *ast.Unit, fn ast.DeclID) *Graph {
	g := &Graph{Fn: fn, Entry: NoBlockID, Exit: NoBlockID}
	b := &builder{unit: unit, g: g, labels: make(map[*names.Identifier]BlockID)}

	exit := b.newBlock(TermNone, ast.NoStmtID)
	g.Exit = exit.ID
	b.succ = exit.ID

	if d := unit.Decl(fn); d != nil && d.Kind == ast.DeclFunction && d.Fn.Body.IsValid() {
		b.walk(d.Fn.Body)
	}
	first := b.finish()

	entry := b.newBlock(TermNone, ast.NoStmtID)
	g.Entry = entry.ID
	g.connect(entry.ID, first)

	b.patchGotos()
	g.sweep()
	return g
}

func (b *builder) newBlock(term TermKind, stmt ast.StmtID) *Block {
	blk := &Block{ID: BlockID(len(b.g.Blocks)), Term: term, TermStmt: stmt}
	b.g.Blocks = append(b.g.Blocks, blk)
	return blk
}

// ensure opens a plain block flowing to the current successor.
func (b *builder) ensure() {
	if b.cur != nil {
		return
	}
	blk := b.newBlock(TermNone, ast.NoStmtID)
	b.g.connect(blk.ID, b.succ)
	b.cur = blk
}

// finish seals the current block and returns the entry point of the
// code built so far: the sealed block, or the successor when nothing
// accumulated.
func (b *builder) finish() BlockID {
	if b.cur == nil {
		return b.succ
	}
	elems := b.cur.Elems
	for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
		elems[i], elems[j] = elems[j], elems[i]
	}
	id := b.cur.ID
	b.cur = nil
	return id
}

// branch walks a substatement with its own successor and returns its
// entry block.
func (b *builder) branch(s ast.StmtID, succ BlockID) BlockID {
	saved := b.succ
	b.succ = succ
	b.walk(s)
	entry := b.finish()
	b.succ = saved
	return entry
}

func (b *builder) appendElem(el Element) {
	b.ensure()
	b.cur.Elems = append(b.cur.Elems, el)
}

func (b *builder) walk(id ast.StmtID) {
	s := b.unit.Stmt(id)
	if s == nil || s.Invalid {
		return
	}
	switch s.Kind {
	case ast.StmtCompound:
		body := s.Compound.Body
		for i := len(body) - 1; i >= 0; i-- {
			b.walk(body[i])
		}
	case ast.StmtExpr, ast.StmtDecl:
		b.appendElem(Element{Stmt: id})
	case ast.StmtNull:
		// nothing
	case ast.StmtIf:
		b.ifStmt(id, s)
	case ast.StmtWhile:
		b.whileStmt(id, s)
	case ast.StmtDo:
		b.doStmt(id, s)
	case ast.StmtFor:
		b.forStmt(id, s)
	case ast.StmtSwitch:
		b.switchStmt(id, s)
	case ast.StmtCase:
		b.caseStmt(id, s)
	case ast.StmtDefault:
		b.defaultStmt(id, s)
	case ast.StmtLabel:
		b.labelStmt(s)
	case ast.StmtGoto:
		b.gotoStmt(id, s)
	case ast.StmtBreak:
		b.jumpStmt(id, TermBreak, b.breaks)
	case ast.StmtContinue:
		b.jumpStmt(id, TermContinue, b.continues)
	case ast.StmtReturn:
		b.returnStmt(id)
	}
}

// ifStmt emits both arms against the block after the statement, then
// opens the condition block so preceding statements join it.
func (b *builder) ifStmt(id ast.StmtID, s *ast.Stmt) {
	after := b.finish()
	thenEntry := b.branch(s.If.Then, after)
	elseEntry := after
	if s.If.Else.IsValid() {
		elseEntry = b.branch(s.If.Else, after)
	}
	blk := b.newBlock(TermIf, id)
	b.g.connect(blk.ID, thenEntry)
	b.g.connect(blk.ID, elseEntry)
	b.cur = blk
}

func (b *builder) whileStmt(id ast.StmtID, s *ast.Stmt) {
	after := b.finish()
	cond := b.newBlock(TermLoop, id)

	b.pushLoop(after, cond.ID)
	bodyEntry := b.branch(s.While.Body, cond.ID)
	b.popLoop()

	b.g.connect(cond.ID, bodyEntry)
	b.g.connect(cond.ID, after)
	b.succ = cond.ID
}

func (b *builder) doStmt(id ast.StmtID, s *ast.Stmt) {
	after := b.finish()
	cond := b.newBlock(TermLoop, id)

	b.pushLoop(after, cond.ID)
	bodyEntry := b.branch(s.While.Body, cond.ID)
	b.popLoop()

	b.g.connect(cond.ID, bodyEntry)
	b.g.connect(cond.ID, after)
	b.succ = bodyEntry
}

func (b *builder) forStmt(id ast.StmtID, s *ast.Stmt) {
	after := b.finish()
	cond := b.newBlock(TermLoop, id)

	// The increment runs between the body (or a continue) and the
	// next condition test.
	contTarget := cond.ID
	if s.For.Inc.IsValid() {
		inc := b.newBlock(TermNone, ast.NoStmtID)
		inc.Elems = append(inc.Elems, Element{Expr: s.For.Inc})
		b.g.connect(inc.ID, cond.ID)
		contTarget = inc.ID
	}

	b.pushLoop(after, contTarget)
	bodyEntry := b.branch(s.For.Body, contTarget)
	b.popLoop()

	b.g.connect(cond.ID, bodyEntry)
	if s.For.Cond.IsValid() {
		b.g.connect(cond.ID, after)
	}
	b.succ = cond.ID
	if s.For.Init.IsValid() {
		b.walk(s.For.Init)
	}
}

func (b *builder) switchStmt(id ast.StmtID, s *ast.Stmt) {
	after := b.finish()
	sw := b.newBlock(TermSwitch, id)

	scope := &switchScope{sw: sw, def: NoBlockID}
	b.switches = append(b.switches, scope)
	b.breaks = append(b.breaks, after)

	// Statements before the first case label end up in a block the
	// dispatch never targets; the sweep leaves it unmarked.
	b.branch(s.Switch.Body, after)

	b.breaks = b.breaks[:len(b.breaks)-1]
	b.switches = b.switches[:len(b.switches)-1]

	// The walk collected cases back-to-front; connect them in source
	// order, with the default (or the fall-out edge) last.
	for i := len(scope.cases) - 1; i >= 0; i-- {
		b.g.connect(sw.ID, scope.cases[i])
	}
	if scope.def.IsValid() {
		b.g.connect(sw.ID, scope.def)
	} else {
		b.g.connect(sw.ID, after)
	}
	b.cur = sw
}

func (b *builder) caseStmt(id ast.StmtID, s *ast.Stmt) {
	if len(b.switches) == 0 {
		b.walk(s.Case.Body)
		return
	}
	if s.Case.Body.IsValid() {
		b.walk(s.Case.Body)
	}
	b.ensure()
	b.cur.Elems = append(b.cur.Elems, Element{Stmt: id})
	entry := b.finish()
	scope := b.switches[len(b.switches)-1]
	scope.cases = append(scope.cases, entry)
	// A textually earlier case falls through into this one.
	b.succ = entry
}

func (b *builder) defaultStmt(_ ast.StmtID, s *ast.Stmt) {
	if len(b.switches) == 0 {
		b.walk(s.Default.Body)
		return
	}
	if s.Default.Body.IsValid() {
		b.walk(s.Default.Body)
	}
	b.ensure()
	entry := b.finish()
	b.switches[len(b.switches)-1].def = entry
	b.succ = entry
}

func (b *builder) labelStmt(s *ast.Stmt) {
	if s.Label.Body.IsValid() {
		b.walk(s.Label.Body)
	}
	b.ensure()
	entry := b.finish()
	b.g.Blocks[entry].Label = s.Label.Name
	b.labels[s.Label.Name] = entry
	b.succ = entry
}

// gotoStmt links forward jumps immediately; the reverse walk has
// already seen every label below the goto. Backward jumps wait for
// patchGotos.
func (b *builder) gotoStmt(id ast.StmtID, s *ast.Stmt) {
	b.finish()
	blk := b.newBlock(TermGoto, id)
	if target, ok := b.labels[s.Goto.Name]; ok {
		b.g.connect(blk.ID, target)
	} else {
		b.pending = append(b.pending, pendingGoto{block: blk.ID, name: s.Goto.Name})
	}
	b.cur = blk
}

func (b *builder) jumpStmt(id ast.StmtID, term TermKind, targets []BlockID) {
	b.finish()
	blk := b.newBlock(term, id)
	target := b.g.Exit
	if len(targets) > 0 {
		target = targets[len(targets)-1]
	}
	b.g.connect(blk.ID, target)
	b.cur = blk
}

func (b *builder) returnStmt(id ast.StmtID) {
	b.finish()
	blk := b.newBlock(TermReturn, id)
	b.g.connect(blk.ID, b.g.Exit)
	b.cur = blk
}

func (b *builder) pushLoop(brk, cont BlockID) {
	b.breaks = append(b.breaks, brk)
	b.continues = append(b.continues, cont)
}

func (b *builder) popLoop() {
	b.breaks = b.breaks[:len(b.breaks)-1]
	b.continues = b.continues[:len(b.continues)-1]
}

// patchGotos resolves jumps to labels that precede them. An unknown
// label was already diagnosed during analysis; its block keeps no
// successor, since the jump goes nowhere the graph can name.
func (b *builder) patchGotos() {
	for _, p := range b.pending {
		target, ok := b.labels[p.name]
		if !ok {
			continue
		}
		b.g.connect(p.block, target)
	}
}
