// Package cfg builds source-level control-flow graphs over decorated
// statement trees and runs the flow analyses that feed the flow
// diagnostics: a generic dataflow solver, liveness, a dead-store
// checker, and a path-sensitive symbolic executor.
package cfg

import (
	"cinder/internal/ast"
	"cinder/internal/names"
)

// BlockID indexes a block inside its graph.
type BlockID int32

// NoBlockID marks an absent block reference.
const NoBlockID BlockID = -1

// IsValid reports whether the id refers to a block.
func (id BlockID) IsValid() bool { return id >= 0 }

// Element is one statement slot of a basic block. Exactly one of Stmt
// and Expr is set; Expr carries statement-position expressions that
// have no statement node of their own, such as a for-loop increment.
type Element struct {
	Stmt ast.StmtID
	Expr ast.ExprID
}

// TermKind classifies how a block transfers control.
type TermKind uint8

const (
	// TermNone falls through to the single successor.
	TermNone TermKind = iota
	// TermIf branches on a condition; successors are {then, else}.
	TermIf
	// TermLoop tests a loop condition; successors are {body, exit}.
	TermLoop
	// TermSwitch dispatches on an integer; successors are the case
	// entries, the default (or the block after the switch) last.
	TermSwitch
	// TermReturn leaves the function; the single successor is exit.
	TermReturn
	// TermGoto, TermBreak and TermContinue are unconditional jumps.
	TermGoto
	TermBreak
	TermContinue
)

// Block is one basic block. Elements run in source order; Term and
// TermStmt describe the transfer out of the block.
type Block struct {
	ID       BlockID
	Elems    []Element
	Term     TermKind
	TermStmt ast.StmtID
	Succs    []BlockID
	Preds    []BlockID

	// Label is set on blocks that start at a label or case statement.
	Label *names.Identifier

	// Reachable is false for blocks the mark-and-sweep from entry
	// never visits, such as code after a return.
	Reachable bool
}

// Graph is the control-flow graph of one function body. Entry is an
// empty synthetic block; Exit collects every return.
type Graph struct {
	Fn     ast.DeclID
	Blocks []*Block
	Entry  BlockID
	Exit   BlockID
}

// Block returns the block with the given id, nil if out of range.
func (g *Graph) Block(id BlockID) *Block {
	if g == nil || id < 0 || int(id) >= len(g.Blocks) {
		return nil
	}
	return g.Blocks[id]
}

// connect records the a→b edge on both ends.
func (g *Graph) connect(a, b BlockID) {
	g.Blocks[a].Succs = append(g.Blocks[a].Succs, b)
	g.Blocks[b].Preds = append(g.Blocks[b].Preds, a)
}

// sweep marks every block reachable from entry.
func (g *Graph) sweep() {
	stack := []BlockID{g.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := g.Blocks[id]
		if b.Reachable {
			continue
		}
		b.Reachable = true
		stack = append(stack, b.Succs...)
	}
}
