package cfg

import (
	"fmt"
	"io"

	"cinder/internal/ast"
)

var termNames = [...]string{
	TermNone:     "fallthrough",
	TermIf:       "if",
	TermLoop:     "loop",
	TermSwitch:   "switch",
	TermReturn:   "return",
	TermGoto:     "goto",
	TermBreak:    "break",
	TermContinue: "continue",
}

// Dump writes a human-readable listing of the graph: one section per
// block with its elements, terminator, and edges.
func Dump(w io.Writer, unit *ast.Unit, g *Graph) error {
	if w == nil || g == nil {
		return nil
	}
	name := "?"
	if d := unit.Decl(g.Fn); d != nil {
		name = d.Name.String()
	}
	if _, err := fmt.Fprintf(w, "cfg %s entry=B%d exit=B%d blocks=%d\n",
		name, g.Entry, g.Exit, len(g.Blocks)); err != nil {
		return err
	}
	for _, b := range g.Blocks {
		header := fmt.Sprintf("B%d", b.ID)
		switch b.ID {
		case g.Entry:
			header += " (entry)"
		case g.Exit:
			header += " (exit)"
		}
		if b.Label != nil {
			header += " label=" + b.Label.String()
		}
		if !b.Reachable {
			header += " unreachable"
		}
		if _, err := fmt.Fprintf(w, "%s:\n", header); err != nil {
			return err
		}
		for _, el := range b.Elems {
			if err := printElem(w, unit, el); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  %s ->%s\n", termNames[b.Term], edgeList(b.Succs)); err != nil {
			return err
		}
	}
	return nil
}

func printElem(w io.Writer, unit *ast.Unit, el Element) error {
	if el.Expr.IsValid() {
		_, err := fmt.Fprintf(w, "  expr @%d\n", unit.Expr(el.Expr).Span.Start)
		return err
	}
	s := unit.Stmt(el.Stmt)
	if s == nil {
		return nil
	}
	kind := "stmt"
	switch s.Kind {
	case ast.StmtDecl:
		kind = "decl"
	case ast.StmtExpr:
		kind = "expr"
	case ast.StmtCase:
		kind = "case"
	}
	_, err := fmt.Fprintf(w, "  %s @%d\n", kind, s.Span.Start)
	return err
}

func edgeList(succs []BlockID) string {
	if len(succs) == 0 {
		return " none"
	}
	out := ""
	for _, s := range succs {
		out += fmt.Sprintf(" B%d", s)
	}
	return out
}
