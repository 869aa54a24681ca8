package ast

import (
	"cinder/internal/names"
	"cinder/internal/source"
)

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtCompound
	StmtIf
	StmtWhile
	StmtDo
	StmtFor
	StmtSwitch
	StmtCase
	StmtDefault
	StmtLabel
	StmtGoto
	StmtBreak
	StmtContinue
	StmtReturn
	StmtDecl
	StmtExpr
	StmtNull
)

// CompoundStmt is an ordered block of statements.
type CompoundStmt struct {
	Body []StmtID
}

// IfStmt with optional else.
type IfStmt struct {
	Cond ExprID
	Then StmtID
	Else StmtID
}

// WhileStmt and DoStmt share the payload.
type WhileStmt struct {
	Cond ExprID
	Body StmtID
}

// ForStmt; any of the three header parts may be absent.
type ForStmt struct {
	Init StmtID
	Cond ExprID
	Inc  ExprID
	Body StmtID
}

// SwitchStmt owns the controlling expression; cases register themselves
// while the body is walked.
type SwitchStmt struct {
	Cond ExprID
	Body StmtID
}

// CaseStmt; Hi is set only for the GNU case-range extension.
type CaseStmt struct {
	Lo   ExprID
	Hi   ExprID
	Body StmtID
	// LoVal/HiVal are the evaluated labels.
	LoVal int64
	HiVal int64
}

// DefaultStmt of a switch.
type DefaultStmt struct {
	Body StmtID
}

// LabelStmt and GotoStmt resolve lazily through the function's label map.
type LabelStmt struct {
	Name *names.Identifier
	Body StmtID
}

type GotoStmt struct {
	Name *names.Identifier
}

// ReturnStmt with optional value.
type ReturnStmt struct {
	Value ExprID
}

// DeclStmt introduces local declarations.
type DeclStmt struct {
	Decls []DeclID
}

// ExprStmt evaluates an expression for effect.
type ExprStmt struct {
	E ExprID
}

// Stmt is a statement node; one payload is meaningful per Kind.
type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Invalid bool

	Compound CompoundStmt
	If       IfStmt
	While    WhileStmt
	For      ForStmt
	Switch   SwitchStmt
	Case     CaseStmt
	Default  DefaultStmt
	Label    LabelStmt
	Goto     GotoStmt
	Return   ReturnStmt
	Decl     DeclStmt
	Expr     ExprStmt
}
