package diag

import (
	"cinder/internal/source"
)

// ArgKind classifies a diagnostic message argument.
type ArgKind uint8

const (
	ArgString ArgKind = iota
	ArgInt
	ArgIdentifier
	ArgDeclName
	ArgType // pre-rendered by the type pretty-printer
)

// Arg is a structured message argument. Text carries the rendered form for
// every kind; Int is populated for ArgInt.
type Arg struct {
	Kind ArgKind
	Text string
	Int  int64
}

// Note is a secondary location attached to a diagnostic, e.g. the previous
// declaration in a redefinition report.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is the central record handed to reporters.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Args     []Arg
	Notes    []Note
}
