// Package names interns identifiers and composite declaration names.
// Identifiers have pointer identity: two mentions of the same spelling share
// one *Identifier, so maps keyed by identifier are cheap.
package names

import (
	"fmt"

	"cinder/internal/target"
	"cinder/internal/types"
)

// Identifier is an interned identifier. Builtin is non-zero when the spelling
// names a target builtin function.
type Identifier struct {
	Text    string
	Builtin target.BuiltinID
}

func (id *Identifier) String() string {
	if id == nil {
		return "<nil>"
	}
	return id.Text
}

// OperatorKind enumerates overloadable operators for operator-function names.
type OperatorKind uint8

const (
	OpNone OperatorKind = iota
	OpPlus
	OpMinus
	OpStar
	OpSlash
	OpPercent
	OpAmp
	OpPipe
	OpCaret
	OpTilde
	OpExclaim
	OpEqual
	OpEqualEqual
	OpExclaimEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpLessLess
	OpGreaterGreater
	OpAmpAmp
	OpPipePipe
	OpPlusPlus
	OpMinusMinus
	OpArrow
	OpCall
	OpSubscript
)

var operatorSpellings = map[OperatorKind]string{
	OpPlus: "+", OpMinus: "-", OpStar: "*", OpSlash: "/", OpPercent: "%",
	OpAmp: "&", OpPipe: "|", OpCaret: "^", OpTilde: "~", OpExclaim: "!",
	OpEqual: "=", OpEqualEqual: "==", OpExclaimEqual: "!=",
	OpLess: "<", OpGreater: ">", OpLessEqual: "<=", OpGreaterEqual: ">=",
	OpLessLess: "<<", OpGreaterGreater: ">>", OpAmpAmp: "&&", OpPipePipe: "||",
	OpPlusPlus: "++", OpMinusMinus: "--", OpArrow: "->",
	OpCall: "()", OpSubscript: "[]",
}

func (k OperatorKind) Spelling() string {
	if s, ok := operatorSpellings[k]; ok {
		return s
	}
	return "?"
}

// NameKind tags a DeclName variant.
type NameKind uint8

const (
	NameIdentifier NameKind = iota
	NameConstructor
	NameDestructor
	NameConversion
	NameOperator
	NameSelector
)

// DeclName is the composite name of a declaration. Equality is structural on
// the tag's payload; type payloads are stored canonically so two spellings of
// the same constructor compare equal. The zero DeclName is "no name".
type DeclName struct {
	Kind NameKind
	ID   *Identifier  // NameIdentifier, NameSelector
	Type types.TypeID // canonical; NameConstructor, NameDestructor, NameConversion
	Op   OperatorKind // NameOperator
}

func (n DeclName) Empty() bool {
	return n == DeclName{}
}

func (n DeclName) String() string {
	switch n.Kind {
	case NameIdentifier, NameSelector:
		return n.ID.String()
	case NameConstructor:
		return fmt.Sprintf("<constructor of type#%d>", n.Type)
	case NameDestructor:
		return fmt.Sprintf("~<type#%d>", n.Type)
	case NameConversion:
		return fmt.Sprintf("operator <type#%d>", n.Type)
	case NameOperator:
		return "operator" + n.Op.Spelling()
	}
	return "<invalid name>"
}
