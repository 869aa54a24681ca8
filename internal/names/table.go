package names

import (
	"cinder/internal/target"
	"cinder/internal/types"
)

// Table owns identifiers and declaration names for one translation unit.
type Table struct {
	idents map[string]*Identifier
	desc   *target.Descriptor
	types  *types.Interner
}

// NewTable allocates a table. desc may be nil when no builtin tagging is
// wanted (tests); typesIn canonicalizes the type payloads of composite names.
func NewTable(desc *target.Descriptor, typesIn *types.Interner) *Table {
	return &Table{
		idents: make(map[string]*Identifier, 256),
		desc:   desc,
		types:  typesIn,
	}
}

// Get interns an identifier spelling, tagging it with a builtin id when the
// target descriptor knows the name.
func (t *Table) Get(text string) *Identifier {
	if id, ok := t.idents[text]; ok {
		return id
	}
	id := &Identifier{Text: text}
	if t.desc != nil {
		id.Builtin = t.desc.FindBuiltin(text)
	}
	t.idents[text] = id
	return id
}

// Len reports the number of interned identifiers.
func (t *Table) Len() int {
	return len(t.idents)
}

// IdentifierName builds an ordinary declaration name.
func (t *Table) IdentifierName(id *Identifier) DeclName {
	return DeclName{Kind: NameIdentifier, ID: id}
}

// ConstructorName builds a constructor name for the class type.
func (t *Table) ConstructorName(class types.TypeID) DeclName {
	return DeclName{Kind: NameConstructor, Type: t.canon(class)}
}

// DestructorName builds a destructor name for the class type.
func (t *Table) DestructorName(class types.TypeID) DeclName {
	return DeclName{Kind: NameDestructor, Type: t.canon(class)}
}

// ConversionName builds a conversion-function name for the destination type.
func (t *Table) ConversionName(dest types.TypeID) DeclName {
	return DeclName{Kind: NameConversion, Type: t.canon(dest)}
}

// OperatorName builds an operator-function name.
func (t *Table) OperatorName(op OperatorKind) DeclName {
	return DeclName{Kind: NameOperator, Op: op}
}

// SelectorName builds an Objective-C style selector name.
func (t *Table) SelectorName(id *Identifier) DeclName {
	return DeclName{Kind: NameSelector, ID: id}
}

func (t *Table) canon(id types.TypeID) types.TypeID {
	if t.types == nil {
		return id
	}
	return t.types.Canonical(id)
}
