package types

import "strings"

// Qual is the cv-qualifier bitset carried next to a TypeID. Qualifiers are
// deliberately not part of the interned Type: two mentions of `const int`
// share the `int` node.
type Qual uint8

const (
	QualConst Qual = 1 << iota
	QualVolatile
	QualRestrict
)

func (q Qual) Const() bool    { return q&QualConst != 0 }
func (q Qual) Volatile() bool { return q&QualVolatile != 0 }
func (q Qual) Restrict() bool { return q&QualRestrict != 0 }

// Compatible reports whether a value of qualification q may initialize a
// location expecting want (the qualification-superset rule).
func (q Qual) Compatible(want Qual) bool {
	return q&^want == 0
}

func (q Qual) String() string {
	if q == 0 {
		return ""
	}
	parts := make([]string, 0, 3)
	if q.Const() {
		parts = append(parts, "const")
	}
	if q.Volatile() {
		parts = append(parts, "volatile")
	}
	if q.Restrict() {
		parts = append(parts, "restrict")
	}
	return strings.Join(parts, " ")
}

// QualType pairs a type with its qualifiers.
type QualType struct {
	Type  TypeID
	Quals Qual
}

// Unqualified drops all qualifiers.
func (qt QualType) Unqualified() QualType {
	return QualType{Type: qt.Type}
}

// WithQuals adds qualifier bits.
func (qt QualType) WithQuals(q Qual) QualType {
	qt.Quals |= q
	return qt
}

func (qt QualType) IsNull() bool {
	return qt.Type == NoTypeID
}

// MakeQual wraps a bare TypeID in an unqualified QualType.
func MakeQual(id TypeID) QualType {
	return QualType{Type: id}
}
