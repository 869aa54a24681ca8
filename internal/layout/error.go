package layout

import (
	"fmt"

	"cinder/internal/types"
)

// ErrorKind identifies why a layout could not be computed.
type ErrorKind uint8

const (
	// ErrIncomplete: the type has no definition (forward-declared record,
	// void, or a function type used as an object).
	ErrIncomplete ErrorKind = iota
	// ErrRecursive: a record contains itself by value.
	ErrRecursive
	// ErrVariableSize: a variably-modified type has no static size.
	ErrVariableSize
	// ErrBitFieldWidth: a bit-field is wider than its declared type.
	ErrBitFieldWidth
	// ErrNoSuchField: a field index is out of range for the record.
	ErrNoSuchField
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIncomplete:
		return "incomplete type"
	case ErrRecursive:
		return "recursive record"
	case ErrVariableSize:
		return "variable-size type"
	case ErrBitFieldWidth:
		return "bit-field too wide"
	case ErrNoSuchField:
		return "no such field"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error describes a failed layout computation.
type Error struct {
	Kind  ErrorKind
	Type  types.TypeID
	Field int
	// Cycle holds the by-value containment chain for ErrRecursive, starting
	// and ending at the same record.
	Cycle []types.TypeID
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrBitFieldWidth, ErrNoSuchField:
		return fmt.Sprintf("layout: %s (type %d, field %d)", e.Kind, e.Type, e.Field)
	default:
		return fmt.Sprintf("layout: %s (type %d)", e.Kind, e.Type)
	}
}
