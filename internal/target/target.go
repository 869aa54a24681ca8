// Package target describes the machine the front end compiles for: sizes and
// alignments of the built-in types, pointer properties, endianness, and the
// ordered table of target builtin functions.
package target

import (
	"fmt"
)

// Endianness of the target.
type Endianness uint8

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// TypeInfo gives size and alignment of one built-in type, both in bits.
type TypeInfo struct {
	Size  int
	Align int
}

// Descriptor is the target description consumed by the type system and the
// semantic analyzer. All widths are in bits.
type Descriptor struct {
	Triple string

	Bool       TypeInfo
	Char       TypeInfo
	Short      TypeInfo
	Int        TypeInfo
	Long       TypeInfo
	LongLong   TypeInfo
	Float      TypeInfo
	Double     TypeInfo
	LongDouble TypeInfo

	Pointer TypeInfo
	Endian  Endianness

	CharIsSigned bool

	Builtins []Builtin
}

// BuiltinID indexes the descriptor's builtin table. Zero means "not a
// builtin"; identifiers carry it as a tag.
type BuiltinID uint16

const NoBuiltinID BuiltinID = 0

// BuiltinAttrs are attribute bits for builtin functions.
type BuiltinAttrs uint8

const (
	// BuiltinConst marks a builtin whose call folds to a constant when its
	// arguments are constants.
	BuiltinConst BuiltinAttrs = 1 << iota
	// BuiltinNoReturn marks builtins that never return (longjmp).
	BuiltinNoReturn
	// BuiltinLibFunction marks builtins that may fall back to a library call
	// of the same name.
	BuiltinLibFunction
)

// Builtin is one row of the target builtin table. Signature uses the compact
// encoding the tables are written in: result first, then parameters
// ('v' void, 'b' bool, 'c' char, 's' short, 'i' int, 'l' long, 'L' long long,
// 'f' float, 'd' double, '*' pointer-to previous, '.' variadic tail).
type Builtin struct {
	Name      string
	Signature string
	Attrs     BuiltinAttrs
}

// Validate rejects descriptors a layout engine cannot work with.
func (d *Descriptor) Validate() error {
	named := []struct {
		name string
		info TypeInfo
	}{
		{"bool", d.Bool}, {"char", d.Char}, {"short", d.Short},
		{"int", d.Int}, {"long", d.Long}, {"long long", d.LongLong},
		{"float", d.Float}, {"double", d.Double}, {"long double", d.LongDouble},
		{"pointer", d.Pointer},
	}
	for _, n := range named {
		if n.info.Size <= 0 || n.info.Align <= 0 {
			return fmt.Errorf("target %q: %s has non-positive size or align", d.Triple, n.name)
		}
		if n.info.Size%8 != 0 || n.info.Align%8 != 0 {
			return fmt.Errorf("target %q: %s size/align must be whole bytes", d.Triple, n.name)
		}
	}
	for i, b := range d.Builtins {
		if b.Name == "" || b.Signature == "" {
			return fmt.Errorf("target %q: builtin #%d is missing name or signature", d.Triple, i+1)
		}
	}
	return nil
}

// FindBuiltin returns the 1-based id of a builtin by name.
func (d *Descriptor) FindBuiltin(name string) BuiltinID {
	for i := range d.Builtins {
		if d.Builtins[i].Name == name {
			return BuiltinID(i + 1)
		}
	}
	return NoBuiltinID
}

// Builtin returns the table row for an id.
func (d *Descriptor) Builtin(id BuiltinID) (Builtin, bool) {
	if id == NoBuiltinID || int(id) > len(d.Builtins) {
		return Builtin{}, false
	}
	return d.Builtins[id-1], true
}
