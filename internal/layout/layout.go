// Package layout computes byte-exact type layout for a target: sizes,
// alignments, field offsets, bit-field storage units, and padding. All
// cursor arithmetic is in bits.
package layout

import (
	"cinder/internal/target"
	"cinder/internal/types"
)

// Slot is one allocated region of a record. Field indexes the record's field
// list; padding slots use Field == -1 and exist so initializer emission and
// the back end can skip them.
type Slot struct {
	Field  int
	Offset int // bits
	Size   int // bits
}

// IsPadding reports synthesized padding slots.
func (s Slot) IsPadding() bool {
	return s.Field < 0
}

// Info is the computed layout of a type.
type Info struct {
	Size  int // bits
	Align int // bits

	// Record-only: FieldOffsets is parallel to RecordInfo.Fields; Slots is
	// the full allocation map including padding.
	FieldOffsets []int
	Slots        []Slot
}

// Engine computes and caches layouts. It is owned by one translation unit
// and accessed from its single thread only.
type Engine struct {
	Target *target.Descriptor
	Types  *types.Interner

	cache map[types.TypeID]cacheEntry
}

type cacheEntry struct {
	info Info
	err  *Error
}

// New creates a layout engine for the target.
func New(desc *target.Descriptor, typesIn *types.Interner) *Engine {
	return &Engine{
		Target: desc,
		Types:  typesIn,
		cache:  make(map[types.TypeID]cacheEntry, 256),
	}
}

type walkState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

// Of computes and caches the layout of a type.
func (e *Engine) Of(id types.TypeID) (Info, error) {
	info, lerr := e.of(id, &walkState{index: make(map[types.TypeID]int, 8)})
	if lerr != nil {
		return info, lerr
	}
	return info, nil
}

// SizeOf returns a type's size in bits.
func (e *Engine) SizeOf(id types.TypeID) (int, error) {
	info, err := e.Of(id)
	return info.Size, err
}

// AlignOf returns a type's alignment in bits.
func (e *Engine) AlignOf(id types.TypeID) (int, error) {
	info, err := e.Of(id)
	return info.Align, err
}

// FieldOffset returns the bit offset of field idx of a record type.
func (e *Engine) FieldOffset(record types.TypeID, idx int) (int, error) {
	info, err := e.Of(record)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(info.FieldOffsets) {
		return 0, &Error{Kind: ErrNoSuchField, Type: record}
	}
	return info.FieldOffsets[idx], nil
}

func (e *Engine) of(id types.TypeID, state *walkState) (Info, *Error) {
	canon := e.Types.Canonical(id)
	if entry, ok := e.cache[canon]; ok {
		return entry.info, entry.err
	}
	if at, ok := state.index[canon]; ok {
		cycle := append([]types.TypeID(nil), state.stack[at:]...)
		cycle = append(cycle, canon)
		err := &Error{Kind: ErrRecursive, Type: canon, Cycle: cycle}
		e.cache[canon] = cacheEntry{info: Info{Align: 8}, err: err}
		return Info{Align: 8}, err
	}
	state.index[canon] = len(state.stack)
	state.stack = append(state.stack, canon)
	info, err := e.compute(canon, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, canon)

	e.cache[canon] = cacheEntry{info: info, err: err}
	return info, err
}

func (e *Engine) compute(id types.TypeID, state *walkState) (Info, *Error) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return Info{Align: 8}, &Error{Kind: ErrIncomplete, Type: id}
	}
	switch tt.Kind {
	case types.KindBuiltin:
		return e.builtinLayout(tt.Builtin)

	case types.KindPointer, types.KindReference:
		return Info{Size: e.Target.Pointer.Size, Align: e.Target.Pointer.Align}, nil

	case types.KindMemberPointer:
		// Data member pointer: one pointer-sized offset.
		return Info{Size: e.Target.Pointer.Size, Align: e.Target.Pointer.Align}, nil

	case types.KindComplex:
		elem, err := e.of(tt.Elem.Type, state)
		if err != nil {
			return Info{Align: 8}, err
		}
		return Info{Size: 2 * elem.Size, Align: elem.Align}, nil

	case types.KindConstantArray:
		elem, err := e.of(tt.Elem.Type, state)
		if err != nil {
			return Info{Align: 8}, err
		}
		stride := roundUp(elem.Size, elem.Align)
		return Info{Size: stride * int(tt.Count), Align: elem.Align}, nil

	case types.KindIncompleteArray:
		elem, err := e.of(tt.Elem.Type, state)
		if err != nil {
			return Info{Align: 8}, err
		}
		return Info{Size: 0, Align: elem.Align}, nil

	case types.KindVariableArray:
		// Runtime-sized; only the element alignment is static.
		elem, err := e.of(tt.Elem.Type, state)
		if err != nil {
			return Info{Align: 8}, err
		}
		return Info{Size: 0, Align: elem.Align}, &Error{Kind: ErrVariableSize, Type: id}

	case types.KindVector, types.KindExtVector:
		elem, err := e.of(tt.Elem.Type, state)
		if err != nil {
			return Info{Align: 8}, err
		}
		size := elem.Size * int(tt.Count)
		return Info{Size: size, Align: nextPow2(size)}, nil

	case types.KindEnum:
		info, ok := e.Types.EnumInfo(id)
		if !ok || !info.Complete {
			return Info{Align: 8}, &Error{Kind: ErrIncomplete, Type: id}
		}
		if info.Underlying != types.NoTypeID {
			return e.of(info.Underlying, state)
		}
		return e.builtinLayout(types.BuiltinInt)

	case types.KindRecord:
		info, ok := e.Types.RecordInfo(id)
		if !ok || !info.Complete {
			return Info{Align: 8}, &Error{Kind: ErrIncomplete, Type: id}
		}
		if info.Tag == types.TagUnion {
			return e.unionLayout(id, info, state)
		}
		return e.recordLayout(id, info, state)

	case types.KindFunction:
		return Info{Align: 8}, &Error{Kind: ErrIncomplete, Type: id}

	default:
		return Info{Align: 8}, &Error{Kind: ErrIncomplete, Type: id}
	}
}

func (e *Engine) builtinLayout(k types.BuiltinKind) (Info, *Error) {
	var ti target.TypeInfo
	switch k {
	case types.BuiltinVoid:
		return Info{Size: 0, Align: 8}, nil
	case types.BuiltinBool:
		ti = e.Target.Bool
	case types.BuiltinChar, types.BuiltinSChar, types.BuiltinUChar:
		ti = e.Target.Char
	case types.BuiltinShort, types.BuiltinUShort:
		ti = e.Target.Short
	case types.BuiltinInt, types.BuiltinUInt:
		ti = e.Target.Int
	case types.BuiltinLong, types.BuiltinULong:
		ti = e.Target.Long
	case types.BuiltinLongLong, types.BuiltinULongLong:
		ti = e.Target.LongLong
	case types.BuiltinFloat:
		ti = e.Target.Float
	case types.BuiltinDouble:
		ti = e.Target.Double
	case types.BuiltinLongDouble:
		ti = e.Target.LongDouble
	default:
		return Info{Align: 8}, &Error{Kind: ErrIncomplete}
	}
	return Info{Size: ti.Size, Align: ti.Align}, nil
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextPow2(n int) int {
	p := 8
	for p < n {
		p <<= 1
	}
	return p
}
