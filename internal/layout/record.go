package layout

import (
	"cinder/internal/types"
)

// bit-field storage unit currently being filled
type openUnit struct {
	start int // bit offset of the unit
	size  int // bits, from the declared type
	align int // bits, pack-capped
}

// recordLayout places struct and class fields in declaration order.
//
// Plain fields are aligned to their (pack-capped) natural alignment. A
// bit-field opens a storage unit of its declared type's size at the current
// cursor without aligning it; later bit-fields of the same declared size keep
// packing into that unit while they fit. Closing a unit advances the cursor
// to the unit's end and rounds it up to the unit type's alignment. A
// zero-width bit-field closes the open unit. Bit-field declared types
// contribute to the record's alignment even though the units themselves are
// placed unaligned.
func (e *Engine) recordLayout(id types.TypeID, info *types.RecordInfo, state *walkState) (Info, *Error) {
	cap := packCap(info.Pack)
	cursor := 0
	align := 8
	offsets := make([]int, len(info.Fields))
	slots := make([]Slot, 0, len(info.Fields))
	var unit *openUnit

	pad := func(upTo int) {
		if upTo > cursor {
			slots = append(slots, Slot{Field: -1, Offset: cursor, Size: upTo - cursor})
		}
	}
	closeUnit := func() {
		if unit == nil {
			return
		}
		end := roundUp(unit.start+unit.size, unit.align)
		pad(end)
		cursor = end
		unit = nil
	}

	for i, f := range info.Fields {
		fi, err := e.of(f.Type.Type, state)
		if err != nil {
			return Info{Align: 8}, &Error{Kind: err.Kind, Type: err.Type, Field: i, Cycle: err.Cycle}
		}
		if !f.IsBitField() {
			closeUnit()
			fa := capAlign(fi.Align, cap)
			at := roundUp(cursor, fa)
			pad(at)
			offsets[i] = at
			slots = append(slots, Slot{Field: i, Offset: at, Size: fi.Size})
			cursor = at + fi.Size
			align = maxInt(align, fa)
			continue
		}

		width := int(f.BitWidth)
		ua := capAlign(fi.Align, cap)
		if width > fi.Size {
			return Info{Align: 8}, &Error{Kind: ErrBitFieldWidth, Type: id, Field: i}
		}
		if width == 0 {
			closeUnit()
			at := roundUp(cursor, ua)
			pad(at)
			cursor = at
			offsets[i] = cursor
			continue
		}
		if unit != nil && unit.size == fi.Size && (cursor-unit.start)+width > unit.size {
			closeUnit()
		}
		if unit != nil && unit.size != fi.Size {
			closeUnit()
		}
		if unit == nil {
			unit = &openUnit{start: cursor, size: fi.Size, align: ua}
		}
		offsets[i] = cursor
		slots = append(slots, Slot{Field: i, Offset: cursor, Size: width})
		cursor += width
		align = maxInt(align, ua)
	}
	closeUnit()

	size := roundUp(cursor, align)
	// An empty struct still occupies one byte so distinct objects have
	// distinct addresses.
	if size == 0 && info.Tag == types.TagClass {
		size = 8
	}
	pad(size)
	return Info{Size: size, Align: align, FieldOffsets: offsets, Slots: slots}, nil
}

// unionLayout overlays every field at offset zero.
func (e *Engine) unionLayout(id types.TypeID, info *types.RecordInfo, state *walkState) (Info, *Error) {
	cap := packCap(info.Pack)
	align := 8
	widest := 0
	offsets := make([]int, len(info.Fields))
	slots := make([]Slot, 0, len(info.Fields))

	for i, f := range info.Fields {
		fi, err := e.of(f.Type.Type, state)
		if err != nil {
			return Info{Align: 8}, &Error{Kind: err.Kind, Type: err.Type, Field: i, Cycle: err.Cycle}
		}
		size := fi.Size
		if f.IsBitField() {
			width := int(f.BitWidth)
			if width > fi.Size {
				return Info{Align: 8}, &Error{Kind: ErrBitFieldWidth, Type: id, Field: i}
			}
			if width == 0 {
				continue
			}
			size = fi.Size // the whole storage unit participates in max
			slots = append(slots, Slot{Field: i, Offset: 0, Size: width})
		} else {
			slots = append(slots, Slot{Field: i, Offset: 0, Size: size})
		}
		offsets[i] = 0
		align = maxInt(align, capAlign(fi.Align, cap))
		widest = maxInt(widest, size)
	}

	size := roundUp(widest, align)
	return Info{Size: size, Align: align, FieldOffsets: offsets, Slots: slots}, nil
}

func packCap(pack uint8) int {
	if pack == 0 {
		return 0
	}
	return int(pack) * 8
}

func capAlign(align, cap int) int {
	if cap != 0 && align > cap {
		return cap
	}
	return align
}
