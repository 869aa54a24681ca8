package diagfmt

import (
	"fmt"
	"io"

	"cinder/internal/ast"
	"cinder/internal/layout"
	"cinder/internal/types"
)

// DumpLayouts writes the memory layout of every complete record type in the
// unit: total size and alignment, then one line per slot with its byte
// offset. Bit-fields report the bit offset within the byte as well.
func DumpLayouts(w io.Writer, u *ast.Unit, eng *layout.Engine) error {
	pr := &types.Printer{Types: u.Types, Strings: u.Strings}
	for id := types.TypeID(1); int(id) < u.Types.Len(); id++ {
		t, ok := u.Types.Lookup(id)
		if !ok || t.Kind != types.KindRecord {
			continue
		}
		info, ok := u.Types.RecordInfo(id)
		if !ok || !info.Complete {
			continue
		}
		lay, err := eng.Of(id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s: size %d, align %d\n",
			pr.SprintID(id), lay.Size/8, lay.Align/8); err != nil {
			return err
		}
		for _, slot := range lay.Slots {
			if err := writeSlot(w, u, pr, info, slot); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSlot(w io.Writer, u *ast.Unit, pr *types.Printer, info *types.RecordInfo, slot layout.Slot) error {
	if slot.IsPadding() {
		_, err := fmt.Fprintf(w, "  %s <padding %d bits>\n", bitPos(slot.Offset), slot.Size)
		return err
	}
	f := info.Fields[slot.Field]
	name := u.Strings.MustLookup(f.Name)
	if name == "" {
		name = "<anonymous>"
	}
	if f.BitWidth >= 0 {
		_, err := fmt.Fprintf(w, "  %s %s '%s' : %d\n", bitPos(slot.Offset), name, pr.Sprint(f.Type), f.BitWidth)
		return err
	}
	_, err := fmt.Fprintf(w, "  %s %s '%s'\n", bitPos(slot.Offset), name, pr.Sprint(f.Type))
	return err
}

// bitPos renders a bit offset as a byte offset, qualified with the bit
// within the byte when the position is not byte aligned.
func bitPos(bits int) string {
	if bits%8 == 0 {
		return fmt.Sprintf("@%d", bits/8)
	}
	return fmt.Sprintf("@%d.%d", bits/8, bits%8)
}
