package ir

// TermKind enumerates block terminators.
type TermKind uint8

const (
	// TermNone marks an open block still under construction.
	TermNone TermKind = iota
	// TermRet returns from the function.
	TermRet
	// TermBr branches unconditionally.
	TermBr
	// TermCondBr branches on an i1 condition.
	TermCondBr
	// TermSwitch branches on an integer value over a case table.
	TermSwitch
	// TermUnreachable marks a point control never reaches.
	TermUnreachable
)

type RetTerm struct {
	HasValue bool
	Value    ValueID
}

type BrTerm struct {
	Target BlockID
}

type CondBrTerm struct {
	Cond ValueID
	Then BlockID
	Else BlockID
}

type SwitchCase struct {
	Value  int64
	Target BlockID
}

type SwitchTerm struct {
	Value   ValueID
	Cases   []SwitchCase
	Default BlockID
}

type Terminator struct {
	Kind TermKind

	Ret    RetTerm
	Br     BrTerm
	CondBr CondBrTerm
	Switch SwitchTerm
}

// Successors returns the successor blocks of a terminator in emission
// order.
func (t Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermBr:
		return []BlockID{t.Br.Target}
	case TermCondBr:
		return []BlockID{t.CondBr.Then, t.CondBr.Else}
	case TermSwitch:
		out := make([]BlockID, 0, len(t.Switch.Cases)+1)
		for _, c := range t.Switch.Cases {
			out = append(out, c.Target)
		}
		if t.Switch.Default.IsValid() {
			out = append(out, t.Switch.Default)
		}
		return out
	default:
		return nil
	}
}

type Block struct {
	ID     BlockID
	Name   string
	Instrs []Instr
	Term   Terminator
	// Dead marks blocks lowered for statically unreachable code, such
	// as statements after a goto. They legitimately have no
	// predecessors.
	Dead bool
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}
