package ir

import (
	"errors"
	"fmt"
)

// Validate checks module well-formedness. Returns an error joining
// every violation found.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks one function: every block is terminated exactly
// once, branch targets exist, operand values are in range, and every
// non-entry block has at least one predecessor unless it ends in
// unreachable or is marked dead.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error

	if len(f.Blocks) == 0 {
		return errors.New("no blocks")
	}

	preds := make([]int, len(f.Blocks))
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("block b%d is not terminated", b.ID))
		}
		for _, succ := range b.Term.Successors() {
			if succ < 0 || int(succ) >= len(f.Blocks) {
				errs = append(errs, fmt.Errorf("block b%d branches to missing block b%d", b.ID, succ))
				continue
			}
			preds[succ]++
		}
		for j := range b.Instrs {
			if err := validateInstr(f, b, &b.Instrs[j]); err != nil {
				errs = append(errs, fmt.Errorf("b%d[%d]: %w", b.ID, j, err))
			}
		}
		if err := validateTermOperands(f, b); err != nil {
			errs = append(errs, fmt.Errorf("b%d: %w", b.ID, err))
		}
	}

	entry := f.Entry()
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if b.ID == entry || preds[b.ID] > 0 || b.Dead {
			continue
		}
		if b.Term.Kind != TermUnreachable {
			errs = append(errs, fmt.Errorf("block b%d has no predecessors", b.ID))
		}
	}

	return errors.Join(errs...)
}

func validValue(f *Func, id ValueID) bool {
	return id >= 0 && int(id) < len(f.Values)
}

func checkOperands(f *Func, ids ...ValueID) error {
	for _, id := range ids {
		if !validValue(f, id) {
			return fmt.Errorf("operand v%d out of range", id)
		}
	}
	return nil
}

func validateInstr(f *Func, b *Block, in *Instr) error {
	switch in.Kind {
	case InstrAlloca:
		if in.Alloca.Count.IsValid() {
			return checkOperands(f, in.Alloca.Count)
		}
		return nil
	case InstrBin:
		return checkOperands(f, in.Bin.LHS, in.Bin.RHS)
	case InstrCmp:
		return checkOperands(f, in.Cmp.LHS, in.Cmp.RHS)
	case InstrCast:
		return checkOperands(f, in.Cast.Src)
	case InstrFieldAddr:
		return checkOperands(f, in.FieldAddr.Base)
	case InstrIndexAddr:
		return checkOperands(f, in.IndexAddr.Base, in.IndexAddr.Index)
	case InstrLoad:
		return checkOperands(f, in.Load.Addr)
	case InstrStore:
		return checkOperands(f, in.Store.Addr, in.Store.Val)
	case InstrCall:
		if err := checkOperands(f, in.Call.Callee); err != nil {
			return err
		}
		return checkOperands(f, in.Call.Args...)
	case InstrPhi:
		for _, e := range in.Phi.Edges {
			if err := checkOperands(f, e.Value); err != nil {
				return err
			}
			if e.From < 0 || int(e.From) >= len(f.Blocks) {
				return fmt.Errorf("phi edge from missing block b%d", e.From)
			}
		}
		return nil
	case InstrIntrinsic:
		return checkOperands(f, in.Intrinsic.Args...)
	case InstrSelect:
		return checkOperands(f, in.Select.Cond, in.Select.Then, in.Select.Else)
	default:
		return fmt.Errorf("unknown instruction kind %d", in.Kind)
	}
}

func validateTermOperands(f *Func, b *Block) error {
	switch b.Term.Kind {
	case TermRet:
		if b.Term.Ret.HasValue {
			return checkOperands(f, b.Term.Ret.Value)
		}
	case TermCondBr:
		return checkOperands(f, b.Term.CondBr.Cond)
	case TermSwitch:
		return checkOperands(f, b.Term.Switch.Value)
	}
	return nil
}
