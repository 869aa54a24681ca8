package ir

import (
	"fmt"
	"io"
	"strings"

	"cinder/internal/types"
)

var binOpNames = [...]string{
	BinAdd: "add",
	BinSub: "sub",
	BinMul: "mul",
	BinDiv: "div",
	BinRem: "rem",
	BinAnd: "and",
	BinOr:  "or",
	BinXor: "xor",
	BinShl: "shl",
	BinShr: "shr",
}

var cmpPredNames = [...]string{
	CmpEQ: "eq",
	CmpNE: "ne",
	CmpLT: "lt",
	CmpLE: "le",
	CmpGT: "gt",
	CmpGE: "ge",
}

var castOpNames = [...]string{
	CastBit:      "bitcast",
	CastTrunc:    "trunc",
	CastZExt:     "zext",
	CastSExt:     "sext",
	CastFPTrunc:  "fptrunc",
	CastFPExt:    "fpext",
	CastFPToSI:   "fptosi",
	CastFPToUI:   "fptoui",
	CastSIToFP:   "sitofp",
	CastUIToFP:   "uitofp",
	CastPtrToInt: "ptrtoint",
	CastIntToPtr: "inttoptr",
}

// DumpModule writes a human-readable rendering of the module.
func DumpModule(w io.Writer, m *Module, tp *types.Printer) error {
	if w == nil || m == nil {
		return nil
	}
	for i := range m.Globals {
		g := &m.Globals[i]
		link := "external"
		switch g.Linkage {
		case LinkInternal:
			link = "internal"
		case LinkCommon:
			link = "common"
		}
		if _, err := fmt.Fprintf(w, "global G%d %s %s %s\n", g.ID, link, typeStr(tp, g.Type), g.Name); err != nil {
			return err
		}
	}
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := DumpFunc(w, f, tp); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function.
func DumpFunc(w io.Writer, f *Func, tp *types.Printer) error {
	var params []string
	for _, p := range f.Params {
		s := fmt.Sprintf("v%d %s", p.Value, typeStr(tp, p.Type))
		if p.ByVal {
			s += " byval"
		}
		params = append(params, s)
	}
	suffix := ""
	if f.SRet {
		suffix = " sret"
	}
	if _, err := fmt.Fprintf(w, "func %s(%s) %s%s {\n", f.Name, strings.Join(params, ", "), typeStr(tp, f.Result), suffix); err != nil {
		return err
	}
	for i := range f.Blocks {
		b := &f.Blocks[i]
		name := b.Name
		if name != "" {
			name = " ; " + name
		}
		fmt.Fprintf(w, "b%d:%s\n", b.ID, name)
		for j := range b.Instrs {
			fmt.Fprintf(w, "  %s\n", instrStr(f, &b.Instrs[j], tp))
		}
		fmt.Fprintf(w, "  %s\n", termStr(&b.Term))
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func typeStr(tp *types.Printer, id types.TypeID) string {
	if tp == nil {
		return fmt.Sprintf("t%d", id)
	}
	return tp.SprintID(id)
}

func valueStr(f *Func, id ValueID) string {
	if !id.IsValid() {
		return "_"
	}
	v := f.Value(id)
	switch v.Kind {
	case ValueConstInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueConstFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueConstNull:
		return "null"
	case ValueGlobal:
		return fmt.Sprintf("G%d", v.Global)
	case ValueFunc:
		return fmt.Sprintf("F%d", v.Fn)
	default:
		return fmt.Sprintf("v%d", id)
	}
}

func instrStr(f *Func, in *Instr, tp *types.Printer) string {
	res := ""
	if in.Result.IsValid() {
		res = fmt.Sprintf("v%d = ", in.Result)
	}
	switch in.Kind {
	case InstrAlloca:
		if in.Alloca.Count.IsValid() {
			return fmt.Sprintf("%salloca %s, count %s, align %d", res, typeStr(tp, in.Alloca.Elem), valueStr(f, in.Alloca.Count), in.Alloca.Align)
		}
		return fmt.Sprintf("%salloca %s, align %d", res, typeStr(tp, in.Alloca.Elem), in.Alloca.Align)
	case InstrBin:
		op := binOpNames[in.Bin.Op]
		if in.Bin.Float {
			op = "f" + op
		} else if in.Bin.Unsigned {
			op = "u" + op
		}
		return fmt.Sprintf("%s%s %s, %s", res, op, valueStr(f, in.Bin.LHS), valueStr(f, in.Bin.RHS))
	case InstrCmp:
		op := "icmp"
		if in.Cmp.Float {
			op = "fcmp"
		}
		pred := cmpPredNames[in.Cmp.Pred]
		if in.Cmp.Unsigned {
			pred = "u" + pred
		}
		return fmt.Sprintf("%s%s %s %s, %s", res, op, pred, valueStr(f, in.Cmp.LHS), valueStr(f, in.Cmp.RHS))
	case InstrCast:
		return fmt.Sprintf("%s%s %s to %s", res, castOpNames[in.Cast.Op], valueStr(f, in.Cast.Src), typeStr(tp, in.Type))
	case InstrFieldAddr:
		return fmt.Sprintf("%sfieldaddr %s, %d", res, valueStr(f, in.FieldAddr.Base), in.FieldAddr.Field)
	case InstrIndexAddr:
		return fmt.Sprintf("%sindexaddr %s, %s", res, valueStr(f, in.IndexAddr.Base), valueStr(f, in.IndexAddr.Index))
	case InstrLoad:
		vol := ""
		if in.Load.Volatile {
			vol = "volatile "
		}
		return fmt.Sprintf("%sload %s%s", res, vol, valueStr(f, in.Load.Addr))
	case InstrStore:
		vol := ""
		if in.Store.Volatile {
			vol = "volatile "
		}
		return fmt.Sprintf("store %s%s <- %s", vol, valueStr(f, in.Store.Addr), valueStr(f, in.Store.Val))
	case InstrCall:
		var args []string
		for i, a := range in.Call.Args {
			s := valueStr(f, a)
			if i < len(in.Call.ByVal) && in.Call.ByVal[i] {
				s += " byval"
			}
			args = append(args, s)
		}
		suffix := ""
		if in.Call.SRet.IsValid() {
			suffix = fmt.Sprintf(" sret %s", valueStr(f, in.Call.SRet))
		}
		return fmt.Sprintf("%scall %s(%s)%s", res, valueStr(f, in.Call.Callee), strings.Join(args, ", "), suffix)
	case InstrPhi:
		var edges []string
		for _, e := range in.Phi.Edges {
			edges = append(edges, fmt.Sprintf("[%s, b%d]", valueStr(f, e.Value), e.From))
		}
		return fmt.Sprintf("%sphi %s", res, strings.Join(edges, ", "))
	case InstrIntrinsic:
		var args []string
		for _, a := range in.Intrinsic.Args {
			args = append(args, valueStr(f, a))
		}
		return fmt.Sprintf("%s@%s(%s)", res, in.Intrinsic.ID, strings.Join(args, ", "))
	case InstrSelect:
		return fmt.Sprintf("%sselect %s, %s, %s", res, valueStr(f, in.Select.Cond), valueStr(f, in.Select.Then), valueStr(f, in.Select.Else))
	default:
		return res + "???"
	}
}

func termStr(t *Terminator) string {
	switch t.Kind {
	case TermRet:
		if t.Ret.HasValue {
			return fmt.Sprintf("ret v%d", t.Ret.Value)
		}
		return "ret void"
	case TermBr:
		return fmt.Sprintf("br b%d", t.Br.Target)
	case TermCondBr:
		return fmt.Sprintf("condbr v%d, b%d, b%d", t.CondBr.Cond, t.CondBr.Then, t.CondBr.Else)
	case TermSwitch:
		var cases []string
		for _, c := range t.Switch.Cases {
			cases = append(cases, fmt.Sprintf("%d: b%d", c.Value, c.Target))
		}
		return fmt.Sprintf("switch v%d [%s] default b%d", t.Switch.Value, strings.Join(cases, ", "), t.Switch.Default)
	case TermUnreachable:
		return "unreachable"
	default:
		return "<open>"
	}
}
