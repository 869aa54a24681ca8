package types

import (
	"fmt"
	"strings"

	"cinder/internal/source"
)

// Printer renders types in C spelling for diagnostics.
type Printer struct {
	Types   *Interner
	Strings *source.Interner
}

// Sprint renders a qualified type.
func (p *Printer) Sprint(qt QualType) string {
	var sb strings.Builder
	p.print(&sb, qt)
	return sb.String()
}

// SprintID renders a bare TypeID.
func (p *Printer) SprintID(id TypeID) string {
	return p.Sprint(MakeQual(id))
}

func (p *Printer) print(sb *strings.Builder, qt QualType) {
	if q := qt.Quals.String(); q != "" {
		sb.WriteString(q)
		sb.WriteByte(' ')
	}
	tt, ok := p.Types.Lookup(qt.Type)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindBuiltin:
		sb.WriteString(tt.Builtin.String())
	case KindComplex:
		sb.WriteString("_Complex ")
		p.print(sb, tt.Elem)
	case KindPointer:
		p.print(sb, tt.Elem)
		sb.WriteString(" *")
	case KindReference:
		p.print(sb, tt.Elem)
		sb.WriteString(" &")
	case KindMemberPointer:
		p.print(sb, tt.Elem)
		fmt.Fprintf(sb, " %s::*", p.SprintID(tt.Class))
	case KindConstantArray:
		p.print(sb, tt.Elem)
		fmt.Fprintf(sb, "[%d]", tt.Count)
	case KindIncompleteArray:
		p.print(sb, tt.Elem)
		sb.WriteString("[]")
	case KindVariableArray:
		p.print(sb, tt.Elem)
		sb.WriteString("[*]")
	case KindVector, KindExtVector:
		p.print(sb, tt.Elem)
		fmt.Fprintf(sb, " __vector(%d)", tt.Count)
	case KindFunction:
		p.printFn(sb, qt.Type)
	case KindRecord:
		p.printNominal(sb, qt.Type)
	case KindEnum:
		info, ok := p.Types.EnumInfo(qt.Type)
		if ok {
			fmt.Fprintf(sb, "enum %s", p.name(info.Name))
		} else {
			sb.WriteString("enum <anonymous>")
		}
	case KindTypedef:
		info, ok := p.Types.TypedefInfo(qt.Type)
		if ok {
			sb.WriteString(p.name(info.Name))
		} else {
			sb.WriteString("<typedef>")
		}
	case KindTypeOfExpr:
		sb.WriteString("typeof(<expr>)")
	case KindTypeOfType:
		sb.WriteString("typeof(")
		p.print(sb, tt.Elem)
		sb.WriteByte(')')
	default:
		sb.WriteString("<invalid>")
	}
}

func (p *Printer) printFn(sb *strings.Builder, id TypeID) {
	info, ok := p.Types.FnInfo(id)
	if !ok {
		sb.WriteString("<function>")
		return
	}
	p.print(sb, info.Result)
	sb.WriteString(" (")
	if !info.Proto {
		sb.WriteString(")")
		return
	}
	if len(info.Params) == 0 && !info.Variadic {
		sb.WriteString("void)")
		return
	}
	for i, param := range info.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		p.print(sb, param)
	}
	if info.Variadic {
		if len(info.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteByte(')')
}

func (p *Printer) printNominal(sb *strings.Builder, id TypeID) {
	info, ok := p.Types.RecordInfo(id)
	if !ok {
		sb.WriteString("<record>")
		return
	}
	fmt.Fprintf(sb, "%s %s", info.Tag, p.name(info.Name))
}

func (p *Printer) name(id source.StringID) string {
	if p.Strings != nil {
		if s, ok := p.Strings.Lookup(id); ok && s != "" {
			return s
		}
	}
	return "<anonymous>"
}
