package types

import (
	"testing"

	"cinder/internal/source"
)

func TestPrinterSpellings(t *testing.T) {
	in := NewInterner()
	strs := source.NewInterner()
	b := in.Builtins()
	p := &Printer{Types: in, Strings: strs}

	rec := in.RegisterRecord(DeclRef(1), TagStruct, strs.Intern("node"), source.Span{})
	cases := []struct {
		qt   QualType
		want string
	}{
		{MakeQual(b.Int), "int"},
		{QualType{Type: b.Char, Quals: QualConst}, "const char"},
		{MakeQual(in.Pointer(QualType{Type: b.Void, Quals: QualVolatile}, 0)), "volatile void *"},
		{MakeQual(rec), "struct node"},
		{MakeQual(in.ConstantArray(MakeQual(b.Double), 4)), "double[4]"},
		{MakeQual(in.Function(MakeQual(b.Int), []QualType{MakeQual(b.Double)}, false)), "int (double)"},
		{MakeQual(in.Function(MakeQual(b.Void), nil, false)), "void (void)"},
	}
	for _, tc := range cases {
		if got := p.Sprint(tc.qt); got != tc.want {
			t.Errorf("Sprint(%+v) = %q, want %q", tc.qt, got, tc.want)
		}
	}
}
