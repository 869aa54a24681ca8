package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/sema"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

func spanAt(n uint32) source.Span {
	return source.Span{Start: n, End: n + 1}
}

func demoFileSet(t *testing.T) (*source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("demo.c", []byte("int main(void) {\n  return x;\n}\n"))
	return fs, id
}

func TestPrettyPositionAndUnderline(t *testing.T) {
	fs, fid := demoFileSet(t)
	bag := diag.NewBag(16)
	rep := diag.BagReporter{Bag: bag}
	diag.ReportError(rep, diag.SemaNameNotFound, source.Span{File: fid, Start: 26, End: 27},
		"use of undeclared identifier 'x'").
		WithNote(source.Span{File: fid, Start: 4, End: 8}, "in function 'main'").
		Emit()

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})
	got := buf.String()

	if !strings.Contains(got, "demo.c:2:10: error CN3001: use of undeclared identifier 'x'") {
		t.Fatalf("missing diagnostic header:\n%s", got)
	}
	if !strings.Contains(got, "  return x;\n") {
		t.Fatalf("missing source line:\n%s", got)
	}
	if !strings.Contains(got, "\n           ^\n") {
		t.Fatalf("caret misplaced:\n%s", got)
	}
	if !strings.Contains(got, "demo.c:1:5: note: in function 'main'") {
		t.Fatalf("missing note:\n%s", got)
	}
	if !strings.Contains(got, "^~~~") {
		t.Fatalf("note underline missing:\n%s", got)
	}
}

func TestPrettyFallsBackToOffsets(t *testing.T) {
	fs, _ := demoFileSet(t)
	bag := diag.NewBag(16)
	diag.ReportError(diag.BagReporter{Bag: bag}, diag.InternalError,
		source.Span{File: 9, Start: 26, End: 27}, "boom").Emit()

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	if !strings.Contains(buf.String(), "<input>:26: error CN9001: boom") {
		t.Fatalf("offset fallback missing:\n%s", buf.String())
	}
}

func TestJSONShapeAndTruncation(t *testing.T) {
	fs, fid := demoFileSet(t)
	bag := diag.NewBag(16)
	rep := diag.BagReporter{Bag: bag}
	diag.ReportError(rep, diag.SemaNameNotFound, source.Span{File: fid, Start: 26, End: 27},
		"use of undeclared identifier 'x'").Emit()
	diag.ReportWarning(rep, diag.FlowDeadStore, source.Span{File: fid, Start: 19, End: 25},
		"value stored is never read").Emit()

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out []jsonDiagnostic
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(out))
	}
	first := out[0]
	if first.Severity != "error" || first.Code != "CN3001" || first.File != "demo.c" || first.Line != 2 || first.Col != 10 {
		t.Fatalf("unexpected first diagnostic: %+v", first)
	}

	buf.Reset()
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 1}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out = nil
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Max=1 kept %d diagnostics", len(out))
	}
}

func buildUnit(t *testing.T) (*ast.Unit, *sema.Sema) {
	t.Helper()
	in := types.NewInterner()
	strs := source.NewInterner()
	desc := target.X86_64LinuxGNU()
	unit := ast.NewUnit(in, names.NewTable(desc, in), strs)
	bag := diag.NewBag(64)
	s := sema.New(unit, sema.Options{
		Reporter: diag.BagReporter{Bag: bag},
		Target:   desc,
		Lang:     sema.LangC,
	})
	b := s.Builtins()

	// struct node { int value; struct node *next; };
	tag := s.ActOnTag(types.TagStruct, unit.Names.Get("node"), spanAt(1))
	s.ActOnStartTagDefinition(tag, spanAt(1))
	s.ActOnField(tag, unit.Names.Get("value"), types.MakeQual(b.Int), ast.NoExprID, spanAt(2))
	rec := unit.Decl(tag).Type
	s.ActOnField(tag, unit.Names.Get("next"), types.MakeQual(in.Pointer(rec, 0)), ast.NoExprID, spanAt(3))
	s.ActOnTagDefinitionFinish(tag)

	// int pick(int a) { if (a < 2) return 1; return a; }
	intQ := types.MakeQual(b.Int)
	fnType := in.Function(intQ, []types.QualType{intQ}, false)
	p := s.ActOnParam(unit.Names.Get("a"), intQ, 0, spanAt(4))
	fn := s.ActOnFunctionDecl(unit.Names.Get("pick"), fnType, []ast.DeclID{p}, ast.StorageNone, spanAt(4))
	s.ActOnStartFunctionBody(fn)
	s.ActOnCompoundStart(spanAt(5))
	cond := s.ActOnBinary(ast.BinLT,
		s.ActOnIdentifierExpr(unit.Names.Get("a"), spanAt(6)),
		s.ActOnIntLit(2, intQ, spanAt(6)), spanAt(6))
	ret1 := s.ActOnReturn(s.ActOnIntLit(1, intQ, spanAt(7)), spanAt(7))
	ifStmt := s.ActOnIf(cond, ret1, ast.NoStmtID, spanAt(6))
	retA := s.ActOnReturn(s.ActOnIdentifierExpr(unit.Names.Get("a"), spanAt(8)), spanAt(8))
	body := s.ActOnCompoundFinish([]ast.StmtID{ifStmt, retA}, spanAt(5))
	s.ActOnFinishFunctionBody(fn, body)

	s.ActOnEndTranslationUnit()
	if bag.HasErrors() {
		t.Fatalf("unexpected sema errors: %v", bag.Items())
	}
	return unit, s
}

func TestDumpAST(t *testing.T) {
	unit, _ := buildUnit(t)
	var buf bytes.Buffer
	if err := DumpAST(&buf, unit); err != nil {
		t.Fatalf("dump: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"translation-unit",
		"record node",
		"field value 'int'",
		"field next 'struct node *'",
		"function pick 'int (int)'",
		"parameter a 'int'",
		"binary <",
		"int-lit 1 'int'",
		"return",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("dump missing %q:\n%s", want, got)
		}
	}
}

func TestDumpLayouts(t *testing.T) {
	unit, s := buildUnit(t)
	var buf bytes.Buffer
	if err := DumpLayouts(&buf, unit, s.Layout); err != nil {
		t.Fatalf("dump: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"struct node: size 16, align 8",
		"@0 value 'int'",
		"@8 next 'struct node *'",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("layout dump missing %q:\n%s", want, got)
		}
	}
}
