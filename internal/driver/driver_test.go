package driver

import (
	"bytes"
	"context"
	"testing"

	"cinder/internal/ast"
	"cinder/internal/astio"
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

// buildCounter declares `int name(void) { int x = 1; x = 2; return x; }`.
// The initializer is dead, so the flow checks have something to say.
func buildCounter(s *sema.Sema, name string) {
	b := s.Builtins()
	fnType := s.Unit.Types.Function(types.MakeQual(b.Int), nil, false)
	id := s.ActOnFunctionDecl(s.Unit.Names.Get(name), fnType, nil, ast.StorageNone, spanAt(1))
	s.ActOnStartFunctionBody(id)
	s.ActOnCompoundStart(spanAt(2))
	x := s.ActOnVariable(s.Unit.Names.Get("x"), types.MakeQual(b.Int), ast.StorageNone, spanAt(3))
	s.ActOnVariableInit(x, s.ActOnIntLit(1, types.MakeQual(b.Int), spanAt(3)))
	xd := s.ActOnDeclStmt([]ast.DeclID{x}, spanAt(3))
	asg := s.ActOnBinary(ast.BinAssign,
		s.ActOnIdentifierExpr(s.Unit.Names.Get("x"), spanAt(4)),
		s.ActOnIntLit(2, types.MakeQual(b.Int), spanAt(4)), spanAt(4))
	es := s.ActOnExprStmt(asg, spanAt(4))
	ret := s.ActOnReturn(s.ActOnIdentifierExpr(s.Unit.Names.Get("x"), spanAt(5)), spanAt(5))
	body := s.ActOnCompoundFinish([]ast.StmtID{xd, es, ret}, spanAt(6))
	s.ActOnFinishFunctionBody(id, body)
}

func countCode(bag *diag.Bag, code diag.Code) int {
	n := 0
	for _, d := range bag.Items() {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestCompileRunsWholePipeline(t *testing.T) {
	p := NewPipeline(Options{})
	res, err := p.Compile(Input{
		Name: "counter.c",
		Build: func(s *sema.Sema) error {
			buildCounter(s, "counter")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected errors: %v", res.Bag.Items())
	}
	if res.Module == nil {
		t.Fatalf("no IR module produced")
	}
	if len(res.Graphs) != 1 {
		t.Fatalf("got %d graphs, want 1", len(res.Graphs))
	}
	if countCode(res.Bag, diag.FlowDeadStore) != 1 {
		t.Fatalf("dead initialization not reported: %v", res.Bag.Items())
	}
}

func TestCompileStreamInput(t *testing.T) {
	desc := target.X86_64LinuxGNU()
	in := types.NewInterner()
	unit := ast.NewUnit(in, names.NewTable(desc, in), source.NewInterner())
	s := sema.New(unit, sema.Options{Target: desc, Lang: sema.LangC})
	buildCounter(s, "counter")
	s.ActOnEndTranslationUnit()

	var buf bytes.Buffer
	if err := astio.Write(&buf, unit); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewPipeline(Options{Target: desc})
	res, err := p.Compile(Input{Name: "counter.ast", Stream: &buf})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.Failed() || res.Module == nil {
		t.Fatalf("stream unit did not lower: %v", res.Bag.Items())
	}
}

func TestErrorsAbortUnitNotBatch(t *testing.T) {
	inputs := []Input{
		{Name: "good.c", Build: func(s *sema.Sema) error {
			buildCounter(s, "good")
			return nil
		}},
		{Name: "bad.c", Build: func(s *sema.Sema) error {
			b := s.Builtins()
			fnType := s.Unit.Types.Function(types.MakeQual(b.Int), nil, false)
			id := s.ActOnFunctionDecl(s.Unit.Names.Get("bad"), fnType, nil, ast.StorageNone, spanAt(1))
			s.ActOnStartFunctionBody(id)
			s.ActOnCompoundStart(spanAt(2))
			use := s.ActOnExprStmt(s.ActOnIdentifierExpr(s.Unit.Names.Get("nosuch"), spanAt(3)), spanAt(3))
			s.ActOnFinishFunctionBody(id, s.ActOnCompoundFinish([]ast.StmtID{use}, spanAt(4)))
			return nil
		}},
	}
	results, err := CompileAll(context.Background(), Options{}, inputs, 2)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if results[0] == nil || results[0].Failed() {
		t.Fatalf("good unit failed")
	}
	if results[0].Module == nil {
		t.Fatalf("good unit produced no module")
	}
	if !results[1].Failed() {
		t.Fatalf("bad unit reported no errors")
	}
	if results[1].Module != nil {
		t.Fatalf("bad unit must not lower")
	}
}

func TestInputWithoutSource(t *testing.T) {
	p := NewPipeline(Options{})
	if _, err := p.Compile(Input{Name: "empty"}); err == nil {
		t.Fatalf("missing source must be an error")
	}
}
