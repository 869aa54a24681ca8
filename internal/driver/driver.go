// Package driver runs the compilation pipeline: semantic analysis over the
// Actions API or a serialized AST, flow checks per function, and IR lowering.
// Each translation unit is single threaded and owns its tables and its
// diagnostics bag; concurrency happens across units in CompileAll.
package driver

import (
	"errors"
	"fmt"
	"io"

	"cinder/internal/ast"
	"cinder/internal/astio"
	"cinder/internal/cfg"
	"cinder/internal/diag"
	"cinder/internal/ir"
	"cinder/internal/irgen"
	"cinder/internal/layout"
	"cinder/internal/names"
	"cinder/internal/observ"
	"cinder/internal/sema"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

// Input is one translation unit. Exactly one source is set: Build drives the
// Actions API programmatically, Stream is a serialized AST produced by
// astio.Write.
type Input struct {
	Name   string
	Build  func(*sema.Sema) error
	Stream io.Reader
}

// Options configure a pipeline. The zero value compiles for x86-64 Linux
// with flow checks and IR emission on.
type Options struct {
	Target    *target.Descriptor
	Lang      sema.Language
	DiagLimit int
	// NoFlow skips the CFG-based flow checks, NoIR the lowering.
	NoFlow bool
	NoIR   bool
}

// Result is the outcome of one unit. Module is nil when errors stopped the
// pipeline before lowering; the bag tells why.
type Result struct {
	Name    string
	Unit    *ast.Unit
	Bag     *diag.Bag
	Module  *ir.Module
	Graphs  map[ast.DeclID]*cfg.Graph
	Timings observ.Report
}

// Failed reports whether the unit produced errors.
func (r *Result) Failed() bool {
	return r.Bag.HasErrors()
}

// Pipeline compiles translation units one at a time. It carries only
// configuration, so one pipeline may serve many goroutines.
type Pipeline struct {
	opts Options
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Target == nil {
		opts.Target = target.X86_64LinuxGNU()
	}
	if opts.DiagLimit <= 0 {
		opts.DiagLimit = 256
	}
	return &Pipeline{opts: opts}
}

// Compile runs one unit through the pipeline. The returned error covers
// input-level failures only; diagnostics, fatal ones included, land in the
// result's bag and abort the unit, not the process.
func (p *Pipeline) Compile(in Input) (*Result, error) {
	bag := diag.NewBag(p.opts.DiagLimit)
	rep := diag.BagReporter{Bag: bag}
	timer := observ.NewTimer()

	phase := timer.Begin("front")
	unit, eng, ignore, err := p.front(in, rep)
	timer.End(phase, "")
	if err != nil {
		return nil, err
	}
	res := &Result{Name: in.Name, Unit: unit, Bag: bag}

	if !p.opts.NoFlow && !bag.Fatal() {
		phase = timer.Begin("flow")
		res.Graphs = p.flowChecks(unit, rep, ignore)
		timer.End(phase, fmt.Sprintf("%d functions", len(res.Graphs)))
	}
	if !p.opts.NoIR && !bag.HasErrors() {
		phase = timer.Begin("lower")
		res.Module = p.lower(unit, eng, rep)
		timer.End(phase, "")
	}
	bag.Sort()
	bag.Dedup()
	res.Timings = timer.Report()
	return res, nil
}

// front produces the decorated unit: either by replaying the build callback
// through a fresh analyzer or by decoding a serialized stream.
func (p *Pipeline) front(in Input, rep diag.Reporter) (*ast.Unit, *layout.Engine, func(ast.DeclID) bool, error) {
	switch {
	case in.Build != nil:
		typesIn := types.NewInterner()
		unit := ast.NewUnit(typesIn, names.NewTable(p.opts.Target, typesIn), source.NewInterner())
		s := sema.New(unit, sema.Options{
			Reporter: rep,
			Target:   p.opts.Target,
			Lang:     p.opts.Lang,
		})
		if err := in.Build(s); err != nil {
			return nil, nil, nil, fmt.Errorf("driver: unit %s: %w", in.Name, err)
		}
		s.ActOnEndTranslationUnit()
		return unit, s.Layout, s.IsMarkedUnused, nil
	case in.Stream != nil:
		unit, err := astio.Read(in.Stream, p.opts.Target)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("driver: unit %s: %w", in.Name, err)
		}
		return unit, layout.New(p.opts.Target, unit.Types), nil, nil
	default:
		return nil, nil, nil, errors.New("driver: input has no source")
	}
}

// flowChecks builds a CFG per defined function and runs the unreachable-code
// and dead-store analyses over it.
func (p *Pipeline) flowChecks(unit *ast.Unit, rep diag.Reporter, ignore func(ast.DeclID) bool) map[ast.DeclID]*cfg.Graph {
	graphs := make(map[ast.DeclID]*cfg.Graph)
	check := &cfg.DeadStoreChecker{Unit: unit, Reporter: rep, Ignore: ignore}
	for id := ast.DeclID(1); uint32(id) <= unit.Decls.Len(); id++ {
		d := unit.Decl(id)
		if d.Kind != ast.DeclFunction || !d.Fn.Defined || d.Invalid || !d.Fn.Body.IsValid() {
			continue
		}
		g := cfg.Build(unit, id)
		graphs[id] = g
		cfg.ReportUnreachable(unit, g, rep)
		check.Check(g)
	}
	return graphs
}

func (p *Pipeline) lower(unit *ast.Unit, eng *layout.Engine, rep diag.Reporter) *ir.Module {
	g := irgen.New(unit, eng, p.opts.Target, rep)
	m := g.Lower()
	if err := ir.Validate(m); err != nil {
		diag.ReportError(rep, diag.InternalError, source.Span{},
			fmt.Sprintf("lowering produced malformed IR: %v", err)).Emit()
		return nil
	}
	return m
}
