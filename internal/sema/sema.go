// Package sema is the semantic analyzer: it turns parser callbacks into
// validated declarations and typed expressions, resolves names, runs
// overload resolution, merges redeclarations, checks templates, and
// evaluates constant expressions.
package sema

import (
	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/layout"
	"cinder/internal/names"
	"cinder/internal/target"
	"cinder/internal/types"
)

// Language selects the rule set for lookup and linkage.
type Language uint8

const (
	LangC Language = iota
	LangCXX
)

// Options configure a semantic pass over one translation unit.
type Options struct {
	Reporter diag.Reporter
	Target   *target.Descriptor
	Lang     Language
}

// Sema owns the semantic state of one translation unit. It is single
// threaded; concurrency happens across units in the driver.
type Sema struct {
	Unit     *ast.Unit
	Reporter diag.Reporter
	Target   *target.Descriptor
	Layout   *layout.Engine
	Lang     Language

	printer  *types.Printer
	scopes   []*Scope
	resolver map[*names.Identifier][]resolverEntry
	pack     PackStack
	unused   map[ast.DeclID]bool

	// builtinByType recovers the builtin id from an interned builtin
	// function type when a call is built.
	builtinByType map[types.TypeID]target.BuiltinID

	// instances memoizes template instantiations by argument fingerprint.
	instances map[string]ast.DeclID

	// fn is the per-function analysis state, nil outside function bodies.
	fn *fnState
}

// New creates an analyzer over a fresh unit sharing the given tables.
func New(unit *ast.Unit, opts Options) *Sema {
	rep := opts.Reporter
	if rep == nil {
		rep = diag.NopReporter{}
	}
	desc := opts.Target
	if desc == nil {
		desc = target.X86_64LinuxGNU()
	}
	s := &Sema{
		Unit:     unit,
		Reporter: rep,
		Target:   desc,
		Layout:   layout.New(desc, unit.Types),
		Lang:     opts.Lang,
		printer:  &types.Printer{Types: unit.Types, Strings: unit.Strings},
		resolver: make(map[*names.Identifier][]resolverEntry, 256),
		unused:   make(map[ast.DeclID]bool),
	}
	s.scopes = []*Scope{{Kind: ScopeTranslationUnit, Ctx: unit.Root}}
	return s
}

// fnState holds everything scoped to the function currently being analyzed.
type fnState struct {
	decl      ast.DeclID
	result    types.QualType
	labels    map[*names.Identifier]ast.StmtID
	gotos     []ast.StmtID
	loopDepth int
	switches  []*switchState
}

type switchState struct {
	stmt ast.StmtID
	seen map[int64]ast.StmtID // case label -> owning case stmt
}

// SpellType renders a type for a diagnostic argument.
func (s *Sema) SpellType(qt types.QualType) string {
	return s.printer.Sprint(qt)
}

// Builtins is a shorthand for the unit's pre-interned primitives.
func (s *Sema) Builtins() types.Builtins {
	return s.Unit.Types.Builtins()
}

// Poison marks the declaration invalid; lowering skips invalid decls.
func (s *Sema) Poison(id ast.DeclID) {
	if d := s.Unit.Decl(id); d != nil {
		d.Invalid = true
	}
}

// PoisonExpr marks the expression invalid and gives it the invalid type.
func (s *Sema) PoisonExpr(id ast.ExprID) ast.ExprID {
	if e := s.Unit.Expr(id); e != nil {
		e.Invalid = true
		e.Type = types.QualType{}
	}
	return id
}

// MarkUnused records a #pragma unused variable so flow checks skip it.
func (s *Sema) MarkUnused(id ast.DeclID) {
	s.unused[id] = true
}

// IsMarkedUnused reports variables named in a #pragma unused.
func (s *Sema) IsMarkedUnused(id ast.DeclID) bool {
	return s.unused[id]
}
