// Package irgen lowers decorated ASTs to typed SSA IR.
package irgen

import (
	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/ir"
	"cinder/internal/layout"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

// Generator lowers one translation unit into an ir.Module.
type Generator struct {
	Unit     *ast.Unit
	Layout   *layout.Engine
	Target   *target.Descriptor
	Reporter diag.Reporter
	Module   *ir.Module

	funcOf   map[ast.DeclID]ir.FuncID
	globalOf map[ast.DeclID]ir.GlobalID
	libFuncs map[string]ir.FuncID

	// BuilderHook, when set, wraps the builder of every lowered
	// function. Tests install a recorder here.
	BuilderHook func(fn *ir.Func, b ir.Builder) ir.Builder
}

// New creates a generator for the unit.
func New(unit *ast.Unit, eng *layout.Engine, desc *target.Descriptor, rep diag.Reporter) *Generator {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Generator{
		Unit:     unit,
		Layout:   eng,
		Target:   desc,
		Reporter: rep,
		Module:   ir.NewModule("tu"),
		funcOf:   make(map[ast.DeclID]ir.FuncID),
		globalOf: make(map[ast.DeclID]ir.GlobalID),
		libFuncs: make(map[string]ir.FuncID),
	}
}

// Lower walks the translation unit and emits every defined function and
// file-scope variable. Invalid declarations are skipped.
func (g *Generator) Lower() *ir.Module {
	g.lowerContext(g.Unit.Root)
	return g.Module
}

func (g *Generator) lowerContext(ctx ast.ContextID) {
	c := g.Unit.Ctx(ctx)
	if c == nil {
		return
	}
	for _, id := range c.Decls {
		d := g.Unit.Decl(id)
		if d == nil || d.Invalid {
			continue
		}
		switch d.Kind {
		case ast.DeclFunction:
			fid := g.declareFunc(id)
			if d.Fn.Defined && d.Fn.Body.IsValid() {
				g.lowerFunc(fid, id)
			}
		case ast.DeclVariable:
			g.lowerGlobalVar(id)
		case ast.DeclNamespace:
			g.lowerContext(d.NS.Ctx)
		case ast.DeclLinkageSpec:
			g.lowerContext(d.LinkSpec.Ctx)
		}
	}
}

// declareFunc ensures a module function shell exists for the decl chain.
func (g *Generator) declareFunc(id ast.DeclID) ir.FuncID {
	first := g.firstDecl(id)
	if fid, ok := g.funcOf[first]; ok {
		// A later declaration may bring the body; keep the shell.
		g.funcOf[id] = fid
		return fid
	}
	d := g.Unit.Decl(id)
	canon := g.Unit.Types.Canonical(d.Type.Type)
	result, sret := g.classifyResult(g.resultType(canon))
	fn := g.Module.AddFunc(g.spellName(d), id, canon, result, d.Span)
	fn.SRet = sret
	fid := fn.ID
	g.funcOf[first] = fid
	g.funcOf[id] = fid
	return fid
}

func (g *Generator) firstDecl(id ast.DeclID) ast.DeclID {
	for {
		d := g.Unit.Decl(id)
		if d == nil || !d.Prev.IsValid() {
			return id
		}
		id = d.Prev
	}
}

func (g *Generator) spellName(d *ast.Decl) string {
	return d.Name.String()
}

func (g *Generator) resultType(fnType types.TypeID) types.TypeID {
	if fi, ok := g.Unit.Types.FnInfo(fnType); ok {
		return g.Unit.Types.Canonical(fi.Result.Type)
	}
	return types.NoTypeID
}

// classifyResult decides how a function result travels: records that
// fit a power-of-two integer register come back coerced, larger ones
// through a hidden result pointer, everything else directly. Both the
// definition and every call site go through this so the two sides
// agree.
func (g *Generator) classifyResult(resCanon types.TypeID) (result types.TypeID, sret bool) {
	tys := g.Unit.Types
	if resCanon == types.NoTypeID || tys.IsVoid(resCanon) {
		return types.NoTypeID, false
	}
	if !tys.IsRecord(resCanon) {
		return resCanon, false
	}
	if info, err := g.Layout.Of(resCanon); err == nil {
		if it, ok := g.coercedIntType(info.Size); ok && isPow2(info.Size) {
			return it, false
		}
	}
	return resCanon, true
}

func (g *Generator) ptrTo(qt types.QualType) types.TypeID {
	return g.Unit.Types.Pointer(qt, 0)
}

// layoutOf reports a diagnostic and returns false when a type the
// lowering needs has no computable layout.
func (g *Generator) layoutOf(t types.TypeID, span source.Span) (layout.Info, bool) {
	info, err := g.Layout.Of(g.Unit.Types.Canonical(t))
	if err != nil {
		diag.ReportError(g.Reporter, diag.IRUnrepresentableType, span,
			"type has no representation on this target").Emit()
		return layout.Info{}, false
	}
	return info, true
}

// lowerGlobalVar emits one file-scope object with its folded
// initializer.
func (g *Generator) lowerGlobalVar(id ast.DeclID) {
	first := g.firstDecl(id)
	if _, ok := g.globalOf[first]; ok {
		// Redeclaration; the defining decl already produced the
		// global (contexts list each chain once per sighting).
		g.globalOf[id] = g.globalOf[first]
		return
	}
	d := g.Unit.Decl(id)
	if d.Storage == ast.StorageExtern && !d.Var.Init.IsValid() {
		return
	}
	canon := g.Unit.Types.Canonical(d.Type.Type)
	info, ok := g.layoutOf(canon, d.Span)
	if !ok {
		return
	}
	init := ir.Const{}
	if d.Var.Init.IsValid() {
		c, ok := g.foldConst(d.Var.Init)
		if !ok {
			diag.ReportError(g.Reporter, diag.IRUnrepresentableType, d.Span,
				"initializer is not a compile-time constant").Emit()
			return
		}
		init = c
	}
	link := ir.LinkExternal
	switch {
	case d.Storage == ast.StorageStatic:
		link = ir.LinkInternal
	case d.Var.Tentative:
		link = ir.LinkCommon
	}
	gid := g.Module.AddGlobal(ir.Global{
		Decl:     id,
		Name:     g.spellName(d),
		Type:     canon,
		Linkage:  link,
		Align:    int32(info.Align),
		Init:     init,
		Constant: d.Type.Quals.Const(),
		Span:     d.Span,
	})
	g.globalOf[first] = gid
	g.globalOf[id] = gid
}

// staticLocal emits the module global backing a block-scope static
// variable. The owning function's name keeps globals of same-named
// statics apart.
func (g *Generator) staticLocal(id ast.DeclID, fnName string) ir.GlobalID {
	if gid, ok := g.globalOf[id]; ok {
		return gid
	}
	d := g.Unit.Decl(id)
	canon := g.Unit.Types.Canonical(d.Type.Type)
	align := int32(8)
	if info, err := g.Layout.Of(canon); err == nil {
		align = int32(info.Align)
	}
	init := ir.Const{}
	if d.Var.Init.IsValid() {
		c, ok := g.foldConst(d.Var.Init)
		if !ok {
			diag.ReportError(g.Reporter, diag.IRUnrepresentableType, d.Span,
				"initializer is not a compile-time constant").Emit()
		} else {
			init = c
		}
	}
	gid := g.Module.AddGlobal(ir.Global{
		Decl:     id,
		Name:     fnName + "." + g.spellName(d),
		Type:     canon,
		Linkage:  ir.LinkInternal,
		Align:    align,
		Init:     init,
		Constant: d.Type.Quals.Const(),
		Span:     d.Span,
	})
	g.globalOf[id] = gid
	return gid
}
