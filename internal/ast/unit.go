package ast

import (
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// Unit is the decorated AST of one translation unit: node arenas, the
// decl-context tree, and the shared tables the nodes reference.
type Unit struct {
	Decls *Arena[Decl]
	Stmts *Arena[Stmt]
	Exprs *Arena[Expr]
	Ctxs  *Arena[DeclContext]
	Root  ContextID

	Types   *types.Interner
	Names   *names.Table
	Strings *source.Interner
}

// NewUnit allocates an empty unit sharing the given tables and creates the
// translation-unit root context.
func NewUnit(typesIn *types.Interner, nameTable *names.Table, strings *source.Interner) *Unit {
	u := &Unit{
		Decls:   NewArena[Decl](256),
		Stmts:   NewArena[Stmt](512),
		Exprs:   NewArena[Expr](1024),
		Ctxs:    NewArena[DeclContext](64),
		Types:   typesIn,
		Names:   nameTable,
		Strings: strings,
	}
	u.Root = u.NewContext(CtxTranslationUnit, NoContextID, NoDeclID, source.Span{})
	return u
}

// NewContext allocates a declaration context and links it under parent.
func (u *Unit) NewContext(kind ContextKind, parent ContextID, owner DeclID, span source.Span) ContextID {
	id := ContextID(u.Ctxs.Allocate(DeclContext{
		Kind:   kind,
		Parent: parent,
		Owner:  owner,
		Span:   span,
		lookup: make(map[names.DeclName][]DeclID, 8),
	}))
	return id
}

// Ctx returns the context node, nil for NoContextID.
func (u *Unit) Ctx(id ContextID) *DeclContext {
	return u.Ctxs.Get(uint32(id))
}

// Decl returns the declaration node, nil for NoDeclID.
func (u *Unit) Decl(id DeclID) *Decl {
	return u.Decls.Get(uint32(id))
}

// Stmt returns the statement node, nil for NoStmtID.
func (u *Unit) Stmt(id StmtID) *Stmt {
	return u.Stmts.Get(uint32(id))
}

// Expr returns the expression node, nil for NoExprID.
func (u *Unit) Expr(id ExprID) *Expr {
	return u.Exprs.Get(uint32(id))
}

// NewDecl allocates a declaration node without attaching it to a context.
func (u *Unit) NewDecl(d Decl) DeclID {
	return DeclID(u.Decls.Allocate(d))
}

// NewStmt allocates a statement node.
func (u *Unit) NewStmt(s Stmt) StmtID {
	return StmtID(u.Stmts.Allocate(s))
}

// NewExpr allocates an expression node.
func (u *Unit) NewExpr(e Expr) ExprID {
	return ExprID(u.Exprs.Allocate(e))
}

// AddToContext appends the declaration to its semantic context's child list
// and lookup table. Unnamed declarations are owned but not findable.
func (u *Unit) AddToContext(ctxID ContextID, declID DeclID) {
	ctx := u.Ctx(ctxID)
	d := u.Decl(declID)
	if ctx == nil || d == nil {
		return
	}
	ctx.Decls = append(ctx.Decls, declID)
	if d.Kind == DeclUsingDirective {
		ctx.Using = append(ctx.Using, declID)
		return
	}
	if !d.Name.Empty() {
		ctx.lookup[d.Name] = append(ctx.lookup[d.Name], declID)
	}
}

// ReplaceInContext swaps old for new in the lookup table; used when a
// redeclaration merges into an overload set.
func (u *Unit) ReplaceInContext(ctxID ContextID, name names.DeclName, old, repl DeclID) {
	ctx := u.Ctx(ctxID)
	if ctx == nil {
		return
	}
	list := ctx.lookup[name]
	for i, id := range list {
		if id == old {
			list[i] = repl
			return
		}
	}
}

// LookupIn searches exactly one context, filtering by namespace mask.
func (u *Unit) LookupIn(ctxID ContextID, name names.DeclName, mask IDNS) []DeclID {
	ctx := u.Ctx(ctxID)
	if ctx == nil {
		return nil
	}
	var out []DeclID
	for _, id := range ctx.Lookup(name) {
		if d := u.Decl(id); d != nil && d.Kind.Namespaces()&mask != 0 {
			out = append(out, id)
		}
	}
	return out
}

// LookupEntry is one name of a context's lookup table with its declarations
// in source order.
type LookupEntry struct {
	Name  names.DeclName
	Decls []DeclID
}

// LookupEntries snapshots a context's lookup table. The order is unspecified;
// callers that need determinism sort the result themselves.
func (u *Unit) LookupEntries(ctxID ContextID) []LookupEntry {
	ctx := u.Ctx(ctxID)
	if ctx == nil {
		return nil
	}
	out := make([]LookupEntry, 0, len(ctx.lookup))
	for name, decls := range ctx.lookup {
		out = append(out, LookupEntry{Name: name, Decls: decls})
	}
	return out
}

// SetLookup installs a lookup entry wholesale, replacing whatever the name
// resolved to. Deserialization uses this to restore tables that diverged from
// plain insertion order, e.g. after an overload-set merge.
func (u *Unit) SetLookup(ctxID ContextID, name names.DeclName, decls []DeclID) {
	ctx := u.Ctx(ctxID)
	if ctx == nil || name.Empty() {
		return
	}
	ctx.lookup[name] = decls
}

// SemanticParent walks one step up the context tree, skipping linkage specs
// (they are transparent for lookup).
func (u *Unit) SemanticParent(ctxID ContextID) ContextID {
	ctx := u.Ctx(ctxID)
	if ctx == nil {
		return NoContextID
	}
	parent := ctx.Parent
	for {
		p := u.Ctx(parent)
		if p == nil || p.Kind != CtxLinkageSpec {
			return parent
		}
		parent = p.Parent
	}
}
