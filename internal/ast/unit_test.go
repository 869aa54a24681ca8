package ast

import (
	"testing"

	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

func newTestUnit() *Unit {
	in := types.NewInterner()
	strs := source.NewInterner()
	return NewUnit(in, names.NewTable(nil, in), strs)
}

func TestContextLookupFiltersNamespaces(t *testing.T) {
	u := newTestUnit()
	// struct list; int list; -- same spelling, different namespaces.
	name := u.Names.IdentifierName(u.Names.Get("list"))
	rec := u.NewDecl(Decl{Kind: DeclRecord, Name: name, SemaCtx: u.Root, LexCtx: u.Root})
	v := u.NewDecl(Decl{Kind: DeclVariable, Name: name, SemaCtx: u.Root, LexCtx: u.Root})
	u.AddToContext(u.Root, rec)
	u.AddToContext(u.Root, v)

	tags := u.LookupIn(u.Root, name, NSTag)
	if len(tags) != 1 || tags[0] != rec {
		t.Fatalf("tag lookup = %v, want [%v]", tags, rec)
	}
	ord := u.LookupIn(u.Root, name, NSOrdinary)
	if len(ord) != 1 || ord[0] != v {
		t.Fatalf("ordinary lookup = %v, want [%v]", ord, v)
	}
}

func TestSemanticParentSkipsLinkageSpec(t *testing.T) {
	u := newTestUnit()
	link := u.NewContext(CtxLinkageSpec, u.Root, NoDeclID, source.Span{})
	fn := u.NewContext(CtxFunction, link, NoDeclID, source.Span{})
	if got := u.SemanticParent(fn); got != u.Root {
		t.Fatalf("semantic parent = %v, want root %v", got, u.Root)
	}
}

func TestUnnamedDeclsAreOwnedButNotFindable(t *testing.T) {
	u := newTestUnit()
	anon := u.NewDecl(Decl{Kind: DeclRecord, SemaCtx: u.Root, LexCtx: u.Root})
	u.AddToContext(u.Root, anon)
	ctx := u.Ctx(u.Root)
	if len(ctx.Decls) != 1 {
		t.Fatalf("anonymous decl not owned")
	}
	if got := u.LookupIn(u.Root, names.DeclName{}, NSTag); len(got) != 0 {
		t.Fatalf("empty name must not be findable, got %v", got)
	}
}
