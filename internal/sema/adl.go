package sema

import (
	"cinder/internal/ast"
	"cinder/internal/names"
	"cinder/internal/types"
)

// adlSets accumulates the associated classes and namespaces of a call's
// argument types.
type adlSets struct {
	classes    map[ast.DeclID]bool
	namespaces map[ast.ContextID]bool
}

func newADLSets() *adlSets {
	return &adlSets{
		classes:    make(map[ast.DeclID]bool),
		namespaces: make(map[ast.ContextID]bool),
	}
}

// ArgumentDependentLookup collects the candidates a call `f(args...)` finds
// through its argument types, merged with the unqualified result.
func (s *Sema) ArgumentDependentLookup(name names.DeclName, argTypes []types.QualType, unqualified []ast.DeclID) []ast.DeclID {
	sets := newADLSets()
	for _, at := range argTypes {
		s.associated(at.Type, sets)
	}
	out := append([]ast.DeclID(nil), unqualified...)
	for ns := range sets.namespaces {
		// ADL searches the nominated namespace itself, ignoring its
		// using-directives.
		out = mergeEqualDecl(out, s.Unit.LookupIn(ns, name, ast.NSOrdinary))
	}
	if flat := s.flattenFunctions(out); flat != nil {
		return flat
	}
	return out
}

// associated computes the associated classes and namespaces of one type.
func (s *Sema) associated(id types.TypeID, sets *adlSets) {
	id = s.Unit.Types.Canonical(id)
	tt, ok := s.Unit.Types.Lookup(id)
	if !ok {
		return
	}
	switch tt.Kind {
	case types.KindPointer, types.KindReference, types.KindConstantArray,
		types.KindIncompleteArray, types.KindVariableArray, types.KindComplex,
		types.KindVector, types.KindExtVector:
		s.associated(tt.Elem.Type, sets)

	case types.KindRecord:
		info, ok := s.Unit.Types.RecordInfo(id)
		if !ok {
			return
		}
		s.associateClass(ast.DeclID(info.Decl), sets)

	case types.KindEnum:
		info, ok := s.Unit.Types.EnumInfo(id)
		if !ok {
			return
		}
		d := s.Unit.Decl(ast.DeclID(info.Decl))
		if d == nil {
			return
		}
		s.associateEnclosing(d.SemaCtx, sets)

	case types.KindFunction:
		fn, ok := s.Unit.Types.FnInfo(id)
		if !ok {
			return
		}
		s.associated(fn.Result.Type, sets)
		for _, p := range fn.Params {
			s.associated(p.Type, sets)
		}

	case types.KindMemberPointer:
		s.associated(tt.Class, sets)
		s.associated(tt.Elem.Type, sets)
	}
}

// associateClass adds a class, its enclosing class, and all bases, plus the
// namespaces each is defined in.
func (s *Sema) associateClass(id ast.DeclID, sets *adlSets) {
	if !id.IsValid() || sets.classes[id] {
		return
	}
	d := s.Unit.Decl(id)
	if d == nil || d.Kind != ast.DeclRecord {
		return
	}
	sets.classes[id] = true
	s.associateEnclosing(d.SemaCtx, sets)
	for _, base := range d.Record.Bases {
		s.associateClass(base.Class, sets)
	}
}

// associateEnclosing records the innermost enclosing namespace of a context
// and, when the context is a class, that class too.
func (s *Sema) associateEnclosing(ctx ast.ContextID, sets *adlSets) {
	for ctx.IsValid() {
		c := s.Unit.Ctx(ctx)
		if c == nil {
			return
		}
		switch c.Kind {
		case ast.CtxNamespace, ast.CtxTranslationUnit:
			sets.namespaces[ctx] = true
			return
		case ast.CtxRecord:
			s.associateClass(c.Owner, sets)
		}
		ctx = s.Unit.SemanticParent(ctx)
	}
}
