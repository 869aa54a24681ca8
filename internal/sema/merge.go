package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/types"
)

// mergeDecl reconciles a new declaration with a prior one found in the same
// context. Returns the declaration that lookup should see from now on.
func (s *Sema) mergeDecl(newID, prevID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	pd := s.Unit.Decl(prevID)
	if nd == nil || pd == nil {
		return newID
	}

	if nd.Kind == ast.DeclFunction && pd.Kind == ast.DeclOverloadSet {
		return s.mergeIntoOverloadSet(newID, prevID)
	}
	if nd.Kind != pd.Kind {
		s.reportRedef(nd, pd, fmt.Sprintf("'%s' redeclared as a different kind of symbol", nd.Name.String()))
		s.Poison(newID)
		return prevID
	}

	switch nd.Kind {
	case ast.DeclFunction:
		return s.mergeFunction(newID, prevID)
	case ast.DeclVariable:
		return s.mergeVariable(newID, prevID)
	case ast.DeclTypedef:
		return s.mergeTypedef(newID, prevID)
	case ast.DeclRecord, ast.DeclEnum:
		return s.mergeTag(newID, prevID)
	default:
		return newID
	}
}

// mergeFunction: parameter lists must match; defaults merge parameter-wise;
// a second definition is an error.
func (s *Sema) mergeFunction(newID, prevID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	pd := s.Unit.Decl(prevID)
	in := s.Unit.Types

	if !in.Equal(nd.Type.Type, pd.Type.Type) {
		if s.Lang == LangCXX {
			// Different parameter lists overload instead of conflicting.
			return s.growOverloadSet(newID, prevID)
		}
		s.reportRedef(nd, pd, fmt.Sprintf("conflicting types for '%s'", nd.Name.String()))
		s.Poison(newID)
		return prevID
	}

	if nd.Fn.Defined && pd.Fn.Defined {
		s.reportRedef(nd, pd, fmt.Sprintf("redefinition of '%s'", nd.Name.String()))
		s.Poison(newID)
		return prevID
	}

	// Default arguments accumulate: each parameter keeps the earliest
	// default provided for it; re-defaulting is an error.
	for i := range nd.Fn.Params {
		if i >= len(pd.Fn.Params) {
			break
		}
		np := s.Unit.Decl(nd.Fn.Params[i])
		pp := s.Unit.Decl(pd.Fn.Params[i])
		if np == nil || pp == nil {
			continue
		}
		switch {
		case np.Param.Default.IsValid() && pp.Param.Default.IsValid():
			diag.ReportError(s.Reporter, diag.SemaBadDefaultArg, np.Span,
				"redefinition of default argument").
				WithNote(pp.Span, "previous default argument is here").
				Emit()
			s.Poison(nd.Fn.Params[i])
		case !np.Param.Default.IsValid() && pp.Param.Default.IsValid():
			np.Param.Default = pp.Param.Default
		}
	}

	nd.Prev = prevID
	return newID
}

// growOverloadSet folds a new overload into the set rooted at prev,
// synthesizing the set on the first growth.
func (s *Sema) growOverloadSet(newID, prevID ast.DeclID) ast.DeclID {
	pd := s.Unit.Decl(prevID)
	if pd.Kind == ast.DeclOverloadSet {
		pd.Overload.Members = append(pd.Overload.Members, newID)
		return prevID
	}
	setID := s.Unit.NewDecl(ast.Decl{
		Kind:     ast.DeclOverloadSet,
		Name:     pd.Name,
		Span:     pd.Span,
		SemaCtx:  pd.SemaCtx,
		LexCtx:   pd.LexCtx,
		Overload: ast.OverloadSetDecl{Members: []ast.DeclID{prevID, newID}},
	})
	s.Unit.ReplaceInContext(pd.SemaCtx, pd.Name, prevID, setID)
	if pd.Name.ID != nil {
		s.replaceTop(pd.Name.ID, setID)
	}
	return setID
}

// mergeIntoOverloadSet folds a later function into an existing set: a
// signature already present redeclares that member, anything else joins as
// a new overload.
func (s *Sema) mergeIntoOverloadSet(newID, setID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	set := s.Unit.Decl(setID)
	in := s.Unit.Types
	for i, m := range set.Overload.Members {
		md := s.Unit.Decl(m)
		if md == nil || md.Kind != ast.DeclFunction {
			continue
		}
		if in.Equal(nd.Type.Type, md.Type.Type) {
			set.Overload.Members[i] = s.mergeFunction(newID, m)
			return setID
		}
	}
	set.Overload.Members = append(set.Overload.Members, newID)
	return setID
}

// mergeVariable: storage classes must be compatible; a tentative definition
// is upgraded by an initializer.
func (s *Sema) mergeVariable(newID, prevID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	pd := s.Unit.Decl(prevID)
	in := s.Unit.Types

	if !in.Equal(nd.Type.Type, pd.Type.Type) {
		s.reportRedef(nd, pd, fmt.Sprintf("conflicting types for '%s'", nd.Name.String()))
		s.Poison(newID)
		return prevID
	}
	if !storageCompatible(pd.Storage, nd.Storage) {
		diag.ReportError(s.Reporter, diag.SemaStorageClassMismatch, nd.Span,
			fmt.Sprintf("storage class of '%s' does not match previous declaration", nd.Name.String())).
			WithNote(pd.Span, "previous declaration is here").
			Emit()
		s.Poison(newID)
		return prevID
	}

	// Redeclarations fold into the first declaration: lookup keeps seeing
	// prev, and the initializer (arriving later through ActOnVariableInit)
	// attaches there.
	nd.Prev = prevID
	if pd.Storage == ast.StorageExtern && nd.Storage == ast.StorageNone {
		pd.Storage = ast.StorageNone
		pd.Var.Tentative = nd.Var.Tentative
	}
	return prevID
}

func storageCompatible(prev, next ast.StorageClass) bool {
	if prev == next {
		return true
	}
	// extern may follow anything with linkage; a later plain declaration
	// may follow extern.
	if next == ast.StorageExtern {
		return prev != ast.StorageAuto && prev != ast.StorageRegister
	}
	if prev == ast.StorageExtern && next == ast.StorageNone {
		return true
	}
	return false
}

// mergeTypedef: underlying types must canonicalize identically.
func (s *Sema) mergeTypedef(newID, prevID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	pd := s.Unit.Decl(prevID)
	in := s.Unit.Types

	nu := s.typedefUnderlying(nd)
	pu := s.typedefUnderlying(pd)
	if in.CanonicalQual(nu) != in.CanonicalQual(pu) {
		diag.ReportError(s.Reporter, diag.SemaTypedefMismatch, nd.Span,
			fmt.Sprintf("typedef redefinition of '%s' with different types", nd.Name.String())).
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(nu)}).
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(pu)}).
			WithNote(pd.Span, "previous definition is here").
			Emit()
		s.Poison(newID)
		return prevID
	}
	nd.Prev = prevID
	return prevID
}

func (s *Sema) typedefUnderlying(d *ast.Decl) types.QualType {
	if info, ok := s.Unit.Types.TypedefInfo(d.Type.Type); ok {
		return info.Underlying
	}
	return d.Type
}

// mergeTag: class-keys must match; the first definition wins and later
// definitions are errors; a later definition completes a forward
// declaration.
func (s *Sema) mergeTag(newID, prevID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	pd := s.Unit.Decl(prevID)

	if nd.Kind == ast.DeclRecord && pd.Kind == ast.DeclRecord &&
		!tagKeysCompatible(nd.Record.Tag, pd.Record.Tag) {
		diag.ReportError(s.Reporter, diag.SemaTagKindMismatch, nd.Span,
			fmt.Sprintf("use of '%s' with tag type that does not match previous declaration", nd.Name.String())).
			WithNote(pd.Span, "previous use is here").
			Emit()
		s.Poison(newID)
		return prevID
	}
	defNew := nd.Kind == ast.DeclRecord && nd.Record.Definition ||
		nd.Kind == ast.DeclEnum && nd.Enum.Definition
	defPrev := pd.Kind == ast.DeclRecord && pd.Record.Definition ||
		pd.Kind == ast.DeclEnum && pd.Enum.Definition
	if defNew && defPrev {
		s.reportRedef(nd, pd, fmt.Sprintf("redefinition of '%s'", nd.Name.String()))
		s.Poison(newID)
		return prevID
	}
	nd.Prev = prevID
	if defNew {
		return newID
	}
	return prevID
}

// struct and class are interchangeable keys for one entity; union is not.
func tagKeysCompatible(a, b types.RecordTag) bool {
	if a == b {
		return true
	}
	return a != types.TagUnion && b != types.TagUnion
}

func (s *Sema) reportRedef(nd, pd *ast.Decl, msg string) {
	diag.ReportError(s.Reporter, diag.SemaRedefinition, nd.Span, msg).
		WithArg(diag.Arg{Kind: diag.ArgDeclName, Text: nd.Name.String()}).
		WithNote(pd.Span, "previous declaration is here").
		Emit()
}
