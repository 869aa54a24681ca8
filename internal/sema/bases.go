package sema

import (
	"cinder/internal/ast"
	"cinder/internal/names"
)

// subobjectHit is one declaration found during the base-paths walk, tagged
// with the subobject path that reached it.
type subobjectHit struct {
	decl ast.DeclID
	// path is the chain of base-class record decls from the starting class
	// to the declaring class, starting class excluded.
	path []ast.DeclID
	// virtualPath is true when every edge of the path is virtual; virtual
	// bases share one subobject regardless of path.
	virtualPath bool
}

// lookupInClass finds name in a class, walking base classes depth first and
// classifying subobject ambiguity: a name found in two distinct subobjects
// is ambiguous unless every hit is a static member, nested type, or
// enumerator.
func (s *Sema) lookupInClass(ctx ast.ContextID, name names.DeclName, mask ast.IDNS) Result {
	// The class's own members hide all base members.
	if found := s.Unit.LookupIn(ctx, name, mask); len(found) > 0 {
		return s.classify(found)
	}

	c := s.Unit.Ctx(ctx)
	if c == nil || !c.Owner.IsValid() {
		return Result{Kind: ResNotFound}
	}
	owner := s.Unit.Decl(c.Owner)
	if owner == nil || owner.Kind != ast.DeclRecord {
		return Result{Kind: ResNotFound}
	}

	var hits []subobjectHit
	for _, base := range owner.Record.Bases {
		s.walkBase(base, nil, true, name, mask, &hits)
	}
	if len(hits) == 0 {
		return Result{Kind: ResNotFound}
	}

	decls := make([]ast.DeclID, 0, len(hits))
	for _, h := range hits {
		decls = mergeEqualDecl(decls, []ast.DeclID{h.decl})
	}

	// Hits in one declaring class reached along multiple non-virtual paths
	// name distinct subobjects of the same type; hits in different classes
	// name subobjects of different types. Either way the reference is
	// ambiguous unless subobject identity does not matter for every hit.
	declaring := make(map[ast.DeclID][]subobjectHit)
	for _, h := range hits {
		key := h.path[len(h.path)-1]
		declaring[key] = append(declaring[key], h)
	}
	if len(declaring) > 1 {
		if s.allSubobjectNeutral(decls) {
			return s.classify(decls)
		}
		return Result{Kind: ResAmbiguousSubobjectTypes, Decls: decls}
	}
	for _, group := range declaring {
		if s.countSubobjects(group) > 1 {
			if s.allSubobjectNeutral(decls) {
				return s.classify(decls)
			}
			return Result{Kind: ResAmbiguousSubobjects, Decls: decls}
		}
	}
	return s.classify(decls)
}

// walkBase recurses into one base specifier accumulating hits.
func (s *Sema) walkBase(base ast.BaseSpecifier, path []ast.DeclID, allVirtual bool, name names.DeclName, mask ast.IDNS, hits *[]subobjectHit) {
	bd := s.Unit.Decl(base.Class)
	if bd == nil || bd.Kind != ast.DeclRecord {
		return
	}
	nextPath := append(append([]ast.DeclID(nil), path...), base.Class)
	nextVirtual := allVirtual && base.Virtual

	if bd.Record.Ctx.IsValid() {
		found := s.Unit.LookupIn(bd.Record.Ctx, name, mask)
		for _, id := range found {
			*hits = append(*hits, subobjectHit{decl: id, path: nextPath, virtualPath: nextVirtual})
		}
		// Members of this base hide the same name deeper in its own bases.
		if len(found) > 0 {
			return
		}
	}
	for _, deeper := range bd.Record.Bases {
		s.walkBase(deeper, nextPath, nextVirtual, name, mask, hits)
	}
}

// countSubobjects counts distinct subobjects among hits that declare the
// same class: all-virtual paths collapse into one.
func (s *Sema) countSubobjects(group []subobjectHit) int {
	n := 0
	virtualSeen := false
	for _, h := range group {
		if h.virtualPath {
			if !virtualSeen {
				virtualSeen = true
				n++
			}
			continue
		}
		n++
	}
	return n
}

// allSubobjectNeutral reports whether every declaration is independent of
// which subobject it was found in: static members, nested types, and
// enumerators.
func (s *Sema) allSubobjectNeutral(decls []ast.DeclID) bool {
	for _, id := range decls {
		d := s.Unit.Decl(id)
		if d == nil {
			return false
		}
		switch d.Kind {
		case ast.DeclTypedef, ast.DeclRecord, ast.DeclEnum, ast.DeclEnumConstant:
			continue
		case ast.DeclVariable, ast.DeclFunction:
			if d.Storage == ast.StorageStatic {
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}
