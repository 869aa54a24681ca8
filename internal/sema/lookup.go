package sema

import (
	"cinder/internal/ast"
	"cinder/internal/names"
)

// LookupKind enumerates the syntactic positions a name can be looked up
// from; each maps to an identifier-namespace mask.
type LookupKind uint8

const (
	LookupOrdinary LookupKind = iota
	LookupTag
	LookupMember
	LookupOperator
	LookupNamespace
	LookupNestedNameSpecifier
)

// Mask returns the identifier namespaces the lookup kind searches.
func (k LookupKind) Mask() ast.IDNS {
	switch k {
	case LookupTag:
		return ast.NSTag
	case LookupMember:
		return ast.NSMember | ast.NSOrdinary
	case LookupNestedNameSpecifier:
		return ast.NSOrdinary | ast.NSTag
	default:
		return ast.NSOrdinary
	}
}

// ResultKind classifies a lookup outcome.
type ResultKind uint8

const (
	ResNotFound ResultKind = iota
	ResSingle
	ResOverloadSet
	ResAmbiguousReference
	ResAmbiguousSubobjects
	ResAmbiguousSubobjectTypes
)

func (k ResultKind) String() string {
	switch k {
	case ResNotFound:
		return "not-found"
	case ResSingle:
		return "single"
	case ResOverloadSet:
		return "overload-set"
	case ResAmbiguousReference:
		return "ambiguous-reference"
	case ResAmbiguousSubobjects:
		return "ambiguous-base-subobjects"
	case ResAmbiguousSubobjectTypes:
		return "ambiguous-base-subobject-types"
	default:
		return "invalid"
	}
}

// Result is the outcome of a name lookup. Decls holds the found
// declarations; for ambiguous results they are the conflicting candidates in
// discovery order.
type Result struct {
	Kind  ResultKind
	Decls []ast.DeclID
}

// Found reports a usable (unambiguous, non-empty) result.
func (r Result) Found() bool {
	return r.Kind == ResSingle || r.Kind == ResOverloadSet
}

// First returns the first declaration, NoDeclID when empty.
func (r Result) First() ast.DeclID {
	if len(r.Decls) == 0 {
		return ast.NoDeclID
	}
	return r.Decls[0]
}

// classify folds a raw declaration list into a Result: one entity is Single,
// all-functions is an overload set, anything else ambiguous.
func (s *Sema) classify(decls []ast.DeclID) Result {
	switch len(decls) {
	case 0:
		return Result{Kind: ResNotFound}
	case 1:
		d := s.Unit.Decl(decls[0])
		if d != nil && d.Kind == ast.DeclOverloadSet {
			return Result{Kind: ResOverloadSet, Decls: d.Overload.Members}
		}
		return Result{Kind: ResSingle, Decls: decls}
	}
	flat := s.flattenFunctions(decls)
	if flat != nil {
		return Result{Kind: ResOverloadSet, Decls: flat}
	}
	return Result{Kind: ResAmbiguousReference, Decls: decls}
}

// flattenFunctions returns the union of function declarations when every
// entry is a function or overload set, nil otherwise.
func (s *Sema) flattenFunctions(decls []ast.DeclID) []ast.DeclID {
	var out []ast.DeclID
	seen := make(map[ast.DeclID]bool, len(decls))
	for _, id := range decls {
		d := s.Unit.Decl(id)
		if d == nil {
			continue
		}
		switch d.Kind {
		case ast.DeclFunction, ast.DeclFunctionTemplate:
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		case ast.DeclOverloadSet:
			for _, m := range d.Overload.Members {
				if !seen[m] {
					seen[m] = true
					out = append(out, m)
				}
			}
		default:
			return nil
		}
	}
	return out
}

// LookupName performs unqualified lookup from the current scope. In C mode
// it is a plain walk of the resolver stack; in C++ mode using-directives and
// class bases participate.
func (s *Sema) LookupName(name names.DeclName, kind LookupKind) Result {
	if s.Lang == LangC {
		return s.lookupC(name, kind)
	}
	return s.lookupUnqualified(name, kind)
}

// lookupC finds the innermost visible declaration whose namespaces
// intersect the lookup mask.
func (s *Sema) lookupC(name names.DeclName, kind LookupKind) Result {
	if name.Kind != names.NameIdentifier || name.ID == nil {
		return Result{Kind: ResNotFound}
	}
	mask := kind.Mask()
	stack := s.resolver[name.ID]
	for i := len(stack) - 1; i >= 0; i-- {
		d := s.Unit.Decl(stack[i].decl)
		if d == nil || d.Kind.Namespaces()&mask == 0 {
			continue
		}
		return s.classify([]ast.DeclID{stack[i].decl})
	}
	return Result{Kind: ResNotFound}
}

// lookupUnqualified implements C++ unqualified lookup: walk scopes outward;
// local scopes consider only their own declarations; on reaching a namespace
// or class scope, search its context chain with using-directives merged and
// base classes walked.
func (s *Sema) lookupUnqualified(name names.DeclName, kind LookupKind) Result {
	mask := kind.Mask()

	// Local scopes first: resolver entries at or inside the innermost
	// non-local boundary.
	if name.Kind == names.NameIdentifier && name.ID != nil {
		boundary := s.localBoundary()
		stack := s.resolver[name.ID]
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].depth < boundary {
				break
			}
			d := s.Unit.Decl(stack[i].decl)
			if d == nil || d.Kind.Namespaces()&mask == 0 {
				continue
			}
			return s.classify([]ast.DeclID{stack[i].decl})
		}
	}

	// Then the context chain outward.
	for ctx := s.CurrentContext(); ctx.IsValid(); ctx = s.Unit.SemanticParent(ctx) {
		if res := s.lookupInContextTree(ctx, name, mask); res.Kind != ResNotFound {
			return res
		}
	}
	return Result{Kind: ResNotFound}
}

// localBoundary returns the depth of the innermost scope that is not a
// block or prototype scope.
func (s *Sema) localBoundary() int {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if !s.scopes[i].Local() {
			return s.scopes[i].Depth + 1
		}
	}
	return 0
}

// lookupInContextTree searches one namespace or class context: its own
// declarations, the namespaces nominated by transitive using-directives
// anchored at it, and its base classes.
func (s *Sema) lookupInContextTree(ctx ast.ContextID, name names.DeclName, mask ast.IDNS) Result {
	c := s.Unit.Ctx(ctx)
	if c == nil {
		return Result{Kind: ResNotFound}
	}
	if c.Kind == ast.CtxRecord {
		return s.lookupInClass(ctx, name, mask)
	}

	found := s.Unit.LookupIn(ctx, name, mask)
	for _, nom := range s.transitiveUsing(ctx) {
		found = mergeEqualDecl(found, s.Unit.LookupIn(nom, name, mask))
	}
	return s.classify(found)
}

// transitiveUsing collects the namespaces reachable from ctx's
// using-directives, transitively, each counted once.
func (s *Sema) transitiveUsing(ctx ast.ContextID) []ast.ContextID {
	c := s.Unit.Ctx(ctx)
	if c == nil || len(c.Using) == 0 {
		return nil
	}
	var out []ast.ContextID
	seen := map[ast.ContextID]bool{ctx: true}
	queue := append([]ast.DeclID(nil), c.Using...)
	for len(queue) > 0 {
		ud := s.Unit.Decl(queue[0])
		queue = queue[1:]
		if ud == nil || ud.Kind != ast.DeclUsingDirective {
			continue
		}
		nom := ud.Using.Nominated
		if !nom.IsValid() || seen[nom] {
			continue
		}
		seen[nom] = true
		out = append(out, nom)
		if nc := s.Unit.Ctx(nom); nc != nil {
			queue = append(queue, nc.Using...)
		}
	}
	return out
}

// mergeEqualDecl merges lookup results by the equal-declaration rule:
// duplicates collapse, everything else accumulates for classify to judge.
func mergeEqualDecl(a, b []ast.DeclID) []ast.DeclID {
	for _, id := range b {
		dup := false
		for _, have := range a {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			a = append(a, id)
		}
	}
	return a
}

// LookupQualified searches a single context (namespace or class) the way a
// nested-name-specifier does: the context itself, its using-directives, and
// for classes the base subobject tree.
func (s *Sema) LookupQualified(ctx ast.ContextID, name names.DeclName, kind LookupKind) Result {
	return s.lookupInContextTree(ctx, name, kind.Mask())
}
