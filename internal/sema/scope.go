package sema

import (
	"cinder/internal/ast"
	"cinder/internal/names"
)

// ScopeKind enumerates scope kinds on the parser-driven scope stack.
type ScopeKind uint8

const (
	ScopeTranslationUnit ScopeKind = iota
	ScopeBlock
	ScopeFunctionProto
	ScopeClass
	ScopeNamespace
	ScopeTemplateParams
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeTranslationUnit:
		return "translation-unit"
	case ScopeBlock:
		return "block"
	case ScopeFunctionProto:
		return "function-prototype"
	case ScopeClass:
		return "class"
	case ScopeNamespace:
		return "namespace"
	case ScopeTemplateParams:
		return "template-params"
	default:
		return "invalid"
	}
}

// Scope is one frame of the lexical scope stack. Ctx is the DeclContext
// the scope introduces declarations into; prototype and template-param
// scopes have no context of their own and borrow the enclosing one.
type Scope struct {
	Kind  ScopeKind
	Ctx   ast.ContextID
	Depth int

	// introduced remembers the resolver pushes made in this scope so they
	// can be popped on exit.
	introduced []*names.Identifier
}

// Local reports scopes whose declarations shadow rather than merge.
func (sc *Scope) Local() bool {
	return sc.Kind == ScopeBlock || sc.Kind == ScopeFunctionProto
}

// resolverEntry is one visible declaration of an identifier.
type resolverEntry struct {
	decl  ast.DeclID
	depth int
}

// CurrentScope returns the innermost scope.
func (s *Sema) CurrentScope() *Scope {
	return s.scopes[len(s.scopes)-1]
}

// CurrentContext returns the innermost scope's declaration context, walking
// outward past context-less scopes.
func (s *Sema) CurrentContext() ast.ContextID {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].Ctx.IsValid() {
			return s.scopes[i].Ctx
		}
	}
	return s.Unit.Root
}

// PushScope enters a scope. Pass ast.NoContextID for scopes that do not
// introduce a context (prototype, template parameters).
func (s *Sema) PushScope(kind ScopeKind, ctx ast.ContextID) *Scope {
	sc := &Scope{Kind: kind, Ctx: ctx, Depth: len(s.scopes)}
	s.scopes = append(s.scopes, sc)
	return sc
}

// PopScope leaves the innermost scope, retracting its resolver entries.
func (s *Sema) PopScope() {
	sc := s.scopes[len(s.scopes)-1]
	for _, ident := range sc.introduced {
		stack := s.resolver[ident]
		for len(stack) > 0 && stack[len(stack)-1].depth >= sc.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			delete(s.resolver, ident)
		} else {
			s.resolver[ident] = stack
		}
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// push makes a declaration visible to unqualified lookup.
func (s *Sema) push(ident *names.Identifier, decl ast.DeclID) {
	if ident == nil || !decl.IsValid() {
		return
	}
	sc := s.CurrentScope()
	s.resolver[ident] = append(s.resolver[ident], resolverEntry{decl: decl, depth: sc.Depth})
	sc.introduced = append(sc.introduced, ident)
}

// replaceTop swaps the top resolver entry for ident, used when a
// redeclaration merges into an overload set.
func (s *Sema) replaceTop(ident *names.Identifier, decl ast.DeclID) {
	stack := s.resolver[ident]
	if len(stack) > 0 {
		stack[len(stack)-1].decl = decl
	}
}

// declare attaches a declaration to its context and the resolver.
func (s *Sema) declare(id ast.DeclID) {
	d := s.Unit.Decl(id)
	if d == nil {
		return
	}
	s.Unit.AddToContext(d.SemaCtx, id)
	if d.Name.Kind == names.NameIdentifier && d.Name.ID != nil {
		s.push(d.Name.ID, id)
	}
}
