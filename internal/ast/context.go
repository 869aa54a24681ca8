package ast

import (
	"cinder/internal/names"
	"cinder/internal/source"
)

// ContextKind enumerates declaration-context kinds.
type ContextKind uint8

const (
	CtxInvalid ContextKind = iota
	CtxTranslationUnit
	CtxNamespace
	CtxRecord
	CtxFunction
	CtxBlock
	CtxLinkageSpec
)

func (k ContextKind) String() string {
	switch k {
	case CtxTranslationUnit:
		return "translation-unit"
	case CtxNamespace:
		return "namespace"
	case CtxRecord:
		return "record"
	case CtxFunction:
		return "function"
	case CtxBlock:
		return "block"
	case CtxLinkageSpec:
		return "linkage-spec"
	default:
		return "invalid"
	}
}

// DeclContext is one node of the scope hierarchy. It owns its declarations
// in source order and maintains the lookup table used by name resolution.
type DeclContext struct {
	Kind   ContextKind
	Parent ContextID
	Owner  DeclID // the namespace/record/function decl this context belongs to
	Span   source.Span
	Decls  []DeclID

	// Using holds the using-directives lexically written in this context.
	Using []DeclID

	lookup map[names.DeclName][]DeclID
}

// Lookup returns the declarations of name in this context, source-ordered.
func (c *DeclContext) Lookup(name names.DeclName) []DeclID {
	if c == nil || c.lookup == nil {
		return nil
	}
	return c.lookup[name]
}
