package ir

import (
	"cinder/internal/ast"
	"cinder/internal/source"
	"cinder/internal/types"
)

// Linkage of a module global.
type Linkage uint8

const (
	LinkExternal Linkage = iota
	LinkInternal
	// LinkCommon is a tentative definition merged at link time.
	LinkCommon
)

// Global is one module-level object.
type Global struct {
	ID      GlobalID
	Decl    ast.DeclID
	Name    string
	Type    types.TypeID
	Linkage Linkage
	Align   int32 // bits
	// Init is the folded initializer; a zero Const means zero-fill.
	Init     Const
	Constant bool
	Span     source.Span
}

// Module holds the IR of one translation unit.
type Module struct {
	Name    string
	Funcs   []*Func
	Globals []Global

	// stringPool shares string-literal globals by body.
	stringPool map[string]GlobalID
}

// NewModule returns an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:       name,
		stringPool: make(map[string]GlobalID),
	}
}

// AddGlobal appends a global and returns its id.
func (m *Module) AddGlobal(g Global) GlobalID {
	id := GlobalID(len(m.Globals))
	g.ID = id
	m.Globals = append(m.Globals, g)
	return id
}

// InternString returns the id of an internal-linkage global holding
// the literal body, reusing one already emitted for the same body.
func (m *Module) InternString(body string, t types.TypeID, span source.Span) GlobalID {
	if id, ok := m.stringPool[body]; ok {
		return id
	}
	id := m.AddGlobal(Global{
		Name:     ".str",
		Type:     t,
		Linkage:  LinkInternal,
		Init:     Const{Kind: ConstString, Type: t, Str: body},
		Constant: true,
		Span:     span,
	})
	m.stringPool[body] = id
	return id
}

// AddFunc appends a function shell and returns it.
func (m *Module) AddFunc(name string, decl ast.DeclID, fnType, result types.TypeID, span source.Span) *Func {
	f := &Func{
		ID:     FuncID(len(m.Funcs)),
		Decl:   decl,
		Name:   name,
		Span:   span,
		Type:   fnType,
		Result: result,
	}
	m.Funcs = append(m.Funcs, f)
	return f
}

// Func returns the function with the given id, nil if out of range.
func (m *Module) Func(id FuncID) *Func {
	if m == nil || id < 0 || int(id) >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[id]
}

// Global returns the global with the given id.
func (m *Module) Global(id GlobalID) *Global {
	if m == nil || id < 0 || int(id) >= len(m.Globals) {
		return nil
	}
	return &m.Globals[id]
}
