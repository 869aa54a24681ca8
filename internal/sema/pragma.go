package sema

import (
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
)

// packFrame is one pushed #pragma pack state.
type packFrame struct {
	label *names.Identifier // nil for unlabeled pushes
	value uint8
}

// PackStack tracks #pragma pack(push/pop/n) state. The zero value means
// natural alignment.
type PackStack struct {
	current uint8
	frames  []packFrame
}

// Current returns the active pack cap in bytes, 0 for natural alignment.
func (p *PackStack) Current() uint8 {
	return p.current
}

// validPack reports the values #pragma pack accepts.
func validPack(n uint8) bool {
	switch n {
	case 1, 2, 4, 8, 16:
		return true
	}
	return n == 0
}

// ActOnPragmaPack handles `#pragma pack(n)`: sets the cap without pushing.
// n == 0 restores natural alignment.
func (s *Sema) ActOnPragmaPack(span source.Span, n uint8) {
	if !validPack(n) {
		diag.ReportWarning(s.Reporter, diag.SemaPragmaPackBadValue, span,
			"expected #pragma pack parameter to be 1, 2, 4, 8, or 16").Emit()
		return
	}
	s.pack.current = n
}

// ActOnPragmaPackPush handles `#pragma pack(push[, label][, n])`. A label of
// nil means an unlabeled push; n == 0 keeps the current value.
func (s *Sema) ActOnPragmaPackPush(span source.Span, label *names.Identifier, n uint8) {
	if n != 0 && !validPack(n) {
		diag.ReportWarning(s.Reporter, diag.SemaPragmaPackBadValue, span,
			"expected #pragma pack parameter to be 1, 2, 4, 8, or 16").Emit()
		return
	}
	s.pack.frames = append(s.pack.frames, packFrame{label: label, value: s.pack.current})
	if n != 0 {
		s.pack.current = n
	}
}

// ActOnPragmaPackPop handles `#pragma pack(pop[, label])`. A labeled pop
// unwinds to the matching labeled push; popping an empty stack is a
// diagnostic and leaves the state unchanged.
func (s *Sema) ActOnPragmaPackPop(span source.Span, label *names.Identifier) {
	if len(s.pack.frames) == 0 {
		diag.ReportWarning(s.Reporter, diag.SemaPragmaPackEmpty, span,
			"#pragma pack(pop, ...) failed: stack empty").Emit()
		return
	}
	if label == nil {
		top := s.pack.frames[len(s.pack.frames)-1]
		s.pack.frames = s.pack.frames[:len(s.pack.frames)-1]
		s.pack.current = top.value
		return
	}
	for i := len(s.pack.frames) - 1; i >= 0; i-- {
		if s.pack.frames[i].label == label {
			s.pack.current = s.pack.frames[i].value
			s.pack.frames = s.pack.frames[:i]
			return
		}
	}
	diag.ReportWarning(s.Reporter, diag.SemaPragmaPackEmpty, span,
		"#pragma pack(pop, ...) failed: no matching push").Emit()
}

// ActOnPragmaUnused marks each named local variable as used.
func (s *Sema) ActOnPragmaUnused(span source.Span, idents []*names.Identifier) {
	for _, ident := range idents {
		res := s.LookupName(s.Unit.Names.IdentifierName(ident), LookupOrdinary)
		if res.Kind != ResSingle {
			diag.ReportWarning(s.Reporter, diag.SemaNameNotFound, span,
				"undeclared variable '"+ident.String()+"' used as an argument for '#pragma unused'").Emit()
			continue
		}
		s.MarkUnused(res.First())
	}
}
