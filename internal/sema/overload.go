package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/source"
	"cinder/internal/types"
)

// Candidate is one callable considered by overload resolution.
type Candidate struct {
	Decl   ast.DeclID
	Fn     types.TypeID // canonical function type
	ICS    []ICS        // per argument, filled by viability check
	Viable bool
	// Builtin marks synthesized operator candidates with no declaration.
	Builtin bool
}

// CallResolution is the outcome of overload resolution for one call.
type CallResolution struct {
	Best       int // index into Candidates, -1 when none
	Candidates []Candidate
	Ambiguous  bool
}

// ResolveCall runs overload resolution over a candidate set for the given
// argument types and value categories. Diagnostics for failure are the
// caller's job; the result carries everything needed to report them.
func (s *Sema) ResolveCall(cands []Candidate, args []types.QualType, vcs []ast.ValueCategory) CallResolution {
	in := s.Unit.Types
	for i := range cands {
		cands[i].Viable = s.checkViable(&cands[i], args, vcs, in)
	}

	best := -1
	for i := range cands {
		if !cands[i].Viable {
			continue
		}
		if best < 0 || s.betterCandidate(cands[i], cands[best], len(args)) == -1 {
			best = i
		}
	}
	if best >= 0 {
		// The tournament winner is only the best candidate if it dominates
		// every viable candidate, not just the ones it happened to meet.
		for i := range cands {
			if i == best || !cands[i].Viable {
				continue
			}
			if s.betterCandidate(cands[best], cands[i], len(args)) != -1 {
				return CallResolution{Best: -1, Candidates: cands, Ambiguous: true}
			}
		}
	}
	return CallResolution{Best: best, Candidates: cands, Ambiguous: false}
}

// checkViable computes per-argument conversion sequences; a candidate is
// viable when arity fits and every argument converts.
func (s *Sema) checkViable(c *Candidate, args []types.QualType, vcs []ast.ValueCategory, in *types.Interner) bool {
	fn, ok := in.FnInfo(in.Canonical(c.Fn))
	if !ok {
		return false
	}
	nparams := len(fn.Params)
	if len(args) < nparams && !s.tailHasDefaults(c.Decl, len(args), nparams) {
		return false
	}
	if len(args) > nparams && !fn.Variadic && fn.Proto {
		return false
	}
	c.ICS = make([]ICS, len(args))
	for i, at := range args {
		if i >= nparams {
			c.ICS[i] = ICS{Kind: ICSEllipsis}
			continue
		}
		vc := ast.VCRValue
		if i < len(vcs) {
			vc = vcs[i]
		}
		ics := s.ConvertToParam(at, vc, fn.Params[i])
		if !ics.Viable() {
			return false
		}
		c.ICS[i] = ics
	}
	return true
}

// tailHasDefaults reports whether every omitted parameter up to the
// function type's arity carries a default argument. A declaration without
// parameter decls can default nothing.
func (s *Sema) tailHasDefaults(declID ast.DeclID, from, nparams int) bool {
	d := s.Unit.Decl(declID)
	if d == nil || d.Kind != ast.DeclFunction || len(d.Fn.Params) < nparams {
		return false
	}
	for i := from; i < nparams; i++ {
		p := s.Unit.Decl(d.Fn.Params[i])
		if p == nil || !p.Param.Default.IsValid() {
			return false
		}
	}
	return true
}

// betterCandidate compares two viable candidates: -1 when a is better, 1
// when b is, 0 when neither dominates.
func (s *Sema) betterCandidate(a, b Candidate, nargs int) int {
	aBetter, bBetter := false, false
	for i := 0; i < nargs; i++ {
		switch betterICS(a.ICS[i], b.ICS[i]) {
		case -1:
			aBetter = true
		case 1:
			bBetter = true
		}
	}
	switch {
	case aBetter && !bBetter:
		return -1
	case bBetter && !aBetter:
		return 1
	case aBetter && bBetter:
		return 0
	}
	// Indistinguishable on conversions: a non-template function beats a
	// template specialization.
	aTpl := s.isTemplateCandidate(a)
	bTpl := s.isTemplateCandidate(b)
	if aTpl != bTpl {
		if !aTpl {
			return -1
		}
		return 1
	}
	return 0
}

func (s *Sema) isTemplateCandidate(c Candidate) bool {
	d := s.Unit.Decl(c.Decl)
	return d != nil && d.Kind == ast.DeclFunctionTemplate
}

// GatherCandidates builds the candidate set from a lookup result.
func (s *Sema) GatherCandidates(res Result) []Candidate {
	var out []Candidate
	for _, id := range res.Decls {
		d := s.Unit.Decl(id)
		if d == nil || d.Invalid {
			continue
		}
		switch d.Kind {
		case ast.DeclFunction, ast.DeclFunctionTemplate:
			out = append(out, Candidate{Decl: id, Fn: d.Type.Type})
		}
	}
	return out
}

// reportCallFailure emits the no-viable or ambiguous diagnostic with one
// note per candidate.
func (s *Sema) reportCallFailure(span source.Span, name string, r CallResolution) {
	var b *diag.Builder
	if r.Ambiguous {
		b = diag.ReportError(s.Reporter, diag.SemaAmbiguousCall, span,
			fmt.Sprintf("call to '%s' is ambiguous", name))
	} else {
		b = diag.ReportError(s.Reporter, diag.SemaNoViableCandidate, span,
			fmt.Sprintf("no matching function for call to '%s'", name))
	}
	b.WithArg(diag.Arg{Kind: diag.ArgDeclName, Text: name})
	for _, c := range r.Candidates {
		d := s.Unit.Decl(c.Decl)
		if d == nil {
			continue
		}
		msg := "candidate function"
		if !c.Viable {
			msg = "candidate function not viable"
		}
		b.WithNote(d.Span, msg)
	}
	b.Emit()
}
