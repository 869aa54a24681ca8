package sema

import (
	"cinder/internal/ast"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// resolveOperatorCall dispatches a binary operator with a class-typed
// operand: declared operator functions (members, free functions, and ADL
// finds) compete with the built-in operators under the usual resolution
// rules.
func (s *Sema) resolveOperatorCall(op ast.BinaryOp, lhs, rhs ast.ExprID, span source.Span) ast.ExprID {
	opk := ast.OperatorOfBinary(op)
	if opk == names.OpNone {
		return s.badBinary(op, lhs, rhs, span)
	}
	name := s.Unit.Names.OperatorName(opk)
	args := []ast.ExprID{lhs, rhs}
	argTypes := []types.QualType{s.exprType(lhs), s.exprType(rhs)}
	vcs := []ast.ValueCategory{s.Unit.Expr(lhs).VC, s.Unit.Expr(rhs).VC}

	res := s.LookupName(name, LookupOrdinary)
	decls := s.ArgumentDependentLookup(name, argTypes, res.Decls)
	cands := s.GatherCandidates(Result{Kind: ResOverloadSet, Decls: decls})
	cands = append(cands, s.memberOperatorCandidates(name, argTypes[0])...)
	cands = append(cands, s.builtinOperatorCandidates(op, argTypes)...)
	if len(cands) == 0 {
		return s.badBinary(op, lhs, rhs, span)
	}

	r := s.ResolveCall(cands, argTypes, vcs)
	if r.Best < 0 {
		s.reportCallFailure(span, name.String(), r)
		return s.invalidExpr(span)
	}
	chosen := r.Candidates[r.Best]
	if chosen.Builtin {
		return s.builtinOperatorExpr(op, chosen, lhs, rhs, span)
	}
	ce := s.Unit.Expr(lhs)
	ref := s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprDeclRef,
		Type: types.MakeQual(chosen.Fn),
		VC:   ast.VCLValue,
		Span: ce.Span,
		Ref:  ast.DeclRefExpr{Decl: chosen.Decl},
	})
	return s.buildResolvedCall(ref, chosen, args, span)
}

// memberOperatorCandidates collects the left operand's member operator
// functions. The implicit object parameter joins each signature as a
// reference to the class, so member and non-member candidates compare
// under one arity.
func (s *Sema) memberOperatorCandidates(name names.DeclName, object types.QualType) []Candidate {
	in := s.Unit.Types
	info, ok := in.RecordInfo(in.Canonical(object.Type))
	if !ok {
		return nil
	}
	rd := s.Unit.Decl(ast.DeclID(info.Decl))
	if rd == nil || rd.Kind != ast.DeclRecord || !rd.Record.Ctx.IsValid() {
		return nil
	}
	found := s.flattenFunctions(s.Unit.LookupIn(rd.Record.Ctx, name, ast.NSOrdinary))
	var out []Candidate
	for _, id := range found {
		d := s.Unit.Decl(id)
		if d == nil || d.Invalid || d.Kind != ast.DeclFunction {
			continue
		}
		fn, ok := in.FnInfo(in.Canonical(d.Type.Type))
		if !ok {
			continue
		}
		objParam := types.MakeQual(in.Reference(object.Unqualified()))
		params := append([]types.QualType{objParam}, fn.Params...)
		out = append(out, Candidate{Decl: id, Fn: in.Function(fn.Result, params, fn.Variadic)})
	}
	return out
}

// builtinOperatorCandidates synthesizes the built-in operator signatures a
// pair of operands can reach: one candidate per common arithmetic type the
// operands convert to.
func (s *Sema) builtinOperatorCandidates(op ast.BinaryOp, argTypes []types.QualType) []Candidate {
	in := s.Unit.Types
	la := s.arithmeticVersions(argTypes[0])
	ra := s.arithmeticVersions(argTypes[1])
	var out []Candidate
	seen := make(map[types.TypeID]bool, 4)
	for _, l := range la {
		for _, r := range ra {
			common := s.usualArithmetic(l, r)
			if seen[common] {
				continue
			}
			seen[common] = true
			result := types.MakeQual(common)
			if op.IsComparison() || op == ast.BinLAnd || op == ast.BinLOr {
				result = types.MakeQual(s.Builtins().Int)
			}
			params := []types.QualType{types.MakeQual(common), types.MakeQual(common)}
			out = append(out, Candidate{Fn: in.Function(result, params, false), Builtin: true})
		}
	}
	return out
}

// arithmeticVersions lists the arithmetic types an operand reaches without
// a second user conversion: the type itself, or the results of the class's
// conversion functions.
func (s *Sema) arithmeticVersions(qt types.QualType) []types.TypeID {
	in := s.Unit.Types
	canon := in.Canonical(qt.Type)
	if in.IsArithmetic(canon) {
		return []types.TypeID{canon}
	}
	if tt, ok := in.Lookup(canon); ok && tt.Kind == types.KindEnum {
		return []types.TypeID{canon}
	}
	var out []types.TypeID
	for _, id := range s.conversionFunctions(canon) {
		d := s.Unit.Decl(id)
		fn, ok := in.FnInfo(in.Canonical(d.Type.Type))
		if !ok {
			continue
		}
		if rt := in.Canonical(fn.Result.Type); in.IsArithmetic(rt) {
			out = append(out, rt)
		}
	}
	return out
}

// builtinOperatorExpr lowers a built-in winner back onto the ordinary
// binary form, converting both operands to the candidate's parameters.
func (s *Sema) builtinOperatorExpr(op ast.BinaryOp, c Candidate, lhs, rhs ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	fn, ok := in.FnInfo(in.Canonical(c.Fn))
	if !ok || len(fn.Params) != 2 {
		return s.badBinary(op, lhs, rhs, span)
	}
	lc := s.initConvert(lhs, fn.Params[0])
	rc := s.initConvert(rhs, fn.Params[1])
	if !lc.IsValid() || !rc.IsValid() {
		return s.badBinary(op, lhs, rhs, span)
	}
	return s.newBinary(op, lc, rc, fn.Result, span)
}
