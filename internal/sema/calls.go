package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

// ActOnCall type-checks a call expression. In C++ mode an overloaded callee
// goes through overload resolution with ADL; in C mode the callee must be a
// function or function pointer.
func (s *Sema) ActOnCall(callee ast.ExprID, args []ast.ExprID, span source.Span) ast.ExprID {
	ce := s.Unit.Expr(callee)
	if ce == nil || ce.Invalid {
		return s.invalidExpr(span)
	}
	for _, a := range args {
		if ae := s.Unit.Expr(a); ae == nil || ae.Invalid {
			return s.invalidExpr(span)
		}
	}

	// Builtin call: the callee is a declref with no declaration but a
	// builtin-typed function.
	if ce.Kind == ast.ExprDeclRef && !ce.Ref.Decl.IsValid() {
		return s.buildBuiltinCall(callee, args, span)
	}

	if s.Lang == LangCXX && ce.Kind == ast.ExprDeclRef {
		if resolved, handled := s.resolveOverloadedCall(callee, args, span); handled {
			return resolved
		}
	}
	return s.buildDirectCall(callee, args, span)
}

// resolveOverloadedCall runs overload resolution when the callee names a
// function. Returns handled=false when the callee is not a function name.
func (s *Sema) resolveOverloadedCall(callee ast.ExprID, args []ast.ExprID, span source.Span) (ast.ExprID, bool) {
	ce := s.Unit.Expr(callee)
	d := s.Unit.Decl(ce.Ref.Decl)
	if d == nil || (d.Kind != ast.DeclFunction && d.Kind != ast.DeclOverloadSet) {
		return ast.NoExprID, false
	}

	// Re-run lookup from scratch so the whole overload set and ADL
	// candidates participate, not just the parse-time first member.
	res := s.LookupName(d.Name, LookupOrdinary)
	decls := res.Decls
	argTypes := make([]types.QualType, len(args))
	vcs := make([]ast.ValueCategory, len(args))
	for i, a := range args {
		ae := s.Unit.Expr(a)
		argTypes[i] = ae.Type
		vcs[i] = ae.VC
	}
	decls = s.ArgumentDependentLookup(d.Name, argTypes, decls)

	cands := s.GatherCandidates(Result{Kind: ResOverloadSet, Decls: decls})
	if len(cands) == 0 {
		return ast.NoExprID, false
	}
	r := s.ResolveCall(cands, argTypes, vcs)
	if r.Best < 0 {
		s.reportCallFailure(span, d.Name.String(), r)
		return s.invalidExpr(span), true
	}
	chosen := r.Candidates[r.Best]
	ref := s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprDeclRef,
		Type: types.MakeQual(chosen.Fn),
		VC:   ast.VCLValue,
		Span: ce.Span,
		Ref:  ast.DeclRefExpr{Decl: chosen.Decl},
	})
	return s.buildResolvedCall(ref, chosen, args, span), true
}

// buildResolvedCall converts arguments per the winning candidate's ICS and
// builds the call node.
func (s *Sema) buildResolvedCall(callee ast.ExprID, c Candidate, args []ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	fn, _ := in.FnInfo(in.Canonical(c.Fn))

	converted := make([]ast.ExprID, len(args))
	for i, a := range args {
		if fn != nil && i < len(fn.Params) {
			conv := s.initConvert(a, fn.Params[i])
			if conv.IsValid() {
				converted[i] = conv
				continue
			}
		}
		converted[i] = s.defaultArgumentPromotion(a)
	}
	// Missing trailing arguments come from defaults.
	if d := s.Unit.Decl(c.Decl); d != nil && d.Kind == ast.DeclFunction {
		for i := len(args); i < len(d.Fn.Params); i++ {
			p := s.Unit.Decl(d.Fn.Params[i])
			if p == nil || !p.Param.Default.IsValid() {
				break
			}
			converted = append(converted, p.Param.Default)
		}
	}

	result := types.MakeQual(s.Builtins().Int)
	if fn != nil {
		result = fn.Result
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprCall,
		Type: result,
		VC:   ast.VCRValue,
		Span: span,
		Call: ast.CallExpr{Callee: callee, Args: converted},
	})
}

// buildDirectCall handles the C path: callee decays to function pointer,
// prototype arguments convert, extra variadic arguments take the default
// promotions.
func (s *Sema) buildDirectCall(callee ast.ExprID, args []ast.ExprID, span source.Span) ast.ExprID {
	in := s.Unit.Types
	callee = s.rvalue(callee)
	ct := in.Canonical(s.exprType(callee).Type)
	if pointee, ok := in.Pointee(ct); ok {
		ct = in.Canonical(pointee.Type)
	}
	fn, ok := in.FnInfo(ct)
	if !ok {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			"called object is not a function or function pointer").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(s.exprType(callee))}).
			Emit()
		return s.invalidExpr(span)
	}

	if fn.Proto {
		if len(args) < len(fn.Params) || (len(args) > len(fn.Params) && !fn.Variadic) {
			diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
				fmt.Sprintf("expected %d argument(s), have %d", len(fn.Params), len(args))).Emit()
			return s.invalidExpr(span)
		}
	}

	converted := make([]ast.ExprID, len(args))
	for i, a := range args {
		if fn.Proto && i < len(fn.Params) {
			conv := s.initConvert(a, fn.Params[i])
			if !conv.IsValid() {
				ae := s.Unit.Expr(a)
				diag.ReportError(s.Reporter, diag.SemaInvalidConversion, ae.Span,
					fmt.Sprintf("passing '%s' to parameter of incompatible type '%s'",
						s.SpellType(ae.Type), s.SpellType(fn.Params[i]))).
					WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(ae.Type)}).
					WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(fn.Params[i])}).
					Emit()
				return s.invalidExpr(span)
			}
			converted[i] = conv
			continue
		}
		converted[i] = s.defaultArgumentPromotion(a)
	}

	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprCall,
		Type: fn.Result,
		VC:   ast.VCRValue,
		Span: span,
		Call: ast.CallExpr{Callee: callee, Args: converted},
	})
}

// defaultArgumentPromotion applies the variadic-argument promotions:
// integral promotion plus float to double.
func (s *Sema) defaultArgumentPromotion(id ast.ExprID) ast.ExprID {
	in := s.Unit.Types
	id = s.rvalue(id)
	canon := in.Canonical(s.exprType(id).Type)
	if p, ok := s.promotedType(canon); ok {
		kind := ast.CastIntegral
		if tt, ok := in.Lookup(canon); ok && tt.Kind == types.KindBuiltin && tt.Builtin == types.BuiltinFloat {
			kind = ast.CastFloating
		}
		return s.castTo(id, types.MakeQual(p), kind)
	}
	return id
}

// buildBuiltinCall types a call to a target builtin from its signature row.
func (s *Sema) buildBuiltinCall(callee ast.ExprID, args []ast.ExprID, span source.Span) ast.ExprID {
	ce := s.Unit.Expr(callee)
	in := s.Unit.Types
	fn, ok := in.FnInfo(in.Canonical(ce.Type.Type))
	if !ok {
		return s.invalidExpr(span)
	}
	bid := s.builtinOfType(ce.Type.Type)

	converted := make([]ast.ExprID, len(args))
	for i, a := range args {
		if i < len(fn.Params) {
			if conv := s.initConvert(a, fn.Params[i]); conv.IsValid() {
				converted[i] = conv
				continue
			}
		}
		converted[i] = s.defaultArgumentPromotion(a)
	}
	return s.Unit.NewExpr(ast.Expr{
		Kind: ast.ExprCall,
		Type: fn.Result,
		VC:   ast.VCRValue,
		Span: span,
		Call: ast.CallExpr{Callee: callee, Args: converted, Builtin: bid},
	})
}

// builtinType interns the function type for a builtin id from the compact
// signature string.
func (s *Sema) builtinType(id target.BuiltinID) (types.TypeID, bool) {
	b, ok := s.Target.Builtin(id)
	if !ok {
		return types.NoTypeID, false
	}
	in := s.Unit.Types
	sig := b.Signature

	next := func() (types.QualType, bool) {
		if len(sig) == 0 {
			return types.QualType{}, false
		}
		ptr := false
		if sig[0] == '*' {
			ptr = true
			sig = sig[1:]
			if len(sig) == 0 {
				return types.QualType{}, false
			}
		}
		var base types.TypeID
		bt := s.Builtins()
		switch sig[0] {
		case 'v':
			base = bt.Void
		case 'b':
			base = bt.Bool
		case 'c':
			base = bt.Char
		case 's':
			base = bt.Short
		case 'i':
			base = bt.Int
		case 'l':
			base = bt.Long
		case 'L':
			base = bt.LongLong
		case 'f':
			base = bt.Float
		case 'd':
			base = bt.Double
		default:
			return types.QualType{}, false
		}
		sig = sig[1:]
		qt := types.MakeQual(base)
		if ptr {
			qt = types.MakeQual(in.Pointer(qt, 0))
		}
		return qt, true
	}

	result, ok := next()
	if !ok {
		return types.NoTypeID, false
	}
	var params []types.QualType
	variadic := false
	for len(sig) > 0 {
		if sig[0] == '.' {
			variadic = true
			break
		}
		p, ok := next()
		if !ok {
			return types.NoTypeID, false
		}
		params = append(params, p)
	}
	fnType := in.Function(result, params, variadic)
	s.rememberBuiltinType(fnType, id)
	return fnType, true
}

// builtin function types are cached so CallExpr.Builtin can be recovered
// from the callee type.
func (s *Sema) rememberBuiltinType(fn types.TypeID, id target.BuiltinID) {
	if s.builtinByType == nil {
		s.builtinByType = make(map[types.TypeID]target.BuiltinID, 16)
	}
	if _, dup := s.builtinByType[fn]; !dup {
		s.builtinByType[fn] = id
	}
}

func (s *Sema) builtinOfType(fn types.TypeID) target.BuiltinID {
	return s.builtinByType[s.Unit.Types.Canonical(fn)]
}
