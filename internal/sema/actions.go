package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// The ActOn* family is the parser-facing surface: one call per grammatical
// production, each returning an opaque handle or NoDeclID on error. The
// analyzer keeps going after errors so diagnostics aggregate.

// ActOnEndTranslationUnit finalizes the unit: unresolved gotos inside
// functions were already reported per-function; tentative definitions of
// complete type become definitions.
func (s *Sema) ActOnEndTranslationUnit() {
	root := s.Unit.Ctx(s.Unit.Root)
	if root == nil {
		return
	}
	for _, id := range root.Decls {
		d := s.Unit.Decl(id)
		if d == nil || d.Kind != ast.DeclVariable || !d.Var.Tentative {
			continue
		}
		if !s.Unit.Types.IsComplete(d.Type.Type) {
			diag.ReportError(s.Reporter, diag.SemaIncompleteType, d.Span,
				fmt.Sprintf("tentative definition of '%s' has incomplete type", d.Name.String())).
				WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(d.Type)}).
				Emit()
			s.Poison(id)
		}
	}
}

// ActOnTypedef declares a typedef name for the given underlying type.
func (s *Sema) ActOnTypedef(ident *names.Identifier, underlying types.QualType, span source.Span) ast.DeclID {
	ctx := s.CurrentContext()
	name := s.Unit.Names.IdentifierName(ident)

	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclTypedef,
		Name:    name,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
	})
	tdType := s.Unit.Types.RegisterTypedef(types.DeclRef(id), s.Unit.Strings.Intern(ident.Text), underlying)
	s.Unit.Decl(id).Type = types.MakeQual(tdType)
	if prev := s.priorInScope(name, ast.NSOrdinary); prev.IsValid() {
		if merged := s.mergeDecl(id, prev); merged == prev {
			return prev
		}
	}
	s.declare(id)
	return id
}

// ActOnVariable declares a variable. File-scope declarations without
// initializer and without extern are tentative definitions.
func (s *Sema) ActOnVariable(ident *names.Identifier, qt types.QualType, storage ast.StorageClass, span source.Span) ast.DeclID {
	ctx := s.CurrentContext()
	name := s.Unit.Names.IdentifierName(ident)

	fileScope := !s.CurrentScope().Local()
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclVariable,
		Name:    name,
		Type:    qt,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
		Storage: storage,
		Var:     ast.VarDecl{Tentative: fileScope && storage != ast.StorageExtern},
	})
	if tt, ok := s.Unit.Types.Lookup(s.Unit.Types.Canonical(qt.Type)); ok && tt.Kind == types.KindFunction {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			fmt.Sprintf("variable '%s' declared with function type", ident.String())).Emit()
		s.Poison(id)
	}

	if prev := s.priorInScope(name, ast.NSOrdinary); prev.IsValid() {
		pd := s.Unit.Decl(prev)
		if pd != nil && pd.Kind == ast.DeclVariable && s.CurrentScope().Local() {
			// Block-scope redeclaration of a non-extern local is a plain
			// redefinition.
			if storage != ast.StorageExtern && pd.Storage != ast.StorageExtern {
				s.reportRedef(s.Unit.Decl(id), pd, fmt.Sprintf("redefinition of '%s'", ident.String()))
				s.Poison(id)
				return prev
			}
		}
		if merged := s.mergeDecl(id, prev); merged == prev {
			return prev
		}
	}
	s.declare(id)
	return id
}

// ActOnVariableInit attaches and checks an initializer.
func (s *Sema) ActOnVariableInit(varID ast.DeclID, init ast.ExprID) {
	d := s.Unit.Decl(varID)
	if d == nil || d.Kind != ast.DeclVariable {
		return
	}
	if d.Var.Init.IsValid() {
		span := d.Span
		if e := s.Unit.Expr(init); e != nil {
			span = e.Span
		}
		diag.ReportError(s.Reporter, diag.SemaRedefinition, span,
			fmt.Sprintf("redefinition of '%s'", d.Name.String())).
			WithNote(d.Span, "previous definition is here").
			Emit()
		s.Poison(varID)
		return
	}
	d.Var.Init = init
	d.Var.Tentative = false
	e := s.Unit.Expr(init)
	if e == nil || e.Invalid {
		return
	}
	conv := s.initConvert(init, d.Type)
	if !conv.IsValid() {
		diag.ReportError(s.Reporter, diag.SemaInvalidConversion, e.Span,
			fmt.Sprintf("initializing '%s' with an expression of incompatible type '%s'",
				s.SpellType(d.Type), s.SpellType(e.Type))).
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(d.Type)}).
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(e.Type)}).
			Emit()
		s.Poison(varID)
		return
	}
	d.Var.Init = conv

	// File-scope and static initializers must be constant.
	if (!s.CurrentScope().Local() || d.Storage == ast.StorageStatic) && !s.isInitListOrString(conv) {
		v := s.Evaluate(conv)
		if v.SideEffects {
			if ce := s.Unit.Expr(conv); ce != nil {
				diag.ReportError(s.Reporter, diag.SemaConstExprSideEffects, ce.Span,
					"initializer element is not a compile-time constant").Emit()
			}
			s.Poison(varID)
		}
	}
}

func (s *Sema) isInitListOrString(id ast.ExprID) bool {
	e := s.Unit.Expr(id)
	return e != nil && (e.Kind == ast.ExprInitList || e.Kind == ast.ExprStringLit)
}

// ActOnParam declares a function parameter in the prototype scope.
func (s *Sema) ActOnParam(ident *names.Identifier, qt types.QualType, index uint32, span source.Span) ast.DeclID {
	ctx := s.CurrentContext()
	in := s.Unit.Types

	// Parameters of array or function type adjust to pointers.
	qt = in.Decay(qt)
	if in.IsVoid(qt.Type) {
		diag.ReportError(s.Reporter, diag.SemaVoidParamNotAlone, span,
			"'void' must be the first and only parameter if specified").Emit()
	}

	var name names.DeclName
	if ident != nil {
		name = s.Unit.Names.IdentifierName(ident)
	}
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclParameter,
		Name:    name,
		Type:    qt,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
		Param:   ast.ParamDecl{Index: index},
	})
	if ident != nil {
		s.push(ident, id)
	}
	return id
}

// ActOnParamDefault attaches a C++ default argument to a parameter.
func (s *Sema) ActOnParamDefault(paramID ast.DeclID, def ast.ExprID) {
	p := s.Unit.Decl(paramID)
	if p == nil || p.Kind != ast.DeclParameter {
		return
	}
	conv := s.initConvert(def, p.Type)
	if !conv.IsValid() {
		e := s.Unit.Expr(def)
		sp := p.Span
		if e != nil {
			sp = e.Span
		}
		diag.ReportError(s.Reporter, diag.SemaBadDefaultArg, sp,
			"default argument of incompatible type").Emit()
		s.Poison(paramID)
		return
	}
	p.Param.Default = conv
}

// ActOnFunctionDecl declares (or redeclares) a function.
func (s *Sema) ActOnFunctionDecl(ident *names.Identifier, fnType types.TypeID, params []ast.DeclID, storage ast.StorageClass, span source.Span) ast.DeclID {
	return s.declareFunction(s.Unit.Names.IdentifierName(ident), ident, fnType, params, storage, span)
}

// ActOnOperatorFunctionDecl declares `operator@` as a free or member
// function; a member form omits the implicit object from its parameters.
func (s *Sema) ActOnOperatorFunctionDecl(op names.OperatorKind, fnType types.TypeID, params []ast.DeclID, storage ast.StorageClass, span source.Span) ast.DeclID {
	return s.declareFunction(s.Unit.Names.OperatorName(op), nil, fnType, params, storage, span)
}

// ActOnConversionFunctionDecl declares `operator T()` in the class being
// defined.
func (s *Sema) ActOnConversionFunctionDecl(dest types.TypeID, fnType types.TypeID, span source.Span) ast.DeclID {
	return s.declareFunction(s.Unit.Names.ConversionName(dest), nil, fnType, nil, ast.StorageNone, span)
}

func (s *Sema) declareFunction(name names.DeclName, ident *names.Identifier, fnType types.TypeID, params []ast.DeclID, storage ast.StorageClass, span source.Span) ast.DeclID {
	ctx := s.CurrentContext()

	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclFunction,
		Name:    name,
		Type:    types.MakeQual(fnType),
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
		Storage: storage,
		Fn:      ast.FnDecl{Params: params},
	})
	for _, p := range params {
		if pd := s.Unit.Decl(p); pd != nil {
			pd.SemaCtx = ctx
		}
	}

	if prev := s.priorInScope(name, ast.NSOrdinary); prev.IsValid() {
		merged := s.mergeDecl(id, prev)
		if md := s.Unit.Decl(merged); md != nil && md.Kind == ast.DeclOverloadSet {
			// The set stays visible; the new function still needs to be
			// owned by the context.
			s.Unit.Ctx(ctx).Decls = append(s.Unit.Ctx(ctx).Decls, id)
			return id
		}
		if merged == prev {
			return prev
		}
		// Redeclaration chain: replace visibility with the newest decl.
		s.Unit.ReplaceInContext(ctx, name, prev, id)
		if ident != nil {
			s.replaceTop(ident, id)
		}
		s.Unit.Ctx(ctx).Decls = append(s.Unit.Ctx(ctx).Decls, id)
		return id
	}
	s.declare(id)
	return id
}

// ActOnStartFunctionBody enters the function's context and scope, making the
// parameters visible.
func (s *Sema) ActOnStartFunctionBody(fnID ast.DeclID) {
	d := s.Unit.Decl(fnID)
	if d == nil || d.Kind != ast.DeclFunction {
		return
	}
	if d.Fn.Defined {
		s.reportRedef(d, d, fmt.Sprintf("redefinition of '%s'", d.Name.String()))
		s.Poison(fnID)
	}
	fnCtx := s.Unit.NewContext(ast.CtxFunction, d.SemaCtx, fnID, d.Span)
	s.PushScope(ScopeBlock, fnCtx)
	for _, p := range d.Fn.Params {
		pd := s.Unit.Decl(p)
		if pd == nil {
			continue
		}
		pd.SemaCtx = fnCtx
		if pd.Name.Kind == names.NameIdentifier && pd.Name.ID != nil {
			s.push(pd.Name.ID, p)
		}
	}

	result := types.QualType{Type: s.Builtins().Int}
	if fn, ok := s.Unit.Types.FnInfo(s.Unit.Types.Canonical(d.Type.Type)); ok {
		result = fn.Result
	}
	s.fn = &fnState{
		decl:   fnID,
		result: result,
		labels: make(map[*names.Identifier]ast.StmtID),
	}
}

// ActOnFinishFunctionBody attaches the body, resolves pending gotos, and
// leaves the function scope.
func (s *Sema) ActOnFinishFunctionBody(fnID ast.DeclID, body ast.StmtID) {
	d := s.Unit.Decl(fnID)
	if d != nil && d.Kind == ast.DeclFunction {
		d.Fn.Body = body
		d.Fn.Defined = true
	}
	if s.fn != nil {
		for _, g := range s.fn.gotos {
			gs := s.Unit.Stmt(g)
			if gs == nil {
				continue
			}
			if _, ok := s.fn.labels[gs.Goto.Name]; !ok {
				diag.ReportError(s.Reporter, diag.SemaMissingLabel, gs.Span,
					fmt.Sprintf("use of undeclared label '%s'", gs.Goto.Name.String())).Emit()
				gs.Invalid = true
				if d != nil {
					d.Invalid = true
				}
			}
		}
	}
	s.fn = nil
	s.PopScope()
}

// ActOnLinkageSpecStart opens an extern "C"/"C++" block.
func (s *Sema) ActOnLinkageSpecStart(lang ast.Linkage, span source.Span) ast.DeclID {
	ctx := s.CurrentContext()
	id := s.Unit.NewDecl(ast.Decl{
		Kind:     ast.DeclLinkageSpec,
		Span:     span,
		SemaCtx:  ctx,
		LexCtx:   ctx,
		LinkSpec: ast.LinkageSpecDecl{Lang: lang},
	})
	s.Unit.AddToContext(ctx, id)
	inner := s.Unit.NewContext(ast.CtxLinkageSpec, ctx, id, span)
	s.Unit.Decl(id).LinkSpec.Ctx = inner
	s.PushScope(ScopeNamespace, inner)
	return id
}

// ActOnLinkageSpecEnd closes the block.
func (s *Sema) ActOnLinkageSpecEnd(ast.DeclID) {
	s.PopScope()
}

// priorInScope finds a previous declaration of name attached in the current
// context, for redeclaration detection.
func (s *Sema) priorInScope(name names.DeclName, mask ast.IDNS) ast.DeclID {
	found := s.Unit.LookupIn(s.CurrentContext(), name, mask)
	if len(found) == 0 {
		return ast.NoDeclID
	}
	return found[len(found)-1]
}
