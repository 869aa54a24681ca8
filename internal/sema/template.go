package sema

import (
	"fmt"
	"strings"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// TemplateArgKind tags one explicit template argument.
type TemplateArgKind uint8

const (
	TemplateArgNone TemplateArgKind = iota
	TemplateArgType
	TemplateArgExpr
	TemplateArgTemplate
)

// TemplateArg is one argument of a template-id. Exactly one payload is set,
// selected by Kind.
type TemplateArg struct {
	Kind TemplateArgKind
	Type types.QualType
	Expr ast.ExprID
	Decl ast.DeclID // class template, for template-template arguments
	Span source.Span
}

// ActOnStartTemplateParams opens a template parameter scope. The scope has
// no declaration context of its own; parameters are visible to the pattern
// that follows and retract when the template declaration closes.
func (s *Sema) ActOnStartTemplateParams() {
	s.PushScope(ScopeTemplateParams, ast.NoContextID)
}

// templateDepth counts the enclosing template parameter scopes.
func (s *Sema) templateDepth() uint32 {
	var n uint32
	for _, sc := range s.scopes {
		if sc.Kind == ScopeTemplateParams {
			n++
		}
	}
	return n
}

// checkTemplateParamShadow rejects a parameter that hides a parameter of an
// enclosing template.
func (s *Sema) checkTemplateParamShadow(ident *names.Identifier, span source.Span) bool {
	stack := s.resolver[ident]
	if len(stack) == 0 {
		return true
	}
	prev := s.Unit.Decl(stack[len(stack)-1].decl)
	if prev == nil {
		return true
	}
	switch prev.Kind {
	case ast.DeclTemplateTypeParam, ast.DeclTemplateNonTypeParam, ast.DeclTemplateTemplateParam:
		diag.ReportError(s.Reporter, diag.SemaTemplateParamShadow, span,
			fmt.Sprintf("declaration of '%s' shadows template parameter", ident.String())).
			WithNote(prev.Span, "template parameter is declared here").
			Emit()
		return false
	}
	return true
}

// ActOnTemplateTypeParam declares one type-parameter. def is the default
// argument, zero QualType for none.
func (s *Sema) ActOnTemplateTypeParam(ident *names.Identifier, index uint32, def types.QualType, span source.Span) ast.DeclID {
	if !s.checkTemplateParamShadow(ident, span) {
		return ast.NoDeclID
	}
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclTemplateTypeParam,
		Name:    s.Unit.Names.IdentifierName(ident),
		Span:    span,
		SemaCtx: s.CurrentContext(),
		LexCtx:  s.CurrentContext(),
		TParam: ast.TemplateParamDecl{
			Depth:       s.templateDepth() - 1,
			Index:       index,
			DefaultType: def,
		},
	})
	// The parameter's sentinel type: a typedef with no underlying, so it
	// canonicalizes to itself and stays distinct per parameter.
	sentinel := s.Unit.Types.RegisterTypedef(types.DeclRef(id), s.Unit.Strings.Intern(ident.Text), types.QualType{})
	s.Unit.Decl(id).Type = types.MakeQual(sentinel)
	s.push(ident, id)
	return id
}

// ActOnTemplateNonTypeParam declares one non-type parameter. Array and
// function parameter types adjust to pointers, as for function parameters.
func (s *Sema) ActOnTemplateNonTypeParam(ident *names.Identifier, index uint32, qt types.QualType, def ast.ExprID, span source.Span) ast.DeclID {
	if ident != nil && !s.checkTemplateParamShadow(ident, span) {
		return ast.NoDeclID
	}
	in := s.Unit.Types
	qt = in.Decay(qt)
	if !s.acceptableNonTypeParam(qt) {
		diag.ReportError(s.Reporter, diag.SemaTemplateArgBadNonType, span,
			fmt.Sprintf("a non-type template parameter cannot have type '%s'", s.SpellType(qt))).
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(qt)}).
			Emit()
		return ast.NoDeclID
	}
	var name names.DeclName
	if ident != nil {
		name = s.Unit.Names.IdentifierName(ident)
	}
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclTemplateNonTypeParam,
		Name:    name,
		Type:    qt,
		Span:    span,
		SemaCtx: s.CurrentContext(),
		LexCtx:  s.CurrentContext(),
		TParam: ast.TemplateParamDecl{
			Depth:       s.templateDepth() - 1,
			Index:       index,
			DefaultExpr: def,
		},
	})
	if ident != nil {
		s.push(ident, id)
	}
	return id
}

// ActOnTemplateTemplateParam declares one template-template parameter with
// its own inner parameter list.
func (s *Sema) ActOnTemplateTemplateParam(ident *names.Identifier, index uint32, inner []ast.DeclID, def ast.DeclID, span source.Span) ast.DeclID {
	if ident != nil && !s.checkTemplateParamShadow(ident, span) {
		return ast.NoDeclID
	}
	var name names.DeclName
	if ident != nil {
		name = s.Unit.Names.IdentifierName(ident)
	}
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclTemplateTemplateParam,
		Name:    name,
		Span:    span,
		SemaCtx: s.CurrentContext(),
		LexCtx:  s.CurrentContext(),
		TParam: ast.TemplateParamDecl{
			Depth:       s.templateDepth() - 1,
			Index:       index,
			DefaultRef:  def,
			InnerParams: inner,
		},
	})
	if ident != nil {
		s.push(ident, id)
	}
	return id
}

// ActOnTemplateParamsFinish checks that defaulted parameters form a
// contiguous tail.
func (s *Sema) ActOnTemplateParamsFinish(params []ast.DeclID, span source.Span) {
	sawDefault := false
	for _, pid := range params {
		d := s.Unit.Decl(pid)
		if d == nil {
			continue
		}
		if paramHasDefault(d) {
			sawDefault = true
			continue
		}
		if sawDefault {
			diag.ReportError(s.Reporter, diag.SemaTemplateDefaultGap, d.Span,
				fmt.Sprintf("template parameter '%s' without a default argument follows one with a default", d.Name.String())).
				Emit()
			sawDefault = false
		}
	}
	_ = span
}

func paramHasDefault(d *ast.Decl) bool {
	switch d.Kind {
	case ast.DeclTemplateTypeParam:
		return d.TParam.DefaultType.Type != types.NoTypeID
	case ast.DeclTemplateNonTypeParam:
		return d.TParam.DefaultExpr.IsValid()
	case ast.DeclTemplateTemplateParam:
		return d.TParam.DefaultRef.IsValid()
	}
	return false
}

// acceptableNonTypeParam implements the non-type parameter type restriction:
// integral or enumeration, pointer or reference to object or function,
// pointer to member, or a dependent type.
func (s *Sema) acceptableNonTypeParam(qt types.QualType) bool {
	in := s.Unit.Types
	if s.typeIsDependent(qt) {
		return true
	}
	canon := in.Canonical(qt.Type)
	if in.IsInteger(canon) {
		return true
	}
	tt, ok := in.Lookup(canon)
	if !ok {
		return false
	}
	switch tt.Kind {
	case types.KindEnum, types.KindPointer, types.KindReference, types.KindMemberPointer:
		return true
	}
	return false
}

// ActOnClassTemplate closes the parameter scope and declares the template.
// pattern is the record declaration parsed under the parameter scope.
func (s *Sema) ActOnClassTemplate(ident *names.Identifier, params []ast.DeclID, pattern ast.DeclID, span source.Span) ast.DeclID {
	s.PopScope()
	name := s.Unit.Names.IdentifierName(ident)
	ctx := s.CurrentContext()

	id := s.Unit.NewDecl(ast.Decl{
		Kind:     ast.DeclClassTemplate,
		Name:     name,
		Span:     span,
		SemaCtx:  ctx,
		LexCtx:   ctx,
		Template: ast.TemplateDecl{Params: params, Pattern: pattern},
	})

	if prev := s.priorInScope(name, ast.NSOrdinary); prev.IsValid() {
		if merged := s.mergeClassTemplate(id, prev); merged.IsValid() {
			return merged
		}
	}
	s.declare(id)
	return id
}

// ActOnFunctionTemplate closes the parameter scope and declares a function
// template. Function templates overload, so redeclarations are not merged
// here; the overload machinery treats the pattern as one candidate.
func (s *Sema) ActOnFunctionTemplate(ident *names.Identifier, params []ast.DeclID, pattern ast.DeclID, span source.Span) ast.DeclID {
	s.PopScope()
	name := s.Unit.Names.IdentifierName(ident)
	ctx := s.CurrentContext()
	id := s.Unit.NewDecl(ast.Decl{
		Kind:     ast.DeclFunctionTemplate,
		Name:     name,
		Span:     span,
		SemaCtx:  ctx,
		LexCtx:   ctx,
		Template: ast.TemplateDecl{Params: params, Pattern: pattern},
	})
	s.declare(id)
	return id
}

// mergeClassTemplate folds a redeclaration into the previous one: defaults
// merge parameter-wise, a second definition is rejected. Returns the decl
// that survives, NoDeclID when the new declaration must stand alone.
func (s *Sema) mergeClassTemplate(newID, prevID ast.DeclID) ast.DeclID {
	nd := s.Unit.Decl(newID)
	pd := s.Unit.Decl(prevID)
	if pd == nil || pd.Kind != ast.DeclClassTemplate {
		s.reportRedef(nd, pd, fmt.Sprintf("redefinition of '%s' as a different kind of symbol", nd.Name.String()))
		s.Poison(newID)
		return prevID
	}
	if !s.templateParamListsEquivalent(nd.Template.Params, pd.Template.Params) {
		diag.ReportError(s.Reporter, diag.SemaTemplateRedefinition, nd.Span,
			fmt.Sprintf("template parameter list of '%s' differs from previous declaration", nd.Name.String())).
			WithNote(pd.Span, "previous declaration is here").
			Emit()
		s.Poison(newID)
		return prevID
	}

	for i, npid := range nd.Template.Params {
		np := s.Unit.Decl(npid)
		pp := s.Unit.Decl(pd.Template.Params[i])
		if np == nil || pp == nil {
			continue
		}
		if paramHasDefault(np) && paramHasDefault(pp) {
			diag.ReportError(s.Reporter, diag.SemaBadDefaultArg, np.Span,
				fmt.Sprintf("template parameter '%s' redefines its default argument", np.Name.String())).
				WithNote(pp.Span, "previous default is here").
				Emit()
			continue
		}
		if paramHasDefault(np) {
			pp.TParam.DefaultType = np.TParam.DefaultType
			pp.TParam.DefaultExpr = np.TParam.DefaultExpr
			pp.TParam.DefaultRef = np.TParam.DefaultRef
		}
	}

	ndef := patternDefined(s.Unit, nd)
	pdef := patternDefined(s.Unit, pd)
	if ndef && pdef {
		diag.ReportError(s.Reporter, diag.SemaTemplateRedefinition, nd.Span,
			fmt.Sprintf("redefinition of '%s'", nd.Name.String())).
			WithNote(pd.Span, "previous definition is here").
			Emit()
		s.Poison(newID)
		return prevID
	}
	if ndef {
		// Definition supersedes the forward declaration's pattern.
		pd.Template.Pattern = nd.Template.Pattern
	}
	nd.Prev = prevID
	return prevID
}

func patternDefined(u *ast.Unit, d *ast.Decl) bool {
	p := u.Decl(d.Template.Pattern)
	if p == nil {
		return false
	}
	switch p.Kind {
	case ast.DeclRecord:
		return p.Record.Definition
	case ast.DeclFunction:
		return p.Fn.Defined
	}
	return false
}

// templateParamListsEquivalent compares two parameter lists kind-wise, with
// recursion into template-template inner lists.
func (s *Sema) templateParamListsEquivalent(a, b []ast.DeclID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		da := s.Unit.Decl(a[i])
		db := s.Unit.Decl(b[i])
		if da == nil || db == nil || da.Kind != db.Kind {
			return false
		}
		switch da.Kind {
		case ast.DeclTemplateNonTypeParam:
			// Both dependent counts as equivalent.
			if s.typeIsDependent(da.Type) && s.typeIsDependent(db.Type) {
				continue
			}
			if s.Unit.Types.CanonicalQual(da.Type) != s.Unit.Types.CanonicalQual(db.Type) {
				return false
			}
		case ast.DeclTemplateTemplateParam:
			if !s.templateParamListsEquivalent(da.TParam.InnerParams, db.TParam.InnerParams) {
				return false
			}
		}
	}
	return true
}

// typeIsDependent reports types that mention a template parameter.
func (s *Sema) typeIsDependent(qt types.QualType) bool {
	in := s.Unit.Types
	seen := map[types.TypeID]bool{}
	var walk func(id types.TypeID) bool
	walk = func(id types.TypeID) bool {
		if id == types.NoTypeID || seen[id] {
			return false
		}
		seen[id] = true
		tt, ok := in.Lookup(id)
		if !ok {
			return false
		}
		switch tt.Kind {
		case types.KindTypedef:
			info, ok := in.TypedefInfo(id)
			if !ok {
				return false
			}
			if info.Underlying.Type == types.NoTypeID {
				d := s.Unit.Decl(ast.DeclID(info.Decl))
				if d != nil && d.Kind == ast.DeclTemplateTypeParam {
					return true
				}
				return false
			}
			return walk(info.Underlying.Type)
		case types.KindPointer, types.KindReference, types.KindComplex,
			types.KindConstantArray, types.KindIncompleteArray, types.KindVariableArray,
			types.KindVector, types.KindExtVector, types.KindMemberPointer, types.KindTypeOfType:
			return walk(tt.Elem.Type)
		case types.KindFunction:
			fn, ok := in.FnInfo(id)
			if !ok {
				return false
			}
			if walk(fn.Result.Type) {
				return true
			}
			for _, p := range fn.Params {
				if walk(p.Type) {
					return true
				}
			}
		}
		return false
	}
	return walk(qt.Type)
}

// CheckTemplateArgs validates the arguments of a template-id against the
// parameter list, filling defaulted tails. Returns the final argument list
// and whether every argument was acceptable.
func (s *Sema) CheckTemplateArgs(tmplID ast.DeclID, args []TemplateArg, span source.Span) ([]TemplateArg, bool) {
	td := s.Unit.Decl(tmplID)
	if td == nil || (td.Kind != ast.DeclClassTemplate && td.Kind != ast.DeclFunctionTemplate) {
		return nil, false
	}
	params := td.Template.Params

	if len(args) > len(params) {
		diag.ReportError(s.Reporter, diag.SemaTemplateArgCount, span,
			fmt.Sprintf("too many template arguments for '%s': expected at most %d, have %d",
				td.Name.String(), len(params), len(args))).
			WithNote(td.Span, "template is declared here").
			Emit()
		return nil, false
	}
	for i := len(args); i < len(params); i++ {
		pd := s.Unit.Decl(params[i])
		if pd == nil || !paramHasDefault(pd) {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgCount, span,
				fmt.Sprintf("too few template arguments for '%s': expected %d, have %d",
					td.Name.String(), len(params), len(args))).
				WithNote(td.Span, "template is declared here").
				Emit()
			return nil, false
		}
		args = append(args, s.defaultArgFor(pd))
	}

	ok := true
	for i, pid := range params {
		pd := s.Unit.Decl(pid)
		if pd == nil {
			continue
		}
		if !s.checkOneTemplateArg(pd, &args[i]) {
			ok = false
		}
	}
	return args, ok
}

func (s *Sema) defaultArgFor(pd *ast.Decl) TemplateArg {
	switch pd.Kind {
	case ast.DeclTemplateTypeParam:
		return TemplateArg{Kind: TemplateArgType, Type: pd.TParam.DefaultType, Span: pd.Span}
	case ast.DeclTemplateNonTypeParam:
		return TemplateArg{Kind: TemplateArgExpr, Expr: pd.TParam.DefaultExpr, Span: pd.Span}
	case ast.DeclTemplateTemplateParam:
		return TemplateArg{Kind: TemplateArgTemplate, Decl: pd.TParam.DefaultRef, Span: pd.Span}
	}
	return TemplateArg{}
}

func (s *Sema) checkOneTemplateArg(pd *ast.Decl, arg *TemplateArg) bool {
	switch pd.Kind {
	case ast.DeclTemplateTypeParam:
		if arg.Kind != TemplateArgType {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgKind, arg.Span,
				"template argument must be a type").
				WithNote(pd.Span, "template parameter is declared here").
				Emit()
			return false
		}
		return s.checkTypeArg(arg.Type, arg.Span)

	case ast.DeclTemplateNonTypeParam:
		if arg.Kind != TemplateArgExpr {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgKind, arg.Span,
				"template argument must be expression").
				WithNote(pd.Span, "template parameter is declared here").
				Emit()
			return false
		}
		return s.checkNonTypeArg(pd, arg)

	case ast.DeclTemplateTemplateParam:
		if arg.Kind != TemplateArgTemplate {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgKind, arg.Span,
				"template argument must be a class template").
				WithNote(pd.Span, "template parameter is declared here").
				Emit()
			return false
		}
		ad := s.Unit.Decl(arg.Decl)
		if ad == nil || ad.Kind != ast.DeclClassTemplate {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgKind, arg.Span,
				"template argument does not name a class template").
				WithNote(pd.Span, "template parameter is declared here").
				Emit()
			return false
		}
		if !s.templateParamListsEquivalent(ad.Template.Params, pd.TParam.InnerParams) {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgKind, arg.Span,
				fmt.Sprintf("template template argument '%s' has a parameter list that does not match", ad.Name.String())).
				WithNote(pd.Span, "template parameter is declared here").
				Emit()
			return false
		}
		return true
	}
	return false
}

// checkTypeArg rejects local and unnamed types as template type arguments.
func (s *Sema) checkTypeArg(qt types.QualType, span source.Span) bool {
	in := s.Unit.Types
	canon := in.Canonical(qt.Type)
	var declRef types.DeclRef
	var nameID source.StringID
	if info, ok := in.RecordInfo(canon); ok {
		declRef, nameID = info.Decl, info.Name
	} else if info, ok := in.EnumInfo(canon); ok {
		declRef, nameID = info.Decl, info.Name
	} else {
		return true
	}

	if nameID == source.NoStringID {
		diag.ReportError(s.Reporter, diag.SemaTemplateArgLocalType, span,
			"template argument uses unnamed type").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(qt)}).
			Emit()
		return false
	}
	for ctx := s.declContextOf(ast.DeclID(declRef)); ctx.IsValid(); {
		c := s.Unit.Ctx(ctx)
		if c == nil {
			break
		}
		if c.Kind == ast.CtxFunction || c.Kind == ast.CtxBlock {
			diag.ReportError(s.Reporter, diag.SemaTemplateArgLocalType, span,
				"template argument uses local type").
				WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(qt)}).
				Emit()
			return false
		}
		ctx = c.Parent
	}
	return true
}

func (s *Sema) declContextOf(id ast.DeclID) ast.ContextID {
	if d := s.Unit.Decl(id); d != nil {
		return d.SemaCtx
	}
	return ast.NoContextID
}

// checkNonTypeArg types a non-type argument against its parameter.
func (s *Sema) checkNonTypeArg(pd *ast.Decl, arg *TemplateArg) bool {
	if s.typeIsDependent(pd.Type) {
		return true
	}
	e := s.Unit.Expr(arg.Expr)
	if e == nil || e.Invalid {
		return false
	}
	in := s.Unit.Types
	if in.IsInteger(in.Canonical(pd.Type.Type)) {
		if _, ok := s.RequireIntConst(arg.Expr, "non-type template argument"); !ok {
			return false
		}
	}
	conv := s.initConvert(arg.Expr, pd.Type)
	if !conv.IsValid() {
		diag.ReportError(s.Reporter, diag.SemaTemplateArgBadNonType, arg.Span,
			fmt.Sprintf("non-type template argument of type '%s' does not convert to '%s'",
				s.SpellType(e.Type), s.SpellType(pd.Type))).
			WithNote(pd.Span, "template parameter is declared here").
			Emit()
		return false
	}
	arg.Expr = conv
	return true
}

// ActOnTemplateID instantiates `T<args...>`. Equal argument lists return the
// same instantiation.
func (s *Sema) ActOnTemplateID(tmplID ast.DeclID, args []TemplateArg, span source.Span) ast.DeclID {
	td := s.Unit.Decl(tmplID)
	if td == nil || td.Kind != ast.DeclClassTemplate {
		return ast.NoDeclID
	}
	full, ok := s.CheckTemplateArgs(tmplID, args, span)
	if !ok {
		return ast.NoDeclID
	}
	key := s.instanceKey(tmplID, full)
	if prev, ok := s.instances[key]; ok {
		return prev
	}
	inst := s.instantiateClass(td, full, span)
	if inst.IsValid() {
		if s.instances == nil {
			s.instances = make(map[string]ast.DeclID, 8)
		}
		s.instances[key] = inst
	}
	return inst
}

func (s *Sema) instanceKey(tmplID ast.DeclID, args []TemplateArg) string {
	in := s.Unit.Types
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", tmplID)
	for _, a := range args {
		switch a.Kind {
		case TemplateArgType:
			fmt.Fprintf(&sb, "|t%d.%d", in.Canonical(a.Type.Type), a.Type.Quals)
		case TemplateArgExpr:
			if v := s.Evaluate(a.Expr); v.Kind == ConstInt {
				fmt.Fprintf(&sb, "|e%d", v.Int)
			} else {
				fmt.Fprintf(&sb, "|x%d", a.Expr)
			}
		case TemplateArgTemplate:
			fmt.Fprintf(&sb, "|d%d", a.Decl)
		}
	}
	return sb.String()
}

// instantiateClass walks the pattern record, substituting arguments into
// member types and width expressions, and completes the fresh record in the
// template's own context.
func (s *Sema) instantiateClass(td *ast.Decl, args []TemplateArg, span source.Span) ast.DeclID {
	pattern := s.Unit.Decl(td.Template.Pattern)
	if pattern == nil || pattern.Kind != ast.DeclRecord || !pattern.Record.Definition {
		diag.ReportError(s.Reporter, diag.SemaIncompleteType, span,
			fmt.Sprintf("implicit instantiation of undefined template '%s'", td.Name.String())).
			WithNote(td.Span, "template is declared here").
			Emit()
		return ast.NoDeclID
	}

	sub := s.newSubstitution(td.Template.Params, args)

	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclRecord,
		Name:    td.Name,
		Span:    span,
		SemaCtx: td.SemaCtx,
		LexCtx:  td.SemaCtx,
		Record:  ast.RecordDecl{Tag: pattern.Record.Tag},
	})
	nameID := source.NoStringID
	if td.Name.ID != nil {
		nameID = s.Unit.Strings.Intern(td.Name.ID.Text)
	}
	recType := s.Unit.Types.RegisterRecord(types.DeclRef(id), pattern.Record.Tag, nameID, span)
	d := s.Unit.Decl(id)
	d.Type = types.MakeQual(recType)

	ctx := s.Unit.NewContext(ast.CtxRecord, td.SemaCtx, id, span)
	d.Record.Ctx = ctx

	fields := make([]types.Field, 0, len(pattern.Record.Fields))
	poisoned := false
	for _, fid := range pattern.Record.Fields {
		fd := s.Unit.Decl(fid)
		if fd == nil {
			continue
		}
		ft, ok := sub.substType(fd.Type, fd.Span)
		if !ok {
			poisoned = true
			continue
		}
		width := fd.Field.Width
		widthExpr := ast.NoExprID
		if fd.Field.WidthExpr.IsValid() {
			widthExpr = sub.substExpr(fd.Field.WidthExpr)
			if v, ok := s.RequireIntConst(widthExpr, "bit-field width"); ok {
				width = int32(v)
			}
		}
		nfid := s.Unit.NewDecl(ast.Decl{
			Kind:    ast.DeclField,
			Name:    fd.Name,
			Type:    ft,
			Span:    fd.Span,
			SemaCtx: ctx,
			LexCtx:  ctx,
			Field:   ast.FieldDecl{WidthExpr: widthExpr, Width: width, Index: fd.Field.Index},
		})
		s.Unit.AddToContext(ctx, nfid)
		d = s.Unit.Decl(id)
		d.Record.Fields = append(d.Record.Fields, nfid)

		var fnameID source.StringID
		if fd.Name.ID != nil {
			fnameID = s.Unit.Strings.Intern(fd.Name.ID.Text)
		}
		fields = append(fields, types.Field{Name: fnameID, Type: ft, BitWidth: width, Span: fd.Span})
	}

	d = s.Unit.Decl(id)
	d.Record.Definition = true
	if poisoned {
		s.Poison(id)
		return id
	}
	s.Unit.Types.CompleteRecord(s.Unit.Types.Canonical(d.Type.Type), fields, s.pack.Current())
	return id
}

// substitution carries the parameter-to-argument maps of one instantiation.
type substitution struct {
	s       *Sema
	typeMap map[types.TypeID]types.QualType
	exprMap map[ast.DeclID]ast.ExprID
}

func (s *Sema) newSubstitution(params []ast.DeclID, args []TemplateArg) *substitution {
	sub := &substitution{
		s:       s,
		typeMap: make(map[types.TypeID]types.QualType, len(args)),
		exprMap: make(map[ast.DeclID]ast.ExprID, len(args)),
	}
	for i, pid := range params {
		if i >= len(args) {
			break
		}
		pd := s.Unit.Decl(pid)
		if pd == nil {
			continue
		}
		switch pd.Kind {
		case ast.DeclTemplateTypeParam:
			sub.typeMap[pd.Type.Type] = args[i].Type
		case ast.DeclTemplateNonTypeParam:
			sub.exprMap[pid] = args[i].Expr
		}
	}
	return sub
}

// substType rebuilds a type with parameters replaced. A parameter that
// becomes a function type where an object type is required is rejected.
func (sub *substitution) substType(qt types.QualType, span source.Span) (types.QualType, bool) {
	out, ok := sub.subst(qt)
	if !ok {
		return types.QualType{}, false
	}
	in := sub.s.Unit.Types
	if in.IsFunction(in.Canonical(out.Type)) {
		diag.ReportError(sub.s.Reporter, diag.SemaTemplateFnParam, span,
			fmt.Sprintf("substitution produces function type '%s' where an object type is required", sub.s.SpellType(out))).
			Emit()
		return types.QualType{}, false
	}
	return out, true
}

func (sub *substitution) subst(qt types.QualType) (types.QualType, bool) {
	in := sub.s.Unit.Types
	if mapped, ok := sub.typeMap[qt.Type]; ok {
		return mapped.WithQuals(qt.Quals), true
	}
	tt, ok := in.Lookup(qt.Type)
	if !ok {
		return qt, true
	}
	switch tt.Kind {
	case types.KindPointer:
		elem, ok := sub.subst(tt.Elem)
		if !ok {
			return qt, false
		}
		return types.QualType{Type: in.Pointer(elem, tt.Addr), Quals: qt.Quals}, true
	case types.KindReference:
		elem, ok := sub.subst(tt.Elem)
		if !ok {
			return qt, false
		}
		return types.QualType{Type: in.Reference(elem), Quals: qt.Quals}, true
	case types.KindConstantArray:
		elem, ok := sub.subst(tt.Elem)
		if !ok {
			return qt, false
		}
		if in.IsFunction(in.Canonical(elem.Type)) {
			return qt, false
		}
		return types.QualType{Type: in.ConstantArray(elem, tt.Count), Quals: qt.Quals}, true
	case types.KindIncompleteArray:
		elem, ok := sub.subst(tt.Elem)
		if !ok {
			return qt, false
		}
		return types.QualType{Type: in.IncompleteArray(elem), Quals: qt.Quals}, true
	case types.KindMemberPointer:
		elem, ok := sub.subst(tt.Elem)
		if !ok {
			return qt, false
		}
		class, ok := sub.subst(types.MakeQual(tt.Class))
		if !ok {
			return qt, false
		}
		return types.QualType{Type: in.MemberPointer(class.Type, elem), Quals: qt.Quals}, true
	case types.KindFunction:
		fn, ok := in.FnInfo(qt.Type)
		if !ok {
			return qt, true
		}
		result, ok := sub.subst(fn.Result)
		if !ok {
			return qt, false
		}
		params := make([]types.QualType, len(fn.Params))
		for i, p := range fn.Params {
			np, ok := sub.subst(p)
			if !ok {
				return qt, false
			}
			params[i] = np
		}
		return types.QualType{Type: in.Function(result, params, fn.Variadic), Quals: qt.Quals}, true
	case types.KindTypedef:
		info, ok := in.TypedefInfo(qt.Type)
		if ok && info.Underlying.Type != types.NoTypeID {
			under, ok := sub.subst(info.Underlying)
			if !ok {
				return qt, false
			}
			return under.WithQuals(qt.Quals), true
		}
	}
	return qt, true
}

// substExpr clones an expression tree, replacing references to non-type
// parameters by their arguments.
func (sub *substitution) substExpr(id ast.ExprID) ast.ExprID {
	u := sub.s.Unit
	e := u.Expr(id)
	if e == nil {
		return ast.NoExprID
	}
	if e.Kind == ast.ExprDeclRef {
		if repl, ok := sub.exprMap[e.Ref.Decl]; ok {
			return repl
		}
		return id
	}
	clone := *e
	switch e.Kind {
	case ast.ExprParen:
		clone.Paren.Operand = sub.substExpr(e.Paren.Operand)
	case ast.ExprUnary:
		clone.Unary.Operand = sub.substExpr(e.Unary.Operand)
	case ast.ExprBinary:
		clone.Binary.Left = sub.substExpr(e.Binary.Left)
		clone.Binary.Right = sub.substExpr(e.Binary.Right)
	case ast.ExprConditional:
		clone.Cond.Cond = sub.substExpr(e.Cond.Cond)
		clone.Cond.Then = sub.substExpr(e.Cond.Then)
		clone.Cond.Else = sub.substExpr(e.Cond.Else)
	case ast.ExprCast, ast.ExprImplicitCast:
		clone.Cast.Operand = sub.substExpr(e.Cast.Operand)
	case ast.ExprSizeOf:
		if e.Size.Operand.IsValid() {
			clone.Size.Operand = sub.substExpr(e.Size.Operand)
		}
		if ot, ok := sub.subst(e.Size.OfType); ok {
			clone.Size.OfType = ot
		}
	case ast.ExprCall:
		clone.Call.Args = make([]ast.ExprID, len(e.Call.Args))
		for i, a := range e.Call.Args {
			clone.Call.Args[i] = sub.substExpr(a)
		}
		clone.Call.Callee = sub.substExpr(e.Call.Callee)
	case ast.ExprIndex:
		clone.Index.Base = sub.substExpr(e.Index.Base)
		clone.Index.Index = sub.substExpr(e.Index.Index)
	case ast.ExprMember:
		clone.Member.Base = sub.substExpr(e.Member.Base)
	case ast.ExprInitList:
		clone.Init.Elems = make([]ast.ExprID, len(e.Init.Elems))
		for i, el := range e.Init.Elems {
			clone.Init.Elems[i] = sub.substExpr(el)
		}
	default:
		return id
	}
	return u.NewExpr(clone)
}
