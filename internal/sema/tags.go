package sema

import (
	"fmt"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// ActOnTag handles a tag reference or forward declaration: `struct S`,
// `union U`, `enum E`. An existing visible tag is reused; otherwise a new
// incomplete declaration is introduced in the nearest enclosing non-local
// context (C's scope rule for sudden tags).
func (s *Sema) ActOnTag(tag types.RecordTag, ident *names.Identifier, span source.Span) ast.DeclID {
	name := s.Unit.Names.IdentifierName(ident)

	if res := s.LookupName(name, LookupTag); res.Kind == ResSingle {
		prev := s.Unit.Decl(res.First())
		if prev.Kind == ast.DeclRecord && !tagKeysCompatible(prev.Record.Tag, tag) {
			diag.ReportError(s.Reporter, diag.SemaTagKindMismatch, span,
				fmt.Sprintf("use of '%s' with tag type that does not match previous declaration", ident.String())).
				WithNote(prev.Span, "previous use is here").
				Emit()
		}
		return res.First()
	}

	ctx := s.CurrentContext()
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclRecord,
		Name:    name,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
		Record:  ast.RecordDecl{Tag: tag},
	})
	recType := s.Unit.Types.RegisterRecord(types.DeclRef(id), tag, s.Unit.Strings.Intern(ident.Text), span)
	s.Unit.Decl(id).Type = types.MakeQual(recType)
	s.declare(id)
	return id
}

// ActOnStartTagDefinition opens the member context of a record definition.
func (s *Sema) ActOnStartTagDefinition(tagID ast.DeclID, span source.Span) {
	d := s.Unit.Decl(tagID)
	if d == nil || d.Kind != ast.DeclRecord {
		return
	}
	if d.Record.Definition {
		s.reportRedef(d, d, fmt.Sprintf("redefinition of '%s'", d.Name.String()))
		s.Poison(tagID)
	}
	ctx := s.Unit.NewContext(ast.CtxRecord, d.SemaCtx, tagID, span)
	d.Record.Ctx = ctx
	s.PushScope(ScopeClass, ctx)
}

// ActOnBaseSpecifier records one entry of a C++ base-class list.
func (s *Sema) ActOnBaseSpecifier(tagID, baseID ast.DeclID, virtual bool, span source.Span) {
	d := s.Unit.Decl(tagID)
	bd := s.Unit.Decl(baseID)
	if d == nil || bd == nil || d.Kind != ast.DeclRecord {
		return
	}
	if bd.Kind != ast.DeclRecord || !bd.Record.Definition {
		diag.ReportError(s.Reporter, diag.SemaIncompleteType, span,
			fmt.Sprintf("base class '%s' has incomplete type", bd.Name.String())).Emit()
		s.Poison(tagID)
		return
	}
	d.Record.Bases = append(d.Record.Bases, ast.BaseSpecifier{Class: baseID, Virtual: virtual})
}

// ActOnField declares one member of the record being defined. width is the
// bit-field width expression, NoExprID for plain fields.
func (s *Sema) ActOnField(tagID ast.DeclID, ident *names.Identifier, qt types.QualType, width ast.ExprID, span source.Span) ast.DeclID {
	d := s.Unit.Decl(tagID)
	if d == nil || d.Kind != ast.DeclRecord {
		return ast.NoDeclID
	}
	var name names.DeclName
	if ident != nil {
		name = s.Unit.Names.IdentifierName(ident)
	}

	evaluated := int32(-1)
	if width.IsValid() {
		v, ok := s.RequireIntConst(width, "bit-field width")
		switch {
		case !ok:
			evaluated = 0
		case v < 0:
			diag.ReportError(s.Reporter, diag.LayoutNegativeWidth, span,
				fmt.Sprintf("bit-field '%s' has negative width", ident.String())).Emit()
			evaluated = 0
		case v == 0 && ident != nil:
			diag.ReportError(s.Reporter, diag.LayoutBitFieldTooWide, span,
				fmt.Sprintf("named bit-field '%s' has zero width", ident.String())).Emit()
			evaluated = 0
		default:
			evaluated = int32(v)
		}
	}

	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclField,
		Name:    name,
		Type:    qt,
		Span:    span,
		SemaCtx: d.Record.Ctx,
		LexCtx:  d.Record.Ctx,
		Field: ast.FieldDecl{
			WidthExpr: width,
			Width:     evaluated,
			Index:     uint32(len(d.Record.Fields)),
		},
	})
	if !s.Unit.Types.IsComplete(qt.Type) {
		diag.ReportError(s.Reporter, diag.SemaIncompleteType, span,
			"field has incomplete type").
			WithArg(diag.Arg{Kind: diag.ArgType, Text: s.SpellType(qt)}).
			Emit()
		s.Poison(id)
		s.Poison(tagID)
	}
	d.Record.Fields = append(d.Record.Fields, id)
	s.Unit.AddToContext(d.Record.Ctx, id)
	return id
}

// ActOnTagDefinitionFinish completes the record: fields flow into the type
// interner (refining the placeholder) and the active pack cap is recorded.
func (s *Sema) ActOnTagDefinitionFinish(tagID ast.DeclID) {
	d := s.Unit.Decl(tagID)
	if d == nil || d.Kind != ast.DeclRecord {
		return
	}
	s.PopScope()
	d.Record.Definition = true

	fields := make([]types.Field, 0, len(d.Record.Fields))
	for _, fid := range d.Record.Fields {
		fd := s.Unit.Decl(fid)
		if fd == nil {
			continue
		}
		var nameID source.StringID
		if fd.Name.ID != nil {
			nameID = s.Unit.Strings.Intern(fd.Name.ID.Text)
		}
		fields = append(fields, types.Field{
			Name:     nameID,
			Type:     fd.Type,
			BitWidth: fd.Field.Width,
			Span:     fd.Span,
		})
	}
	if d.Invalid {
		return
	}
	s.Unit.Types.CompleteRecord(s.Unit.Types.Canonical(d.Type.Type), fields, s.pack.Current())
}

// ActOnStartEnum introduces (or finds) an enum tag declaration.
func (s *Sema) ActOnStartEnum(ident *names.Identifier, span source.Span) ast.DeclID {
	name := s.Unit.Names.IdentifierName(ident)
	if res := s.LookupName(name, LookupTag); res.Kind == ResSingle {
		prev := s.Unit.Decl(res.First())
		if prev.Kind == ast.DeclEnum {
			if prev.Enum.Definition {
				s.reportRedef(prev, prev, fmt.Sprintf("redefinition of '%s'", ident.String()))
			}
			return res.First()
		}
	}

	ctx := s.CurrentContext()
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclEnum,
		Name:    name,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
	})
	enumType := s.Unit.Types.RegisterEnum(types.DeclRef(id), s.Unit.Strings.Intern(ident.Text), span)
	s.Unit.Decl(id).Type = types.MakeQual(enumType)
	s.declare(id)
	return id
}

// ActOnEnumConstant declares one enumerator. init is the explicit value
// expression; without one the value is previous+1.
func (s *Sema) ActOnEnumConstant(enumID ast.DeclID, ident *names.Identifier, init ast.ExprID, span source.Span) ast.DeclID {
	d := s.Unit.Decl(enumID)
	if d == nil || d.Kind != ast.DeclEnum {
		return ast.NoDeclID
	}
	value := int64(0)
	if n := len(d.Enum.Constants); n > 0 {
		if last := s.Unit.Decl(d.Enum.Constants[n-1]); last != nil {
			value = last.EnumConst.Value + 1
		}
	}
	if init.IsValid() {
		if v, ok := s.RequireIntConst(init, "enumerator value"); ok {
			value = v
		}
	}

	ctx := s.CurrentContext()
	name := s.Unit.Names.IdentifierName(ident)
	id := s.Unit.NewDecl(ast.Decl{
		Kind:      ast.DeclEnumConstant,
		Name:      name,
		Type:      d.Type,
		Span:      span,
		SemaCtx:   ctx,
		LexCtx:    ctx,
		EnumConst: ast.EnumConstDecl{Init: init, Value: value},
	})
	if prev := s.priorInScope(name, ast.NSOrdinary); prev.IsValid() {
		s.reportRedef(s.Unit.Decl(id), s.Unit.Decl(prev), fmt.Sprintf("redefinition of enumerator '%s'", ident.String()))
		s.Poison(id)
		return prev
	}
	d.Enum.Constants = append(d.Enum.Constants, id)
	s.declare(id)
	return id
}

// ActOnEnumFinish completes the enum, choosing the underlying type from the
// value range.
func (s *Sema) ActOnEnumFinish(enumID ast.DeclID) {
	d := s.Unit.Decl(enumID)
	if d == nil || d.Kind != ast.DeclEnum {
		return
	}
	d.Enum.Definition = true

	lo, hi := int64(0), int64(0)
	for _, cid := range d.Enum.Constants {
		cd := s.Unit.Decl(cid)
		if cd == nil {
			continue
		}
		if cd.EnumConst.Value < lo {
			lo = cd.EnumConst.Value
		}
		if cd.EnumConst.Value > hi {
			hi = cd.EnumConst.Value
		}
	}
	b := s.Builtins()
	underlying := b.Int
	switch {
	case lo >= 0 && hi <= 1<<31-1:
		underlying = b.Int
	case lo >= -(1<<31) && hi <= 1<<31-1:
		underlying = b.Int
	case lo >= 0:
		underlying = b.ULong
	default:
		underlying = b.Long
	}
	d.Enum.Underlying = underlying
	s.Unit.Types.CompleteEnum(s.Unit.Types.Canonical(d.Type.Type), underlying)
}

// ActOnStartNamespace opens (or reopens) a namespace.
func (s *Sema) ActOnStartNamespace(ident *names.Identifier, span source.Span) ast.DeclID {
	name := s.Unit.Names.IdentifierName(ident)
	ctx := s.CurrentContext()

	// Reopening: share the original context.
	if found := s.Unit.LookupIn(ctx, name, ast.NSOrdinary); len(found) > 0 {
		if prev := s.Unit.Decl(found[len(found)-1]); prev != nil && prev.Kind == ast.DeclNamespace {
			s.PushScope(ScopeNamespace, prev.NS.Ctx)
			return found[len(found)-1]
		}
	}

	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclNamespace,
		Name:    name,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
	})
	nsCtx := s.Unit.NewContext(ast.CtxNamespace, ctx, id, span)
	s.Unit.Decl(id).NS.Ctx = nsCtx
	s.declare(id)
	s.PushScope(ScopeNamespace, nsCtx)
	return id
}

// ActOnEndNamespace closes the namespace scope.
func (s *Sema) ActOnEndNamespace(ast.DeclID) {
	s.PopScope()
}

// ActOnUsingDirective handles `using namespace N;`.
func (s *Sema) ActOnUsingDirective(ident *names.Identifier, span source.Span) ast.DeclID {
	res := s.LookupName(s.Unit.Names.IdentifierName(ident), LookupOrdinary)
	if res.Kind != ResSingle {
		diag.ReportError(s.Reporter, diag.SemaNameNotFound, span,
			fmt.Sprintf("expected namespace name '%s'", ident.String())).Emit()
		return ast.NoDeclID
	}
	nd := s.Unit.Decl(res.First())
	if nd == nil || nd.Kind != ast.DeclNamespace {
		diag.ReportError(s.Reporter, diag.SemaTypeMismatch, span,
			fmt.Sprintf("'%s' is not a namespace", ident.String())).Emit()
		return ast.NoDeclID
	}
	ctx := s.CurrentContext()
	id := s.Unit.NewDecl(ast.Decl{
		Kind:    ast.DeclUsingDirective,
		Span:    span,
		SemaCtx: ctx,
		LexCtx:  ctx,
		Using:   ast.UsingDirectiveDecl{Nominated: nd.NS.Ctx},
	})
	s.Unit.AddToContext(ctx, id)
	return id
}
