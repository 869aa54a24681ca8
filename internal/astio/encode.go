package astio

import (
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"cinder/internal/ast"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// Write serializes the unit to w. The stream captures everything a consumer
// needs to rebuild the unit against fresh tables: the full string table, the
// identifiers the nodes mention, every interner slot, and the node arenas in
// allocation order.
func Write(w io.Writer, u *ast.Unit) error {
	e := &encoder{u: u, identIdx: make(map[*names.Identifier]uint32)}
	p := &unitPayload{
		Magic:  streamMagic,
		Schema: schemaVersion,
		Root:   uint32(u.Root),
	}
	p.Decls = e.declRecs()
	p.Stmts = e.stmtRecs()
	p.Exprs = e.exprRecs()
	p.Ctxs = e.ctxRecs()
	p.Types = e.typeRecs()
	p.Strings = e.stringTable()
	p.Idents = e.idents
	return msgpack.NewEncoder(w).Encode(p)
}

type encoder struct {
	u        *ast.Unit
	idents   []string
	identIdx map[*names.Identifier]uint32
}

// identRef assigns a stable 1-based index to an identifier on first sight.
func (e *encoder) identRef(id *names.Identifier) uint32 {
	if id == nil {
		return 0
	}
	if idx, ok := e.identIdx[id]; ok {
		return idx
	}
	e.idents = append(e.idents, id.Text)
	idx := uint32(len(e.idents))
	e.identIdx[id] = idx
	return idx
}

func (e *encoder) name(n names.DeclName) nameRec {
	return nameRec{
		Kind:  uint8(n.Kind),
		Ident: e.identRef(n.ID),
		Type:  uint32(n.Type),
		Op:    uint8(n.Op),
	}
}

func span(s source.Span) spanRec {
	return spanRec{File: uint32(s.File), Start: s.Start, End: s.End}
}

func qual(qt types.QualType) qualRec {
	return qualRec{Type: uint32(qt.Type), Quals: uint8(qt.Quals)}
}

func declIDs(ids []ast.DeclID) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func stmtIDs(ids []ast.StmtID) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func exprIDs(ids []ast.ExprID) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

// stringTable dumps the writer's interner wholesale. StringIDs in the node
// records index this table, so the reader can re-intern and remap.
func (e *encoder) stringTable() []string {
	n := e.u.Strings.Len()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = e.u.Strings.MustLookup(source.StringID(i))
	}
	return out
}

func (e *encoder) declRecs() []declRec {
	n := e.u.Decls.Len()
	out := make([]declRec, 0, n)
	for i := uint32(1); i <= n; i++ {
		out = append(out, e.declRec(e.u.Decls.Get(i)))
	}
	return out
}

func (e *encoder) declRec(d *ast.Decl) declRec {
	rec := declRec{
		Kind:    uint8(d.Kind),
		Name:    e.name(d.Name),
		Type:    qual(d.Type),
		Span:    span(d.Span),
		SemaCtx: uint32(d.SemaCtx),
		LexCtx:  uint32(d.LexCtx),
		Storage: uint8(d.Storage),
		Invalid: d.Invalid,
		Prev:    uint32(d.Prev),
	}
	switch d.Kind {
	case ast.DeclVariable:
		rec.Var = &varRec{Init: uint32(d.Var.Init), Tentative: d.Var.Tentative}
	case ast.DeclParameter:
		rec.Param = &paramRec{Default: uint32(d.Param.Default), Index: d.Param.Index}
	case ast.DeclFunction:
		rec.Fn = &fnDeclRec{
			Params:  declIDs(d.Fn.Params),
			Body:    uint32(d.Fn.Body),
			Defined: d.Fn.Defined,
			Inline:  d.Fn.Inline,
		}
	case ast.DeclField:
		rec.Field = &fieldDeclRec{
			WidthExpr: uint32(d.Field.WidthExpr),
			Width:     d.Field.Width,
			Index:     d.Field.Index,
		}
	case ast.DeclRecord:
		r := &recordDeclRec{
			Tag:        uint8(d.Record.Tag),
			Fields:     declIDs(d.Record.Fields),
			Ctx:        uint32(d.Record.Ctx),
			Definition: d.Record.Definition,
		}
		for _, b := range d.Record.Bases {
			r.Bases = append(r.Bases, baseRec{Class: uint32(b.Class), Virtual: b.Virtual})
		}
		rec.Record = r
	case ast.DeclNamespace:
		rec.NS = &nsRec{Ctx: uint32(d.NS.Ctx)}
	case ast.DeclEnum:
		rec.Enum = &enumDeclRec{
			Constants:  declIDs(d.Enum.Constants),
			Underlying: uint32(d.Enum.Underlying),
			Definition: d.Enum.Definition,
		}
	case ast.DeclEnumConstant:
		rec.EnumConst = &enumConstRec{Init: uint32(d.EnumConst.Init), Value: d.EnumConst.Value}
	case ast.DeclClassTemplate, ast.DeclFunctionTemplate:
		rec.Template = &templateRec{
			Params:  declIDs(d.Template.Params),
			Pattern: uint32(d.Template.Pattern),
		}
	case ast.DeclTemplateTypeParam, ast.DeclTemplateNonTypeParam, ast.DeclTemplateTemplateParam:
		rec.TParam = &tparamRec{
			Depth:       d.TParam.Depth,
			Index:       d.TParam.Index,
			DefaultType: qual(d.TParam.DefaultType),
			DefaultExpr: uint32(d.TParam.DefaultExpr),
			DefaultRef:  uint32(d.TParam.DefaultRef),
			InnerParams: declIDs(d.TParam.InnerParams),
		}
	case ast.DeclOverloadSet:
		rec.Overload = &overloadRec{Members: declIDs(d.Overload.Members)}
	case ast.DeclUsingDirective:
		rec.Using = &usingRec{Nominated: uint32(d.Using.Nominated)}
	case ast.DeclLinkageSpec:
		rec.LinkSpec = &linkSpecRec{Lang: uint8(d.LinkSpec.Lang), Ctx: uint32(d.LinkSpec.Ctx)}
	}
	return rec
}

func (e *encoder) stmtRecs() []stmtRec {
	n := e.u.Stmts.Len()
	out := make([]stmtRec, 0, n)
	for i := uint32(1); i <= n; i++ {
		out = append(out, e.stmtRec(e.u.Stmts.Get(i)))
	}
	return out
}

func (e *encoder) stmtRec(s *ast.Stmt) stmtRec {
	rec := stmtRec{Kind: uint8(s.Kind), Span: span(s.Span), Invalid: s.Invalid}
	switch s.Kind {
	case ast.StmtCompound:
		rec.Compound = &compoundRec{Body: stmtIDs(s.Compound.Body)}
	case ast.StmtIf:
		rec.If = &ifRec{Cond: uint32(s.If.Cond), Then: uint32(s.If.Then), Else: uint32(s.If.Else)}
	case ast.StmtWhile, ast.StmtDo:
		rec.While = &whileRec{Cond: uint32(s.While.Cond), Body: uint32(s.While.Body)}
	case ast.StmtFor:
		rec.For = &forRec{
			Init: uint32(s.For.Init),
			Cond: uint32(s.For.Cond),
			Inc:  uint32(s.For.Inc),
			Body: uint32(s.For.Body),
		}
	case ast.StmtSwitch:
		rec.Switch = &switchRec{Cond: uint32(s.Switch.Cond), Body: uint32(s.Switch.Body)}
	case ast.StmtCase:
		rec.Case = &caseRec{
			Lo:    uint32(s.Case.Lo),
			Hi:    uint32(s.Case.Hi),
			Body:  uint32(s.Case.Body),
			LoVal: s.Case.LoVal,
			HiVal: s.Case.HiVal,
		}
	case ast.StmtDefault:
		rec.Default = &defaultRec{Body: uint32(s.Default.Body)}
	case ast.StmtLabel:
		rec.Label = &labelRec{Name: e.identRef(s.Label.Name), Body: uint32(s.Label.Body)}
	case ast.StmtGoto:
		rec.Goto = &gotoRec{Name: e.identRef(s.Goto.Name)}
	case ast.StmtReturn:
		rec.Return = &returnRec{Value: uint32(s.Return.Value)}
	case ast.StmtDecl:
		rec.Decl = &declStmtRec{Decls: declIDs(s.Decl.Decls)}
	case ast.StmtExpr:
		rec.Expr = &exprStmtRec{E: uint32(s.Expr.E)}
	}
	return rec
}

func (e *encoder) exprRecs() []exprRec {
	n := e.u.Exprs.Len()
	out := make([]exprRec, 0, n)
	for i := uint32(1); i <= n; i++ {
		out = append(out, e.exprRec(e.u.Exprs.Get(i)))
	}
	return out
}

func (e *encoder) exprRec(x *ast.Expr) exprRec {
	rec := exprRec{
		Kind:    uint8(x.Kind),
		Type:    qual(x.Type),
		VC:      uint8(x.VC),
		Span:    span(x.Span),
		Invalid: x.Invalid,
	}
	switch x.Kind {
	case ast.ExprIntLit, ast.ExprCharLit:
		rec.Int = &intLitRec{Value: x.Int.Value, Negative: x.Int.Negative}
	case ast.ExprFloatLit:
		rec.Float = &floatLitRec{Text: x.Float.Text, Value: x.Float.Value}
	case ast.ExprStringLit:
		rec.Str = &strLitRec{Value: uint32(x.Str.Value), Wide: x.Str.Wide}
	case ast.ExprDeclRef:
		rec.Ref = &declRefRec{Decl: uint32(x.Ref.Decl)}
	case ast.ExprParen:
		rec.Paren = &parenRec{Operand: uint32(x.Paren.Operand)}
	case ast.ExprUnary:
		rec.Unary = &unaryRec{Op: uint8(x.Unary.Op), Operand: uint32(x.Unary.Operand)}
	case ast.ExprBinary:
		rec.Binary = &binaryRec{
			Op:    uint8(x.Binary.Op),
			Left:  uint32(x.Binary.Left),
			Right: uint32(x.Binary.Right),
		}
	case ast.ExprConditional:
		rec.Cond = &condRec{
			Cond: uint32(x.Cond.Cond),
			Then: uint32(x.Cond.Then),
			Else: uint32(x.Cond.Else),
		}
	case ast.ExprCall:
		rec.Call = &callRec{
			Callee:  uint32(x.Call.Callee),
			Args:    exprIDs(x.Call.Args),
			Builtin: uint16(x.Call.Builtin),
		}
	case ast.ExprMember:
		rec.Member = &memberRec{
			Base:  uint32(x.Member.Base),
			Field: uint32(x.Member.Field),
			Arrow: x.Member.Arrow,
		}
	case ast.ExprIndex:
		rec.Index = &indexRec{Base: uint32(x.Index.Base), Index: uint32(x.Index.Index)}
	case ast.ExprCast, ast.ExprImplicitCast:
		rec.Cast = &castRec{Cast: uint8(x.Cast.Cast), Operand: uint32(x.Cast.Operand)}
	case ast.ExprSizeOf:
		rec.Size = &sizeofRec{
			OfType:    qual(x.Size.OfType),
			Operand:   uint32(x.Size.Operand),
			IsAlignOf: x.Size.IsAlignOf,
		}
	case ast.ExprInitList:
		rec.Init = &initListRec{Elems: exprIDs(x.Init.Elems)}
	}
	return rec
}

func (e *encoder) ctxRecs() []ctxRec {
	n := e.u.Ctxs.Len()
	out := make([]ctxRec, 0, n)
	for i := uint32(1); i <= n; i++ {
		ctx := e.u.Ctxs.Get(i)
		rec := ctxRec{
			Kind:   uint8(ctx.Kind),
			Parent: uint32(ctx.Parent),
			Owner:  uint32(ctx.Owner),
			Span:   span(ctx.Span),
			Decls:  declIDs(ctx.Decls),
		}
		entries := e.u.LookupEntries(ast.ContextID(i))
		sort.Slice(entries, func(a, b int) bool {
			return lookupLess(entries[a].Name, entries[b].Name)
		})
		for _, ent := range entries {
			rec.Lookup = append(rec.Lookup, lookupRec{
				Name:  e.name(ent.Name),
				Decls: declIDs(ent.Decls),
			})
		}
		out = append(out, rec)
	}
	return out
}

// lookupLess orders lookup entries so the stream is deterministic.
func lookupLess(a, b names.DeclName) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if at, bt := a.ID.String(), b.ID.String(); at != bt {
		return at < bt
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Op < b.Op
}

func (e *encoder) typeRecs() []typeRec {
	in := e.u.Types
	n := in.Len()
	out := make([]typeRec, 0, n-1)
	for i := 1; i < n; i++ {
		id := types.TypeID(i)
		tt := in.MustLookup(id)
		rec := typeRec{
			Kind:    uint8(tt.Kind),
			Builtin: uint8(tt.Builtin),
			Elem:    qual(tt.Elem),
			Count:   tt.Count,
			Addr:    tt.Addr,
			Class:   uint32(tt.Class),
			Decl:    uint32(tt.Decl),
			Size:    uint32(tt.Size),
		}
		switch tt.Kind {
		case types.KindFunction:
			info, _ := in.FnInfo(id)
			fr := &fnTypeRec{Variadic: info.Variadic, Proto: info.Proto, Result: qual(info.Result)}
			for _, p := range info.Params {
				fr.Params = append(fr.Params, qual(p))
			}
			rec.Fn = fr
		case types.KindRecord:
			info, _ := in.RecordInfo(id)
			rr := &recordTypeRec{
				Tag:      uint8(info.Tag),
				Name:     uint32(info.Name),
				Span:     span(info.Span),
				Pack:     info.Pack,
				Complete: info.Complete,
			}
			for _, f := range info.Fields {
				rr.Fields = append(rr.Fields, fieldTypeRec{
					Name:     uint32(f.Name),
					Type:     qual(f.Type),
					BitWidth: f.BitWidth,
					Span:     span(f.Span),
				})
			}
			rec.Record = rr
		case types.KindEnum:
			info, _ := in.EnumInfo(id)
			rec.Enum = &enumTypeRec{
				Name:       uint32(info.Name),
				Span:       span(info.Span),
				Underlying: uint32(info.Underlying),
				Complete:   info.Complete,
			}
		case types.KindTypedef:
			info, _ := in.TypedefInfo(id)
			rec.Typedef = &typedefTypeRec{Name: uint32(info.Name), Underlying: qual(info.Underlying)}
		case types.KindTypeOfExpr:
			info, _ := in.TypeOfInfo(id)
			rec.TypeOf = &typeofTypeRec{Underlying: qual(info.Underlying)}
		}
		out = append(out, rec)
	}
	return out
}
