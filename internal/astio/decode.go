package astio

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"cinder/internal/ast"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/target"
	"cinder/internal/types"
)

// Read reconstructs a unit from a stream produced by Write. The unit is built
// against fresh tables; desc tags builtin identifiers the same way the
// analyzer would have.
//
// Node ids are preserved verbatim because the arenas are replayed in
// allocation order. Strings, identifiers and types are re-interned; the first
// pass registers every interner slot (nominal types as placeholders) and the
// second pass completes the refinable payloads once all slots are mapped.
func Read(r io.Reader, desc *target.Descriptor) (*ast.Unit, error) {
	var p unitPayload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("astio: decode: %w", err)
	}
	if p.Magic != streamMagic {
		return nil, fmt.Errorf("astio: not an AST stream")
	}
	if p.Schema != schemaVersion {
		return nil, fmt.Errorf("astio: schema %d, want %d", p.Schema, schemaVersion)
	}

	typesIn := types.NewInterner()
	strs := source.NewInterner()
	u := ast.NewUnit(typesIn, names.NewTable(desc, typesIn), strs)

	d := &decoder{p: &p, u: u}
	d.internStrings()
	d.internTypes()
	if d.err != nil {
		return nil, d.err
	}
	d.buildContexts()
	d.buildDecls()
	d.buildStmts()
	d.buildExprs()
	d.linkContexts()
	if d.err != nil {
		return nil, d.err
	}
	u.Root = ast.ContextID(p.Root)
	return u, nil
}

type decoder struct {
	p *unitPayload
	u *ast.Unit

	strMap []source.StringID
	tmap   []types.TypeID
	err    error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("astio: "+format, args...)
	}
}

func (d *decoder) internStrings() {
	d.strMap = make([]source.StringID, len(d.p.Strings))
	for i, s := range d.p.Strings {
		d.strMap[i] = d.u.Strings.Intern(s)
	}
}

func (d *decoder) sid(idx uint32) source.StringID {
	if int(idx) >= len(d.strMap) {
		d.fail("string id %d out of range", idx)
		return source.NoStringID
	}
	return d.strMap[idx]
}

// ident resolves a 1-based index into the ident table, nil for zero.
func (d *decoder) ident(idx uint32) *names.Identifier {
	if idx == 0 {
		return nil
	}
	if int(idx) > len(d.p.Idents) {
		d.fail("identifier %d out of range", idx)
		return nil
	}
	return d.u.Names.Get(d.p.Idents[idx-1])
}

func (d *decoder) typeID(old uint32) types.TypeID {
	if old == 0 {
		return types.NoTypeID
	}
	if int(old) >= len(d.tmap) {
		d.fail("type id %d out of range", old)
		return types.NoTypeID
	}
	return d.tmap[old]
}

func (d *decoder) qt(r qualRec) types.QualType {
	return types.QualType{Type: d.typeID(r.Type), Quals: types.Qual(r.Quals)}
}

func (d *decoder) name(r nameRec) names.DeclName {
	return names.DeclName{
		Kind: names.NameKind(r.Kind),
		ID:   d.ident(r.Ident),
		Type: d.typeID(r.Type),
		Op:   names.OperatorKind(r.Op),
	}
}

func spanOf(r spanRec) source.Span {
	return source.Span{File: source.FileID(r.File), Start: r.Start, End: r.End}
}

// internTypes replays the writer's interner slot by slot. Every slot only
// references earlier slots at registration time (refinements may point
// forward, which is why completion waits for the second pass), so one forward
// sweep maps everything.
func (d *decoder) internTypes() {
	in := d.u.Types
	d.tmap = make([]types.TypeID, len(d.p.Types)+1)
	for i, rec := range d.p.Types {
		old := uint32(i + 1)
		var id types.TypeID
		switch types.Kind(rec.Kind) {
		case types.KindInvalid:
			id = in.Builtins().Invalid
		case types.KindBuiltin:
			id = in.Intern(types.Type{Kind: types.KindBuiltin, Builtin: types.BuiltinKind(rec.Builtin)})
		case types.KindComplex:
			id = in.Complex(d.qt(rec.Elem).Type)
		case types.KindPointer:
			id = in.Pointer(d.qt(rec.Elem), rec.Addr)
		case types.KindReference:
			id = in.Reference(d.qt(rec.Elem))
		case types.KindMemberPointer:
			id = in.MemberPointer(d.typeID(rec.Class), d.qt(rec.Elem))
		case types.KindConstantArray:
			id = in.ConstantArray(d.qt(rec.Elem), rec.Count)
		case types.KindIncompleteArray:
			id = in.IncompleteArray(d.qt(rec.Elem))
		case types.KindVariableArray:
			id = in.VariableArray(d.qt(rec.Elem), types.ExprRef(rec.Size))
		case types.KindVector:
			id = in.Vector(d.qt(rec.Elem).Type, rec.Count)
		case types.KindExtVector:
			id = in.ExtVector(d.qt(rec.Elem).Type, rec.Count)
		case types.KindFunction:
			if rec.Fn == nil {
				d.fail("function type %d without payload", old)
				continue
			}
			if rec.Fn.Proto {
				params := make([]types.QualType, len(rec.Fn.Params))
				for j, p := range rec.Fn.Params {
					params[j] = d.qt(p)
				}
				id = in.Function(d.qt(rec.Fn.Result), params, rec.Fn.Variadic)
			} else {
				id = in.FunctionNoProto(d.qt(rec.Fn.Result))
			}
		case types.KindRecord:
			if rec.Record == nil {
				d.fail("record type %d without payload", old)
				continue
			}
			id = in.RegisterRecord(types.DeclRef(rec.Decl), types.RecordTag(rec.Record.Tag),
				d.sid(rec.Record.Name), spanOf(rec.Record.Span))
		case types.KindEnum:
			if rec.Enum == nil {
				d.fail("enum type %d without payload", old)
				continue
			}
			id = in.RegisterEnum(types.DeclRef(rec.Decl), d.sid(rec.Enum.Name), spanOf(rec.Enum.Span))
		case types.KindTypedef:
			if rec.Typedef == nil {
				d.fail("typedef type %d without payload", old)
				continue
			}
			id = in.RegisterTypedef(types.DeclRef(rec.Decl), d.sid(rec.Typedef.Name),
				d.qt(rec.Typedef.Underlying))
		case types.KindTypeOfExpr:
			id = in.TypeOfExpr(types.ExprRef(rec.Size))
		case types.KindTypeOfType:
			id = in.TypeOfType(d.qt(rec.Elem))
		default:
			d.fail("type %d has unknown kind %d", old, rec.Kind)
			continue
		}
		d.tmap[old] = id
	}

	// Second pass: refinements may reference slots registered after their
	// placeholder.
	for i, rec := range d.p.Types {
		id := d.tmap[i+1]
		switch {
		case rec.Record != nil && rec.Record.Complete:
			fields := make([]types.Field, len(rec.Record.Fields))
			for j, f := range rec.Record.Fields {
				fields[j] = types.Field{
					Name:     d.sid(f.Name),
					Type:     d.qt(f.Type),
					BitWidth: f.BitWidth,
					Span:     spanOf(f.Span),
				}
			}
			in.CompleteRecord(id, fields, rec.Record.Pack)
		case rec.Enum != nil && rec.Enum.Complete:
			in.CompleteEnum(id, d.typeID(rec.Enum.Underlying))
		case rec.TypeOf != nil && rec.TypeOf.Underlying.Type != 0:
			in.SetTypeOfUnderlying(id, d.qt(rec.TypeOf.Underlying))
		}
	}
}

// buildContexts replays context allocation. The reader's NewUnit already made
// the root, so its fields are overwritten in place and the rest are allocated
// in id order; parents always precede children.
func (d *decoder) buildContexts() {
	for i, rec := range d.p.Ctxs {
		id := ast.ContextID(i + 1)
		if i > 0 {
			id = d.u.NewContext(ast.ContextKind(rec.Kind), ast.ContextID(rec.Parent),
				ast.DeclID(rec.Owner), spanOf(rec.Span))
		}
		ctx := d.u.Ctx(id)
		ctx.Kind = ast.ContextKind(rec.Kind)
		ctx.Parent = ast.ContextID(rec.Parent)
		ctx.Owner = ast.DeclID(rec.Owner)
		ctx.Span = spanOf(rec.Span)
	}
}

func toDeclIDs(ids []uint32) []ast.DeclID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ast.DeclID, len(ids))
	for i, id := range ids {
		out[i] = ast.DeclID(id)
	}
	return out
}

func toStmtIDs(ids []uint32) []ast.StmtID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ast.StmtID, len(ids))
	for i, id := range ids {
		out[i] = ast.StmtID(id)
	}
	return out
}

func toExprIDs(ids []uint32) []ast.ExprID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ast.ExprID, len(ids))
	for i, id := range ids {
		out[i] = ast.ExprID(id)
	}
	return out
}

func (d *decoder) buildDecls() {
	for i := range d.p.Decls {
		rec := &d.p.Decls[i]
		decl := ast.Decl{
			Kind:    ast.DeclKind(rec.Kind),
			Name:    d.name(rec.Name),
			Type:    d.qt(rec.Type),
			Span:    spanOf(rec.Span),
			SemaCtx: ast.ContextID(rec.SemaCtx),
			LexCtx:  ast.ContextID(rec.LexCtx),
			Storage: ast.StorageClass(rec.Storage),
			Invalid: rec.Invalid,
			Prev:    ast.DeclID(rec.Prev),
		}
		switch {
		case rec.Var != nil:
			decl.Var = ast.VarDecl{Init: ast.ExprID(rec.Var.Init), Tentative: rec.Var.Tentative}
		case rec.Param != nil:
			decl.Param = ast.ParamDecl{Default: ast.ExprID(rec.Param.Default), Index: rec.Param.Index}
		case rec.Fn != nil:
			decl.Fn = ast.FnDecl{
				Params:  toDeclIDs(rec.Fn.Params),
				Body:    ast.StmtID(rec.Fn.Body),
				Defined: rec.Fn.Defined,
				Inline:  rec.Fn.Inline,
			}
		case rec.Field != nil:
			decl.Field = ast.FieldDecl{
				WidthExpr: ast.ExprID(rec.Field.WidthExpr),
				Width:     rec.Field.Width,
				Index:     rec.Field.Index,
			}
		case rec.Record != nil:
			r := ast.RecordDecl{
				Tag:        types.RecordTag(rec.Record.Tag),
				Fields:     toDeclIDs(rec.Record.Fields),
				Ctx:        ast.ContextID(rec.Record.Ctx),
				Definition: rec.Record.Definition,
			}
			for _, b := range rec.Record.Bases {
				r.Bases = append(r.Bases, ast.BaseSpecifier{Class: ast.DeclID(b.Class), Virtual: b.Virtual})
			}
			decl.Record = r
		case rec.NS != nil:
			decl.NS = ast.NamespaceDecl{Ctx: ast.ContextID(rec.NS.Ctx)}
		case rec.Enum != nil:
			decl.Enum = ast.EnumDecl{
				Constants:  toDeclIDs(rec.Enum.Constants),
				Underlying: d.typeID(rec.Enum.Underlying),
				Definition: rec.Enum.Definition,
			}
		case rec.EnumConst != nil:
			decl.EnumConst = ast.EnumConstDecl{Init: ast.ExprID(rec.EnumConst.Init), Value: rec.EnumConst.Value}
		case rec.Template != nil:
			decl.Template = ast.TemplateDecl{
				Params:  toDeclIDs(rec.Template.Params),
				Pattern: ast.DeclID(rec.Template.Pattern),
			}
		case rec.TParam != nil:
			decl.TParam = ast.TemplateParamDecl{
				Depth:       rec.TParam.Depth,
				Index:       rec.TParam.Index,
				DefaultType: d.qt(rec.TParam.DefaultType),
				DefaultExpr: ast.ExprID(rec.TParam.DefaultExpr),
				DefaultRef:  ast.DeclID(rec.TParam.DefaultRef),
				InnerParams: toDeclIDs(rec.TParam.InnerParams),
			}
		case rec.Overload != nil:
			decl.Overload = ast.OverloadSetDecl{Members: toDeclIDs(rec.Overload.Members)}
		case rec.Using != nil:
			decl.Using = ast.UsingDirectiveDecl{Nominated: ast.ContextID(rec.Using.Nominated)}
		case rec.LinkSpec != nil:
			decl.LinkSpec = ast.LinkageSpecDecl{
				Lang: ast.Linkage(rec.LinkSpec.Lang),
				Ctx:  ast.ContextID(rec.LinkSpec.Ctx),
			}
		}
		d.u.NewDecl(decl)
	}
}

func (d *decoder) buildStmts() {
	for i := range d.p.Stmts {
		rec := &d.p.Stmts[i]
		stmt := ast.Stmt{Kind: ast.StmtKind(rec.Kind), Span: spanOf(rec.Span), Invalid: rec.Invalid}
		switch {
		case rec.Compound != nil:
			stmt.Compound = ast.CompoundStmt{Body: toStmtIDs(rec.Compound.Body)}
		case rec.If != nil:
			stmt.If = ast.IfStmt{
				Cond: ast.ExprID(rec.If.Cond),
				Then: ast.StmtID(rec.If.Then),
				Else: ast.StmtID(rec.If.Else),
			}
		case rec.While != nil:
			stmt.While = ast.WhileStmt{Cond: ast.ExprID(rec.While.Cond), Body: ast.StmtID(rec.While.Body)}
		case rec.For != nil:
			stmt.For = ast.ForStmt{
				Init: ast.StmtID(rec.For.Init),
				Cond: ast.ExprID(rec.For.Cond),
				Inc:  ast.ExprID(rec.For.Inc),
				Body: ast.StmtID(rec.For.Body),
			}
		case rec.Switch != nil:
			stmt.Switch = ast.SwitchStmt{Cond: ast.ExprID(rec.Switch.Cond), Body: ast.StmtID(rec.Switch.Body)}
		case rec.Case != nil:
			stmt.Case = ast.CaseStmt{
				Lo:    ast.ExprID(rec.Case.Lo),
				Hi:    ast.ExprID(rec.Case.Hi),
				Body:  ast.StmtID(rec.Case.Body),
				LoVal: rec.Case.LoVal,
				HiVal: rec.Case.HiVal,
			}
		case rec.Default != nil:
			stmt.Default = ast.DefaultStmt{Body: ast.StmtID(rec.Default.Body)}
		case rec.Label != nil:
			stmt.Label = ast.LabelStmt{Name: d.ident(rec.Label.Name), Body: ast.StmtID(rec.Label.Body)}
		case rec.Goto != nil:
			stmt.Goto = ast.GotoStmt{Name: d.ident(rec.Goto.Name)}
		case rec.Return != nil:
			stmt.Return = ast.ReturnStmt{Value: ast.ExprID(rec.Return.Value)}
		case rec.Decl != nil:
			stmt.Decl = ast.DeclStmt{Decls: toDeclIDs(rec.Decl.Decls)}
		case rec.Expr != nil:
			stmt.Expr = ast.ExprStmt{E: ast.ExprID(rec.Expr.E)}
		}
		d.u.NewStmt(stmt)
	}
}

func (d *decoder) buildExprs() {
	for i := range d.p.Exprs {
		rec := &d.p.Exprs[i]
		x := ast.Expr{
			Kind:    ast.ExprKind(rec.Kind),
			Type:    d.qt(rec.Type),
			VC:      ast.ValueCategory(rec.VC),
			Span:    spanOf(rec.Span),
			Invalid: rec.Invalid,
		}
		switch {
		case rec.Int != nil:
			x.Int = ast.IntLitExpr{Value: rec.Int.Value, Negative: rec.Int.Negative}
		case rec.Float != nil:
			x.Float = ast.FloatLitExpr{Text: rec.Float.Text, Value: rec.Float.Value}
		case rec.Str != nil:
			x.Str = ast.StringLitExpr{Value: d.sid(rec.Str.Value), Wide: rec.Str.Wide}
		case rec.Ref != nil:
			x.Ref = ast.DeclRefExpr{Decl: ast.DeclID(rec.Ref.Decl)}
		case rec.Paren != nil:
			x.Paren = ast.ParenExpr{Operand: ast.ExprID(rec.Paren.Operand)}
		case rec.Unary != nil:
			x.Unary = ast.UnaryExpr{Op: ast.UnaryOp(rec.Unary.Op), Operand: ast.ExprID(rec.Unary.Operand)}
		case rec.Binary != nil:
			x.Binary = ast.BinaryExpr{
				Op:    ast.BinaryOp(rec.Binary.Op),
				Left:  ast.ExprID(rec.Binary.Left),
				Right: ast.ExprID(rec.Binary.Right),
			}
		case rec.Cond != nil:
			x.Cond = ast.ConditionalExpr{
				Cond: ast.ExprID(rec.Cond.Cond),
				Then: ast.ExprID(rec.Cond.Then),
				Else: ast.ExprID(rec.Cond.Else),
			}
		case rec.Call != nil:
			x.Call = ast.CallExpr{
				Callee:  ast.ExprID(rec.Call.Callee),
				Args:    toExprIDs(rec.Call.Args),
				Builtin: target.BuiltinID(rec.Call.Builtin),
			}
		case rec.Member != nil:
			x.Member = ast.MemberExpr{
				Base:  ast.ExprID(rec.Member.Base),
				Field: ast.DeclID(rec.Member.Field),
				Arrow: rec.Member.Arrow,
			}
		case rec.Index != nil:
			x.Index = ast.IndexExpr{Base: ast.ExprID(rec.Index.Base), Index: ast.ExprID(rec.Index.Index)}
		case rec.Cast != nil:
			x.Cast = ast.CastExpr{Cast: ast.CastKind(rec.Cast.Cast), Operand: ast.ExprID(rec.Cast.Operand)}
		case rec.Size != nil:
			x.Size = ast.SizeOfExpr{
				OfType:    d.qt(rec.Size.OfType),
				Operand:   ast.ExprID(rec.Size.Operand),
				IsAlignOf: rec.Size.IsAlignOf,
			}
		case rec.Init != nil:
			x.Init = ast.InitListExpr{Elems: toExprIDs(rec.Init.Elems)}
		}
		d.u.NewExpr(x)
	}
}

// linkContexts rebuilds decl ownership and lookup once the decl arena exists.
// AddToContext reproduces the insertion-order table; the stored snapshots then
// replace the names where redeclaration merges had diverged from it.
func (d *decoder) linkContexts() {
	for i, rec := range d.p.Ctxs {
		id := ast.ContextID(i + 1)
		for _, declID := range rec.Decls {
			d.u.AddToContext(id, ast.DeclID(declID))
		}
		for _, ent := range rec.Lookup {
			d.u.SetLookup(id, d.name(ent.Name), toDeclIDs(ent.Decls))
		}
	}
}
