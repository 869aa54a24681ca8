package astio

import (
	"fmt"
	"sort"

	"cinder/internal/ast"
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// Equal reports whether two units are structurally equal: same node arenas
// under id-for-id comparison, same context tree, and types that re-intern to
// the same structure. Identifiers compare by spelling and strings by value,
// so the units may own different tables.
func Equal(a, b *ast.Unit) bool {
	return Diff(a, b) == ""
}

// Diff returns a description of the first structural difference, empty when
// the units match. Tests use it for failure messages.
func Diff(a, b *ast.Unit) string {
	c := &comparer{a: a, b: b, seen: make(map[[2]types.TypeID]bool)}
	return c.diff()
}

type comparer struct {
	a, b *ast.Unit
	seen map[[2]types.TypeID]bool
}

func (c *comparer) diff() string {
	if c.a.Decls.Len() != c.b.Decls.Len() {
		return fmt.Sprintf("decl count %d != %d", c.a.Decls.Len(), c.b.Decls.Len())
	}
	if c.a.Stmts.Len() != c.b.Stmts.Len() {
		return fmt.Sprintf("stmt count %d != %d", c.a.Stmts.Len(), c.b.Stmts.Len())
	}
	if c.a.Exprs.Len() != c.b.Exprs.Len() {
		return fmt.Sprintf("expr count %d != %d", c.a.Exprs.Len(), c.b.Exprs.Len())
	}
	if c.a.Ctxs.Len() != c.b.Ctxs.Len() {
		return fmt.Sprintf("context count %d != %d", c.a.Ctxs.Len(), c.b.Ctxs.Len())
	}
	if c.a.Root != c.b.Root {
		return fmt.Sprintf("root context %d != %d", c.a.Root, c.b.Root)
	}
	for i := uint32(1); i <= c.a.Decls.Len(); i++ {
		if !c.declEqual(c.a.Decls.Get(i), c.b.Decls.Get(i)) {
			return fmt.Sprintf("decl %d differs", i)
		}
	}
	for i := uint32(1); i <= c.a.Stmts.Len(); i++ {
		if !c.stmtEqual(c.a.Stmts.Get(i), c.b.Stmts.Get(i)) {
			return fmt.Sprintf("stmt %d differs", i)
		}
	}
	for i := uint32(1); i <= c.a.Exprs.Len(); i++ {
		if !c.exprEqual(c.a.Exprs.Get(i), c.b.Exprs.Get(i)) {
			return fmt.Sprintf("expr %d differs", i)
		}
	}
	for i := uint32(1); i <= c.a.Ctxs.Len(); i++ {
		if msg := c.ctxDiff(ast.ContextID(i)); msg != "" {
			return msg
		}
	}
	return ""
}

func identEqual(a, b *names.Identifier) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Text == b.Text
}

func (c *comparer) nameEqual(a, b names.DeclName) bool {
	return a.Kind == b.Kind && identEqual(a.ID, b.ID) &&
		c.typeEqual(a.Type, b.Type) && a.Op == b.Op
}

func (c *comparer) strEqual(a, b source.StringID) bool {
	as, aok := c.a.Strings.Lookup(a)
	bs, bok := c.b.Strings.Lookup(b)
	return aok == bok && as == bs
}

func (c *comparer) qualEqual(a, b types.QualType) bool {
	return a.Quals == b.Quals && c.typeEqual(a.Type, b.Type)
}

// typeEqual compares across the two interners. A pair under comparison is
// assumed equal so recursive records terminate.
func (c *comparer) typeEqual(a, b types.TypeID) bool {
	if a == types.NoTypeID || b == types.NoTypeID {
		return a == b
	}
	key := [2]types.TypeID{a, b}
	if c.seen[key] {
		return true
	}
	c.seen[key] = true
	ta, aok := c.a.Types.Lookup(a)
	tb, bok := c.b.Types.Lookup(b)
	ok := aok && bok && ta.Kind == tb.Kind && c.typePayloadEqual(a, b, ta, tb)
	if !ok {
		delete(c.seen, key)
	}
	return ok
}

func (c *comparer) typePayloadEqual(a, b types.TypeID, ta, tb types.Type) bool {
	switch ta.Kind {
	case types.KindInvalid:
		return true
	case types.KindBuiltin:
		return ta.Builtin == tb.Builtin
	case types.KindPointer:
		return ta.Addr == tb.Addr && c.qualEqual(ta.Elem, tb.Elem)
	case types.KindReference, types.KindComplex, types.KindIncompleteArray, types.KindTypeOfType:
		return c.qualEqual(ta.Elem, tb.Elem)
	case types.KindMemberPointer:
		return c.typeEqual(ta.Class, tb.Class) && c.qualEqual(ta.Elem, tb.Elem)
	case types.KindConstantArray, types.KindVector, types.KindExtVector:
		return ta.Count == tb.Count && c.qualEqual(ta.Elem, tb.Elem)
	case types.KindVariableArray:
		return ta.Size == tb.Size && c.qualEqual(ta.Elem, tb.Elem)
	case types.KindFunction:
		fa, _ := c.a.Types.FnInfo(a)
		fb, _ := c.b.Types.FnInfo(b)
		if fa == nil || fb == nil {
			return fa == fb
		}
		if fa.Proto != fb.Proto || fa.Variadic != fb.Variadic || len(fa.Params) != len(fb.Params) {
			return false
		}
		if !c.qualEqual(fa.Result, fb.Result) {
			return false
		}
		for i := range fa.Params {
			if !c.qualEqual(fa.Params[i], fb.Params[i]) {
				return false
			}
		}
		return true
	case types.KindRecord:
		ra, _ := c.a.Types.RecordInfo(a)
		rb, _ := c.b.Types.RecordInfo(b)
		if ra == nil || rb == nil {
			return ra == rb
		}
		if ra.Tag != rb.Tag || ra.Decl != rb.Decl || ra.Complete != rb.Complete ||
			ra.Pack != rb.Pack || ra.Span != rb.Span || !c.strEqual(ra.Name, rb.Name) {
			return false
		}
		if len(ra.Fields) != len(rb.Fields) {
			return false
		}
		for i := range ra.Fields {
			fa, fb := ra.Fields[i], rb.Fields[i]
			if fa.BitWidth != fb.BitWidth || fa.Span != fb.Span ||
				!c.strEqual(fa.Name, fb.Name) || !c.qualEqual(fa.Type, fb.Type) {
				return false
			}
		}
		return true
	case types.KindEnum:
		ea, _ := c.a.Types.EnumInfo(a)
		eb, _ := c.b.Types.EnumInfo(b)
		if ea == nil || eb == nil {
			return ea == eb
		}
		return ea.Decl == eb.Decl && ea.Complete == eb.Complete && ea.Span == eb.Span &&
			c.strEqual(ea.Name, eb.Name) && c.typeEqual(ea.Underlying, eb.Underlying)
	case types.KindTypedef:
		da, _ := c.a.Types.TypedefInfo(a)
		db, _ := c.b.Types.TypedefInfo(b)
		if da == nil || db == nil {
			return da == db
		}
		return da.Decl == db.Decl && c.strEqual(da.Name, db.Name) &&
			c.qualEqual(da.Underlying, db.Underlying)
	case types.KindTypeOfExpr:
		oa, _ := c.a.Types.TypeOfInfo(a)
		ob, _ := c.b.Types.TypeOfInfo(b)
		if oa == nil || ob == nil {
			return oa == ob
		}
		return oa.Expr == ob.Expr && c.qualEqual(oa.Underlying, ob.Underlying)
	default:
		return false
	}
}

func (c *comparer) declEqual(a, b *ast.Decl) bool {
	if a.Kind != b.Kind || a.Span != b.Span || a.SemaCtx != b.SemaCtx ||
		a.LexCtx != b.LexCtx || a.Storage != b.Storage || a.Invalid != b.Invalid ||
		a.Prev != b.Prev {
		return false
	}
	if !c.nameEqual(a.Name, b.Name) || !c.qualEqual(a.Type, b.Type) {
		return false
	}
	switch a.Kind {
	case ast.DeclVariable:
		return a.Var == b.Var
	case ast.DeclParameter:
		return a.Param == b.Param
	case ast.DeclFunction:
		return a.Fn.Body == b.Fn.Body && a.Fn.Defined == b.Fn.Defined &&
			a.Fn.Inline == b.Fn.Inline && declListEqual(a.Fn.Params, b.Fn.Params)
	case ast.DeclField:
		return a.Field == b.Field
	case ast.DeclRecord:
		if a.Record.Tag != b.Record.Tag || a.Record.Ctx != b.Record.Ctx ||
			a.Record.Definition != b.Record.Definition ||
			!declListEqual(a.Record.Fields, b.Record.Fields) ||
			len(a.Record.Bases) != len(b.Record.Bases) {
			return false
		}
		for i := range a.Record.Bases {
			if a.Record.Bases[i] != b.Record.Bases[i] {
				return false
			}
		}
		return true
	case ast.DeclNamespace:
		return a.NS == b.NS
	case ast.DeclEnum:
		return a.Enum.Definition == b.Enum.Definition &&
			c.typeEqual(a.Enum.Underlying, b.Enum.Underlying) &&
			declListEqual(a.Enum.Constants, b.Enum.Constants)
	case ast.DeclEnumConstant:
		return a.EnumConst == b.EnumConst
	case ast.DeclClassTemplate, ast.DeclFunctionTemplate:
		return a.Template.Pattern == b.Template.Pattern &&
			declListEqual(a.Template.Params, b.Template.Params)
	case ast.DeclTemplateTypeParam, ast.DeclTemplateNonTypeParam, ast.DeclTemplateTemplateParam:
		return a.TParam.Depth == b.TParam.Depth && a.TParam.Index == b.TParam.Index &&
			c.qualEqual(a.TParam.DefaultType, b.TParam.DefaultType) &&
			a.TParam.DefaultExpr == b.TParam.DefaultExpr &&
			a.TParam.DefaultRef == b.TParam.DefaultRef &&
			declListEqual(a.TParam.InnerParams, b.TParam.InnerParams)
	case ast.DeclOverloadSet:
		return declListEqual(a.Overload.Members, b.Overload.Members)
	case ast.DeclUsingDirective:
		return a.Using == b.Using
	case ast.DeclLinkageSpec:
		return a.LinkSpec == b.LinkSpec
	default:
		return true
	}
}

func declListEqual(a, b []ast.DeclID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stmtListEqual(a, b []ast.StmtID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func exprListEqual(a, b []ast.ExprID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *comparer) stmtEqual(a, b *ast.Stmt) bool {
	if a.Kind != b.Kind || a.Span != b.Span || a.Invalid != b.Invalid {
		return false
	}
	switch a.Kind {
	case ast.StmtCompound:
		return stmtListEqual(a.Compound.Body, b.Compound.Body)
	case ast.StmtIf:
		return a.If == b.If
	case ast.StmtWhile, ast.StmtDo:
		return a.While == b.While
	case ast.StmtFor:
		return a.For == b.For
	case ast.StmtSwitch:
		return a.Switch == b.Switch
	case ast.StmtCase:
		return a.Case == b.Case
	case ast.StmtDefault:
		return a.Default == b.Default
	case ast.StmtLabel:
		return identEqual(a.Label.Name, b.Label.Name) && a.Label.Body == b.Label.Body
	case ast.StmtGoto:
		return identEqual(a.Goto.Name, b.Goto.Name)
	case ast.StmtReturn:
		return a.Return == b.Return
	case ast.StmtDecl:
		return declListEqual(a.Decl.Decls, b.Decl.Decls)
	case ast.StmtExpr:
		return a.Expr == b.Expr
	default:
		return true
	}
}

func (c *comparer) exprEqual(a, b *ast.Expr) bool {
	if a.Kind != b.Kind || a.VC != b.VC || a.Span != b.Span || a.Invalid != b.Invalid {
		return false
	}
	if !c.qualEqual(a.Type, b.Type) {
		return false
	}
	switch a.Kind {
	case ast.ExprIntLit, ast.ExprCharLit:
		return a.Int == b.Int
	case ast.ExprFloatLit:
		return a.Float == b.Float
	case ast.ExprStringLit:
		return a.Str.Wide == b.Str.Wide && c.strEqual(a.Str.Value, b.Str.Value)
	case ast.ExprDeclRef:
		return a.Ref == b.Ref
	case ast.ExprParen:
		return a.Paren == b.Paren
	case ast.ExprUnary:
		return a.Unary == b.Unary
	case ast.ExprBinary:
		return a.Binary == b.Binary
	case ast.ExprConditional:
		return a.Cond == b.Cond
	case ast.ExprCall:
		return a.Call.Callee == b.Call.Callee && a.Call.Builtin == b.Call.Builtin &&
			exprListEqual(a.Call.Args, b.Call.Args)
	case ast.ExprMember:
		return a.Member == b.Member
	case ast.ExprIndex:
		return a.Index == b.Index
	case ast.ExprCast, ast.ExprImplicitCast:
		return a.Cast == b.Cast
	case ast.ExprSizeOf:
		return a.Size.Operand == b.Size.Operand && a.Size.IsAlignOf == b.Size.IsAlignOf &&
			c.qualEqual(a.Size.OfType, b.Size.OfType)
	case ast.ExprInitList:
		return exprListEqual(a.Init.Elems, b.Init.Elems)
	default:
		return true
	}
}

func (c *comparer) ctxDiff(id ast.ContextID) string {
	ca, cb := c.a.Ctx(id), c.b.Ctx(id)
	if ca.Kind != cb.Kind || ca.Parent != cb.Parent || ca.Owner != cb.Owner || ca.Span != cb.Span {
		return fmt.Sprintf("context %d differs", id)
	}
	if !declListEqual(ca.Decls, cb.Decls) {
		return fmt.Sprintf("context %d decl list differs", id)
	}
	ea := sortedEntries(c.a, id)
	eb := sortedEntries(c.b, id)
	if len(ea) != len(eb) {
		return fmt.Sprintf("context %d lookup size %d != %d", id, len(ea), len(eb))
	}
	for i := range ea {
		if !c.nameEqual(ea[i].Name, eb[i].Name) || !declListEqual(ea[i].Decls, eb[i].Decls) {
			return fmt.Sprintf("context %d lookup entry %q differs", id, ea[i].Name.String())
		}
	}
	return ""
}

// sortedEntries snapshots a context's lookup table in the stream order, so
// both sides compare entry by entry.
func sortedEntries(u *ast.Unit, id ast.ContextID) []ast.LookupEntry {
	entries := u.LookupEntries(id)
	sort.Slice(entries, func(a, b int) bool {
		return lookupLess(entries[a].Name, entries[b].Name)
	})
	return entries
}
