package diagfmt

import (
	"fmt"
	"io"

	"cinder/internal/ast"
	"cinder/internal/types"
)

// DumpAST writes the declaration tree of a unit in an indented textual form:
// declarations with their types, function bodies as statement trees,
// expressions with their computed types.
func DumpAST(w io.Writer, u *ast.Unit) error {
	p := &astPrinter{
		w:  w,
		u:  u,
		pr: &types.Printer{Types: u.Types, Strings: u.Strings},
	}
	p.printf("translation-unit\n")
	for _, id := range u.Ctx(u.Root).Decls {
		p.decl(id, 1)
	}
	return p.err
}

type astPrinter struct {
	w   io.Writer
	u   *ast.Unit
	pr  *types.Printer
	err error
}

func (p *astPrinter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *astPrinter) indent(depth int) {
	for i := 0; i < depth; i++ {
		p.printf("  ")
	}
}

func (p *astPrinter) decl(id ast.DeclID, depth int) {
	d := p.u.Decl(id)
	if d == nil {
		return
	}
	p.indent(depth)
	p.printf("%s %s", d.Kind, d.Name.String())
	if !d.Type.IsNull() {
		p.printf(" '%s'", p.pr.Sprint(d.Type))
	}
	if d.Storage != ast.StorageNone {
		p.printf(" %s", d.Storage)
	}
	if d.Invalid {
		p.printf(" invalid")
	}
	switch d.Kind {
	case ast.DeclVariable:
		if d.Var.Tentative {
			p.printf(" tentative")
		}
		p.printf("\n")
		if d.Var.Init.IsValid() {
			p.expr(d.Var.Init, depth+1)
		}
	case ast.DeclFunction:
		p.printf("\n")
		for _, param := range d.Fn.Params {
			p.decl(param, depth+1)
		}
		if d.Fn.Body.IsValid() {
			p.stmt(d.Fn.Body, depth+1)
		}
	case ast.DeclRecord:
		p.printf("\n")
		for _, f := range d.Record.Fields {
			p.decl(f, depth+1)
		}
	case ast.DeclEnum:
		p.printf("\n")
		for _, c := range d.Enum.Constants {
			p.decl(c, depth+1)
		}
	case ast.DeclEnumConstant:
		p.printf(" = %d\n", d.EnumConst.Value)
	case ast.DeclField:
		if d.Field.Width >= 0 {
			p.printf(" : %d", d.Field.Width)
		}
		p.printf("\n")
	default:
		p.printf("\n")
	}
}

func (p *astPrinter) stmt(id ast.StmtID, depth int) {
	s := p.u.Stmt(id)
	if s == nil {
		return
	}
	p.indent(depth)
	switch s.Kind {
	case ast.StmtCompound:
		p.printf("compound\n")
		for _, child := range s.Compound.Body {
			p.stmt(child, depth+1)
		}
	case ast.StmtIf:
		p.printf("if\n")
		p.expr(s.If.Cond, depth+1)
		p.stmt(s.If.Then, depth+1)
		if s.If.Else.IsValid() {
			p.stmt(s.If.Else, depth+1)
		}
	case ast.StmtWhile, ast.StmtDo:
		p.printf("%s\n", stmtKindName(s.Kind))
		p.expr(s.While.Cond, depth+1)
		p.stmt(s.While.Body, depth+1)
	case ast.StmtFor:
		p.printf("for\n")
		if s.For.Init.IsValid() {
			p.stmt(s.For.Init, depth+1)
		}
		if s.For.Cond.IsValid() {
			p.expr(s.For.Cond, depth+1)
		}
		if s.For.Inc.IsValid() {
			p.expr(s.For.Inc, depth+1)
		}
		p.stmt(s.For.Body, depth+1)
	case ast.StmtSwitch:
		p.printf("switch\n")
		p.expr(s.Switch.Cond, depth+1)
		p.stmt(s.Switch.Body, depth+1)
	case ast.StmtCase:
		if s.Case.Hi.IsValid() {
			p.printf("case %d ... %d\n", s.Case.LoVal, s.Case.HiVal)
		} else {
			p.printf("case %d\n", s.Case.LoVal)
		}
		p.stmt(s.Case.Body, depth+1)
	case ast.StmtDefault:
		p.printf("default\n")
		p.stmt(s.Default.Body, depth+1)
	case ast.StmtLabel:
		p.printf("label %s\n", s.Label.Name)
		p.stmt(s.Label.Body, depth+1)
	case ast.StmtGoto:
		p.printf("goto %s\n", s.Goto.Name)
	case ast.StmtReturn:
		p.printf("return\n")
		if s.Return.Value.IsValid() {
			p.expr(s.Return.Value, depth+1)
		}
	case ast.StmtDecl:
		p.printf("decl\n")
		for _, d := range s.Decl.Decls {
			p.decl(d, depth+1)
		}
	case ast.StmtExpr:
		p.printf("expr\n")
		p.expr(s.Expr.E, depth+1)
	case ast.StmtBreak:
		p.printf("break\n")
	case ast.StmtContinue:
		p.printf("continue\n")
	case ast.StmtNull:
		p.printf("null\n")
	default:
		p.printf("invalid\n")
	}
}

func stmtKindName(k ast.StmtKind) string {
	if k == ast.StmtDo {
		return "do"
	}
	return "while"
}

func (p *astPrinter) expr(id ast.ExprID, depth int) {
	x := p.u.Expr(id)
	if x == nil {
		return
	}
	p.indent(depth)
	switch x.Kind {
	case ast.ExprIntLit:
		p.printf("int-lit %d", x.Int.Value)
	case ast.ExprCharLit:
		p.printf("char-lit %d", x.Int.Value)
	case ast.ExprFloatLit:
		p.printf("float-lit %s", x.Float.Text)
	case ast.ExprStringLit:
		p.printf("string-lit %q", p.u.Strings.MustLookup(x.Str.Value))
	case ast.ExprDeclRef:
		p.printf("decl-ref %s", p.u.Decl(x.Ref.Decl).Name.String())
	case ast.ExprParen:
		p.printf("paren")
	case ast.ExprUnary:
		p.printf("unary %s", unarySpelling(x.Unary.Op))
	case ast.ExprBinary:
		p.printf("binary %s", binarySpelling(x.Binary.Op))
	case ast.ExprConditional:
		p.printf("conditional")
	case ast.ExprCall:
		p.printf("call")
	case ast.ExprMember:
		sep := "."
		if x.Member.Arrow {
			sep = "->"
		}
		p.printf("member %s%s", sep, p.u.Decl(x.Member.Field).Name.String())
	case ast.ExprIndex:
		p.printf("index")
	case ast.ExprCast:
		p.printf("cast %s", castSpelling(x.Cast.Cast))
	case ast.ExprImplicitCast:
		p.printf("implicit-cast %s", castSpelling(x.Cast.Cast))
	case ast.ExprSizeOf:
		if x.Size.IsAlignOf {
			p.printf("alignof")
		} else {
			p.printf("sizeof")
		}
	case ast.ExprInitList:
		p.printf("init-list")
	default:
		p.printf("invalid")
	}
	if !x.Type.IsNull() {
		p.printf(" '%s'", p.pr.Sprint(x.Type))
	}
	p.printf("\n")
	for _, child := range p.children(x) {
		p.expr(child, depth+1)
	}
}

// children lists the sub-expressions of a node in evaluation order.
func (p *astPrinter) children(x *ast.Expr) []ast.ExprID {
	switch x.Kind {
	case ast.ExprParen:
		return []ast.ExprID{x.Paren.Operand}
	case ast.ExprUnary:
		return []ast.ExprID{x.Unary.Operand}
	case ast.ExprBinary:
		return []ast.ExprID{x.Binary.Left, x.Binary.Right}
	case ast.ExprConditional:
		return []ast.ExprID{x.Cond.Cond, x.Cond.Then, x.Cond.Else}
	case ast.ExprCall:
		return append([]ast.ExprID{x.Call.Callee}, x.Call.Args...)
	case ast.ExprMember:
		return []ast.ExprID{x.Member.Base}
	case ast.ExprIndex:
		return []ast.ExprID{x.Index.Base, x.Index.Index}
	case ast.ExprCast, ast.ExprImplicitCast:
		return []ast.ExprID{x.Cast.Operand}
	case ast.ExprSizeOf:
		if x.Size.Operand.IsValid() {
			return []ast.ExprID{x.Size.Operand}
		}
	case ast.ExprInitList:
		return x.Init.Elems
	}
	return nil
}

var unarySpellings = [...]string{
	ast.UnPlus: "+", ast.UnMinus: "-", ast.UnNot: "~", ast.UnLNot: "!",
	ast.UnDeref: "*", ast.UnAddrOf: "&",
	ast.UnPreInc: "++pre", ast.UnPreDec: "--pre",
	ast.UnPostInc: "post++", ast.UnPostDec: "post--",
}

func unarySpelling(op ast.UnaryOp) string {
	if int(op) < len(unarySpellings) {
		return unarySpellings[op]
	}
	return "?"
}

var binarySpellings = [...]string{
	ast.BinAdd: "+", ast.BinSub: "-", ast.BinMul: "*", ast.BinDiv: "/", ast.BinRem: "%",
	ast.BinShl: "<<", ast.BinShr: ">>", ast.BinAnd: "&", ast.BinOr: "|", ast.BinXor: "^",
	ast.BinLT: "<", ast.BinGT: ">", ast.BinLE: "<=", ast.BinGE: ">=",
	ast.BinEQ: "==", ast.BinNE: "!=", ast.BinLAnd: "&&", ast.BinLOr: "||",
	ast.BinComma: ",", ast.BinAssign: "=",
	ast.BinAddAssign: "+=", ast.BinSubAssign: "-=", ast.BinMulAssign: "*=",
	ast.BinDivAssign: "/=", ast.BinRemAssign: "%=", ast.BinShlAssign: "<<=",
	ast.BinShrAssign: ">>=", ast.BinAndAssign: "&=", ast.BinOrAssign: "|=",
	ast.BinXorAssign: "^=",
}

func binarySpelling(op ast.BinaryOp) string {
	if int(op) < len(binarySpellings) {
		return binarySpellings[op]
	}
	return "?"
}

var castSpellings = [...]string{
	ast.CastNoop: "noop", ast.CastBitCast: "bitcast",
	ast.CastLValueToRValue: "lvalue-to-rvalue", ast.CastArrayToPointer: "array-to-pointer",
	ast.CastFunctionToPointer: "function-to-pointer", ast.CastIntegral: "integral",
	ast.CastFloating: "floating", ast.CastIntToFloat: "int-to-float",
	ast.CastFloatToInt: "float-to-int", ast.CastToBool: "to-bool",
	ast.CastPointer: "pointer", ast.CastIntToPointer: "int-to-pointer",
	ast.CastPointerToInt: "pointer-to-int", ast.CastDerivedToBase: "derived-to-base",
	ast.CastMemberPointer: "member-pointer", ast.CastQualification: "qualification",
	ast.CastRealToComplex: "real-to-complex",
}

func castSpelling(k ast.CastKind) string {
	if int(k) < len(castSpellings) {
		return castSpellings[k]
	}
	return "?"
}
