// Package astio serializes decorated ASTs to a msgpack record stream and
// reconstructs them. Node handles are arena indices and arenas are written in
// allocation order, so every cross-reference survives as the same numeric id;
// only the shared tables (strings, identifiers, types) are remapped when a
// stream is read back into fresh interners. The contract is round-trip
// structural equality, checked by Equal.
package astio

// schemaVersion is bumped whenever a record layout changes. A reader refuses
// streams with a different version instead of guessing.
const schemaVersion uint16 = 1

const streamMagic = "CNAST"

// unitPayload is the whole stream: a version header, the shared tables, the
// four node arenas, and the lookup snapshots of the context tree.
type unitPayload struct {
	Magic  string
	Schema uint16

	Strings []string
	Idents  []string
	Types   []typeRec

	Decls []declRec
	Stmts []stmtRec
	Exprs []exprRec
	Ctxs  []ctxRec
	Root  uint32
}

// spanRec mirrors source.Span.
type spanRec struct {
	File  uint32
	Start uint32
	End   uint32
}

// qualRec is a qualified type reference. Type is a TypeID of the writer's
// interner; the reader maps it through the type table.
type qualRec struct {
	Type  uint32
	Quals uint8
}

// nameRec mirrors names.DeclName. Ident is a 1-based index into the Idents
// table, zero for none.
type nameRec struct {
	Kind  uint8
	Ident uint32
	Type  uint32
	Op    uint8
}

// typeRec is one interner slot, kind tag first. The refinable payloads of
// nominal kinds ride along so the reader can replay placeholder-and-refine:
// it registers every nominal type in the first pass and completes them in the
// second, once all slots are mapped.
type typeRec struct {
	Kind    uint8
	Builtin uint8
	Elem    qualRec
	Count   uint32
	Addr    uint8
	Class   uint32
	Decl    uint32
	Size    uint32

	Fn      *fnTypeRec
	Record  *recordTypeRec
	Enum    *enumTypeRec
	Typedef *typedefTypeRec
	TypeOf  *typeofTypeRec
}

type fnTypeRec struct {
	Result   qualRec
	Params   []qualRec
	Variadic bool
	Proto    bool
}

type recordTypeRec struct {
	Tag      uint8
	Name     uint32
	Span     spanRec
	Fields   []fieldTypeRec
	Pack     uint8
	Complete bool
}

type fieldTypeRec struct {
	Name     uint32
	Type     qualRec
	BitWidth int32
	Span     spanRec
}

type enumTypeRec struct {
	Name       uint32
	Span       spanRec
	Underlying uint32
	Complete   bool
}

type typedefTypeRec struct {
	Name       uint32
	Underlying qualRec
}

type typeofTypeRec struct {
	Underlying qualRec
}

// declRec is one declaration node: common fields, then exactly one kind
// payload non-nil.
type declRec struct {
	Kind    uint8
	Name    nameRec
	Type    qualRec
	Span    spanRec
	SemaCtx uint32
	LexCtx  uint32
	Storage uint8
	Invalid bool
	Prev    uint32

	Var       *varRec
	Param     *paramRec
	Fn        *fnDeclRec
	Field     *fieldDeclRec
	Record    *recordDeclRec
	NS        *nsRec
	Enum      *enumDeclRec
	EnumConst *enumConstRec
	Template  *templateRec
	TParam    *tparamRec
	Overload  *overloadRec
	Using     *usingRec
	LinkSpec  *linkSpecRec
}

type varRec struct {
	Init      uint32
	Tentative bool
}

type paramRec struct {
	Default uint32
	Index   uint32
}

type fnDeclRec struct {
	Params  []uint32
	Body    uint32
	Defined bool
	Inline  bool
}

type fieldDeclRec struct {
	WidthExpr uint32
	Width     int32
	Index     uint32
}

type baseRec struct {
	Class   uint32
	Virtual bool
}

type recordDeclRec struct {
	Tag        uint8
	Fields     []uint32
	Bases      []baseRec
	Ctx        uint32
	Definition bool
}

type nsRec struct {
	Ctx uint32
}

type enumDeclRec struct {
	Constants  []uint32
	Underlying uint32
	Definition bool
}

type enumConstRec struct {
	Init  uint32
	Value int64
}

type templateRec struct {
	Params  []uint32
	Pattern uint32
}

type tparamRec struct {
	Depth       uint32
	Index       uint32
	DefaultType qualRec
	DefaultExpr uint32
	DefaultRef  uint32
	InnerParams []uint32
}

type overloadRec struct {
	Members []uint32
}

type usingRec struct {
	Nominated uint32
}

type linkSpecRec struct {
	Lang uint8
	Ctx  uint32
}

// stmtRec is one statement node.
type stmtRec struct {
	Kind    uint8
	Span    spanRec
	Invalid bool

	Compound *compoundRec
	If       *ifRec
	While    *whileRec
	For      *forRec
	Switch   *switchRec
	Case     *caseRec
	Default  *defaultRec
	Label    *labelRec
	Goto     *gotoRec
	Return   *returnRec
	Decl     *declStmtRec
	Expr     *exprStmtRec
}

type compoundRec struct {
	Body []uint32
}

type ifRec struct {
	Cond uint32
	Then uint32
	Else uint32
}

type whileRec struct {
	Cond uint32
	Body uint32
}

type forRec struct {
	Init uint32
	Cond uint32
	Inc  uint32
	Body uint32
}

type switchRec struct {
	Cond uint32
	Body uint32
}

type caseRec struct {
	Lo    uint32
	Hi    uint32
	Body  uint32
	LoVal int64
	HiVal int64
}

type defaultRec struct {
	Body uint32
}

type labelRec struct {
	Name uint32
	Body uint32
}

type gotoRec struct {
	Name uint32
}

type returnRec struct {
	Value uint32
}

type declStmtRec struct {
	Decls []uint32
}

type exprStmtRec struct {
	E uint32
}

// exprRec is one expression node, the decoration (type, value category)
// included.
type exprRec struct {
	Kind    uint8
	Type    qualRec
	VC      uint8
	Span    spanRec
	Invalid bool

	Int    *intLitRec
	Float  *floatLitRec
	Str    *strLitRec
	Ref    *declRefRec
	Paren  *parenRec
	Unary  *unaryRec
	Binary *binaryRec
	Cond   *condRec
	Call   *callRec
	Member *memberRec
	Index  *indexRec
	Cast   *castRec
	Size   *sizeofRec
	Init   *initListRec
}

type intLitRec struct {
	Value    uint64
	Negative bool
}

type floatLitRec struct {
	Text  string
	Value float64
}

type strLitRec struct {
	Value uint32
	Wide  bool
}

type declRefRec struct {
	Decl uint32
}

type parenRec struct {
	Operand uint32
}

type unaryRec struct {
	Op      uint8
	Operand uint32
}

type binaryRec struct {
	Op    uint8
	Left  uint32
	Right uint32
}

type condRec struct {
	Cond uint32
	Then uint32
	Else uint32
}

type callRec struct {
	Callee  uint32
	Args    []uint32
	Builtin uint16
}

type memberRec struct {
	Base  uint32
	Field uint32
	Arrow bool
}

type indexRec struct {
	Base  uint32
	Index uint32
}

type castRec struct {
	Cast    uint8
	Operand uint32
}

type sizeofRec struct {
	OfType    qualRec
	Operand   uint32
	IsAlignOf bool
}

type initListRec struct {
	Elems []uint32
}

// ctxRec is one decl-context node plus its lookup snapshot. Lookup is stored
// separately from Decls because redeclaration merges can make the table
// diverge from plain insertion order.
type ctxRec struct {
	Kind   uint8
	Parent uint32
	Owner  uint32
	Span   spanRec
	Decls  []uint32
	Lookup []lookupRec
}

type lookupRec struct {
	Name  nameRec
	Decls []uint32
}
