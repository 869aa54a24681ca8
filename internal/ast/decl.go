package ast

import (
	"cinder/internal/names"
	"cinder/internal/source"
	"cinder/internal/types"
)

// DeclKind enumerates declaration kinds.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclTypedef
	DeclVariable
	DeclParameter
	DeclFunction
	DeclField
	DeclRecord
	DeclEnum
	DeclEnumConstant
	DeclNamespace
	DeclClassTemplate
	DeclFunctionTemplate
	DeclTemplateTypeParam
	DeclTemplateNonTypeParam
	DeclTemplateTemplateParam
	DeclOverloadSet
	DeclUsingDirective
	DeclLinkageSpec
	DeclBlock
)

func (k DeclKind) String() string {
	switch k {
	case DeclTypedef:
		return "typedef"
	case DeclVariable:
		return "variable"
	case DeclParameter:
		return "parameter"
	case DeclFunction:
		return "function"
	case DeclField:
		return "field"
	case DeclRecord:
		return "record"
	case DeclEnum:
		return "enum"
	case DeclEnumConstant:
		return "enum-constant"
	case DeclNamespace:
		return "namespace"
	case DeclClassTemplate:
		return "class-template"
	case DeclFunctionTemplate:
		return "function-template"
	case DeclTemplateTypeParam:
		return "template-type-param"
	case DeclTemplateNonTypeParam:
		return "template-non-type-param"
	case DeclTemplateTemplateParam:
		return "template-template-param"
	case DeclOverloadSet:
		return "overload-set"
	case DeclUsingDirective:
		return "using-directive"
	case DeclLinkageSpec:
		return "linkage-spec"
	case DeclBlock:
		return "block"
	default:
		return "invalid"
	}
}

// IDNS is the identifier-namespace bitmask a declaration occupies. Lookup
// kinds intersect against it.
type IDNS uint8

const (
	NSOrdinary IDNS = 1 << iota
	NSTag
	NSMember
)

// Namespaces reports the identifier namespaces a declaration kind lives in.
func (k DeclKind) Namespaces() IDNS {
	switch k {
	case DeclRecord, DeclEnum:
		return NSTag
	case DeclField:
		return NSMember | NSOrdinary
	case DeclTypedef, DeclVariable, DeclParameter, DeclFunction, DeclEnumConstant,
		DeclNamespace, DeclClassTemplate, DeclFunctionTemplate, DeclOverloadSet,
		DeclTemplateTypeParam, DeclTemplateNonTypeParam, DeclTemplateTemplateParam:
		return NSOrdinary
	default:
		return 0
	}
}

// StorageClass of a variable or function declaration.
type StorageClass uint8

const (
	StorageNone StorageClass = iota
	StorageStatic
	StorageExtern
	StorageAuto
	StorageRegister
)

func (s StorageClass) String() string {
	switch s {
	case StorageStatic:
		return "static"
	case StorageExtern:
		return "extern"
	case StorageAuto:
		return "auto"
	case StorageRegister:
		return "register"
	default:
		return "none"
	}
}

// VarDecl is the payload of variable declarations.
type VarDecl struct {
	Init ExprID
	// Tentative marks a file-scope definition without initializer; a later
	// initializer upgrades it.
	Tentative bool
}

// ParamDecl is the payload of parameter declarations.
type ParamDecl struct {
	Default ExprID // C++ default argument, if any
	Index   uint32
}

// FnDecl is the payload of function declarations.
type FnDecl struct {
	Params  []DeclID
	Body    StmtID
	Defined bool
	Inline  bool
}

// FieldDecl is the payload of field declarations. WidthExpr keeps the parsed
// bit-width expression; Width holds the evaluated value (-1 for plain
// fields).
type FieldDecl struct {
	WidthExpr ExprID
	Width     int32
	Index     uint32
}

// BaseSpecifier is one entry of a C++ base-class list.
type BaseSpecifier struct {
	Class   DeclID
	Virtual bool
}

// RecordDecl is the payload of record declarations. Ctx is the member
// context, allocated when the definition opens.
type RecordDecl struct {
	Tag        types.RecordTag
	Fields     []DeclID
	Bases      []BaseSpecifier
	Ctx        ContextID
	Definition bool
}

// NamespaceDecl is the payload of namespace declarations. Reopenings of the
// same namespace share one context.
type NamespaceDecl struct {
	Ctx ContextID
}

// EnumDecl is the payload of enum declarations.
type EnumDecl struct {
	Constants  []DeclID
	Underlying types.TypeID
	Definition bool
}

// EnumConstDecl is the payload of enumerator declarations.
type EnumConstDecl struct {
	Init  ExprID
	Value int64
}

// TemplateDecl is the payload of class/function templates.
type TemplateDecl struct {
	Params  []DeclID
	Pattern DeclID
}

// TemplateParamDecl is the payload of the three template parameter kinds.
// DefaultType serves type-parameters, DefaultExpr non-type parameters,
// DefaultRef template-template parameters. InnerParams is the parameter list
// of a template-template parameter.
type TemplateParamDecl struct {
	Depth       uint32
	Index       uint32
	DefaultType types.QualType
	DefaultExpr ExprID
	DefaultRef  DeclID
	InnerParams []DeclID
}

// OverloadSetDecl is the payload of synthesized overload sets.
type OverloadSetDecl struct {
	Members []DeclID
}

// UsingDirectiveDecl nominates a namespace.
type UsingDirectiveDecl struct {
	Nominated ContextID
}

// Linkage language of an extern "C"/"C++" specification.
type Linkage uint8

const (
	LinkageC Linkage = iota
	LinkageCXX
)

// LinkageSpecDecl is the payload of linkage specifications. Ctx holds the
// block's declarations.
type LinkageSpecDecl struct {
	Lang Linkage
	Ctx  ContextID
}

// Decl is a declaration node. Exactly one payload field is meaningful,
// selected by Kind. SemaCtx is the owning context, LexCtx the context where
// the declaration textually appeared; they differ for out-of-line
// definitions.
type Decl struct {
	Kind    DeclKind
	Name    names.DeclName
	Type    types.QualType
	Span    source.Span
	SemaCtx ContextID
	LexCtx  ContextID
	Storage StorageClass
	Invalid bool
	// Prev links redeclarations back to the first sighting.
	Prev DeclID

	Var       VarDecl
	Param     ParamDecl
	Fn        FnDecl
	Field     FieldDecl
	Record    RecordDecl
	NS        NamespaceDecl
	Enum      EnumDecl
	EnumConst EnumConstDecl
	Template  TemplateDecl
	TParam    TemplateParamDecl
	Overload  OverloadSetDecl
	Using     UsingDirectiveDecl
	LinkSpec  LinkageSpecDecl
}
