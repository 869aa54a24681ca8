package diag

import "fmt"

// Code is a compact stable identifier for a diagnostic kind. Ranges are
// reserved per producer: 1xxx lexer and 2xxx parser (received from the host,
// never produced here), 3xxx semantic analysis, 4xxx layout, 5xxx IR
// emission, 6xxx flow analyses, 9xxx internal invariants.
type Code uint16

const (
	UnknownCode Code = 0

	// Semantic analysis.
	SemaNameNotFound          Code = 3001
	SemaRedefinition          Code = 3002
	SemaAmbiguousLookup       Code = 3003
	SemaAmbiguousSubobject    Code = 3004
	SemaTypeMismatch          Code = 3005
	SemaInvalidConversion     Code = 3006
	SemaAmbiguousCall         Code = 3007
	SemaNoViableCandidate     Code = 3008
	SemaBadDefaultArg         Code = 3009
	SemaStorageClassMismatch  Code = 3010
	SemaTagKindMismatch       Code = 3011
	SemaTypedefMismatch       Code = 3012
	SemaConstExprRequired     Code = 3013
	SemaConstExprOverflow     Code = 3014
	SemaConstExprSideEffects  Code = 3015
	SemaDuplicateCase         Code = 3016
	SemaMissingLabel          Code = 3017
	SemaBreakOutsideLoop      Code = 3018
	SemaContinueOutsideLoop   Code = 3019
	SemaTemplateParamShadow   Code = 3020
	SemaTemplateDefaultGap    Code = 3021
	SemaTemplateArgKind       Code = 3022
	SemaTemplateArgCount      Code = 3023
	SemaTemplateArgLocalType  Code = 3024
	SemaTemplateArgBadNonType Code = 3025
	SemaTemplateRedefinition  Code = 3026
	SemaTemplateFnParam       Code = 3027
	SemaPragmaPackEmpty       Code = 3028
	SemaPragmaPackBadValue    Code = 3029
	SemaIncompleteType        Code = 3030
	SemaVoidParamNotAlone     Code = 3031

	// Record layout.
	LayoutBitFieldTooWide Code = 4001
	LayoutBadAlignment    Code = 4002
	LayoutNegativeWidth   Code = 4003

	// IR emission.
	IRUnsupportedBuiltin    Code = 5001
	IRUnrepresentableType   Code = 5002
	IRInvalidDeclReached    Code = 5003

	// Flow analyses.
	FlowDeadStore       Code = 6001
	FlowUnreachableCode Code = 6002

	// Internal invariants.
	InternalError Code = 9001
)

func (c Code) String() string {
	return fmt.Sprintf("CN%04d", uint16(c))
}
