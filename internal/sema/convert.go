package sema

import (
	"cinder/internal/ast"
	"cinder/internal/names"
	"cinder/internal/types"
)

// Rank orders the second step of a standard conversion sequence.
type Rank uint8

const (
	RankExact Rank = iota
	RankPromotion
	RankConversion
)

func (r Rank) String() string {
	switch r {
	case RankExact:
		return "exact-match"
	case RankPromotion:
		return "promotion"
	default:
		return "conversion"
	}
}

// ICSKind orders conversion sequence categories; smaller is better.
type ICSKind uint8

const (
	ICSStandard ICSKind = iota
	ICSUserDefined
	ICSEllipsis
	ICSNone // not convertible
)

// StandardSeq is a standard conversion sequence: an optional lvalue
// transformation, an optional promotion or conversion, and an optional
// qualification adjustment.
type StandardSeq struct {
	First         ast.CastKind // lvalue transformation, CastNoop if none
	Second        ast.CastKind // promotion/conversion, CastNoop if none
	Rank          Rank
	Qualification bool
}

// ICS is the implicit conversion sequence of one argument. A user-defined
// sequence names the conversion function and the standard sequence applied
// to its result.
type ICS struct {
	Kind  ICSKind
	Std   StandardSeq
	Conv  ast.DeclID  // conversion function, ICSUserDefined only
	After StandardSeq // standard sequence following the user conversion
}

// Viable reports a usable sequence.
func (c ICS) Viable() bool {
	return c.Kind != ICSNone
}

// betterICS reports -1 when a is better than b, 1 when worse, 0 when
// indistinguishable.
func betterICS(a, b ICS) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if a.Kind == ICSUserDefined {
		// Two user-defined sequences are comparable only through the
		// same conversion function.
		if a.Conv != b.Conv {
			return 0
		}
		if a.After.Rank != b.After.Rank {
			if a.After.Rank < b.After.Rank {
				return -1
			}
			return 1
		}
		return 0
	}
	if a.Kind != ICSStandard {
		return 0
	}
	if a.Std.Rank != b.Std.Rank {
		if a.Std.Rank < b.Std.Rank {
			return -1
		}
		return 1
	}
	// Same rank: a sequence without qualification adjustment beats one
	// with.
	if a.Std.Qualification != b.Std.Qualification {
		if !a.Std.Qualification {
			return -1
		}
		return 1
	}
	return 0
}

// ConvertToParam computes the implicit conversion sequence from an argument
// expression type to a parameter type. ICSNone means the argument cannot
// initialize the parameter.
func (s *Sema) ConvertToParam(from types.QualType, fromVC ast.ValueCategory, to types.QualType) ICS {
	if ics := s.convertStandard(from, fromVC, to); ics.Viable() {
		return ics
	}
	if s.Lang == LangCXX {
		if ics, ok := s.userConversion(from, to); ok {
			return ics
		}
	}
	return ICS{Kind: ICSNone}
}

// convertStandard computes a standard conversion sequence; it never
// consults conversion functions, so a user-defined sequence cannot chain
// through a second one.
func (s *Sema) convertStandard(from types.QualType, fromVC ast.ValueCategory, to types.QualType) ICS {
	in := s.Unit.Types
	from = in.CanonicalQual(from)
	to = in.CanonicalQual(to)

	seq := StandardSeq{First: ast.CastNoop, Second: ast.CastNoop, Rank: RankExact}

	// Reference binding: the referenced type must be reference-compatible;
	// adding qualifiers is a qualification adjustment.
	if tt, ok := in.Lookup(to.Type); ok && tt.Kind == types.KindReference {
		ref := in.CanonicalQual(tt.Elem)
		if fromVC == ast.VCRValue && ref.Quals&types.QualConst == 0 {
			return ICS{Kind: ICSNone}
		}
		if in.Equal(from.Type, ref.Type) {
			if from.Quals != ref.Quals {
				if from.Quals&^ref.Quals != 0 {
					return ICS{Kind: ICSNone}
				}
				seq.Qualification = true
			}
			return ICS{Kind: ICSStandard, Std: seq}
		}
		if s.derivesFrom(from.Type, ref.Type) {
			seq.Second = ast.CastDerivedToBase
			seq.Rank = RankConversion
			return ICS{Kind: ICSStandard, Std: seq}
		}
		return ICS{Kind: ICSNone}
	}

	// Lvalue transformations.
	if ft, ok := in.Lookup(from.Type); ok {
		switch {
		case ft.Kind == types.KindConstantArray || ft.Kind == types.KindIncompleteArray || ft.Kind == types.KindVariableArray:
			seq.First = ast.CastArrayToPointer
			from = in.Decay(from)
		case ft.Kind == types.KindFunction:
			seq.First = ast.CastFunctionToPointer
			from = in.Decay(from)
		case fromVC != ast.VCRValue:
			seq.First = ast.CastLValueToRValue
			from.Quals = 0
		}
	}
	from = in.CanonicalQual(from)

	if in.Equal(from.Type, to.Type) {
		return ICS{Kind: ICSStandard, Std: seq}
	}

	ft, fok := in.Lookup(from.Type)
	tt, tok := in.Lookup(to.Type)
	if !fok || !tok {
		return ICS{Kind: ICSNone}
	}

	// Promotions.
	if promoted, ok := s.promotedType(from.Type); ok && in.Equal(promoted, to.Type) {
		seq.Second = promotionCast(ft, tt)
		seq.Rank = RankPromotion
		return ICS{Kind: ICSStandard, Std: seq}
	}

	// Conversions.
	if cast, ok := s.conversionCast(from.Type, to.Type); ok {
		seq.Second = cast
		seq.Rank = RankConversion
		return ICS{Kind: ICSStandard, Std: seq}
	}

	// Pointer qualification adjustment: T* -> more-qualified T*.
	if ft.Kind == types.KindPointer && tt.Kind == types.KindPointer {
		fp := in.CanonicalQual(ft.Elem)
		tp := in.CanonicalQual(tt.Elem)
		if in.Equal(fp.Type, tp.Type) && fp.Quals&^tp.Quals == 0 && fp.Quals != tp.Quals {
			seq.Qualification = true
			return ICS{Kind: ICSStandard, Std: seq}
		}
	}
	return ICS{Kind: ICSNone}
}

// promotedType returns the integral or floating promotion target of a type,
// if one applies.
func (s *Sema) promotedType(id types.TypeID) (types.TypeID, bool) {
	in := s.Unit.Types
	b := in.Builtins()
	tt, ok := in.Lookup(id)
	if !ok {
		return types.NoTypeID, false
	}
	if tt.Kind == types.KindEnum {
		return b.Int, true
	}
	if tt.Kind != types.KindBuiltin {
		return types.NoTypeID, false
	}
	switch tt.Builtin {
	case types.BuiltinBool, types.BuiltinChar, types.BuiltinSChar, types.BuiltinUChar,
		types.BuiltinShort, types.BuiltinUShort:
		return b.Int, true
	case types.BuiltinFloat:
		return b.Double, true
	}
	return types.NoTypeID, false
}

func promotionCast(from, to types.Type) ast.CastKind {
	if from.Kind == types.KindBuiltin && from.Builtin == types.BuiltinFloat {
		return ast.CastFloating
	}
	return ast.CastIntegral
}

// conversionCast classifies a rank-conversion step between two canonical
// types, returning the cast kind that realizes it.
func (s *Sema) conversionCast(from, to types.TypeID) (ast.CastKind, bool) {
	in := s.Unit.Types
	ft, fok := in.Lookup(from)
	tt, tok := in.Lookup(to)
	if !fok || !tok {
		return ast.CastNoop, false
	}

	fromInt := in.IsInteger(from) || ft.Kind == types.KindEnum
	toInt := in.IsInteger(to)
	fromFloat := in.IsFloating(from)
	toFloat := in.IsFloating(to)
	toBool := tt.Kind == types.KindBuiltin && tt.Builtin == types.BuiltinBool

	if tt.Kind == types.KindComplex {
		switch {
		case ft.Kind == types.KindComplex:
			return ast.CastFloating, true
		case fromInt || fromFloat:
			return ast.CastRealToComplex, true
		}
		return ast.CastNoop, false
	}
	if ft.Kind == types.KindComplex {
		// Complex narrows to real only through an explicit cast.
		return ast.CastNoop, false
	}

	switch {
	case toBool && (fromInt || fromFloat || ft.Kind == types.KindPointer):
		return ast.CastToBool, true
	case fromInt && toInt:
		return ast.CastIntegral, true
	case fromFloat && toFloat:
		return ast.CastFloating, true
	case fromInt && toFloat:
		return ast.CastIntToFloat, true
	case fromFloat && toInt:
		return ast.CastFloatToInt, true
	case ft.Kind == types.KindPointer && tt.Kind == types.KindPointer:
		// void* conversions in either direction, and derived-to-base.
		if in.IsVoid(tt.Elem.Type) || in.IsVoid(ft.Elem.Type) {
			return ast.CastBitCast, true
		}
		if s.derivesFrom(ft.Elem.Type, tt.Elem.Type) {
			return ast.CastDerivedToBase, true
		}
		return ast.CastNoop, false
	default:
		return ast.CastNoop, false
	}
}

// userConversion searches the source class for a conversion function whose
// result reaches the destination through a standard sequence, preferring
// the one with the best post-conversion rank. A tie between two distinct
// conversion functions leaves the argument unconvertible.
func (s *Sema) userConversion(from, to types.QualType) (ICS, bool) {
	in := s.Unit.Types
	var best ICS
	found, tied := false, false
	for _, id := range s.conversionFunctions(in.Canonical(from.Type)) {
		d := s.Unit.Decl(id)
		fn, ok := in.FnInfo(in.Canonical(d.Type.Type))
		if !ok {
			continue
		}
		after := s.convertStandard(fn.Result, ast.VCRValue, to)
		if after.Kind != ICSStandard {
			continue
		}
		cand := ICS{Kind: ICSUserDefined, Conv: id, After: after.Std}
		switch {
		case !found:
			best, found = cand, true
		case cand.After.Rank < best.After.Rank:
			best, tied = cand, false
		case cand.After.Rank == best.After.Rank:
			tied = true
		}
	}
	if !found || tied {
		return ICS{}, false
	}
	return best, true
}

// conversionFunctions lists the conversion functions declared in a class.
func (s *Sema) conversionFunctions(classType types.TypeID) []ast.DeclID {
	in := s.Unit.Types
	info, ok := in.RecordInfo(in.Canonical(classType))
	if !ok {
		return nil
	}
	rd := s.Unit.Decl(ast.DeclID(info.Decl))
	if rd == nil || rd.Kind != ast.DeclRecord || !rd.Record.Ctx.IsValid() {
		return nil
	}
	ctx := s.Unit.Ctx(rd.Record.Ctx)
	if ctx == nil {
		return nil
	}
	var out []ast.DeclID
	for _, id := range ctx.Decls {
		d := s.Unit.Decl(id)
		if d != nil && !d.Invalid && d.Kind == ast.DeclFunction && d.Name.Kind == names.NameConversion {
			out = append(out, id)
		}
	}
	return out
}

// derivesFrom reports whether derived is a class derived (directly or
// transitively) from base.
func (s *Sema) derivesFrom(derived, base types.TypeID) bool {
	in := s.Unit.Types
	dinfo, ok := in.RecordInfo(in.Canonical(derived))
	if !ok {
		return false
	}
	binfo, ok := in.RecordInfo(in.Canonical(base))
	if !ok {
		return false
	}
	d := s.Unit.Decl(ast.DeclID(dinfo.Decl))
	if d == nil || d.Kind != ast.DeclRecord {
		return false
	}
	for _, bs := range d.Record.Bases {
		bd := s.Unit.Decl(bs.Class)
		if bd == nil {
			continue
		}
		if ast.DeclID(binfo.Decl) == bs.Class {
			return true
		}
		if bd.Kind == ast.DeclRecord && s.derivesFromDecl(bs.Class, ast.DeclID(binfo.Decl)) {
			return true
		}
	}
	return false
}

func (s *Sema) derivesFromDecl(derived, base ast.DeclID) bool {
	d := s.Unit.Decl(derived)
	if d == nil || d.Kind != ast.DeclRecord {
		return false
	}
	for _, bs := range d.Record.Bases {
		if bs.Class == base {
			return true
		}
		if s.derivesFromDecl(bs.Class, base) {
			return true
		}
	}
	return false
}
