package types

// Canonical returns the unique representative of id's equivalence class:
// typedefs and typeof are unwrapped, and compound types are rebuilt over the
// canonical form of their operands. Canonical is idempotent and two types are
// semantically equal iff their canonical IDs are equal.
//
// Nominal kinds (record, enum) are their own canonical form; recursion in the
// type graph terminates at their declaration handles.
func (in *Interner) Canonical(id TypeID) TypeID {
	return in.CanonicalQual(MakeQual(id)).Type
}

// CanonicalQual canonicalizes a qualified type. Qualifiers hidden behind a
// typedef ("typedef const int ci") surface onto the result.
func (in *Interner) CanonicalQual(qt QualType) QualType {
	if qt.Type == NoTypeID {
		return qt
	}
	tt, ok := in.Lookup(qt.Type)
	if !ok {
		return qt
	}
	switch tt.Kind {
	case KindTypedef:
		info, ok := in.TypedefInfo(qt.Type)
		if !ok || info.Underlying.Type == NoTypeID {
			return qt
		}
		under := in.CanonicalQual(info.Underlying)
		return under.WithQuals(qt.Quals)

	case KindTypeOfExpr:
		info, ok := in.TypeOfInfo(qt.Type)
		if !ok || info.Underlying.Type == NoTypeID {
			return qt
		}
		under := in.CanonicalQual(info.Underlying)
		return under.WithQuals(qt.Quals)

	case KindTypeOfType:
		under := in.CanonicalQual(tt.Elem)
		return under.WithQuals(qt.Quals)

	case KindPointer:
		elem := in.CanonicalQual(tt.Elem)
		return QualType{Type: in.Pointer(elem, tt.Addr), Quals: qt.Quals}

	case KindReference:
		elem := in.CanonicalQual(tt.Elem)
		return QualType{Type: in.Reference(elem), Quals: qt.Quals}

	case KindMemberPointer:
		elem := in.CanonicalQual(tt.Elem)
		class := in.Canonical(tt.Class)
		return QualType{Type: in.MemberPointer(class, elem), Quals: qt.Quals}

	case KindComplex:
		elem := in.Canonical(tt.Elem.Type)
		return QualType{Type: in.Complex(elem), Quals: qt.Quals}

	case KindConstantArray:
		elem := in.CanonicalQual(tt.Elem)
		return QualType{Type: in.ConstantArray(elem, tt.Count), Quals: qt.Quals}

	case KindIncompleteArray:
		elem := in.CanonicalQual(tt.Elem)
		return QualType{Type: in.IncompleteArray(elem), Quals: qt.Quals}

	case KindVariableArray:
		elem := in.CanonicalQual(tt.Elem)
		return QualType{Type: in.VariableArray(elem, tt.Size), Quals: qt.Quals}

	case KindVector:
		elem := in.Canonical(tt.Elem.Type)
		return QualType{Type: in.Vector(elem, tt.Count), Quals: qt.Quals}

	case KindExtVector:
		elem := in.Canonical(tt.Elem.Type)
		return QualType{Type: in.ExtVector(elem, tt.Count), Quals: qt.Quals}

	case KindFunction:
		info, ok := in.FnInfo(qt.Type)
		if !ok {
			return qt
		}
		result := in.CanonicalQual(info.Result)
		if !info.Proto {
			return QualType{Type: in.FunctionNoProto(result), Quals: qt.Quals}
		}
		params := make([]QualType, len(info.Params))
		for i, p := range info.Params {
			// Parameter qualifiers do not participate in function type
			// identity; only the unqualified canonical type does.
			params[i] = in.CanonicalQual(p).Unqualified()
		}
		return QualType{Type: in.Function(result, params, info.Variadic), Quals: qt.Quals}

	default:
		return qt
	}
}

// Equal reports semantic equality of two types.
func (in *Interner) Equal(a, b TypeID) bool {
	return in.Canonical(a) == in.Canonical(b)
}

// Decay converts array and function types to the pointer types they decay to
// in rvalue and argument positions; other types pass through.
func (in *Interner) Decay(qt QualType) QualType {
	tt, ok := in.Lookup(in.Canonical(qt.Type))
	if !ok {
		return qt
	}
	switch tt.Kind {
	case KindConstantArray, KindIncompleteArray, KindVariableArray:
		return MakeQual(in.Pointer(tt.Elem, 0))
	case KindFunction:
		return MakeQual(in.Pointer(MakeQual(in.Canonical(qt.Type)), 0))
	default:
		return qt
	}
}
