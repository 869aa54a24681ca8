package types

// Query helpers over canonical forms. All predicates canonicalize first, so
// typedefs of int answer like int.

// IsVoid reports the void type.
func (in *Interner) IsVoid(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindBuiltin && tt.Builtin == BuiltinVoid
}

// IsInteger reports integer builtins and enums.
func (in *Interner) IsInteger(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok {
		return false
	}
	if tt.Kind == KindEnum {
		return true
	}
	return tt.Kind == KindBuiltin && tt.Builtin.IsInteger()
}

// IsFloating reports floating builtins.
func (in *Interner) IsFloating(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindBuiltin && tt.Builtin.IsFloating()
}

// IsArithmetic reports integer, floating, or complex types.
func (in *Interner) IsArithmetic(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok {
		return false
	}
	if tt.Kind == KindComplex {
		return true
	}
	return in.IsInteger(id) || in.IsFloating(id)
}

// IsComplex reports _Complex types.
func (in *Interner) IsComplex(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindComplex
}

// IsPointer reports pointer types.
func (in *Interner) IsPointer(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindPointer
}

// IsScalar reports types usable in boolean context: arithmetic, pointer,
// member pointer.
func (in *Interner) IsScalar(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindPointer, KindMemberPointer:
		return true
	}
	return in.IsArithmetic(id)
}

// IsRecord reports struct/union/class types.
func (in *Interner) IsRecord(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindRecord
}

// IsArray reports any array flavor.
func (in *Interner) IsArray(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindConstantArray, KindIncompleteArray, KindVariableArray:
		return true
	}
	return false
}

// IsFunction reports function types.
func (in *Interner) IsFunction(id TypeID) bool {
	tt, ok := in.Lookup(in.Canonical(id))
	return ok && tt.Kind == KindFunction
}

// IsComplete reports whether a type's size is known: records and enums must
// be refined, incomplete arrays and void never complete.
func (in *Interner) IsComplete(id TypeID) bool {
	canon := in.Canonical(id)
	tt, ok := in.Lookup(canon)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindRecord:
		info, ok := in.RecordInfo(canon)
		return ok && info.Complete
	case KindEnum:
		info, ok := in.EnumInfo(canon)
		return ok && info.Complete
	case KindIncompleteArray:
		return false
	case KindConstantArray:
		return in.IsComplete(tt.Elem.Type)
	case KindBuiltin:
		return tt.Builtin != BuiltinVoid
	case KindFunction:
		return false
	default:
		return true
	}
}

// Pointee returns the element type of a pointer after canonicalization.
func (in *Interner) Pointee(id TypeID) (QualType, bool) {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok || tt.Kind != KindPointer {
		return QualType{}, false
	}
	return tt.Elem, true
}

// ElemOf returns the element type of arrays, vectors, and complex types.
func (in *Interner) ElemOf(id TypeID) (QualType, bool) {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok {
		return QualType{}, false
	}
	switch tt.Kind {
	case KindConstantArray, KindIncompleteArray, KindVariableArray, KindVector, KindExtVector, KindComplex:
		return tt.Elem, true
	}
	return QualType{}, false
}
