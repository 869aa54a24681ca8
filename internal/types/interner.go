package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the pre-interned builtin types.
type Builtins struct {
	Invalid    TypeID
	Void       TypeID
	Bool       TypeID
	Char       TypeID
	SChar      TypeID
	UChar      TypeID
	Short      TypeID
	UShort     TypeID
	Int        TypeID
	UInt       TypeID
	Long       TypeID
	ULong      TypeID
	LongLong   TypeID
	ULongLong  TypeID
	Float      TypeID
	Double     TypeID
	LongDouble TypeID
}

// Interner owns every type of a translation unit and provides stable TypeIDs
// by hashing structural descriptors. Semantic equality of two types is
// pointer identity of their canonical IDs.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins

	fns      []FnInfo
	fnIndex  map[string]TypeID
	records  []RecordInfo
	enums    []EnumInfo
	typedefs []TypedefInfo
	typeofs  []TypeOfInfo

	byRecordDecl  map[DeclRef]TypeID
	byEnumDecl    map[DeclRef]TypeID
	byTypedefDecl map[DeclRef]TypeID
}

// NewInterner constructs an interner seeded with the builtin primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:         make(map[Type]TypeID, 64),
		fnIndex:       make(map[string]TypeID, 16),
		byRecordDecl:  make(map[DeclRef]TypeID, 8),
		byEnumDecl:    make(map[DeclRef]TypeID, 4),
		byTypedefDecl: make(map[DeclRef]TypeID, 8),
	}
	// Slot 0 in every side table is an invalid sentinel.
	in.fns = append(in.fns, FnInfo{})
	in.records = append(in.records, RecordInfo{})
	in.enums = append(in.enums, EnumInfo{})
	in.typedefs = append(in.typedefs, TypedefInfo{})
	in.typeofs = append(in.typeofs, TypeOfInfo{})

	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	b := func(k BuiltinKind) TypeID { return in.Intern(Type{Kind: KindBuiltin, Builtin: k}) }
	in.builtins.Void = b(BuiltinVoid)
	in.builtins.Bool = b(BuiltinBool)
	in.builtins.Char = b(BuiltinChar)
	in.builtins.SChar = b(BuiltinSChar)
	in.builtins.UChar = b(BuiltinUChar)
	in.builtins.Short = b(BuiltinShort)
	in.builtins.UShort = b(BuiltinUShort)
	in.builtins.Int = b(BuiltinInt)
	in.builtins.UInt = b(BuiltinUInt)
	in.builtins.Long = b(BuiltinLong)
	in.builtins.ULong = b(BuiltinULong)
	in.builtins.LongLong = b(BuiltinLongLong)
	in.builtins.ULongLong = b(BuiltinULongLong)
	in.builtins.Float = b(BuiltinFloat)
	in.builtins.Double = b(BuiltinDouble)
	in.builtins.LongDouble = b(BuiltinLongDouble)
	return in
}

// Builtins returns TypeIDs for the builtin primitives.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports the number of interned types, the invalid sentinel included.
func (in *Interner) Len() int {
	return len(in.types)
}

// Compound constructors ------------------------------------------------------

// Pointer interns a pointer to pointee in the given address space.
func (in *Interner) Pointer(pointee QualType, addrSpace uint8) TypeID {
	return in.Intern(Type{Kind: KindPointer, Elem: pointee, Addr: addrSpace})
}

// Reference interns a C++ reference type.
func (in *Interner) Reference(referenced QualType) TypeID {
	return in.Intern(Type{Kind: KindReference, Elem: referenced})
}

// MemberPointer interns a pointer-to-member of class.
func (in *Interner) MemberPointer(class TypeID, pointee QualType) TypeID {
	return in.Intern(Type{Kind: KindMemberPointer, Class: class, Elem: pointee})
}

// Complex interns _Complex over a floating element.
func (in *Interner) Complex(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindComplex, Elem: MakeQual(elem)})
}

// ConstantArray interns elem[n].
func (in *Interner) ConstantArray(elem QualType, n uint32) TypeID {
	return in.Intern(Type{Kind: KindConstantArray, Elem: elem, Count: n})
}

// IncompleteArray interns elem[].
func (in *Interner) IncompleteArray(elem QualType) TypeID {
	return in.Intern(Type{Kind: KindIncompleteArray, Elem: elem})
}

// VariableArray interns elem[size-expr]. VLA types are identified by their
// size expression, so two textually identical VLAs stay distinct.
func (in *Interner) VariableArray(elem QualType, size ExprRef) TypeID {
	return in.Intern(Type{Kind: KindVariableArray, Elem: elem, Size: size})
}

// Vector interns a GCC-style vector of n elements.
func (in *Interner) Vector(elem TypeID, n uint32) TypeID {
	return in.Intern(Type{Kind: KindVector, Elem: MakeQual(elem), Count: n})
}

// ExtVector interns an OpenCL-style ext_vector of n elements.
func (in *Interner) ExtVector(elem TypeID, n uint32) TypeID {
	return in.Intern(Type{Kind: KindExtVector, Elem: MakeQual(elem), Count: n})
}

// TypeOfType interns typeof(T). Never canonical.
func (in *Interner) TypeOfType(payload QualType) TypeID {
	return in.Intern(Type{Kind: KindTypeOfType, Elem: payload})
}
