package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"cinder/internal/source"
)

// Field describes a single member of a record. BitWidth is -1 for plain
// fields; padding fields synthesized by the layout engine never appear here.
type Field struct {
	Name     source.StringID
	Type     QualType
	BitWidth int32
	Span     source.Span
}

// IsBitField reports whether the field declared a bit width.
func (f Field) IsBitField() bool {
	return f.BitWidth >= 0
}

// RecordInfo stores the refinable payload of a record type. A record type is
// interned on first reference as an opaque placeholder; CompleteRecord
// refines it in place, so compound types built over the placeholder stay
// valid.
type RecordInfo struct {
	Tag    RecordTag
	Name   source.StringID
	Decl   DeclRef
	Span   source.Span
	Fields []Field
	// Pack is the #pragma pack cap in bytes active at the point of
	// definition; zero means natural alignment. Layout is a pure function
	// of the target, this cap, and the field sequence.
	Pack     uint8
	Complete bool
}

// EnumInfo stores the refinable payload of an enum type.
type EnumInfo struct {
	Name       source.StringID
	Decl       DeclRef
	Span       source.Span
	Underlying TypeID
	Complete   bool
}

// TypedefInfo stores the payload of a typedef type. Typedefs are never
// canonical; Underlying carries the aliased type plus its qualifiers.
type TypedefInfo struct {
	Name       source.StringID
	Decl       DeclRef
	Underlying QualType
}

// TypeOfInfo stores the payload of typeof(expr), filled once the analyzer
// has typed the operand.
type TypeOfInfo struct {
	Expr       ExprRef
	Underlying QualType
}

// RegisterRecord interns the nominal type for a record declaration. Repeated
// calls with the same handle return the same TypeID: this is the placeholder
// half of the placeholder-and-refine protocol.
func (in *Interner) RegisterRecord(decl DeclRef, tag RecordTag, name source.StringID, span source.Span) TypeID {
	if id, ok := in.byRecordDecl[decl]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.records))
	if err != nil {
		panic(fmt.Errorf("record info overflow: %w", err))
	}
	in.records = append(in.records, RecordInfo{Tag: tag, Name: name, Decl: decl, Span: span})
	id := in.internRaw(Type{Kind: KindRecord, Decl: decl, Payload: slot})
	in.byRecordDecl[decl] = id
	return id
}

// CompleteRecord refines a record placeholder with its field list. The
// TypeID is preserved; every compound type referencing it sees the
// refinement transparently. Completing twice is the caller's bug.
func (in *Interner) CompleteRecord(id TypeID, fields []Field, pack uint8) {
	info := in.recordInfo(id)
	if info == nil {
		return
	}
	if info.Complete {
		panic("types: record completed twice")
	}
	info.Fields = slices.Clone(fields)
	info.Pack = pack
	info.Complete = true
}

// RecordInfo returns metadata for a record TypeID.
func (in *Interner) RecordInfo(id TypeID) (*RecordInfo, bool) {
	info := in.recordInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// RecordByDecl returns the interned type for a record declaration handle.
func (in *Interner) RecordByDecl(decl DeclRef) (TypeID, bool) {
	id, ok := in.byRecordDecl[decl]
	return id, ok
}

// RegisterEnum interns the nominal type for an enum declaration.
func (in *Interner) RegisterEnum(decl DeclRef, name source.StringID, span source.Span) TypeID {
	if id, ok := in.byEnumDecl[decl]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.enums))
	if err != nil {
		panic(fmt.Errorf("enum info overflow: %w", err))
	}
	in.enums = append(in.enums, EnumInfo{Name: name, Decl: decl, Span: span})
	id := in.internRaw(Type{Kind: KindEnum, Decl: decl, Payload: slot})
	in.byEnumDecl[decl] = id
	return id
}

// CompleteEnum refines an enum placeholder with its underlying integer type.
func (in *Interner) CompleteEnum(id TypeID, underlying TypeID) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindEnum || tt.Payload == 0 || int(tt.Payload) >= len(in.enums) {
		return
	}
	info := &in.enums[tt.Payload]
	info.Underlying = underlying
	info.Complete = true
}

// EnumInfo returns metadata for an enum TypeID.
func (in *Interner) EnumInfo(id TypeID) (*EnumInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindEnum || tt.Payload == 0 || int(tt.Payload) >= len(in.enums) {
		return nil, false
	}
	return &in.enums[tt.Payload], true
}

// RegisterTypedef interns the type node for a typedef declaration.
func (in *Interner) RegisterTypedef(decl DeclRef, name source.StringID, underlying QualType) TypeID {
	if id, ok := in.byTypedefDecl[decl]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.typedefs))
	if err != nil {
		panic(fmt.Errorf("typedef info overflow: %w", err))
	}
	in.typedefs = append(in.typedefs, TypedefInfo{Name: name, Decl: decl, Underlying: underlying})
	id := in.internRaw(Type{Kind: KindTypedef, Decl: decl, Payload: slot})
	in.byTypedefDecl[decl] = id
	return id
}

// TypedefInfo returns metadata for a typedef TypeID.
func (in *Interner) TypedefInfo(id TypeID) (*TypedefInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypedef || tt.Payload == 0 || int(tt.Payload) >= len(in.typedefs) {
		return nil, false
	}
	return &in.typedefs[tt.Payload], true
}

// TypeOfExpr interns typeof(expr). The operand's type is refined in later
// via SetTypeOfUnderlying.
func (in *Interner) TypeOfExpr(expr ExprRef) TypeID {
	slot, err := safecast.Conv[uint32](len(in.typeofs))
	if err != nil {
		panic(fmt.Errorf("typeof info overflow: %w", err))
	}
	in.typeofs = append(in.typeofs, TypeOfInfo{Expr: expr})
	return in.internRaw(Type{Kind: KindTypeOfExpr, Size: expr, Payload: slot})
}

// SetTypeOfUnderlying records the resolved operand type of a typeof(expr).
func (in *Interner) SetTypeOfUnderlying(id TypeID, underlying QualType) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypeOfExpr || tt.Payload == 0 || int(tt.Payload) >= len(in.typeofs) {
		return
	}
	in.typeofs[tt.Payload].Underlying = underlying
}

// TypeOfInfo returns metadata for a typeof(expr) TypeID.
func (in *Interner) TypeOfInfo(id TypeID) (*TypeOfInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTypeOfExpr || tt.Payload == 0 || int(tt.Payload) >= len(in.typeofs) {
		return nil, false
	}
	return &in.typeofs[tt.Payload], true
}

func (in *Interner) recordInfo(id TypeID) *RecordInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindRecord {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.records) {
		return nil
	}
	return &in.records[tt.Payload]
}
