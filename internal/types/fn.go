package types

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"
)

// FnInfo stores the variable-length payload of function types.
type FnInfo struct {
	Result   QualType
	Params   []QualType
	Variadic bool
	// Proto distinguishes `int f(void)` from the K&R no-prototype `int f()`.
	Proto bool
}

// Function creates or finds a prototyped function type.
func (in *Interner) Function(result QualType, params []QualType, variadic bool) TypeID {
	return in.function(FnInfo{
		Result:   result,
		Params:   slices.Clone(params),
		Variadic: variadic,
		Proto:    true,
	})
}

// FunctionNoProto creates or finds a no-prototype function type.
func (in *Interner) FunctionNoProto(result QualType) TypeID {
	return in.function(FnInfo{Result: result})
}

func (in *Interner) function(info FnInfo) TypeID {
	key := fnKey(info)
	if id, ok := in.fnIndex[key]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.fns))
	if err != nil {
		panic(fmt.Errorf("fn info overflow: %w", err))
	}
	in.fns = append(in.fns, info)
	id := in.internRaw(Type{Kind: KindFunction, Payload: slot})
	in.fnIndex[key] = id
	return id
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFunction {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

func fnKey(info FnInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d", info.Result.Type, info.Result.Quals)
	if info.Proto {
		sb.WriteByte('p')
	}
	for _, p := range info.Params {
		fmt.Fprintf(&sb, ",%d.%d", p.Type, p.Quals)
	}
	if info.Variadic {
		sb.WriteString(",...")
	}
	return sb.String()
}
