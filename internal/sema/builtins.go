package sema

import (
	"math/bits"

	"cinder/internal/ast"
	"cinder/internal/target"
)

// foldBuiltin folds a call to a const-attributed builtin whose arguments are
// all integer constants.
func (s *Sema) foldBuiltin(e *ast.Expr) (ConstValue, bool) {
	b, ok := s.Target.Builtin(e.Call.Builtin)
	if !ok || b.Attrs&target.BuiltinConst == 0 {
		return ConstValue{}, false
	}
	args := make([]int64, len(e.Call.Args))
	se := false
	for i, a := range e.Call.Args {
		v := s.eval(a, 1)
		if v.Kind != ConstInt {
			return ConstValue{}, false
		}
		args[i] = v.Int
		se = se || v.SideEffects
	}
	if len(args) != 1 {
		return ConstValue{}, false
	}
	x := args[0]
	var out int64
	switch b.Name {
	case "__builtin_abs", "__builtin_labs", "__builtin_llabs":
		if x < 0 {
			x = -x
		}
		out = x
	case "__builtin_bswap16":
		out = int64(bits.ReverseBytes16(uint16(x)))
	case "__builtin_bswap32":
		out = int64(bits.ReverseBytes32(uint32(x)))
	case "__builtin_bswap64":
		out = int64(bits.ReverseBytes64(uint64(x)))
	case "__builtin_clz":
		out = int64(bits.LeadingZeros32(uint32(x)))
	case "__builtin_ctz":
		out = int64(bits.TrailingZeros32(uint32(x)))
	case "__builtin_clzll":
		out = int64(bits.LeadingZeros64(uint64(x)))
	case "__builtin_ctzll":
		out = int64(bits.TrailingZeros64(uint64(x)))
	case "__builtin_popcount":
		out = int64(bits.OnesCount32(uint32(x)))
	case "__builtin_popcountll":
		out = int64(bits.OnesCount64(uint64(x)))
	default:
		return ConstValue{}, false
	}
	return ConstValue{Kind: ConstInt, Int: out, SideEffects: se}, true
}
