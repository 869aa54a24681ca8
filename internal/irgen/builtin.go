package irgen

import (
	"strings"

	"cinder/internal/ast"
	"cinder/internal/diag"
	"cinder/internal/ir"
	"cinder/internal/target"
	"cinder/internal/types"
)

// builtinCall lowers a call whose callee resolved to a target builtin.
// Builtins with an intrinsic form lower to one; the rest fall back to a
// library call of the same name when the table allows it.
func (l *lowering) builtinCall(id ast.ExprID, e *ast.Expr) ir.ValueID {
	row, ok := l.g.Target.Builtin(e.Call.Builtin)
	if !ok {
		diag.ReportError(l.g.Reporter, diag.IRUnsupportedBuiltin, e.Span,
			"unknown builtin").Emit()
		return ir.NoValueID
	}
	canon := l.canonOf(id)

	switch row.Name {
	case "__builtin_bswap16", "__builtin_bswap32", "__builtin_bswap64":
		return l.b.Intrinsic(ir.IntrBswap, canon, l.scalarArgs(e, 1), e.Span)
	case "__builtin_clz":
		return l.b.Intrinsic(ir.IntrClz, canon, l.scalarArgs(e, 1), e.Span)
	case "__builtin_ctz":
		return l.b.Intrinsic(ir.IntrCtz, canon, l.scalarArgs(e, 1), e.Span)
	case "__builtin_popcount":
		return l.b.Intrinsic(ir.IntrPopcount, canon, l.scalarArgs(e, 1), e.Span)

	case "__builtin_abs":
		return l.absValue(canon, e)

	case "__builtin_memcpy":
		args := l.scalarArgs(e, 3)
		l.b.Intrinsic(ir.IntrMemcpy, types.NoTypeID, args, e.Span)
		return args[0]
	case "__builtin_memset":
		args := l.scalarArgs(e, 3)
		l.b.Intrinsic(ir.IntrMemset, types.NoTypeID, args, e.Span)
		return args[0]

	case "__builtin_va_start":
		l.b.Intrinsic(ir.IntrVAStart, types.NoTypeID, l.scalarArgs(e, 1), e.Span)
		return ir.NoValueID
	case "__builtin_va_end":
		l.b.Intrinsic(ir.IntrVAEnd, types.NoTypeID, l.scalarArgs(e, 1), e.Span)
		return ir.NoValueID
	case "__builtin_va_copy":
		l.b.Intrinsic(ir.IntrVACopy, types.NoTypeID, l.scalarArgs(e, 2), e.Span)
		return ir.NoValueID

	case "__builtin_setjmp":
		return l.b.Intrinsic(ir.IntrSetjmp, canon, l.scalarArgs(e, 1), e.Span)
	case "__builtin_longjmp":
		l.b.Intrinsic(ir.IntrLongjmp, types.NoTypeID, l.scalarArgs(e, 2), e.Span)
		l.b.Unreachable()
		return ir.NoValueID

	case "__builtin_prefetch":
		l.b.Intrinsic(ir.IntrPrefetch, types.NoTypeID, l.scalarArgs(e, len(e.Call.Args)), e.Span)
		return ir.NoValueID

	case "__sync_synchronize":
		l.b.Intrinsic(ir.IntrFence, types.NoTypeID, nil, e.Span)
		return ir.NoValueID
	case "__sync_fetch_and_add":
		return l.syncRMW(ir.IntrAtomicAdd, canon, e)
	case "__sync_fetch_and_sub":
		return l.syncRMW(ir.IntrAtomicSub, canon, e)
	case "__sync_val_compare_and_swap":
		l.b.Intrinsic(ir.IntrFence, types.NoTypeID, nil, e.Span)
		v := l.b.Intrinsic(ir.IntrAtomicCmpXchg, canon, l.scalarArgs(e, 3), e.Span)
		l.b.Intrinsic(ir.IntrFence, types.NoTypeID, nil, e.Span)
		return v
	}

	if row.Attrs&target.BuiltinLibFunction != 0 {
		return l.libcall(e, libNameOf(row.Name), e.Span)
	}
	diag.ReportError(l.g.Reporter, diag.IRUnsupportedBuiltin, e.Span,
		"builtin has no lowering: "+row.Name).Emit()
	return ir.NoValueID
}

// scalarArgs lowers the first n call arguments as scalars.
func (l *lowering) scalarArgs(e *ast.Expr, n int) []ir.ValueID {
	if n > len(e.Call.Args) {
		n = len(e.Call.Args)
	}
	args := make([]ir.ValueID, 0, n)
	for _, a := range e.Call.Args[:n] {
		args = append(args, l.scalar(a))
	}
	return args
}

// absValue lowers __builtin_abs without a libcall: v < 0 ? -v : v.
func (l *lowering) absValue(canon types.TypeID, e *ast.Expr) ir.ValueID {
	if len(e.Call.Args) == 0 {
		return ir.NoValueID
	}
	bt := l.g.Unit.Types.Builtins()
	v := l.scalar(e.Call.Args[0])
	zero := l.b.ConstInt(canon, 0)
	neg := l.b.Bin(ir.BinSub, canon, zero, v, false, false, e.Span)
	isNeg := l.b.Cmp(ir.CmpLT, bt.Bool, v, zero, false, false, e.Span)
	return l.b.Select(canon, isNeg, neg, v, e.Span)
}

// syncRMW emits a legacy __sync read-modify-write: the operation is
// bracketed by full fences.
func (l *lowering) syncRMW(intr ir.IntrinsicID, canon types.TypeID, e *ast.Expr) ir.ValueID {
	l.b.Intrinsic(ir.IntrFence, types.NoTypeID, nil, e.Span)
	v := l.b.Intrinsic(intr, canon, l.scalarArgs(e, 2), e.Span)
	l.b.Intrinsic(ir.IntrFence, types.NoTypeID, nil, e.Span)
	return v
}

// libNameOf strips the __builtin_ prefix for the library fallback.
func libNameOf(name string) string {
	return strings.TrimPrefix(name, "__builtin_")
}
