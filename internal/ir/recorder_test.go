package ir

import (
	"strings"
	"testing"

	"cinder/internal/source"
)

func TestRecorderLogsEmissionOrder(t *testing.T) {
	fn, bt := newTestFunc(t)
	r := NewRecorder(fn)

	entry := r.NewBlock("entry")
	exit := r.NewBlock("exit")
	r.SetInsertPoint(entry)
	slot := r.StaticAlloca(bt.Int, bt.Int, 32, source.Span{})
	r.Store(slot, r.ConstInt(bt.Int, 5), false, source.Span{})
	r.Br(exit)
	r.SetInsertPoint(exit)
	v := r.Load(bt.Int, slot, false, source.Span{})
	r.Ret(v)

	want := []string{
		"block b0 entry",
		"block b1 exit",
		"insert b0",
		"alloca",
		"store",
		"br b1",
		"insert b1",
		"load",
		"ret",
	}
	if len(r.Log) != len(want) {
		t.Fatalf("log length = %d, want %d: %v", len(r.Log), len(want), r.Log)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(r.Log[i], prefix) {
			t.Fatalf("log[%d] = %q, want prefix %q", i, r.Log[i], prefix)
		}
	}
	if err := ValidateFunc(r.Func()); err != nil {
		t.Fatalf("recorded function invalid: %v", err)
	}
}
