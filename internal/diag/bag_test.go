package diag

import (
	"testing"

	"cinder/internal/source"
)

func at(start uint32) source.Span {
	return source.Span{File: 1, Start: start, End: start + 1}
}

func TestBagCapAndFatal(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(Diagnostic{Severity: SevError, Code: SemaRedefinition, Primary: at(1)}) {
		t.Fatalf("first add must succeed")
	}
	bag.Add(Diagnostic{Severity: SevWarning, Code: FlowDeadStore, Primary: at(2)})
	if bag.Add(Diagnostic{Severity: SevWarning, Code: FlowDeadStore, Primary: at(3)}) {
		t.Fatalf("cap exceeded")
	}
	if !bag.Add(Diagnostic{Severity: SevFatal, Code: InternalError, Primary: at(4)}) {
		t.Fatalf("fatal diagnostics bypass the cap")
	}
	if !bag.Fatal() || !bag.HasErrors() {
		t.Fatalf("bag must record fatal and error state")
	}
}

func TestBagSortKeepsNotesAttached(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Severity: SevError, Code: SemaRedefinition, Message: "redef", Primary: at(50)})
	bag.Add(Diagnostic{Severity: SevNote, Code: SemaRedefinition, Message: "previous here", Primary: at(10)})
	bag.Add(Diagnostic{Severity: SevError, Code: SemaNameNotFound, Message: "unknown", Primary: at(5)})
	bag.Sort()

	items := bag.Items()
	if items[0].Message != "unknown" {
		t.Fatalf("first after sort = %q", items[0].Message)
	}
	if items[1].Message != "redef" || items[2].Message != "previous here" {
		t.Fatalf("note detached from its owner: %q then %q", items[1].Message, items[2].Message)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	d := Diagnostic{Severity: SevError, Code: SemaTypeMismatch, Message: "dup", Primary: at(7)}
	r.Report(d)
	r.Report(d)
	if bag.Len() != 1 {
		t.Fatalf("duplicate not suppressed, len=%d", bag.Len())
	}
}

func TestBuilderEmitOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportError(BagReporter{Bag: bag}, SemaNameNotFound, at(3), "no such name").
		WithNote(at(1), "did you mean this").
		WithArg(Arg{Kind: ArgIdentifier, Text: "x"})
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("builder emitted %d times", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 || len(bag.Items()[0].Args) != 1 {
		t.Fatalf("notes/args lost")
	}
}
