package source

import "testing"

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("tu.c", []byte("int a;\nint b;\nint c;\n"))

	start, _ := fs.Resolve(Span{File: id, Start: 0, End: 3})
	if start.Line != 1 || start.Col != 1 {
		t.Fatalf("offset 0 resolved to %d:%d, want 1:1", start.Line, start.Col)
	}
	start, end := fs.Resolve(Span{File: id, Start: 11, End: 12})
	if start.Line != 2 || start.Col != 5 {
		t.Fatalf("offset 11 resolved to %d:%d, want 2:5", start.Line, start.Col)
	}
	if end.Line != 2 {
		t.Fatalf("span end on line %d, want 2", end.Line)
	}
}

func TestFileSetNormalizesCRLF(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("win.c", []byte("a\r\nb\r\n"), 0)
	f := fs.Get(id)
	if string(f.Content) != "a\r\nb\r\n" {
		t.Fatalf("Add must not rewrite content")
	}

	content, changed := normalizeCRLF([]byte("a\r\nb\rc\r\n"))
	if !changed {
		t.Fatalf("expected CRLF normalization")
	}
	if string(content) != "a\nb\rc\n" {
		t.Fatalf("got %q after normalization", content)
	}
}

func TestFileSetLatestWins(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("tu.c", []byte("old"))
	second := fs.AddVirtual("tu.c", []byte("new"))
	got, ok := fs.Lookup("tu.c")
	if !ok || got != second {
		t.Fatalf("Lookup = (%v, %v), want latest id %v", got, ok, second)
	}
}
