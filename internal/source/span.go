package source

import "fmt"

// Span is a half-open byte range inside one file. The parser hands spans to
// the semantic analyzer; diagnostics carry them back out.
type Span struct {
	File  FileID
	Start uint32 // inclusive, bytes
	End   uint32 // exclusive, bytes
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover widens the span to include other. Spans from different files are
// left untouched.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
