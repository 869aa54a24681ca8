package diag

import (
	"fmt"
	"sort"
)

// Bag accumulates diagnostics for one translation unit. It is append-only
// under the single-thread discipline of the core.
type Bag struct {
	items []Diagnostic
	max   int
	fatal bool
}

// NewBag creates a bag that stops accepting diagnostics after max entries.
func NewBag(max int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, max),
		max:   max,
	}
}

// Add appends a diagnostic, honoring the cap. Fatal diagnostics always fit
// and mark the bag so the pipeline can abort the unit.
func (b *Bag) Add(d Diagnostic) bool {
	if d.Severity == SevFatal {
		b.fatal = true
		b.items = append(b.items, d)
		return true
	}
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// HasErrors reports whether any diagnostic is an error or worse.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Fatal reports whether a fatal diagnostic was recorded.
func (b *Bag) Fatal() bool {
	return b.fatal
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns a read-only view of the recorded diagnostics.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends all diagnostics from other, growing the cap if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
	b.fatal = b.fatal || other.fatal
}

// Sort orders diagnostics by file, span, severity (descending), code. Notes
// never move relative to the diagnostic they follow: a note inherits the sort
// key of the closest preceding non-note entry.
func (b *Bag) Sort() {
	type keyed struct {
		d     Diagnostic
		key   Diagnostic // sort key owner
		order int
	}
	ks := make([]keyed, len(b.items))
	lastOwner := 0
	for i, d := range b.items {
		if d.Severity != SevNote {
			lastOwner = i
		}
		ks[i] = keyed{d: d, key: b.items[lastOwner], order: i}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		di, dj := ks[i].key, ks[j].key
		if di.Primary.File != dj.Primary.File {
			return di.Primary.File < dj.Primary.File
		}
		if di.Primary.Start != dj.Primary.Start {
			return di.Primary.Start < dj.Primary.Start
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return ks[i].order < ks[j].order
	})
	for i := range ks {
		b.items[i] = ks[i].d
	}
}

// Dedup drops diagnostics that repeat an earlier code+span pair.
func (b *Bag) Dedup() {
	seen := make(map[string]bool, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		key := fmt.Sprintf("%s:%s:%s", d.Code, d.Primary, d.Message)
		if d.Severity != SevNote && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	b.items = out
}
