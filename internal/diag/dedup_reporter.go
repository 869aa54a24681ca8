package diag

import "cinder/internal/source"

type dedupKey struct {
	code  Code
	sev   Severity
	file  source.FileID
	start uint32
	end   uint32
	msg   string
}

// DedupReporter wraps another Reporter and suppresses duplicate diagnostics
// with the same code, severity, primary span and message. Notes pass through
// untouched so they stay attached to their owner.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{
		next: next,
		seen: make(map[dedupKey]struct{}),
	}
}

func (r *DedupReporter) Report(d Diagnostic) {
	if r == nil {
		return
	}
	if d.Severity != SevNote {
		key := dedupKey{
			code:  d.Code,
			sev:   d.Severity,
			file:  d.Primary.File,
			start: d.Primary.Start,
			end:   d.Primary.End,
			msg:   d.Message,
		}
		if _, ok := r.seen[key]; ok {
			return
		}
		r.seen[key] = struct{}{}
	}
	if r.next != nil {
		r.next.Report(d)
	}
}
