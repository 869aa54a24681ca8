package diag

import "cinder/internal/source"

// Reporter is the minimal sink contract the analysis phases emit into.
// Implementations: BagReporter, NopReporter, DedupReporter.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter stores every diagnostic in a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter discards diagnostics; used by speculative analyses such as
// overload-candidate probing.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// Builder accumulates diagnostic details before emitting to a Reporter.
type Builder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

// ReportError starts an error diagnostic.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *Builder {
	return report(r, SevError, code, primary, msg)
}

// ReportWarning starts a warning diagnostic.
func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *Builder {
	return report(r, SevWarning, code, primary, msg)
}

// ReportFatal starts a fatal diagnostic.
func ReportFatal(r Reporter, code Code, primary source.Span, msg string) *Builder {
	return report(r, SevFatal, code, primary, msg)
}

func report(r Reporter, sev Severity, code Code, primary source.Span, msg string) *Builder {
	return &Builder{
		reporter: r,
		diag: Diagnostic{
			Severity: sev,
			Code:     code,
			Message:  msg,
			Primary:  primary,
		},
	}
}

// WithNote appends a secondary location.
func (b *Builder) WithNote(sp source.Span, msg string) *Builder {
	if b == nil {
		return nil
	}
	b.diag.Notes = append(b.diag.Notes, Note{Span: sp, Msg: msg})
	return b
}

// WithArg appends a structured message argument.
func (b *Builder) WithArg(a Arg) *Builder {
	if b == nil {
		return nil
	}
	b.diag.Args = append(b.diag.Args, a)
	return b
}

// Emit sends the diagnostic to the underlying reporter exactly once.
func (b *Builder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag)
	}
	b.emitted = true
}

// Diagnostic returns the accumulated record without emitting it.
func (b *Builder) Diagnostic() Diagnostic {
	if b == nil {
		return Diagnostic{}
	}
	return b.diag
}
