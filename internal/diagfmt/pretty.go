// Package diagfmt renders diagnostics and compiler data structures for the
// CLI: the pretty diagnostic form with carets and color, a JSON form for
// tooling, an AST tree dump, and record layout tables.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"cinder/internal/diag"
	"cinder/internal/source"
)

// PrettyOpts configures the human-readable diagnostic form.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
}

var (
	fatalColor = color.New(color.FgRed, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	noteColor  = color.New(color.FgCyan)
	posColor   = color.New(color.Bold)
)

// Pretty renders every diagnostic of the bag, one per line, as
// <path>:<line>:<col>: <severity> <code>: <message>, followed by the source
// line with a caret underline when the file set knows the span, then the
// notes in the same shape. The bag is expected sorted.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		sev := d.Severity.String()
		if opts.Color {
			sev = severityColor(d.Severity).Sprint(sev)
		}
		fmt.Fprintf(w, "%s %s %s: %s\n", position(fs, d.Primary, opts), sev, d.Code, d.Message)
		underline(w, fs, d.Primary, opts)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			label := "note"
			if opts.Color {
				label = noteColor.Sprint(label)
			}
			fmt.Fprintf(w, "%s %s: %s\n", position(fs, n.Span, opts), label, n.Msg)
			underline(w, fs, n.Span, opts)
		}
	}
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevFatal:
		return fatalColor
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return noteColor
	}
}

// position renders path:line:col, falling back to raw offsets when the span
// does not resolve to a loaded file.
func position(fs *source.FileSet, sp source.Span, opts PrettyOpts) string {
	var pos string
	if f := file(fs, sp); f != nil {
		start, _ := fs.Resolve(sp)
		pos = fmt.Sprintf("%s:%d:%d:", f.Path, start.Line, start.Col)
	} else {
		pos = fmt.Sprintf("<input>:%d:", sp.Start)
	}
	if opts.Color {
		pos = posColor.Sprint(pos)
	}
	return pos
}

// underline prints the source line with a ^~~~ marker under the span.
func underline(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	f := file(fs, sp)
	if f == nil || sp.Empty() {
		return
	}
	start, end := fs.Resolve(sp)
	line := lineContent(f, start.Line)
	if line == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		width = int(end.Col - start.Col)
	}
	marker := "^" + strings.Repeat("~", width-1)
	if opts.Color {
		marker = severityColor(diag.SevError).Sprint(marker)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", int(start.Col-1)), marker)
}

func file(fs *source.FileSet, sp source.Span) *source.File {
	if fs == nil || int(sp.File) >= fs.Len() {
		return nil
	}
	return fs.Get(sp.File)
}

// lineContent extracts one source line. LineIdx holds the offset of each
// newline, so line n spans (LineIdx[n-2], LineIdx[n-1]].
func lineContent(f *source.File, line uint32) string {
	if line == 0 || int(line) > len(f.LineIdx)+1 {
		return ""
	}
	start := uint32(0)
	if line > 1 {
		start = f.LineIdx[line-2] + 1
	}
	end := uint32(len(f.Content))
	if int(line) <= len(f.LineIdx) {
		end = f.LineIdx[line-1]
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}
