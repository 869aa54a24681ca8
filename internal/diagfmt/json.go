package diagfmt

import (
	"encoding/json"
	"io"

	"cinder/internal/diag"
	"cinder/internal/source"
)

// JSONOpts configures the machine-readable diagnostic form.
type JSONOpts struct {
	// Max truncates the output, not the bag; zero means everything.
	Max int
}

type jsonDiagnostic struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	File     string     `json:"file,omitempty"`
	Line     uint32     `json:"line,omitempty"`
	Col      uint32     `json:"col,omitempty"`
	Notes    []jsonNote `json:"notes,omitempty"`
}

type jsonNote struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    uint32 `json:"line,omitempty"`
	Col     uint32 `json:"col,omitempty"`
}

// JSON writes the bag as a JSON array of diagnostics.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}
	out := make([]jsonDiagnostic, 0, len(items))
	for _, d := range items {
		jd := jsonDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Message:  d.Message,
		}
		jd.File, jd.Line, jd.Col = resolve(fs, d.Primary)
		for _, n := range d.Notes {
			jn := jsonNote{Message: n.Msg}
			jn.File, jn.Line, jn.Col = resolve(fs, n.Span)
			jd.Notes = append(jd.Notes, jn)
		}
		out = append(out, jd)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func resolve(fs *source.FileSet, sp source.Span) (string, uint32, uint32) {
	f := file(fs, sp)
	if f == nil {
		return "", 0, 0
	}
	start, _ := fs.Resolve(sp)
	return f.Path, start.Line, start.Col
}
