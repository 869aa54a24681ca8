package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevNote attaches context to the immediately preceding diagnostic.
	SevNote Severity = iota
	// SevWarning flags suspicious but legal constructs.
	SevWarning
	// SevError marks the containing declaration invalid.
	SevError
	// SevFatal aborts the current translation unit.
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevNote:
		return "note"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	case SevFatal:
		return "fatal"
	}
	return "unknown"
}
