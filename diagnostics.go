package taproot

import "fmt"

// Severity grades a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a structured per-item failure report. Batch operations
// return a result bundle plus a diagnostics list; per-file and
// per-match problems land here instead of aborting the run.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	File     string
	Line     int
	Col      int
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s:%d:%d", d.Severity, d.Code, d.Message, d.File, d.Line, d.Col)
}

// HasErrors reports whether any diagnostic is error-severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
