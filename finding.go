package schematron

// Severity classifies findings.
type Severity string

const (
	// SeverityError marks failed assertions, fired reports, and engine
	// diagnostics.
	SeverityError Severity = "error"
	// SeveritySuccess marks the aggregate finding appended when a run
	// produced no errors.
	SeveritySuccess Severity = "success"
)

// Location is the 1-based source position of the subject node a finding
// refers to.
type Location struct {
	Line   int
	Column int
}

// Finding is one reported outcome of a validation run.
type Finding struct {
	Severity Severity
	Message  string
	// Location points at the matched node's start tag; nil for findings
	// not tied to a node, such as ruleset diagnostics.
	Location *Location
	// Pattern is the id or title of the originating pattern, when any.
	Pattern string
	// Rule is the context expression of the originating rule, when any.
	Rule string
	// Check is "assert" or "report" for check findings, empty otherwise.
	Check string
}

// IsError reports whether the finding carries error severity.
func (f Finding) IsError() bool {
	return f.Severity == SeverityError
}

// HasErrors reports whether any finding in the list carries error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.IsError() {
			return true
		}
	}
	return false
}
