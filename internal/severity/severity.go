// Package severity provides severity levels for issues recorded while
// normalizing specs and generating toolsets.
//
// The levels are ordered from least to most severe: Info < Warning < Error.
package severity

// Severity indicates how much attention a recorded issue needs.
type Severity int

const (
	// SeverityInfo records a processing choice, such as an operation filtered
	// out by configuration.
	SeverityInfo Severity = iota

	// SeverityWarning records something the generator recovered from, such as
	// a dropped operation or a renamed duplicate operation id.
	SeverityWarning

	// SeverityError records a failure that aborted a unit.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Symbol returns the single-character marker used in CLI output.
func (s Severity) Symbol() string {
	switch s {
	case SeverityInfo:
		return "ℹ"
	case SeverityWarning:
		return "⚠"
	case SeverityError:
		return "✗"
	default:
		return "?"
	}
}
