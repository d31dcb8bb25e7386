// Package issues provides the issue type recorded while normalizing specs.
package issues

import (
	"fmt"

	"github.com/erraggy/toolsetgen/internal/severity"
	"github.com/erraggy/toolsetgen/tserrors"
)

// Issue is a single problem or notice recorded for a generation unit.
type Issue struct {
	// Path locates the issue in the raw spec (e.g., "paths./files.upload.post")
	Path string
	// Message is a human-readable description of the issue
	Message string
	// Severity indicates the severity level of the issue
	Severity severity.Severity
	// Kind is the error kind behind the issue, if any
	Kind tserrors.Kind
	// OperationID is the canonical or raw operation id the issue refers to
	OperationID string
}

// String returns a formatted string representation of the issue.
func (i Issue) String() string {
	loc := i.Path
	if i.OperationID != "" {
		loc = fmt.Sprintf("%s (%s)", i.Path, i.OperationID)
	}
	if i.Kind != tserrors.KindNone {
		return fmt.Sprintf("%s %s: [%s] %s", i.Severity.Symbol(), loc, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", i.Severity.Symbol(), loc, i.Message)
}

// FromError builds a warning issue from a recovered error.
func FromError(path string, err error) Issue {
	return Issue{
		Path:     path,
		Message:  err.Error(),
		Severity: severity.SeverityWarning,
		Kind:     tserrors.KindOf(err),
	}
}

// Count returns the number of issues at or above the given severity.
func Count(list []Issue, min severity.Severity) int {
	n := 0
	for _, i := range list {
		if i.Severity >= min {
			n++
		}
	}
	return n
}
