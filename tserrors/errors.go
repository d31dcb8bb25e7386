package tserrors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrConfigNotFound indicates an unknown provider or api.
	ErrConfigNotFound = errors.New("config not found")

	// ErrConfigInvalid indicates a configuration record failed validation.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrSpecUnavailable indicates the spec source could not be read.
	ErrSpecUnavailable = errors.New("spec unavailable")

	// ErrSpecMalformed indicates the raw spec failed structural validation.
	ErrSpecMalformed = errors.New("spec malformed")

	// ErrUnsupportedOperation indicates an operation the generator cannot represent.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrContextIncomplete indicates a template-required variable is missing.
	ErrContextIncomplete = errors.New("context incomplete")

	// ErrTemplateNotFound indicates no template matches the request.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrRender indicates template execution or source formatting failed.
	ErrRender = errors.New("render failed")

	// ErrOutputWriteFailed indicates generated output could not be persisted.
	ErrOutputWriteFailed = errors.New("output write failed")

	// ErrTimeout indicates the run deadline passed before the unit finished.
	ErrTimeout = errors.New("timeout")
)

// Kind names an error category in results and reports.
type Kind string

// Error kinds, one per sentinel.
const (
	KindNone                 Kind = ""
	KindConfigNotFound       Kind = "ConfigNotFound"
	KindConfigInvalid        Kind = "ConfigInvalid"
	KindSpecUnavailable      Kind = "SpecUnavailable"
	KindSpecMalformed        Kind = "SpecMalformed"
	KindUnsupportedOperation Kind = "UnsupportedOperation"
	KindContextIncomplete    Kind = "ContextIncomplete"
	KindTemplateNotFound     Kind = "TemplateNotFound"
	KindRender               Kind = "RenderFailed"
	KindOutputWriteFailed    Kind = "OutputWriteFailed"
	KindTimeout              Kind = "Timeout"
	KindUnknown              Kind = "Unknown"
)

var kindOrder = []struct {
	sentinel error
	kind     Kind
}{
	{ErrTimeout, KindTimeout},
	{ErrConfigNotFound, KindConfigNotFound},
	{ErrConfigInvalid, KindConfigInvalid},
	{ErrSpecUnavailable, KindSpecUnavailable},
	{ErrSpecMalformed, KindSpecMalformed},
	{ErrUnsupportedOperation, KindUnsupportedOperation},
	{ErrContextIncomplete, KindContextIncomplete},
	{ErrTemplateNotFound, KindTemplateNotFound},
	{ErrRender, KindRender},
	{ErrOutputWriteFailed, KindOutputWriteFailed},
}

// KindOf classifies err. It returns KindNone for a nil error and KindUnknown
// for errors outside the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindUnknown
}

// ConfigError represents a configuration lookup or validation failure.
type ConfigError struct {
	// Provider is the provider id being resolved
	Provider string
	// API is the api name being resolved
	API string
	// Field names the offending field, if any
	Field string
	// NotFound is true when the provider or api does not exist
	NotFound bool
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "config invalid"
	if e.NotFound {
		msg = "config not found"
	}
	if unit := unitName(e.Provider, e.API); unit != "" {
		msg += " for " + unit
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	if e.NotFound {
		return target == ErrConfigNotFound
	}
	return target == ErrConfigInvalid
}

// SpecError represents a failure to acquire or structurally validate a spec.
type SpecError struct {
	// Source is the spec reference (URL, path, or custom:// id)
	Source string
	// Unavailable is true for network or I/O failures
	Unavailable bool
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *SpecError) Error() string {
	msg := "spec malformed"
	if e.Unavailable {
		msg = "spec unavailable"
	}
	if e.Source != "" {
		msg += " at " + e.Source
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *SpecError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *SpecError) Is(target error) bool {
	if e.Unavailable {
		return target == ErrSpecUnavailable
	}
	return target == ErrSpecMalformed
}

// OperationError describes a single operation dropped during normalization.
type OperationError struct {
	// Method is the HTTP method, upper case
	Method string
	// Path is the path template
	Path string
	// OperationID is the raw operation id, if present
	OperationID string
	// Message describes why the operation cannot be represented
	Message string
}

// Error returns a human-readable error message.
func (e *OperationError) Error() string {
	msg := "unsupported operation"
	if e.Method != "" || e.Path != "" {
		msg += " " + strings.TrimSpace(e.Method+" "+e.Path)
	}
	if e.OperationID != "" {
		msg += fmt.Sprintf(" (%s)", e.OperationID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *OperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// ContextError represents a render context that cannot satisfy its template.
type ContextError struct {
	// Template is the template id the context was built for
	Template string
	// Missing lists required variables absent from the context, sorted
	Missing []string
	// Message provides additional context
	Message string
}

// Error returns a human-readable error message.
func (e *ContextError) Error() string {
	msg := "context incomplete"
	if e.Template != "" {
		msg += " for template " + e.Template
	}
	if len(e.Missing) > 0 {
		msg += ": missing " + strings.Join(e.Missing, ", ")
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *ContextError) Is(target error) bool {
	return target == ErrContextIncomplete
}

// TemplateError represents a template lookup or execution failure.
type TemplateError struct {
	// TemplateID is the requested template
	TemplateID string
	// AuthType and Provider are set when selection failed
	AuthType string
	Provider string
	// NotFound is true when no template matched
	NotFound bool
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *TemplateError) Error() string {
	msg := "render failed"
	if e.NotFound {
		msg = "template not found"
	}
	switch {
	case e.TemplateID != "":
		msg += fmt.Sprintf(": %q", e.TemplateID)
	case e.AuthType != "":
		msg += fmt.Sprintf(": auth type %q", e.AuthType)
		if e.Provider != "" {
			msg += fmt.Sprintf(" provider %q", e.Provider)
		}
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *TemplateError) Is(target error) bool {
	if e.NotFound {
		return target == ErrTemplateNotFound
	}
	return target == ErrRender
}

// OutputError represents a failure to persist generated output.
type OutputError struct {
	// Target is the module name or file being written
	Target string
	// Message describes the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *OutputError) Error() string {
	msg := "output write failed"
	if e.Target != "" {
		msg += " for " + e.Target
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *OutputError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *OutputError) Is(target error) bool {
	return target == ErrOutputWriteFailed
}

// TimeoutError marks a unit that was still pending when the run deadline passed.
type TimeoutError struct {
	// Stage is the pipeline stage the unit had reached
	Stage string
	// Timeout is the configured run timeout
	Timeout time.Duration
}

// Error returns a human-readable error message.
func (e *TimeoutError) Error() string {
	msg := "timeout"
	if e.Timeout > 0 {
		msg += " after " + e.Timeout.String()
	}
	if e.Stage != "" {
		msg += " during " + e.Stage
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func unitName(provider, api string) string {
	switch {
	case provider != "" && api != "":
		return provider + "/" + api
	default:
		return provider + api
	}
}
