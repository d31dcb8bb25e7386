// Package spec holds the data model shared by the spec-source collaborator,
// the normalizer and the context builder.
//
// A [RawSpec] is the unprocessed document as a nested mapping. It is cached
// per run and treated as read-only: processors work on [RawSpec.Clone].
// A [CanonicalSpec] is the provider-agnostic result of normalization.
package spec

import (
	"fmt"
	"sort"

	"github.com/erraggy/toolsetgen/internal/issues"
)

// Issue is a warning or notice recorded during normalization.
type Issue = issues.Issue

// RawSpec is an unprocessed OpenAPI (or provider-specific) document.
type RawSpec map[string]any

// Clone returns a deep copy of r.
func (r RawSpec) Clone() RawSpec {
	if r == nil {
		return nil
	}
	return deepCopy(map[string]any(r)).(map[string]any)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// NormalizeKeys converts decoded YAML into JSON-compatible values: mappings
// with non-string keys become map[string]any with keys formatted by fmt.
func NormalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = NormalizeKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = NormalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeKeys(val)
		}
		return out
	default:
		return v
	}
}

// Location values for Parameter.In.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// Parameter is a single operation input other than the request body.
type Parameter struct {
	// Name is the wire name of the parameter
	Name string
	// In is one of InPath, InQuery, InHeader, InCookie
	In string
	// Required is always true for path parameters
	Required bool
	// Description is the parameter description, if any
	Description string
	// Type is the JSON schema type ("string", "integer", ...), defaulting to "string"
	Type string
	// Format is the JSON schema format, if any
	Format string
	// Enum lists the allowed values rendered as strings
	Enum []string
}

// Body describes a JSON request body.
type Body struct {
	// MediaType is the JSON media type chosen from the request content
	MediaType string
	// Required reports whether the body must be sent
	Required bool
	// Description is the body description, if any
	Description string
	// Type is the JSON schema type of the body, defaulting to "object"
	Type string
}

// Operation is one canonical API operation.
type Operation struct {
	// ID is the canonical operation id, unique within its CanonicalSpec
	ID string
	// RawID is the operation id found in the raw spec, if any
	RawID string
	// Method is the upper case HTTP method
	Method string
	// Path is the path template, e.g. "/users/{id}"
	Path string
	// Summary is a one-line summary
	Summary string
	// Description is the long description
	Description string
	// Tags are the operation tags
	Tags []string
	// Deprecated reports whether the operation is deprecated
	Deprecated bool
	// Parameters are ordered path, query, header, cookie, then by name
	Parameters []Parameter
	// Body is nil when the operation takes no request body
	Body *Body
}

// Server is a normalized server entry.
type Server struct {
	// URL may contain {variable} placeholders
	URL string
	// Variables maps placeholder name to its default value
	Variables map[string]string
}

// CanonicalSpec is the processor output consumed by the context builder.
type CanonicalSpec struct {
	// Title and Version come from the document info
	Title   string
	Version string
	// Processor names the processor variant that produced this spec
	Processor string
	// Servers lists the document servers in order
	Servers []Server
	// Operations are ordered by path, then by HTTP method order
	Operations []Operation
	// Warnings records dropped operations, renames and other notices
	Warnings []Issue
}

// ServerURL returns the first server URL, or "".
func (c *CanonicalSpec) ServerURL() string {
	if c == nil || len(c.Servers) == 0 {
		return ""
	}
	return c.Servers[0].URL
}

// Operation returns the operation with the given canonical id.
func (c *CanonicalSpec) Operation(id string) (Operation, bool) {
	for _, op := range c.Operations {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// IDs returns the operation ids in order.
func (c *CanonicalSpec) IDs() []string {
	ids := make([]string, len(c.Operations))
	for i, op := range c.Operations {
		ids[i] = op.ID
	}
	return ids
}

var locationOrder = map[string]int{InPath: 0, InQuery: 1, InHeader: 2, InCookie: 3}

// SortParameters orders params by location, then name.
func SortParameters(params []Parameter) {
	sort.SliceStable(params, func(i, j int) bool {
		li, lj := locationOrder[params[i].In], locationOrder[params[j].In]
		if li != lj {
			return li < lj
		}
		return params[i].Name < params[j].Name
	})
}
