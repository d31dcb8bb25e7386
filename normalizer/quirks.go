package normalizer

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/httputil"
	"github.com/erraggy/toolsetgen/internal/issues"
	"github.com/erraggy/toolsetgen/internal/severity"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/tserrors"
)

// Quirk names accepted in configuration.
const (
	quirkGoogleDiscovery      = "google_discovery"
	quirkSalesforceSObjects   = "salesforce_sobjects"
	quirkStripTokenParam      = "strip_token_param"
	quirkSlackFormToJSON      = "slack_form_to_json"
	quirkGoogleStandardParams = "google_standard_params"
	quirkBooleanEnums         = "boolean_enums"
	quirkServersFromBaseURL   = "servers_from_base_url"
	quirkDropDeprecated       = "drop_deprecated"
)

// state carries per-unit data through quirks and canonicalization.
type state struct {
	cfg    config.APIConfig
	logger logging.Logger

	// serversFromBaseURL makes the configured base URL the server when the
	// document lists none.
	serversFromBaseURL bool

	warnings []spec.Issue
}

func (s *state) note(path, format string, args ...any) {
	s.warnings = append(s.warnings, issues.Issue{
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: severity.SeverityInfo,
	})
}

func (s *state) drop(path string, err *tserrors.OperationError) {
	iss := issues.FromError(path, err)
	iss.OperationID = err.OperationID
	s.warnings = append(s.warnings, iss)
	s.logger.Warn("operation dropped", "provider", s.cfg.Provider, "api", s.cfg.API, "path", path, "reason", err.Message)
}

type quirk struct {
	name  string
	apply func(doc spec.RawSpec, st *state) error
}

// quirkRegistry lists every quirk in application order.
var quirkRegistry = []quirk{
	{quirkGoogleDiscovery, applyGoogleDiscovery},
	{quirkSalesforceSObjects, applySalesforceSObjects},
	{quirkStripTokenParam, applyStripTokenParam},
	{quirkSlackFormToJSON, applySlackFormToJSON},
	{quirkGoogleStandardParams, applyGoogleStandardParams},
	{quirkBooleanEnums, applyBooleanEnums},
	{quirkServersFromBaseURL, applyServersFromBaseURL},
	{quirkDropDeprecated, applyDropDeprecated},
}

// QuirkNames returns the names accepted in the quirks configuration field.
func QuirkNames() []string {
	names := make([]string, len(quirkRegistry))
	for i, q := range quirkRegistry {
		names[i] = q.name
	}
	return names
}

// resolveQuirks merges builtin and configured quirk names and returns them
// in registry order. Unknown names are a configuration error.
func resolveQuirks(builtin []string, cfg config.APIConfig) ([]quirk, error) {
	wanted := map[string]bool{}
	for _, name := range builtin {
		wanted[name] = true
	}
	for _, name := range cfg.Quirks {
		if !slices.Contains(QuirkNames(), name) {
			return nil, &tserrors.ConfigError{
				Provider: cfg.Provider, API: cfg.API, Field: "quirks",
				Message: fmt.Sprintf("unknown quirk %q (known: %s)", name, strings.Join(QuirkNames(), ", ")),
			}
		}
		wanted[name] = true
	}
	var out []quirk
	for _, q := range quirkRegistry {
		if wanted[q.name] {
			out = append(out, q)
		}
	}
	return out, nil
}

// isSwagger reports whether doc is a Swagger 2.0 document.
func isSwagger(doc spec.RawSpec) bool {
	_, ok := doc["swagger"]
	return ok
}

// opRef points at one operation inside a raw document.
type opRef struct {
	path   string
	method string
	item   map[string]any
	op     map[string]any
}

func (r opRef) location() string {
	return "paths." + r.path + "." + r.method
}

// operations lists the well-formed operations of doc in path, then method order.
func operations(doc spec.RawSpec) []opRef {
	paths, _ := doc["paths"].(map[string]any)
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []opRef
	for _, p := range keys {
		item, ok := paths[p].(map[string]any)
		if !ok {
			continue
		}
		for _, m := range httputil.Methods {
			if op, ok := item[m].(map[string]any); ok {
				out = append(out, opRef{path: p, method: m, item: item, op: op})
			}
		}
	}
	return out
}

// resolveParam follows a local parameter $ref, returning p unchanged when it
// is not a reference or the target is missing.
func resolveParam(doc spec.RawSpec, p map[string]any) map[string]any {
	ref, ok := p["$ref"].(string)
	if !ok {
		return p
	}
	var container map[string]any
	var name string
	switch {
	case strings.HasPrefix(ref, "#/parameters/"):
		container, _ = doc["parameters"].(map[string]any)
		name = strings.TrimPrefix(ref, "#/parameters/")
	case strings.HasPrefix(ref, "#/components/parameters/"):
		components, _ := doc["components"].(map[string]any)
		container, _ = components["parameters"].(map[string]any)
		name = strings.TrimPrefix(ref, "#/components/parameters/")
	}
	if target, ok := container[name].(map[string]any); ok {
		return target
	}
	return p
}

// applyStripTokenParam removes "token" query and form parameters. The token
// travels in the Authorization header instead.
func applyStripTokenParam(doc spec.RawSpec, st *state) error {
	removed := 0
	for _, ref := range operations(doc) {
		params, ok := ref.op["parameters"].([]any)
		if !ok {
			continue
		}
		kept := params[:0:0]
		for _, raw := range params {
			p, ok := raw.(map[string]any)
			if ok {
				resolved := resolveParam(doc, p)
				in, _ := resolved["in"].(string)
				if resolved["name"] == "token" && (in == "query" || in == "formData") {
					removed++
					continue
				}
			}
			kept = append(kept, raw)
		}
		ref.op["parameters"] = kept
	}
	if removed > 0 {
		st.note("paths", "removed %d token parameters carried by the auth header", removed)
	}
	return nil
}

// applyBooleanEnums rewrites boolean enum values as strings, which several
// generators and agent frameworks cannot represent.
func applyBooleanEnums(doc spec.RawSpec, st *state) error {
	changed := rewriteBooleanEnums(map[string]any(doc))
	if changed > 0 {
		st.note("", "rewrote %d boolean enums as strings", changed)
	}
	return nil
}

func rewriteBooleanEnums(v any) int {
	changed := 0
	switch t := v.(type) {
	case map[string]any:
		if enum, ok := t["enum"].([]any); ok {
			hasBool := false
			for i, e := range enum {
				if b, ok := e.(bool); ok {
					enum[i] = fmt.Sprint(b)
					hasBool = true
				}
			}
			if hasBool {
				changed++
				if t["type"] == "boolean" {
					t["type"] = "string"
				}
			}
		}
		for _, val := range t {
			changed += rewriteBooleanEnums(val)
		}
	case []any:
		for _, val := range t {
			changed += rewriteBooleanEnums(val)
		}
	}
	return changed
}

// applyServersFromBaseURL marks the configured base URL as the fallback
// server. Swagger 2.0 documents without a host get one derived from it.
func applyServersFromBaseURL(doc spec.RawSpec, st *state) error {
	st.serversFromBaseURL = true
	if !isSwagger(doc) {
		return nil
	}
	if _, ok := doc["host"]; ok {
		return nil
	}
	u, err := url.Parse(st.cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	doc["host"] = u.Host
	if u.Path != "" {
		doc["basePath"] = u.Path
	}
	doc["schemes"] = []any{u.Scheme}
	return nil
}

// applyDropDeprecated removes operations marked deprecated.
func applyDropDeprecated(doc spec.RawSpec, st *state) error {
	for _, ref := range operations(doc) {
		if dep, _ := ref.op["deprecated"].(bool); dep {
			delete(ref.item, ref.method)
			st.note(ref.location(), "dropped deprecated operation")
		}
	}
	return nil
}
