package normalizer

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/erraggy/oastools/converter"
	"github.com/erraggy/oastools/parser"

	"github.com/erraggy/toolsetgen/internal/httputil"
	"github.com/erraggy/toolsetgen/internal/naming"
	"github.com/erraggy/toolsetgen/internal/severity"
	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/tserrors"
)

// targetVersion is the OpenAPI version Swagger 2.0 documents are upgraded to.
const targetVersion = "3.0.3"

// canonicalize validates doc, parses it with oastools and extracts the
// canonical operations. doc is owned by the caller's pipeline and may be
// modified.
func canonicalize(doc spec.RawSpec, st *state) (*spec.CanonicalSpec, error) {
	if err := checkStructure(doc, st); err != nil {
		return nil, err
	}
	screenOperations(doc, st)

	oas3, err := parseDocument(doc, st)
	if err != nil {
		return nil, err
	}

	cs := &spec.CanonicalSpec{}
	if oas3.Info != nil {
		cs.Title = oas3.Info.Title
		cs.Version = oas3.Info.Version
	}
	for _, s := range oas3.Servers {
		if s == nil || s.URL == "" {
			continue
		}
		srv := spec.Server{URL: s.URL}
		if len(s.Variables) > 0 {
			srv.Variables = make(map[string]string, len(s.Variables))
			for name, v := range s.Variables {
				srv.Variables[name] = v.Default
			}
		}
		cs.Servers = append(cs.Servers, srv)
	}
	if len(cs.Servers) == 0 && st.serversFromBaseURL && st.cfg.BaseURL != "" {
		cs.Servers = []spec.Server{{URL: st.cfg.BaseURL}}
	}

	ops := extractOperations(oas3, st)
	ops = filterOperations(ops, st)
	cs.Operations = dedupeOperationIDs(ops, st)
	cs.Warnings = st.warnings
	return cs, nil
}

func malformed(st *state, format string, args ...any) error {
	return &tserrors.SpecError{Source: st.cfg.Spec, Message: fmt.Sprintf(format, args...)}
}

// checkStructure rejects documents that are not OpenAPI at all and fills in
// the pieces oastools needs to parse the rest.
func checkStructure(doc spec.RawSpec, st *state) error {
	switch v := doc["swagger"].(type) {
	case nil:
		version, ok := doc["openapi"].(string)
		if !ok {
			return malformed(st, "document declares neither a swagger nor an openapi version")
		}
		if !strings.HasPrefix(version, "3.") {
			return malformed(st, "unsupported openapi version %q", version)
		}
	case string:
		if v != "2.0" {
			return malformed(st, "unsupported swagger version %q", v)
		}
	case float64, int:
		// YAML reads an unquoted 2.0 as a number.
		if fmt.Sprint(v) != "2" {
			return malformed(st, "unsupported swagger version %v", v)
		}
		doc["swagger"] = "2.0"
	default:
		return malformed(st, "swagger version is not a string")
	}

	if _, ok := doc["paths"].(map[string]any); !ok {
		return malformed(st, "document has no paths mapping")
	}
	if _, ok := doc["info"].(map[string]any); !ok {
		title := st.cfg.Name
		if title == "" {
			title = st.cfg.ToolsetName()
		}
		doc["info"] = map[string]any{"title": title, "version": "0.0.0"}
		st.note("info", "document has no info object, using %q", title)
	}
	return nil
}

// screenOperations removes operations whose raw shape oastools cannot decode,
// so one bad operation never fails the whole document.
func screenOperations(doc spec.RawSpec, st *state) {
	paths := doc["paths"].(map[string]any)
	for _, p := range mapKeys(paths) {
		item, ok := paths[p].(map[string]any)
		if !ok {
			delete(paths, p)
			st.drop("paths."+p, &tserrors.OperationError{Path: p, Message: "path item is not a mapping"})
			continue
		}
		shared := screenParameters(item["parameters"])
		for _, m := range httputil.Methods {
			raw, ok := item[m]
			if !ok {
				continue
			}
			reason := shared
			if reason != "" {
				reason = "path " + reason
			}
			op, isMap := raw.(map[string]any)
			id, _ := op["operationId"].(string)
			if reason == "" {
				reason = screenOperation(op, isMap)
			}
			if reason == "" {
				continue
			}
			delete(item, m)
			st.drop("paths."+p+"."+m, &tserrors.OperationError{
				Method: strings.ToUpper(m), Path: p, OperationID: id, Message: reason,
			})
		}
		if shared != "" {
			delete(item, "parameters")
		}
	}
}

func screenOperation(op map[string]any, isMap bool) string {
	if !isMap {
		return "operation is not a mapping"
	}
	if id, ok := op["operationId"]; ok {
		if _, isString := id.(string); !isString {
			return "operationId is not a string"
		}
	}
	if reason := screenParameters(op["parameters"]); reason != "" {
		return reason
	}
	for _, key := range []string{"requestBody", "responses"} {
		if v, ok := op[key]; ok && v != nil {
			if _, isMap := v.(map[string]any); !isMap {
				return key + " is not a mapping"
			}
		}
	}
	if tags, ok := op["tags"]; ok && tags != nil {
		list, isList := tags.([]any)
		if !isList {
			return "tags is not a list"
		}
		for _, t := range list {
			if _, isString := t.(string); !isString {
				return "tags contains a non-string value"
			}
		}
	}
	return ""
}

func screenParameters(v any) string {
	if v == nil {
		return ""
	}
	list, ok := v.([]any)
	if !ok {
		return "parameters is not a list"
	}
	for i, raw := range list {
		p, ok := raw.(map[string]any)
		if !ok {
			return fmt.Sprintf("parameter %d is not a mapping", i)
		}
		if _, isRef := p["$ref"].(string); isRef {
			continue
		}
		if name, _ := p["name"].(string); name == "" {
			return fmt.Sprintf("parameter %d has no name", i)
		}
		if in, _ := p["in"].(string); in == "" {
			return fmt.Sprintf("parameter %q has no location", p["name"])
		}
	}
	return ""
}

// parseDocument runs the oastools parser over doc and upgrades Swagger 2.0
// to OpenAPI 3.
func parseDocument(doc spec.RawSpec, st *state) (*parser.OAS3Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, &tserrors.SpecError{Source: st.cfg.Spec, Message: "document is not JSON-compatible", Cause: err}
	}
	source := st.cfg.Spec
	if source == "" {
		source = st.cfg.ToolsetName()
	}
	res, err := parser.ParseWithOptions(
		parser.WithBytes(data),
		parser.WithSourceName(source),
		parser.WithResolveRefs(true),
		parser.WithValidateStructure(false),
		parser.WithLogger(parserLogger{l: st.logger}),
	)
	if err != nil {
		return nil, &tserrors.SpecError{Source: st.cfg.Spec, Message: "parse failed", Cause: err}
	}
	if len(res.Errors) > 0 {
		return nil, &tserrors.SpecError{Source: st.cfg.Spec, Message: fmt.Sprintf("%d parse errors", len(res.Errors)), Cause: res.Errors[0]}
	}
	for _, w := range res.Warnings {
		st.note("", "%s", w)
	}

	if res.OASVersion == parser.OASVersion20 {
		conv, err := converter.ConvertParsed(*res, targetVersion)
		if err != nil {
			return nil, &tserrors.SpecError{Source: st.cfg.Spec, Message: "swagger 2.0 upgrade failed", Cause: err}
		}
		for _, iss := range conv.Issues {
			switch iss.Severity {
			case converter.SeverityCritical:
				st.warnings = append(st.warnings, spec.Issue{Path: iss.Path, Message: iss.Message, Severity: severity.SeverityWarning})
			case converter.SeverityWarning:
				st.note(iss.Path, "%s", iss.Message)
			}
		}
		oas3, ok := conv.Document.(*parser.OAS3Document)
		if !ok {
			return nil, malformed(st, "swagger 2.0 upgrade produced %T", conv.Document)
		}
		return oas3, nil
	}

	oas3, ok := res.Document.(*parser.OAS3Document)
	if !ok {
		return nil, malformed(st, "unexpected document type %T", res.Document)
	}
	return oas3, nil
}

// extractOperations builds canonical operations in path, then method order.
// Ids are canonicalized but not yet unique.
func extractOperations(doc *parser.OAS3Document, st *state) []spec.Operation {
	var out []spec.Operation
	for _, p := range mapKeys(doc.Paths) {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		byMethod := parser.GetOperations(item, doc.OASVersion)
		for _, m := range httputil.Methods {
			op := byMethod[m]
			if op == nil {
				continue
			}
			built, opErr := buildOperation(p, m, item, op)
			if opErr != nil {
				st.drop("paths."+p+"."+m, opErr)
				continue
			}
			out = append(out, built)
		}
	}
	return out
}

func buildOperation(path, method string, item *parser.PathItem, op *parser.Operation) (spec.Operation, *tserrors.OperationError) {
	out := spec.Operation{
		RawID:       op.OperationID,
		Method:      strings.ToUpper(method),
		Path:        path,
		Summary:     firstLine(op.Summary),
		Description: strings.TrimSpace(op.Description),
		Tags:        slices.Clone(op.Tags),
		Deprecated:  op.Deprecated,
	}
	if out.Summary == "" {
		out.Summary = firstLine(op.Description)
	}
	out.ID = naming.Canonical(op.OperationID)
	if out.ID == "" {
		out.ID = naming.Canonical(method + " " + path)
	}
	unsupported := func(format string, args ...any) *tserrors.OperationError {
		return &tserrors.OperationError{
			Method: out.Method, Path: path, OperationID: op.OperationID,
			Message: fmt.Sprintf(format, args...),
		}
	}

	// Operation parameters override path-level ones with the same location and name.
	merged := map[string]*parser.Parameter{}
	var order []string
	for _, list := range [][]*parser.Parameter{item.Parameters, op.Parameters} {
		for _, p := range list {
			if p == nil {
				continue
			}
			if p.Ref != "" {
				return out, unsupported("unresolved parameter reference %s", p.Ref)
			}
			key := p.In + ":" + p.Name
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = p
		}
	}
	for _, key := range order {
		p := merged[key]
		switch p.In {
		case spec.InPath, spec.InQuery, spec.InHeader, spec.InCookie:
		default:
			return out, unsupported("parameter %q has unsupported location %q", p.Name, p.In)
		}
		param := spec.Parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required || p.In == spec.InPath,
			Description: strings.TrimSpace(p.Description),
		}
		schema := p.Schema
		if schema == nil && len(p.Content) > 0 {
			if mt := httputil.PreferredJSON(mapKeys(p.Content)); mt != "" && p.Content[mt] != nil {
				schema = p.Content[mt].Schema
			}
		}
		if schema != nil {
			if schema.Ref != "" {
				return out, unsupported("unresolved schema reference %s", schema.Ref)
			}
			param.Type = schemaType(schema)
			param.Format = schema.Format
			param.Enum = enumStrings(schema.Enum)
		}
		if param.Type == "" {
			param.Type = p.Type
		}
		if param.Type == "" {
			param.Type = "string"
		}
		if param.Format == "" {
			param.Format = p.Format
		}
		if param.Enum == nil {
			param.Enum = enumStrings(p.Enum)
		}
		out.Parameters = append(out.Parameters, param)
	}
	spec.SortParameters(out.Parameters)

	if rb := op.RequestBody; rb != nil {
		if rb.Ref != "" {
			return out, unsupported("unresolved request body reference %s", rb.Ref)
		}
		types := mapKeys(rb.Content)
		if len(types) == 0 {
			return out, unsupported("request body declares no content")
		}
		mt := httputil.PreferredJSON(types)
		if mt == "" {
			return out, unsupported("request body media types %s are not JSON", strings.Join(types, ", "))
		}
		body := &spec.Body{
			MediaType:   mt,
			Required:    rb.Required,
			Description: strings.TrimSpace(rb.Description),
		}
		if media := rb.Content[mt]; media != nil {
			body.Type = schemaType(media.Schema)
		}
		if body.Type == "" {
			body.Type = "object"
		}
		out.Body = body
	}
	return out, nil
}

// schemaType returns the JSON schema type of s, inferring object and array
// from properties and items. It returns "" when nothing is declared.
func schemaType(s *parser.Schema) string {
	if s == nil {
		return ""
	}
	switch t := s.Type.(type) {
	case string:
		return t
	case []string:
		for _, v := range t {
			if v != "null" {
				return v
			}
		}
	case []any:
		for _, v := range t {
			if str, ok := v.(string); ok && str != "null" {
				return str
			}
		}
	}
	switch {
	case len(s.Properties) > 0:
		return "object"
	case s.Items != nil:
		return "array"
	}
	return ""
}

func enumStrings(values []any) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// filterOperations applies include_tags and exclude_operations.
func filterOperations(ops []spec.Operation, st *state) []spec.Operation {
	include := st.cfg.IncludeTags
	exclude := map[string]bool{}
	for _, id := range st.cfg.ExcludeOperations {
		exclude[id] = true
		exclude[naming.Canonical(id)] = true
	}
	if len(include) == 0 && len(exclude) == 0 {
		return ops
	}
	kept := ops[:0:0]
	for _, op := range ops {
		loc := "paths." + op.Path + "." + strings.ToLower(op.Method)
		if exclude[op.RawID] || exclude[op.ID] {
			st.note(loc, "operation %s excluded by configuration", op.ID)
			continue
		}
		if len(include) > 0 && !slices.ContainsFunc(op.Tags, func(t string) bool { return slices.Contains(include, t) }) {
			st.note(loc, "operation %s has none of the included tags", op.ID)
			continue
		}
		kept = append(kept, op)
	}
	return kept
}
