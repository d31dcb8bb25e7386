package normalizer

import (
	"strings"

	"github.com/erraggy/toolsetgen/spec"
)

const discoveryKind = "discovery#restDescription"

// applyGoogleDiscovery converts a Google API Discovery document into an
// OpenAPI 3 document in place. Documents that are already OpenAPI pass
// through unchanged.
func applyGoogleDiscovery(doc spec.RawSpec, st *state) error {
	if doc["kind"] != discoveryKind {
		return nil
	}
	out := spec.RawSpec{
		"openapi": targetVersion,
		"info": map[string]any{
			"title":       firstString(doc["title"], doc["name"]),
			"version":     firstString(doc["version"], "v1"),
			"description": firstString(doc["description"]),
		},
		"paths": map[string]any{},
	}
	if server := firstString(doc["rootUrl"]) + firstString(doc["servicePath"]); server != "" {
		out["servers"] = []any{map[string]any{"url": strings.TrimSuffix(server, "/")}}
	}
	if schemas, ok := doc["schemas"].(map[string]any); ok {
		out["components"] = map[string]any{"schemas": rewriteDiscoveryRefs(schemas)}
	}

	paths := out["paths"].(map[string]any)
	count := 0
	var walk func(container map[string]any, tags []string)
	walk = func(container map[string]any, tags []string) {
		if methods, ok := container["methods"].(map[string]any); ok {
			for _, name := range mapKeys(methods) {
				m, ok := methods[name].(map[string]any)
				if !ok {
					continue
				}
				addDiscoveryMethod(paths, m, tags)
				count++
			}
		}
		if resources, ok := container["resources"].(map[string]any); ok {
			for _, name := range mapKeys(resources) {
				if r, ok := resources[name].(map[string]any); ok {
					walk(r, append(append([]string(nil), tags...), name))
				}
			}
		}
	}
	walk(doc, nil)

	for k := range doc {
		delete(doc, k)
	}
	for k, v := range out {
		doc[k] = v
	}
	st.note("", "converted discovery document with %d methods to OpenAPI %s", count, targetVersion)
	return nil
}

func addDiscoveryMethod(paths map[string]any, m map[string]any, tags []string) {
	path := firstString(m["flatPath"], m["path"])
	// Reserved expansion {+name} has no OpenAPI equivalent.
	path = strings.ReplaceAll(path, "{+", "{")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	method := strings.ToLower(firstString(m["httpMethod"], "GET"))

	op := map[string]any{
		"operationId": firstString(m["id"]),
		"responses":   map[string]any{"200": map[string]any{"description": "Successful response"}},
	}
	if d := firstString(m["description"]); d != "" {
		op["description"] = d
	}
	if len(tags) > 0 {
		op["tags"] = []any{strings.Join(tags, ".")}
	}
	if dep, _ := m["deprecated"].(bool); dep {
		op["deprecated"] = true
	}

	var params []any
	if declared, ok := m["parameters"].(map[string]any); ok {
		for _, name := range mapKeys(declared) {
			p, ok := declared[name].(map[string]any)
			if !ok {
				continue
			}
			in := firstString(p["location"], "query")
			schema := map[string]any{"type": firstString(p["type"], "string")}
			if f := firstString(p["format"]); f != "" {
				schema["format"] = f
			}
			if enum, ok := p["enum"].([]any); ok {
				schema["enum"] = enum
			}
			required, _ := p["required"].(bool)
			param := map[string]any{
				"name":     name,
				"in":       in,
				"required": required || in == "path",
				"schema":   schema,
			}
			if d := firstString(p["description"]); d != "" {
				param["description"] = d
			}
			params = append(params, param)
		}
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	if req, ok := m["request"].(map[string]any); ok {
		schema := map[string]any{"type": "object"}
		if ref := firstString(req["$ref"]); ref != "" {
			schema = map[string]any{"$ref": "#/components/schemas/" + ref}
		}
		op["requestBody"] = map[string]any{
			"required": true,
			"content":  map[string]any{"application/json": map[string]any{"schema": schema}},
		}
	}

	item, ok := paths[path].(map[string]any)
	if !ok {
		item = map[string]any{}
		paths[path] = item
	}
	item[method] = op
}

// rewriteDiscoveryRefs turns bare discovery schema references into
// component references and drops discovery-only keys.
func rewriteDiscoveryRefs(v any) map[string]any {
	var rewrite func(any) any
	rewrite = func(v any) any {
		switch t := v.(type) {
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, val := range t {
				switch k {
				case "id", "annotations", "location":
					continue
				case "$ref":
					if s, ok := val.(string); ok && !strings.HasPrefix(s, "#") {
						out[k] = "#/components/schemas/" + s
						continue
					}
				}
				out[k] = rewrite(val)
			}
			return out
		case []any:
			out := make([]any, len(t))
			for i, val := range t {
				out[i] = rewrite(val)
			}
			return out
		default:
			return v
		}
	}
	return rewrite(v).(map[string]any)
}

// googleStandardParams are the query parameters every Google API accepts.
var googleStandardParams = []map[string]any{
	{"name": "quotaUser", "description": "Arbitrary string identifying the user for quota purposes", "type": "string"},
	{"name": "userIp", "description": "IP address of the end user for quota purposes", "type": "string"},
	{"name": "alt", "description": "Data format for the response", "type": "string", "enum": []any{"json", "media", "proto"}},
}

// applyGoogleStandardParams adds Google's standard query parameters to every
// operation that does not declare them.
func applyGoogleStandardParams(doc spec.RawSpec, st *state) error {
	swagger := isSwagger(doc)
	added := 0
	for _, ref := range operations(doc) {
		params, _ := ref.op["parameters"].([]any)
		present := map[string]bool{}
		for _, raw := range params {
			if p, ok := raw.(map[string]any); ok {
				if name, ok := resolveParam(doc, p)["name"].(string); ok {
					present[name] = true
				}
			}
		}
		for _, std := range googleStandardParams {
			name := std["name"].(string)
			if present[name] {
				continue
			}
			p := map[string]any{"name": name, "in": "query", "description": std["description"]}
			schema := map[string]any{"type": std["type"]}
			if enum, ok := std["enum"]; ok {
				schema["enum"] = append([]any(nil), enum.([]any)...)
			}
			if swagger {
				for k, v := range schema {
					p[k] = v
				}
			} else {
				p["schema"] = schema
			}
			params = append(params, p)
			added++
		}
		ref.op["parameters"] = params
	}
	if added > 0 {
		st.note("paths", "added %d standard Google query parameters", added)
	}
	return nil
}

func firstString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ""
}
