package normalizer

import (
	"github.com/erraggy/toolsetgen/internal/httputil"
	"github.com/erraggy/toolsetgen/spec"
)

// applySlackFormToJSON moves form-encoded inputs into JSON bodies. Slack's
// Web API accepts JSON for every method that takes form fields, except file
// uploads, which stay multipart and are later dropped.
func applySlackFormToJSON(doc spec.RawSpec, st *state) error {
	converted := 0
	if isSwagger(doc) {
		for _, ref := range operations(doc) {
			if swaggerFormToBody(doc, ref.op) {
				converted++
			}
		}
	} else {
		for _, ref := range operations(doc) {
			if formContentToJSON(ref.op) {
				converted++
			}
		}
	}
	if converted > 0 {
		st.note("paths", "converted %d form-encoded operations to JSON bodies", converted)
	}
	return nil
}

// swaggerFormToBody replaces Swagger 2.0 formData parameters with a single
// JSON body parameter. Operations with file parameters are left alone.
func swaggerFormToBody(doc spec.RawSpec, op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok {
		return false
	}
	var form []map[string]any
	kept := make([]any, 0, len(params))
	for _, raw := range params {
		p, ok := raw.(map[string]any)
		if !ok {
			kept = append(kept, raw)
			continue
		}
		resolved := resolveParam(doc, p)
		if resolved["in"] != "formData" {
			kept = append(kept, raw)
			continue
		}
		if resolved["type"] == "file" {
			return false
		}
		form = append(form, resolved)
	}
	if len(form) == 0 {
		return false
	}

	properties := map[string]any{}
	var required []any
	for _, p := range form {
		name, _ := p["name"].(string)
		prop := map[string]any{}
		for _, key := range []string{"type", "format", "description", "enum", "items", "default"} {
			if v, ok := p[key]; ok {
				prop[key] = v
			}
		}
		if _, ok := prop["type"]; !ok {
			prop["type"] = "string"
		}
		properties[name] = prop
		if req, _ := p["required"].(bool); req {
			required = append(required, name)
		}
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	kept = append(kept, map[string]any{
		"name":     "body",
		"in":       "body",
		"required": len(required) > 0,
		"schema":   schema,
	})
	op["parameters"] = kept
	op["consumes"] = []any{httputil.MediaTypeJSON}
	return true
}

// formContentToJSON renames an OAS 3 urlencoded request body to JSON when it
// is the only content type.
func formContentToJSON(op map[string]any) bool {
	body, ok := op["requestBody"].(map[string]any)
	if !ok {
		return false
	}
	content, ok := body["content"].(map[string]any)
	if !ok || len(content) != 1 {
		return false
	}
	media, ok := content["application/x-www-form-urlencoded"]
	if !ok {
		return false
	}
	body["content"] = map[string]any{httputil.MediaTypeJSON: media}
	return true
}
