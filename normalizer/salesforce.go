package normalizer

import (
	"github.com/erraggy/toolsetgen/spec"
)

const salesforceServer = "https://{instance}.salesforce.com/services/data/v58.0"

// applySalesforceSObjects synthesizes the sObject REST operations when the
// document carries no paths. Salesforce publishes no OpenAPI document for
// the core REST API, so configurations point at custom://sobjects.
func applySalesforceSObjects(doc spec.RawSpec, st *state) error {
	if paths, ok := doc["paths"].(map[string]any); ok && len(paths) > 0 {
		return nil
	}
	for k := range doc {
		delete(doc, k)
	}
	for k, v := range salesforceDocument() {
		doc[k] = v
	}
	st.note("paths", "synthesized Salesforce sObject operations")
	return nil
}

func sobjectParam(name, in, desc string) map[string]any {
	return map[string]any{
		"name":        name,
		"in":          in,
		"required":    in == "path",
		"description": desc,
		"schema":      map[string]any{"type": "string"},
	}
}

func jsonBody(desc string) map[string]any {
	return map[string]any{
		"required":    true,
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"type": "object", "additionalProperties": true},
			},
		},
	}
}

func ok200() map[string]any {
	return map[string]any{"200": map[string]any{"description": "Successful response"}}
}

func salesforceDocument() spec.RawSpec {
	sobject := sobjectParam("sobject", "path", "sObject API name, e.g. Account")
	id := sobjectParam("id", "path", "Record id")
	return spec.RawSpec{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Salesforce REST API",
			"version": "58.0",
		},
		"servers": []any{map[string]any{
			"url":       salesforceServer,
			"variables": map[string]any{"instance": map[string]any{"default": "login"}},
		}},
		"paths": map[string]any{
			"/sobjects": map[string]any{
				"get": map[string]any{
					"operationId": "listSObjects",
					"summary":     "List the available sObjects",
					"tags":        []any{"sobjects"},
					"responses":   ok200(),
				},
			},
			"/sobjects/{sobject}/describe": map[string]any{
				"get": map[string]any{
					"operationId": "describeSObject",
					"summary":     "Describe an sObject's fields and metadata",
					"tags":        []any{"sobjects"},
					"parameters":  []any{sobject},
					"responses":   ok200(),
				},
			},
			"/sobjects/{sobject}": map[string]any{
				"post": map[string]any{
					"operationId": "createSObject",
					"summary":     "Create a record",
					"tags":        []any{"records"},
					"parameters":  []any{sobject},
					"requestBody": jsonBody("Field values of the new record"),
					"responses":   ok200(),
				},
			},
			"/sobjects/{sobject}/{id}": map[string]any{
				"get": map[string]any{
					"operationId": "getSObject",
					"summary":     "Retrieve a record",
					"tags":        []any{"records"},
					"parameters": []any{sobject, id,
						sobjectParam("fields", "query", "Comma-separated list of fields to return")},
					"responses": ok200(),
				},
				"patch": map[string]any{
					"operationId": "updateSObject",
					"summary":     "Update a record",
					"tags":        []any{"records"},
					"parameters":  []any{sobject, id},
					"requestBody": jsonBody("Field values to change"),
					"responses":   ok200(),
				},
				"delete": map[string]any{
					"operationId": "deleteSObject",
					"summary":     "Delete a record",
					"tags":        []any{"records"},
					"parameters":  []any{sobject, id},
					"responses":   ok200(),
				},
			},
			"/query": map[string]any{
				"get": map[string]any{
					"operationId": "querySOQL",
					"summary":     "Run a SOQL query",
					"tags":        []any{"query"},
					"parameters": []any{map[string]any{
						"name":        "q",
						"in":          "query",
						"required":    true,
						"description": "SOQL query string",
						"schema":      map[string]any{"type": "string"},
					}},
					"responses": ok200(),
				},
			},
		},
	}
}
