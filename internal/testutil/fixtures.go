// Package testutil provides test utilities and fixtures for unit tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v4"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/spec"
)

// PetstoreOAS3 is a small OpenAPI 3.0 document with three JSON operations.
const PetstoreOAS3 = `openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
servers:
  - url: https://petstore.example.com/v1
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
            format: int32
        - name: status
          in: query
          schema:
            type: string
            enum: [available, sold]
      responses:
        "200":
          description: ok
    post:
      operationId: createPet
      summary: Create a pet
      tags: [pets]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
      responses:
        "201":
          description: created
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        schema:
          type: string
    get:
      operationId: showPetById
      summary: |
        Info for a specific pet
        with a second line
      tags: [pets]
      responses:
        "200":
          description: ok
`

// SlackSwagger is a Swagger 2.0 document in the shape of Slack's Web API:
// form-encoded methods, a token parameter and one multipart file upload.
const SlackSwagger = `swagger: "2.0"
info:
  title: Slack Web API
  version: 1.7.0
host: slack.com
basePath: /api
schemes: [https]
paths:
  /chat.postMessage:
    post:
      operationId: chat_postMessage
      summary: Sends a message to a channel.
      tags: [chat]
      consumes: [application/x-www-form-urlencoded]
      parameters:
        - name: token
          in: formData
          type: string
        - name: channel
          in: formData
          type: string
          required: true
        - name: text
          in: formData
          type: string
      responses:
        "200":
          description: ok
  /conversations.list:
    get:
      operationId: conversations_list
      summary: Lists all channels in a Slack team.
      tags: [conversations]
      parameters:
        - name: token
          in: query
          type: string
        - name: limit
          in: query
          type: integer
      responses:
        "200":
          description: ok
  /files.upload:
    post:
      operationId: files_upload
      summary: Uploads or creates a file.
      tags: [files]
      consumes: [multipart/form-data]
      parameters:
        - name: file
          in: formData
          type: file
        - name: channels
          in: formData
          type: string
      responses:
        "200":
          description: ok
`

// GoogleDiscovery is a trimmed Google API Discovery document.
const GoogleDiscovery = `kind: discovery#restDescription
name: calendar
version: v3
title: Calendar API
rootUrl: https://www.googleapis.com/
servicePath: calendar/v3/
schemas:
  Event:
    id: Event
    type: object
    properties:
      summary:
        type: string
      attendees:
        type: array
        items:
          $ref: EventAttendee
  EventAttendee:
    id: EventAttendee
    type: object
    properties:
      email:
        type: string
resources:
  events:
    methods:
      list:
        id: calendar.events.list
        path: calendars/{calendarId}/events
        httpMethod: GET
        description: Returns events on the specified calendar.
        parameters:
          calendarId:
            type: string
            location: path
            required: true
          orderBy:
            type: string
            location: query
            enum: [startTime, updated]
      insert:
        id: calendar.events.insert
        path: calendars/{calendarId}/events
        httpMethod: POST
        description: Creates an event.
        parameters:
          calendarId:
            type: string
            location: path
            required: true
        request:
          $ref: Event
  acl:
    methods:
      watch:
        id: calendar.acl.watch
        flatPath: calendars/{+calendarId}/acl/watch
        path: calendars/{calendarId}/acl/watch
        httpMethod: POST
        parameters:
          calendarId:
            type: string
            location: path
            required: true
`

// ManyOperations returns an OpenAPI 3.0 document with n GET operations named
// op1..opN on paths /items1../itemsN.
func ManyOperations(n int) string {
	var b strings.Builder
	b.WriteString("openapi: 3.0.3\ninfo:\n  title: Many\n  version: 1.0.0\npaths:\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "  /items%02d:\n    get:\n      operationId: op%d\n      responses:\n        \"200\":\n          description: ok\n", i, i)
	}
	return b.String()
}

// Raw decodes a YAML or JSON document into a RawSpec.
func Raw(t testing.TB, src string) spec.RawSpec {
	t.Helper()

	var v any
	if err := yaml.Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}
	m, ok := spec.NormalizeKeys(v).(map[string]any)
	if !ok {
		t.Fatalf("Fixture root is %T, not a mapping", v)
	}
	return spec.RawSpec(m)
}

// APIConfig returns a resolved, valid configuration for provider/api.
func APIConfig(provider, api string) config.APIConfig {
	return config.APIConfig{
		Provider: provider,
		API:      api,
		Name:     provider + " " + api,
		Spec:     "https://specs.example.com/" + provider + "/" + api + ".yaml",
		BaseURL:  "https://api.example.com",
		AuthType: config.AuthBearer,
	}
}

// WriteTree writes files, keyed by slash-separated relative path, under a
// temporary directory and returns the directory.
func WriteTree(t testing.TB, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
	return dir
}

// WriteTempYAML marshals a document to YAML and writes it to a temporary file.
// Returns the path to the temporary file.
// The file is automatically cleaned up when the test completes (via t.TempDir).
func WriteTempYAML(t testing.TB, doc any) string {
	t.Helper()

	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal document to YAML: %v", err)
	}

	tmpFile := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to write temporary YAML file: %v", err)
	}

	return tmpFile
}

// WriteTempJSON marshals a document to JSON and writes it to a temporary file.
// Returns the path to the temporary file.
func WriteTempJSON(t testing.TB, doc any) string {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal document to JSON: %v", err)
	}

	tmpFile := filepath.Join(t.TempDir(), "test.json")
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to write temporary JSON file: %v", err)
	}

	return tmpFile
}
