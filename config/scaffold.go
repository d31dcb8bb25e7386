package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v4"

	"github.com/erraggy/toolsetgen/internal/fileutil"
	"github.com/erraggy/toolsetgen/tserrors"
)

// APIPath returns the record path of (provider, api) under dir.
func APIPath(dir, provider, api string) string {
	return filepath.Join(dir, ProvidersDir, provider, api+".yaml")
}

// WriteAPIConfig writes cfg to its record path under dir and returns the
// path. An existing record is only replaced when force is set.
func WriteAPIConfig(dir string, cfg APIConfig, force bool) (string, error) {
	if cfg.Provider == "" || cfg.API == "" {
		return "", &tserrors.ConfigError{Provider: cfg.Provider, API: cfg.API, Message: "provider and api are required"}
	}
	path := APIPath(dir, cfg.Provider, cfg.API)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", &tserrors.ConfigError{Provider: cfg.Provider, API: cfg.API, Message: "encoding record", Cause: err}
	}
	if err := writeFile(path, data, force); err != nil {
		return "", err
	}
	return path, nil
}

// Scaffold writes the example configuration into dir and returns the written
// paths. Existing files are kept unless force is set.
func Scaffold(dir string, force bool) ([]string, error) {
	var written []string
	for _, ex := range Examples() {
		path, err := WriteAPIConfig(dir, ex, force)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	specPath := filepath.Join(dir, "specs", "petstore.yaml")
	switch err := writeFile(specPath, []byte(petstoreSpec), force); {
	case errors.Is(err, fs.ErrExist):
	case err != nil:
		return written, err
	default:
		written = append(written, specPath)
	}
	return written, nil
}

func writeFile(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, fs.ErrExist)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), fileutil.DirReadableByAll); err != nil {
		return &tserrors.OutputError{Target: path, Cause: err}
	}
	if err := os.WriteFile(path, data, fileutil.OwnerReadWrite); err != nil {
		return &tserrors.OutputError{Target: path, Cause: err}
	}
	return nil
}

// Examples returns the example API records written by Scaffold.
func Examples() []APIConfig {
	return []APIConfig{
		{
			Provider: "atlassian",
			API:      "jira",
			Name:     "Jira Cloud Platform",
			Spec:     "https://developer.atlassian.com/cloud/jira/platform/swagger-v3.v3.json",
			BaseURL:  "https://api.atlassian.com/ex/jira/{cloud_id}",
			AuthType: AuthOAuth2,
			Auth: map[string]string{
				"authorization_url": "https://auth.atlassian.com/authorize",
				"token_url":         "https://auth.atlassian.com/oauth/token",
			},
			Scopes: map[string]string{
				"read:jira-work":  "Read Jira project and issue data",
				"write:jira-work": "Create and edit issues",
			},
			ServerVariables: map[string]string{"cloud_id": "JIRA_CLOUD_ID"},
			IncludeTags:     []string{"Issues", "Issue search", "Projects"},
		},
		{
			Provider: "google",
			API:      "calendar",
			Name:     "Google Calendar",
			Spec:     "https://www.googleapis.com/discovery/v1/apis/calendar/v3/rest",
			BaseURL:  "https://www.googleapis.com/calendar/v3",
			AuthType: AuthOAuth2,
			Auth: map[string]string{
				"authorization_url": "https://accounts.google.com/o/oauth2/auth",
				"token_url":         "https://oauth2.googleapis.com/token",
			},
			Scopes: map[string]string{
				"https://www.googleapis.com/auth/calendar":        "Manage calendars",
				"https://www.googleapis.com/auth/calendar.events": "Manage events",
			},
		},
		{
			Provider: "petstore",
			API:      "api",
			Name:     "Swagger Petstore",
			Spec:     "specs/petstore.yaml",
			BaseURL:  "https://petstore3.swagger.io/api/v3",
			AuthType: AuthAPIKey,
			Auth: map[string]string{
				"key_name": "api_key",
				"key_in":   "header",
			},
		},
		{
			Provider: "salesforce",
			API:      "rest",
			Name:     "Salesforce REST",
			Spec:     "custom://sobjects",
			BaseURL:  "https://{instance}.salesforce.com/services/data/v58.0",
			AuthType: AuthOAuth2,
			Auth: map[string]string{
				"authorization_url": "https://login.salesforce.com/services/oauth2/authorize",
				"token_url":         "https://login.salesforce.com/services/oauth2/token",
			},
			Scopes:          map[string]string{"api": "Access the REST API"},
			ServerVariables: map[string]string{"instance": "SALESFORCE_INSTANCE"},
		},
		{
			Provider: "slack",
			API:      "web_api",
			Name:     "Slack Web API",
			Spec:     "https://raw.githubusercontent.com/slackapi/slack-api-specs/master/web-api/slack_web_openapi_v2.json",
			BaseURL:  "https://slack.com/api",
			AuthType: AuthBearer,
			Auth:     map[string]string{"token_env": "SLACK_BOT_TOKEN"},
		},
	}
}

const petstoreSpec = `openapi: 3.0.3
info:
  title: Swagger Petstore
  version: 1.0.0
servers:
  - url: https://petstore3.swagger.io/api/v3
paths:
  /pet:
    post:
      operationId: addPet
      summary: Add a new pet to the store
      tags: [pet]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        '200':
          description: Successful operation
  /pet/findByStatus:
    get:
      operationId: findPetsByStatus
      summary: Finds pets by status
      tags: [pet]
      parameters:
        - name: status
          in: query
          schema:
            type: string
            enum: [available, pending, sold]
      responses:
        '200':
          description: Successful operation
  /pet/{petId}:
    get:
      operationId: getPetById
      summary: Find pet by ID
      tags: [pet]
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: integer
            format: int64
      responses:
        '200':
          description: Successful operation
    delete:
      operationId: deletePet
      summary: Deletes a pet
      tags: [pet]
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: integer
            format: int64
      responses:
        '400':
          description: Invalid pet value
  /pet/{petId}/uploadImage:
    post:
      operationId: uploadFile
      summary: Uploads an image
      tags: [pet]
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: integer
      requestBody:
        content:
          application/octet-stream:
            schema:
              type: string
              format: binary
      responses:
        '200':
          description: Successful operation
components:
  schemas:
    Pet:
      type: object
      required: [name]
      properties:
        id:
          type: integer
          format: int64
        name:
          type: string
        status:
          type: string
          enum: [available, pending, sold]
`
