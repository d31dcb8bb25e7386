package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v4"
)

func TestFixturesDecode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		key  string
		want string
	}{
		{"petstore", PetstoreOAS3, "openapi", "3.0.3"},
		{"slack", SlackSwagger, "swagger", "2.0"},
		{"google", GoogleDiscovery, "kind", "discovery#restDescription"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Raw(t, tt.src)
			assert.Equal(t, tt.want, raw[tt.key])
		})
	}
}

func TestRawNormalizesResponseCodes(t *testing.T) {
	raw := Raw(t, PetstoreOAS3)
	paths := raw["paths"].(map[string]any)
	get := paths["/pets"].(map[string]any)["get"].(map[string]any)
	responses := get["responses"].(map[string]any)
	assert.Contains(t, responses, "200")
}

func TestManyOperations(t *testing.T) {
	raw := Raw(t, ManyOperations(12))
	paths, ok := raw["paths"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, paths, 12)
	assert.Contains(t, paths, "/items01")
	assert.Contains(t, paths, "/items12")
}

func TestAPIConfigIsValid(t *testing.T) {
	cfg := APIConfig("slack", "web_api")
	assert.Equal(t, "slack_web_api", cfg.ToolsetName())
	assert.True(t, cfg.AuthType.Valid())
	assert.NotEmpty(t, cfg.Spec)
	assert.NotEmpty(t, cfg.BaseURL)
}

func TestWriteTree(t *testing.T) {
	dir := WriteTree(t, map[string]string{
		"providers/slack/web_api.yaml": "spec: a.yaml\n",
		"specs/a.yaml":                 "openapi: 3.0.3\n",
	})
	data, err := os.ReadFile(filepath.Join(dir, "providers", "slack", "web_api.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "spec: a.yaml\n", string(data))
	assert.FileExists(t, filepath.Join(dir, "specs", "a.yaml"))
}

func TestWriteTempFiles(t *testing.T) {
	doc := map[string]any{"openapi": "3.0.3", "paths": map[string]any{}}

	yamlPath := WriteTempYAML(t, doc)
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "3.0.3", fromYAML["openapi"])

	jsonPath := WriteTempJSON(t, doc)
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, "3.0.3", fromJSON["openapi"])
}
