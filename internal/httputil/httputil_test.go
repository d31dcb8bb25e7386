package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMethod(t *testing.T) {
	for _, m := range Methods {
		assert.True(t, IsMethod(m), m)
	}
	assert.False(t, IsMethod("parameters"))
	assert.False(t, IsMethod("GET"))
	assert.False(t, IsMethod("x-extension"))
}

func TestIsJSONMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		expected  bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/vnd.api+json", true},
		{"application/merge-patch+json", true},
		{"multipart/form-data", false},
		{"application/x-www-form-urlencoded", false},
		{"application/octet-stream", false},
		{"text/plain", false},
		{"not a media type", false},
	}
	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsJSONMediaType(tt.mediaType))
		})
	}
}

func TestPreferredJSON(t *testing.T) {
	assert.Equal(t, "application/json", PreferredJSON([]string{"multipart/form-data", "application/vnd.api+json", "application/json"}))
	assert.Equal(t, "application/merge-patch+json", PreferredJSON([]string{"application/vnd.api+json", "application/merge-patch+json"}))
	assert.Equal(t, "", PreferredJSON([]string{"multipart/form-data", "text/plain"}))
	assert.Equal(t, "", PreferredJSON(nil))
}

func TestIsValidMediaType(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		expected  bool
	}{
		{"wildcard all", "*/*", true},
		{"wildcard subtype", "application/*", true},
		{"invalid wildcard type", "*/json", false},
		{"simple", "application/json", true},
		{"with parameter", "text/plain; charset=utf-8", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidMediaType(tt.mediaType))
		})
	}
}
