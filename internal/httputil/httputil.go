// Package httputil provides HTTP method and media type helpers.
package httputil

import (
	"mime"
	"sort"
	"strings"
)

// HTTP Method Constants, in the lower case form OpenAPI uses as path item keys.
const (
	MethodGet     = "get"
	MethodPut     = "put"
	MethodPost    = "post"
	MethodDelete  = "delete"
	MethodOptions = "options"
	MethodHead    = "head"
	MethodPatch   = "patch"
	MethodTrace   = "trace" // OAS 3.0+ only
)

// Methods lists the HTTP methods in the fixed order operations are extracted.
var Methods = []string{
	MethodGet, MethodPut, MethodPost, MethodDelete,
	MethodOptions, MethodHead, MethodPatch, MethodTrace,
}

// IsMethod reports whether key names an HTTP method in a path item.
func IsMethod(key string) bool {
	for _, m := range Methods {
		if key == m {
			return true
		}
	}
	return false
}

// MediaTypeJSON is the JSON media type.
const MediaTypeJSON = "application/json"

// IsJSONMediaType reports whether mediaType is application/json or a
// structured-syntax "+json" type, ignoring parameters.
func IsJSONMediaType(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return mt == MediaTypeJSON || strings.HasSuffix(mt, "+json")
}

// PreferredJSON picks the JSON media type to use from a content map's keys:
// application/json when present, else the first "+json" type in sorted
// order. It returns "" when none is JSON.
func PreferredJSON(mediaTypes []string) string {
	sorted := append([]string(nil), mediaTypes...)
	sort.Strings(sorted)
	var fallback string
	for _, mt := range sorted {
		if !IsJSONMediaType(mt) {
			continue
		}
		if parsed, _, _ := mime.ParseMediaType(mt); parsed == MediaTypeJSON {
			return mt
		}
		if fallback == "" {
			fallback = mt
		}
	}
	return fallback
}

// IsValidMediaType validates a media type string according to RFC 2045/2046.
// Handles wildcards (*/* and type/*) and prevents invalid combinations (*/subtype).
func IsValidMediaType(mediaType string) bool {
	if mediaType == "*/*" {
		return true
	}

	if strings.HasSuffix(mediaType, "/*") {
		parts := strings.Split(mediaType, "/")
		return len(parts) == 2 && parts[0] != "" && parts[0] != "*"
	}

	_, _, err := mime.ParseMediaType(mediaType)
	return err == nil
}
