package tserrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigError(t *testing.T) {
	t.Run("not found matches only ErrConfigNotFound", func(t *testing.T) {
		err := &ConfigError{Provider: "nope", NotFound: true, Message: "unknown provider"}
		assert.Equal(t, "config not found for nope: unknown provider", err.Error())
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.NotErrorIs(t, err, ErrConfigInvalid)
	})

	t.Run("invalid with field and cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := &ConfigError{Provider: "slack", API: "web_api", Field: "auth_type", Message: "unrecognized", Cause: cause}
		assert.Equal(t, `config invalid for slack/web_api (field "auth_type"): unrecognized: boom`, err.Error())
		assert.ErrorIs(t, err, ErrConfigInvalid)
		assert.ErrorIs(t, err, cause)
	})
}

func TestSpecError(t *testing.T) {
	unavailable := &SpecError{Source: "https://example.com/spec.json", Unavailable: true, Message: "status 404"}
	assert.Equal(t, "spec unavailable at https://example.com/spec.json: status 404", unavailable.Error())
	assert.ErrorIs(t, unavailable, ErrSpecUnavailable)
	assert.NotErrorIs(t, unavailable, ErrSpecMalformed)

	malformed := &SpecError{Message: "missing paths"}
	assert.Equal(t, "spec malformed: missing paths", malformed.Error())
	assert.ErrorIs(t, malformed, ErrSpecMalformed)
}

func TestOperationError(t *testing.T) {
	err := &OperationError{Method: "POST", Path: "/files.upload", OperationID: "files.upload", Message: "multipart/form-data body"}
	assert.Equal(t, "unsupported operation POST /files.upload (files.upload): multipart/form-data body", err.Error())
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestContextError(t *testing.T) {
	err := &ContextError{Template: "oauth2", Missing: []string{"auth_token_url", "base_url"}}
	assert.Equal(t, "context incomplete for template oauth2: missing auth_token_url, base_url", err.Error())
	assert.ErrorIs(t, err, ErrContextIncomplete)
}

func TestTemplateError(t *testing.T) {
	notFound := &TemplateError{AuthType: "digest", Provider: "acme", NotFound: true}
	assert.Equal(t, `template not found: auth type "digest" provider "acme"`, notFound.Error())
	assert.ErrorIs(t, notFound, ErrTemplateNotFound)
	assert.NotErrorIs(t, notFound, ErrRender)

	render := &TemplateError{TemplateID: "bearer", Cause: errors.New("bad")}
	assert.Equal(t, `render failed: "bearer": bad`, render.Error())
	assert.ErrorIs(t, render, ErrRender)
}

func TestOutputAndTimeoutErrors(t *testing.T) {
	out := &OutputError{Target: "slack_web_api", Cause: errors.New("read-only file system")}
	assert.Equal(t, "output write failed for slack_web_api: read-only file system", out.Error())
	assert.ErrorIs(t, out, ErrOutputWriteFailed)

	timeout := &TimeoutError{Stage: "fetch", Timeout: 2 * time.Second}
	assert.Equal(t, "timeout after 2s during fetch", timeout.Error())
	assert.ErrorIs(t, timeout, ErrTimeout)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"config not found", &ConfigError{NotFound: true}, KindConfigNotFound},
		{"config invalid", &ConfigError{}, KindConfigInvalid},
		{"spec unavailable", &SpecError{Unavailable: true}, KindSpecUnavailable},
		{"spec malformed", &SpecError{}, KindSpecMalformed},
		{"unsupported operation", &OperationError{}, KindUnsupportedOperation},
		{"context incomplete", &ContextError{}, KindContextIncomplete},
		{"template not found", &TemplateError{NotFound: true}, KindTemplateNotFound},
		{"render", &TemplateError{}, KindRender},
		{"output", &OutputError{}, KindOutputWriteFailed},
		{"timeout", &TimeoutError{}, KindTimeout},
		{"wrapped", fmt.Errorf("unit slack/web_api: %w", &SpecError{}), KindSpecMalformed},
		{"foreign", errors.New("other"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &ConfigError{Provider: "slack", API: "web_api", Field: "base_url"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "base_url", cfgErr.Field)
}
