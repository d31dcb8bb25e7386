package templating

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/testutil"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/tserrors"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func slackContext(t *testing.T) rendercontext.Context {
	t.Helper()
	cfg := testutil.APIConfig("slack", "web_api")
	cfg.Name = "Slack Web API"
	cfg.BaseURL = "https://slack.com/api"
	cfg.Headers = map[string]string{"X-Client": "toolsetgen"}
	cs := &spec.CanonicalSpec{
		Title:   "Slack Web API",
		Servers: []spec.Server{{URL: "https://slack.com/api"}},
		Operations: []spec.Operation{
			{ID: "chat_post_message", Method: "POST", Path: "/chat.postMessage", Summary: "Sends a message.",
				Body: &spec.Body{MediaType: "application/json", Required: true, Type: "object"}},
			{ID: "conversations_list", Method: "GET", Path: "/conversations.list", Deprecated: true,
				Parameters: []spec.Parameter{{Name: "limit", In: spec.InQuery, Type: "integer"}}},
		},
	}
	ctx, err := rendercontext.New(rendercontext.WithGeneratorVersion("v0.0.0-test")).Build(cfg, cs)
	require.NoError(t, err)
	return ctx
}

func assertGoSource(t *testing.T, src []byte) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "generated.go", src, parser.ParseComments)
	require.NoError(t, err, "generated source:\n%s", src)
}

func TestBuiltinTemplates(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, []string{
		TemplateAPIKey, TemplateAtlassianOAuth2, TemplateBearer, TemplateNone,
		TemplateOAuth2, TemplateRegistry, TemplateSalesforceOAuth2,
	}, e.Templates())

	req, err := e.Required(TemplateBearer)
	require.NoError(t, err)
	assert.Contains(t, req, "auth_token_env")
	assert.IsIncreasing(t, req)
}

func TestSelect(t *testing.T) {
	e := newEngine(t,
		WithOverride(config.AuthBearer, "github", TemplateNone),
		WithOverride(config.AuthAPIKey, AnyProvider, TemplateBearer),
	)
	tests := []struct {
		auth     config.AuthType
		provider string
		want     string
	}{
		{config.AuthOAuth2, "atlassian", TemplateAtlassianOAuth2},
		{config.AuthOAuth2, "salesforce", TemplateSalesforceOAuth2},
		{config.AuthOAuth2, "google", TemplateOAuth2},
		{config.AuthBearer, "github", TemplateNone},
		{config.AuthBearer, "slack", TemplateBearer},
		{config.AuthAPIKey, "petstore", TemplateBearer},
		{config.AuthNone, "acme", TemplateNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.auth)+"/"+tt.provider, func(t *testing.T) {
			got, err := e.Select(tt.auth, tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := e.Select("digest", "acme")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, tserrors.KindTemplateNotFound, tserrors.KindOf(err))

	_, err = e.Select(TemplateRegistry, "acme")
	assert.True(t, IsNotFound(err), "the registry template is not an auth template")
}

func TestOverrideToUnknownTemplate(t *testing.T) {
	_, err := New(WithOverride(config.AuthBearer, "slack", "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, tserrors.ErrTemplateNotFound)
}

func TestRenderBearer(t *testing.T) {
	e := newEngine(t)
	ctx := slackContext(t)

	out, err := e.Render(TemplateBearer, ctx)
	require.NoError(t, err)
	assertGoSource(t, out)

	src := string(out)
	assert.Contains(t, src, "// Code generated by toolsetgen v0.0.0-test. DO NOT EDIT.")
	assert.Contains(t, src, "package slackwebapi")
	assert.Contains(t, src, `const TokenEnv = "SLACK_WEB_API_TOKEN"`)
	assert.Contains(t, src, `req.Header.Set("Authorization", "Bearer "+t.token)`)
	assert.Contains(t, src, "func (t *SlackWebApi) ChatPostMessage(ctx context.Context")
	assert.Contains(t, src, `"slack_web_api_chat_post_message"`)
	assert.Contains(t, src, "// Deprecated:")
	assert.Contains(t, src, `{"X-Client", "toolsetgen"}`)

	again, err := e.Render(TemplateBearer, ctx)
	require.NoError(t, err)
	assert.Equal(t, out, again, "rendering is deterministic")
}

func TestRenderEveryAuthTemplate(t *testing.T) {
	e := newEngine(t)
	ctx := slackContext(t)
	ctx["auth_key_name"] = "X-API-Key"
	ctx["auth_key_in"] = "header"
	ctx["auth_token_url"] = "https://auth.example.com/token"
	ctx[rendercontext.KeyScopes] = []string{"read", "write"}
	ctx[rendercontext.KeyServerVariables] = []rendercontext.ServerVariable{{Name: "instance", Env: "SF_INSTANCE", Default: "login"}}

	for _, id := range []string{TemplateNone, TemplateAPIKey, TemplateBearer, TemplateOAuth2, TemplateAtlassianOAuth2, TemplateSalesforceOAuth2} {
		t.Run(id, func(t *testing.T) {
			out, err := e.Render(id, ctx)
			require.NoError(t, err)
			assertGoSource(t, out)
			assert.Contains(t, string(out), "func NewFromEnv(")
			assert.Contains(t, string(out), "func (t *SlackWebApi) Register(s *mcp.Server)")
		})
	}
}

func TestRenderAPIKeyInQuery(t *testing.T) {
	ctx := slackContext(t)
	ctx["auth_key_name"] = "key"
	ctx["auth_key_in"] = "query"
	out, err := newEngine(t).Render(TemplateAPIKey, ctx)
	require.NoError(t, err)
	assert.Contains(t, string(out), "q.Set(KeyName, t.key)")
}

func TestRenderMissingVariable(t *testing.T) {
	ctx := slackContext(t)
	delete(ctx, "auth_token_env")
	_, err := newEngine(t).Render(TemplateBearer, ctx)
	var ce *tserrors.ContextError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"auth_token_env"}, ce.Missing)

	ctx = slackContext(t)
	ctx[rendercontext.KeyTypeName] = ""
	_, err = newEngine(t).Render(TemplateNone, ctx)
	assert.ErrorIs(t, err, tserrors.ErrContextIncomplete)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := newEngine(t).Render("graphql", slackContext(t))
	assert.ErrorIs(t, err, tserrors.ErrTemplateNotFound)
}

func TestRenderRegistry(t *testing.T) {
	b := rendercontext.New(rendercontext.WithGeneratorVersion("dev"))
	ctx := b.Registry("example.com/agent/toolsets", []rendercontext.RegistryEntry{
		{Name: "slack_web_api", Package: "slackwebapi", ImportPath: "example.com/agent/toolsets/slackwebapi", DisplayName: "Slack Web API", Operations: 2},
		{Name: "atlassian_jira", Package: "atlassianjira", ImportPath: "example.com/agent/toolsets/atlassianjira", DisplayName: "Jira", Operations: 5},
	})
	out, err := newEngine(t).Render(TemplateRegistry, ctx)
	require.NoError(t, err)
	assertGoSource(t, out)

	src := string(out)
	assert.Contains(t, src, `slackwebapi "example.com/agent/toolsets/slackwebapi"`)
	assert.Less(t, indexOf(src, `"slack_web_api",`), indexOf(src, `"atlassian_jira",`), "selection order is kept")

	empty, err := newEngine(t).Render(TemplateRegistry, b.Registry("example.com/agent/toolsets", nil))
	require.NoError(t, err)
	assertGoSource(t, empty)
}

func TestTemplateDir(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"github_app.tmpl": "{{/* requires: toolset_name, package_name */ -}}\npackage {{.package_name}}\n\n// Name is the toolset name.\nconst Name = {{quote .toolset_name}}\n",
		"bearer.tmpl":     "{{/* requires: package_name */ -}}\npackage {{.package_name}}\n",
	})
	e := newEngine(t, WithTemplateDir(dir), WithOverride(config.AuthOAuth2, "github", "github_app"))

	got, err := e.Select(config.AuthOAuth2, "github")
	require.NoError(t, err)
	assert.Equal(t, "github_app", got)

	out, err := e.Render("github_app", slackContext(t))
	require.NoError(t, err)
	assert.Equal(t, "package slackwebapi\n\n// Name is the toolset name.\nconst Name = \"slack_web_api\"\n", string(out))

	out, err = e.Render(TemplateBearer, slackContext(t))
	require.NoError(t, err)
	assert.Equal(t, "package slackwebapi\n", string(out), "a directory template replaces the built-in one")
}

func TestTemplateDirWithoutHeader(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{"plain.tmpl": "package x\n"})
	_, err := New(WithTemplateDir(dir))
	assert.Error(t, err)
}

func TestTemplateNameCollisions(t *testing.T) {
	tests := map[string]map[string]string{
		"partial defines a selectable id": {
			"_helpers.tmpl": "{{define \"bearer\"}}package x{{end}}",
		},
		"partial defines the registry": {
			"_helpers.tmpl": "{{define \"registry\"}}package x{{end}}",
		},
		"selectable template named like a block": {
			"header.tmpl": "{{/* requires: package_name */ -}}\npackage {{.package_name}}\n",
		},
		"selectable template defines a selectable id": {
			"github_app.tmpl": "{{/* requires: package_name */ -}}\n{{define \"oauth2\"}}x{{end}}package {{.package_name}}\n",
		},
	}
	for name, files := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(WithTemplateDir(testutil.WriteTree(t, files)))
			require.Error(t, err)
			assert.ErrorIs(t, err, tserrors.ErrRender)
		})
	}
}

func TestTemplateDirReplacesPartial(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"_header.tmpl": "{{define \"header\"}}// Custom header.\n\npackage {{.package_name}}\n{{end}}",
		"custom.tmpl":  "{{/* requires: package_name */ -}}\n{{template \"header\" .}}",
	})
	e := newEngine(t, WithTemplateDir(dir))
	out, err := e.Render("custom", slackContext(t))
	require.NoError(t, err)
	assert.Equal(t, "// Custom header.\n\npackage slackwebapi\n", string(out))
}

func TestAuthTemplatesDeclareSharedVariables(t *testing.T) {
	e := newEngine(t)
	shared := []string{
		rendercontext.KeyGeneratorVersion, rendercontext.KeyHeaders,
		rendercontext.KeyServerVariables, rendercontext.KeySpecSource,
	}
	for _, id := range e.Templates() {
		if id == TemplateRegistry {
			continue
		}
		req, err := e.Required(id)
		require.NoError(t, err)
		for _, key := range shared {
			assert.Contains(t, req, key, id)
		}
	}

	req, err := e.Required(TemplateRegistry)
	require.NoError(t, err)
	assert.Contains(t, req, rendercontext.KeyGeneratorVersion)

	ctx := slackContext(t)
	ctx[rendercontext.KeySpecSource] = ""
	_, err = e.Render(TemplateBearer, ctx)
	assert.ErrorIs(t, err, tserrors.ErrContextIncomplete)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
