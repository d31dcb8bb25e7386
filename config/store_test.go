package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/toolsetgen/tserrors"
)

func writeConfig(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, ProvidersDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func loadFixture(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	writeConfig(t, dir, "slack/provider.yaml", `
base_url: https://slack.com/api
auth_type: bearer
auth:
  token_env: SLACK_TOKEN
quirks: [strip_token_param]
`)
	writeConfig(t, dir, "slack/web_api.yaml", `
name: Slack Web API
spec: https://example.com/slack.json
auth:
  token_env: SLACK_BOT_TOKEN
quirks: [boolean_enums, strip_token_param]
`)
	writeConfig(t, dir, "slack/admin.yml", `
spec: specs/admin.json
base_url: https://slack.com/api/admin
`)
	writeConfig(t, dir, "slack/broken.yaml", "spec: [unterminated\n")
	writeConfig(t, dir, "slack/typo.yaml", "spec: a.json\nbase_url: https://x\nauth_typ: bearer\n")
	writeConfig(t, dir, "acme/api.yaml", `
spec: acme.json
base_url: https://acme.example.com
auth_type: digest
`)
	writeConfig(t, dir, "acme/nobase.yaml", "spec: acme.json\nauth_type: none\n")
	writeConfig(t, dir, "atlassian/jira.yaml", `
spec: jira.json
base_url: https://api.atlassian.com/ex/jira/{cloud_id}
auth_type: oauth2
`)
	s, err := Load(dir)
	require.NoError(t, err)
	return s
}

func TestLoadListsProvidersAndAPIs(t *testing.T) {
	s := loadFixture(t)

	assert.Equal(t, []string{"acme", "atlassian", "slack"}, s.ListProviders())

	apis, err := s.ListAPIs("slack")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "broken", "typo", "web_api"}, apis)

	_, err = s.ListAPIs("nope")
	assert.ErrorIs(t, err, tserrors.ErrConfigNotFound)
}

func TestResolveMergesProviderDefaults(t *testing.T) {
	s := loadFixture(t)

	cfg, err := s.Resolve("slack", "web_api")
	require.NoError(t, err)
	assert.Equal(t, "slack", cfg.Provider)
	assert.Equal(t, "web_api", cfg.API)
	assert.Equal(t, "slack_web_api", cfg.ToolsetName())
	assert.Equal(t, "Slack Web API", cfg.Name)
	assert.Equal(t, "https://slack.com/api", cfg.BaseURL)
	assert.Equal(t, AuthBearer, cfg.AuthType)
	assert.Equal(t, "SLACK_BOT_TOKEN", cfg.Auth["token_env"], "api value wins over provider default")
	assert.Equal(t, []string{"strip_token_param", "boolean_enums"}, cfg.Quirks)

	admin, err := s.Resolve("slack", "admin")
	require.NoError(t, err)
	assert.Equal(t, "https://slack.com/api/admin", admin.BaseURL)
	assert.Equal(t, "SLACK_TOKEN", admin.Auth["token_env"])
	assert.Equal(t, "Slack Admin", admin.Name)
}

func TestResolveReturnsCopies(t *testing.T) {
	s := loadFixture(t)

	first, err := s.Resolve("slack", "web_api")
	require.NoError(t, err)
	first.Auth["token_env"] = "MUTATED"
	first.Quirks[0] = "mutated"

	second, err := s.Resolve("slack", "web_api")
	require.NoError(t, err)
	assert.Equal(t, "SLACK_BOT_TOKEN", second.Auth["token_env"])
	assert.Equal(t, "strip_token_param", second.Quirks[0])
}

func TestResolveErrors(t *testing.T) {
	s := loadFixture(t)

	tests := []struct {
		name     string
		provider string
		api      string
		sentinel error
		field    string
	}{
		{"unknown provider", "nope", "web_api", tserrors.ErrConfigNotFound, ""},
		{"unknown api", "slack", "nope", tserrors.ErrConfigNotFound, ""},
		{"undecodable record", "slack", "broken", tserrors.ErrConfigInvalid, ""},
		{"unknown field", "slack", "typo", tserrors.ErrConfigInvalid, ""},
		{"unrecognized auth type", "acme", "api", tserrors.ErrConfigInvalid, "auth_type"},
		{"missing base url", "acme", "nobase", tserrors.ErrConfigInvalid, "base_url"},
		{"placeholder without env var", "atlassian", "jira", tserrors.ErrConfigInvalid, "server_variables"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Resolve(tt.provider, tt.api)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			if tt.field != "" {
				var cfgErr *tserrors.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, tt.field, cfgErr.Field)
			}
		})
	}
}

func TestValidateReportsEveryAPI(t *testing.T) {
	s := loadFixture(t)

	results := s.Validate()
	require.Len(t, results, 7)
	failed := map[string]bool{}
	for _, r := range results {
		if r.Err != nil {
			failed[r.Provider+"/"+r.API] = true
		}
	}
	assert.Equal(t, map[string]bool{
		"acme/api":       true,
		"acme/nobase":    true,
		"atlassian/jira": true,
		"slack/broken":   true,
		"slack/typo":     true,
	}, failed)
}

func TestProviderDefaults(t *testing.T) {
	s := loadFixture(t)

	p, err := s.Provider("slack")
	require.NoError(t, err)
	assert.Equal(t, "slack", p.ID)
	assert.Equal(t, AuthBearer, p.AuthType)
	assert.Equal(t, "https://slack.com/api", p.BaseURL)
	assert.Equal(t, []string{"strip_token_param"}, p.Quirks)
	assert.Nil(t, p.APIs)

	p.Auth["token_env"] = "CHANGED"
	again, err := s.Provider("slack")
	require.NoError(t, err)
	assert.Equal(t, "SLACK_TOKEN", again.Auth["token_env"])

	_, err = s.Provider("nope")
	assert.ErrorIs(t, err, tserrors.ErrConfigNotFound)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, tserrors.ErrConfigNotFound)
}

func TestLoadWithNilLogger(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "acme/api.yaml", "spec: acme.json\nbase_url: https://acme.example.com\n")
	writeConfig(t, dir, "acme/broken.yaml", "spec: [unterminated\n")

	var s *Store
	require.NotPanics(t, func() {
		var err error
		s, err = Load(dir, WithLogger(nil))
		require.NoError(t, err)
	})
	apis, err := s.ListAPIs("acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "broken"}, apis)
}

func TestNewStore(t *testing.T) {
	s := NewStore(&ProviderConfig{
		ID:       "google",
		AuthType: AuthOAuth2,
		APIs: map[string]*APIConfig{
			"calendar": {Spec: "cal.json", BaseURL: "https://www.googleapis.com/calendar/v3"},
		},
	})
	cfg, err := s.Resolve("google", "calendar")
	require.NoError(t, err)
	assert.Equal(t, AuthOAuth2, cfg.AuthType)
	assert.Equal(t, "calendar", cfg.API)
	assert.Equal(t, "", s.Dir())
}

func TestResolveConcurrently(t *testing.T) {
	s := loadFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			provider, api := "slack", "web_api"
			if i%2 == 1 {
				provider, api = "acme", "api"
			}
			_, _ = s.Resolve(provider, api)
			_ = s.ListProviders()
		}(i)
	}
	wg.Wait()
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"cloud_id"}, Placeholders("https://api.atlassian.com/ex/jira/{cloud_id}"))
	assert.Equal(t, []string{"instance", "version"}, Placeholders("https://{instance}.salesforce.com/{version}/{instance}"))
	assert.Nil(t, Placeholders("https://slack.com/api"))
	assert.Nil(t, Placeholders("https://broken/{x"))
}

func TestAuthTypeValid(t *testing.T) {
	for _, a := range AuthTypes {
		assert.True(t, a.Valid())
	}
	assert.False(t, AuthType("digest").Valid())
	assert.False(t, AuthType("").Valid())
}
