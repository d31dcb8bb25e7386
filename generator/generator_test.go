package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/testutil"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/specsource"
	"github.com/erraggy/toolsetgen/tserrors"
)

// fakeFetcher serves fixture documents by source and counts fetches.
type fakeFetcher struct {
	docs  map[string]spec.RawSpec
	delay map[string]time.Duration
	block map[string]bool
	calls atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string) (spec.RawSpec, error) {
	f.calls.Add(1)
	if f.block[source] {
		<-ctx.Done()
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Cause: ctx.Err()}
	}
	if d := f.delay[source]; d > 0 {
		time.Sleep(d)
	}
	raw, ok := f.docs[source]
	if !ok {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Message: "no such fixture"}
	}
	return raw, nil
}

func slackStore(extra ...*config.ProviderConfig) *config.Store {
	providers := append([]*config.ProviderConfig{{
		ID:       "slack",
		AuthType: config.AuthBearer,
		BaseURL:  "https://slack.com/api",
		APIs: map[string]*config.APIConfig{
			"web_api": {Name: "Slack Web API", Spec: "slack.yaml"},
		},
	}}, extra...)
	return config.NewStore(providers...)
}

func petstoreProvider(id string) *config.ProviderConfig {
	return &config.ProviderConfig{
		ID:       id,
		AuthType: config.AuthAPIKey,
		BaseURL:  "https://petstore.example.com/v1",
		Auth:     map[string]string{"key_name": "X-API-Key", "key_in": "header"},
		APIs: map[string]*config.APIConfig{
			"api": {Spec: id + ".yaml"},
		},
	}
}

func newFetcher(t *testing.T) *fakeFetcher {
	t.Helper()
	return &fakeFetcher{
		docs: map[string]spec.RawSpec{
			"slack.yaml":  testutil.Raw(t, testutil.SlackSwagger),
			"alpha.yaml":  testutil.Raw(t, testutil.PetstoreOAS3),
			"zeta.yaml":   testutil.Raw(t, testutil.PetstoreOAS3),
			"broken.yaml": testutil.Raw(t, "openapi: 3.0.3\ninfo:\n  title: Broken\n  version: '1'\n"),
		},
		delay: map[string]time.Duration{},
		block: map[string]bool{},
	}
}

func newGenerator(t *testing.T, store *config.Store, f specsource.Fetcher, opts ...Option) *Generator {
	t.Helper()
	base := []Option{
		WithStore(store),
		WithFetcher(f),
		WithContextBuilder(rendercontext.New(rendercontext.WithGeneratorVersion("v0.0.0-test"))),
		WithModulePath("example.com/agent/toolsets"),
		WithConcurrency(4),
	}
	g, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return g
}

func TestSlackWebAPIScenario(t *testing.T) {
	g := newGenerator(t, slackStore(), newFetcher(t))

	run, err := g.Generate(context.Background(), Units(Unit{"slack", "web_api"}))
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.True(t, run.OK())
	assert.True(t, run.DryRun)

	res := run.Results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "slack_web_api", res.ToolsetName)
	assert.Equal(t, "slack", res.Processor)
	assert.Equal(t, "bearer", res.TemplateID)
	assert.Equal(t, 2, res.Operations)
	assert.Equal(t, 1, res.WarningCount())
	require.Len(t, res.Tools, 2)
	assert.Equal(t, "slack_web_api_chat_post_message", res.Tools[0].Name)
	assert.Equal(t, "slack_web_api_conversations_list", res.Tools[1].Name)
	assert.Contains(t, string(res.Code), `const TokenEnv = "SLACK_WEB_API_TOKEN"`)
	assert.Contains(t, string(res.Code), `"Bearer "+t.token`)

	assert.Equal(t, []string{"slack_web_api"}, run.Registry.Names())
	entry, ok := run.Registry.Lookup("slack_web_api")
	require.True(t, ok)
	assert.Equal(t, "example.com/agent/toolsets/slackwebapi", entry.ImportPath)
	assert.Equal(t, 2, entry.Operations)
	assert.Contains(t, string(run.Registry.Source), `slackwebapi "example.com/agent/toolsets/slackwebapi"`)
}

func TestUnknownProvider(t *testing.T) {
	f := newFetcher(t)
	g := newGenerator(t, slackStore(), f)

	for name, sel := range map[string]Selection{
		"unit":     Units(Unit{"nope", "web_api"}),
		"provider": ForProvider("nope"),
	} {
		t.Run(name, func(t *testing.T) {
			run, err := g.Generate(context.Background(), sel)
			require.NoError(t, err)
			require.Len(t, run.Results, 1)
			res := run.Results[0]
			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, tserrors.KindConfigNotFound, res.Kind)
			assert.ErrorIs(t, res.Err, tserrors.ErrConfigNotFound)
			assert.Empty(t, run.Registry.Entries)
			assert.False(t, run.OK())
		})
	}
	assert.Zero(t, f.calls.Load(), "no spec is fetched for an unknown provider")
}

func TestRegistryFollowsSelectionOrder(t *testing.T) {
	f := newFetcher(t)
	// The first selected unit finishes last.
	f.delay["zeta.yaml"] = 100 * time.Millisecond
	store := config.NewStore(petstoreProvider("alpha"), petstoreProvider("zeta"))
	g := newGenerator(t, store, f)

	run, err := g.Generate(context.Background(), Units(Unit{"zeta", "api"}, Unit{"alpha", "api"}))
	require.NoError(t, err)
	require.True(t, run.OK(), "failed: %v", run.Failed())
	assert.Equal(t, []string{"zeta_api", "alpha_api"}, run.Registry.Names())
	assert.Equal(t, Unit{"zeta", "api"}, run.Results[0].Unit)
	assert.Equal(t, Unit{"alpha", "api"}, run.Results[1].Unit)
}

func TestPartialFailureIsolation(t *testing.T) {
	store := config.NewStore(petstoreProvider("alpha"), &config.ProviderConfig{
		ID:       "broken",
		AuthType: config.AuthNone,
		BaseURL:  "https://broken.example.com",
		APIs:     map[string]*config.APIConfig{"api": {Spec: "broken.yaml"}},
	})
	g := newGenerator(t, store, newFetcher(t))

	run, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	require.Len(t, run.Results, 2)

	assert.Equal(t, Unit{"alpha", "api"}, run.Results[0].Unit)
	assert.True(t, run.Results[0].OK())
	assert.Equal(t, Unit{"broken", "api"}, run.Results[1].Unit)
	assert.Equal(t, tserrors.KindSpecMalformed, run.Results[1].Kind)
	assert.Nil(t, run.Results[1].Code)

	ok, failed := run.Counts()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"alpha_api"}, run.Registry.Names())
	assert.Len(t, run.Failed(), 1)
}

func TestDuplicateUnitsShareTheCache(t *testing.T) {
	f := newFetcher(t)
	g := newGenerator(t, slackStore(), f)
	u := Unit{"slack", "web_api"}

	run, err := g.Generate(context.Background(), Units(u, u))
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.True(t, run.OK())
	assert.Equal(t, int64(1), f.calls.Load())
	assert.Equal(t, int64(1), run.CacheMisses)
	assert.Equal(t, int64(1), run.CacheHits)
	assert.Equal(t, []string{"slack_web_api"}, run.Registry.Names())
	assert.Equal(t, run.Results[0].Code, run.Results[1].Code)
}

func TestCacheIsPerRun(t *testing.T) {
	f := newFetcher(t)
	g := newGenerator(t, slackStore(), f)
	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), All())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), f.calls.Load())
}

func TestDeterministicAndIdempotent(t *testing.T) {
	out := t.TempDir()
	store := config.NewStore(petstoreProvider("alpha"), petstoreProvider("zeta"))
	g := newGenerator(t, store, newFetcher(t), WithWriter(NewDirWriter(out)))

	readAll := func() map[string][]byte {
		files := map[string][]byte{}
		err := filepath.WalkDir(out, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			data, err := os.ReadFile(p)
			files[p] = data
			return err
		})
		require.NoError(t, err)
		return files
	}

	first, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	require.True(t, first.OK())
	before := readAll()
	assert.Len(t, before, 4)
	assert.Contains(t, before, filepath.Join(out, "alphaapi", ModuleFile))
	assert.Contains(t, before, filepath.Join(out, RegistryFile))
	assert.Contains(t, before, filepath.Join(out, IndexFile))

	second, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	assert.Equal(t, before, readAll())
	assert.Equal(t, first.Registry.Source, second.Registry.Source)
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Code, second.Results[i].Code)
	}
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotContains(t, string(first.Registry.Source), first.ID)
}

func TestRunTimeout(t *testing.T) {
	f := newFetcher(t)
	f.block["zeta.yaml"] = true
	store := config.NewStore(petstoreProvider("alpha"), petstoreProvider("zeta"))
	g := newGenerator(t, store, f, WithTimeout(time.Second))

	run, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.True(t, run.Results[0].OK())

	res := run.Results[1]
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, tserrors.KindTimeout, res.Kind)
	var te *tserrors.TimeoutError
	require.ErrorAs(t, res.Err, &te)
	assert.Equal(t, StageFetch, te.Stage)
	assert.Equal(t, []string{"alpha_api"}, run.Registry.Names())
}

func TestTimeoutMarksQueuedUnits(t *testing.T) {
	f := newFetcher(t)
	f.block["zeta.yaml"] = true
	store := config.NewStore(petstoreProvider("alpha"), petstoreProvider("zeta"))
	g := newGenerator(t, store, f, WithTimeout(200*time.Millisecond), WithConcurrency(1))

	run, err := g.Generate(context.Background(), Units(Unit{"zeta", "api"}, Unit{"alpha", "api"}))
	require.NoError(t, err)
	for _, res := range run.Results {
		assert.Equal(t, tserrors.KindTimeout, res.Kind, res.Unit.String())
	}
	assert.Empty(t, run.Registry.Entries)
}

// failingWriter fails module writes for the named toolsets.
type failingWriter struct {
	mu       sync.Mutex
	fail     map[string]bool
	registry error
	written  []string
}

func (w *failingWriter) WriteModule(_ context.Context, m Module) error {
	if w.fail[m.Name] {
		return errors.New("disk full")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, m.Name)
	return nil
}

func (w *failingWriter) WriteRegistry(_ context.Context, _ *Registry) error {
	return w.registry
}

func TestModuleWriteFailure(t *testing.T) {
	w := &failingWriter{fail: map[string]bool{"zeta_api": true}}
	store := config.NewStore(petstoreProvider("alpha"), petstoreProvider("zeta"))
	g := newGenerator(t, store, newFetcher(t), WithWriter(w))

	run, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	assert.True(t, run.Results[0].OK())
	assert.Equal(t, tserrors.KindOutputWriteFailed, run.Results[1].Kind)
	assert.ErrorContains(t, run.Results[1].Err, "disk full")
	assert.Equal(t, []string{"alpha_api"}, run.Registry.Names())
	assert.Equal(t, []string{"alpha_api"}, w.written)
}

func TestRegistryWriteFailure(t *testing.T) {
	w := &failingWriter{registry: errors.New("read-only file system")}
	g := newGenerator(t, slackStore(), newFetcher(t), WithWriter(w))

	run, err := g.Generate(context.Background(), All())
	require.Error(t, err)
	assert.ErrorIs(t, err, tserrors.ErrOutputWriteFailed)
	require.NotNil(t, run)
	assert.True(t, run.Results[0].OK())
}

func TestConfiguredTemplate(t *testing.T) {
	store := slackStore(&config.ProviderConfig{
		ID:        "alpha",
		AuthType:  config.AuthBearer,
		BaseURL:   "https://petstore.example.com/v1",
		Templates: map[string]string{"bearer": "none"},
		APIs:      map[string]*config.APIConfig{"api": {Spec: "alpha.yaml"}},
	}, &config.ProviderConfig{
		ID:        "zeta",
		AuthType:  config.AuthBearer,
		BaseURL:   "https://petstore.example.com/v1",
		Templates: map[string]string{"bearer": "missing"},
		APIs:      map[string]*config.APIConfig{"api": {Spec: "zeta.yaml"}},
	})
	g := newGenerator(t, store, newFetcher(t))

	run, err := g.Generate(context.Background(), ForProvider("alpha", "zeta"))
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.Equal(t, "none", run.Results[0].TemplateID)
	assert.True(t, run.Results[0].OK())
	assert.Equal(t, tserrors.KindTemplateNotFound, run.Results[1].Kind)
}

func TestContextIncomplete(t *testing.T) {
	store := config.NewStore(&config.ProviderConfig{
		ID:       "alpha",
		AuthType: config.AuthOAuth2,
		BaseURL:  "https://petstore.example.com/v1",
		APIs:     map[string]*config.APIConfig{"api": {Spec: "alpha.yaml"}},
	})
	g := newGenerator(t, store, newFetcher(t))

	run, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	res := run.Results[0]
	assert.Equal(t, tserrors.KindContextIncomplete, res.Kind)
	var ce *tserrors.ContextError
	require.ErrorAs(t, res.Err, &ce)
	assert.Equal(t, "oauth2", ce.Template)
	assert.Contains(t, ce.Missing, "auth_token_url")
}

type countingRecorder struct {
	mu       sync.Mutex
	statuses []string
	hits     int64
	misses   int64
}

func (r *countingRecorder) ObserveUnit(_, _ string, status string, _, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *countingRecorder) ObserveCache(hits, misses int64) {
	r.hits, r.misses = hits, misses
}

func TestRecorderAndRunLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rec := &countingRecorder{}
	g := newGenerator(t, slackStore(), newFetcher(t),
		WithMetrics(rec),
		WithLogger(logging.NewZapAdapter(zap.New(core))),
	)

	run, err := g.Generate(context.Background(), Units(Unit{"slack", "web_api"}, Unit{"slack", "missing"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "failed"}, rec.statuses)
	assert.Equal(t, int64(1), rec.misses)

	finished := logs.FilterMessage("generation finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, run.ID, finished[0].ContextMap()["run_id"])
	assert.EqualValues(t, 1, finished[0].ContextMap()["cached_specs"])
	assert.NotEmpty(t, logs.FilterMessage("unit failed").FilterField(zap.String("provider", "slack")).All())
}

func TestSelectionExpand(t *testing.T) {
	store := config.NewStore(petstoreProvider("zeta"), petstoreProvider("alpha"))
	assert.Equal(t, []Unit{{"alpha", "api"}, {"zeta", "api"}}, All().Expand(store))
	assert.Equal(t, []Unit{{"zeta", "api"}, {"nope", ""}}, ForProvider("zeta", "nope").Expand(store))
	assert.Equal(t, []Unit{{"x", "y"}, {"x", "y"}}, Units(Unit{"x", "y"}, Unit{"x", "y"}).Expand(store))

	u, err := ParseUnit("slack/web_api")
	require.NoError(t, err)
	assert.Equal(t, Unit{"slack", "web_api"}, u)
	for _, bad := range []string{"", "slack", "/api", "slack/"} {
		_, err := ParseUnit(bad)
		assert.Error(t, err, bad)
	}

	sel, err := SelectionFor("", "")
	require.NoError(t, err)
	assert.Len(t, sel.Expand(store), 2)
	sel, err = SelectionFor("zeta", "")
	require.NoError(t, err)
	assert.Equal(t, []Unit{{"zeta", "api"}}, sel.Expand(store))
	sel, err = SelectionFor("zeta", "other")
	require.NoError(t, err)
	assert.Equal(t, []Unit{{"zeta", "other"}}, sel.Expand(store))
	_, err = SelectionFor("", "api")
	assert.Error(t, err)
}

func TestOptionValidation(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
	_, err = New(WithStore(slackStore()), WithConcurrency(0))
	assert.Error(t, err)
	_, err = New(WithStore(slackStore()), WithTimeout(-time.Second))
	assert.Error(t, err)
	_, err = New(WithStore(slackStore()), WithModulePath("/"))
	assert.Error(t, err)

	g, err := New(WithStore(slackStore()))
	require.NoError(t, err)
	assert.True(t, g.DryRun())
}

func oauth2Provider(id, api string) *config.ProviderConfig {
	return &config.ProviderConfig{
		ID:       id,
		AuthType: config.AuthOAuth2,
		BaseURL:  "https://api.example.com/{tenant}/v1",
		Auth: map[string]string{
			"authorization_url": "https://auth.example.com/authorize",
			"token_url":         "https://auth.example.com/oauth/token",
		},
		APIs: map[string]*config.APIConfig{
			api: {
				Spec:            "alpha.yaml",
				Scopes:          map[string]string{"read:pets": "Read pets"},
				ServerVariables: map[string]string{"tenant": "EXAMPLE_TENANT"},
			},
		},
	}
}

func TestOAuth2Units(t *testing.T) {
	store := config.NewStore(oauth2Provider("atlassian", "jira"), oauth2Provider("acme", "pets"))
	g := newGenerator(t, store, newFetcher(t))

	run, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	for _, res := range run.Results {
		require.NoError(t, res.Err, res.Unit.String())
		assert.Equal(t, StatusOK, res.Status, res.Unit.String())
		assert.Contains(t, string(res.Code), "ClientIDEnv", res.Unit.String())
		assert.Contains(t, string(res.Code), `"https://auth.example.com/oauth/token"`, res.Unit.String())
	}
	assert.Equal(t, "oauth2", run.Results[0].TemplateID)
	assert.Equal(t, "atlassian_oauth2", run.Results[1].TemplateID)
	assert.Equal(t, []string{"acme_pets", "atlassian_jira"}, run.Registry.Names())
}

func TestFailedRunKeepsRegistry(t *testing.T) {
	out := t.TempDir()
	g := newGenerator(t, slackStore(), newFetcher(t), WithWriter(NewDirWriter(out)))

	first, err := g.Generate(context.Background(), All())
	require.NoError(t, err)
	require.True(t, first.OK())
	index, err := os.ReadFile(filepath.Join(out, IndexFile))
	require.NoError(t, err)
	source, err := os.ReadFile(filepath.Join(out, RegistryFile))
	require.NoError(t, err)

	run, err := g.Generate(context.Background(), Units(Unit{"nope", "web_api"}))
	require.NoError(t, err)
	assert.False(t, run.OK())

	after, err := os.ReadFile(filepath.Join(out, IndexFile))
	require.NoError(t, err)
	assert.Equal(t, index, after)
	after, err = os.ReadFile(filepath.Join(out, RegistryFile))
	require.NoError(t, err)
	assert.Equal(t, source, after)
}

func TestFilteredRunMergesRegistry(t *testing.T) {
	out := t.TempDir()
	store := config.NewStore(petstoreProvider("alpha"), petstoreProvider("zeta"))
	g := newGenerator(t, store, newFetcher(t), WithWriter(NewDirWriter(out)))

	_, err := g.Generate(context.Background(), ForProvider("zeta"))
	require.NoError(t, err)
	run, err := g.Generate(context.Background(), ForProvider("alpha"))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta_api", "alpha_api"}, run.Registry.Names())

	reg, err := ReadIndex(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta_api", "alpha_api"}, reg.Names())
	assert.Contains(t, string(run.Registry.Source), `zetaapi "example.com/agent/toolsets/zetaapi"`)
	assert.Contains(t, string(run.Registry.Source), `alphaapi "example.com/agent/toolsets/alphaapi"`)

	run, err = g.Generate(context.Background(), ForProvider("zeta"))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta_api", "alpha_api"}, run.Registry.Names(), "a regenerated entry keeps its place")
}

func TestMergeEntries(t *testing.T) {
	previous := []rendercontext.RegistryEntry{
		{Name: "a_api", Package: "aapi", ImportPath: "old/aapi"},
		{Name: "b_api", Package: "bapi", ImportPath: "old/bapi", Operations: 1},
		{Name: "b_x", Package: "bx", ImportPath: "old/bx"},
	}
	fresh := []rendercontext.RegistryEntry{
		{Name: "c_api", Package: "capi", ImportPath: "new/capi"},
		{Name: "b_api", Package: "bapi", ImportPath: "new/bapi", Operations: 2},
		{Name: "bx", Package: "bx", ImportPath: "new/bx"},
	}
	merged := mergeEntries("new", previous, fresh)
	assert.Equal(t, []rendercontext.RegistryEntry{
		{Name: "a_api", Package: "aapi", ImportPath: "new/aapi"},
		{Name: "b_api", Package: "bapi", ImportPath: "new/bapi", Operations: 2},
		{Name: "c_api", Package: "capi", ImportPath: "new/capi"},
		{Name: "bx", Package: "bx", ImportPath: "new/bx"},
	}, merged)
}

func TestPackageNameClash(t *testing.T) {
	w := &failingWriter{}
	store := slackStore(&config.ProviderConfig{
		ID:       "slackweb",
		AuthType: config.AuthBearer,
		BaseURL:  "https://slack.com/api",
		APIs: map[string]*config.APIConfig{
			"api": {Spec: "slack.yaml"},
		},
	})
	g := newGenerator(t, store, newFetcher(t), WithWriter(w))

	run, err := g.Generate(context.Background(), Units(Unit{"slack", "web_api"}, Unit{"slackweb", "api"}))
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.True(t, run.Results[0].OK())

	res := run.Results[1]
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, tserrors.KindOutputWriteFailed, res.Kind)
	assert.ErrorContains(t, res.Err, `package "slackwebapi" is already generated by slack/web_api`)
	assert.Equal(t, []string{"slack_web_api"}, run.Registry.Names())
	assert.Equal(t, []string{"slack_web_api"}, w.written, "the clashing module is never written")
}
