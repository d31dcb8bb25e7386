// Package probe checks that the credentials a generated toolset will read
// from the environment actually work against the provider.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	jira "github.com/ctreminiom/go-atlassian/v2/jira/v3"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/slack-go/slack"

	"github.com/erraggy/toolsetgen"
	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/rendercontext"
)

// Status is the outcome of a probe.
type Status string

// Probe outcomes.
const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of probing one API.
type Result struct {
	Provider string `json:"provider"`
	API      string `json:"api"`
	Status   Status `json:"status"`
	// Method names the check performed, e.g. "slack auth.test"
	Method string `json:"method"`
	// Identity is the authenticated principal, when the provider reports one
	Identity string `json:"identity,omitempty"`
	// Detail explains a failure or skip
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Prober runs credential probes.
type Prober struct {
	httpClient  *http.Client
	lookupEnv   func(string) (string, bool)
	slackAPIURL string
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets the client used for every probe.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		p.httpClient = c
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(p *Prober) {
		p.lookupEnv = fn
	}
}

// WithSlackAPIURL points the Slack probe at another API root.
func WithSlackAPIURL(u string) Option {
	return func(p *Prober) {
		p.slackAPIURL = strings.TrimSuffix(u, "/") + "/"
	}
}

// New returns a Prober. The default HTTP client retries 429 and 5xx
// responses twice.
func New(opts ...Option) *Prober {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	client := rc.StandardClient()
	client.Timeout = 20 * time.Second

	p := &Prober{
		httpClient:  client,
		lookupEnv:   os.LookupEnv,
		slackAPIURL: slack.APIURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run probes cfg. It never returns an error: problems are reported in the
// result. Missing credentials skip the probe.
func (p *Prober) Run(ctx context.Context, cfg config.APIConfig) Result {
	start := time.Now()
	var res Result
	switch cfg.Provider {
	case "slack":
		res = p.slack(ctx, cfg)
	case "atlassian":
		res = p.atlassian(ctx, cfg)
	default:
		res = p.generic(ctx, cfg)
	}
	res.Provider, res.API = cfg.Provider, cfg.API
	res.Duration = time.Since(start)
	return res
}

func (p *Prober) env(name string) string {
	v, _ := p.lookupEnv(name)
	return v
}

// credential returns the secret the generated toolset would authenticate
// with, and the env var it came from.
func (p *Prober) credential(cfg config.APIConfig) (value, env string) {
	switch cfg.AuthType {
	case config.AuthBearer:
		env = rendercontext.CredentialEnv(cfg, "token_env")
	case config.AuthAPIKey:
		env = rendercontext.CredentialEnv(cfg, "api_key_env")
	case config.AuthOAuth2:
		env = rendercontext.CredentialEnv(cfg, "access_token_env")
	default:
		return "", ""
	}
	return p.env(env), env
}

// baseURL expands the base URL placeholders from the environment.
func (p *Prober) baseURL(cfg config.APIConfig) (string, error) {
	u := cfg.BaseURL
	for _, name := range config.Placeholders(u) {
		env := rendercontext.ServerVariableEnv(cfg, name)
		v := p.env(env)
		if v == "" {
			return "", fmt.Errorf("%s is not set", env)
		}
		u = strings.ReplaceAll(u, "{"+name+"}", url.PathEscape(v))
	}
	return strings.TrimSuffix(u, "/"), nil
}

func skipped(method, format string, args ...any) Result {
	return Result{Status: StatusSkipped, Method: method, Detail: fmt.Sprintf(format, args...)}
}

func failed(method string, err error) Result {
	return Result{Status: StatusFailed, Method: method, Detail: err.Error()}
}

func (p *Prober) slack(ctx context.Context, cfg config.APIConfig) Result {
	const method = "slack auth.test"
	token, env := p.credential(cfg)
	if env == "" {
		return skipped(method, "auth type %s has no token", cfg.AuthType)
	}
	if token == "" {
		return skipped(method, "%s is not set", env)
	}
	client := slack.New(token, slack.OptionHTTPClient(p.httpClient), slack.OptionAPIURL(p.slackAPIURL))
	resp, err := client.AuthTestContext(ctx)
	if err != nil {
		return failed(method, err)
	}
	return Result{Status: StatusOK, Method: method, Identity: fmt.Sprintf("%s@%s", resp.User, resp.Team)}
}

func (p *Prober) atlassian(ctx context.Context, cfg config.APIConfig) Result {
	const method = "jira myself"
	site, err := p.baseURL(cfg)
	if err != nil {
		return skipped(method, "%v", err)
	}
	client, err := jira.New(p.httpClient, site)
	if err != nil {
		return failed(method, err)
	}
	client.Auth.SetUserAgent(toolsetgen.UserAgent())

	email := p.env(rendercontext.CredentialEnv(cfg, "email_env"))
	token, env := p.credential(cfg)
	switch {
	case env == "":
		return skipped(method, "auth type %s has no credential", cfg.AuthType)
	case token == "":
		return skipped(method, "%s is not set", env)
	case email != "":
		client.Auth.SetBasicAuth(email, token)
	default:
		client.Auth.SetBearerToken(token)
	}

	user, resp, err := client.MySelf.Details(ctx, nil)
	if err != nil {
		if resp != nil && resp.Code != 0 {
			return failed(method, fmt.Errorf("status %d: %w", resp.Code, err))
		}
		return failed(method, err)
	}
	identity := ""
	if user != nil {
		identity = user.DisplayName
		if user.AccountID != "" {
			identity += " (" + user.AccountID + ")"
		}
	}
	return Result{Status: StatusOK, Method: method, Identity: identity}
}

// generic issues a GET against the base URL with the configured auth.
// Anything but 401 and 403 proves the credential was accepted.
func (p *Prober) generic(ctx context.Context, cfg config.APIConfig) Result {
	const method = "GET base url"
	base, err := p.baseURL(cfg)
	if err != nil {
		return skipped(method, "%v", err)
	}
	token, env := p.credential(cfg)
	if env != "" && token == "" {
		return skipped(method, "%s is not set", env)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return failed(method, err)
	}
	req.Header.Set("User-Agent", toolsetgen.UserAgent())
	switch cfg.AuthType {
	case config.AuthBearer, config.AuthOAuth2:
		req.Header.Set("Authorization", "Bearer "+token)
	case config.AuthAPIKey:
		name := cfg.Auth["key_name"]
		if name == "" {
			name = "X-API-Key"
		}
		switch cfg.Auth["key_in"] {
		case "query":
			q := req.URL.Query()
			q.Set(name, token)
			req.URL.RawQuery = q.Encode()
		case "cookie":
			req.AddCookie(&http.Cookie{Name: name, Value: token})
		default:
			req.Header.Set(name, token)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return failed(method, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return failed(method, fmt.Errorf("credential rejected: %s", resp.Status))
	}
	return Result{Status: StatusOK, Method: method, Detail: resp.Status}
}
