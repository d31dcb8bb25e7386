// Package specsource fetches raw spec documents for the normalizer.
//
// A source reference is one of:
//
//   - an http:// or https:// URL, fetched with retries and per-host rate limiting
//   - a file:// URL or a filesystem path, relative paths resolved against the
//     base directory (normally the config directory)
//   - custom://<id>, an empty document for processors that synthesize the spec
//
// Documents decode as YAML, which also accepts JSON. Network and I/O
// failures are SpecUnavailable; undecodable documents and non-mapping roots
// are SpecMalformed.
package specsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.yaml.in/yaml/v4"
	"golang.org/x/time/rate"

	"github.com/erraggy/toolsetgen"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/spec"
	"github.com/erraggy/toolsetgen/tserrors"
)

// CustomScheme prefixes sources that processors synthesize.
const CustomScheme = "custom://"

// DefaultMaxBytes caps the size of a fetched document.
const DefaultMaxBytes int64 = 64 << 20

// Fetcher returns the raw document behind a source reference.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (spec.RawSpec, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, source string) (spec.RawSpec, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, source string) (spec.RawSpec, error) {
	return f(ctx, source)
}

// Loader is the default Fetcher.
type Loader struct {
	baseDir   string
	client    *retryablehttp.Client
	userAgent string
	maxBytes  int64
	rps       rate.Limit
	burst     int
	logger    logging.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Loader.
type Option func(*Loader) error

// WithBaseDir resolves relative paths against dir.
func WithBaseDir(dir string) Option {
	return func(l *Loader) error {
		l.baseDir = dir
		return nil
	}
}

// WithHTTPClient sets the underlying HTTP client used for remote fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) error {
		if c == nil {
			return fmt.Errorf("specsource: nil http client")
		}
		l.client.HTTPClient = c
		return nil
	}
}

// WithRetries sets the retry budget and backoff bounds for remote fetches.
func WithRetries(max int, waitMin, waitMax time.Duration) Option {
	return func(l *Loader) error {
		if max < 0 {
			return fmt.Errorf("specsource: negative retry count %d", max)
		}
		l.client.RetryMax = max
		l.client.RetryWaitMin = waitMin
		l.client.RetryWaitMax = waitMax
		return nil
	}
}

// WithRateLimit limits remote fetches to rps requests per second per host.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(l *Loader) error {
		if rps <= 0 {
			l.rps = rate.Inf
		} else {
			l.rps = rate.Limit(rps)
		}
		if burst < 1 {
			burst = 1
		}
		l.burst = burst
		return nil
	}
}

// WithUserAgent sets the User-Agent header for remote fetches.
func WithUserAgent(ua string) Option {
	return func(l *Loader) error {
		l.userAgent = ua
		return nil
	}
}

// WithMaxBytes caps the document size.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) error {
		if n <= 0 {
			return fmt.Errorf("specsource: max bytes must be positive")
		}
		l.maxBytes = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(lg logging.Logger) Option {
	return func(l *Loader) error {
		l.logger = logging.OrNop(lg)
		return nil
	}
}

// NewLoader creates a Loader with the given options.
func NewLoader(opts ...Option) (*Loader, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: 60 * time.Second}

	l := &Loader{
		client:    client,
		userAgent: toolsetgen.UserAgent(),
		maxBytes:  DefaultMaxBytes,
		rps:       rate.Limit(5),
		burst:     1,
		logger:    logging.NopLogger{},
		limiters:  map[string]*rate.Limiter{},
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Fetch implements Fetcher.
func (l *Loader) Fetch(ctx context.Context, source string) (spec.RawSpec, error) {
	switch {
	case strings.HasPrefix(source, CustomScheme):
		return spec.RawSpec{}, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		data, err := l.fetchRemote(ctx, source)
		if err != nil {
			return nil, err
		}
		return Decode(source, data)
	default:
		data, err := l.readLocal(source)
		if err != nil {
			return nil, err
		}
		return Decode(source, data)
	}
}

func (l *Loader) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[host] = lim
	}
	return lim
}

func (l *Loader) fetchRemote(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Message: "invalid URL", Cause: err}
	}
	if err := l.limiter(u.Host).Wait(ctx); err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Message: "waiting for rate limiter", Cause: err}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Cause: err}
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Message: "HTTP " + resp.Status}
	}
	data, err := readLimited(resp.Body, l.maxBytes)
	if err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Cause: err}
	}
	l.logger.Debug("spec fetched", "source", source, "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}

func (l *Loader) readLocal(source string) ([]byte, error) {
	path := strings.TrimPrefix(source, "file://")
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	f, err := os.Open(path) //nolint:gosec // spec paths come from operator-controlled config
	if err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Cause: err}
	}
	defer func() { _ = f.Close() }()
	data, err := readLimited(f, l.maxBytes)
	if err != nil {
		return nil, &tserrors.SpecError{Source: source, Unavailable: true, Cause: err}
	}
	return data, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("document exceeds %d bytes", max)
	}
	return data, nil
}

// Decode parses a JSON or YAML document into a RawSpec.
func Decode(source string, data []byte) (spec.RawSpec, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, &tserrors.SpecError{Source: source, Message: "decoding document", Cause: err}
	}
	if v == nil {
		return nil, &tserrors.SpecError{Source: source, Message: "empty document"}
	}
	root, ok := spec.NormalizeKeys(v).(map[string]any)
	if !ok {
		return nil, &tserrors.SpecError{Source: source, Message: fmt.Sprintf("document root is %T, not an object", v)}
	}
	return spec.RawSpec(root), nil
}
