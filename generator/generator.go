package generator

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/normalizer"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/specsource"
	"github.com/erraggy/toolsetgen/templating"
)

// DefaultModulePath is the import path assumed for the output directory.
const DefaultModulePath = "toolsets"

// Recorder receives per-run observations. internal/metrics implements it.
type Recorder interface {
	// ObserveUnit is called once per finished unit.
	ObserveUnit(provider, api, status string, operations, warnings int, d time.Duration)
	// ObserveCache is called once per run with the spec cache counters.
	ObserveCache(hits, misses int64)
}

// Generator sequences the pipeline for a selection of units.
type Generator struct {
	store       *config.Store
	fetcher     specsource.Fetcher
	normalizer  *normalizer.Normalizer
	engine      *templating.Engine
	builder     *rendercontext.Builder
	writer      Writer
	recorder    Recorder
	logger      logging.Logger
	concurrency int
	timeout     time.Duration
	modulePath  string
}

// Option is a function that configures a Generator.
type Option func(*Generator) error

// WithStore sets the configuration store. Required.
func WithStore(s *config.Store) Option {
	return func(g *Generator) error {
		if s == nil {
			return errors.New("generator: store cannot be nil")
		}
		g.store = s
		return nil
	}
}

// WithFetcher sets the spec-source collaborator.
// Default: a specsource.Loader rooted at the store directory.
func WithFetcher(f specsource.Fetcher) Option {
	return func(g *Generator) error {
		g.fetcher = f
		return nil
	}
}

// WithNormalizer sets the spec normalizer. Default: normalizer.New().
func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(g *Generator) error {
		g.normalizer = n
		return nil
	}
}

// WithEngine sets the template engine. Default: templating.New().
func WithEngine(e *templating.Engine) Option {
	return func(g *Generator) error {
		g.engine = e
		return nil
	}
}

// WithContextBuilder sets the context builder. Default: rendercontext.New().
func WithContextBuilder(b *rendercontext.Builder) Option {
	return func(g *Generator) error {
		g.builder = b
		return nil
	}
}

// WithWriter sets the output collaborator. A nil writer makes every run a
// dry run.
func WithWriter(w Writer) Option {
	return func(g *Generator) error {
		g.writer = w
		return nil
	}
}

// WithMetrics sets the recorder that observes finished units.
func WithMetrics(r Recorder) Option {
	return func(g *Generator) error {
		g.recorder = r
		return nil
	}
}

// WithLogger sets the logger. Default: logging.NopLogger.
func WithLogger(l logging.Logger) Option {
	return func(g *Generator) error {
		g.logger = logging.OrNop(l)
		return nil
	}
}

// WithConcurrency sets how many units run at once.
// Default: runtime.NumCPU()
func WithConcurrency(n int) Option {
	return func(g *Generator) error {
		if n < 1 {
			return fmt.Errorf("generator: concurrency must be at least 1, got %d", n)
		}
		g.concurrency = n
		return nil
	}
}

// WithTimeout sets the run-level timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) error {
		if d < 0 {
			return fmt.Errorf("generator: timeout cannot be negative, got %s", d)
		}
		g.timeout = d
		return nil
	}
}

// WithModulePath sets the import path of the output directory, used by the
// registry to import each toolset package.
// Default: "toolsets"
func WithModulePath(p string) Option {
	return func(g *Generator) error {
		if strings.Trim(p, "/") == "" {
			return errors.New("generator: module path cannot be empty")
		}
		g.modulePath = strings.TrimSuffix(p, "/")
		return nil
	}
}

// New returns a Generator. Collaborators not set by an option get their
// defaults.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		logger:      logging.NopLogger{},
		concurrency: runtime.NumCPU(),
		modulePath:  DefaultModulePath,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.store == nil {
		return nil, errors.New("generator: a configuration store is required (use WithStore)")
	}

	var err error
	if g.fetcher == nil {
		g.fetcher, err = specsource.NewLoader(
			specsource.WithBaseDir(g.store.Dir()),
			specsource.WithLogger(g.logger),
		)
		if err != nil {
			return nil, err
		}
	}
	if g.normalizer == nil {
		if g.normalizer, err = normalizer.New(normalizer.WithLogger(g.logger)); err != nil {
			return nil, err
		}
	}
	if g.engine == nil {
		if g.engine, err = templating.New(templating.WithLogger(g.logger)); err != nil {
			return nil, err
		}
	}
	if g.builder == nil {
		g.builder = rendercontext.New()
	}
	return g, nil
}

// DryRun reports whether the generator persists nothing.
func (g *Generator) DryRun() bool {
	return g.writer == nil
}
