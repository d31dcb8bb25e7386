// Package envcfg reads process-level settings from TOOLSETGEN_* environment
// variables.
package envcfg

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/specsource"
)

// Environment variable names.
const (
	EnvConfigDir   = "TOOLSETGEN_CONFIG_DIR"
	EnvOutputDir   = "TOOLSETGEN_OUTPUT_DIR"
	EnvConcurrency = "TOOLSETGEN_CONCURRENCY"
	EnvTimeout     = "TOOLSETGEN_TIMEOUT"
	EnvHTTPRetries = "TOOLSETGEN_HTTP_RETRIES"
	EnvFetchRPS    = "TOOLSETGEN_FETCH_RPS"
	EnvModulePath  = "TOOLSETGEN_MODULE_PATH"
)

// Names lists every variable Load reads.
var Names = []string{
	EnvConfigDir, EnvOutputDir, EnvConcurrency, EnvTimeout,
	EnvHTTPRetries, EnvFetchRPS, EnvModulePath,
}

// Settings holds the process defaults. Command-line flags override them.
type Settings struct {
	ConfigDir   string
	OutputDir   string
	Concurrency int
	// Timeout is the run-level timeout; zero means none.
	Timeout time.Duration
	// HTTPRetries is the retry budget for remote spec fetches.
	HTTPRetries int
	// FetchRPS limits remote spec fetches per host.
	FetchRPS   float64
	ModulePath string
}

// Defaults returns the settings used when no variable is set.
func Defaults() Settings {
	return Settings{
		ConfigDir:   "config",
		OutputDir:   "toolsets",
		Concurrency: runtime.NumCPU(),
		HTTPRetries: 3,
		FetchRPS:    5,
		ModulePath:  generator.DefaultModulePath,
	}
}

// Load reads the settings from the environment. Invalid values log a warning
// and keep the default.
func Load(log logging.Logger) Settings {
	l := loader{log: logging.OrNop(log)}
	d := Defaults()
	return Settings{
		ConfigDir:   l.str(EnvConfigDir, d.ConfigDir),
		OutputDir:   l.str(EnvOutputDir, d.OutputDir),
		Concurrency: l.positiveInt(EnvConcurrency, d.Concurrency),
		Timeout:     l.duration(EnvTimeout, d.Timeout),
		HTTPRetries: l.nonNegativeInt(EnvHTTPRetries, d.HTTPRetries),
		FetchRPS:    l.float(EnvFetchRPS, d.FetchRPS),
		ModulePath:  l.str(EnvModulePath, d.ModulePath),
	}
}

// FetcherOptions returns the spec loader options for these settings.
// Relative spec paths resolve against baseDir.
func (s Settings) FetcherOptions(baseDir string, log logging.Logger) []specsource.Option {
	return []specsource.Option{
		specsource.WithBaseDir(baseDir),
		specsource.WithRetries(s.HTTPRetries, 250*time.Millisecond, 3*time.Second),
		specsource.WithRateLimit(s.FetchRPS, 1),
		specsource.WithLogger(log),
	}
}

// Generator builds a generator over store with these settings. A nil
// writer makes a dry run; extra options are applied last.
func (s Settings) Generator(store *config.Store, w generator.Writer, log logging.Logger, extra ...generator.Option) (*generator.Generator, error) {
	fetcher, err := specsource.NewLoader(s.FetcherOptions(store.Dir(), log)...)
	if err != nil {
		return nil, err
	}
	opts := []generator.Option{
		generator.WithStore(store),
		generator.WithFetcher(fetcher),
		generator.WithLogger(log),
		generator.WithConcurrency(s.Concurrency),
		generator.WithTimeout(s.Timeout),
		generator.WithModulePath(s.ModulePath),
	}
	if w != nil {
		opts = append(opts, generator.WithWriter(w))
	}
	return generator.New(append(opts, extra...)...)
}

type loader struct {
	log logging.Logger
}

func (l loader) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (l loader) positiveInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		l.log.Warn("invalid int env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func (l loader) nonNegativeInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		l.log.Warn("invalid int env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

// duration accepts a Go duration; "0" disables the timeout.
func (l loader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		l.log.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func (l loader) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		l.log.Warn("invalid number env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}
