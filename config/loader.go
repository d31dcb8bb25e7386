package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v4"

	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/tserrors"
)

const (
	// ProvidersDir is the directory under the config root holding providers.
	ProvidersDir = "providers"
	// ProviderFile holds provider defaults inside a provider directory.
	ProviderFile = "provider.yaml"
)

// Option configures Load.
type Option func(*loadConfig) error

type loadConfig struct {
	logger logging.Logger
	strict bool
}

// WithLogger sets the logger used while loading.
func WithLogger(l logging.Logger) Option {
	return func(c *loadConfig) error {
		c.logger = logging.OrNop(l)
		return nil
	}
}

// WithStrict makes unknown YAML fields a decode error. Enabled by default.
func WithStrict(strict bool) Option {
	return func(c *loadConfig) error {
		c.strict = strict
		return nil
	}
}

// Load reads every provider under dir/providers. A record that fails to
// decode does not fail the load: it is kept so that Resolve reports it as
// ConfigInvalid. Load fails with ConfigNotFound when the providers
// directory does not exist.
func Load(dir string, opts ...Option) (*Store, error) {
	cfg := &loadConfig{logger: logging.NopLogger{}, strict: true}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	root := filepath.Join(dir, ProvidersDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &tserrors.ConfigError{NotFound: true, Message: "no providers directory at " + root}
		}
		return nil, &tserrors.ConfigError{Message: "reading " + root, Cause: err}
	}

	s := &Store{dir: dir, providers: map[string]*ProviderConfig{}}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := loadProvider(filepath.Join(root, e.Name()), e.Name(), cfg)
		if err != nil {
			return nil, err
		}
		s.providers[p.ID] = p
	}
	cfg.logger.Debug("configuration loaded", "dir", dir, "providers", len(s.providers))
	return s, nil
}

func loadProvider(dir, id string, cfg *loadConfig) (*ProviderConfig, error) {
	p := &ProviderConfig{ID: id, APIs: map[string]*APIConfig{}, apiErrs: map[string]error{}}

	if data, err := os.ReadFile(filepath.Join(dir, ProviderFile)); err == nil {
		if err := decode(data, p, cfg.strict); err != nil {
			cfg.logger.Warn("provider defaults failed to decode", "provider", id, "error", err)
			p.loadErr = err
		}
		p.ID = id
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &tserrors.ConfigError{Provider: id, Message: "reading " + ProviderFile, Cause: err}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, &tserrors.ConfigError{Provider: id, Message: "reading provider directory", Cause: err}
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		ext := filepath.Ext(name)
		if name == ProviderFile || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		api := strings.TrimSuffix(name, ext)
		if _, dup := p.APIs[api]; dup {
			p.apiErrs[api] = fmt.Errorf("duplicate record for api %q (%s)", api, name)
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, &tserrors.ConfigError{Provider: id, API: api, Message: "reading " + name, Cause: err}
		}
		var rec APIConfig
		if err := decode(data, &rec, cfg.strict); err != nil {
			cfg.logger.Warn("api record failed to decode", "provider", id, "api", api, "error", err)
			p.apiErrs[api] = err
			continue
		}
		rec.Provider = id
		rec.API = api
		p.APIs[api] = &rec
	}
	return p, nil
}

func decode(data []byte, out any, strict bool) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(strict)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
