package config

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/erraggy/toolsetgen/internal/naming"
	"github.com/erraggy/toolsetgen/tserrors"
)

// Store resolves (provider, api) pairs to validated APIConfig records.
type Store struct {
	dir       string
	providers map[string]*ProviderConfig
}

// NewStore builds a store from in-memory provider records. Each API record's
// Provider and API fields are filled in from the map keys.
func NewStore(providers ...*ProviderConfig) *Store {
	s := &Store{providers: make(map[string]*ProviderConfig, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		cp := *p
		cp.APIs = make(map[string]*APIConfig, len(p.APIs))
		for name, api := range p.APIs {
			if api == nil {
				continue
			}
			a := api.Clone()
			a.Provider = p.ID
			a.API = name
			cp.APIs[name] = &a
		}
		s.providers[p.ID] = &cp
	}
	return s
}

// Dir returns the directory the store was loaded from, or "".
func (s *Store) Dir() string {
	return s.dir
}

// ListProviders returns the provider ids in sorted order.
func (s *Store) ListProviders() []string {
	ids := make([]string, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListAPIs returns the api names of provider in sorted order, including
// records that failed to decode.
func (s *Store) ListAPIs(provider string) ([]string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, &tserrors.ConfigError{Provider: provider, NotFound: true, Message: "unknown provider"}
	}
	names := make([]string, 0, len(p.APIs)+len(p.apiErrs))
	for name := range p.APIs {
		names = append(names, name)
	}
	for name := range p.apiErrs {
		if _, dup := p.APIs[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Provider returns a copy of provider id's defaults. The APIs map is left
// nil; use ListAPIs and Resolve for the records.
func (s *Store) Provider(id string) (ProviderConfig, error) {
	p, ok := s.providers[id]
	if !ok {
		return ProviderConfig{}, &tserrors.ConfigError{Provider: id, NotFound: true, Message: "unknown provider"}
	}
	if p.loadErr != nil {
		return ProviderConfig{}, &tserrors.ConfigError{Provider: id, Message: "provider defaults failed to load", Cause: p.loadErr}
	}
	return ProviderConfig{
		ID:        p.ID,
		BaseURL:   p.BaseURL,
		AuthType:  p.AuthType,
		Auth:      maps.Clone(p.Auth),
		Quirks:    slices.Clone(p.Quirks),
		Templates: maps.Clone(p.Templates),
	}, nil
}

// Resolve returns the merged and validated record for (provider, api).
// It fails with ConfigNotFound for an unknown provider or api and with
// ConfigInvalid when a required field is missing or malformed.
func (s *Store) Resolve(provider, api string) (APIConfig, error) {
	p, ok := s.providers[provider]
	if !ok {
		return APIConfig{}, &tserrors.ConfigError{Provider: provider, API: api, NotFound: true, Message: "unknown provider"}
	}
	if p.loadErr != nil {
		return APIConfig{}, &tserrors.ConfigError{Provider: provider, API: api, Message: "provider defaults failed to load", Cause: p.loadErr}
	}
	if err, bad := p.apiErrs[api]; bad {
		return APIConfig{}, &tserrors.ConfigError{Provider: provider, API: api, Message: "record failed to load", Cause: err}
	}
	rec, ok := p.APIs[api]
	if !ok {
		return APIConfig{}, &tserrors.ConfigError{Provider: provider, API: api, NotFound: true, Message: "unknown api"}
	}

	cfg := merge(p, rec.Clone())
	if err := validate(cfg); err != nil {
		return APIConfig{}, err
	}
	return cfg, nil
}

// ValidationResult is the outcome of resolving one configured API.
type ValidationResult struct {
	Provider string
	API      string
	Config   APIConfig
	Err      error
}

// Validate resolves every configured API, in provider then api order.
func (s *Store) Validate() []ValidationResult {
	var out []ValidationResult
	for _, provider := range s.ListProviders() {
		apis, _ := s.ListAPIs(provider)
		for _, api := range apis {
			cfg, err := s.Resolve(provider, api)
			out = append(out, ValidationResult{Provider: provider, API: api, Config: cfg, Err: err})
		}
	}
	return out
}

// merge layers the API record over provider defaults. API values win.
func merge(p *ProviderConfig, cfg APIConfig) APIConfig {
	if cfg.BaseURL == "" {
		cfg.BaseURL = p.BaseURL
	}
	if cfg.AuthType == "" {
		cfg.AuthType = p.AuthType
	}
	cfg.Auth = mergeMaps(p.Auth, cfg.Auth)
	cfg.Templates = mergeMaps(p.Templates, cfg.Templates)

	quirks := slices.Clone(p.Quirks)
	for _, q := range cfg.Quirks {
		if !slices.Contains(quirks, q) {
			quirks = append(quirks, q)
		}
	}
	cfg.Quirks = quirks

	if cfg.Name == "" {
		cfg.Name = naming.Title(cfg.Provider) + " " + naming.Title(cfg.API)
	}
	return cfg
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]string, len(over))
	}
	maps.Copy(out, over)
	return out
}

func validate(cfg APIConfig) error {
	invalid := func(field, msg string) error {
		return &tserrors.ConfigError{Provider: cfg.Provider, API: cfg.API, Field: field, Message: msg}
	}
	switch {
	case strings.TrimSpace(cfg.Spec) == "":
		return invalid("spec", "spec source is required")
	case strings.TrimSpace(cfg.BaseURL) == "":
		return invalid("base_url", "base URL is required")
	case !strings.HasPrefix(cfg.BaseURL, "https://") && !strings.HasPrefix(cfg.BaseURL, "http://"):
		return invalid("base_url", "base URL must be an http(s) URL")
	case cfg.AuthType == "":
		return invalid("auth_type", "auth type is required")
	case !cfg.AuthType.Valid():
		return invalid("auth_type", "unrecognized auth type "+string(cfg.AuthType))
	}
	for _, placeholder := range Placeholders(cfg.BaseURL) {
		if _, ok := cfg.ServerVariables[placeholder]; !ok {
			return invalid("server_variables", "no env var configured for base URL placeholder {"+placeholder+"}")
		}
	}
	return nil
}

// Placeholders returns the distinct {name} placeholders in a URL template,
// sorted.
func Placeholders(u string) []string {
	var out []string
	for {
		start := strings.IndexByte(u, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(u[start:], '}')
		if end < 0 {
			break
		}
		if name := u[start+1 : start+end]; name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
		u = u[start+end+1:]
	}
	sort.Strings(out)
	return out
}
