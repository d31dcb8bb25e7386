// Package normalizer turns raw provider specs into canonical specs.
//
// A [Normalizer] holds a registry of [Processor] variants in a fixed
// priority order. [Normalizer.Process] uses the first variant whose Supports
// predicate accepts the provider and falls back to the generic processor
// when none does. Each built-in variant is a pipeline of named quirks
// applied to a clone of the raw document, followed by the shared
// canonicalization step:
//
//	google      google_discovery, google_standard_params
//	atlassian   boolean_enums, servers_from_base_url
//	slack       slack_form_to_json, strip_token_param
//	salesforce  salesforce_sobjects, servers_from_base_url
//	generic     (configured quirks only)
//
// Quirks listed in the API configuration are added to the variant's own.
//
// A document that fails structural validation yields SpecMalformed. An
// operation the generator cannot represent is dropped and recorded as an
// UnsupportedOperation warning on the canonical spec.
package normalizer

import (
	"fmt"
	"slices"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/spec"
)

// NormalizeFunc converts a raw document into a canonical spec. It must not
// mutate raw.
type NormalizeFunc func(raw spec.RawSpec, cfg config.APIConfig) (*spec.CanonicalSpec, error)

// Processor is one normalization variant.
type Processor struct {
	// Name identifies the variant in results and logs
	Name string
	// Supports reports whether the variant handles the provider
	Supports func(provider string) bool
	// Normalize produces the canonical spec
	Normalize NormalizeFunc
}

// Normalizer selects and runs processors.
type Normalizer struct {
	processors []Processor
	fallback   Processor
	logger     logging.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithProcessors registers extra processors ahead of the built-in ones.
func WithProcessors(ps ...Processor) Option {
	return func(n *Normalizer) error {
		for _, p := range ps {
			if p.Name == "" || p.Supports == nil || p.Normalize == nil {
				return fmt.Errorf("normalizer: processor %q needs a name, a predicate and a normalize function", p.Name)
			}
		}
		n.processors = append(slices.Clone(ps), n.processors...)
		return nil
	}
}

// WithLogger sets the logger, which is also handed to the OpenAPI parser.
func WithLogger(l logging.Logger) Option {
	return func(n *Normalizer) error {
		n.logger = logging.OrNop(l)
		return nil
	}
}

// New returns a Normalizer with the built-in processors.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{logger: logging.NopLogger{}}
	n.processors = builtinProcessors(n)
	n.fallback = genericProcessor(n)
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Select returns the processor used for provider.
func (n *Normalizer) Select(provider string) Processor {
	for _, p := range n.processors {
		if p.Supports(provider) {
			return p
		}
	}
	return n.fallback
}

// Processors returns the processor names in priority order, fallback last.
func (n *Normalizer) Processors() []string {
	names := make([]string, 0, len(n.processors)+1)
	for _, p := range n.processors {
		names = append(names, p.Name)
	}
	return append(names, n.fallback.Name)
}

// Process normalizes raw for provider using the selected processor.
func (n *Normalizer) Process(provider string, raw spec.RawSpec, cfg config.APIConfig) (*spec.CanonicalSpec, error) {
	p := n.Select(provider)
	n.logger.Debug("normalizing spec", "provider", provider, "api", cfg.API, "processor", p.Name)
	cs, err := p.Normalize(raw, cfg)
	if err != nil {
		return nil, err
	}
	if cs.Processor == "" {
		cs.Processor = p.Name
	}
	return cs, nil
}
