package normalizer

import (
	"slices"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/spec"
)

func providerIn(ids ...string) func(string) bool {
	return func(provider string) bool {
		return slices.Contains(ids, provider)
	}
}

func builtinProcessors(n *Normalizer) []Processor {
	return []Processor{
		{
			Name:      "google",
			Supports:  providerIn("google", "googleapis"),
			Normalize: n.pipeline("google", quirkGoogleDiscovery, quirkGoogleStandardParams),
		},
		{
			Name:      "atlassian",
			Supports:  providerIn("atlassian", "jira", "confluence"),
			Normalize: n.pipeline("atlassian", quirkBooleanEnums, quirkServersFromBaseURL),
		},
		{
			Name:      "slack",
			Supports:  providerIn("slack"),
			Normalize: n.pipeline("slack", quirkSlackFormToJSON, quirkStripTokenParam),
		},
		{
			Name:      "salesforce",
			Supports:  providerIn("salesforce"),
			Normalize: n.pipeline("salesforce", quirkSalesforceSObjects, quirkServersFromBaseURL),
		},
	}
}

func genericProcessor(n *Normalizer) Processor {
	return Processor{
		Name:      "generic",
		Supports:  func(string) bool { return true },
		Normalize: n.pipeline("generic"),
	}
}

// pipeline builds a NormalizeFunc that applies the named quirks plus the
// configured ones, in registry order, and then canonicalizes.
func (n *Normalizer) pipeline(name string, builtin ...string) NormalizeFunc {
	return func(raw spec.RawSpec, cfg config.APIConfig) (*spec.CanonicalSpec, error) {
		quirks, err := resolveQuirks(builtin, cfg)
		if err != nil {
			return nil, err
		}
		doc := raw.Clone()
		if doc == nil {
			doc = spec.RawSpec{}
		}
		st := &state{cfg: cfg, logger: n.logger}
		for _, q := range quirks {
			if err := q.apply(doc, st); err != nil {
				return nil, err
			}
		}
		cs, err := canonicalize(doc, st)
		if err != nil {
			return nil, err
		}
		cs.Processor = name
		return cs, nil
	}
}
