package generator

import (
	"fmt"
	"strings"

	"github.com/erraggy/toolsetgen/config"
)

// Unit is one (provider, api) pair to generate.
type Unit struct {
	Provider string
	API      string
}

// String returns "provider/api".
func (u Unit) String() string {
	return u.Provider + "/" + u.API
}

// ToolsetName returns the registry name the unit generates.
func (u Unit) ToolsetName() string {
	return u.Provider + "_" + u.API
}

// ParseUnit parses "provider/api".
func ParseUnit(s string) (Unit, error) {
	provider, api, ok := strings.Cut(s, "/")
	if !ok || provider == "" || api == "" {
		return Unit{}, fmt.Errorf("generator: invalid unit %q: want provider/api", s)
	}
	return Unit{Provider: provider, API: api}, nil
}

// Selection names the units of a run.
type Selection struct {
	all       bool
	providers []string
	units     []Unit
}

// All selects every configured API, providers and APIs in sorted order.
func All() Selection {
	return Selection{all: true}
}

// Units selects exactly the given units, in order. Duplicates are kept.
func Units(units ...Unit) Selection {
	return Selection{units: append([]Unit(nil), units...)}
}

// ForProvider selects every API of the given providers, in the order the
// providers are listed. An unknown provider becomes a single unit that fails
// with ConfigNotFound.
func ForProvider(providers ...string) Selection {
	return Selection{providers: append([]string(nil), providers...)}
}

// SelectionFor maps a provider and api filter to a selection. Both empty
// selects everything, a provider alone selects its APIs, and both select the
// one unit. An api without a provider is an error.
func SelectionFor(provider, api string) (Selection, error) {
	switch {
	case provider == "" && api != "":
		return Selection{}, fmt.Errorf("generator: api %q given without a provider", api)
	case provider == "":
		return All(), nil
	case api == "":
		return ForProvider(provider), nil
	default:
		return Units(Unit{Provider: provider, API: api}), nil
	}
}

// Expand returns the units the selection names against store.
func (s Selection) Expand(store *config.Store) []Unit {
	if len(s.units) > 0 {
		return append([]Unit(nil), s.units...)
	}
	providers := s.providers
	if s.all {
		providers = store.ListProviders()
	}
	var units []Unit
	for _, p := range providers {
		apis, err := store.ListAPIs(p)
		if err != nil {
			units = append(units, Unit{Provider: p})
			continue
		}
		for _, api := range apis {
			units = append(units, Unit{Provider: p, API: api})
		}
	}
	return units
}
