package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type listInput struct {
	ConfigDir string `json:"config_dir,omitempty" jsonschema:"Configuration root (default: TOOLSETGEN_CONFIG_DIR)"`
	Provider  string `json:"provider,omitempty"   jsonschema:"Only list this provider"`
}

type apiSummary struct {
	API      string `json:"api"`
	Toolset  string `json:"toolset"`
	Name     string `json:"name,omitempty"`
	AuthType string `json:"auth_type,omitempty"`
	Spec     string `json:"spec,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type providerSummary struct {
	Provider string       `json:"provider"`
	APIs     []apiSummary `json:"apis,omitempty"`
}

type listOutput struct {
	Providers []providerSummary `json:"providers"`
	APICount  int               `json:"api_count"`
}

func (s *Server) handleListAPIs(_ context.Context, _ *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, listOutput, error) {
	store, err := s.loadStore(input.ConfigDir)
	if err != nil {
		return errResult(err), listOutput{}, nil
	}

	providers := store.ListProviders()
	if input.Provider != "" {
		providers = []string{input.Provider}
	}

	output := listOutput{Providers: makeSlice[providerSummary](len(providers))}
	for _, provider := range providers {
		apis, err := store.ListAPIs(provider)
		if err != nil {
			return errResult(err), listOutput{}, nil
		}
		summary := providerSummary{Provider: provider, APIs: makeSlice[apiSummary](len(apis))}
		for _, api := range apis {
			item := apiSummary{API: api, Toolset: provider + "_" + api}
			cfg, err := store.Resolve(provider, api)
			if err != nil {
				item.Error = sanitizeError(err)
			} else {
				item.Name = cfg.Name
				item.AuthType = string(cfg.AuthType)
				item.Spec = cfg.Spec
				item.BaseURL = cfg.BaseURL
			}
			summary.APIs = append(summary.APIs, item)
		}
		output.APICount += len(apis)
		output.Providers = append(output.Providers, summary)
	}
	return nil, output, nil
}
