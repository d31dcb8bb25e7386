package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/probe"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/tserrors"
)

type validateInput struct {
	ConfigDir string `json:"config_dir,omitempty" jsonschema:"Configuration root (default: TOOLSETGEN_CONFIG_DIR)"`
	Provider  string `json:"provider,omitempty"   jsonschema:"Only validate this provider"`
	Fetch     bool   `json:"fetch,omitempty"      jsonschema:"Fetch and normalize each spec and render its toolset without writing"`
	Probe     bool   `json:"probe,omitempty"      jsonschema:"Check credentials against the provider (slack auth.test, jira myself, or a GET of the base URL)"`
}

type envInfo struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Set      bool   `json:"set"`
}

type apiValidation struct {
	Provider  string        `json:"provider"`
	API       string        `json:"api"`
	Valid     bool          `json:"valid"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Env       []envInfo     `json:"env,omitempty"`
	Missing   []string      `json:"missing_env,omitempty"`
	Generate  *unitResult   `json:"generate,omitempty"`
	Probe     *probe.Result `json:"probe,omitempty"`
}

type validateOutput struct {
	Valid        bool            `json:"valid"`
	ValidCount   int             `json:"valid_count"`
	InvalidCount int             `json:"invalid_count"`
	Results      []apiValidation `json:"results"`
}

func (s *Server) handleValidate(ctx context.Context, _ *mcp.CallToolRequest, input validateInput) (*mcp.CallToolResult, validateOutput, error) {
	store, err := s.loadStore(input.ConfigDir)
	if err != nil {
		return errResult(err), validateOutput{}, nil
	}

	var checked []config.ValidationResult
	for _, v := range store.Validate() {
		if input.Provider == "" || v.Provider == input.Provider {
			checked = append(checked, v)
		}
	}
	if input.Provider != "" && len(checked) == 0 {
		return errResult(&tserrors.ConfigError{Provider: input.Provider, NotFound: true, Message: "unknown provider"}), validateOutput{}, nil
	}

	output := validateOutput{Results: makeSlice[apiValidation](len(checked))}
	for _, v := range checked {
		item := apiValidation{Provider: v.Provider, API: v.API, Valid: v.Err == nil}
		if v.Err != nil {
			item.ErrorKind = string(tserrors.KindOf(v.Err))
			item.Error = sanitizeError(v.Err)
		} else {
			for _, ev := range rendercontext.EnvVars(v.Config, nil) {
				_, set := s.lookupEnv(ev.Name)
				item.Env = append(item.Env, envInfo{Name: ev.Name, Required: ev.Required, Set: set})
				if ev.Required && !set {
					item.Missing = append(item.Missing, ev.Name)
				}
			}
			if input.Probe {
				res := s.prober.Run(ctx, v.Config)
				item.Probe = &res
			}
		}
		output.Results = append(output.Results, item)
	}

	if input.Fetch {
		if err := s.dryRun(ctx, store, output.Results); err != nil {
			return errResult(err), validateOutput{}, nil
		}
	}

	for i := range output.Results {
		if output.Results[i].Valid {
			output.ValidCount++
		} else {
			output.InvalidCount++
		}
	}
	output.Valid = output.InvalidCount == 0
	return nil, output, nil
}

// dryRun generates the valid entries without writing and folds each unit's
// outcome into its entry. A failed unit makes the entry invalid.
func (s *Server) dryRun(ctx context.Context, store *config.Store, results []apiValidation) error {
	var units []generator.Unit
	index := map[generator.Unit]int{}
	for i, r := range results {
		if r.Valid {
			u := generator.Unit{Provider: r.Provider, API: r.API}
			index[u] = i
			units = append(units, u)
		}
	}
	if len(units) == 0 {
		return nil
	}

	g, err := s.settings.Generator(store, nil, s.logger)
	if err != nil {
		return err
	}
	run, err := g.Generate(ctx, generator.Units(units...))
	if err != nil {
		return err
	}
	for i := range run.Results {
		r := &run.Results[i]
		ur := toUnitResult(r)
		item := &results[index[r.Unit]]
		item.Generate = &ur
		if !r.OK() {
			item.Valid = false
			item.ErrorKind = ur.ErrorKind
			item.Error = ur.Error
		}
	}
	return nil
}
