package commands

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/cliutil"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/templating"
	"github.com/erraggy/toolsetgen/tserrors"
)

// ListEntry is one API in list output.
type ListEntry struct {
	Provider string `json:"provider" yaml:"provider"`
	API      string `json:"api" yaml:"api"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	AuthType string `json:"auth_type,omitempty" yaml:"auth_type,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newListCmd(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured providers and APIs",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := cliutil.ValidateOutputFormat(format, cliutil.FormatText, cliutil.FormatJSON, cliutil.FormatYAML); err != nil {
				return err
			}
			store, err := app.loadStore()
			if err != nil {
				return err
			}
			var entries []ListEntry
			for _, v := range store.Validate() {
				e := ListEntry{Provider: v.Provider, API: v.API, Name: v.Config.Name, AuthType: string(v.Config.AuthType)}
				if v.Err != nil {
					e.Error = v.Err.Error()
				}
				entries = append(entries, e)
			}
			if format != cliutil.FormatText {
				return cliutil.OutputStructured(app.Out, entries, format)
			}

			providers := store.ListProviders()
			cliutil.Writef(app.Out, "%d providers, %d APIs\n", len(providers), len(entries))
			last := ""
			for _, e := range entries {
				if e.Provider != last {
					cliutil.Writef(app.Out, "\n%s\n", e.Provider)
					last = e.Provider
				}
				if e.Error != "" {
					cliutil.Writef(app.Out, "  %-20s invalid: %s\n", e.API, e.Error)
					continue
				}
				cliutil.Writef(app.Out, "  %-20s %-8s %s\n", e.API, e.AuthType, e.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", cliutil.FormatText, "output format: text, json or yaml")
	return cmd
}

// InfoEntry is the resolved detail of one API.
type InfoEntry struct {
	Toolset  string           `json:"toolset" yaml:"toolset"`
	Config   config.APIConfig `json:"config" yaml:"config"`
	Template string           `json:"template,omitempty" yaml:"template,omitempty"`
	Env      []EnvReport      `json:"env,omitempty" yaml:"env,omitempty"`
}

func newInfoCmd(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "info [provider]",
		Short: "Show the resolved configuration of each API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := cliutil.ValidateOutputFormat(format, cliutil.FormatText, cliutil.FormatJSON, cliutil.FormatYAML); err != nil {
				return err
			}
			store, err := app.loadStore()
			if err != nil {
				return err
			}
			providers := store.ListProviders()
			if len(args) == 1 {
				if _, err := store.ListAPIs(args[0]); err != nil {
					return err
				}
				providers = args
			}
			engine, err := templating.New(templating.WithLogger(app.Logger))
			if err != nil {
				return err
			}

			var entries []InfoEntry
			defaults := map[string]config.ProviderConfig{}
			for _, provider := range providers {
				if p, err := store.Provider(provider); err == nil {
					defaults[provider] = p
				}
				apis, _ := store.ListAPIs(provider)
				for _, api := range apis {
					cfg, err := store.Resolve(provider, api)
					if err != nil {
						app.Logger.Warn("skipping unresolvable api", "provider", provider, "api", api, "kind", string(tserrors.KindOf(err)), "error", err)
						cliutil.Writef(app.Err, "%s/%s: %v\n", provider, api, err)
						continue
					}
					e := InfoEntry{Toolset: cfg.ToolsetName(), Config: cfg}
					for _, ev := range rendercontext.EnvVars(cfg, nil) {
						_, set := app.LookupEnv(ev.Name)
						e.Env = append(e.Env, EnvReport{Name: ev.Name, Option: ev.Option, Required: ev.Required, Set: set})
					}
					if id := cfg.Templates[string(cfg.AuthType)]; id != "" {
						e.Template = id
					} else if id, err := engine.Select(cfg.AuthType, cfg.Provider); err == nil {
						e.Template = id
					}
					entries = append(entries, e)
				}
			}
			if format != cliutil.FormatText {
				return cliutil.OutputStructured(app.Out, entries, format)
			}
			last := ""
			for _, e := range entries {
				if e.Config.Provider != last {
					last = e.Config.Provider
					printProviderDefaults(app, defaults[last])
				}
				printInfo(app, e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", cliutil.FormatText, "output format: text, json or yaml")
	return cmd
}

func printProviderDefaults(app *App, p config.ProviderConfig) {
	if p.BaseURL == "" && p.AuthType == "" && len(p.Quirks) == 0 {
		return
	}
	cliutil.Writef(app.Out, "# %s defaults:", p.ID)
	if p.BaseURL != "" {
		cliutil.Writef(app.Out, " base_url=%s", p.BaseURL)
	}
	if p.AuthType != "" {
		cliutil.Writef(app.Out, " auth_type=%s", p.AuthType)
	}
	if len(p.Quirks) > 0 {
		cliutil.Writef(app.Out, " quirks=%s", strings.Join(p.Quirks, ","))
	}
	cliutil.Writef(app.Out, "\n\n")
}

func printInfo(app *App, e InfoEntry) {
	c := e.Config
	w := app.Out
	cliutil.Writef(w, "%s/%s (%s)\n", c.Provider, c.API, e.Toolset)
	if c.Name != "" {
		cliutil.Writef(w, "  Name:      %s\n", c.Name)
	}
	cliutil.Writef(w, "  Spec:      %s\n", c.Spec)
	cliutil.Writef(w, "  Base URL:  %s\n", c.BaseURL)
	cliutil.Writef(w, "  Auth:      %s\n", c.AuthType)
	cliutil.Writef(w, "  Template:  %s\n", e.Template)
	if len(c.Scopes) > 0 {
		scopes := make([]string, 0, len(c.Scopes))
		for s := range c.Scopes {
			scopes = append(scopes, s)
		}
		sort.Strings(scopes)
		cliutil.Writef(w, "  Scopes:    %s\n", strings.Join(scopes, ", "))
	}
	if len(c.Quirks) > 0 {
		cliutil.Writef(w, "  Quirks:    %s\n", strings.Join(c.Quirks, ", "))
	}
	if len(c.IncludeTags) > 0 {
		cliutil.Writef(w, "  Tags:      %s\n", strings.Join(c.IncludeTags, ", "))
	}
	for _, ev := range e.Env {
		req := "optional"
		if ev.Required {
			req = "required"
		}
		if !ev.Set {
			req += ", unset"
		}
		cliutil.Writef(w, "  Env:       %s (%s)\n", ev.Name, req)
	}
	if doc := c.Metadata["documentation"]; doc != "" {
		cliutil.Writef(w, "  Docs:      %s\n", doc)
	}
	cliutil.Writef(w, "\n")
}
