package commands

import (
	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/cliutil"
	"github.com/erraggy/toolsetgen/internal/probe"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/tserrors"
)

// ValidateFlags contains flags for the validate command
type ValidateFlags struct {
	Provider  string
	API       string
	SkipFetch bool
	Probe     bool
	Report    string
}

// EnvReport is one environment variable a toolset reads.
type EnvReport struct {
	Name     string `json:"name"`
	Option   string `json:"option"`
	Required bool   `json:"required"`
	Set      bool   `json:"set"`
}

// APIReport is the validation outcome of one configured API.
type APIReport struct {
	Provider   string        `json:"provider"`
	API        string        `json:"api"`
	Valid      bool          `json:"valid"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Env        []EnvReport   `json:"env,omitempty"`
	MissingEnv []string      `json:"missing_env,omitempty"`
	Generate   *UnitReport   `json:"generate,omitempty"`
	Probe      *probe.Result `json:"probe,omitempty"`
}

// ValidateReport is written by validate --report.
type ValidateReport struct {
	Valid   bool        `json:"valid"`
	Checked int         `json:"checked"`
	Invalid int         `json:"invalid"`
	APIs    []APIReport `json:"apis"`
}

func newValidateCmd(app *App) *cobra.Command {
	flags := &ValidateFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate provider configuration and specs",
		Long: `Validate resolves every selected API record, lists the environment variables
its toolset reads, and fetches and normalizes its spec without writing
anything. With --probe the credentials found in the environment are checked
against the provider.

Missing environment variables are reported but do not fail validation; a
rejected credential does.`,
		Example: `  toolsetgen validate
  toolsetgen validate --provider slack --probe
  toolsetgen validate --skip-fetch --report validate.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runValidate(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.Provider, "provider", "p", "", "only validate this provider")
	f.StringVarP(&flags.API, "api", "a", "", "only validate this API of --provider")
	f.BoolVar(&flags.SkipFetch, "skip-fetch", false, "do not fetch and normalize specs")
	f.BoolVar(&flags.Probe, "probe", false, "check credentials against the provider")
	f.StringVar(&flags.Report, "report", "", "write a JSON report to this file")
	return cmd
}

func (a *App) runValidate(cmd *cobra.Command, flags *ValidateFlags) error {
	if _, err := generator.SelectionFor(flags.Provider, flags.API); err != nil {
		return err
	}
	store, err := a.loadStore()
	if err != nil {
		return err
	}

	var checked []config.ValidationResult
	for _, v := range store.Validate() {
		if (flags.Provider == "" || v.Provider == flags.Provider) && (flags.API == "" || v.API == flags.API) {
			checked = append(checked, v)
		}
	}
	if len(checked) == 0 && flags.Provider != "" {
		return &tserrors.ConfigError{Provider: flags.Provider, API: flags.API, NotFound: true, Message: "nothing configured"}
	}

	rep := ValidateReport{APIs: make([]APIReport, 0, len(checked))}
	prober := a.prober()
	var units []generator.Unit
	for _, v := range checked {
		item := APIReport{Provider: v.Provider, API: v.API, Valid: v.Err == nil}
		if v.Err != nil {
			item.ErrorKind = string(tserrors.KindOf(v.Err))
			item.Error = v.Err.Error()
			rep.APIs = append(rep.APIs, item)
			continue
		}
		for _, ev := range rendercontext.EnvVars(v.Config, nil) {
			_, set := a.LookupEnv(ev.Name)
			item.Env = append(item.Env, EnvReport{Name: ev.Name, Option: ev.Option, Required: ev.Required, Set: set})
			if ev.Required && !set {
				item.MissingEnv = append(item.MissingEnv, ev.Name)
			}
		}
		if flags.Probe {
			res := prober.Run(cmd.Context(), v.Config)
			item.Probe = &res
			if res.Status == probe.StatusFailed {
				item.Valid = false
			}
		}
		units = append(units, generator.Unit{Provider: v.Provider, API: v.API})
		rep.APIs = append(rep.APIs, item)
	}

	if !flags.SkipFetch && len(units) > 0 {
		g, err := a.Settings.Generator(store, nil, a.Logger)
		if err != nil {
			return err
		}
		run, err := g.Generate(cmd.Context(), generator.Units(units...))
		if err != nil {
			return err
		}
		for i := range run.Results {
			r := &run.Results[i]
			for j := range rep.APIs {
				item := &rep.APIs[j]
				if item.Provider != r.Unit.Provider || item.API != r.Unit.API {
					continue
				}
				ur := newUnitReport(r)
				item.Generate = &ur
				if !r.OK() {
					item.Valid = false
					item.ErrorKind, item.Error = ur.ErrorKind, ur.Error
				}
			}
		}
	}

	rep.Checked = len(rep.APIs)
	for _, item := range rep.APIs {
		if !item.Valid {
			rep.Invalid++
		}
	}
	rep.Valid = rep.Invalid == 0

	printValidate(a, rep)
	if flags.Report != "" {
		data, err := cliutil.Marshal(rep, cliutil.FormatJSON)
		if err != nil {
			return err
		}
		if err := cliutil.WriteFile(flags.Report, append(data, '\n')); err != nil {
			return err
		}
		cliutil.Writef(a.Out, "Report written to %s\n", flags.Report)
	}
	if !rep.Valid {
		return ErrUnitsFailed
	}
	return nil
}

func printValidate(a *App, rep ValidateReport) {
	for _, item := range rep.APIs {
		status := "valid"
		if !item.Valid {
			status = "invalid"
		}
		cliutil.Writef(a.Out, "%s/%s: %s\n", item.Provider, item.API, status)
		if item.Error != "" {
			cliutil.Writef(a.Out, "  error: %s: %s\n", item.ErrorKind, item.Error)
		}
		if g := item.Generate; g != nil && g.Status == string(generator.StatusOK) {
			cliutil.Writef(a.Out, "  spec: %d tools, processor=%s template=%s\n", g.Operations, g.Processor, g.Template)
			for _, iss := range g.Issues {
				cliutil.Writef(a.Out, "  %s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
		}
		for _, name := range item.MissingEnv {
			cliutil.Writef(a.Out, "  missing env: %s\n", name)
		}
		if p := item.Probe; p != nil {
			cliutil.Writef(a.Out, "  probe (%s): %s", p.Method, p.Status)
			if p.Identity != "" {
				cliutil.Writef(a.Out, " as %s", p.Identity)
			}
			if p.Detail != "" {
				cliutil.Writef(a.Out, " (%s)", p.Detail)
			}
			cliutil.Writef(a.Out, "\n")
		}
	}
	cliutil.Writef(a.Out, "\n%d of %d APIs valid\n", rep.Checked-rep.Invalid, rep.Checked)
}
