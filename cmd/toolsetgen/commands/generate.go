package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/cliutil"
	"github.com/erraggy/toolsetgen/internal/metrics"
)

// GenerateFlags contains flags for the generate command
type GenerateFlags struct {
	Provider    string
	API         string
	Output      string
	ModulePath  string
	Concurrency int
	Timeout     time.Duration
	MetricsFile string
	DryRun      bool
	Format      string
}

func newGenerateCmd(app *App) *cobra.Command {
	flags := &GenerateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate toolsets for the selected APIs",
		Long: `Generate one Go package per selected API plus registry.go and toolsets.json.

Without --provider every configured API is generated. A failing API does not
stop the others; the exit code is non-zero when any of them failed.`,
		Example: `  toolsetgen generate
  toolsetgen generate --provider slack
  toolsetgen generate --provider atlassian --api jira --output ./internal/toolsets --module-path example.com/agent/internal/toolsets
  toolsetgen generate --timeout 2m --metrics-file /var/lib/node_exporter/toolsetgen.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runGenerate(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.Provider, "provider", "p", "", "only generate this provider")
	f.StringVarP(&flags.API, "api", "a", "", "only generate this API of --provider")
	f.StringVarP(&flags.Output, "output", "o", "", "output directory (default $TOOLSETGEN_OUTPUT_DIR or ./toolsets)")
	f.StringVar(&flags.ModulePath, "module-path", "", "import path of the output directory (default $TOOLSETGEN_MODULE_PATH)")
	f.IntVarP(&flags.Concurrency, "concurrency", "j", 0, "units generated in parallel (default $TOOLSETGEN_CONCURRENCY or the CPU count)")
	f.DurationVar(&flags.Timeout, "timeout", 0, "run-level timeout, 0 for none (default $TOOLSETGEN_TIMEOUT)")
	f.StringVar(&flags.MetricsFile, "metrics-file", "", "write Prometheus metrics of the run to this file")
	f.BoolVar(&flags.DryRun, "dry-run", false, "render without writing any file")
	f.StringVar(&flags.Format, "format", cliutil.FormatText, "output format: text or json")
	return cmd
}

func (a *App) runGenerate(cmd *cobra.Command, flags *GenerateFlags) error {
	if err := cliutil.ValidateOutputFormat(flags.Format, cliutil.FormatText, cliutil.FormatJSON); err != nil {
		return err
	}
	sel, err := generator.SelectionFor(flags.Provider, flags.API)
	if err != nil {
		return err
	}

	settings := a.Settings
	if flags.Output != "" {
		settings.OutputDir = flags.Output
	}
	if flags.ModulePath != "" {
		settings.ModulePath = flags.ModulePath
	}
	if cmd.Flags().Changed("concurrency") {
		settings.Concurrency = flags.Concurrency
	}
	if cmd.Flags().Changed("timeout") {
		settings.Timeout = flags.Timeout
	}

	store, err := a.loadStore()
	if err != nil {
		return err
	}
	var writer generator.Writer
	if !flags.DryRun {
		writer = generator.NewDirWriter(settings.OutputDir)
	}
	collector := metrics.NewCollector()
	g, err := settings.Generator(store, writer, a.Logger, generator.WithMetrics(collector))
	if err != nil {
		return err
	}

	run, err := g.Generate(cmd.Context(), sel)
	if run != nil {
		rep := newRunReport(run, settings.OutputDir)
		if flags.Format == cliutil.FormatJSON {
			if oerr := cliutil.OutputStructured(a.Out, rep, cliutil.FormatJSON); oerr != nil {
				return oerr
			}
		} else {
			printRun(a.Out, rep)
		}
	}
	if flags.MetricsFile != "" {
		if merr := writeMetrics(collector, flags.MetricsFile); merr != nil {
			a.Logger.Error("writing metrics failed", "path", flags.MetricsFile, "error", merr)
			if err == nil {
				err = merr
			}
		}
	}
	if err != nil {
		return err
	}
	if !run.OK() {
		for _, r := range run.Failed() {
			cliutil.Writef(a.Err, "failed: %s: %s: %v\n", r.Unit, r.Kind, r.Err)
		}
		return ErrUnitsFailed
	}
	return nil
}

func writeMetrics(c *metrics.Collector, path string) error {
	if err := cliutil.RejectSymlinkOutput(path); err != nil {
		return err
	}
	if err := c.WriteTextfile(path); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
