package commands

import (
	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/cliutil"
)

func newTestCmd(app *App) *cobra.Command {
	var (
		provider, api string
		code          bool
	)
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Generate one API in memory and list its tools",
		Long: `Fetch, normalize and render a single API without writing anything, then
print the tools it would expose. Use --code to print the generated source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.loadStore()
			if err != nil {
				return err
			}
			g, err := app.Settings.Generator(store, nil, app.Logger)
			if err != nil {
				return err
			}
			run, err := g.Generate(cmd.Context(), generator.Units(generator.Unit{Provider: provider, API: api}))
			if err != nil {
				return err
			}
			res := &run.Results[0]
			printUnit(app.Out, newUnitReport(res))
			if !res.OK() {
				return ErrUnitsFailed
			}
			cliutil.Writef(app.Out, "\n")
			for _, tool := range res.Tools {
				cliutil.Writef(app.Out, "  %-48s %-6s %s\n", tool.Name, tool.Method, tool.Path)
				if tool.Summary != "" {
					cliutil.Writef(app.Out, "      %s\n", tool.Summary)
				}
			}
			if code {
				cliutil.Writef(app.Out, "\n%s", res.Code)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&provider, "provider", "p", "", "provider id (required)")
	f.StringVarP(&api, "api", "a", "", "api name (required)")
	f.BoolVar(&code, "code", false, "print the generated source")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("api")
	return cmd
}
