package commands

import (
	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/cliutil"
)

func newCleanCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove generated toolsets",
		Long: `Remove every package listed in the output directory's toolsets.json along
with the registry source and the index. Files the generator did not write
are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("output") {
				output = app.Settings.OutputDir
			}
			removed, err := generator.Clean(output)
			for _, p := range removed {
				cliutil.Writef(app.Out, "  removed %s\n", p)
			}
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				cliutil.Writef(app.Out, "Nothing to clean in %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: TOOLSETGEN_OUTPUT_DIR)")
	return cmd
}
