package commands

import (
	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/cliutil"
)

func newInitCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold example provider configuration",
		Long: `Write example records for Atlassian, Google, a local petstore, Salesforce and
Slack under the configuration root. Existing files are kept unless --force
is given.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			written, err := config.Scaffold(app.Settings.ConfigDir, force)
			for _, path := range written {
				cliutil.Writef(app.Out, "  created %s\n", path)
			}
			if err != nil {
				return err
			}
			if len(written) == 0 {
				cliutil.Writef(app.Out, "Nothing to do: %s already holds the examples (use --force to overwrite)\n", app.Settings.ConfigDir)
				return nil
			}
			cliutil.Writef(app.Out, "Initialized %s with %d files\n", app.Settings.ConfigDir, len(written))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}
