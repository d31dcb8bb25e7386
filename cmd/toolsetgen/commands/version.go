package commands

import (
	"github.com/spf13/cobra"

	toolsetgen "github.com/erraggy/toolsetgen"
	"github.com/erraggy/toolsetgen/internal/cliutil"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cliutil.Writef(app.Out, "%s\n", toolsetgen.BuildInfo())
			return nil
		},
	}
}
