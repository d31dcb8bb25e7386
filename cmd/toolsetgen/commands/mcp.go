package commands

import (
	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/internal/mcpserver"
)

func newMCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve list, generate and validate as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mcpserver.New(app.Settings,
				mcpserver.WithLogger(app.Logger),
				mcpserver.WithLookupEnv(app.LookupEnv),
			).Run(cmd.Context())
		},
	}
}
