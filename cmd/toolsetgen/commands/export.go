package commands

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/cliutil"
	"github.com/erraggy/toolsetgen/rendercontext"
)

const formatEnv = "env"

func newExportCmd(app *App) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export resolved configuration or an environment template",
		Long: `Export every resolvable API record. The json format writes the resolved
records keyed by provider. The env format writes a template of the
environment variables the generated toolsets read.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := cliutil.ValidateOutputFormat(format, cliutil.FormatJSON, formatEnv); err != nil {
				return err
			}
			store, err := app.loadStore()
			if err != nil {
				return err
			}
			resolved := map[string][]config.APIConfig{}
			for _, v := range store.Validate() {
				if v.Err != nil {
					cliutil.Writef(app.Err, "skipping %s/%s: %v\n", v.Provider, v.API, v.Err)
					continue
				}
				resolved[v.Provider] = append(resolved[v.Provider], v.Config)
			}

			var data []byte
			if format == formatEnv {
				data = envTemplate(resolved)
			} else if data, err = cliutil.Marshal(resolved, cliutil.FormatJSON); err != nil {
				return err
			}
			if output == "" {
				_, err = app.Out.Write(data)
				return err
			}
			if err := cliutil.WriteFile(output, data); err != nil {
				return err
			}
			cliutil.Writef(app.Out, "Exported %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", cliutil.FormatJSON, "export format: json or env")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

// envTemplate renders one commented, empty assignment per distinct variable,
// sorted by name.
func envTemplate(resolved map[string][]config.APIConfig) []byte {
	type entry struct {
		required bool
		users    []string
	}
	vars := map[string]*entry{}
	for _, cfgs := range resolved {
		for _, cfg := range cfgs {
			for _, ev := range rendercontext.EnvVars(cfg, nil) {
				e := vars[ev.Name]
				if e == nil {
					e = &entry{}
					vars[ev.Name] = e
				}
				e.required = e.required || ev.Required
				e.users = append(e.users, cfg.ToolsetName())
			}
		}
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("# Environment for generated toolsets\n")
	for _, name := range names {
		e := vars[name]
		sort.Strings(e.users)
		req := "optional"
		if e.required {
			req = "required"
		}
		fmt.Fprintf(&buf, "\n# %s, used by %v\n%s=\n", req, e.users, name)
	}
	return buf.Bytes()
}
