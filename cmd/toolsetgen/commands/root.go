// Package commands provides the cobra commands of the toolsetgen CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/cliutil"
	"github.com/erraggy/toolsetgen/internal/envcfg"
	"github.com/erraggy/toolsetgen/internal/probe"
	"github.com/erraggy/toolsetgen/logging"
)

// ErrUnitsFailed is returned by commands that ran to completion but had at
// least one failed unit, failed validation, or rejected credential.
var ErrUnitsFailed = errors.New("one or more units failed")

// App holds the state shared by every command of one invocation.
type App struct {
	Out io.Writer
	Err io.Writer
	// LookupEnv reads credentials and server variables.
	LookupEnv func(string) (string, bool)
	// Prober overrides the credential prober used by validate --probe.
	Prober *probe.Prober

	// Settings and Logger are ready once the root command's pre-run hook
	// has run.
	Settings envcfg.Settings
	Logger   logging.Logger

	configDir string
	verbose   bool
	zap       *zap.Logger
}

// NewApp returns an App writing to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{Out: stdout, Err: stderr, LookupEnv: os.LookupEnv, Logger: logging.NopLogger{}}
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "toolsetgen",
		Short: "Generate Go MCP toolsets from OpenAPI specifications",
		Long: `toolsetgen turns the OpenAPI specs of configured providers into Go packages
that expose every API operation as an MCP tool.

Provider configuration lives under <config-dir>/providers/<provider>/<api>.yaml.
Defaults come from TOOLSETGEN_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app.zap != nil {
				_ = app.zap.Sync()
			}
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().StringVar(&app.configDir, "config-dir", "", "configuration root (default $TOOLSETGEN_CONFIG_DIR or ./config)")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newInitCmd(app),
		newListCmd(app),
		newInfoCmd(app),
		newCreateConfigCmd(app),
		newGenerateCmd(app),
		newValidateCmd(app),
		newTestCmd(app),
		newCleanCmd(app),
		newExportCmd(app),
		newMCPCmd(app),
		newVersionCmd(app),
	)
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := NewApp(stdout, stderr)
	root := NewRootCmd(app)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrUnitsFailed) {
			cliutil.Writef(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// setup builds the logger and loads the environment settings.
func (a *App) setup(cmd *cobra.Command) error {
	level := zapcore.WarnLevel
	encCfg := zap.NewProductionEncoderConfig()
	if a.verbose {
		level = zapcore.DebugLevel
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(a.Err), level)
	a.zap = zap.New(core).Named(cmd.Name())
	a.Logger = logging.NewZapAdapter(a.zap)

	a.Settings = envcfg.Load(a.Logger)
	if a.configDir != "" {
		a.Settings.ConfigDir = a.configDir
	}
	return nil
}

// loadStore reads the configuration root.
func (a *App) loadStore() (*config.Store, error) {
	store, err := config.Load(a.Settings.ConfigDir, config.WithLogger(a.Logger))
	if err != nil {
		return nil, fmt.Errorf("loading configuration from %s: %w", a.Settings.ConfigDir, err)
	}
	return store, nil
}

func (a *App) prober() *probe.Prober {
	if a.Prober != nil {
		return a.Prober
	}
	return probe.New(probe.WithLookupEnv(a.LookupEnv))
}
