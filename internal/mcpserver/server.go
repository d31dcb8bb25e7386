// Package mcpserver implements an MCP (Model Context Protocol) server
// that exposes the toolset generator as MCP tools over stdio.
package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"regexp"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/erraggy/toolsetgen"
	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/envcfg"
	"github.com/erraggy/toolsetgen/internal/probe"
	"github.com/erraggy/toolsetgen/logging"
)

const serverInstructions = `toolsetgen MCP server: lists configured APIs, validates provider configuration, and generates Go MCP toolsets from OpenAPI specs.

Configuration: defaults come from TOOLSETGEN_* environment variables set in your MCP client config. The Go MCP SDK does not support initializationOptions; use env vars instead.

Key settings:
- TOOLSETGEN_CONFIG_DIR (default: config): provider configuration root
- TOOLSETGEN_OUTPUT_DIR (default: toolsets): where generate_toolset writes
- TOOLSETGEN_MODULE_PATH (default: toolsets): import path of the output directory
- TOOLSETGEN_CONCURRENCY (default: number of CPUs): units generated in parallel
- TOOLSETGEN_TIMEOUT (default: none): run-level timeout, e.g. 2m
- TOOLSETGEN_HTTP_RETRIES (default: 3): retries for remote spec fetches
- TOOLSETGEN_FETCH_RPS (default: 5): remote spec fetches per second per host

Configuration is re-read on every call, so edits under the config dir take effect without restarting the server.`

// Server serves the generator tools.
type Server struct {
	settings  envcfg.Settings
	logger    logging.Logger
	lookupEnv func(string) (string, bool)
	prober    *probe.Prober
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(l)
	}
}

// WithLookupEnv replaces os.LookupEnv when reporting missing env vars.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(s *Server) {
		s.lookupEnv = fn
	}
}

// WithProber sets the prober used by validate_config.
func WithProber(p *probe.Prober) Option {
	return func(s *Server) {
		s.prober = p
	}
}

// New returns a Server using settings as its defaults.
func New(settings envcfg.Settings, opts ...Option) *Server {
	s := &Server{
		settings:  settings,
		logger:    logging.NopLogger{},
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prober == nil {
		s.prober = probe.New(probe.WithLookupEnv(s.lookupEnv))
	}
	return s
}

// Run starts the MCP server over stdio and blocks until the client disconnects
// or the context is cancelled. Logs go to stderr because stdout carries the
// protocol.
func Run(ctx context.Context) error {
	log := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return New(envcfg.Load(log), WithLogger(log)).Run(ctx)
}

// Run serves s over stdio.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "config_dir", s.settings.ConfigDir, "version", toolsetgen.Version())
	return s.mcpServer().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) mcpServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "toolsetgen", Version: toolsetgen.Version()},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)
	s.registerAllTools(server)
	return server
}

func (s *Server) registerAllTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_apis",
		Description: "List the configured providers and their APIs with display name, auth type and spec source. Records that fail to resolve are listed with their error. Use provider to narrow the listing.",
	}, s.handleListAPIs)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_toolset",
		Description: "Generate Go MCP toolsets from configured OpenAPI specs. Omit provider to generate every configured API; give provider alone for all its APIs, or provider and api for one. Writes one package per toolset plus registry.go and toolsets.json under output_dir. Use dry_run=true to render without writing. A failing API does not stop the others; check each result's status.",
	}, s.handleGenerate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_config",
		Description: "Validate provider configuration. Reports resolution errors and the environment variables each generated toolset needs, marking the ones that are unset. Use fetch=true to also fetch and normalize each spec without writing, and probe=true to check credentials against the provider.",
	}, s.handleValidate)
}

// loadStore reads the configuration directory.
func (s *Server) loadStore(dir string) (*config.Store, error) {
	if dir == "" {
		dir = s.settings.ConfigDir
	}
	return config.Load(dir, config.WithLogger(s.logger))
}

// makeSlice returns nil when n is 0 (preserving omitempty JSON semantics),
// otherwise returns make([]T, 0, n) for pre-allocated appending.
func makeSlice[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, 0, n)
}

// sanitizeError strips absolute filesystem paths from error messages
// to prevent leaking internal directory structure to MCP clients.
var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

// errResult creates an MCP error result from an error.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}
