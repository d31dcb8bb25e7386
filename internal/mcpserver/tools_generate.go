package mcpserver

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/issues"
)

type generateInput struct {
	ConfigDir  string `json:"config_dir,omitempty"  jsonschema:"Configuration root (default: TOOLSETGEN_CONFIG_DIR)"`
	Provider   string `json:"provider,omitempty"    jsonschema:"Provider to generate; omit for every configured API"`
	API        string `json:"api,omitempty"         jsonschema:"API of the provider to generate; requires provider"`
	OutputDir  string `json:"output_dir,omitempty"  jsonschema:"Directory to write toolsets to (default: TOOLSETGEN_OUTPUT_DIR)"`
	ModulePath string `json:"module_path,omitempty" jsonschema:"Import path of output_dir used by registry.go (default: TOOLSETGEN_MODULE_PATH)"`
	DryRun     bool   `json:"dry_run,omitempty"     jsonschema:"Render without writing any file"`
}

type warningInfo struct {
	Path      string `json:"path,omitempty"`
	Operation string `json:"operation,omitempty"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

type unitResult struct {
	Toolset    string        `json:"toolset"`
	Status     string        `json:"status"`
	Package    string        `json:"package,omitempty"`
	Processor  string        `json:"processor,omitempty"`
	Template   string        `json:"template,omitempty"`
	Operations int           `json:"operations"`
	Tools      []string      `json:"tools,omitempty"`
	CacheHit   bool          `json:"cache_hit,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Warnings   []warningInfo `json:"warnings,omitempty"`
}

type generateOutput struct {
	Success   bool         `json:"success"`
	DryRun    bool         `json:"dry_run"`
	OutputDir string       `json:"output_dir,omitempty"`
	OKCount   int          `json:"ok_count"`
	FailCount int          `json:"fail_count"`
	Registry  []string     `json:"registry"`
	Results   []unitResult `json:"results"`
}

func (s *Server) handleGenerate(ctx context.Context, _ *mcp.CallToolRequest, input generateInput) (*mcp.CallToolResult, generateOutput, error) {
	sel, err := generator.SelectionFor(input.Provider, input.API)
	if err != nil {
		return errResult(err), generateOutput{}, nil
	}
	store, err := s.loadStore(input.ConfigDir)
	if err != nil {
		return errResult(err), generateOutput{}, nil
	}

	settings := s.settings
	if input.OutputDir != "" {
		settings.OutputDir = input.OutputDir
	}
	if input.ModulePath != "" {
		settings.ModulePath = strings.TrimSuffix(input.ModulePath, "/")
	}
	var writer generator.Writer
	if !input.DryRun {
		writer = generator.NewDirWriter(settings.OutputDir)
	}

	g, err := settings.Generator(store, writer, s.logger)
	if err != nil {
		return errResult(err), generateOutput{}, nil
	}
	run, err := g.Generate(ctx, sel)
	if err != nil {
		return errResult(err), generateOutput{}, nil
	}

	output := generateOutput{
		Success:  run.OK(),
		DryRun:   run.DryRun,
		Registry: run.Registry.Names(),
		Results:  makeSlice[unitResult](len(run.Results)),
	}
	if !run.DryRun {
		output.OutputDir = settings.OutputDir
	}
	output.OKCount, output.FailCount = run.Counts()
	for i := range run.Results {
		output.Results = append(output.Results, toUnitResult(&run.Results[i]))
	}
	return nil, output, nil
}

func toUnitResult(r *generator.GenerationResult) unitResult {
	out := unitResult{
		Toolset:    r.ToolsetName,
		Status:     string(r.Status),
		Package:    r.Package,
		Processor:  r.Processor,
		Template:   r.TemplateID,
		Operations: r.Operations,
		CacheHit:   r.CacheHit,
		Tools:      makeSlice[string](len(r.Tools)),
		Warnings:   warningInfos(r.Warnings),
	}
	for _, tool := range r.Tools {
		out.Tools = append(out.Tools, tool.Name)
	}
	if r.Err != nil {
		out.ErrorKind = string(r.Kind)
		out.Error = sanitizeError(r.Err)
	}
	return out
}

func warningInfos(list []issues.Issue) []warningInfo {
	out := makeSlice[warningInfo](len(list))
	for _, iss := range list {
		out = append(out, warningInfo{
			Path:      iss.Path,
			Operation: iss.OperationID,
			Severity:  iss.Severity.String(),
			Message:   iss.Message,
		})
	}
	return out
}
