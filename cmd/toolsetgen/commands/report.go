package commands

import (
	"io"
	"strings"
	"time"

	"github.com/erraggy/toolsetgen/generator"
	"github.com/erraggy/toolsetgen/internal/cliutil"
	"github.com/erraggy/toolsetgen/internal/issues"
)

// IssueReport is one recorded issue of a unit.
type IssueReport struct {
	Severity  string `json:"severity"`
	Path      string `json:"path,omitempty"`
	Operation string `json:"operation,omitempty"`
	Message   string `json:"message"`
}

// UnitReport is the machine-readable outcome of one unit.
type UnitReport struct {
	Toolset    string        `json:"toolset"`
	Provider   string        `json:"provider"`
	API        string        `json:"api"`
	Status     string        `json:"status"`
	Package    string        `json:"package,omitempty"`
	Processor  string        `json:"processor,omitempty"`
	Template   string        `json:"template,omitempty"`
	Operations int           `json:"operations"`
	Tools      []string      `json:"tools,omitempty"`
	CacheHit   bool          `json:"cache_hit,omitempty"`
	Issues     []IssueReport `json:"issues,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

// RunReport is the machine-readable outcome of a generate run.
type RunReport struct {
	OK          bool         `json:"ok"`
	DryRun      bool         `json:"dry_run"`
	OutputDir   string       `json:"output_dir,omitempty"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Registry    []string     `json:"registry"`
	CacheHits   int64        `json:"cache_hits"`
	CacheMisses int64        `json:"cache_misses"`
	Units       []UnitReport `json:"units"`
	DurationMS  int64        `json:"duration_ms"`
}

func newUnitReport(r *generator.GenerationResult) UnitReport {
	out := UnitReport{
		Toolset:    r.ToolsetName,
		Provider:   r.Unit.Provider,
		API:        r.Unit.API,
		Status:     string(r.Status),
		Package:    r.Package,
		Processor:  r.Processor,
		Template:   r.TemplateID,
		Operations: r.Operations,
		CacheHit:   r.CacheHit,
		Issues:     issueReports(r.Warnings),
		DurationMS: r.Duration.Milliseconds(),
	}
	if out.Toolset == "" {
		out.Toolset = r.Unit.ToolsetName()
	}
	for _, tool := range r.Tools {
		out.Tools = append(out.Tools, tool.Name)
	}
	if r.Err != nil {
		out.ErrorKind = string(r.Kind)
		out.Error = r.Err.Error()
	}
	return out
}

func newRunReport(run *generator.Run, outputDir string) RunReport {
	rep := RunReport{
		OK:          run.OK(),
		DryRun:      run.DryRun,
		CacheHits:   run.CacheHits,
		CacheMisses: run.CacheMisses,
		DurationMS:  run.Duration.Milliseconds(),
		Units:       make([]UnitReport, 0, len(run.Results)),
	}
	if !run.DryRun {
		rep.OutputDir = outputDir
	}
	if run.Registry != nil {
		rep.Registry = run.Registry.Names()
	}
	rep.Succeeded, rep.Failed = run.Counts()
	for i := range run.Results {
		rep.Units = append(rep.Units, newUnitReport(&run.Results[i]))
	}
	return rep
}

func issueReports(list []issues.Issue) []IssueReport {
	if len(list) == 0 {
		return nil
	}
	out := make([]IssueReport, 0, len(list))
	for _, iss := range list {
		out = append(out, IssueReport{
			Severity:  iss.Severity.String(),
			Path:      iss.Path,
			Operation: iss.OperationID,
			Message:   iss.Message,
		})
	}
	return out
}

// printUnit writes one line per unit followed by its issues.
func printUnit(w io.Writer, u UnitReport) {
	if u.Status == string(generator.StatusOK) {
		cliutil.Writef(w, "  ok      %-32s %3d tools  template=%s processor=%s\n", u.Toolset, u.Operations, u.Template, u.Processor)
	} else {
		cliutil.Writef(w, "  failed  %-32s %s: %s\n", u.Toolset, u.ErrorKind, u.Error)
	}
	for _, iss := range u.Issues {
		where := iss.Path
		if where == "" {
			where = iss.Operation
		}
		cliutil.Writef(w, "          %-7s %s: %s\n", iss.Severity, where, iss.Message)
	}
}

// printRun writes the text form of a generate run.
func printRun(w io.Writer, rep RunReport) {
	for _, u := range rep.Units {
		printUnit(w, u)
	}
	verb := "Generated"
	if rep.DryRun {
		verb = "Rendered (dry run)"
	}
	where := ""
	if rep.OutputDir != "" {
		where = " into " + rep.OutputDir
	}
	cliutil.Writef(w, "\n%s %d of %d toolsets%s in %v\n", verb, rep.Succeeded, rep.Succeeded+rep.Failed, where,
		(time.Duration(rep.DurationMS) * time.Millisecond).String())
	if len(rep.Registry) > 0 {
		cliutil.Writef(w, "Registry: %s\n", strings.Join(rep.Registry, ", "))
	}
	if rep.Failed > 0 {
		cliutil.Writef(w, "%d toolset(s) failed\n", rep.Failed)
	}
}
