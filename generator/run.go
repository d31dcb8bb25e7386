package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/erraggy/toolsetgen/config"
	"github.com/erraggy/toolsetgen/internal/issues"
	"github.com/erraggy/toolsetgen/internal/naming"
	"github.com/erraggy/toolsetgen/internal/severity"
	"github.com/erraggy/toolsetgen/logging"
	"github.com/erraggy/toolsetgen/rendercontext"
	"github.com/erraggy/toolsetgen/specsource"
	"github.com/erraggy/toolsetgen/templating"
	"github.com/erraggy/toolsetgen/tserrors"
)

// Status is the outcome of one unit.
type Status string

// Unit outcomes.
const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Pipeline stages, reported by timeout errors.
const (
	StageQueued    = "queued"
	StageConfig    = "config"
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageTemplate  = "template"
	StageContext   = "context"
	StageRender    = "render"
	StageWrite     = "write"
)

// GenerationResult is the outcome of one unit.
type GenerationResult struct {
	// Unit is the (provider, api) pair
	Unit Unit
	// ToolsetName is the registry name
	ToolsetName string
	// Status is ok or failed
	Status Status
	// Package is the generated Go package name
	Package string
	// DisplayName is the human-readable toolset name
	DisplayName string
	// SpecSource is the configured spec source
	SpecSource string
	// Processor names the normalizer variant used
	Processor string
	// TemplateID names the template rendered
	TemplateID string
	// Code is the generated source on success
	Code []byte
	// Operations is the number of generated tools
	Operations int
	// Tools lists the generated tools in operation order
	Tools []Tool
	// Warnings are the issues recorded while normalizing
	Warnings []issues.Issue
	// CacheHit reports whether the spec came from the run cache
	CacheHit bool
	// Kind classifies Err
	Kind tserrors.Kind
	// Err is the failure, nil on success
	Err error
	// Duration is the time spent on the unit
	Duration time.Duration
}

// Tool is one generated MCP tool.
type Tool struct {
	Name    string
	Method  string
	Path    string
	Summary string
}

// OK reports whether the unit succeeded.
func (r *GenerationResult) OK() bool {
	return r.Status == StatusOK
}

// WarningCount returns the number of warning-level issues.
func (r *GenerationResult) WarningCount() int {
	return issues.Count(r.Warnings, severity.SeverityWarning)
}

// Run is the outcome of one Generate call.
type Run struct {
	// ID identifies the run in logs
	ID string
	// Results holds one result per selected unit, in selection order
	Results []GenerationResult
	// Registry lists the successful toolsets, merged into the index an
	// earlier run left in the output directory
	Registry *Registry
	// DryRun is true when nothing was persisted
	DryRun bool
	// CacheHits and CacheMisses are the spec cache counters
	CacheHits   int64
	CacheMisses int64
	// Duration is the wall time of the run
	Duration time.Duration
}

// OK reports whether every unit succeeded.
func (r *Run) OK() bool {
	for i := range r.Results {
		if !r.Results[i].OK() {
			return false
		}
	}
	return true
}

// Failed returns the failed results in selection order.
func (r *Run) Failed() []GenerationResult {
	var out []GenerationResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Counts returns the number of ok and failed units.
func (r *Run) Counts() (ok, failed int) {
	for i := range r.Results {
		if r.Results[i].OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// slot collects the result of one unit.
type slot struct {
	stage  atomic.Value
	done   bool
	result GenerationResult
}

// Generate runs every unit of sel and assembles the registry. Unit failures
// are reported in the results; the returned error is reserved for the
// registry, which is rendered and written once per run.
func (g *Generator) Generate(ctx context.Context, sel Selection) (*Run, error) {
	start := time.Now()
	units := sel.Expand(g.store)
	run := &Run{ID: uuid.NewString(), DryRun: g.writer == nil}
	log := g.logger.With("run_id", run.ID)
	log.Info("generation started", "units", len(units), "concurrency", g.concurrency, "dry_run", run.DryRun)

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	defer cancel()

	cache := specsource.NewCache(g.fetcher)
	clashes := g.packageClashes(units)
	slots := make([]*slot, len(units))
	for i := range slots {
		slots[i] = &slot{}
		slots[i].stage.Store(StageQueued)
	}

	var mu sync.Mutex
	closed := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		var eg errgroup.Group
		eg.SetLimit(g.concurrency)
		for i, u := range units {
			if runCtx.Err() != nil {
				break
			}
			eg.Go(func() error {
				if runCtx.Err() != nil {
					return nil
				}
				res := g.runUnit(runCtx, cache, u, clashes[i], &slots[i].stage, log)
				mu.Lock()
				defer mu.Unlock()
				if !closed {
					slots[i].result = res
					slots[i].done = true
				}
				return nil
			})
		}
		_ = eg.Wait()
	}()

	select {
	case <-done:
	case <-runCtx.Done():
	}

	mu.Lock()
	closed = true
	run.Results = make([]GenerationResult, len(units))
	for i, s := range slots {
		if s.done {
			run.Results[i] = s.result
			continue
		}
		run.Results[i] = g.pendingResult(runCtx, units[i], s.stage.Load().(string), time.Since(start))
		log.Warn("unit did not finish", "unit", units[i].String(), "error", run.Results[i].Err)
	}
	mu.Unlock()

	run.CacheHits, run.CacheMisses = cache.Hits(), cache.Misses()
	if g.recorder != nil {
		for i := range run.Results {
			r := &run.Results[i]
			g.recorder.ObserveUnit(r.Unit.Provider, r.Unit.API, string(r.Status), r.Operations, r.WarningCount(), r.Duration)
		}
		g.recorder.ObserveCache(run.CacheHits, run.CacheMisses)
	}

	ok, failed := run.Counts()
	var previous []rendercontext.RegistryEntry
	if ir, isReader := g.writer.(IndexReader); isReader && ok > 0 {
		prev, perr := ir.ReadRegistry(ctx)
		switch {
		case perr != nil:
			log.Warn("previous registry index unreadable, replacing it", "error", perr)
		case prev != nil:
			previous = prev.Entries
		}
	}
	reg, err := g.buildRegistry(run.Results, previous)
	run.Registry = reg
	switch {
	case err != nil || g.writer == nil:
	case ok == 0:
		log.Info("no unit succeeded, registry left unchanged")
	default:
		if werr := g.writer.WriteRegistry(ctx, reg); werr != nil {
			err = asOutputError("registry", werr)
		}
	}
	run.Duration = time.Since(start)

	if err != nil {
		log.Error("registry failed", "error", err)
		return run, err
	}
	log.Info("generation finished", "ok", ok, "failed", failed,
		"cache_hits", run.CacheHits, "cache_misses", run.CacheMisses, "cached_specs", cache.Len(),
		"duration", run.Duration)
	return run, nil
}

// pendingResult is the failed result of a unit the run stopped waiting for.
func (g *Generator) pendingResult(ctx context.Context, u Unit, stage string, d time.Duration) GenerationResult {
	var err error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &tserrors.TimeoutError{Stage: stage, Timeout: g.timeout}
	} else {
		err = fmt.Errorf("run canceled during %s: %w", stage, ctx.Err())
	}
	return GenerationResult{
		Unit:        u,
		ToolsetName: u.ToolsetName(),
		Status:      StatusFailed,
		Kind:        tserrors.KindOf(err),
		Err:         err,
		Duration:    d,
	}
}

// runUnit runs the pipeline for one unit and never panics the run: every
// failure ends up in the result.
// A non-empty clash names the earlier unit that owns the same package.
func (g *Generator) runUnit(ctx context.Context, cache *specsource.Cache, u Unit, clash string, stage *atomic.Value, log logging.Logger) (res GenerationResult) {
	start := time.Now()
	ulog := log.With("provider", u.Provider, "api", u.API)
	res = GenerationResult{Unit: u, ToolsetName: u.ToolsetName(), Status: StatusFailed}
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic during %s: %v", stage.Load(), p)
		}
		res.Duration = time.Since(start)
		res.Kind = tserrors.KindOf(res.Err)
		if res.Err == nil {
			res.Status = StatusOK
			ulog.Info("unit generated", "operations", res.Operations, "warnings", res.WarningCount(), "template", res.TemplateID)
			return
		}
		res.Code = nil
		res.Tools = nil
		ulog.Warn("unit failed", "kind", string(res.Kind), "error", res.Err)
	}()

	stage.Store(StageConfig)
	cfg, err := g.store.Resolve(u.Provider, u.API)
	if err != nil {
		res.Err = err
		return res
	}
	res.ToolsetName = cfg.ToolsetName()
	res.SpecSource = cfg.Spec
	if clash != "" {
		pkg := naming.PackageName(cfg.Provider, cfg.API)
		res.Err = &tserrors.OutputError{Target: res.ToolsetName, Message: fmt.Sprintf("package %q is already generated by %s", pkg, clash)}
		return res
	}

	stage.Store(StageFetch)
	raw, hit, err := cache.Get(ctx, specsource.Key{Provider: u.Provider, API: u.API}, cfg.Spec)
	res.CacheHit = hit
	if err != nil {
		res.Err = g.interrupted(ctx, StageFetch, err)
		return res
	}

	stage.Store(StageNormalize)
	cs, err := g.normalizer.Process(u.Provider, raw, cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.Processor = cs.Processor
	res.Operations = len(cs.Operations)
	res.Warnings = cs.Warnings
	for _, w := range cs.Warnings {
		if w.Severity >= severity.SeverityWarning {
			ulog.Warn("operation issue", "path", w.Path, "message", w.Message)
		}
	}

	stage.Store(StageTemplate)
	id, err := g.selectTemplate(cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.TemplateID = id
	required, err := g.engine.Required(id)
	if err != nil {
		res.Err = err
		return res
	}

	stage.Store(StageContext)
	rctx, err := g.builder.BuildFor(cfg, cs, id, required)
	if err != nil {
		res.Err = err
		return res
	}
	res.Package, _ = rctx[rendercontext.KeyPackageName].(string)
	res.DisplayName, _ = rctx[rendercontext.KeyDisplayName].(string)
	ops, _ := rctx[rendercontext.KeyOperations].([]rendercontext.Operation)
	res.Tools = make([]Tool, 0, len(ops))
	for _, op := range ops {
		res.Tools = append(res.Tools, Tool{Name: res.ToolsetName + "_" + op.ID, Method: op.Method, Path: op.Path, Summary: op.Summary})
	}

	stage.Store(StageRender)
	code, err := g.engine.Render(id, rctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Code = code

	if g.writer != nil {
		stage.Store(StageWrite)
		if err := ctx.Err(); err != nil {
			res.Err = g.interrupted(ctx, StageWrite, err)
			return res
		}
		m := Module{Name: res.ToolsetName, Package: res.Package, Source: code}
		if err := g.writer.WriteModule(ctx, m); err != nil {
			res.Err = asOutputError(res.ToolsetName, err)
			return res
		}
	}
	return res
}

// packageClashes maps each unit whose package name is taken by an earlier
// configured unit of the selection to that unit. Units that do not resolve
// claim nothing.
func (g *Generator) packageClashes(units []Unit) []string {
	clashes := make([]string, len(units))
	owners := map[string]Unit{}
	for i, u := range units {
		if _, err := g.store.Resolve(u.Provider, u.API); err != nil {
			continue
		}
		pkg := naming.PackageName(u.Provider, u.API)
		owner, taken := owners[pkg]
		switch {
		case !taken:
			owners[pkg] = u
		case owner != u:
			clashes[i] = owner.String()
		}
	}
	return clashes
}

// selectTemplate honors a configured template for the auth type before the
// engine's selection order.
func (g *Generator) selectTemplate(cfg config.APIConfig) (string, error) {
	if id := cfg.Templates[string(cfg.AuthType)]; id != "" {
		return id, nil
	}
	return g.engine.Select(cfg.AuthType, cfg.Provider)
}

// interrupted turns an error caused by the run deadline into a timeout.
func (g *Generator) interrupted(ctx context.Context, stage string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &tserrors.TimeoutError{Stage: stage, Timeout: g.timeout}
	}
	return err
}

func asOutputError(target string, err error) error {
	if errors.Is(err, tserrors.ErrOutputWriteFailed) {
		return err
	}
	return &tserrors.OutputError{Target: target, Cause: err}
}

// buildRegistry renders the registry from the ok results in selection
// order, merged into the entries of an earlier run. The first result wins
// when a toolset name repeats.
func (g *Generator) buildRegistry(results []GenerationResult, previous []rendercontext.RegistryEntry) (*Registry, error) {
	reg := &Registry{ModulePath: g.modulePath, GeneratorVersion: g.builder.GeneratorVersion()}
	seen := map[string]bool{}
	var fresh []rendercontext.RegistryEntry
	for i := range results {
		r := &results[i]
		if !r.OK() || seen[r.ToolsetName] {
			continue
		}
		seen[r.ToolsetName] = true
		fresh = append(fresh, rendercontext.RegistryEntry{
			Name:        r.ToolsetName,
			Package:     r.Package,
			ImportPath:  g.modulePath + "/" + r.Package,
			DisplayName: r.DisplayName,
			Operations:  r.Operations,
		})
	}
	reg.Entries = mergeEntries(g.modulePath, previous, fresh)
	src, err := g.engine.Render(templating.TemplateRegistry, g.builder.Registry(g.modulePath, reg.Entries))
	if err != nil {
		return reg, fmt.Errorf("generator: render registry: %w", err)
	}
	reg.Source = src
	return reg, nil
}

// mergeEntries keeps the entries of an earlier run in place, replaces the
// ones regenerated now and appends the new ones. An earlier entry sharing a
// package with a fresh one is dropped since its directory now holds the
// fresh module.
func mergeEntries(modulePath string, previous, fresh []rendercontext.RegistryEntry) []rendercontext.RegistryEntry {
	byName := make(map[string]int, len(fresh))
	packages := make(map[string]bool, len(fresh))
	for i, e := range fresh {
		byName[e.Name] = i
		packages[e.Package] = true
	}
	used := make([]bool, len(fresh))
	merged := make([]rendercontext.RegistryEntry, 0, len(previous)+len(fresh))
	for _, e := range previous {
		if i, ok := byName[e.Name]; ok {
			if !used[i] {
				merged = append(merged, fresh[i])
				used[i] = true
			}
			continue
		}
		if packages[e.Package] || e.Package == "" {
			continue
		}
		e.ImportPath = modulePath + "/" + e.Package
		merged = append(merged, e)
	}
	for i, e := range fresh {
		if !used[i] {
			merged = append(merged, e)
		}
	}
	return merged
}
