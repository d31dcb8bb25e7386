// Package toolsetgen generates agent toolsets from OpenAPI specifications.
//
// A toolset is a generated Go package that exposes one provider API's
// operations as MCP tools. Generation runs as a pipeline per (provider, api)
// unit:
//
//   - config resolves the unit's configuration record
//   - specsource fetches the raw document, cached per run
//   - normalizer applies the provider's processor and produces a canonical spec
//   - rendercontext merges configuration and spec into a render context
//   - templating renders the context with the template chosen by auth type
//   - generator drives the units concurrently, writes each toolset and the
//     registry of successful toolsets
//
// # Quick Start
//
//	store, err := config.Load("config")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gen, err := generator.New(
//	    generator.WithStore(store),
//	    generator.WithWriter(generator.NewDirWriter("toolsets")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	run, err := gen.Generate(ctx, generator.All())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, res := range run.Results {
//	    fmt.Println(res.Unit, res.Status)
//	}
//
// The toolsetgen command wraps the same pipeline; see cmd/toolsetgen.
package toolsetgen
