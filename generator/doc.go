// Package generator runs the toolset generation pipeline.
//
// A [Generator] processes a [Selection] of (provider, api) units. Each unit
// is resolved from the configuration store, fetched through a per-run spec
// cache, normalized, turned into a render context and rendered with the
// template chosen for its auth type. Units run concurrently and fail
// independently: a failing unit yields a failed [GenerationResult] carrying
// the error kind, and the other units are unaffected.
//
// After all units finish, the [Registry] is assembled from the successful
// results in selection order and handed to the [Writer] together with the
// modules. A run-level timeout marks every unit still pending as failed with
// a timeout error.
//
// # Basic Usage
//
//	store, err := config.Load("config")
//	if err != nil {
//		log.Fatal(err)
//	}
//	g, err := generator.New(
//		generator.WithStore(store),
//		generator.WithWriter(generator.NewDirWriter("toolsets")),
//		generator.WithModulePath("example.com/agent/toolsets"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	run, err := g.Generate(ctx, generator.All())
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, r := range run.Results {
//		fmt.Println(r.Unit, r.Status, r.Err)
//	}
//
// A nil writer makes a dry run: everything is rendered and nothing is
// persisted.
package generator
