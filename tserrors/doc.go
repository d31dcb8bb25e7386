// Package tserrors provides structured error types for the toolset generator.
//
// Import path: github.com/erraggy/toolsetgen/tserrors
//
// Every failure a generation unit can produce maps onto one [Kind]. The typed
// errors carry the context needed to report the failure, and each one matches
// its sentinel through [errors.Is]:
//
//   - [ConfigError]: [ErrConfigNotFound] or [ErrConfigInvalid]
//   - [SpecError]: [ErrSpecUnavailable] or [ErrSpecMalformed]
//   - [OperationError]: [ErrUnsupportedOperation]
//   - [ContextError]: [ErrContextIncomplete]
//   - [TemplateError]: [ErrTemplateNotFound] or [ErrRender]
//   - [OutputError]: [ErrOutputWriteFailed]
//   - [TimeoutError]: [ErrTimeout]
//
// [ErrUnsupportedOperation] is the only kind recovered inside a unit: the
// operation is dropped and the error is kept as a warning.
//
// # Usage
//
//	run, err := gen.Generate(ctx, generator.All())
//	for _, res := range run.Results {
//	    if errors.Is(res.Err, tserrors.ErrConfigNotFound) {
//	        // unknown provider or api
//	    }
//	}
package tserrors
