// Package errors provides structured error types for the lazyload module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the lazy unit id, a field path, and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidData).
//		Path("chunkGroups", "3", "origins", "0").
//		Detail("unknown module %q", id).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FetchFailure("./routes/settings", cause)
//	err := errors.PhaseRegression(phase.OnInteraction, phase.Immediate)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so the exported sentinels work as targets:
//
//	if errors.Is(err, lazyerrors.ErrFetchFailure) { ... }
package errors
