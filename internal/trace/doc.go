// Package trace records what owlsight is doing: analyzer runs, crates and
// per-function work as nested spans, plus instant points and errors.
//
// Tracing is off unless a command enables it:
//
//	owlsight check --trace=run.ndjson --trace-level=detail
//
// A Recorder streams events to a writer, keeps the most recent ones in a
// ring for a post-mortem dump, or does both. The active tracer and the
// innermost open span travel in a context.Context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopeRun, "run")
//	defer span.End("")
package trace
