// Package trace records what the analyzer is doing and for how long.
//
// Events are grouped in spans (begin/end pairs) at three granularities:
// the driver run, each pipeline phase (load, graph, build, link, resolve,
// bind), and each unit inside a phase. The level decides which of them
// are emitted:
//
//	off     nothing
//	error   only what the ring buffer keeps for crash dumps
//	phase   driver and phase spans
//	detail  also per-unit spans
//	debug   everything
//
// Tracers travel in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "resolve", 0)
//	defer span.End("")
//
// From the command line:
//
//	pascope resolve --trace=- --trace-level=detail ./project
package trace
