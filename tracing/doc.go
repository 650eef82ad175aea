// Package tracing records the lifecycle of bind attempts as correlated
// start and stop events.
//
// A bind attempt is one request to resolve and load a named component. The
// loader opens a BindScope for the duration of the attempt. The scope emits
// a start event when it opens and exactly one matching stop event when it
// ends, whatever way the attempt concludes.
//
// # Threads
//
// Correlation state lives in a Thread: the nesting depth, the activity ID
// of the outermost bind in progress (the root), and the entry point that
// explains why the current bind chain started. A Thread belongs to one
// goroutine. Threads are never shared, so the package takes no locks on the
// bind path.
//
//	thread := tracer.NewThread()
//
//	ep := thread.EnterEntryPoint(tracing.EntryPointLoad)
//	defer ep.Exit()
//
//	scope := tracer.StartBind(thread, "Foo, Version=1.0", tracing.StringLabel("Default"))
//	defer scope.End()
//
//	path, err := resolve("Foo")
//	if err != nil {
//	    scope.SetResult(tracing.Failed())
//	    return err
//	}
//	scope.SetResult(tracing.Succeeded(path))
//
// # Gating
//
// Nothing is computed unless a listener is attached to the Sink: StartBind
// returns a nil *BindScope, whose methods are no-ops. The ActivityTracker
// has the final word. If it does not accept an activity, the scope stays
// untraced even though the sink said a listener was active.
//
// # Failures
//
// Faults raised by the Sink, the ActivityTracker or a BindLabel are recovered
// and counted. They never reach the caller. Broken bookkeeping (an entry
// point scope exiting into an unexpected value, a stop without a start) is
// a consistency violation. A Tracer that observes one logs it and stops
// tracing.
//
// # Listeners
//
// HookSink delivers events to hooks. The tracers in this package (BindRecorder,
// DBTracer, JSONTracer, SlogTracer, BackTraceTracer, BindTimeTracer) are
// attached with CollectTrace.
package tracing
