package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/bindtrace/hooking"
)

// A BindTracer consumes decoded bind events.
type BindTracer interface {
	StartBind(e BindStart)
	StopBind(e BindStop)
}

// CollectTrace lets the tracer collect the bind events raised by a domain,
// typically a HookSink.
func CollectTrace(domain hooking.Hookable, tracer BindTracer) {
	if findTraceHook(domain, tracer) != nil {
		panic(fmt.Sprintf("domain already has tracer %s", reflect.TypeOf(tracer)))
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// StopCollecting detaches a tracer attached with CollectTrace.
func StopCollecting(domain hooking.Hookable, tracer BindTracer) {
	h := findTraceHook(domain, tracer)
	if h == nil {
		return
	}

	domain.RemoveHook(h)
}

func findTraceHook(domain hooking.Hookable, tracer BindTracer) *traceHook {
	for _, hook := range domain.Hooks() {
		h, ok := hook.(*traceHook)
		if ok && h.t == tracer {
			return h
		}
	}

	return nil
}

// A traceHook is a hook that forwards bind events to a BindTracer.
type traceHook struct {
	t BindTracer
}

var bindHookPositions = []*hooking.HookPos{HookPosBindStart, HookPosBindStop}

// Positions returns the bind event positions.
func (h *traceHook) Positions() []*hooking.HookPos {
	return bindHookPositions
}

// Func decodes the event and calls the tracer. Malformed events are dropped.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	fields, ok := ctx.Item.(Fields)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosBindStart:
		e, err := BindStartFromFields(fields)
		if err == nil {
			h.t.StartBind(e)
		}
	case HookPosBindStop:
		e, err := BindStopFromFields(fields)
		if err == nil {
			h.t.StopBind(e)
		}
	}
}
