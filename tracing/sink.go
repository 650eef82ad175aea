package tracing

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sarchlab/bindtrace/hooking"
)

// A Sink records bind events.
//
// IsListenerActive is called before any event is prepared, so it must be
// cheap. Implementations must be safe for concurrent use.
type Sink interface {
	IsListenerActive(kind EventKind) bool
	Emit(kind EventKind, fields Fields)
}

// FaultHandler receives the panics recovered from a collaborator call.
type FaultHandler func(call string, recovered any)

// HookSink is a Sink that delivers events to hooks. Start events are
// delivered at HookPosBindStart, stop events at HookPosBindStop, each with
// the event Fields as the item.
//
// A hook that panics does not keep the event from the hooks registered
// after it. The panic goes to the fault handler, or to the default logger
// if there is none.
type HookSink struct {
	*hooking.HookableBase

	name    string
	onFault atomic.Pointer[FaultHandler]
}

// NewHookSink creates a HookSink with no hooks.
func NewHookSink(name string) *HookSink {
	return &HookSink{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
	}
}

// Name returns the name of the sink.
func (s *HookSink) Name() string {
	return s.name
}

// SetFaultHandler sets the function that receives panics raised by hooks.
func (s *HookSink) SetFaultHandler(f FaultHandler) {
	if f == nil {
		s.onFault.Store(nil)
		return
	}

	s.onFault.Store(&f)
}

// IsListenerActive returns true if at least one hook listens to the event
// kind.
func (s *HookSink) IsListenerActive(kind EventKind) bool {
	return s.NumHooksAt(kind.HookPos()) > 0
}

// Emit invokes the hooks that listen to the event kind.
func (s *HookSink) Emit(kind EventKind, fields Fields) {
	s.InvokeHookRecovering(
		hooking.HookCtx{
			Domain: s,
			Pos:    kind.HookPos(),
			Item:   fields,
		},
		s.hookFailed,
	)
}

func (s *HookSink) hookFailed(hook hooking.Hook, recovered any) {
	call := fmt.Sprintf("%T.Func", hook)

	if f := s.onFault.Load(); f != nil {
		(*f)(call, recovered)
		return
	}

	slog.Warn("bind listener failed",
		"sink", s.name,
		"call", call,
		"panic", fmt.Sprint(recovered))
}

var _ Sink = (*HookSink)(nil)
