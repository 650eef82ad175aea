package tracing

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sarchlab/bindtrace/activity"
)

// Default labels handed to the ActivityTracker.
const (
	DefaultProviderName = "bindtrace"
	DefaultActivityName = "Bind"
)

// An ActivityTracker mints and closes activity IDs.
//
// OnStart receives the root activity of the calling thread (activity.Null
// when no bind is in progress) and returns the new ID and the related
// activity it chained to. OnStop closes an ID returned by OnStart. When
// accepted is false, no ID was produced or closed and the matching event is
// suppressed.
type ActivityTracker interface {
	OnStart(provider, name string, parent activity.ID) (accepted bool, id, related activity.ID)
	OnStop(provider, name string, id activity.ID) (accepted bool, closed activity.ID)
}

// Stats counts what a Tracer did.
type Stats struct {
	Started    uint64 `json:"started"`
	Stopped    uint64 `json:"stopped"`
	Declined   uint64 `json:"declined"`
	Faults     uint64 `json:"faults"`
	Violations uint64 `json:"violations"`
	Faulted    bool   `json:"faulted"`
}

// A Tracer turns bind attempts into start and stop events.
//
// A nil *Tracer is valid and never traces, so code that may run before
// tracing is set up can call it unconditionally.
type Tracer struct {
	sink         Sink
	gate         EventGate
	tracker      ActivityTracker
	logger       *slog.Logger
	providerName string
	activityName string
	onViolation  func(error)

	faulted    atomic.Bool
	started    atomic.Uint64
	stopped    atomic.Uint64
	declined   atomic.Uint64
	faults     atomic.Uint64
	violations atomic.Uint64
}

// IsEnabled is the cheap global check. Callers can skip building
// diagnostic strings when it returns false.
func (t *Tracer) IsEnabled() bool {
	if t == nil || t.faulted.Load() {
		return false
	}

	return t.gate.IsEnabled()
}

// Gate returns the event gate of the tracer.
func (t *Tracer) Gate() EventGate {
	return t.gate
}

// NewThread creates a Thread whose consistency violations are reported to
// the tracer. On a nil Tracer, violations are only logged.
func (t *Tracer) NewThread() *Thread {
	if t == nil {
		return &Thread{violation: logViolation}
	}

	return &Thread{violation: t.reportViolation}
}

// Stats returns a snapshot of the tracer counters.
func (t *Tracer) Stats() Stats {
	if t == nil {
		return Stats{}
	}

	return Stats{
		Started:    t.started.Load(),
		Stopped:    t.stopped.Load(),
		Declined:   t.declined.Load(),
		Faults:     t.faults.Load(),
		Violations: t.violations.Load(),
		Faulted:    t.faulted.Load(),
	}
}

// Faulted returns true once the tracer has stopped tracing after a
// consistency violation.
func (t *Tracer) Faulted() bool {
	return t != nil && t.faulted.Load()
}

// StartBind opens a scope for a bind of the named component. The caller
// must call End on the returned scope, typically with defer.
//
// StartBind returns nil when the bind is not traced. All BindScope methods
// accept a nil receiver.
func (t *Tracer) StartBind(thread *Thread, name string, label BindLabel) *BindScope {
	if t == nil || thread == nil || t.faulted.Load() {
		return nil
	}

	if !t.gate.IsStartEnabled() {
		return nil
	}

	accepted, id, related := t.trackerStart(thread.rootID)
	if !accepted {
		t.declined.Add(1)
		return nil
	}

	if thread.depth == 0 {
		thread.rootID = id
	}
	thread.depth++

	s := &BindScope{
		tracer:     t,
		thread:     thread,
		parent:     thread.innermost,
		name:       name,
		entryPoint: thread.entryPoint,
		activityID: id,
		relatedID:  related,
	}
	thread.innermost = s

	t.started.Add(1)
	t.emit(EventBindStart, BindStart{
		Name:              name,
		EntryPoint:        s.entryPoint,
		ContextLabel:      t.render(label),
		ActivityID:        id,
		RelatedActivityID: related,
	}.Fields())

	return s
}

// Bind runs fn inside a bind scope. The result of fn becomes the outcome of
// the bind. If fn panics, the stop event is emitted with success=false
// before the panic continues.
func (t *Tracer) Bind(
	thread *Thread,
	name string,
	label BindLabel,
	fn func() (path string, err error),
) (string, error) {
	scope := t.StartBind(thread, name, label)
	defer scope.End()

	path, err := fn()
	if err != nil {
		scope.SetResult(Failed())
		return path, err
	}

	scope.SetResult(Succeeded(path))

	return path, nil
}

func (t *Tracer) end(s *BindScope) {
	thread := s.thread

	if thread.depth == 0 {
		t.reportViolation(fmt.Errorf(
			"%w: %q ended with no bind in progress", ErrDepthUnderflow, s.name))
		return
	}

	if thread.innermost != s {
		t.reportViolation(fmt.Errorf(
			"%w: %q ended before its nested binds", ErrScopeOrder, s.name))
	}

	thread.innermost = s.parent
	thread.depth--
	if thread.depth == 0 {
		thread.rootID = activity.Null
		thread.innermost = nil
	}

	stopEnabled := t.gate.IsStopEnabled()

	accepted, closed := t.trackerStop(s.activityID)
	if !accepted || !stopEnabled {
		return
	}

	t.stopped.Add(1)
	t.emit(EventBindStop, BindStop{
		Name:       s.name,
		EntryPoint: s.entryPoint,
		Success:    s.success,
		ResultPath: s.resultPath,
		ActivityID: closed,
	}.Fields())
}

func (t *Tracer) trackerStart(parent activity.ID) (accepted bool, id, related activity.ID) {
	defer func() {
		if r := recover(); r != nil {
			t.fault("ActivityTracker.OnStart", r)
			accepted, id, related = false, activity.Null, activity.Null
		}
	}()

	return t.tracker.OnStart(t.providerName, t.activityName, parent)
}

func (t *Tracer) trackerStop(id activity.ID) (accepted bool, closed activity.ID) {
	defer func() {
		if r := recover(); r != nil {
			t.fault("ActivityTracker.OnStop", r)
			accepted, closed = false, activity.Null
		}
	}()

	return t.tracker.OnStop(t.providerName, t.activityName, id)
}

func (t *Tracer) emit(kind EventKind, fields Fields) {
	defer func() {
		if r := recover(); r != nil {
			t.fault("Sink.Emit", r)
		}
	}()

	t.sink.Emit(kind, fields)
}

func (t *Tracer) render(label BindLabel) (name string) {
	if label == nil {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			t.fault("BindLabel.DisplayName", r)
			name = ""
		}
	}()

	return label.DisplayName()
}

func (t *Tracer) fault(call string, recovered any) {
	t.faults.Add(1)
	t.logger.Warn("bind tracing collaborator failed",
		"call", call,
		"panic", fmt.Sprint(recovered))
}

func (t *Tracer) reportViolation(err error) {
	t.violations.Add(1)

	if !t.faulted.Swap(true) {
		t.logger.Error("bind tracing stopped after consistency violation",
			"err", err)
	}

	if t.onViolation != nil {
		t.onViolation(err)
	}
}
