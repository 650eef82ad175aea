package tracing

import (
	"fmt"

	"github.com/sarchlab/bindtrace/activity"
)

// Result is the outcome of a bind attempt.
type Result struct {
	success bool
	path    string
}

// Succeeded is the outcome of a bind that resolved the component at path.
func Succeeded(path string) Result {
	return Result{success: true, path: path}
}

// Failed is the outcome of a bind that could not resolve the component.
func Failed() Result {
	return Result{}
}

// Success returns true if the result is a success.
func (r Result) Success() bool {
	return r.success
}

// Path returns the resolved path of a successful result.
func (r Result) Path() string {
	return r.path
}

// A BindScope spans one traced bind attempt. It is created by
// Tracer.StartBind and emits the stop event when End is called.
//
// A nil *BindScope stands for an untraced bind; its methods do nothing.
type BindScope struct {
	tracer *Tracer
	thread *Thread
	parent *BindScope

	name       string
	entryPoint EntryPoint
	activityID activity.ID
	relatedID  activity.ID

	success    bool
	resultPath string
	resultSet  bool
	ended      bool
}

// Traced returns true if the scope emitted a start event.
func (s *BindScope) Traced() bool {
	return s != nil
}

// Name returns the display name of the component being bound.
func (s *BindScope) Name() string {
	if s == nil {
		return ""
	}

	return s.name
}

// EntryPoint returns the entry point captured when the scope started.
func (s *BindScope) EntryPoint() EntryPoint {
	if s == nil {
		return EntryPointUnknown
	}

	return s.entryPoint
}

// ActivityID returns the activity ID of the bind.
func (s *BindScope) ActivityID() activity.ID {
	if s == nil {
		return activity.Null
	}

	return s.activityID
}

// RelatedActivityID returns the activity the bind is chained to.
func (s *BindScope) RelatedActivityID() activity.ID {
	if s == nil {
		return activity.Null
	}

	return s.relatedID
}

// SetResult records the outcome of the bind. It may be called at most once,
// before End. If it is never called, the bind is reported as failed with an
// empty path.
func (s *BindScope) SetResult(r Result) {
	if s == nil {
		return
	}

	if s.resultSet {
		s.tracer.reportViolation(fmt.Errorf("%w: %q", ErrResultAlreadySet, s.name))
		return
	}

	s.resultSet = true
	s.success = r.success

	if r.success {
		s.resultPath = r.path
	}
}

// End closes the scope and emits the stop event. Only the first call has
// an effect.
func (s *BindScope) End() {
	if s == nil || s.ended {
		return
	}

	s.ended = true
	s.tracer.end(s)
}
