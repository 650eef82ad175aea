package tracing

import (
	"log/slog"

	"github.com/sarchlab/bindtrace/activity"
)

// Builder can build Tracers.
type Builder struct {
	sink         Sink
	tracker      ActivityTracker
	logger       *slog.Logger
	providerName string
	activityName string
	onViolation  func(error)
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		providerName: DefaultProviderName,
		activityName: DefaultActivityName,
	}
}

// WithSink sets the sink that receives the events.
func (b Builder) WithSink(sink Sink) Builder {
	b.sink = sink
	return b
}

// WithTracker sets the activity tracker. By default, the tracer uses a
// new activity.Tracker with random IDs.
func (b Builder) WithTracker(tracker ActivityTracker) Builder {
	b.tracker = tracker
	return b
}

// WithLogger sets the logger used to report swallowed faults.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithProviderName sets the provider label handed to the tracker.
func (b Builder) WithProviderName(name string) Builder {
	b.providerName = name
	return b
}

// WithActivityName sets the activity label handed to the tracker.
func (b Builder) WithActivityName(name string) Builder {
	b.activityName = name
	return b
}

// WithViolationHandler sets a function that is called, in addition to
// logging, when the tracer detects a consistency violation.
func (b Builder) WithViolationHandler(f func(error)) Builder {
	b.onViolation = f
	return b
}

// Build creates a new Tracer.
func (b Builder) Build() *Tracer {
	if b.sink == nil {
		panic("tracer requires a sink")
	}

	t := &Tracer{
		sink:         b.sink,
		tracker:      b.tracker,
		logger:       b.logger,
		providerName: b.providerName,
		activityName: b.activityName,
		onViolation:  b.onViolation,
	}

	if t.tracker == nil {
		t.tracker = activity.NewTracker(nil)
	}

	if t.logger == nil {
		t.logger = slog.Default()
	}

	t.gate = NewEventGate(b.sink, t.fault)

	if hs, ok := b.sink.(*HookSink); ok {
		hs.SetFaultHandler(t.fault)
	}

	return t
}
