package tracing

// EventGate answers whether bind events currently have a listener. A
// failing sink counts as having no listener.
type EventGate struct {
	sink    Sink
	onFault func(call string, recovered any)
}

// NewEventGate creates an EventGate over the sink. onFault may be nil.
func NewEventGate(sink Sink, onFault func(call string, recovered any)) EventGate {
	return EventGate{sink: sink, onFault: onFault}
}

// IsEnabled reports whether binds are traced at all. It equals
// IsStartEnabled.
func (g EventGate) IsEnabled() bool {
	return g.IsStartEnabled()
}

// IsStartEnabled returns true if start events have a listener.
func (g EventGate) IsStartEnabled() bool {
	return g.isActive(EventBindStart)
}

// IsStopEnabled returns true if stop events have a listener.
func (g EventGate) IsStopEnabled() bool {
	return g.isActive(EventBindStop)
}

func (g EventGate) isActive(kind EventKind) (active bool) {
	if g.sink == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			active = false

			if g.onFault != nil {
				g.onFault("IsListenerActive", r)
			}
		}
	}()

	return g.sink.IsListenerActive(kind)
}
