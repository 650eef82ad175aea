package tracing

import (
	"context"
	"log/slog"

	"github.com/sarchlab/bindtrace/activity"
)

// A Thread holds the correlation state of the binds performed by one
// goroutine. The zero value is not usable; create threads with NewThread or
// Tracer.NewThread.
//
// A Thread must only be used by the goroutine that owns it.
type Thread struct {
	rootID     activity.ID
	depth      uint32
	entryPoint EntryPoint
	innermost  *BindScope

	violation func(error)
}

// NewThread creates a standalone Thread. Consistency violations detected on
// a standalone thread panic.
func NewThread() *Thread {
	return &Thread{violation: panicOnViolation}
}

func panicOnViolation(err error) {
	panic(err)
}

func logViolation(err error) {
	slog.Error("bind tracing consistency violation", "err", err)
}

// Depth returns the number of traced binds in progress on the thread.
func (t *Thread) Depth() uint32 {
	return t.depth
}

// RootID returns the activity ID of the outermost traced bind in progress,
// or activity.Null if there is none.
func (t *Thread) RootID() activity.ID {
	return t.rootID
}

// EntryPoint returns the current entry point.
func (t *Thread) EntryPoint() EntryPoint {
	return t.entryPoint
}

func (t *Thread) report(err error) {
	if t.violation == nil {
		panicOnViolation(err)
	}

	t.violation(err)
}

type threadKey struct{}

// WithThread returns a copy of ctx that carries the thread.
func WithThread(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, t)
}

// ThreadFrom returns the thread carried by ctx.
func ThreadFrom(ctx context.Context) (*Thread, bool) {
	t, ok := ctx.Value(threadKey{}).(*Thread)
	return t, ok && t != nil
}
