package tracing

import (
	"sync"
	"time"

	"github.com/sarchlab/bindtrace/activity"
)

type manualClock struct {
	lock sync.Mutex
	now  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.now = c.now.Add(d)
}

// liveStack is a tracer wired to a HookSink, an in-process tracker and a
// recorder.
type liveStack struct {
	sink     *HookSink
	tracker  *activity.Tracker
	recorder *BindRecorder
	tracer   *Tracer
}

func newLiveStack() *liveStack {
	s := &liveStack{
		sink:     NewHookSink("test"),
		tracker:  activity.NewTracker(activity.NewSequentialGenerator()),
		recorder: NewBindRecorder(nil),
	}

	CollectTrace(s.sink, s.recorder)

	s.tracer = MakeBuilder().
		WithSink(s.sink).
		WithTracker(s.tracker).
		Build()

	return s
}

func idOf(n byte) activity.ID {
	var id activity.ID
	id[15] = n

	return id
}
