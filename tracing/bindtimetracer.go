package tracing

import (
	"sync"
	"time"

	"github.com/sarchlab/bindtrace/activity"
)

// BindFilter selects binds. It sees the bind as it started.
type BindFilter func(rec BindRecord) bool

// AllBinds is a BindFilter that selects every bind.
func AllBinds(BindRecord) bool {
	return true
}

// BindTimeTracer collects the time spent in the selected binds. If two
// binds overlap, their times are simply added.
type BindTimeTracer struct {
	timeTeller TimeTeller
	filter     BindFilter

	lock      sync.Mutex
	inflight  map[activity.ID]BindRecord
	totalTime time.Duration
	count     uint64
	succeeded uint64
	failed    uint64
}

// NewBindTimeTracer creates a new BindTimeTracer. A nil filter selects all
// binds; a nil timeTeller uses the system clock.
func NewBindTimeTracer(timeTeller TimeTeller, filter BindFilter) *BindTimeTracer {
	if filter == nil {
		filter = AllBinds
	}

	return &BindTimeTracer{
		timeTeller: orSystemClock(timeTeller),
		filter:     filter,
		inflight:   make(map[activity.ID]BindRecord),
	}
}

// StartBind records the bind start time.
func (t *BindTimeTracer) StartBind(e BindStart) {
	rec := newBindRecord(e, t.timeTeller.Now(), 0)
	if !t.filter(rec) {
		return
	}

	t.lock.Lock()
	t.inflight[e.ActivityID] = rec
	t.lock.Unlock()
}

// StopBind accumulates the bind duration.
func (t *BindTimeTracer) StopBind(e BindStop) {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	rec, ok := t.inflight[e.ActivityID]
	if !ok {
		return
	}

	delete(t.inflight, e.ActivityID)

	t.totalTime += now.Sub(rec.StartTime)
	t.count++

	if e.Success {
		t.succeeded++
	} else {
		t.failed++
	}
}

// TotalTime returns the total time spent in completed binds.
func (t *BindTimeTracer) TotalTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// AverageTime returns the average duration of completed binds.
func (t *BindTimeTracer) AverageTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.totalTime / time.Duration(t.count)
}

// Count returns the number of completed binds.
func (t *BindTimeTracer) Count() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// Succeeded returns the number of completed binds that succeeded.
func (t *BindTimeTracer) Succeeded() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.succeeded
}

// Failed returns the number of completed binds that failed.
func (t *BindTimeTracer) Failed() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.failed
}

// InFlight returns the number of selected binds that have not stopped.
func (t *BindTimeTracer) InFlight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflight)
}
