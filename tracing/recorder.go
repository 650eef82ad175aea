package tracing

import (
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/bindtrace/activity"
)

// BindRecorder keeps every bind it observes in memory.
//
// It checks the pairing of events: a start for an activity that is already
// known, or a stop for an activity that never started, is counted as a
// mismatch and otherwise ignored.
type BindRecorder struct {
	timeTeller TimeTeller

	lock       sync.Mutex
	changed    chan struct{}
	records    map[activity.ID]*BindRecord
	order      []activity.ID
	seq        uint64
	mismatches int
}

// NewBindRecorder creates a BindRecorder. A nil timeTeller uses the system
// clock.
func NewBindRecorder(timeTeller TimeTeller) *BindRecorder {
	return &BindRecorder{
		timeTeller: orSystemClock(timeTeller),
		changed:    make(chan struct{}),
		records:    make(map[activity.ID]*BindRecord),
	}
}

// StartBind records the start of a bind.
func (r *BindRecorder) StartBind(e BindStart) {
	now := r.timeTeller.Now()

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.records[e.ActivityID]; ok {
		r.mismatches++
		return
	}

	r.seq++
	rec := newBindRecord(e, now, r.seq)
	_, rec.Nested = r.records[e.RelatedActivityID]

	r.records[e.ActivityID] = &rec
	r.order = append(r.order, e.ActivityID)
	r.notify()
}

// StopBind records the end of a bind.
func (r *BindRecorder) StopBind(e BindStop) {
	now := r.timeTeller.Now()

	r.lock.Lock()
	defer r.lock.Unlock()

	rec, ok := r.records[e.ActivityID]
	if !ok || rec.Completed {
		r.mismatches++
		return
	}

	r.seq++
	rec.complete(e, now, r.seq)
	r.notify()
}

func (r *BindRecorder) notify() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// Records returns all binds in the order they started.
func (r *BindRecorder) Records() []BindRecord {
	return r.filter(func(BindRecord) bool { return true })
}

// Completed returns the binds that have stopped.
func (r *BindRecorder) Completed() []BindRecord {
	return r.filter(func(rec BindRecord) bool { return rec.Completed })
}

// InFlight returns the binds that have started but not stopped.
func (r *BindRecorder) InFlight() []BindRecord {
	return r.filter(func(rec BindRecord) bool { return !rec.Completed })
}

// Lookup returns the record of an activity.
func (r *BindRecorder) Lookup(id activity.ID) (BindRecord, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return BindRecord{}, false
	}

	return *rec, true
}

// Mismatches returns the number of events that did not pair up.
func (r *BindRecorder) Mismatches() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.mismatches
}

// Reset forgets everything recorded so far.
func (r *BindRecorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.records = make(map[activity.ID]*BindRecord)
	r.order = nil
	r.seq = 0
	r.mismatches = 0
	r.notify()
}

func (r *BindRecorder) filter(keep func(BindRecord) bool) []BindRecord {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.filterLocked(keep)
}

func (r *BindRecorder) filterLocked(keep func(BindRecord) bool) []BindRecord {
	out := make([]BindRecord, 0, len(r.order))

	for _, id := range r.order {
		rec := *r.records[id]
		if keep(rec) {
			out = append(out, rec)
		}
	}

	return out
}

// TopLevelByName returns the completed, non-nested binds of the component
// with the given simple name.
func (r *BindRecorder) TopLevelByName(simpleName string) []BindRecord {
	return r.filter(topLevelNamed(simpleName))
}

func topLevelNamed(simpleName string) func(BindRecord) bool {
	return func(rec BindRecord) bool {
		return rec.Completed && !rec.Nested && rec.SimpleName() == simpleName
	}
}

// WaitForBinds waits until at least one completed, non-nested bind of the
// component with the given simple name is recorded, or the timeout
// expires. It returns the matching binds found by then.
func (r *BindRecorder) WaitForBinds(
	simpleName string,
	timeout time.Duration,
) []BindRecord {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	keep := topLevelNamed(simpleName)

	for {
		r.lock.Lock()
		found := r.filterLocked(keep)
		changed := r.changed
		r.lock.Unlock()

		if len(found) > 0 {
			return found
		}

		select {
		case <-changed:
		case <-deadline.C:
			return r.filter(keep)
		}
	}
}

// SortByStart sorts records by the order their start events were received.
func SortByStart(records []BindRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartSeq < records[j].StartSeq
	})
}
