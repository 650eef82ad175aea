package tracing

import (
	"math"
	"strings"
	"time"

	"github.com/sarchlab/bindtrace/activity"
)

// A TimeTeller can tell the current time.
type TimeTeller interface {
	Now() time.Time
}

// SystemClock tells the wall-clock time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

func orSystemClock(tt TimeTeller) TimeTeller {
	if tt == nil {
		return SystemClock{}
	}

	return tt
}

// openSeq is the StopSeq of a bind that has not stopped.
const openSeq = math.MaxUint64

// A BindRecord is a bind attempt reassembled from its start and stop
// events.
type BindRecord struct {
	ActivityID        activity.ID `json:"activity_id"`
	RelatedActivityID activity.ID `json:"related_activity_id"`
	Name              string      `json:"name"`
	EntryPoint        EntryPoint  `json:"entry_point"`
	ContextLabel      string      `json:"context_label"`
	Success           bool        `json:"success"`
	ResultPath        string      `json:"result_path"`
	Nested            bool        `json:"nested"`
	Completed         bool        `json:"completed"`
	StartTime         time.Time   `json:"start_time"`
	EndTime           time.Time   `json:"end_time"`

	// StartSeq and StopSeq order the events as the recorder received them.
	StartSeq uint64 `json:"start_seq"`
	StopSeq  uint64 `json:"stop_seq"`
}

func newBindRecord(e BindStart, now time.Time, seq uint64) BindRecord {
	return BindRecord{
		ActivityID:        e.ActivityID,
		RelatedActivityID: e.RelatedActivityID,
		Name:              e.Name,
		EntryPoint:        e.EntryPoint,
		ContextLabel:      e.ContextLabel,
		StartTime:         now,
		StartSeq:          seq,
		StopSeq:           openSeq,
	}
}

func (r *BindRecord) complete(e BindStop, now time.Time, seq uint64) {
	r.Success = e.Success
	r.ResultPath = e.ResultPath
	r.Completed = true
	r.EndTime = now
	r.StopSeq = seq
}

// RootID returns the activity ID of the outermost bind of the chain the
// record belongs to.
func (r BindRecord) RootID() activity.ID {
	if r.RelatedActivityID.IsNull() {
		return r.ActivityID
	}

	return r.RelatedActivityID
}

// Duration returns how long the bind took. Incomplete binds report zero.
func (r BindRecord) Duration() time.Duration {
	if !r.Completed {
		return 0
	}

	return r.EndTime.Sub(r.StartTime)
}

// SimpleName returns the component name without its identity qualifiers,
// "Foo" for "Foo, Version=1.0".
func (r BindRecord) SimpleName() string {
	return SimpleName(r.Name)
}

// SimpleName strips the identity qualifiers from a component display name.
func SimpleName(displayName string) string {
	name, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(name)
}
