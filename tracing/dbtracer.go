package tracing

import (
	"sort"
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/bindtrace/activity"
	"github.com/sarchlab/bindtrace/datarecording"
	"github.com/tebeka/atexit"
)

// BindTable is the table that DBTracer writes binds into.
const BindTable = "binds"

type bindTableEntry struct {
	Session           string
	ActivityID        string
	RelatedActivityID string
	Name              string
	EntryPoint        string
	ContextLabel      string
	Success           bool
	ResultPath        string
	Completed         bool
	StartTime         int64
	EndTime           int64
	StartSeq          int64
	StopSeq           int64
}

func newBindTableEntry(session string, rec BindRecord) bindTableEntry {
	e := bindTableEntry{
		Session:           session,
		ActivityID:        rec.ActivityID.String(),
		RelatedActivityID: rec.RelatedActivityID.String(),
		Name:              rec.Name,
		EntryPoint:        rec.EntryPoint.String(),
		ContextLabel:      rec.ContextLabel,
		Success:           rec.Success,
		ResultPath:        rec.ResultPath,
		Completed:         rec.Completed,
		StartTime:         rec.StartTime.UnixNano(),
		StartSeq:          int64(rec.StartSeq),
		StopSeq:           -1,
	}

	if rec.Completed {
		e.EndTime = rec.EndTime.UnixNano()
		e.StopSeq = int64(rec.StopSeq)
	}

	return e
}

// DBTracer stores binds into a DataRecorder. A bind is written when it
// stops. Binds still in flight when the tracer terminates are written as
// incomplete.
type DBTracer struct {
	timeTeller TimeTeller
	backend    datarecording.DataRecorder
	session    string

	lock       sync.Mutex
	inflight   map[activity.ID]BindRecord
	seq        uint64
	terminated bool
}

// NewDBTracer creates a new DBTracer. A nil timeTeller uses the system
// clock.
func NewDBTracer(
	timeTeller TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(BindTable, bindTableEntry{})

	t := &DBTracer{
		timeTeller: orSystemClock(timeTeller),
		backend:    dataRecorder,
		session:    xid.New().String(),
		inflight:   make(map[activity.ID]BindRecord),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// Session returns the session ID stamped on every row this tracer writes.
func (t *DBTracer) Session() string {
	return t.session
}

// StartBind marks the start of a bind.
func (t *DBTracer) StartBind(e BindStart) {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.terminated {
		return
	}

	t.seq++
	t.inflight[e.ActivityID] = newBindRecord(e, now, t.seq)
}

// StopBind marks the end of a bind and writes it.
func (t *DBTracer) StopBind(e BindStop) {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	rec, ok := t.inflight[e.ActivityID]
	if !ok || t.terminated {
		return
	}

	t.seq++
	rec.complete(e, now, t.seq)
	delete(t.inflight, e.ActivityID)

	t.backend.InsertData(BindTable, newBindTableEntry(t.session, rec))
}

// Terminate writes the binds in flight and flushes the backend. Events
// after termination are ignored.
func (t *DBTracer) Terminate() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.terminated {
		return
	}

	t.terminated = true

	pending := make([]BindRecord, 0, len(t.inflight))
	for _, rec := range t.inflight {
		pending = append(pending, rec)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].StartSeq < pending[j].StartSeq
	})

	for _, rec := range pending {
		t.backend.InsertData(BindTable, newBindTableEntry(t.session, rec))
	}

	t.inflight = nil
	t.backend.Flush()
}
