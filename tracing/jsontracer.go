package tracing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/bindtrace/activity"
	"github.com/tebeka/atexit"
)

// JSONTracer writes completed binds as a JSON array.
type JSONTracer struct {
	timeTeller TimeTeller
	w          io.Writer

	lock     sync.Mutex
	first    bool
	closed   bool
	seq      uint64
	inflight map[activity.ID]BindRecord
}

// NewJSONTracer creates a JSONTracer that writes to w. A nil timeTeller
// uses the system clock.
func NewJSONTracer(w io.Writer, timeTeller TimeTeller) *JSONTracer {
	t := &JSONTracer{
		timeTeller: orSystemClock(timeTeller),
		w:          w,
		first:      true,
		inflight:   make(map[activity.ID]BindRecord),
	}

	t.mustWrite([]byte("[\n"))

	return t
}

// NewJSONFileTracer creates a JSONTracer that writes to a new file. An
// empty path selects a unique name. The array is closed at exit.
func NewJSONFileTracer(path string) (*JSONTracer, error) {
	if path == "" {
		path = "bindtrace_" + xid.New().String() + ".json"
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating json trace: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Recording binds in %s\n", path)

	t := NewJSONTracer(f, nil)

	atexit.Register(func() {
		t.Close()
	})

	return t, nil
}

// StartBind records the start of a bind.
func (t *JSONTracer) StartBind(e BindStart) {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	t.seq++
	t.inflight[e.ActivityID] = newBindRecord(e, now, t.seq)
}

// StopBind writes the completed bind.
func (t *JSONTracer) StopBind(e BindStop) {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	rec, ok := t.inflight[e.ActivityID]
	if !ok || t.closed {
		return
	}

	t.seq++
	rec.complete(e, now, t.seq)
	delete(t.inflight, e.ActivityID)

	if t.first {
		t.first = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	b, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}

	t.mustWrite(b)
}

// Close terminates the array. If the writer is an io.Closer, it is closed
// too.
func (t *JSONTracer) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	t.mustWrite([]byte("\n]\n"))

	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func (t *JSONTracer) mustWrite(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
