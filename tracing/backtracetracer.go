package tracing

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/sarchlab/bindtrace/activity"
)

// BindPrinter can print binds with a format.
type BindPrinter interface {
	Print(rec BindRecord)
}

type defaultBindPrinter struct {
	w io.Writer
}

func (p *defaultBindPrinter) Print(rec BindRecord) {
	fmt.Fprintln(p.w, describe(rec))
}

// NewWriterPrinter creates a BindPrinter that writes one line per bind.
func NewWriterPrinter(w io.Writer) BindPrinter {
	return &defaultBindPrinter{w: w}
}

// BackTraceTracer keeps the binds in flight. When a bind fails it prints
// the failed bind followed by the binds of the same chain that are still
// pending, innermost first.
type BackTraceTracer struct {
	printer BindPrinter

	lock     sync.Mutex
	seq      uint64
	inflight map[activity.ID]BindRecord
}

// NewBackTraceTracer creates a new BackTraceTracer. A nil printer prints to
// stderr.
func NewBackTraceTracer(printer BindPrinter) *BackTraceTracer {
	t := &BackTraceTracer{
		printer:  printer,
		inflight: make(map[activity.ID]BindRecord),
	}

	if t.printer == nil {
		t.printer = NewWriterPrinter(os.Stderr)
	}

	return t
}

// StartBind records a pending bind.
func (t *BackTraceTracer) StartBind(e BindStart) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.seq++
	t.inflight[e.ActivityID] = newBindRecord(e, SystemClock{}.Now(), t.seq)
}

// StopBind forgets the bind and dumps the back trace if it failed.
func (t *BackTraceTracer) StopBind(e BindStop) {
	t.lock.Lock()
	defer t.lock.Unlock()

	rec, ok := t.inflight[e.ActivityID]
	if !ok {
		return
	}

	t.seq++
	rec.complete(e, SystemClock{}.Now(), t.seq)
	delete(t.inflight, e.ActivityID)

	if !e.Success {
		t.dumpLocked(rec)
	}
}

// Pending returns the binds in flight in start order.
func (t *BackTraceTracer) Pending() []BindRecord {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.pendingLocked(func(BindRecord) bool { return true })
}

// DumpBackTrace prints the bind and the pending binds of its chain.
func (t *BackTraceTracer) DumpBackTrace(rec BindRecord) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dumpLocked(rec)
}

func (t *BackTraceTracer) dumpLocked(rec BindRecord) {
	t.printer.Print(rec)

	root := rec.RootID()
	chain := t.pendingLocked(func(p BindRecord) bool {
		return p.RootID() == root && p.StartSeq < rec.StartSeq
	})

	for i := len(chain) - 1; i >= 0; i-- {
		t.printer.Print(chain[i])
	}
}

func (t *BackTraceTracer) pendingLocked(keep func(BindRecord) bool) []BindRecord {
	out := make([]BindRecord, 0, len(t.inflight))

	for _, rec := range t.inflight {
		if keep(rec) {
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartSeq < out[j].StartSeq
	})

	return out
}
