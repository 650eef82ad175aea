package activity

import (
	"sync"
	"sync/atomic"
)

type openActivity struct {
	provider string
	name     string
	related  ID
}

// Tracker is an in-process activity tracker. It mints an ID for every
// activity it accepts and remembers it until the activity is stopped.
//
// A Tracker is safe for concurrent use.
type Tracker struct {
	generator Generator
	enabled   atomic.Bool

	lock sync.Mutex
	open map[ID]openActivity
}

// NewTracker creates a new Tracker that mints IDs with the given generator.
// A nil generator selects random IDs. The tracker starts enabled.
func NewTracker(generator Generator) *Tracker {
	if generator == nil {
		generator = NewRandomGenerator()
	}

	t := &Tracker{
		generator: generator,
		open:      make(map[ID]openActivity),
	}
	t.enabled.Store(true)

	return t
}

// SetEnabled turns the tracker on or off. A disabled tracker accepts
// nothing.
func (t *Tracker) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// Enabled returns true if the tracker currently accepts activities.
func (t *Tracker) Enabled() bool {
	return t.enabled.Load()
}

// OnStart opens a new activity. If parent is not Null, it is reported back
// as the related activity. The activity is not opened if accepted is false.
func (t *Tracker) OnStart(
	provider, name string,
	parent ID,
) (accepted bool, id, related ID) {
	if !t.enabled.Load() {
		return false, Null, Null
	}

	id, err := t.generator.Generate()
	if err != nil || id.IsNull() {
		return false, Null, Null
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, dup := t.open[id]; dup {
		return false, Null, Null
	}

	t.open[id] = openActivity{
		provider: provider,
		name:     name,
		related:  parent,
	}

	return true, id, parent
}

// OnStop closes an activity opened by OnStart. Stopping an activity that is
// not open, or that was opened under another provider or name, is not
// accepted. A disabled tracker forgets the activity without accepting the
// stop.
func (t *Tracker) OnStop(provider, name string, id ID) (accepted bool, closed ID) {
	t.lock.Lock()
	defer t.lock.Unlock()

	a, ok := t.open[id]
	if !ok || a.provider != provider || a.name != name {
		return false, Null
	}

	delete(t.open, id)

	if !t.enabled.Load() {
		return false, Null
	}

	return true, id
}

// NumOpen returns the number of activities that have started but not
// stopped.
func (t *Tracker) NumOpen() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.open)
}

// Related returns the related activity recorded when id was opened.
func (t *Tracker) Related(id ID) (ID, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	a, ok := t.open[id]

	return a.related, ok
}
