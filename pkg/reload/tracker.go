// Package reload debounces document writes into periodic invocations of an
// external reload action.
//
// Writers call Tracker.MarkDirty after every successful save. A Scheduler
// drains the flag on a fixed interval and runs the Action at most once per
// tick, however many writes happened in between. A failed run hands the flag
// back to the tracker when the RetryPolicy allows it.
package reload

import "sync"

// Tracker is the dirty flag shared by writers and the scheduler.
type Tracker struct {
	mu      sync.Mutex
	dirty   bool
	pending int
}

// NewTracker returns a clean tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// MarkDirty records one successful write.
func (t *Tracker) MarkDirty() {
	t.mu.Lock()
	t.dirty = true
	t.pending++
	t.mu.Unlock()
}

// TakeAndClear atomically reads and resets the flag. The returned count is the
// number of writes coalesced into this take.
func (t *Tracker) TakeAndClear() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dirty, pending := t.dirty, t.pending
	t.dirty = false
	t.pending = 0
	return dirty, pending
}

// Rearm restores the flag after a failed run, folding the writes from that run
// back into the pending count.
func (t *Tracker) Rearm(pending int) {
	t.mu.Lock()
	t.dirty = true
	t.pending += pending
	t.mu.Unlock()
}

// Dirty reports the current flag without clearing it.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// Pending reports how many writes are waiting for the next reload.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
