// Join-flood trigger counter for raid-mode enforcement.
//
// Each join batch (identified by the triggering join event) accumulates a
// trigger count. When the count crosses the escalation threshold the entry is
// removed and escalation is signaled for that call only: the current member's
// kick becomes a ban, prior members are not retroactively escalated.
package raidflood

import (
	"sync"
	"time"
)

const (
	// trigger count at which a kick response escalates to a ban
	EscalateThreshold = 5
	// low-activity entries are purged this long after their first trigger
	CleanupDelay = 60 * time.Second
	// entries at or below this count are considered low-activity
	CleanupLowWater = 2
)

type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry

	threshold    int
	cleanupDelay time.Duration
	lowWater     int
}

type entry struct {
	firstTrigger time.Time
	count        int
	cleanup      *time.Timer
}

func NewTracker() *Tracker {
	return &Tracker{
		entries:      make(map[string]*entry),
		threshold:    EscalateThreshold,
		cleanupDelay: CleanupDelay,
		lowWater:     CleanupLowWater,
	}
}

// RecordTrigger counts one punishment decision for the given join batch, and
// reports the updated count plus whether this decision should escalate.
// Escalation removes the entry, so a later trigger for the same batch starts
// a fresh count.
func (t *Tracker) RecordTrigger(batchID string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[batchID]
	if !ok {
		e = &entry{firstTrigger: time.Now()}
		// deferred cleanup is per-entry and cancellable, not a global sweep
		e.cleanup = time.AfterFunc(t.cleanupDelay, func() {
			t.expire(batchID)
		})
		t.entries[batchID] = e
	}
	e.count++
	if e.count >= t.threshold {
		e.cleanup.Stop()
		delete(t.entries, batchID)
		return e.count, true
	}
	return e.count, false
}

// Remove drops any state for the batch, cancelling its cleanup timer.
func (t *Tracker) Remove(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[batchID]; ok {
		e.cleanup.Stop()
		delete(t.entries, batchID)
	}
}

// best-effort purge of a low-activity batch after the cleanup delay
func (t *Tracker) expire(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[batchID]
	if !ok {
		return
	}
	if e.count <= t.lowWater {
		delete(t.entries, batchID)
	}
}

func (t *Tracker) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
