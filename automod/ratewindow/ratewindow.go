// Sliding-window occurrence counters used by violation detectors.
//
// A Window describes a named rate rule (limit and period); a Store tracks
// per-key occurrence counts for any number of windows. Windows "fire once per
// burst": the call which pushes a key over the limit reports triggered and
// clears the key, so the next call starts a fresh window.
package ratewindow

import (
	"context"
	"time"
)

type Window struct {
	// Namespace for the counter, eg "spam-user" or "links"
	Name string
	// Number of occurrences tolerated within Period. The (Limit+1)-th
	// occurrence inside the window triggers.
	Limit int
	// Window length, measured from the first occurrence after the last reset
	Period time.Duration
}

type Store interface {
	// Record counts one occurrence of (window, key) at time t, and reports
	// whether this occurrence exceeded the window's limit. A triggering call
	// resets the key. A call arriving after the window elapsed resets the
	// count to 1 instead of accumulating.
	Record(ctx context.Context, w Window, key string, t time.Time) (bool, error)
	// Reset clears any state for (window, key)
	Reset(ctx context.Context, w Window, key string) error
}

func bucketKey(w Window, key string) string {
	return w.Name + "/" + key
}
