package ratewindow

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// In-process window store, partitioned by bucket key. No global lock: the
// concurrent map handles key lookup, and each bucket carries its own mutex.
type MemStore struct {
	buckets *xsync.MapOf[string, *memBucket]
}

type memBucket struct {
	mu    sync.Mutex
	start time.Time
	count int
}

func NewMemStore() *MemStore {
	return &MemStore{
		buckets: xsync.NewMapOf[string, *memBucket](),
	}
}

func (s *MemStore) Record(ctx context.Context, w Window, key string, t time.Time) (bool, error) {
	b, _ := s.buckets.LoadOrStore(bucketKey(w, key), &memBucket{})
	b.mu.Lock()
	defer b.mu.Unlock()

	// stale window: reset before counting the current call
	if b.count > 0 && t.Sub(b.start) > w.Period {
		b.count = 0
	}
	if b.count == 0 {
		b.start = t
	}
	b.count++
	if b.count > w.Limit {
		b.count = 0
		return true, nil
	}
	return false, nil
}

func (s *MemStore) Reset(ctx context.Context, w Window, key string) error {
	s.buckets.Delete(bucketKey(w, key))
	return nil
}

// StartJanitor periodically drops buckets which have been idle for longer
// than maxIdle, bounding memory for one-off senders. Returns when ctx is done.
func (s *MemStore) StartJanitor(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(maxIdle)
		}
	}
}

func (s *MemStore) sweep(maxIdle time.Duration) {
	now := time.Now()
	s.buckets.Range(func(k string, b *memBucket) bool {
		b.mu.Lock()
		idle := b.count == 0 || now.Sub(b.start) > maxIdle
		b.mu.Unlock()
		if idle {
			s.buckets.Delete(k)
		}
		return true
	})
}
