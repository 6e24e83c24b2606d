// Temporary-action scheduler: fire-and-forget registration of delayed
// punishment reversals (auto-unmute, auto-unban). Registrations are
// cancellable, and re-registering the same (kind, community, user) supersedes
// the previous timer.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warden-bot/warden/automod/platform"
)

type Kind string

const (
	KindUnmute Kind = "unmute"
	KindUnban  Kind = "unban"
)

type Task struct {
	Kind        Kind
	CommunityID string
	UserID      string
	// mute role to remove, for unmute tasks
	RoleID   string
	Duration time.Duration
	Reason   string
}

type Scheduler interface {
	Schedule(ctx context.Context, task Task) error
	// Cancel stops a pending reversal; reports whether one was pending.
	Cancel(communityID, userID string, kind Kind) bool
}

// In-process scheduler backed by cancellable timers. Registrations don't
// survive a restart; the duration guarantee is best-effort by design.
type MemScheduler struct {
	Logger *slog.Logger
	Client platform.Client

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewMemScheduler(logger *slog.Logger, client platform.Client) *MemScheduler {
	return &MemScheduler{
		Logger: logger,
		Client: client,
		timers: make(map[string]*time.Timer),
	}
}

func taskKey(kind Kind, communityID, userID string) string {
	return string(kind) + "/" + communityID + "/" + userID
}

func (s *MemScheduler) Schedule(ctx context.Context, task Task) error {
	if task.Duration <= 0 {
		return fmt.Errorf("refusing to schedule %s with non-positive duration", task.Kind)
	}
	key := taskKey(task.Kind, task.CommunityID, task.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[key]; ok {
		old.Stop()
	}
	s.timers[key] = time.AfterFunc(task.Duration, func() {
		s.fire(key, task)
	})
	return nil
}

func (s *MemScheduler) Cancel(communityID, userID string, kind Kind) bool {
	key := taskKey(kind, communityID, userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *MemScheduler) fire(key string, task Task) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch task.Kind {
	case KindUnmute:
		err = s.Client.RemoveRole(ctx, task.CommunityID, task.UserID, task.RoleID, task.Reason)
	case KindUnban:
		err = s.Client.Unban(ctx, task.CommunityID, task.UserID, task.Reason)
	default:
		err = fmt.Errorf("unknown task kind: %s", task.Kind)
	}
	if err != nil {
		s.Logger.Error("temporary action reversal failed", "kind", task.Kind, "community", task.CommunityID, "user", task.UserID, "err", err)
		return
	}
	s.Logger.Info("temporary action reversed", "kind", task.Kind, "community", task.CommunityID, "user", task.UserID)
}

func (s *MemScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
