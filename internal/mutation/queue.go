// Package mutation serializes optimistic mutations per entity key.
package mutation

import (
	"context"
	"strconv"
	"sync"

	"recs/internal/models"
	"recs/internal/observability"
)

// Kind names the relation a mutation touches.
type Kind string

const (
	KindRecLike           Kind = "rec-like"
	KindFollow            Kind = "follow"
	KindNotificationsRead Kind = "notifications-read"
)

// Key identifies an entity relation. Two mutations with equal keys never overlap.
type Key struct {
	Kind Kind
	ID   string
}

// RecLikeKey is the key for liking or unliking a rec.
func RecLikeKey(recID uint) Key {
	return Key{Kind: KindRecLike, ID: strconv.FormatUint(uint64(recID), 10)}
}

// FollowKey is the key for following or unfollowing a user.
func FollowKey(username string) Key {
	return Key{Kind: KindFollow, ID: username}
}

// NotificationsReadKey is the key for the session's mark-all-read.
func NotificationsReadKey() Key {
	return Key{Kind: KindNotificationsRead, ID: "session"}
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Queue tracks in-flight keys. It rejects rather than queues: a second
// mutation on a busy key fails immediately with models.ErrConflictSkipped.
type Queue struct {
	mu       sync.Mutex
	inflight map[Key]struct{}
	logger   *observability.SyncLogger
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		inflight: make(map[Key]struct{}),
		logger:   observability.NewSyncLogger("mutation_queue"),
	}
}

// Run executes fn while holding key. The key is released when fn returns or panics.
func (q *Queue) Run(ctx context.Context, key Key, fn func(ctx context.Context) error) error {
	if !q.acquire(key) {
		q.logger.LogSkip(ctx, key.String())
		observability.RecordMutation(string(key.Kind), observability.OutcomeSkipped)
		return models.ErrConflictSkipped
	}
	defer q.release(key)
	return fn(ctx)
}

func (q *Queue) acquire(key Key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, busy := q.inflight[key]; busy {
		return false
	}
	q.inflight[key] = struct{}{}
	return true
}

func (q *Queue) release(key Key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, key)
}
