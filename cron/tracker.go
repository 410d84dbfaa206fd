package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReminderTracker records which reminders were already dispatched so
// overlapping sweep runs stay idempotent. MarkSent returns false when the
// reminder was already marked by an earlier run.
type ReminderTracker interface {
	MarkSent(ctx context.Context, bookingID, userID string) (bool, error)
	Clear(ctx context.Context, bookingID, userID string) error
}

// RedisReminderTracker keeps sent-marks in Redis with a TTL, surviving
// process restarts between sweep ticks.
type RedisReminderTracker struct {
	Client *redis.Client
	TTL    time.Duration
}

func reminderKey(bookingID, userID string) string {
	return fmt.Sprintf("reminder:%s:%s", bookingID, userID)
}

func (t *RedisReminderTracker) MarkSent(ctx context.Context, bookingID, userID string) (bool, error) {
	return t.Client.SetNX(ctx, reminderKey(bookingID, userID), 1, t.TTL).Result()
}

func (t *RedisReminderTracker) Clear(ctx context.Context, bookingID, userID string) error {
	return t.Client.Del(ctx, reminderKey(bookingID, userID)).Err()
}

// MemoryReminderTracker is an in-process tracker for tests and
// single-node deployments without Redis.
type MemoryReminderTracker struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

func NewMemoryReminderTracker() *MemoryReminderTracker {
	return &MemoryReminderTracker{sent: make(map[string]struct{})}
}

func (t *MemoryReminderTracker) MarkSent(_ context.Context, bookingID, userID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := reminderKey(bookingID, userID)
	if _, ok := t.sent[key]; ok {
		return false, nil
	}
	t.sent[key] = struct{}{}
	return true, nil
}

func (t *MemoryReminderTracker) Clear(_ context.Context, bookingID, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sent, reminderKey(bookingID, userID))
	return nil
}
