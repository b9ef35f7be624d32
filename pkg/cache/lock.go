package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock is a best-effort cross-process mutex backed by Redis SET NX. It
// keeps overlapping sync runs from double-writing when several workers
// share one store.
type RunLock struct {
	client *redis.Client
	key    string
}

// NewRunLock constructs a RunLock on the given key.
func NewRunLock(client *redis.Client, key string) *RunLock {
	return &RunLock{client: client, key: key}
}

// Acquire attempts to take the lock, returning false when another holder
// has it. The TTL bounds how long a crashed holder can keep it.
func (l *RunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release drops the lock.
func (l *RunLock) Release(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}
