package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache remembers the last session code resolved from the landing
// page so back-to-back runs skip the scrape. Sessions rotate a handful of
// times a year; the TTL bounds how long a stale code can linger.
type SessionCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewSessionCache constructs a SessionCache on the given key.
func NewSessionCache(client *redis.Client, key string, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, key: key, ttl: ttl}
}

// Get returns the cached session code, or "" when none is cached.
func (c *SessionCache) Get(ctx context.Context) (string, error) {
	code, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

// Set stores the session code for the configured TTL.
func (c *SessionCache) Set(ctx context.Context, code string) error {
	return c.client.Set(ctx, c.key, code, c.ttl).Err()
}
