// Package cache holds short-lived counters kept in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts failures per identity inside a fixed window that
// starts with the first failure.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

func NewAttemptLimiter(client *redis.Client, prefix string, max int64, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{client: client, prefix: prefix, max: max, window: window}
}

func (l *AttemptLimiter) key(id string) string {
	return l.prefix + ":" + id
}

// Blocked reports whether id has used up its attempts for the current window.
func (l *AttemptLimiter) Blocked(ctx context.Context, id string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get attempts %s: %w", id, err)
	}
	return n >= l.max, nil
}

// Fail records one failed attempt and returns the count in the window.
func (l *AttemptLimiter) Fail(ctx context.Context, id string) (int64, error) {
	key := l.key(id)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr attempts %s: %w", id, err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return n, fmt.Errorf("expire attempts %s: %w", id, err)
		}
	}
	return n, nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, id string) error {
	return l.client.Del(ctx, l.key(id)).Err()
}
