// Package ratelimit throttles login attempts with a fixed-window counter in
// Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "trackfast:login:"

// Limiter allows at most limit attempts per key in each window.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New builds a Limiter on top of an existing client.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// NewClient opens a go-redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// Allow counts an attempt for key and reports whether it is within the limit.
// The window starts with the first attempt.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return count <= int64(l.limit), nil
}

// Reset clears the attempt count for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	k := keyPrefix + key
	if err := l.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("del %s: %w", k, err)
	}
	return nil
}
