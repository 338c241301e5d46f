package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterKeyPrefix = "auth:limit:"

// Limiter decides whether another email-triggering request is allowed.
type Limiter interface {
	Allow(ctx context.Context, scope, identifier string) (bool, error)
}

// RequestLimiter is a fixed-window counter per scope and identifier.
type RequestLimiter struct {
	store       ICounterStore
	window      time.Duration
	maxRequests int
}

func NewRequestLimiter(store ICounterStore, window time.Duration, maxRequests int) *RequestLimiter {
	return &RequestLimiter{store: store, window: window, maxRequests: maxRequests}
}

// Allow counts the request and reports whether it is within the window's
// budget. Identifiers are hashed so no email address is written to Redis.
func (l *RequestLimiter) Allow(ctx context.Context, scope, identifier string) (bool, error) {
	key := limiterKeyPrefix + scope + ":" + HashToken(strings.ToLower(identifier))

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("limiter incr: %w", err)
	}

	// A counter without a TTL never resets, so any hit that finds one sets it.
	if ttl.Val() < 0 {
		if err := l.store.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("limiter expire: %w", err)
		}
	}
	return incr.Val() <= int64(l.maxRequests), nil
}
