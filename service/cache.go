// file: service/cache.go

package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICounterStore is the slice of the Redis client the request limiter needs.
// *redis.Client satisfies it; tests use miniredis behind a real client.
type ICounterStore interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}
