// file: db/redis.go

package db

import (
	"context"
	"fmt"

	"github.com/mgmassand/life-curriculum-assistant/config"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis initializes the Redis client backing the request limiter.
func ConnectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	redisAddr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Log.WithError(err).Error("Failed to ping Redis")
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Log.WithField("address", redisAddr).Info("Redis connection established successfully")
	return rdb, nil
}
