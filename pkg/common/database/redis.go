package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitalink/platform/pkg/common/config"
	"github.com/vitalink/platform/pkg/common/logger"
)

// NewRedis connects a client for the hospital status cache. Returns nil when
// the server is unreachable so callers can treat the cache as best-effort.
func NewRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
		client.Close()
		return nil
	}

	logger.Log.Info("Connected to Redis")
	return client
}
