package cache

import (
	"context"
	"log/slog"
	"time"

	"cinema-booking/internal/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when Redis is not configured or not reachable,
// in which case callers fall back to Noop.
func NewRedisClient(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("redis not configured, availability cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, availability cache disabled", "addr", cfg.Addr, "error", err.Error())
		_ = client.Close()
		return nil
	}
	return client
}
