package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/redis/go-redis/v9"
)

// InitRedis connects to the idempotency store. Redis is optional for this
// service, so a failed connection is returned to the caller rather than fatal.
func InitRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
