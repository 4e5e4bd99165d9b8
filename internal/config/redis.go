package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"railway/internal/utils"
)

// ConnectRedis returns nil, nil when url is empty: redis-backed features are
// optional and fall back to in-process behavior.
func ConnectRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	utils.LogEvent("", "config", "connect_redis", "connected to redis")
	return client, nil
}
