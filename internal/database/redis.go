package database

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/rejdysan/home-hub/internal/config"
)

// NewRedisClient 创建 Redis 客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// PingRedis 测试 Redis 连接
func PingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
