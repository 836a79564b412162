package infrastructure

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisClient wraps a go-redis client shared by the pool cache and the
// worker lock
type RedisClient struct {
	rdb *redis.Client
}

// NewRedisClient connects to the Redis URL and pings it
func NewRedisClient(ctx context.Context, redisURL string) (*RedisClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.WithField("addr", opts.Addr).Info("Connected to Redis")
	return &RedisClient{rdb: rdb}, nil
}

// Ping checks the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
