package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper remembers published alert keys in Redis for a fixed TTL.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper connects to Redis and verifies the connection.
func NewRedisDeduper(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisDeduper{client: client, ttl: ttl}, nil
}

// Seen reports whether key is present.
func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return n > 0, nil
}

// Mark sets key for the configured TTL.
func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	if err := d.client.Set(ctx, key, "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark failed: %w", err)
	}
	return nil
}

// Forget deletes keys.
func (d *RedisDeduper) Forget(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := d.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("dedup forget failed: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
