package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"water-quality-platform/internal/models"
)

// RedisConfig holds connection settings for the Redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisCache stores JSON-encoded datasets in Redis with a TTL. Keys are
// tracked in a set so Invalidate can drop them without a SCAN.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisCache(client, cfg), nil
}

func newRedisCache(client *redis.Client, cfg RedisConfig) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "wq:dataset"
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

func (c *RedisCache) dataKey(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache) indexKey() string {
	return c.prefix + ":keys"
}

func (c *RedisCache) Get(ctx context.Context, key string) (models.Dataset, bool, error) {
	data, err := c.client.Get(ctx, c.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read dataset from redis: %w", err)
	}

	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached dataset: %w", err)
	}
	return ds, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, ds models.Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.dataKey(key), data, c.ttl)
	pipe.SAdd(ctx, c.indexKey(), c.dataKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store dataset in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached datasets: %w", err)
	}

	keys = append(keys, c.indexKey())
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached datasets: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
