package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"retail-basket/utils"
)

const cacheKeyPrefix = "recommendations:"

// RedisCache stores recommendation lists per product with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ RecommendationCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis, retrying the ping with retry.
func NewRedisCache(addr, password string, db int, ttl time.Duration, retry *utils.RetryConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	err := retry.Do("redis ping", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

// CacheKey returns the key holding the count recommendations of product
// computed from the rules of run runID. Lists from different rule tables or
// counts never share a key.
func CacheKey(runID, product string, count int) string {
	return fmt.Sprintf("%s%s:%d:%s", cacheKeyPrefix, runID, count, product)
}

// Set stores items under key, replacing any previous list.
func (c *RedisCache) Set(ctx context.Context, key string, items []string) error {
	if items == nil {
		items = []string{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("redis: marshal recommendations: %w", err)
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Get returns the list cached under key; ok is false on a cache miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get %s: %w", key, err)
	}

	var items []string
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false, fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return items, true, nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
