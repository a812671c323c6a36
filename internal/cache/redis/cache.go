package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanCount is the SCAN page size hint used by DeletePrefix.
const scanCount = 100

// DefaultTTL is how long a computed aggregate stays cached.
const DefaultTTL = 30 * time.Second

// AnalyticsCache stores aggregate results as JSON strings with a TTL.
type AnalyticsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewAnalyticsCache creates a cache on client. A ttl of zero or less uses
// DefaultTTL.
func NewAnalyticsCache(client redis.Cmdable, ttl time.Duration) *AnalyticsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AnalyticsCache{
		client: client,
		ttl:    ttl,
	}
}

// Get decodes the value at key into dst. It reports false on a miss.
func (c *AnalyticsCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores value at key with the configured TTL.
func (c *AnalyticsCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix. It walks the keyspace
// with SCAN so a large cache never blocks the server.
func (c *AnalyticsCache) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del %s*: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
