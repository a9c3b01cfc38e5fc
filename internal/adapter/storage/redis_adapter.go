package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const availableKeyPrefix = "available:"

// RedisCache keeps the derived available quantity per item for the read
// path. The database is the source of truth; entries expire so a missed
// refresh heals itself.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func availableKey(itemID int64) string {
	return availableKeyPrefix + strconv.FormatInt(itemID, 10)
}

func (r *RedisCache) GetAvailable(ctx context.Context, itemID int64) (int, bool, error) {
	value, err := r.client.Get(ctx, availableKey(itemID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (r *RedisCache) SetAvailable(ctx context.Context, itemID int64, quantity int) error {
	return r.client.Set(ctx, availableKey(itemID), quantity, r.ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, itemID int64) error {
	return r.client.Del(ctx, availableKey(itemID)).Err()
}

// NopCache satisfies the cache port when Redis is not configured; every
// read is a miss and writes are discarded.
type NopCache struct{}

func (NopCache) GetAvailable(ctx context.Context, itemID int64) (int, bool, error) {
	return 0, false, nil
}

func (NopCache) SetAvailable(ctx context.Context, itemID int64, quantity int) error { return nil }

func (NopCache) Invalidate(ctx context.Context, itemID int64) error { return nil }
