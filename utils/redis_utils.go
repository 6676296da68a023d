package utils

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores json encoded read projections with a ttl.
type RedisCache struct {
	inner  *redis.Client
	prefix string
	ttl    time.Duration
}

// GetRedisCache returns nil when REDIS_ADDRESS is not configured, callers treat
// a nil cache as disabled.
func GetRedisCache(ctx context.Context, ttl time.Duration) (*RedisCache, error) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		return nil, nil
	}
	return NewRedisCache(ctx, &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	}, ttl)
}

func NewRedisCache(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{inner: client, prefix: "infoflow:", ttl: ttl}, nil
}

// GetJSON returns false on a cache miss.
func (r *RedisCache) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := r.inner.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, out)
}

func (r *RedisCache) SetJSON(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.inner.Set(ctx, r.prefix+key, raw, r.ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.prefix+k)
	}
	return r.inner.Del(ctx, full...).Err()
}

func (r *RedisCache) Close() error {
	return r.inner.Close()
}
