package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedStats struct {
	Total     int            `json:"total"`
	Platforms map[string]int `json:"platforms"`
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	cache, err := NewRedisCache(ctx, &redis.Options{Addr: mr.Addr()}, time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	var out cachedStats
	hit, err := cache.GetJSON(ctx, "stats", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	in := cachedStats{Total: 3, Platforms: map[string]int{"rss": 2, "x": 1}}
	require.NoError(t, cache.SetJSON(ctx, "stats", in))

	hit, err = cache.GetJSON(ctx, "stats", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)

	mr.FastForward(2 * time.Minute)
	hit, err = cache.GetJSON(ctx, "stats", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	cache, err := NewRedisCache(ctx, &redis.Options{Addr: mr.Addr()}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, cache.SetJSON(ctx, "latest_brief", map[string]string{"date": "2021-12-04"}))
	assert.True(t, mr.Exists("infoflow:latest_brief"))
	require.NoError(t, cache.Invalidate(ctx, "latest_brief"))
	assert.False(t, mr.Exists("infoflow:latest_brief"))
}

func TestGetRedisCacheDisabledWithoutAddress(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "")
	cache, err := GetRedisCache(context.Background(), time.Minute)
	assert.NoError(t, err)
	assert.Nil(t, cache)
}
