package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNilCache_PassThrough(t *testing.T) {
	var c *Cache
	calls := 0
	load := func(context.Context) (*profile, error) {
		calls++
		return &profile{ID: "u1", Name: "Alice"}, nil
	}
	profiles := NewJSON[profile](c, "user:", time.Minute)
	for i := 0; i < 2; i++ {
		p, err := profiles.Get(context.Background(), "u1", load)
		require.NoError(t, err)
		assert.Equal(t, "Alice", p.Name)
	}
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Ping(context.Background()))
	profiles.Forget(context.Background(), "u1")
	assert.NoError(t, c.Close())
}

func TestNilCache_PropagatesLoadError(t *testing.T) {
	var c *Cache
	boom := errors.New("boom")
	_, err := NewJSON[profile](c, "", time.Minute).Get(context.Background(), "k", func(context.Context) (*profile, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c := New(addr, "", 0, nil)
	c.Prefix = "bulkbuy-test:"
	defer c.Close()
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	profiles := NewJSON[profile](c, "user:", time.Minute)
	profiles.Forget(ctx, "u2")

	calls := 0
	load := func(context.Context) (*profile, error) {
		calls++
		return &profile{ID: "u2", Name: "Bob"}, nil
	}
	for i := 0; i < 3; i++ {
		p, err := profiles.Get(ctx, "u2", load)
		require.NoError(t, err)
		assert.Equal(t, "Bob", p.Name)
	}
	assert.Equal(t, 1, calls)

	profiles.Forget(ctx, "u2")
	_, err := profiles.Get(ctx, "u2", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNilCache_NilValue(t *testing.T) {
	var c *Cache
	p, err := NewJSON[profile](c, "user:", time.Minute).Get(context.Background(), "missing", func(context.Context) (*profile, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestUnreachableRedis(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := &Cache{
		RDB:    redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1}),
		Prefix: "bulkbuy-test:",
		Log:    zap.New(core),
	}
	defer c.Close()
	ctx := context.Background()

	// 读失败退化为回源
	p, err := NewJSON[profile](c, "user:", time.Minute).Get(ctx, "u3", func(context.Context) (*profile, error) {
		return &profile{ID: "u3", Name: "Cid"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Cid", p.Name)
	assert.Equal(t, 1, logs.FilterMessage("cache store failed").Len())

	NewJSON[profile](c, "user:", time.Minute).Forget(ctx, "u3")
	entries := logs.FilterMessage("cache invalidation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, []any{"bulkbuy-test:user:u3"}, entries[0].ContextMap()["keys"])
}
