package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// errSkip load 成功但结果不写入缓存
var errSkip = errors.New("cache: skip store")

// Cache redis 读穿缓存；nil *Cache 视为未启用，所有调用直接回源
type Cache struct {
	RDB    *redis.Client
	Prefix string
	Log    *zap.Logger
	sf     singleflight.Group
}

func New(addr, pass string, db int, l *zap.Logger) *Cache {
	if l == nil {
		l = zap.NewNop()
	}
	return &Cache{
		RDB:    redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		Prefix: "bulkbuy:",
		Log:    l,
	}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.RDB.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.RDB.Close()
}

// GetOrLoad 先读缓存，未命中用 singleflight 合并回源；redis 故障时退化为直接回源
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}
	if b, err := c.RDB.Get(ctx, c.key(key)).Bytes(); err == nil {
		return b, nil
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if err := c.RDB.Set(ctx, c.key(key), b, ttl).Err(); err != nil {
			c.Log.Debug("cache store failed", zap.String("key", key), zap.Error(err))
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Delete 失效若干 key；失败时旧值最长存活到 TTL，只记日志
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	if err := c.RDB.Del(ctx, full...).Err(); err != nil {
		c.Log.Warn("cache invalidation failed", zap.Strings("keys", full), zap.Error(err))
	}
}
