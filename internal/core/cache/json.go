package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JSON 同一类对象的类型化缓存视图，key 形如 <Cache.Prefix><prefix><id>
type JSON[T any] struct {
	c      *Cache
	prefix string
	ttl    time.Duration
}

func NewJSON[T any](c *Cache, prefix string, ttl time.Duration) *JSON[T] {
	return &JSON[T]{c: c, prefix: prefix, ttl: ttl}
}

func (j *JSON[T]) Key(id string) string { return j.prefix + id }

// Get 未命中时调用 load 并回写；load 返回 nil 值不缓存
func (j *JSON[T]) Get(ctx context.Context, id string, load func(context.Context) (*T, error)) (*T, error) {
	if j.c == nil {
		return load(ctx)
	}
	var loaded *T
	b, err := j.c.GetOrLoad(ctx, j.Key(id), j.ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		loaded = v
		if v == nil {
			return nil, errSkip
		}
		return json.Marshal(v)
	})
	switch {
	case errors.Is(err, errSkip):
		return loaded, nil
	case err != nil:
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		j.Forget(ctx, id)
		return load(ctx)
	}
	return out, nil
}

// Forget 对象变更后调用
func (j *JSON[T]) Forget(ctx context.Context, ids ...string) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, j.Key(id))
	}
	j.c.Delete(ctx, keys...)
}
