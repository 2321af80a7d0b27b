package cache

import (
	"context"
	"time"
)

// ScopedCache wraps a Cache with a key prefix so multiple independent
// callers (e.g. registry resolve responses vs. downloaded blobs) can
// share one backend without key collisions.
type ScopedCache struct {
	inner  Cache
	prefix string
}

// NewScopedCache returns a Cache whose keys are all prefixed with
// prefix before being passed to inner. A nil inner falls back to a
// NullCache.
func NewScopedCache(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &ScopedCache{inner: inner, prefix: prefix}
}

func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

func (c *ScopedCache) Close() error {
	return c.inner.Close()
}

var _ Cache = (*ScopedCache)(nil)
