package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of a Redis server, for fleet
// deployments where the fetcher runs across many machines and wants a
// shared registry resolve cache instead of one FileCache per host.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache dials addr (host:port) and returns a Cache backed by it.
func NewRedisCache(addr string, opts ...func(*redis.Options)) (Cache, error) {
	o := &redis.Options{Addr: addr}
	for _, apply := range opts {
		apply(o)
	}
	client := redis.NewClient(o)
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
