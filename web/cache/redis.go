// Package cache provides Redis caching for the bookshelf panel.
// It talks to an external Redis server when an address is configured and
// starts an embedded one (miniredis) otherwise. The embedded server is private
// to its process, so it backs only per-process state such as rate limits.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = errors.New("cache: key not found")

// Cache wraps a Redis client. A nil *Cache is valid and caches nothing.
type Cache struct {
	client    *redis.Client
	miniRedis *miniredis.Miniredis
	ctx       context.Context
	fills     singleflight.Group
}

// New connects to redisAddr, or starts an embedded Redis when it is empty.
func New(redisAddr string) (*Cache, error) {
	c := &Cache{ctx: context.Background()}
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded Redis: %w", err)
		}
		c.miniRedis = mr
		c.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.Info("Embedded Redis started on", mr.Addr())
		return c, nil
	}

	c.client = redis.NewClient(&redis.Options{Addr: redisAddr})
	if _, err := c.client.Ping(c.ctx).Result(); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisAddr, err)
	}
	logger.Info("Connected to external Redis at", redisAddr)
	return c, nil
}

// IsShared reports whether the cache is an external Redis that every process
// of the deployment sees. Only a shared cache may hold data another process
// can change.
func (c *Cache) IsShared() bool {
	return c != nil && c.miniRedis == nil
}

// Close closes the client and stops the embedded Redis if running.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	err := c.client.Close()
	if c.miniRedis != nil {
		c.miniRedis.Close()
	}
	return err
}

// Get retrieves a raw value.
func (c *Cache) Get(key string) (string, error) {
	if c == nil {
		return "", ErrMiss
	}
	result, err := c.client.Get(c.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return result, err
}

// Set stores a raw value with expiration.
func (c *Cache) Set(key string, value any, expiration time.Duration) error {
	if c == nil {
		return nil
	}
	return c.client.Set(c.ctx, key, value, expiration).Err()
}

// Delete removes keys.
func (c *Cache) Delete(keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(c.ctx, keys...).Err()
}

// DeletePattern removes all keys matching a glob pattern.
func (c *Cache) DeletePattern(pattern string) error {
	if c == nil {
		return nil
	}
	iter := c.client.Scan(c.ctx, 0, pattern, 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(c.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.Delete(keys...)
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Hit increments the counter for key in the current fixed window and returns
// the count after the increment. The counter expires with the window.
func (c *Cache) Hit(key string, window time.Duration) (int64, error) {
	if c == nil {
		return 0, nil
	}
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		return 0, fmt.Errorf("invalid window %v", window)
	}
	slot := time.Now().UTC().UnixMilli() / windowMs
	return fixedWindowScript.Run(c.ctx, c.client, []string{fmt.Sprintf("%s:%d", key, slot)}, windowMs).Int64()
}
