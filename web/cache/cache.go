package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/bookshelf-app/bookshelf/logger"
	"github.com/goccy/go-json"
)

const (
	TTLCategories = 30 * time.Second
)

// Cache keys
const (
	KeyCategories        = "catalog:categories"
	KeyCatalogGeneration = "catalog:generation"
	KeyRateLimitLogin    = "ratelimit:login:"
)

// GetJSON retrieves a value and unmarshals it as JSON.
func (c *Cache) GetJSON(key string, dest any) error {
	val, err := c.Get(key)
	if err != nil {
		return err
	}
	if val == "" {
		return fmt.Errorf("empty value for key: %s", key)
	}
	return json.Unmarshal([]byte(val), dest)
}

// SetJSON marshals a value as JSON and stores it.
func (c *Cache) SetJSON(key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.Set(key, string(data), expiration)
}

// GetOrSet fills dest from the cache, or from fn on a miss. Concurrent misses
// on the same key share one call to fn.
func (c *Cache) GetOrSet(key string, dest any, expiration time.Duration, fn func() (any, error)) error {
	err := c.GetJSON(key, dest)
	if err == nil {
		logger.Debugf("Cache hit for key: %s", key)
		return nil
	}
	if c != nil && !errors.Is(err, ErrMiss) {
		logger.Warningf("Cache read for key %s failed: %v", key, err)
	}

	data, err, _ := c.fill(key, func() (any, error) {
		value, err := fn()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.Set(key, string(data), expiration); err != nil {
			logger.Warningf("Failed to set cache for key %s: %v", key, err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data.([]byte), dest)
}

func (c *Cache) fill(key string, fn func() (any, error)) (any, error, bool) {
	if c == nil {
		v, err := fn()
		return v, err, false
	}
	return c.fills.Do(key, fn)
}

// CatalogKey scopes key to the current catalog generation. Entries written
// under an older generation are never read again and expire with their TTL.
func (c *Cache) CatalogKey(key string) (string, error) {
	gen, err := c.Get(KeyCatalogGeneration)
	if errors.Is(err, ErrMiss) {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return key + ":" + gen, nil
}

// InvalidateCatalog bumps the catalog generation and drops the cached
// listings. A fill that loaded before the bump lands under the old
// generation, so it cannot resurrect stale data.
func (c *Cache) InvalidateCatalog() error {
	if c == nil {
		return nil
	}
	if err := c.client.Incr(c.ctx, KeyCatalogGeneration).Err(); err != nil {
		return err
	}
	return c.DeletePattern(KeyCategories + ":*")
}
