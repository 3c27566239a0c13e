package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var errNoClient = errors.New("Redis client is not initialized")

// Cache is a thin Redis wrapper shared by the repositories and the token
// blacklist. Every read treats a missing key as a miss, not an error.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) (*Cache, error) {
	if client == nil {
		return nil, errNoClient
	}
	return &Cache{client: client}, nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if c.client == nil {
		return errNoClient
	}
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get returns "" for a missing key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", errNoClient
	}
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// SetJSON stores value encoded as JSON.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, expiration)
}

// GetJSON decodes the cached JSON into dst and reports whether there was a hit.
// An entry that no longer decodes is dropped and reported as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.Get(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, c.Delete(ctx, key)
	}
	return true, nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, errNoClient
	}
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return errNoClient
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
