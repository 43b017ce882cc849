package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AP5B/backend/internal/mercadopago"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// CachePreference stores a provider preference object so repeated booking
// list views do not hammer the provider API.
func (c *Client) CachePreference(ctx context.Context, pref *mercadopago.Preference, ttl time.Duration) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("failed to marshal preference: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("preference:%s", pref.ID), data, ttl).Err()
}

// GetCachedPreference retrieves a cached preference. Returns (nil, nil) on
// a cache miss.
func (c *Client) GetCachedPreference(ctx context.Context, preferenceID string) (*mercadopago.Preference, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("preference:%s", preferenceID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pref mercadopago.Preference
	if err := json.Unmarshal(data, &pref); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached preference: %w", err)
	}
	return &pref, nil
}
