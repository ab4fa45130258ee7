package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-redirect/pkg/config"
	"media-redirect/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by Get when the key does not exist or has expired.
var ErrKeyNotFound = errors.New("key not found")

// Client wraps redis client with additional functionality
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := rdb.Ping(ctx)
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", result.Err())
	}

	logger.Info("Connected to Redis successfully")

	return &Client{
		client: rdb,
	}, nil
}

// NewFromClient wraps an existing go-redis client
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{client: rdb}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Set sets a key-value pair with expiration
func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	result := c.client.Set(ctx, key, value, expiration)
	if result.Err() != nil {
		return fmt.Errorf("failed to set key: %w", result.Err())
	}

	return nil
}

// Get gets a value by key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	result := c.client.Get(ctx, key)
	if result.Err() != nil {
		if errors.Is(result.Err(), redis.Nil) {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return "", fmt.Errorf("failed to get key: %w", result.Err())
	}

	return result.Val(), nil
}

// Delete deletes a key
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	result := c.client.Del(ctx, keys...)
	if result.Err() != nil {
		return fmt.Errorf("failed to delete keys: %w", result.Err())
	}

	return nil
}

// SetNX sets a key only if it doesn't exist
func (c *Client) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	result := c.client.SetNX(ctx, key, value, expiration)
	if result.Err() != nil {
		return false, fmt.Errorf("failed to set key if not exists: %w", result.Err())
	}
	return result.Val(), nil
}

// TTL returns the remaining time to live of a key
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	result := c.client.TTL(ctx, key)
	if result.Err() != nil {
		return 0, fmt.Errorf("failed to get ttl: %w", result.Err())
	}
	return result.Val(), nil
}
