package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-redirect/pkg/config"
	"media-redirect/pkg/redis"
)

// ErrNotFound is returned by Store.Get for missing or expired keys.
var ErrNotFound = errors.New("cache: key not found")

// Store is a flat key-value store with per-key expiry. Per-key overwrite races are
// last-writer-wins; no operation spans more than one key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Close() error
}

// NewStore builds the store selected by CACHE_BACKEND.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return NewMemoryStore(cfg.Cache.MaxEntries), nil
	case config.CacheBackendRedis:
		client, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// RedisStore shares links and markers between replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
