package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atriumhq/atrium/internal/extension/appinfo"
)

// Cache caches app descriptors.
type Cache interface {
	// Get returns the cached descriptor for an app; the second result is
	// false on a miss.
	Get(ctx context.Context, appID string) (*appinfo.Info, bool, error)

	// Set stores a descriptor.
	Set(ctx context.Context, info *appinfo.Info) error

	// Delete drops a cached descriptor.
	Delete(ctx context.Context, appID string) error
}

// RedisCache stores descriptors as JSON values with a TTL.
// Keys are namespaced: atrium:appinfo:{app_id}
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a descriptor cache on a Redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisCache) key(appID string) string {
	return "atrium:appinfo:" + appID
}

// Get retrieves a cached descriptor.
func (c *RedisCache) Get(ctx context.Context, appID string) (*appinfo.Info, bool, error) {
	data, err := c.client.Get(ctx, c.key(appID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var info appinfo.Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, false, fmt.Errorf("decoding cached descriptor: %w", err)
	}
	return &info, true, nil
}

// Set stores a descriptor under the app's ID.
func (c *RedisCache) Set(ctx context.Context, info *appinfo.Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding descriptor: %w", err)
	}
	return c.client.Set(ctx, c.key(info.ID), data, c.ttl).Err()
}

// Delete drops a cached descriptor.
func (c *RedisCache) Delete(ctx context.Context, appID string) error {
	return c.client.Del(ctx, c.key(appID)).Err()
}

// NoopCache never hits. Used when no Redis is configured.
type NoopCache struct{}

// NewNoopCache creates a cache that caches nothing.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always misses.
func (c *NoopCache) Get(context.Context, string) (*appinfo.Info, bool, error) {
	return nil, false, nil
}

// Set discards the descriptor.
func (c *NoopCache) Set(context.Context, *appinfo.Info) error {
	return nil
}

// Delete does nothing.
func (c *NoopCache) Delete(context.Context, string) error {
	return nil
}

// CachedStore puts a descriptor cache in front of another store. Cache
// failures degrade to misses; the backing store stays authoritative.
type CachedStore struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

// NewCachedStore wraps a store with a descriptor cache.
func NewCachedStore(store Store, cache Cache, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// ListInstalled delegates to the backing store; listings are not cached.
func (s *CachedStore) ListInstalled(ctx context.Context) ([]string, error) {
	return s.store.ListInstalled(ctx)
}

// Info returns the cached descriptor when present, loading and caching it
// otherwise.
func (s *CachedStore) Info(ctx context.Context, appID string) (*appinfo.Info, error) {
	info, ok, err := s.cache.Get(ctx, appID)
	if err != nil {
		s.logger.Warn("descriptor cache read failed",
			"app", appID,
			"error", err,
		)
	}
	if ok {
		return info, nil
	}

	info, err = s.store.Info(ctx, appID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, info); err != nil {
		s.logger.Warn("descriptor cache write failed",
			"app", appID,
			"error", err,
		)
	}
	return info, nil
}
