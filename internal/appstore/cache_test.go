package appstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/extension/appinfo"
)

// memCache is an in-memory Cache for tests.
type memCache struct {
	infos    map[string]*appinfo.Info
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newMemCache() *memCache {
	return &memCache{infos: make(map[string]*appinfo.Info)}
}

func (c *memCache) Get(_ context.Context, appID string) (*appinfo.Info, bool, error) {
	c.getCalls++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	info, ok := c.infos[appID]
	return info, ok, nil
}

func (c *memCache) Set(_ context.Context, info *appinfo.Info) error {
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.infos[info.ID] = info
	return nil
}

func (c *memCache) Delete(_ context.Context, appID string) error {
	delete(c.infos, appID)
	return nil
}

// countingStore counts descriptor loads.
type countingStore struct {
	memStore
	infoCalls int
}

func (s *countingStore) Info(ctx context.Context, appID string) (*appinfo.Info, error) {
	s.infoCalls++
	return s.memStore.Info(ctx, appID)
}

func TestCachedStore_Info(t *testing.T) {
	ctx := context.Background()

	t.Run("caches descriptor after first load", func(t *testing.T) {
		backing := &countingStore{memStore: memStore{
			infos: map[string]*appinfo.Info{"contacts": davInfo("contacts", "1.0.0")},
		}}
		cache := newMemCache()
		store := NewCachedStore(backing, cache, testLogger())

		first, err := store.Info(ctx, "contacts")
		require.NoError(t, err)
		second, err := store.Info(ctx, "contacts")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, backing.infoCalls, "second read must come from the cache")
		assert.Equal(t, 1, cache.setCalls)
	})

	t.Run("cache read failure degrades to a miss", func(t *testing.T) {
		backing := &countingStore{memStore: memStore{
			infos: map[string]*appinfo.Info{"contacts": davInfo("contacts", "1.0.0")},
		}}
		cache := newMemCache()
		cache.getErr = errors.New("redis down")
		store := NewCachedStore(backing, cache, testLogger())

		info, err := store.Info(ctx, "contacts")

		require.NoError(t, err)
		assert.Equal(t, "contacts", info.ID)
		assert.Equal(t, 1, backing.infoCalls)
	})

	t.Run("cache write failure does not fail the read", func(t *testing.T) {
		backing := &countingStore{memStore: memStore{
			infos: map[string]*appinfo.Info{"contacts": davInfo("contacts", "1.0.0")},
		}}
		cache := newMemCache()
		cache.setErr = errors.New("redis down")
		store := NewCachedStore(backing, cache, testLogger())

		info, err := store.Info(ctx, "contacts")

		require.NoError(t, err)
		assert.Equal(t, "contacts", info.ID)
	})

	t.Run("store miss propagates", func(t *testing.T) {
		backing := &countingStore{memStore: memStore{infos: map[string]*appinfo.Info{}}}
		store := NewCachedStore(backing, newMemCache(), testLogger())

		_, err := store.Info(ctx, "ghost")

		assert.True(t, IsAppNotFound(err))
	})
}

func TestNoopCache(t *testing.T) {
	t.Run("always misses", func(t *testing.T) {
		ctx := context.Background()
		cache := NewNoopCache()

		require.NoError(t, cache.Set(ctx, davInfo("contacts", "1.0.0")))

		_, ok, err := cache.Get(ctx, "contacts")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, cache.Delete(ctx, "contacts"))
	})
}
