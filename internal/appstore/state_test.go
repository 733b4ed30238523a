package appstore

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/extension/appinfo"
)

// memStateRepository is an in-memory StateRepository for tests.
type memStateRepository struct {
	records map[string]*InstallRecord
}

func newMemStateRepository() *memStateRepository {
	return &memStateRepository{records: make(map[string]*InstallRecord)}
}

func (r *memStateRepository) Save(_ context.Context, record *InstallRecord) error {
	copied := *record
	r.records[record.AppID] = &copied
	return nil
}

func (r *memStateRepository) Find(_ context.Context, appID string) (*InstallRecord, error) {
	record, ok := r.records[appID]
	if !ok {
		return nil, ErrAppNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *memStateRepository) List(_ context.Context) ([]*InstallRecord, error) {
	out := make([]*InstallRecord, 0, len(r.records))
	for _, record := range r.records {
		copied := *record
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out, nil
}

func (r *memStateRepository) ListEnabled(_ context.Context) ([]string, error) {
	var ids []string
	for _, record := range r.records {
		if record.Enabled {
			ids = append(ids, record.AppID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memStateRepository) SetEnabled(_ context.Context, appID string, enabled bool) error {
	record, ok := r.records[appID]
	if !ok {
		return ErrAppNotFound
	}
	record.Enabled = enabled
	return nil
}

func (r *memStateRepository) Delete(_ context.Context, appID string) error {
	if _, ok := r.records[appID]; !ok {
		return ErrAppNotFound
	}
	delete(r.records, appID)
	return nil
}

// memStore is an in-memory Store for tests.
type memStore struct {
	apps  []string
	infos map[string]*appinfo.Info
}

func (s *memStore) ListInstalled(_ context.Context) ([]string, error) {
	return s.apps, nil
}

func (s *memStore) Info(_ context.Context, appID string) (*appinfo.Info, error) {
	info, ok := s.infos[appID]
	if !ok {
		return nil, ErrAppNotFound
	}
	return info, nil
}

func davInfo(id, version string) *appinfo.Info {
	return &appinfo.Info{ID: id, Name: id, Version: version, Types: []string{"dav"}}
}

func TestStateStore_ListInstalled(t *testing.T) {
	ctx := context.Background()

	t.Run("lists only enabled apps", func(t *testing.T) {
		disk := &memStore{
			apps: []string{"calendar", "contacts"},
			infos: map[string]*appinfo.Info{
				"calendar": davInfo("calendar", "1.0.0"),
				"contacts": davInfo("contacts", "1.0.0"),
			},
		}
		state := newMemStateRepository()
		require.NoError(t, state.Save(ctx, NewInstallRecord(disk.infos["calendar"])))
		record := NewInstallRecord(disk.infos["contacts"])
		record.Enabled = false
		require.NoError(t, state.Save(ctx, record))
		store := NewStateStore(disk, state, testLogger())

		apps, err := store.ListInstalled(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"calendar"}, apps)
	})

	t.Run("drops enabled apps missing from disk", func(t *testing.T) {
		disk := &memStore{
			apps:  []string{"calendar"},
			infos: map[string]*appinfo.Info{"calendar": davInfo("calendar", "1.0.0")},
		}
		state := newMemStateRepository()
		require.NoError(t, state.Save(ctx, NewInstallRecord(davInfo("calendar", "1.0.0"))))
		require.NoError(t, state.Save(ctx, NewInstallRecord(davInfo("vanished", "1.0.0"))))
		store := NewStateStore(disk, state, testLogger())

		apps, err := store.ListInstalled(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"calendar"}, apps)
	})
}

func TestStateStore_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("records new installs as enabled", func(t *testing.T) {
		disk := &memStore{
			apps:  []string{"contacts"},
			infos: map[string]*appinfo.Info{"contacts": davInfo("contacts", "1.0.0")},
		}
		state := newMemStateRepository()
		store := NewStateStore(disk, state, testLogger())

		installed, err := store.Sync(ctx)

		require.NoError(t, err)
		require.Len(t, installed, 1)
		assert.Equal(t, "contacts", installed[0].AppID)

		record, err := state.Find(ctx, "contacts")
		require.NoError(t, err)
		assert.True(t, record.Enabled)
		assert.Equal(t, "1.0.0", record.Version)
		assert.Equal(t, []string{"dav"}, record.Types)
	})

	t.Run("updates version on upgrade without touching enabled flag", func(t *testing.T) {
		disk := &memStore{
			apps:  []string{"contacts"},
			infos: map[string]*appinfo.Info{"contacts": davInfo("contacts", "2.0.0")},
		}
		state := newMemStateRepository()
		record := NewInstallRecord(davInfo("contacts", "1.0.0"))
		record.Enabled = false
		require.NoError(t, state.Save(ctx, record))
		store := NewStateStore(disk, state, testLogger())

		installed, err := store.Sync(ctx)

		require.NoError(t, err)
		assert.Empty(t, installed, "an upgrade is not a new install")

		updated, err := state.Find(ctx, "contacts")
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", updated.Version)
		assert.False(t, updated.Enabled, "sync must not re-enable a disabled app")
	})

	t.Run("unchanged apps are left alone", func(t *testing.T) {
		disk := &memStore{
			apps:  []string{"contacts"},
			infos: map[string]*appinfo.Info{"contacts": davInfo("contacts", "1.0.0")},
		}
		state := newMemStateRepository()
		record := NewInstallRecord(davInfo("contacts", "1.0.0"))
		require.NoError(t, state.Save(ctx, record))
		store := NewStateStore(disk, state, testLogger())

		installed, err := store.Sync(ctx)

		require.NoError(t, err)
		assert.Empty(t, installed)

		after, err := state.Find(ctx, "contacts")
		require.NoError(t, err)
		assert.Equal(t, record.UpdatedAt.UTC(), after.UpdatedAt.UTC())
	})
}

func TestNewInstallRecord(t *testing.T) {
	t.Run("new installs start enabled", func(t *testing.T) {
		record := NewInstallRecord(davInfo("contacts", "1.2.3"))

		assert.NotEqual(t, record.ID.String(), "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, "contacts", record.AppID)
		assert.Equal(t, "1.2.3", record.Version)
		assert.True(t, record.Enabled)
		assert.False(t, record.InstalledAt.IsZero())
	})
}
