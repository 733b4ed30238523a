package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/extension/builtin"
	"github.com/atriumhq/atrium/internal/extension/sdk"
	"github.com/atriumhq/atrium/internal/platform/database"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
	"github.com/atriumhq/atrium/pkg/config"
	"github.com/atriumhq/atrium/pkg/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testConfig builds a development config backed by temp directories.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppEnv:          "development",
		DatabaseURL:     filepath.Join(dir, "state.db"),
		CacheTTL:        time.Minute,
		AppsPaths:       []string{filepath.Join(dir, "apps")},
		ExtensionsPaths: []string{filepath.Join(dir, "extensions")},
		SyncOnStart:     true,
		CatalogURL:      "https://apps.example.test",
	}
}

// writeApp drops an app directory with a descriptor under the first apps path.
func writeApp(t *testing.T, cfg *config.Config, id string, types []string, extra map[string]any) {
	t.Helper()

	appDir := filepath.Join(cfg.AppsPaths[0], id)
	require.NoError(t, os.MkdirAll(appDir, 0o755))

	data, err := json.Marshal(map[string]any{
		"id":      id,
		"name":    id,
		"version": "1.0.0",
		"types":   types,
		"extra":   extra,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "appinfo.json"), data, 0o600))
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, database.DriverSQLite, c.DBDriver)
	assert.NotNil(t, c.SQLiteDB)
	assert.Nil(t, c.PgPool)

	assert.NotNil(t, c.StateRepo)
	assert.NotNil(t, c.DirStore)
	assert.NotNil(t, c.StateStore)
	assert.NotNil(t, c.Store)
	assert.NotNil(t, c.Resolver)
	assert.NotNil(t, c.Extensions)
	assert.NotNil(t, c.Catalog)
	assert.NotNil(t, c.Loader)

	// Stock extensions are registered before population can run
	assert.True(t, c.Factories.Has(builtin.TypeSyncPlugin))
	assert.True(t, c.Factories.Has(builtin.TypePrincipalCollection))
	assert.True(t, c.Factories.Has(builtin.TypeSystemAddressBook))

	// No broker configured, so events go nowhere
	assert.IsType(t, &eventbus.NoopPublisher{}, c.EventPublisher)

	// Development mode keeps metrics in memory
	assert.IsType(t, &observability.InMemoryMetrics{}, c.Metrics)
}

func TestNewContainer_HealthChecks(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewContainer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer c.Close()

	results := c.Health.Check(context.Background())
	require.Contains(t, results, "database")
	assert.Equal(t, observability.HealthStatusHealthy, results["database"].Status)

	// Redis and RabbitMQ are not configured, so no checks for them
	assert.NotContains(t, results, "redis")
	assert.NotContains(t, results, "rabbitmq")
}

func TestNewContainer_PopulatesRegistry(t *testing.T) {
	cfg := testConfig(t)
	writeApp(t, cfg, "davsync", []string{"dav"}, map[string]any{
		"dav": map[string]any{
			"plugins": map[string]any{"plugin": builtin.TypeSyncPlugin},
			"calendar-plugins": map[string]any{
				"plugin": builtin.TypeBirthdayCalendar,
			},
		},
	})

	c, err := NewContainer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer c.Close()

	plugins, err := c.Extensions.AppPlugins(context.Background())
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "sync", plugins[0].PluginName())

	calendars, err := c.Extensions.CalendarPlugins(context.Background())
	require.NoError(t, err)
	require.Len(t, calendars, 1)
	assert.Equal(t, "birthday-calendar", calendars[0].ProviderName())
}

func TestNewContainer_SkipsNonDAVApps(t *testing.T) {
	cfg := testConfig(t)
	writeApp(t, cfg, "notes", []string{"files"}, map[string]any{
		"dav": map[string]any{
			"plugins": map[string]any{"plugin": builtin.TypeSyncPlugin},
		},
	})

	c, err := NewContainer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer c.Close()

	plugins, err := c.Extensions.AppPlugins(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestContainer_Resolve(t *testing.T) {
	t.Run("birthday calendar resolves with injected source", func(t *testing.T) {
		c := &Container{Config: &config.Config{}, Logger: testLogger()}

		instance, err := c.Resolve(builtin.TypeBirthdayCalendar)
		require.NoError(t, err)

		provider, ok := instance.(sdk.CalendarProvider)
		require.True(t, ok)
		assert.Equal(t, "birthday-calendar", provider.ProviderName())
	})

	t.Run("remote calendars require a configured account", func(t *testing.T) {
		c := &Container{Config: &config.Config{}, Logger: testLogger()}

		_, err := c.Resolve(builtin.TypeRemoteCalendars)
		require.Error(t, err)
		// A configuration failure is a real error, not a missing registration
		assert.False(t, sdk.IsNotRegistered(err))
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("remote calendars resolve when configured", func(t *testing.T) {
		c := &Container{
			Config: &config.Config{
				RemoteCalDAVURL:      "https://dav.example.test",
				RemoteCalDAVUsername: "atrium",
				RemoteCalDAVPassword: "secret",
			},
			Logger: testLogger(),
		}

		instance, err := c.Resolve(builtin.TypeRemoteCalendars)
		require.NoError(t, err)
		_, ok := instance.(sdk.CalendarProvider)
		assert.True(t, ok)
	})

	t.Run("remote address books require a configured account", func(t *testing.T) {
		c := &Container{Config: &config.Config{}, Logger: testLogger()}

		_, err := c.Resolve(builtin.TypeRemoteAddressBooks)
		require.Error(t, err)
		assert.False(t, sdk.IsNotRegistered(err))
	})

	t.Run("unknown names fall back to the factory table", func(t *testing.T) {
		c := &Container{Config: &config.Config{}, Logger: testLogger()}

		_, err := c.Resolve("acme.dav.Unknown")
		require.Error(t, err)
		assert.True(t, sdk.IsNotRegistered(err))
	})
}

func TestSQLitePath(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"empty", "", ""},
		{"plain path", "/var/lib/atrium/state.db", "/var/lib/atrium/state.db"},
		{"sqlite scheme", "sqlite:///var/lib/atrium/state.db", "/var/lib/atrium/state.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqlitePath(tt.url))
		})
	}
}
