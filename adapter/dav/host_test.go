package dav

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/emersion/go-webdav/caldav"
	"github.com/emersion/go-webdav/carddav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/extension/sdk"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
	"github.com/atriumhq/atrium/pkg/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// stubSource is a mock implementation of ExtensionSource.
type stubSource struct {
	plugins      []sdk.ServerPlugin
	collections  []sdk.Collection
	addressBooks []sdk.AddressBookProvider
	calendars    []sdk.CalendarProvider
	err          error
}

func (s *stubSource) AppPlugins(_ context.Context) ([]sdk.ServerPlugin, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plugins, nil
}

func (s *stubSource) AppCollections(_ context.Context) ([]sdk.Collection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.collections, nil
}

func (s *stubSource) AddressBookPlugins(_ context.Context) ([]sdk.AddressBookProvider, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.addressBooks, nil
}

func (s *stubSource) CalendarPlugins(_ context.Context) ([]sdk.CalendarProvider, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.calendars, nil
}

// fakePlugin is a mock implementation of sdk.ServerPlugin.
type fakePlugin struct {
	name      string
	features  []string
	initErr   error
	initCount int
}

func (p *fakePlugin) PluginName() string { return p.name }
func (p *fakePlugin) Features() []string { return p.features }
func (p *fakePlugin) Initialize(_ context.Context) error {
	p.initCount++
	return p.initErr
}

// fakeCollection is a mock implementation of sdk.Collection.
type fakeCollection struct {
	name string
}

func (c *fakeCollection) CollectionName() string { return c.name }

// fakeBookProvider is a mock implementation of sdk.AddressBookProvider.
type fakeBookProvider struct {
	name  string
	books []carddav.AddressBook
	err   error
}

func (p *fakeBookProvider) ProviderName() string { return p.name }
func (p *fakeBookProvider) AddressBooks(_ context.Context, _ string) ([]carddav.AddressBook, error) {
	return p.books, p.err
}

// fakeCalProvider is a mock implementation of sdk.CalendarProvider.
type fakeCalProvider struct {
	name      string
	calendars []caldav.Calendar
	err       error
}

func (p *fakeCalProvider) ProviderName() string { return p.name }
func (p *fakeCalProvider) Calendars(_ context.Context, _ string) ([]caldav.Calendar, error) {
	return p.calendars, p.err
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestSource() *stubSource {
	return &stubSource{
		plugins: []sdk.ServerPlugin{
			&fakePlugin{name: "sync", features: []string{"sync-collection"}},
		},
		collections: []sdk.Collection{
			&fakeCollection{name: "principals"},
		},
		addressBooks: []sdk.AddressBookProvider{
			&fakeBookProvider{name: "system", books: []carddav.AddressBook{
				{Path: "/addressbooks/system/system/", Name: "System"},
			}},
		},
		calendars: []sdk.CalendarProvider{
			&fakeCalProvider{name: "birthdays", calendars: []caldav.Calendar{
				{Path: "/calendars/alice/birthdays/", Name: "Birthdays"},
			}},
		},
	}
}

func TestHost_Bootstrap(t *testing.T) {
	source := newTestSource()
	publisher := &recordingPublisher{}
	metrics := observability.NewInMemoryMetrics()

	host := NewHost(source, publisher, metrics, testLogger())
	require.NoError(t, host.Bootstrap(context.Background()))

	// Plugin was initialized exactly once
	plugin := source.plugins[0].(*fakePlugin)
	assert.Equal(t, 1, plugin.initCount)

	// Compliance header carries base classes plus plugin features
	header := host.DAVHeader()
	assert.Contains(t, header, "1, 3")
	assert.Contains(t, header, "addressbook")
	assert.Contains(t, header, "calendar-access")
	assert.Contains(t, header, "sync-collection")

	// Extension counts are exposed as a gauge
	assert.Equal(t, 4.0, metrics.GetGauge(observability.MetricExtensionsLoaded))

	// Lifecycle event was published
	require.Len(t, publisher.keys, 1)
	assert.Equal(t, eventbus.RoutingKeyExtensionsLoaded, publisher.keys[0])

	var event map[string]any
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.NotEmpty(t, event["id"])
	assert.Equal(t, 1.0, event["plugins"])
	assert.Equal(t, 1.0, event["collections"])
}

func TestHost_Bootstrap_RunsOnce(t *testing.T) {
	source := newTestSource()
	publisher := &recordingPublisher{}

	host := NewHost(source, publisher, nil, testLogger())
	require.NoError(t, host.Bootstrap(context.Background()))
	require.NoError(t, host.Bootstrap(context.Background()))

	plugin := source.plugins[0].(*fakePlugin)
	assert.Equal(t, 1, plugin.initCount)
	assert.Len(t, publisher.keys, 1)
}

func TestHost_Bootstrap_SourceFailureIsRetryable(t *testing.T) {
	source := newTestSource()
	source.err = errors.New("population failed")
	publisher := &recordingPublisher{}

	host := NewHost(source, publisher, nil, testLogger())

	err := host.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "population failed")

	// Nothing committed, nothing published
	_, err = host.AddressBooks(context.Background(), "alice")
	require.Error(t, err)
	assert.Empty(t, publisher.keys)

	// The source recovers and a retry succeeds
	source.err = nil
	require.NoError(t, host.Bootstrap(context.Background()))

	books, err := host.AddressBooks(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestHost_Bootstrap_PluginInitFailure(t *testing.T) {
	source := newTestSource()
	source.plugins = []sdk.ServerPlugin{
		&fakePlugin{name: "broken", initErr: errors.New("backend unavailable")},
	}

	host := NewHost(source, &recordingPublisher{}, nil, testLogger())

	err := host.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `initializing plugin "broken"`)
	assert.Empty(t, host.DAVHeader())
}

func TestHost_AddressBooks(t *testing.T) {
	t.Run("aggregates across providers", func(t *testing.T) {
		source := newTestSource()
		source.addressBooks = []sdk.AddressBookProvider{
			&fakeBookProvider{name: "system", books: []carddav.AddressBook{
				{Path: "/addressbooks/system/system/", Name: "System"},
			}},
			&fakeBookProvider{name: "remote", books: []carddav.AddressBook{
				{Path: "/addressbooks/remote/work/", Name: "Work"},
				{Path: "/addressbooks/remote/private/", Name: "Private"},
			}},
		}

		host := NewHost(source, &recordingPublisher{}, nil, testLogger())
		require.NoError(t, host.Bootstrap(context.Background()))

		books, err := host.AddressBooks(context.Background(), "alice")
		require.NoError(t, err)
		assert.Len(t, books, 3)
	})

	t.Run("provider failure names the provider", func(t *testing.T) {
		source := newTestSource()
		source.addressBooks = []sdk.AddressBookProvider{
			&fakeBookProvider{name: "remote", err: errors.New("upstream down")},
		}

		host := NewHost(source, &recordingPublisher{}, nil, testLogger())
		require.NoError(t, host.Bootstrap(context.Background()))

		_, err := host.AddressBooks(context.Background(), "alice")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `provider "remote"`)
	})
}

func TestHost_Calendars(t *testing.T) {
	source := newTestSource()

	host := NewHost(source, &recordingPublisher{}, nil, testLogger())
	require.NoError(t, host.Bootstrap(context.Background()))

	calendars, err := host.Calendars(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, calendars, 1)
	assert.Equal(t, "Birthdays", calendars[0].Name)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t,
		[]string{"1", "3", "sync-collection"},
		dedupe([]string{"1", "3", "sync-collection", "3", "sync-collection"}),
	)
	assert.Empty(t, dedupe(nil))
}
