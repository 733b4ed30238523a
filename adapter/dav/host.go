// Package dav assembles the DAV server surface from the extensions installed
// apps contribute: server plugins, root-tree collections, and the per-principal
// address book and calendar homes.
package dav

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/emersion/go-webdav/carddav"
	"github.com/google/uuid"

	"github.com/atriumhq/atrium/internal/extension/sdk"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
	"github.com/atriumhq/atrium/pkg/observability"
)

// baseComplianceClasses are always advertised in the DAV header; plugins add
// their own tokens during bootstrap.
var baseComplianceClasses = []string{"1", "3", "extended-mkcol", "addressbook", "calendar-access"}

// ExtensionSource serves the four extension collections.
// Satisfied by *registry.Registry.
type ExtensionSource interface {
	AppPlugins(ctx context.Context) ([]sdk.ServerPlugin, error)
	AppCollections(ctx context.Context) ([]sdk.Collection, error)
	AddressBookPlugins(ctx context.Context) ([]sdk.AddressBookProvider, error)
	CalendarPlugins(ctx context.Context) ([]sdk.CalendarProvider, error)
}

// Host owns the bootstrapped extension surface of the DAV server.
type Host struct {
	source    ExtensionSource
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger

	mu           sync.RWMutex
	bootstrapped bool
	plugins      []sdk.ServerPlugin
	collections  []sdk.Collection
	addressBooks []sdk.AddressBookProvider
	calendars    []sdk.CalendarProvider
	davHeader    string
}

// NewHost creates an unbootstrapped host over an extension source.
func NewHost(source ExtensionSource, publisher eventbus.Publisher, metrics observability.Metrics, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Host{
		source:    source,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Bootstrap pulls all four extension collections (the first accessor call
// triggers the registry's single population pass), initializes each server
// plugin, and assembles the DAV compliance header. A failed bootstrap commits
// nothing and may be retried.
func (h *Host) Bootstrap(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.bootstrapped {
		return nil
	}

	timer := observability.StartTimer("bootstrap_extensions").
		WithLogger(h.logger).
		WithMetrics(h.metrics)

	plugins, err := h.source.AppPlugins(ctx)
	if err != nil {
		timer.StopWithError(err)
		return fmt.Errorf("loading server plugins: %w", err)
	}
	collections, err := h.source.AppCollections(ctx)
	if err != nil {
		timer.StopWithError(err)
		return fmt.Errorf("loading collections: %w", err)
	}
	addressBooks, err := h.source.AddressBookPlugins(ctx)
	if err != nil {
		timer.StopWithError(err)
		return fmt.Errorf("loading address book plugins: %w", err)
	}
	calendars, err := h.source.CalendarPlugins(ctx)
	if err != nil {
		timer.StopWithError(err)
		return fmt.Errorf("loading calendar plugins: %w", err)
	}

	features := append([]string{}, baseComplianceClasses...)
	for _, plugin := range plugins {
		if err := plugin.Initialize(ctx); err != nil {
			timer.StopWithError(err)
			return fmt.Errorf("initializing plugin %q: %w", plugin.PluginName(), err)
		}
		features = append(features, plugin.Features()...)
		h.logger.Info("initialized server plugin", "plugin", plugin.PluginName())
	}

	for _, collection := range collections {
		h.logger.Info("mounted collection", "collection", collection.CollectionName())
	}

	h.plugins = plugins
	h.collections = collections
	h.addressBooks = addressBooks
	h.calendars = calendars
	h.davHeader = strings.Join(dedupe(features), ", ")
	h.bootstrapped = true

	total := len(plugins) + len(collections) + len(addressBooks) + len(calendars)
	h.metrics.Gauge(observability.MetricExtensionsLoaded, float64(total))
	h.publishLoaded(ctx)

	timer.Stop()
	return nil
}

// publishLoaded announces the completed bootstrap on the event bus.
// A broker failure is logged, never propagated: the host is already up.
func (h *Host) publishLoaded(ctx context.Context) {
	event := map[string]any{
		"id":                   uuid.NewString(),
		"occurred_at":          time.Now().UTC().Format(time.RFC3339),
		"plugins":              len(h.plugins),
		"collections":          len(h.collections),
		"address_book_plugins": len(h.addressBooks),
		"calendar_plugins":     len(h.calendars),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode extensions-loaded event", "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, eventbus.RoutingKeyExtensionsLoaded, payload); err != nil {
		h.logger.Warn("failed to publish extensions-loaded event", "error", err)
	}
}

// DAVHeader returns the compliance header value assembled during bootstrap.
func (h *Host) DAVHeader() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.davHeader
}

// Plugins returns the initialized server plugins.
func (h *Host) Plugins() []sdk.ServerPlugin {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]sdk.ServerPlugin, len(h.plugins))
	copy(out, h.plugins)
	return out
}

// Collections returns the nodes mounted under the server's root tree.
func (h *Host) Collections() []sdk.Collection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]sdk.Collection, len(h.collections))
	copy(out, h.collections)
	return out
}

// AddressBookProviders returns the registered address book providers.
func (h *Host) AddressBookProviders() []sdk.AddressBookProvider {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]sdk.AddressBookProvider, len(h.addressBooks))
	copy(out, h.addressBooks)
	return out
}

// CalendarProviders returns the registered calendar providers.
func (h *Host) CalendarProviders() []sdk.CalendarProvider {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]sdk.CalendarProvider, len(h.calendars))
	copy(out, h.calendars)
	return out
}

// AddressBooks aggregates the address books every provider contributes to the
// principal's CardDAV home.
func (h *Host) AddressBooks(ctx context.Context, principal string) ([]carddav.AddressBook, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.bootstrapped {
		return nil, fmt.Errorf("host not bootstrapped")
	}

	var books []carddav.AddressBook
	for _, provider := range h.addressBooks {
		contributed, err := provider.AddressBooks(ctx, principal)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", provider.ProviderName(), err)
		}
		books = append(books, contributed...)
	}
	return books, nil
}

// Calendars aggregates the calendars every provider contributes to the
// principal's CalDAV home.
func (h *Host) Calendars(ctx context.Context, principal string) ([]caldav.Calendar, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.bootstrapped {
		return nil, fmt.Errorf("host not bootstrapped")
	}

	var calendars []caldav.Calendar
	for _, provider := range h.calendars {
		contributed, err := provider.Calendars(ctx, principal)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", provider.ProviderName(), err)
		}
		calendars = append(calendars, contributed...)
	}
	return calendars, nil
}

// dedupe removes duplicate tokens while preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
