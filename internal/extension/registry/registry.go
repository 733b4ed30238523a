// Package registry populates and serves the DAV extension collections
// contributed by installed apps.
//
// Population is lazy and runs at most once per process: the first accessor
// call walks every installed app, resolves each declaration, and fills all
// four category collections in a single pass. A failed pass commits nothing,
// so a later accessor call retries from scratch.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/atriumhq/atrium/internal/appstore"
	"github.com/atriumhq/atrium/internal/extension/appinfo"
	"github.com/atriumhq/atrium/internal/extension/resolve"
	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// Registry holds the four extension collections.
type Registry struct {
	store    appstore.Store
	resolver *resolve.Resolver
	logger   *slog.Logger

	mu           sync.Mutex
	populated    bool
	plugins      []sdk.ServerPlugin
	collections  []sdk.Collection
	addressBooks []sdk.AddressBookProvider
	calendars    []sdk.CalendarProvider
}

// NewRegistry creates an unpopulated registry over an app store and a resolver.
func NewRegistry(store appstore.Store, resolver *resolve.Resolver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// AppPlugins returns the generic server plugins contributed by installed apps.
func (r *Registry) AppPlugins(ctx context.Context) ([]sdk.ServerPlugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.populate(ctx); err != nil {
		return nil, err
	}

	out := make([]sdk.ServerPlugin, len(r.plugins))
	copy(out, r.plugins)
	return out, nil
}

// AppCollections returns the nodes apps mount under the server's root tree.
func (r *Registry) AppCollections(ctx context.Context) ([]sdk.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.populate(ctx); err != nil {
		return nil, err
	}

	out := make([]sdk.Collection, len(r.collections))
	copy(out, r.collections)
	return out, nil
}

// AddressBookPlugins returns the address book providers contributed by
// installed apps.
func (r *Registry) AddressBookPlugins(ctx context.Context) ([]sdk.AddressBookProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.populate(ctx); err != nil {
		return nil, err
	}

	out := make([]sdk.AddressBookProvider, len(r.addressBooks))
	copy(out, r.addressBooks)
	return out, nil
}

// CalendarPlugins returns the calendar providers contributed by installed apps.
func (r *Registry) CalendarPlugins(ctx context.Context) ([]sdk.CalendarProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.populate(ctx); err != nil {
		return nil, err
	}

	out := make([]sdk.CalendarProvider, len(r.calendars))
	copy(out, r.calendars)
	return out, nil
}

// populate fills all four collections in one pass over the installed apps.
// The caller must hold r.mu. Collections are built locally and committed only
// when the whole pass succeeds; any failure aborts the pass and leaves the
// registry unpopulated.
func (r *Registry) populate(ctx context.Context) error {
	if r.populated {
		return nil
	}

	apps, err := r.store.ListInstalled(ctx)
	if err != nil {
		return fmt.Errorf("listing installed apps: %w", err)
	}

	var (
		plugins      []sdk.ServerPlugin
		collections  []sdk.Collection
		addressBooks []sdk.AddressBookProvider
		calendars    []sdk.CalendarProvider
	)

	for _, appID := range apps {
		info, err := r.store.Info(ctx, appID)
		if err != nil {
			return fmt.Errorf("loading descriptor for app %q: %w", appID, err)
		}
		if !info.HasType(appinfo.TypeDAV) {
			r.logger.Debug("skipping app without dav capability", "app", appID)
			continue
		}

		for _, declaration := range info.Declarations(sdk.CategoryPlugin) {
			plugin, err := resolveAs[sdk.ServerPlugin](r.resolver, declaration)
			if err != nil {
				return fmt.Errorf("app %q: %w", appID, err)
			}
			plugins = append(plugins, plugin)
		}

		for _, declaration := range info.Declarations(sdk.CategoryCollection) {
			collection, err := resolveAs[sdk.Collection](r.resolver, declaration)
			if err != nil {
				return fmt.Errorf("app %q: %w", appID, err)
			}
			collections = append(collections, collection)
		}

		for _, declaration := range info.Declarations(sdk.CategoryAddressBook) {
			provider, err := resolveAs[sdk.AddressBookProvider](r.resolver, declaration)
			if err != nil {
				return fmt.Errorf("app %q: %w", appID, err)
			}
			addressBooks = append(addressBooks, provider)
		}

		for _, declaration := range info.Declarations(sdk.CategoryCalendar) {
			provider, err := resolveAs[sdk.CalendarProvider](r.resolver, declaration)
			if err != nil {
				return fmt.Errorf("app %q: %w", appID, err)
			}
			calendars = append(calendars, provider)
		}

		r.logger.Debug("registered app extensions", "app", appID)
	}

	r.plugins = plugins
	r.collections = collections
	r.addressBooks = addressBooks
	r.calendars = calendars
	r.populated = true

	r.logger.Info("populated dav extension registry",
		"apps", len(apps),
		"plugins", len(plugins),
		"collections", len(collections),
		"address_book_plugins", len(addressBooks),
		"calendar_plugins", len(calendars),
	)

	return nil
}
