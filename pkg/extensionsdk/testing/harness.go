// Package testing provides test utilities for extension development.
// Use the harness to check an extension against the host's expectations
// without running a full Atrium server.
package testing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-webdav/caldav"
	"github.com/emersion/go-webdav/carddav"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// Harness checks extension implementations against the conformance rules the
// host enforces during bootstrap.
type Harness struct {
	principal string
	logger    *slog.Logger
}

// NewHarness creates a new test harness.
func NewHarness() *Harness {
	return &Harness{
		principal: "test-principal",
		logger:    slog.Default(),
	}
}

// WithPrincipal sets the principal used when exercising providers.
func (h *Harness) WithPrincipal(principal string) *Harness {
	h.principal = principal
	return h
}

// WithLogger sets a custom logger.
func (h *Harness) WithLogger(logger *slog.Logger) *Harness {
	h.logger = logger
	return h
}

// CheckServerPlugin initializes the plugin and validates its advertised
// features. The features are returned for further assertions.
func (h *Harness) CheckServerPlugin(p sdk.ServerPlugin) ([]string, error) {
	if p.PluginName() == "" {
		return nil, fmt.Errorf("plugin name must not be empty")
	}

	if err := p.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("plugin %q failed to initialize: %w", p.PluginName(), err)
	}

	features := p.Features()
	for _, feature := range features {
		// Feature tokens are comma-joined into the DAV compliance header.
		if feature == "" || strings.ContainsAny(feature, ", ") {
			return nil, fmt.Errorf("plugin %q advertises malformed feature %q", p.PluginName(), feature)
		}
	}

	h.logger.Debug("server plugin checked",
		"plugin", p.PluginName(),
		"features", features,
	)
	return features, nil
}

// CheckCollection validates the collection's mount name.
func (h *Harness) CheckCollection(c sdk.Collection) error {
	name := c.CollectionName()
	if name == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	// Collections mount as a single path segment under the root tree.
	if strings.Contains(name, "/") {
		return fmt.Errorf("collection name %q must not contain a slash", name)
	}
	return nil
}

// CheckAddressBookProvider exercises the provider with the harness principal
// and validates the returned address books. The books are returned for
// further assertions.
func (h *Harness) CheckAddressBookProvider(p sdk.AddressBookProvider) ([]carddav.AddressBook, error) {
	if p.ProviderName() == "" {
		return nil, fmt.Errorf("provider name must not be empty")
	}

	books, err := p.AddressBooks(context.Background(), h.principal)
	if err != nil {
		return nil, fmt.Errorf("provider %q failed to list address books: %w", p.ProviderName(), err)
	}

	for _, book := range books {
		if book.Path == "" {
			return nil, fmt.Errorf("provider %q returned an address book without a path", p.ProviderName())
		}
	}
	return books, nil
}

// CheckCalendarProvider exercises the provider with the harness principal and
// validates the returned calendars. The calendars are returned for further
// assertions.
func (h *Harness) CheckCalendarProvider(p sdk.CalendarProvider) ([]caldav.Calendar, error) {
	if p.ProviderName() == "" {
		return nil, fmt.Errorf("provider name must not be empty")
	}

	calendars, err := p.Calendars(context.Background(), h.principal)
	if err != nil {
		return nil, fmt.Errorf("provider %q failed to list calendars: %w", p.ProviderName(), err)
	}

	for _, calendar := range calendars {
		if calendar.Path == "" {
			return nil, fmt.Errorf("provider %q returned a calendar without a path", p.ProviderName())
		}
	}
	return calendars, nil
}
