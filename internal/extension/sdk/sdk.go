// Package sdk provides the core interfaces and types for Atrium's DAV extension
// system. Extensions are contributed by installed apps and grouped into four
// categories; each category requires its instances to satisfy one of the
// capability interfaces below.
package sdk

import (
	"context"
	"reflect"

	"github.com/emersion/go-webdav/caldav"
	"github.com/emersion/go-webdav/carddav"
)

// Category identifies one of the four extension categories.
type Category string

const (
	CategoryPlugin      Category = "plugin"
	CategoryCollection  Category = "collection"
	CategoryAddressBook Category = "address-book"
	CategoryCalendar    Category = "calendar"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is valid.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPlugin, CategoryCollection, CategoryAddressBook, CategoryCalendar:
		return true
	default:
		return false
	}
}

// Capability returns the interface type instances of this category must
// satisfy, or nil for an unknown category.
func (c Category) Capability() reflect.Type {
	return capabilities[c]
}

var capabilities = map[Category]reflect.Type{
	CategoryPlugin:      reflect.TypeOf((*ServerPlugin)(nil)).Elem(),
	CategoryCollection:  reflect.TypeOf((*Collection)(nil)).Elem(),
	CategoryAddressBook: reflect.TypeOf((*AddressBookProvider)(nil)).Elem(),
	CategoryCalendar:    reflect.TypeOf((*CalendarProvider)(nil)).Elem(),
}

// Categories returns all categories in their fixed registration order.
// Registry population walks categories in exactly this order.
func Categories() []Category {
	return []Category{CategoryPlugin, CategoryCollection, CategoryAddressBook, CategoryCalendar}
}

// ServerPlugin is a generic server plugin hooked into the DAV request
// pipeline by the host during bootstrap.
type ServerPlugin interface {
	// PluginName returns the plugin's unique name.
	PluginName() string

	// Features returns the DAV compliance tokens the plugin advertises.
	Features() []string

	// Initialize prepares the plugin for serving.
	// Called once by the host during bootstrap.
	Initialize(ctx context.Context) error
}

// Collection is a node mounted under the server's root tree.
type Collection interface {
	// CollectionName returns the name the node is mounted under.
	CollectionName() string
}

// AddressBookProvider contributes address books to the CardDAV home of a
// principal.
type AddressBookProvider interface {
	// ProviderName returns the provider's unique name.
	ProviderName() string

	// AddressBooks returns the address books visible to the principal.
	AddressBooks(ctx context.Context, principal string) ([]carddav.AddressBook, error)
}

// CalendarProvider contributes calendars to the CalDAV home of a principal.
type CalendarProvider interface {
	// ProviderName returns the provider's unique name.
	ProviderName() string

	// Calendars returns the calendars visible to the principal.
	Calendars(ctx context.Context, principal string) ([]caldav.Calendar, error)
}

// Factory creates extension instances.
// Used by the resolver to defer instantiation until population runs.
type Factory func() (any, error)
