// Package builtin provides the stock DAV extensions that ship with Atrium.
// Zero-dependency extensions register their constructors into the factory
// table here; extensions that need injected dependencies (remote accounts,
// cross-extension wiring) are registered by the application container instead.
package builtin

import (
	"github.com/atriumhq/atrium/internal/extension/resolve"
)

// Declared type names of the stock extensions. Core app descriptors reference
// extensions by these names.
const (
	TypeSyncPlugin          = "atrium.dav.SyncPlugin"
	TypePrincipalCollection = "atrium.dav.PrincipalCollection"
	TypeSystemAddressBook   = "atrium.dav.SystemAddressBook"
	TypeBirthdayCalendar    = "atrium.dav.BirthdayCalendar"
	TypeRemoteCalendars     = "atrium.dav.RemoteCalendars"
	TypeRemoteAddressBooks  = "atrium.dav.RemoteAddressBooks"
)

// Register adds the zero-argument stock extensions to the factory table.
// Must run before registry population.
func Register(factories *resolve.Factories) error {
	if err := factories.Register(TypeSyncPlugin, func() (any, error) {
		return NewSyncPlugin(), nil
	}); err != nil {
		return err
	}
	if err := factories.Register(TypePrincipalCollection, func() (any, error) {
		return NewPrincipalCollection(), nil
	}); err != nil {
		return err
	}
	return factories.Register(TypeSystemAddressBook, func() (any, error) {
		return NewSystemAddressBook(), nil
	})
}
