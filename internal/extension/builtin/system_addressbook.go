package builtin

import (
	"context"

	"github.com/emersion/go-webdav/carddav"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// SystemAddressBookPath is where the shared system address book lives.
const SystemAddressBookPath = "/addressbooks/system/system/"

// SystemAddressBook contributes the read-only system address book holding one
// card per account on the instance. Every principal sees the same book.
type SystemAddressBook struct{}

// NewSystemAddressBook creates the system address book provider.
func NewSystemAddressBook() *SystemAddressBook {
	return &SystemAddressBook{}
}

// ProviderName returns the provider's unique name.
func (p *SystemAddressBook) ProviderName() string {
	return "system-addressbook"
}

// AddressBooks returns the address books visible to the principal.
func (p *SystemAddressBook) AddressBooks(_ context.Context, _ string) ([]carddav.AddressBook, error) {
	return []carddav.AddressBook{
		{
			Path:        SystemAddressBookPath,
			Name:        "System",
			Description: "All accounts on this instance",
		},
	}, nil
}

var _ sdk.AddressBookProvider = (*SystemAddressBook)(nil)
