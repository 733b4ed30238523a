// Package extensionsdk provides the public SDK for developing Atrium
// extensions that run outside the server process. Out-of-process extensions
// are standalone binaries dispensing a server plugin over local RPC; Atrium
// discovers them through an extension.json manifest and registers the
// manifest's type name so installed apps can declare it.
//
// # Getting Started
//
// To create an extension, implement the ServerPlugin interface and serve it
// from your main function:
//
//	type AuditPlugin struct{}
//
//	func (p *AuditPlugin) PluginName() string { return "audit" }
//
//	func (p *AuditPlugin) Features() []string { return nil }
//
//	func (p *AuditPlugin) Initialize(ctx context.Context) error {
//		return nil
//	}
//
//	func main() {
//		extensionsdk.Serve(&AuditPlugin{})
//	}
//
// Ship the binary next to an extension.json manifest naming the type apps
// declare:
//
//	{
//	  "id": "acme.audit",
//	  "name": "Audit Plugin",
//	  "version": "1.0.0",
//	  "type_name": "acme.dav.AuditPlugin",
//	  "binary_path": "audit-extension"
//	}
package extensionsdk

import (
	"github.com/atriumhq/atrium/internal/extension/extproc"
	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// ServerPlugin is a generic server plugin hooked into the DAV request
// pipeline during bootstrap.
type ServerPlugin = sdk.ServerPlugin

// Collection is a node mounted under the server's root tree.
type Collection = sdk.Collection

// AddressBookProvider contributes address books to the CardDAV home of a
// principal.
type AddressBookProvider = sdk.AddressBookProvider

// CalendarProvider contributes calendars to the CalDAV home of a principal.
type CalendarProvider = sdk.CalendarProvider

// Category identifies one of the four extension categories.
type Category = sdk.Category

// Factory creates extension instances.
type Factory = sdk.Factory

// Extension categories.
const (
	CategoryPlugin      = sdk.CategoryPlugin
	CategoryCollection  = sdk.CategoryCollection
	CategoryAddressBook = sdk.CategoryAddressBook
	CategoryCalendar    = sdk.CategoryCalendar
)

// Serve starts the plugin server for an out-of-process extension.
// This should be called from the main function of an extension binary;
// it blocks until the host disconnects.
func Serve(impl ServerPlugin) {
	extproc.Serve(impl)
}
