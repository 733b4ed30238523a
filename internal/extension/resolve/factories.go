package resolve

import (
	"fmt"
	"sort"
	"sync"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// Factories is the table of constructors for extension types that are not
// wired into the injection container. Compiled-in extensions register here
// during host assembly and the external-process loader registers the shims
// it dispenses; population consults the table through a Resolver.
type Factories struct {
	mu        sync.RWMutex
	factories map[string]sdk.Factory
}

// NewFactories creates an empty factory table.
func NewFactories() *Factories {
	return &Factories{
		factories: make(map[string]sdk.Factory),
	}
}

// Register adds a constructor under a declared type name.
// Registering a name twice returns ErrAlreadyRegistered.
func (f *Factories) Register(name string, factory sdk.Factory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.factories[name]; exists {
		return fmt.Errorf("factory %q: %w", name, sdk.ErrAlreadyRegistered)
	}
	f.factories[name] = factory
	return nil
}

// Lookup returns the constructor registered under name.
func (f *Factories) Lookup(name string) (sdk.Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	factory, ok := f.factories[name]
	return factory, ok
}

// Has reports whether a constructor is registered under name.
func (f *Factories) Has(name string) bool {
	_, ok := f.Lookup(name)
	return ok
}

// Names returns the registered type names in sorted order.
func (f *Factories) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.factories))
	for name := range f.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
