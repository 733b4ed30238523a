// Package resolve turns declared extension type names into live instances.
// Resolution asks the injection container first; names the container does not
// know fall back to the factory table.
package resolve

import (
	"fmt"
	"log/slog"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// Container is the injection container consulted first during resolution.
// Implementations return sdk.ErrNotRegistered (possibly wrapped) when the
// name has no registration; any other error is a real failure and is never
// reinterpreted.
type Container interface {
	Resolve(name string) (any, error)
}

// Resolver resolves declared type names, container first, factory table second.
type Resolver struct {
	container Container
	factories *Factories
	logger    *slog.Logger
}

// NewResolver creates a resolver over a container and a factory table.
func NewResolver(container Container, factories *Factories, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		container: container,
		factories: factories,
		logger:    logger,
	}
}

// Resolve returns a live instance for a declared type name.
//
// The container is authoritative: an instance it returns already carries its
// injected dependencies. Only a missing registration falls through to the
// factory table. A name neither registered nor constructible fails with
// UnknownTypeError; a constructor failure propagates wrapped.
func (r *Resolver) Resolve(name string) (any, error) {
	instance, err := r.container.Resolve(name)
	if err == nil {
		return instance, nil
	}
	if !sdk.IsNotRegistered(err) {
		return nil, err
	}

	factory, ok := r.factories.Lookup(name)
	if !ok {
		return nil, sdk.NewUnknownTypeError(name)
	}

	r.logger.Debug("resolving extension through factory", "type", name)

	instance, err = factory()
	if err != nil {
		return nil, fmt.Errorf("constructing extension %q: %w", name, err)
	}
	return instance, nil
}
