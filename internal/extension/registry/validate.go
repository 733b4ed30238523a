package registry

import (
	"reflect"

	"github.com/atriumhq/atrium/internal/extension/resolve"
	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// conform asserts that a resolved instance satisfies capability T. The error
// names both the instance's concrete type and the capability, so an operator
// can tell from the log which declaration is broken and how.
func conform[T any](declaration string, instance any) (T, error) {
	typed, ok := instance.(T)
	if !ok {
		var zero T
		return zero, sdk.NewCapabilityError(declaration, instance, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

// resolveAs resolves a declaration and validates the instance against
// capability T. Resolution errors pass through untouched.
func resolveAs[T any](resolver *resolve.Resolver, declaration string) (T, error) {
	instance, err := resolver.Resolve(declaration)
	if err != nil {
		var zero T
		return zero, err
	}
	return conform[T](declaration, instance)
}
