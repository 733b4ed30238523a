package sdk

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for common extension error conditions.
var (
	// ErrNotRegistered is returned by a container when the requested name has
	// no registration. It is the only container failure that makes resolution
	// fall back to the factory table.
	ErrNotRegistered = errors.New("not registered")

	// ErrAlreadyRegistered is returned when registering a duplicate factory name.
	ErrAlreadyRegistered = errors.New("already registered")
)

// UnknownTypeError is returned when a declared extension type is neither
// registered in the container nor constructible through a factory.
type UnknownTypeError struct {
	// Declaration is the declared type name that could not be resolved.
	Declaration string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown extension type %q", e.Declaration)
}

// NewUnknownTypeError creates a new unknown type error.
func NewUnknownTypeError(declaration string) *UnknownTypeError {
	return &UnknownTypeError{Declaration: declaration}
}

// CapabilityError is returned when a resolved instance does not satisfy the
// capability its category requires.
type CapabilityError struct {
	// Declaration is the declared type name the instance was resolved from.
	Declaration string

	// Concrete is the runtime type of the resolved instance.
	Concrete string

	// Capability is the interface the category requires.
	Capability string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("extension %q: type %s does not implement %s", e.Declaration, e.Concrete, e.Capability)
}

// NewCapabilityError creates a capability error for a resolved instance.
// The concrete type is taken from the instance, the capability name from the
// required interface type.
func NewCapabilityError(declaration string, instance any, capability reflect.Type) *CapabilityError {
	return &CapabilityError{
		Declaration: declaration,
		Concrete:    fmt.Sprintf("%T", instance),
		Capability:  capability.String(),
	}
}

// IsNotRegistered checks if the error reports a missing container registration.
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// IsUnknownType checks if the error is an UnknownTypeError.
func IsUnknownType(err error) bool {
	var typeErr *UnknownTypeError
	return errors.As(err, &typeErr)
}

// IsCapabilityError checks if the error is a CapabilityError.
func IsCapabilityError(err error) bool {
	var capErr *CapabilityError
	return errors.As(err, &capErr)
}
