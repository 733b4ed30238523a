// Package eventbus publishes platform lifecycle events to a message broker.
package eventbus

import (
	"context"
)

// Publisher defines the interface for publishing events to a message broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// Routing keys for platform lifecycle events.
const (
	// RoutingKeyExtensionsLoaded is published after the host has registered
	// all extensions during bootstrap.
	RoutingKeyExtensionsLoaded = "platform.extensions.loaded"

	// RoutingKeyAppInstalled is published when an app install is recorded.
	RoutingKeyAppInstalled = "platform.app.installed"

	// RoutingKeyAppToggled is published when an app is enabled or disabled.
	RoutingKeyAppToggled = "platform.app.toggled"
)
