package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atriumhq/atrium/internal/appstore"
	"github.com/atriumhq/atrium/internal/appstore/catalog"
	"github.com/atriumhq/atrium/internal/extension/registry"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
	"github.com/atriumhq/atrium/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	// App install state
	Store      appstore.Store
	State      appstore.StateRepository
	StateStore *appstore.StateStore

	// Extension registry
	Extensions *registry.Registry

	// Remote app catalog
	Catalog *catalog.Client

	// Serving
	Publisher eventbus.Publisher
	Health    *observability.HealthRegistry
	Metrics   observability.Metrics
	HTTPAddr  string
}

// NewApp creates the CLI application with its core dependencies. Serving
// dependencies are set separately because not every invocation starts the
// server.
func NewApp(
	store appstore.Store,
	state appstore.StateRepository,
	stateStore *appstore.StateStore,
	extensions *registry.Registry,
	catalogClient *catalog.Client,
) *App {
	return &App{
		Store:      store,
		State:      state,
		StateStore: stateStore,
		Extensions: extensions,
		Catalog:    catalogClient,
	}
}

// SetServing wires the dependencies the serve command needs.
func (a *App) SetServing(
	publisher eventbus.Publisher,
	health *observability.HealthRegistry,
	metrics observability.Metrics,
	httpAddr string,
) {
	a.Publisher = publisher
	a.Health = health
	a.Metrics = metrics
	a.HTTPAddr = httpAddr
}

// publishEvent sends a lifecycle event on the platform bus. Commands never
// fail on event delivery; a broker problem is logged and the command output
// stands.
func (a *App) publishEvent(ctx context.Context, routingKey string, fields map[string]any) {
	if a.Publisher == nil {
		return
	}
	log := logger
	if log == nil {
		log = slog.Default()
	}

	event := map[string]any{
		"id":          uuid.NewString(),
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		event[k] = v
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn("failed to encode lifecycle event", "routing_key", routingKey, "error", err)
		return
	}
	if err := a.Publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Warn("failed to publish lifecycle event", "routing_key", routingKey, "error", err)
	}
}

var app *App

// SetApp sets the CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the CLI application instance.
func GetApp() *App {
	return app
}
