// Package app wires the platform's dependencies into a single container.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atriumhq/atrium/internal/appstore"
	"github.com/atriumhq/atrium/internal/appstore/catalog"
	"github.com/atriumhq/atrium/internal/appstore/persistence"
	"github.com/atriumhq/atrium/internal/extension/builtin"
	"github.com/atriumhq/atrium/internal/extension/extproc"
	"github.com/atriumhq/atrium/internal/extension/registry"
	"github.com/atriumhq/atrium/internal/extension/resolve"
	"github.com/atriumhq/atrium/internal/extension/sdk"
	"github.com/atriumhq/atrium/internal/platform/database"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
	"github.com/atriumhq/atrium/pkg/config"
	"github.com/atriumhq/atrium/pkg/observability"
)

// Container holds all application dependencies.
//
// It also acts as the injection container consulted first during extension
// resolution: extension types whose constructors need injected dependencies
// resolve through Container.Resolve, everything else falls back to the
// factory table.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Install-state database (one of the two is set, per DBDriver)
	DBDriver database.Driver
	PgPool   *pgxpool.Pool
	SQLiteDB *sql.DB

	// Redis (optional descriptor cache backend)
	RedisClient *redis.Client

	// App store. Store is the layered view the registry reads through:
	// descriptor cache over install state over the on-disk app directories.
	StateRepo  appstore.StateRepository
	DirStore   *appstore.DirStore
	StateStore *appstore.StateStore
	Store      appstore.Store

	// Event publisher
	EventPublisher eventbus.Publisher

	// Extension pipeline
	Factories  *resolve.Factories
	Loader     *extproc.Loader
	Resolver   *resolve.Resolver
	Extensions *registry.Registry

	// Remote app catalog (CLI only, never consulted during population)
	Catalog *catalog.Client

	// Observability
	Health  *observability.HealthRegistry
	Metrics observability.Metrics
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	// Connect the install-state database. An empty URL selects embedded
	// SQLite so local setups need no configuration.
	c.DBDriver = database.DetectDriver(cfg.DatabaseURL)
	switch c.DBDriver {
	case database.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.PgPool = pool

		repo := persistence.NewPostgresStateRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("preparing install-state schema: %w", err)
		}
		c.StateRepo = repo
		logger.Info("connected to database", "driver", c.DBDriver)

	case database.DriverSQLite:
		db, err := database.OpenSQLite(ctx, sqlitePath(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		c.SQLiteDB = db

		repo := persistence.NewSQLiteStateRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("preparing install-state schema: %w", err)
		}
		c.StateRepo = repo
		logger.Info("connected to database", "driver", c.DBDriver)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}

	// App store: descriptors come from the app directories on disk, the
	// install state decides which of them count as installed.
	appPaths := cfg.AppsPaths
	if len(appPaths) == 0 {
		appPaths = appstore.DefaultSearchPaths()
	}
	c.DirStore = appstore.NewDirStore(appPaths, logger)
	c.StateStore = appstore.NewStateStore(c.DirStore, c.StateRepo, logger)

	if cfg.SyncOnStart {
		if _, err := c.StateStore.Sync(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("syncing install state: %w", err)
		}
	}

	// Connect to Redis (optional in development)
	cache := appstore.Cache(appstore.NewNoopCache())
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				c.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, descriptor cache disabled", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					c.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, descriptor cache disabled", "error", err)
			} else {
				c.RedisClient = redisClient
				cache = appstore.NewRedisCache(redisClient, cfg.CacheTTL)
				logger.Info("connected to Redis")
			}
		}
	}
	c.Store = appstore.NewCachedStore(c.StateStore, cache, logger)

	// Create event publisher
	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			if !cfg.IsDevelopment() {
				c.Close()
				return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			c.EventPublisher = publisher
		}
	} else {
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	}

	// Extension factories: stock extensions first, then shims dispensed
	// from external plugin processes. Both must be in place before the
	// registry's first accessor call triggers population.
	c.Factories = resolve.NewFactories()
	if err := builtin.Register(c.Factories); err != nil {
		c.Close()
		return nil, fmt.Errorf("registering stock extensions: %w", err)
	}

	extensionPaths := cfg.ExtensionsPaths
	if len(extensionPaths) == 0 {
		extensionPaths = extproc.DefaultSearchPaths()
	}
	c.Loader = extproc.NewLoader(c.Factories, logger)
	c.Loader.LoadAll(extproc.NewDiscovery(extensionPaths, logger))

	c.Resolver = resolve.NewResolver(c, c.Factories, logger)
	c.Extensions = registry.NewRegistry(c.Store, c.Resolver, logger)

	// Remote app catalog client
	catalogCfg := catalog.DefaultConfig(cfg.CatalogURL)
	catalogCfg.TokenURL = cfg.CatalogTokenURL
	catalogCfg.ClientID = cfg.CatalogClientID
	catalogCfg.ClientSecret = cfg.CatalogClientSecret
	c.Catalog = catalog.NewClient(catalogCfg, logger)

	// Health checks and metrics
	c.Health = observability.NewHealthRegistry()
	switch c.DBDriver {
	case database.DriverPostgres:
		c.Health.Register("database", observability.DatabaseHealthChecker(c.PgPool.Ping))
	case database.DriverSQLite:
		c.Health.Register("database", observability.DatabaseHealthChecker(c.SQLiteDB.PingContext))
	}
	if c.RedisClient != nil {
		c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}
	if rmq, ok := c.EventPublisher.(*eventbus.RabbitMQPublisher); ok {
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(rmq.Ping))
	}

	if cfg.IsDevelopment() {
		c.Metrics = observability.NewInMemoryMetrics()
	} else {
		c.Metrics = observability.NoopMetrics{}
	}

	return c, nil
}

// Resolve implements resolve.Container for the extension types whose
// constructors need injected dependencies. Every other name returns
// sdk.ErrNotRegistered so resolution falls back to the factory table.
func (c *Container) Resolve(name string) (any, error) {
	switch name {
	case builtin.TypeBirthdayCalendar:
		return builtin.NewBirthdayCalendar(builtin.NewSystemAddressBook()), nil

	case builtin.TypeRemoteCalendars:
		if c.Config.RemoteCalDAVURL == "" {
			return nil, fmt.Errorf("extension %q: remote caldav account not configured", name)
		}
		return builtin.NewRemoteCalendarProvider(
			c.Config.RemoteCalDAVURL,
			c.Config.RemoteCalDAVUsername,
			c.Config.RemoteCalDAVPassword,
			c.Logger,
		), nil

	case builtin.TypeRemoteAddressBooks:
		if c.Config.RemoteCardDAVURL == "" {
			return nil, fmt.Errorf("extension %q: remote carddav account not configured", name)
		}
		return builtin.NewRemoteAddressBookProvider(
			c.Config.RemoteCardDAVURL,
			c.Config.RemoteCardDAVUsername,
			c.Config.RemoteCardDAVPassword,
			c.Logger,
		), nil

	default:
		return nil, sdk.ErrNotRegistered
	}
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.Loader != nil {
		c.Loader.UnloadAll()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.PgPool != nil {
		c.PgPool.Close()
		c.Logger.Info("database connection closed")
	}

	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("error closing SQLite database", "error", err)
		} else {
			c.Logger.Info("database connection closed")
		}
	}
}

// sqlitePath strips URL prefixes a SQLite connection string may carry.
// An empty URL resolves to the default path under the user's home.
func sqlitePath(url string) string {
	switch {
	case url == "":
		return ""
	case len(url) > len("sqlite://") && url[:len("sqlite://")] == "sqlite://":
		return url[len("sqlite://"):]
	default:
		return url
	}
}

var _ resolve.Container = (*Container)(nil)
