package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string
	CacheTTL time.Duration

	// RabbitMQ
	RabbitMQURL string

	// HTTP
	HTTPAddr string

	// Apps
	AppsPaths       []string
	ExtensionsPaths []string
	SyncOnStart     bool

	// Catalog
	CatalogURL          string
	CatalogTokenURL     string
	CatalogClientID     string
	CatalogClientSecret string

	// Remote DAV accounts (for the remote calendar/address book providers)
	RemoteCalDAVURL       string
	RemoteCalDAVUsername  string
	RemoteCalDAVPassword  string
	RemoteCardDAVURL      string
	RemoteCardDAVUsername string
	RemoteCardDAVPassword string
}

// Load builds the configuration from ATRIUM_* environment variables.
// Values from a .env file backfill the environment when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("ATRIUM_ENV", "development"),
		LogLevel:  getEnv("ATRIUM_LOG_LEVEL", "info"),
		LogFormat: getEnv("ATRIUM_LOG_FORMAT", ""),

		// An empty database URL selects the embedded SQLite state store.
		DatabaseURL: getEnv("ATRIUM_DATABASE_URL", ""),

		RedisURL: getEnv("ATRIUM_REDIS_URL", ""),
		CacheTTL: getDurationEnv("ATRIUM_CACHE_TTL", 10*time.Minute),

		RabbitMQURL: getEnv("ATRIUM_RABBITMQ_URL", ""),

		HTTPAddr: getEnv("ATRIUM_HTTP_ADDR", "0.0.0.0:8080"),

		AppsPaths:       getPathListEnv("ATRIUM_APPS_PATH"),
		ExtensionsPaths: getPathListEnv("ATRIUM_EXTENSION_PATH"),
		SyncOnStart:     getBoolEnv("ATRIUM_SYNC_ON_START", true),

		CatalogURL:          getEnv("ATRIUM_CATALOG_URL", "https://apps.atrium.dev"),
		CatalogTokenURL:     getEnv("ATRIUM_CATALOG_TOKEN_URL", ""),
		CatalogClientID:     getEnv("ATRIUM_CATALOG_CLIENT_ID", ""),
		CatalogClientSecret: getEnv("ATRIUM_CATALOG_CLIENT_SECRET", ""),

		RemoteCalDAVURL:       getEnv("ATRIUM_REMOTE_CALDAV_URL", ""),
		RemoteCalDAVUsername:  getEnv("ATRIUM_REMOTE_CALDAV_USERNAME", ""),
		RemoteCalDAVPassword:  getEnv("ATRIUM_REMOTE_CALDAV_PASSWORD", ""),
		RemoteCardDAVURL:      getEnv("ATRIUM_REMOTE_CARDDAV_URL", ""),
		RemoteCardDAVUsername: getEnv("ATRIUM_REMOTE_CARDDAV_USERNAME", ""),
		RemoteCardDAVPassword: getEnv("ATRIUM_REMOTE_CARDDAV_PASSWORD", ""),
	}

	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDurationEnv falls back on unset or unparseable values.
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

// getBoolEnv falls back on unset or unparseable values.
func getBoolEnv(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

// getPathListEnv splits a PATH-style list on the platform separator.
func getPathListEnv(key string) []string {
	var paths []string
	for _, p := range filepath.SplitList(os.Getenv(key)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
