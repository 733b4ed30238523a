// Package database connects the platform to its install-state database.
// PostgreSQL and SQLite are supported; the driver is detected from the
// connection string so local setups need no configuration.
package database

import "strings"

// Driver names a supported database backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string { return string(d) }

// IsValid reports whether d names a supported backend.
func (d Driver) IsValid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

var (
	sqlitePrefixes = []string{"sqlite://", "file:"}
	sqliteSuffixes = []string{".db", ".sqlite", ".sqlite3"}
)

// DetectDriver infers the backend from a connection string. An empty URL
// selects the embedded SQLite store; anything unrecognized is treated as a
// PostgreSQL DSN.
func DetectDriver(url string) Driver {
	if url == "" {
		return DriverSQLite
	}
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres
	}
	for _, prefix := range sqlitePrefixes {
		if strings.HasPrefix(url, prefix) {
			return DriverSQLite
		}
	}
	for _, suffix := range sqliteSuffixes {
		if strings.HasSuffix(url, suffix) {
			return DriverSQLite
		}
	}
	return DriverPostgres
}
