// Package appstore tracks installed apps and serves their descriptors to the
// extension registry.
package appstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/atriumhq/atrium/internal/extension/appinfo"
)

// ErrAppNotFound is returned when an app ID is not installed.
var ErrAppNotFound = errors.New("app not found")

// IsAppNotFound checks if the error is ErrAppNotFound.
func IsAppNotFound(err error) bool {
	return errors.Is(err, ErrAppNotFound)
}

// Store is the source of installed app descriptors consulted during registry
// population.
type Store interface {
	// ListInstalled returns the installed app IDs in a stable order.
	ListInstalled(ctx context.Context) ([]string, error)

	// Info returns the descriptor of an installed app.
	Info(ctx context.Context, appID string) (*appinfo.Info, error)
}

// DirStore serves descriptors from app directories on disk. Each app lives in
// <search path>/<app id>/appinfo.json. When paths overlap, the first search
// path containing an app wins.
type DirStore struct {
	searchPaths []string
	logger      *slog.Logger
}

// NewDirStore creates a store over a list of app directories.
func NewDirStore(searchPaths []string, logger *slog.Logger) *DirStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirStore{
		searchPaths: searchPaths,
		logger:      logger,
	}
}

// ListInstalled returns the IDs of all apps found under the search paths, in
// search-path order and directory order within each path. A directory without
// a readable descriptor is not an app; a broken descriptor is logged and
// skipped so one bad app cannot take the listing down.
func (s *DirStore) ListInstalled(_ context.Context) ([]string, error) {
	var apps []string
	seen := make(map[string]bool)

	for _, searchPath := range s.searchPaths {
		ids, err := s.listInPath(searchPath)
		if err != nil {
			s.logger.Warn("failed to search app path",
				"path", searchPath,
				"error", err,
			)
			continue
		}

		for _, id := range ids {
			if seen[id] {
				s.logger.Warn("duplicate app ID found",
					"app", id,
					"path", searchPath,
				)
				continue
			}
			seen[id] = true
			apps = append(apps, id)
		}
	}

	return apps, nil
}

// listInPath enumerates app directories in a single search path.
func (s *DirStore) listInPath(searchPath string) ([]string, error) {
	info, err := os.Stat(searchPath)
	if os.IsNotExist(err) {
		return nil, nil // Path doesn't exist, skip silently
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", searchPath)
	}

	entries, err := os.ReadDir(searchPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var apps []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		descriptorPath := filepath.Join(searchPath, entry.Name(), appinfo.DefaultFilename)
		if _, err := os.Stat(descriptorPath); err != nil {
			continue // No descriptor, not an app directory
		}

		info, err := appinfo.Load(descriptorPath)
		if err != nil {
			s.logger.Warn("failed to load app descriptor",
				"path", descriptorPath,
				"error", err,
			)
			continue
		}
		if info.ID != entry.Name() {
			s.logger.Warn("descriptor ID does not match app directory",
				"path", descriptorPath,
				"app", info.ID,
			)
			continue
		}

		apps = append(apps, info.ID)
	}

	return apps, nil
}

// Info returns the descriptor of an installed app. The first search path
// containing the app wins.
func (s *DirStore) Info(_ context.Context, appID string) (*appinfo.Info, error) {
	for _, searchPath := range s.searchPaths {
		descriptorPath := filepath.Join(searchPath, appID, appinfo.DefaultFilename)
		if _, err := os.Stat(descriptorPath); err != nil {
			continue
		}

		info, err := appinfo.Load(descriptorPath)
		if err != nil {
			return nil, fmt.Errorf("app %q: %w", appID, err)
		}
		return info, nil
	}

	return nil, fmt.Errorf("app %q: %w", appID, ErrAppNotFound)
}

// DefaultSearchPaths returns the default app directories.
func DefaultSearchPaths() []string {
	paths := []string{}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".atrium", "apps"))
	}

	paths = append(paths, "/usr/local/share/atrium/apps")

	if envPath := os.Getenv("ATRIUM_APPS_PATH"); envPath != "" {
		paths = append([]string{envPath}, paths...)
	}

	return paths
}
