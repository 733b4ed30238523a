package extproc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Discovery finds external extensions on the filesystem.
type Discovery struct {
	// SearchPaths are directories to search for extensions.
	SearchPaths []string

	logger *slog.Logger
}

// NewDiscovery creates an extension discovery service.
func NewDiscovery(searchPaths []string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		SearchPaths: searchPaths,
		logger:      logger,
	}
}

// DiscoveredExtension is an extension directory with its loaded manifest.
type DiscoveredExtension struct {
	// Path is the directory containing the extension.
	Path string

	// Manifest is the loaded extension manifest.
	Manifest *Manifest
}

// Discover searches for extension manifests in all search paths.
// A broken manifest is logged and skipped; duplicates by ID keep the first.
func (d *Discovery) Discover() ([]DiscoveredExtension, error) {
	var extensions []DiscoveredExtension
	seen := make(map[string]bool)

	for _, searchPath := range d.SearchPaths {
		discovered, err := d.discoverInPath(searchPath)
		if err != nil {
			d.logger.Warn("failed to search extension path",
				"path", searchPath,
				"error", err,
			)
			continue
		}

		for _, ext := range discovered {
			if seen[ext.Manifest.ID] {
				d.logger.Warn("duplicate extension ID found",
					"extension_id", ext.Manifest.ID,
					"path", ext.Path,
				)
				continue
			}
			seen[ext.Manifest.ID] = true
			extensions = append(extensions, ext)
		}
	}

	d.logger.Info("extension discovery complete",
		"found", len(extensions),
	)

	return extensions, nil
}

// discoverInPath searches for extensions in a single directory.
func (d *Discovery) discoverInPath(searchPath string) ([]DiscoveredExtension, error) {
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

	var extensions []DiscoveredExtension
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		extensionDir := filepath.Join(searchPath, entry.Name())
		manifestPath := filepath.Join(extensionDir, DefaultManifestFilename)

		if _, err := os.Stat(manifestPath); err != nil {
			continue // No manifest, not an extension directory
		}

		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			d.logger.Warn("failed to load manifest",
				"path", manifestPath,
				"error", err,
			)
			continue
		}

		extensions = append(extensions, DiscoveredExtension{
			Path:     extensionDir,
			Manifest: manifest,
		})

		d.logger.Debug("discovered extension",
			"extension_id", manifest.ID,
			"path", extensionDir,
		)
	}

	return extensions, nil
}

// DefaultSearchPaths returns the default extension search paths.
func DefaultSearchPaths() []string {
	paths := []string{}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append(paths, filepath.Join(home, ".atrium", "extensions"))
	}

	paths = append(paths, "/usr/local/share/atrium/extensions")

	if envPath := os.Getenv("ATRIUM_EXTENSION_PATH"); envPath != "" {
		paths = append([]string{envPath}, paths...)
	}

	return paths
}
