// Package appinfo models the descriptor installed apps ship and extracts
// DAV extension declarations from its metadata tree.
package appinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// TypeDAV is the capability marker an app carries in its Types list when it
// participates in the DAV extension domain. Apps without it are skipped
// entirely during registry population.
const TypeDAV = "dav"

// DefaultFilename is the descriptor filename inside an app directory.
const DefaultFilename = "appinfo.json"

// Info describes one installed app.
type Info struct {
	// ID is the app's unique identifier (e.g., "contacts").
	ID string `json:"id"`

	// Name is a human-readable name.
	Name string `json:"name"`

	// Version is the semantic version (e.g., "1.0.0").
	Version string `json:"version"`

	// Types lists the capability markers the app carries.
	Types []string `json:"types,omitempty"`

	// Extra is the app-authored metadata tree. Its shape is untrusted;
	// extraction tolerates anything it finds here.
	Extra map[string]any `json:"extra,omitempty"`
}

// Load reads and validates an app descriptor from a file.
func Load(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read app descriptor: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse app descriptor: %w", err)
	}

	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app descriptor: %w", err)
	}

	return &info, nil
}

// Validate validates the descriptor fields.
func (i *Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.Version == "" {
		return fmt.Errorf("version is required")
	}
	return nil
}

// HasType reports whether the app carries the given capability marker.
func (i *Info) HasType(marker string) bool {
	return slices.Contains(i.Types, marker)
}

// segments maps each category to the path of its declarations inside Extra.
var segments = map[sdk.Category][]string{
	sdk.CategoryPlugin:      {"dav", "plugins", "plugin"},
	sdk.CategoryCollection:  {"dav", "collections", "collection"},
	sdk.CategoryAddressBook: {"dav", "address-book-plugins", "plugin"},
	sdk.CategoryCalendar:    {"dav", "calendar-plugins", "plugin"},
}

// Declarations extracts the declared type names for one category from the
// app's metadata tree, in declaration order. An absent or malformed path
// yields an empty result, never an error: apps that declare nothing and apps
// with broken metadata look the same to the caller.
func (i *Info) Declarations(category sdk.Category) []string {
	path, ok := segments[category]
	if !ok {
		return nil
	}

	var node any = i.Extra
	for _, segment := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		if node, ok = m[segment]; !ok {
			return nil
		}
	}

	return normalize(node)
}

// normalize coerces a terminal declaration value into a list of type names.
// A scalar string declares one type; a list contributes its string elements
// in order, skipping anything that is not a string. Every other shape
// declares nothing.
func normalize(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		names := make([]string, 0, len(v))
		for _, elem := range v {
			if name, ok := elem.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}
