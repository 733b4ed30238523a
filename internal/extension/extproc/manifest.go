// Package extproc loads generic server plugins that run outside the host
// process. Each external extension ships a manifest and a binary; the loader
// launches the binary through HashiCorp go-plugin and registers a shim under
// the manifest's declared type name, so registry population resolves external
// plugins the same way it resolves compiled-in ones.
//
// Only generic server plugins cross the process boundary. Collections and
// providers stay in-process.
package extproc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultManifestFilename names the manifest file inside an extension
// directory.
const DefaultManifestFilename = "extension.json"

// Manifest describes an external extension and how to launch it.
type Manifest struct {
	// ID uniquely identifies the extension (e.g. "acme.audit").
	ID string `json:"id"`

	// Name is shown in listings.
	Name string `json:"name"`

	// Version is the extension's semantic version.
	Version string `json:"version"`

	// TypeName is the declared type name apps reference in their
	// descriptors (e.g. "acme.dav.AuditPlugin"). The loader registers the
	// dispensed shim under this name.
	TypeName string `json:"type_name"`

	// BinaryPath locates the plugin binary, relative to the manifest
	// unless absolute.
	BinaryPath string `json:"binary_path"`

	// Checksum is the expected "sha256:..." digest of the binary.
	Checksum string `json:"checksum,omitempty"`

	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`

	dir string
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	m.dir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks that every field the loader depends on is present.
func (m *Manifest) Validate() error {
	required := []struct {
		value string
		field string
	}{
		{m.ID, "id"},
		{m.Name, "name"},
		{m.Version, "version"},
		{m.TypeName, "type_name"},
		{m.BinaryPath, "binary_path"},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.field)
		}
	}
	return nil
}

// BinaryAbsPath resolves the plugin binary location against the manifest
// directory.
func (m *Manifest) BinaryAbsPath() string {
	if filepath.IsAbs(m.BinaryPath) {
		return m.BinaryPath
	}
	return filepath.Join(m.dir, m.BinaryPath)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
