package extproc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-plugin"

	"github.com/atriumhq/atrium/internal/extension/resolve"
	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// shellMetaChars are bytes never valid in an extension binary path. Their
// presence means the manifest is smuggling shell syntax toward the exec call.
const shellMetaChars = ";&|$`(){}<>!'\"\n\r\\"

// Loader launches external extension binaries and registers the dispensed
// plugins into the factory table.
type Loader struct {
	factories *resolve.Factories
	logger    *slog.Logger
	clients   map[string]*plugin.Client
}

// NewLoader creates an extension loader registering into a factory table.
func NewLoader(factories *resolve.Factories, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		factories: factories,
		logger:    logger,
		clients:   make(map[string]*plugin.Client),
	}
}

// Load launches an extension binary, dispenses its server plugin, and
// registers a factory under the manifest's declared type name. Must run
// before registry population so the declaration can resolve.
func (l *Loader) Load(manifest *Manifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is required")
	}

	binPath, err := l.validateBinaryPath(manifest.BinaryAbsPath())
	if err != nil {
		return fmt.Errorf("extension %q: binary path validation failed: %w", manifest.ID, err)
	}

	info, err := os.Stat(binPath)
	if err != nil {
		return fmt.Errorf("extension %q: binary not found: %w", manifest.ID, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("extension %q: binary path is not a regular file", manifest.ID)
	}

	if manifest.Checksum != "" {
		if err := l.verifyChecksum(binPath, manifest.Checksum); err != nil {
			return fmt.Errorf("extension %q: checksum verification failed: %w", manifest.ID, err)
		}
	}

	l.logger.Info("loading external extension",
		"extension_id", manifest.ID,
		"binary", binPath,
	)

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap,
		Cmd:             exec.Command(binPath), // #nosec G204 -- binPath was sanitized above
		Logger:          newHclogAdapter(l.logger),
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return fmt.Errorf("extension %q: failed to connect: %w", manifest.ID, err)
	}

	raw, err := rpcClient.Dispense(DispenseName)
	if err != nil {
		client.Kill()
		return fmt.Errorf("extension %q: failed to dispense: %w", manifest.ID, err)
	}

	serverPlugin, ok := raw.(sdk.ServerPlugin)
	if !ok {
		client.Kill()
		return fmt.Errorf("extension %q: plugin does not implement ServerPlugin", manifest.ID)
	}

	// The dispensed shim fronts one running process, so the factory hands
	// out that single instance rather than constructing fresh ones.
	if err := l.factories.Register(manifest.TypeName, func() (any, error) {
		return serverPlugin, nil
	}); err != nil {
		client.Kill()
		return fmt.Errorf("extension %q: %w", manifest.ID, err)
	}

	l.clients[manifest.ID] = client

	l.logger.Info("external extension loaded",
		"extension_id", manifest.ID,
		"type", manifest.TypeName,
	)

	return nil
}

// LoadAll discovers and loads every external extension. A broken extension
// is logged and skipped; it only fails population later if an installed app
// actually declares its type name.
func (l *Loader) LoadAll(discovery *Discovery) {
	discovered, err := discovery.Discover()
	if err != nil {
		l.logger.Warn("extension discovery failed", "error", err)
		return
	}

	for _, ext := range discovered {
		if err := l.Load(ext.Manifest); err != nil {
			l.logger.Warn("failed to load external extension",
				"extension_id", ext.Manifest.ID,
				"path", ext.Path,
				"error", err,
			)
		}
	}
}

// Unload kills an extension process. Unloading an unknown ID is a no-op.
func (l *Loader) Unload(id string) error {
	client, ok := l.clients[id]
	if !ok {
		return nil
	}

	client.Kill()
	delete(l.clients, id)

	l.logger.Info("external extension unloaded", "extension_id", id)
	return nil
}

// UnloadAll kills every extension process the loader started.
func (l *Loader) UnloadAll() {
	for id, client := range l.clients {
		client.Kill()
		l.logger.Info("external extension unloaded", "extension_id", id)
	}
	clear(l.clients)
}

// IsLoaded reports whether an extension process is running under this ID.
func (l *Loader) IsLoaded(id string) bool {
	_, ok := l.clients[id]
	return ok
}

// validateBinaryPath rejects paths that could smuggle commands into the
// exec call and resolves the survivors through any symlinks.
func (l *Loader) validateBinaryPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("binary path is empty")
	}

	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		return "", fmt.Errorf("binary path %s is not absolute", path)
	}
	if i := strings.IndexAny(clean, shellMetaChars); i >= 0 {
		return "", fmt.Errorf("binary path contains shell metacharacter %q: %s", clean[i], path)
	}

	resolved, err := filepath.EvalSymlinks(clean)
	switch {
	case os.IsNotExist(err):
		// Existence gets its own check in Load with a clearer error.
		return clean, nil
	case err != nil:
		return "", fmt.Errorf("resolving binary path: %w", err)
	}

	l.logger.Debug("extension binary path resolved",
		"declared", path,
		"resolved", resolved,
	)
	return resolved, nil
}

// verifyChecksum compares the binary on disk against a manifest checksum
// given as "sha256:HEX" or bare hex.
func (l *Loader) verifyChecksum(path, expected string) error {
	algo, want, prefixed := strings.Cut(expected, ":")
	if !prefixed {
		algo, want = "sha256", expected
	}
	if !strings.EqualFold(algo, "sha256") {
		return fmt.Errorf("unsupported checksum algorithm %q", algo)
	}

	f, err := os.Open(path) // #nosec G304 -- path went through validateBinaryPath
	if err != nil {
		return fmt.Errorf("opening binary: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("hashing binary: %w", err)
	}

	if got := hex.EncodeToString(hasher.Sum(nil)); !strings.EqualFold(got, want) {
		return fmt.Errorf("checksum mismatch: manifest declares %s, binary hashes to %s", want, got)
	}

	l.logger.Debug("extension checksum verified", "path", path)
	return nil
}
