package builtin

import (
	"context"
	"sync/atomic"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// SyncPlugin advertises collection synchronization (RFC 6578) support to DAV
// clients. The host includes its feature tokens in the DAV compliance header.
type SyncPlugin struct {
	initialized atomic.Bool
}

// NewSyncPlugin creates the sync plugin.
func NewSyncPlugin() *SyncPlugin {
	return &SyncPlugin{}
}

// PluginName returns the plugin's unique name.
func (p *SyncPlugin) PluginName() string {
	return "sync"
}

// Features returns the DAV compliance tokens the plugin advertises.
func (p *SyncPlugin) Features() []string {
	return []string{"sync-collection"}
}

// Initialize prepares the plugin for serving. Safe to call once.
func (p *SyncPlugin) Initialize(_ context.Context) error {
	p.initialized.Store(true)
	return nil
}

// Initialized reports whether the host has initialized the plugin.
func (p *SyncPlugin) Initialized() bool {
	return p.initialized.Load()
}

var _ sdk.ServerPlugin = (*SyncPlugin)(nil)
