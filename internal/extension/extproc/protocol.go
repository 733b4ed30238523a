package extproc

import (
	"context"
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// Handshake verifies that host and extension binaries speak the same
// protocol. Both sides must use the same configuration.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ATRIUM_DAV_EXTENSION",
	MagicCookieValue: "atrium-dav-v1",
}

// DispenseName is the name the server plugin is dispensed under.
const DispenseName = "server_plugin"

// PluginMap is the map of plugins the host can dispense.
var PluginMap = map[string]plugin.Plugin{
	DispenseName: &ServerPluginPlugin{},
}

// Serve runs an external extension's plugin half. Extension binaries call
// this from main with their sdk.ServerPlugin implementation.
func Serve(impl sdk.ServerPlugin) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			DispenseName: &ServerPluginPlugin{Impl: impl},
		},
	})
}

// ServerPluginPlugin is the plugin.Plugin implementation carrying a
// sdk.ServerPlugin across the process boundary over net/rpc.
type ServerPluginPlugin struct {
	// Impl is the concrete implementation (extension-side).
	Impl sdk.ServerPlugin
}

// Server returns the RPC server for the extension side.
func (p *ServerPluginPlugin) Server(*plugin.MuxBroker) (any, error) {
	return &serverPluginRPCServer{impl: p.Impl}, nil
}

// Client returns the RPC client shim for the host side.
func (p *ServerPluginPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &serverPluginRPC{client: c}, nil
}

// serverPluginRPC is the host-side shim implementing sdk.ServerPlugin over RPC.
type serverPluginRPC struct {
	client *rpc.Client
}

func (p *serverPluginRPC) PluginName() string {
	var resp string
	if err := p.client.Call("Plugin.PluginName", new(any), &resp); err != nil {
		return ""
	}
	return resp
}

func (p *serverPluginRPC) Features() []string {
	var resp []string
	if err := p.client.Call("Plugin.Features", new(any), &resp); err != nil {
		return nil
	}
	return resp
}

// Initialize forwards initialization to the extension process. The context
// does not cross the process boundary.
func (p *serverPluginRPC) Initialize(_ context.Context) error {
	return p.client.Call("Plugin.Initialize", new(any), new(struct{}))
}

var _ sdk.ServerPlugin = (*serverPluginRPC)(nil)

// serverPluginRPCServer serves a sdk.ServerPlugin to the host.
type serverPluginRPCServer struct {
	impl sdk.ServerPlugin
}

func (s *serverPluginRPCServer) PluginName(_ any, resp *string) error {
	*resp = s.impl.PluginName()
	return nil
}

func (s *serverPluginRPCServer) Features(_ any, resp *[]string) error {
	*resp = s.impl.Features()
	return nil
}

func (s *serverPluginRPCServer) Initialize(_ any, _ *struct{}) error {
	return s.impl.Initialize(context.Background())
}
