package extproc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

// rpcTestPlugin is a ServerPlugin implementation for exercising the RPC shims.
type rpcTestPlugin struct {
	name        string
	features    []string
	initErr     error
	initialized bool
}

func (p *rpcTestPlugin) PluginName() string { return p.name }

func (p *rpcTestPlugin) Features() []string { return p.features }

func (p *rpcTestPlugin) Initialize(_ context.Context) error {
	if p.initErr != nil {
		return p.initErr
	}
	p.initialized = true
	return nil
}

// newRPCPair wires a host-side shim to an extension-side server over an
// in-memory connection, standing in for the process boundary.
func newRPCPair(t *testing.T, impl sdk.ServerPlugin) *serverPluginRPC {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("Plugin", &serverPluginRPCServer{impl: impl}))

	clientConn, serverConn := net.Pipe()
	go server.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { _ = client.Close() })

	return &serverPluginRPC{client: client}
}

func TestServerPluginRPC(t *testing.T) {
	t.Run("PluginName crosses the boundary", func(t *testing.T) {
		shim := newRPCPair(t, &rpcTestPlugin{name: "audit"})

		assert.Equal(t, "audit", shim.PluginName())
	})

	t.Run("Features cross the boundary", func(t *testing.T) {
		shim := newRPCPair(t, &rpcTestPlugin{
			name:     "audit",
			features: []string{"calendar-audit", "addressbook-audit"},
		})

		assert.Equal(t, []string{"calendar-audit", "addressbook-audit"}, shim.Features())
	})

	t.Run("Initialize runs on the extension side", func(t *testing.T) {
		impl := &rpcTestPlugin{name: "audit"}
		shim := newRPCPair(t, impl)

		err := shim.Initialize(context.Background())

		require.NoError(t, err)
		assert.True(t, impl.initialized)
	})

	t.Run("Initialize error propagates as message", func(t *testing.T) {
		impl := &rpcTestPlugin{name: "audit", initErr: errors.New("backend unavailable")}
		shim := newRPCPair(t, impl)

		err := shim.Initialize(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend unavailable")
		assert.False(t, impl.initialized)
	})

	t.Run("PluginName returns empty after connection closed", func(t *testing.T) {
		shim := newRPCPair(t, &rpcTestPlugin{name: "audit"})
		require.NoError(t, shim.client.Close())

		assert.Empty(t, shim.PluginName())
		assert.Nil(t, shim.Features())
	})
}

func TestServerPluginPlugin(t *testing.T) {
	t.Run("Server wraps the implementation", func(t *testing.T) {
		impl := &rpcTestPlugin{name: "audit"}
		p := &ServerPluginPlugin{Impl: impl}

		raw, err := p.Server(nil)

		require.NoError(t, err)
		server, ok := raw.(*serverPluginRPCServer)
		require.True(t, ok)
		assert.Equal(t, impl, server.impl)
	})

	t.Run("Client returns a ServerPlugin shim", func(t *testing.T) {
		p := &ServerPluginPlugin{}

		raw, err := p.Client(nil, nil)

		require.NoError(t, err)
		_, ok := raw.(sdk.ServerPlugin)
		assert.True(t, ok)
	})
}

func TestHandshake(t *testing.T) {
	t.Run("plugin map dispenses under the expected name", func(t *testing.T) {
		assert.Contains(t, PluginMap, DispenseName)
	})

	t.Run("handshake pins the protocol", func(t *testing.T) {
		assert.Equal(t, uint(1), Handshake.ProtocolVersion)
		assert.Equal(t, "ATRIUM_DAV_EXTENSION", Handshake.MagicCookieKey)
		assert.NotEmpty(t, Handshake.MagicCookieValue)
	})
}
