package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/extension/sdk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// stubContainer resolves from a fixed instance map and records every lookup.
type stubContainer struct {
	instances map[string]any
	errs      map[string]error
	calls     []string
}

func (c *stubContainer) Resolve(name string) (any, error) {
	c.calls = append(c.calls, name)
	if err, ok := c.errs[name]; ok {
		return nil, err
	}
	if instance, ok := c.instances[name]; ok {
		return instance, nil
	}
	return nil, fmt.Errorf("resolve %q: %w", name, sdk.ErrNotRegistered)
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("container hit wins", func(t *testing.T) {
		container := &stubContainer{instances: map[string]any{"acme.dav.Plugin": "injected"}}
		factories := NewFactories()
		factoryCalls := 0
		require.NoError(t, factories.Register("acme.dav.Plugin", func() (any, error) {
			factoryCalls++
			return "constructed", nil
		}))
		resolver := NewResolver(container, factories, testLogger())

		instance, err := resolver.Resolve("acme.dav.Plugin")

		require.NoError(t, err)
		assert.Equal(t, "injected", instance)
		assert.Zero(t, factoryCalls, "factory must not run when the container resolves")
	})

	t.Run("missing registration falls back to factory", func(t *testing.T) {
		container := &stubContainer{}
		factories := NewFactories()
		require.NoError(t, factories.Register("acme.dav.Plugin", func() (any, error) {
			return "constructed", nil
		}))
		resolver := NewResolver(container, factories, testLogger())

		instance, err := resolver.Resolve("acme.dav.Plugin")

		require.NoError(t, err)
		assert.Equal(t, "constructed", instance)
		assert.Equal(t, []string{"acme.dav.Plugin"}, container.calls)
	})

	t.Run("wrapped not-registered error still falls back", func(t *testing.T) {
		container := &stubContainer{errs: map[string]error{
			"acme.dav.Plugin": fmt.Errorf("lookup in app scope: %w", sdk.ErrNotRegistered),
		}}
		factories := NewFactories()
		require.NoError(t, factories.Register("acme.dav.Plugin", func() (any, error) {
			return "constructed", nil
		}))
		resolver := NewResolver(container, factories, testLogger())

		instance, err := resolver.Resolve("acme.dav.Plugin")

		require.NoError(t, err)
		assert.Equal(t, "constructed", instance)
	})

	t.Run("unknown everywhere fails with UnknownTypeError", func(t *testing.T) {
		resolver := NewResolver(&stubContainer{}, NewFactories(), testLogger())

		_, err := resolver.Resolve("acme.dav.Ghost")

		require.Error(t, err)
		assert.True(t, sdk.IsUnknownType(err))
		assert.Contains(t, err.Error(), "acme.dav.Ghost")
	})

	t.Run("other container errors propagate verbatim", func(t *testing.T) {
		errContainerDown := errors.New("container down")
		container := &stubContainer{errs: map[string]error{"acme.dav.Plugin": errContainerDown}}
		factories := NewFactories()
		factoryCalls := 0
		require.NoError(t, factories.Register("acme.dav.Plugin", func() (any, error) {
			factoryCalls++
			return "constructed", nil
		}))
		resolver := NewResolver(container, factories, testLogger())

		_, err := resolver.Resolve("acme.dav.Plugin")

		require.Error(t, err)
		assert.ErrorIs(t, err, errContainerDown)
		assert.EqualError(t, err, "container down")
		assert.Zero(t, factoryCalls, "real container failures must not trigger the fallback")
	})

	t.Run("constructor failure propagates wrapped", func(t *testing.T) {
		errBoom := errors.New("missing credentials")
		factories := NewFactories()
		require.NoError(t, factories.Register("acme.dav.Plugin", func() (any, error) {
			return nil, errBoom
		}))
		resolver := NewResolver(&stubContainer{}, factories, testLogger())

		_, err := resolver.Resolve("acme.dav.Plugin")

		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "acme.dav.Plugin")
	})
}

func TestNewResolver(t *testing.T) {
	t.Run("defaults nil logger", func(t *testing.T) {
		resolver := NewResolver(&stubContainer{}, NewFactories(), nil)

		require.NotNil(t, resolver)
		assert.NotNil(t, resolver.logger)
	})
}
