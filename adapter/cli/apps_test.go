package cli

import (
	"context"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium/internal/appstore"
	"github.com/atriumhq/atrium/internal/platform/eventbus"
)

type fakeStateRepo struct {
	records map[string]*appstore.InstallRecord
	setErr  error
}

func newFakeStateRepo(appIDs ...string) *fakeStateRepo {
	records := make(map[string]*appstore.InstallRecord, len(appIDs))
	for _, id := range appIDs {
		records[id] = &appstore.InstallRecord{AppID: id, Version: "1.0.0", Enabled: true}
	}
	return &fakeStateRepo{records: records}
}

func (f *fakeStateRepo) Save(_ context.Context, record *appstore.InstallRecord) error {
	f.records[record.AppID] = record
	return nil
}

func (f *fakeStateRepo) Find(_ context.Context, appID string) (*appstore.InstallRecord, error) {
	record, ok := f.records[appID]
	if !ok {
		return nil, appstore.ErrAppNotFound
	}
	return record, nil
}

func (f *fakeStateRepo) List(_ context.Context) ([]*appstore.InstallRecord, error) {
	records := make([]*appstore.InstallRecord, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeStateRepo) ListEnabled(_ context.Context) ([]string, error) {
	var ids []string
	for id, record := range f.records {
		if record.Enabled {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStateRepo) SetEnabled(_ context.Context, appID string, enabled bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	record, ok := f.records[appID]
	if !ok {
		return fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
	}
	record.Enabled = enabled
	return nil
}

func (f *fakeStateRepo) Delete(_ context.Context, appID string) error {
	delete(f.records, appID)
	return nil
}

// capturingPublisher records lifecycle events commands publish.
type capturingPublisher struct {
	keys     []string
	payloads [][]byte
	err      error
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestSetAppEnabled(t *testing.T) {
	t.Cleanup(func() { SetApp(nil) })

	t.Run("enables an installed app", func(t *testing.T) {
		repo := newFakeStateRepo("com.acme.crm")
		repo.records["com.acme.crm"].Enabled = false
		SetApp(&App{State: repo})

		err := setAppEnabled(testCommand(), "com.acme.crm", true)

		require.NoError(t, err)
		assert.True(t, repo.records["com.acme.crm"].Enabled)
	})

	t.Run("disables an installed app", func(t *testing.T) {
		repo := newFakeStateRepo("com.acme.crm")
		SetApp(&App{State: repo})

		err := setAppEnabled(testCommand(), "com.acme.crm", false)

		require.NoError(t, err)
		assert.False(t, repo.records["com.acme.crm"].Enabled)
	})

	t.Run("reports unknown apps", func(t *testing.T) {
		SetApp(&App{State: newFakeStateRepo()})

		err := setAppEnabled(testCommand(), "com.acme.ghost", true)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not installed")
	})

	t.Run("requires an initialized app", func(t *testing.T) {
		SetApp(nil)

		err := setAppEnabled(testCommand(), "com.acme.crm", true)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not initialized")
	})

	t.Run("wraps repository failures", func(t *testing.T) {
		repo := newFakeStateRepo("com.acme.crm")
		repo.setErr = fmt.Errorf("connection reset")
		SetApp(&App{State: repo})

		err := setAppEnabled(testCommand(), "com.acme.crm", true)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("publishes a toggle event", func(t *testing.T) {
		repo := newFakeStateRepo("com.acme.crm")
		publisher := &capturingPublisher{}
		SetApp(&App{State: repo, Publisher: publisher})

		require.NoError(t, setAppEnabled(testCommand(), "com.acme.crm", false))

		require.Len(t, publisher.keys, 1)
		assert.Equal(t, eventbus.RoutingKeyAppToggled, publisher.keys[0])
		assert.Contains(t, string(publisher.payloads[0]), `"app_id":"com.acme.crm"`)
		assert.Contains(t, string(publisher.payloads[0]), `"enabled":false`)
	})

	t.Run("broker failures do not fail the command", func(t *testing.T) {
		repo := newFakeStateRepo("com.acme.crm")
		publisher := &capturingPublisher{err: fmt.Errorf("broker down")}
		SetApp(&App{State: repo, Publisher: publisher})

		require.NoError(t, setAppEnabled(testCommand(), "com.acme.crm", false))
		assert.False(t, repo.records["com.acme.crm"].Enabled)
	})
}

func TestFormatAppRow(t *testing.T) {
	tests := []struct {
		name     string
		record   *appstore.InstallRecord
		infoName string
		expected string
	}{
		{
			name: "enabled app with display name and types",
			record: &appstore.InstallRecord{
				AppID:   "com.atrium.contacts",
				Version: "1.4.0",
				Types:   []string{"dav"},
				Enabled: true,
			},
			infoName: "Contacts",
			expected: "  Contacts (com.atrium.contacts) v1.4.0 [enabled]\n    types: dav",
		},
		{
			name: "disabled app falls back to the app ID",
			record: &appstore.InstallRecord{
				AppID:   "com.acme.legacy",
				Version: "0.9.1",
				Enabled: false,
			},
			expected: "  com.acme.legacy (com.acme.legacy) v0.9.1 [disabled]",
		},
		{
			name: "multiple types are comma separated",
			record: &appstore.InstallRecord{
				AppID:   "com.acme.suite",
				Version: "2.0.0",
				Types:   []string{"dav", "files"},
				Enabled: true,
			},
			infoName: "Suite",
			expected: "  Suite (com.acme.suite) v2.0.0 [enabled]\n    types: dav, files",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, formatAppRow(tc.record, tc.infoName))
		})
	}
}
