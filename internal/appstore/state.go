package appstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atriumhq/atrium/internal/extension/appinfo"
)

// InstallRecord is one row of app install state.
type InstallRecord struct {
	// ID is the install record's unique identifier.
	ID uuid.UUID

	// AppID is the installed app's identifier.
	AppID string

	// Version is the installed version.
	Version string

	// Types mirrors the capability markers from the app descriptor at
	// install time.
	Types []string

	// Enabled controls whether the app participates in extension population.
	Enabled bool

	// InstalledAt is when the app was installed.
	InstalledAt time.Time

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
}

// NewInstallRecord creates an install record for an app descriptor.
// New installs start enabled.
func NewInstallRecord(info *appinfo.Info) *InstallRecord {
	now := time.Now().UTC()
	return &InstallRecord{
		ID:          uuid.New(),
		AppID:       info.ID,
		Version:     info.Version,
		Types:       info.Types,
		Enabled:     true,
		InstalledAt: now,
		UpdatedAt:   now,
	}
}

// StateRepository persists app install state.
type StateRepository interface {
	// Save upserts an install record by app ID.
	Save(ctx context.Context, record *InstallRecord) error

	// Find returns the install record for an app, or ErrAppNotFound.
	Find(ctx context.Context, appID string) (*InstallRecord, error)

	// List returns all install records ordered by app ID.
	List(ctx context.Context) ([]*InstallRecord, error)

	// ListEnabled returns the enabled app IDs ordered by app ID.
	ListEnabled(ctx context.Context) ([]string, error)

	// SetEnabled flips the enabled flag for an app.
	SetEnabled(ctx context.Context, appID string, enabled bool) error

	// Delete removes an install record.
	Delete(ctx context.Context, appID string) error
}

// StateStore restricts a descriptor store to the apps an install-state
// repository marks enabled. Descriptors still come from the underlying store;
// the repository only decides which apps exist.
type StateStore struct {
	store  Store
	state  StateRepository
	logger *slog.Logger
}

// NewStateStore creates a state-aware store.
func NewStateStore(store Store, state StateRepository, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{
		store:  store,
		state:  state,
		logger: logger,
	}
}

// ListInstalled returns the enabled apps that still have a readable
// descriptor. An enabled app whose files are gone is logged and dropped
// rather than poisoning registry population.
func (s *StateStore) ListInstalled(ctx context.Context) ([]string, error) {
	enabled, err := s.state.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing enabled apps: %w", err)
	}

	apps := make([]string, 0, len(enabled))
	for _, appID := range enabled {
		if _, err := s.store.Info(ctx, appID); err != nil {
			s.logger.Warn("enabled app has no readable descriptor",
				"app", appID,
				"error", err,
			)
			continue
		}
		apps = append(apps, appID)
	}

	return apps, nil
}

// Info returns the descriptor of an installed app.
func (s *StateStore) Info(ctx context.Context, appID string) (*appinfo.Info, error) {
	return s.store.Info(ctx, appID)
}

// Sync reconciles install state with the apps present on disk: apps found on
// disk but unknown to the repository are recorded as new installs, and
// records whose version no longer matches the descriptor are updated.
// Existing enabled flags are preserved. The returned records are the new
// installs, in disk order.
func (s *StateStore) Sync(ctx context.Context) ([]*InstallRecord, error) {
	apps, err := s.store.ListInstalled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing apps on disk: %w", err)
	}

	var installed []*InstallRecord
	for _, appID := range apps {
		info, err := s.store.Info(ctx, appID)
		if err != nil {
			return nil, fmt.Errorf("loading descriptor for app %q: %w", appID, err)
		}

		record, err := s.state.Find(ctx, appID)
		switch {
		case IsAppNotFound(err):
			record = NewInstallRecord(info)
			if err := s.state.Save(ctx, record); err != nil {
				return nil, fmt.Errorf("recording install of app %q: %w", appID, err)
			}
			installed = append(installed, record)
			s.logger.Info("recorded new app install",
				"app", appID,
				"version", info.Version,
			)
		case err != nil:
			return nil, fmt.Errorf("looking up install state for app %q: %w", appID, err)
		case record.Version != info.Version:
			record.Version = info.Version
			record.Types = info.Types
			record.UpdatedAt = time.Now().UTC()
			if err := s.state.Save(ctx, record); err != nil {
				return nil, fmt.Errorf("updating install of app %q: %w", appID, err)
			}
			s.logger.Info("recorded app update",
				"app", appID,
				"version", info.Version,
			)
		}
	}

	return installed, nil
}
