package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atriumhq/atrium/internal/appstore"
)

// SQLiteStateRepository implements appstore.StateRepository using SQLite.
// Types are stored as a JSON array and timestamps as RFC 3339 strings,
// since SQLite has no native array or timestamp types.
type SQLiteStateRepository struct {
	db *sql.DB
}

// NewSQLiteStateRepository creates a new SQLite install-state repository.
func NewSQLiteStateRepository(db *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{db: db}
}

// EnsureSchema creates the install-state table if it does not exist. Rows key
// on app_id: the upsert in Save names app_id as its conflict target, and a
// second uniqueness constraint would be checked in undefined order against it.
func (r *SQLiteStateRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS app_installs (
			app_id TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			version TEXT NOT NULL,
			types TEXT NOT NULL DEFAULT '[]',
			enabled INTEGER NOT NULL DEFAULT 1,
			installed_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating app_installs table: %w", err)
	}
	return nil
}

// Save upserts an install record by app ID.
func (r *SQLiteStateRepository) Save(ctx context.Context, record *appstore.InstallRecord) error {
	types, err := json.Marshal(record.Types)
	if err != nil {
		return fmt.Errorf("encoding types: %w", err)
	}

	query := `
		INSERT INTO app_installs (
			id, app_id, version, types, enabled, installed_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (app_id) DO UPDATE SET
			version = excluded.version,
			types = excluded.types,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID.String(),
		record.AppID,
		record.Version,
		string(types),
		record.Enabled,
		record.InstalledAt.UTC().Format(time.RFC3339),
		record.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Find returns the install record for an app.
func (r *SQLiteStateRepository) Find(ctx context.Context, appID string) (*appstore.InstallRecord, error) {
	query := `
		SELECT id, app_id, version, types, enabled, installed_at, updated_at
		FROM app_installs
		WHERE app_id = ?
	`

	record, err := r.scanRecord(r.db.QueryRowContext(ctx, query, appID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
		}
		return nil, err
	}
	return record, nil
}

// List returns all install records ordered by app ID.
func (r *SQLiteStateRepository) List(ctx context.Context) ([]*appstore.InstallRecord, error) {
	query := `
		SELECT id, app_id, version, types, enabled, installed_at, updated_at
		FROM app_installs
		ORDER BY app_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*appstore.InstallRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListEnabled returns the enabled app IDs ordered by app ID.
func (r *SQLiteStateRepository) ListEnabled(ctx context.Context) ([]string, error) {
	query := `
		SELECT app_id
		FROM app_installs
		WHERE enabled = 1
		ORDER BY app_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetEnabled flips the enabled flag for an app.
func (r *SQLiteStateRepository) SetEnabled(ctx context.Context, appID string, enabled bool) error {
	query := `
		UPDATE app_installs
		SET enabled = ?, updated_at = ?
		WHERE app_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, enabled, time.Now().UTC().Format(time.RFC3339), appID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
	}
	return nil
}

// Delete removes an install record.
func (r *SQLiteStateRepository) Delete(ctx context.Context, appID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM app_installs WHERE app_id = ?`, appID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
	}
	return nil
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one install record from a row.
func (r *SQLiteStateRepository) scanRecord(row rowScanner) (*appstore.InstallRecord, error) {
	var (
		id          string
		appID       string
		version     string
		types       string
		enabled     bool
		installedAt string
		updatedAt   string
	)

	if err := row.Scan(&id, &appID, &version, &types, &enabled, &installedAt, &updatedAt); err != nil {
		return nil, err
	}

	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing record ID: %w", err)
	}

	var markers []string
	if err := json.Unmarshal([]byte(types), &markers); err != nil {
		return nil, fmt.Errorf("decoding types: %w", err)
	}

	installed, err := time.Parse(time.RFC3339, installedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing installed_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &appstore.InstallRecord{
		ID:          recordID,
		AppID:       appID,
		Version:     version,
		Types:       markers,
		Enabled:     enabled,
		InstalledAt: installed,
		UpdatedAt:   updated,
	}, nil
}
