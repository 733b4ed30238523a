// Package persistence provides database-backed app install state.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/atriumhq/atrium/internal/appstore"
)

// PostgresStateRepository implements appstore.StateRepository using PostgreSQL.
type PostgresStateRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStateRepository creates a new PostgreSQL install-state repository.
func NewPostgresStateRepository(pool *pgxpool.Pool) *PostgresStateRepository {
	return &PostgresStateRepository{pool: pool}
}

// EnsureSchema creates the install-state table if it does not exist.
func (r *PostgresStateRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS app_installs (
			id UUID PRIMARY KEY,
			app_id TEXT NOT NULL UNIQUE,
			version TEXT NOT NULL,
			types TEXT[] NOT NULL DEFAULT '{}',
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			installed_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("creating app_installs table: %w", err)
	}
	return nil
}

// Save upserts an install record by app ID.
func (r *PostgresStateRepository) Save(ctx context.Context, record *appstore.InstallRecord) error {
	query := `
		INSERT INTO app_installs (
			id, app_id, version, types, enabled, installed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (app_id) DO UPDATE SET
			version = EXCLUDED.version,
			types = EXCLUDED.types,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.AppID,
		record.Version,
		pq.Array(record.Types),
		record.Enabled,
		record.InstalledAt,
		record.UpdatedAt,
	)
	return err
}

// Find returns the install record for an app.
func (r *PostgresStateRepository) Find(ctx context.Context, appID string) (*appstore.InstallRecord, error) {
	query := `
		SELECT id, app_id, version, types, enabled, installed_at, updated_at
		FROM app_installs
		WHERE app_id = $1
	`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, appID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
		}
		return nil, err
	}
	return record, nil
}

// List returns all install records ordered by app ID.
func (r *PostgresStateRepository) List(ctx context.Context) ([]*appstore.InstallRecord, error) {
	query := `
		SELECT id, app_id, version, types, enabled, installed_at, updated_at
		FROM app_installs
		ORDER BY app_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*appstore.InstallRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListEnabled returns the enabled app IDs ordered by app ID.
func (r *PostgresStateRepository) ListEnabled(ctx context.Context) ([]string, error) {
	query := `
		SELECT app_id
		FROM app_installs
		WHERE enabled = TRUE
		ORDER BY app_id
	`

	rows, err := r.pool.Query(ctx, query)
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
func (r *PostgresStateRepository) SetEnabled(ctx context.Context, appID string, enabled bool) error {
	query := `
		UPDATE app_installs
		SET enabled = $2, updated_at = NOW()
		WHERE app_id = $1
	`

	result, err := r.pool.Exec(ctx, query, appID, enabled)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
	}
	return nil
}

// Delete removes an install record.
func (r *PostgresStateRepository) Delete(ctx context.Context, appID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM app_installs WHERE app_id = $1`, appID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("app %q: %w", appID, appstore.ErrAppNotFound)
	}
	return nil
}

// scanRecord reads one install record from a row.
func scanRecord(row pgx.Row) (*appstore.InstallRecord, error) {
	record := &appstore.InstallRecord{}
	var types []string

	err := row.Scan(
		&record.ID,
		&record.AppID,
		&record.Version,
		pq.Array(&types),
		&record.Enabled,
		&record.InstalledAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Types = types
	return record, nil
}
