package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/inels-core/internal/inels"
	"github.com/nerrad567/inels-core/internal/infrastructure/database"
)

// Repository persists device definitions.
type Repository interface {
	// Get returns the record for an address key or ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// List returns every record ordered by name.
	List(ctx context.Context) ([]Record, error)

	// Upsert inserts or replaces the record for rec.Key.
	// Returns ErrNameTaken if another key already uses rec.Name.
	Upsert(ctx context.Context, rec *Record) error

	// Delete removes the record for key or returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// InTx runs fn against a repository bound to a single transaction.
	// The writes fn makes are committed when it returns nil and rolled
	// back otherwise.
	InTx(ctx context.Context, fn func(repo Repository) error) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository implements Repository on the devices table.
type SQLiteRepository struct {
	db *database.DB // nil inside a transaction
	q  querier
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, q: db}
}

// InTx runs fn with a repository whose queries share one transaction.
// Calling InTx on that repository again reuses the open transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(repo Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&SQLiteRepository{q: tx})
	})
}

const selectColumns = `address_key, name, node_id, device_id, device_type, created_at, updated_at`

// Get returns the record for an address key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Record, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM devices WHERE address_key = ?`,
		strings.ToUpper(key),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device %s: %w", key, err)
	}
	return rec, nil
}

// List returns every record ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+selectColumns+` FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// Upsert inserts rec or updates the name of the existing row with the same
// key. CreatedAt is preserved on update.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) error {
	var owner string
	err := r.q.QueryRowContext(ctx, `SELECT address_key FROM devices WHERE name = ?`, rec.Name).Scan(&owner)
	switch {
	case err == nil && owner != rec.Key:
		return fmt.Errorf("%w: %q belongs to %s", ErrNameTaken, rec.Name, owner)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking name %q: %w", rec.Name, err)
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO devices (address_key, name, node_id, device_id, device_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address_key) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`,
		rec.Key, rec.Name, rec.NodeID, rec.DeviceID, string(rec.Type),
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes the record for key.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM devices WHERE address_key = ?`, strings.ToUpper(key))
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var typ, created, updated string
	if err := s.Scan(&rec.Key, &rec.Name, &rec.NodeID, &rec.DeviceID, &typ, &created, &updated); err != nil {
		return nil, err
	}
	rec.Type = inels.DeviceType(typ)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created) //nolint:errcheck // written by Upsert
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated) //nolint:errcheck // written by Upsert
	return &rec, nil
}
