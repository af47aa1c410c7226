package power

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists accumulated energy totals so they survive restarts.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// LoadTotals returns every persisted total keyed by source.
	LoadTotals(ctx context.Context) (map[Key]float64, error)

	// SaveTotals upserts the given totals.
	SaveTotals(ctx context.Context, totals map[Key]float64) error
}

// SQLiteStore implements Store using the energy_totals table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// LoadTotals implements Store.
func (s *SQLiteStore) LoadTotals(ctx context.Context) (map[Key]float64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, kwh FROM energy_totals")
	if err != nil {
		return nil, fmt.Errorf("querying energy totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[Key]float64)
	for rows.Next() {
		var source string
		var kwh float64
		if err := rows.Scan(&source, &kwh); err != nil {
			return nil, fmt.Errorf("scanning energy total: %w", err)
		}
		key, err := ParseKey(source)
		if err != nil {
			return nil, err
		}
		totals[key] = kwh
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating energy totals: %w", err)
	}
	return totals, nil
}

// SaveTotals implements Store. All totals are written in one transaction.
func (s *SQLiteStore) SaveTotals(ctx context.Context, totals map[Key]float64) error {
	if len(totals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO energy_totals (source, kwh, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET kwh = excluded.kwh, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	updatedAt := s.now().UTC().Format(time.RFC3339)
	for key, kwh := range totals {
		if _, err := stmt.ExecContext(ctx, key.String(), kwh, updatedAt); err != nil {
			return fmt.Errorf("saving energy total %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing energy totals: %w", err)
	}
	return nil
}
