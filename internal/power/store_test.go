package power

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupEnergyTestDB creates an in-memory SQLite database with the energy_totals table.
func setupEnergyTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE energy_totals (
			source TEXT PRIMARY KEY,
			kwh REAL NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := NewSQLiteStore(setupEnergyTestDB(t))
	ctx := context.Background()

	first := map[Key]float64{
		{Kind: SourceHeater, ID: 20}: 1.25,
		{Kind: SourceRoom, ID: 4}:    3.5,
	}
	if err := store.SaveTotals(ctx, first); err != nil {
		t.Fatalf("SaveTotals() error = %v", err)
	}
	if err := store.SaveTotals(ctx, map[Key]float64{{Kind: SourceHeater, ID: 20}: 2.0}); err != nil {
		t.Fatalf("SaveTotals() update error = %v", err)
	}

	got, err := store.LoadTotals(ctx)
	if err != nil {
		t.Fatalf("LoadTotals() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadTotals() returned %d totals, want 2", len(got))
	}
	if got[Key{Kind: SourceHeater, ID: 20}] != 2.0 {
		t.Errorf("heater total = %v, want 2.0", got[Key{Kind: SourceHeater, ID: 20}])
	}
	if got[Key{Kind: SourceRoom, ID: 4}] != 3.5 {
		t.Errorf("room total = %v, want 3.5", got[Key{Kind: SourceRoom, ID: 4}])
	}
}

func TestSQLiteStore_EmptySaveIsNoop(t *testing.T) {
	store := NewSQLiteStore(setupEnergyTestDB(t))
	if err := store.SaveTotals(context.Background(), nil); err != nil {
		t.Fatalf("SaveTotals(nil) error = %v", err)
	}
	got, err := store.LoadTotals(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("LoadTotals() = %v, %v", got, err)
	}
}

func TestSQLiteStore_InvalidKey(t *testing.T) {
	db := setupEnergyTestDB(t)
	if _, err := db.Exec("INSERT INTO energy_totals (source, kwh, updated_at) VALUES ('pump/x', 1, 'now')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := NewSQLiteStore(db).LoadTotals(context.Background())
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("LoadTotals() error = %v, want ErrInvalidKey", err)
	}
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("heater/20")
	if err != nil || key != (Key{Kind: SourceHeater, ID: 20}) {
		t.Errorf("ParseKey() = %v, %v", key, err)
	}
	for _, bad := range []string{"heater", "heater/x", "pump/1", ""} {
		if _, err := ParseKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseKey(%q) error = %v, want ErrInvalidKey", bad, err)
		}
	}
}
