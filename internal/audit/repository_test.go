package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE command_log (
			id TEXT PRIMARY KEY,
			device_id INTEGER NOT NULL,
			command TEXT NOT NULL,
			value TEXT,
			source TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL
		)`); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	e := &Entry{DeviceID: 10, Command: "dim", Value: 40.0, Source: SourceHTTP, Success: true}

	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(e.ID) != len("cmd-")+8 {
		t.Errorf("ID = %q", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List() = %+v", res)
	}
	got := res.Entries[0]
	if got.Value != 40.0 || got.Command != "dim" || !got.Success || got.Error != "" {
		t.Errorf("entry = %+v", got)
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{DeviceID: 1, Command: "switch", Value: true, Source: SourceMQTT, Success: true, CreatedAt: base},
		{DeviceID: 2, Command: "move_to", Value: 50.0, Source: SourceHTTP, Error: "safety enabled", CreatedAt: base.Add(time.Minute)},
		{DeviceID: 1, Command: "switch", Value: false, Source: SourceHTTP, Success: true, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"all newest first", Filter{}, []string{entries[2].ID, entries[1].ID, entries[0].ID}},
		{"by device", Filter{DeviceID: 1}, []string{entries[2].ID, entries[0].ID}},
		{"by source", Filter{Source: SourceMQTT}, []string{entries[0].ID}},
		{"failed only", Filter{Failed: true}, []string{entries[1].ID}},
		{"paged", Filter{Limit: 1, Offset: 1}, []string{entries[1].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(res.Entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(res.Entries), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if res.Entries[i].ID != id {
					t.Errorf("entry %d = %s, want %s", i, res.Entries[i].ID, id)
				}
			}
		})
	}

	res, _ := repo.List(ctx, Filter{Limit: 1000})
	if res.Limit != maxLimit {
		t.Errorf("Limit = %d, want clamp to %d", res.Limit, maxLimit)
	}
	failed, _ := repo.List(ctx, Filter{Failed: true})
	if failed.Entries[0].Error != "safety enabled" || failed.Entries[0].Success {
		t.Errorf("failed entry = %+v", failed.Entries[0])
	}
}
