package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "xcomfort.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		rel  string
		wal  bool
	}{
		{"flat path", "xcomfort.db", true},
		{"nested directories created", "a/b/c/xcomfort.db", true},
		{"rollback journal", "plain.db", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.rel)
			db, err := Open(config.DatabaseConfig{Path: path, WALMode: tt.wal, BusyTimeout: 1})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer db.Close()

			if _, err := db.Exec("CREATE TABLE t (x INTEGER)"); err != nil {
				t.Fatalf("create table: %v", err)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("database file missing: %v", err)
			}
			if db.Path() != path {
				t.Errorf("Path() = %q, want %q", db.Path(), path)
			}
		})
	}
}

func TestOpen_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(config.DatabaseConfig{Path: filepath.Join(blocker, "sub", "x.db")}); err == nil {
		t.Error("Open() under a regular file should fail")
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}

	db.Close()
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close should fail")
	}
}

func TestCloseNil(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}
