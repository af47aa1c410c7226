// Package audit records device commands and their outcome in the
// command_log table.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Command sources.
const (
	SourceMQTT = "mqtt"
	SourceHTTP = "http"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// Fixed width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Entry is one executed (or refused) device command.
type Entry struct {
	ID        string    `json:"id"`
	DeviceID  int       `json:"device_id"`
	Command   string    `json:"command"`
	Value     any       `json:"value,omitempty"`
	Source    string    `json:"source"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	DeviceID int
	Source   string
	Failed   bool // only refused or failed commands
	Limit    int  // default 50, max 200
	Offset   int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores and lists command entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on command_log.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository on a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts e, filling in ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var value any
	if e.Value != nil {
		b, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("marshalling command value: %w", err)
		}
		value = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_log (id, device_id, command, value, source, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DeviceID, e.Command, value, e.Source, e.Success,
		nullableString(e.Error), e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultLimit
	case filter.Limit > maxLimit:
		filter.Limit = maxLimit
	}
	filter.Offset = max(filter.Offset, 0)

	var conditions []string
	var args []any
	if filter.DeviceID != 0 {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Failed {
		conditions = append(conditions, "success = 0")
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_log " + where //nolint:gosec // placeholders only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	query := "SELECT id, device_id, command, value, source, success, error, created_at FROM command_log " + //nolint:gosec // placeholders only
		where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var value, errText sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Command, &value, &e.Source, &e.Success, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command log entry: %w", err)
		}
		if value.Valid {
			var v any
			if json.Unmarshal([]byte(value.String), &v) == nil {
				e.Value = v
			}
		}
		e.Error = errText.String
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing command log timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{Entries: entries, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}
