package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store persists entries. Implementations are append-only apart from Trim
// and Clear.
type Store interface {
	Append(ctx context.Context, e Entry) (int64, error)
	// List returns entries newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Trim deletes all but the newest keep entries.
	Trim(ctx context.Context, keep int) (int64, error)
	Clear(ctx context.Context) error
}

// SQLiteStore keeps entries in the runs table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) (int64, error) {
	providers := e.ProvidersUsed
	if providers == nil {
		providers = []string{}
	}
	encoded, err := json.Marshal(providers)
	if err != nil {
		return 0, fmt.Errorf("encode providers: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (timestamp, files_deleted, directories_deleted, bytes_freed, errors,
			duration_ms, providers_used, dry_run, backup_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UnixNano(), e.FilesDeleted, e.DirectoriesDeleted, e.BytesFreed, e.Errors,
		e.Duration.Milliseconds(), string(encoded), e.DryRun, e.BackupID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, files_deleted, directories_deleted, bytes_freed, errors,
			duration_ms, providers_used, dry_run, backup_id
		FROM runs
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			ts        int64
			duration  int64
			providers string
		)
		if err := rows.Scan(&e.ID, &ts, &e.FilesDeleted, &e.DirectoriesDeleted, &e.BytesFreed,
			&e.Errors, &duration, &providers, &e.DryRun, &e.BackupID); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		e.Duration = time.Duration(duration) * time.Millisecond
		if err := json.Unmarshal([]byte(providers), &e.ProvidersUsed); err != nil {
			return nil, fmt.Errorf("decode providers of run %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Trim implements Store.
func (s *SQLiteStore) Trim(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY timestamp DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim runs: %w", err)
	}
	return res.RowsAffected()
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}
