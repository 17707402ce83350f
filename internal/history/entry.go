// Package history keeps the append-only log of completed cleanup runs.
package history

import "time"

// Entry is one recorded run. Entries are never modified after Append.
type Entry struct {
	Timestamp          time.Time     `json:"timestamp"`
	BackupID           string        `json:"backup_id,omitempty"`
	ProvidersUsed      []string      `json:"providers_used"`
	ID                 int64         `json:"id"`
	FilesDeleted       int64         `json:"files_deleted"`
	DirectoriesDeleted int64         `json:"directories_deleted"`
	BytesFreed         int64         `json:"bytes_freed"`
	Errors             int64         `json:"errors"`
	Duration           time.Duration `json:"duration"`
	DryRun             bool          `json:"dry_run"`
}

// Totals are lifetime aggregates derived from stored entries.
type Totals struct {
	First              time.Time `json:"first,omitzero"`
	Last               time.Time `json:"last,omitzero"`
	Runs               int64     `json:"runs"`
	FilesDeleted       int64     `json:"files_deleted"`
	DirectoriesDeleted int64     `json:"directories_deleted"`
	BytesFreed         int64     `json:"bytes_freed"`
	Errors             int64     `json:"errors"`
}

// Fold sums entries into Totals. Dry runs are excluded.
func Fold(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		if e.DryRun {
			continue
		}
		t.Runs++
		t.FilesDeleted += e.FilesDeleted
		t.DirectoriesDeleted += e.DirectoriesDeleted
		t.BytesFreed += e.BytesFreed
		t.Errors += e.Errors
		if t.First.IsZero() || e.Timestamp.Before(t.First) {
			t.First = e.Timestamp
		}
		if e.Timestamp.After(t.Last) {
			t.Last = e.Timestamp
		}
	}
	return t
}
