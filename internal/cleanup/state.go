// Package cleanup drives a reclamation run: discovery, validation, gating,
// optional backup, deletion and bookkeeping.
package cleanup

import (
	"fmt"
	"time"

	"github.com/Automaat/shader-buster/pkg/size"
)

// State is the phase a run is in.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateValidating
	StateBackingUp
	StateDeleting
	StateCompleted
	StateCancelled
)

var stateNames = [...]string{"idle", "discovering", "validating", "backing up", "deleting", "completed", "cancelled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Status is how a finished run ended.
type Status int

const (
	StatusCompleted Status = iota
	StatusCancelled
	// StatusBackupFailed means a requested backup did not complete; nothing was deleted.
	StatusBackupFailed
	// StatusNothingToClean means no location survived validation and the gate.
	StatusNothingToClean
)

var statusNames = [...]string{"completed", "cancelled", "backup failed", "nothing to clean"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Stats accumulates a run's counters. The worker owns the live value;
// everyone else receives copies.
type Stats struct {
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at,omitzero"`
	FilesDeleted       int64     `json:"files_deleted"`
	DirectoriesDeleted int64     `json:"directories_deleted"`
	BytesFreed         int64     `json:"bytes_freed"`
	Errors             int64     `json:"errors"`
	DryRun             bool      `json:"dry_run"`
}

// Duration is the run's wall time, or the time so far while running.
func (s Stats) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

func (s Stats) String() string {
	verb := "deleted"
	if s.DryRun {
		verb = "would delete"
	}
	return fmt.Sprintf("%s %d files, %d directories (%s), %d errors",
		verb, s.FilesDeleted, s.DirectoriesDeleted, size.Format(s.BytesFreed), s.Errors)
}

// Progress is one observer notification.
type Progress struct {
	Current string
	Stats   Stats
	Percent float64
	State   State
}
