package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Automaat/shader-buster/internal/backup"
	"github.com/Automaat/shader-buster/internal/cache"
	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/gate"
	"github.com/Automaat/shader-buster/internal/history"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/internal/validate"
	"github.com/Automaat/shader-buster/pkg/size"
)

// maxItemErrors bounds the per-item errors kept in a Result. Stats.Errors
// still counts all of them.
const maxItemErrors = 200

// Options configures one run.
type Options struct {
	// BackupDestination overrides the backup root for this run.
	BackupDestination string
	DryRun            bool
	AutoBackup        bool
}

// Result is the outcome of a finished run.
type Result struct {
	// Err is set for StatusBackupFailed.
	Err        error
	Backup     *backup.Record
	Stats      Stats
	Locations  []provider.Location
	Providers  []string
	Warnings   []provider.Warning
	Rejected   []validate.Rejection
	Denied     []*gate.DeniedError
	ItemErrors []cache.AccessError
	Status     Status
}

// Summary is a one-line description of the run.
func (r Result) Summary() string {
	switch r.Status {
	case StatusBackupFailed:
		return fmt.Sprintf("cleanup aborted, backup failed: %v", r.Err)
	case StatusNothingToClean:
		return "nothing to clean"
	case StatusCancelled:
		return "cleanup cancelled: " + r.Stats.String()
	}
	if r.Stats.DryRun {
		return "dry run: " + r.Stats.String()
	}
	return fmt.Sprintf("cleanup completed: %s in %s", r.Stats.String(), r.Stats.Duration().Round(time.Millisecond))
}

// Recorder appends finished runs to the history log.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Deps are the collaborators of an Orchestrator. Backups, History and
// Notifier are optional.
type Deps struct {
	FS        fsys.FS
	Gate      *gate.Gate
	Validator *validate.Service
	Backups   *backup.Service
	History   Recorder
	Notifier  Notifier

	// Headroom is extra free space required on the backup volume.
	Headroom int64
	// LockedRetries is how often a deletion blocked by another process is retried.
	LockedRetries int
	RetryDelay    time.Duration
}

// Orchestrator runs cleanups. It holds no per-run state and may be reused.
type Orchestrator struct {
	deps  Deps
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates an orchestrator.
func New(d Deps) *Orchestrator {
	if d.Validator == nil {
		d.Validator = validate.New(d.FS)
	}
	return &Orchestrator{deps: d, now: time.Now, sleep: time.Sleep}
}

// Run executes one cleanup on the calling goroutine. Per-item failures are
// counted and never abort the run; only cancellation and a failed backup do.
func (o *Orchestrator) Run(ctx context.Context, reg *provider.Registry, opts Options, token *cancel.Token, obs Observer) Result {
	ctx = logging.WithComponent(ctx, "cleanup")
	r := &run{
		o:     o,
		ctx:   ctx,
		log:   logging.FromContext(ctx),
		opts:  opts,
		token: token,
		obs:   obs,
	}
	r.stats = Stats{StartedAt: o.now(), DryRun: opts.DryRun}
	return r.execute(reg)
}

func (r *run) execute(reg *provider.Registry) Result {
	r.emit(StateDiscovering, "")
	discovery := reg.DiscoverAll(r.ctx)
	r.result.Warnings = discovery.Warnings
	if r.stopped() {
		return r.finish(StatusCancelled)
	}

	locs, warnings, err := reg.Measure(r.ctx, r.token, discovery.Locations)
	if err != nil {
		if r.stopped() {
			return r.finish(StatusCancelled)
		}
		r.log.Warn().Err(err).Msg("size estimate failed")
		locs = discovery.Locations
	}
	for _, w := range warnings {
		r.log.Debug().Str("path", w.Path).Str("reason", w.Reason).Msg("unreadable during estimate")
	}
	if r.stopped() {
		return r.finish(StatusCancelled)
	}

	r.emit(StateValidating, "")
	survivors, spaceErr := r.filter(locs)
	r.result.Locations = survivors
	r.result.Providers = providersOf(survivors)
	if len(survivors) == 0 {
		return r.finish(StatusNothingToClean)
	}
	if r.stopped() {
		return r.finish(StatusCancelled)
	}

	if r.opts.AutoBackup && !r.opts.DryRun {
		r.emit(StateBackingUp, "")
		if status, ok := r.backup(survivors, spaceErr); !ok {
			return r.finish(status)
		}
	}

	r.emit(StateDeleting, "")
	for _, loc := range survivors {
		r.total += loc.Items
	}
	for _, loc := range survivors {
		r.log.Debug().Str("path", loc.Path).Str("provider", loc.Provider).Msg("cleaning location")
		if r.sweep(loc.Path) {
			return r.finish(StatusCancelled)
		}
	}
	return r.finish(StatusCompleted)
}

// filter applies validation then the gate. Both kinds of exclusion count as
// errors. The backup space check covers only the locations that pass both.
func (r *run) filter(locs []provider.Location) ([]provider.Location, error) {
	v := r.o.deps.Validator
	report := v.Validate(r.ctx, locs, validate.Options{})
	r.result.Rejected = report.Rejected
	r.stats.Errors += int64(len(report.Rejected))

	var survivors []provider.Location
	for _, loc := range report.Approved {
		if err := r.o.deps.Gate.Check(loc.Path); err != nil {
			var denied *gate.DeniedError
			if errors.As(err, &denied) {
				r.result.Denied = append(r.result.Denied, denied)
			}
			r.log.Warn().Err(err).Str("path", loc.Path).Msg("location denied")
			r.stats.Errors++
			continue
		}
		survivors = append(survivors, loc)
	}

	if !r.opts.AutoBackup || r.opts.DryRun {
		return survivors, nil
	}
	return survivors, v.CheckBackupSpace(survivors, r.backupRoot(), r.o.deps.Headroom)
}

func (r *run) backupRoot() string {
	if r.opts.BackupDestination != "" {
		return r.opts.BackupDestination
	}
	if r.o.deps.Backups != nil {
		return r.o.deps.Backups.Root()
	}
	return ""
}

// backup snapshots survivors. ok is false when the run must stop.
func (r *run) backup(survivors []provider.Location, spaceErr error) (Status, bool) {
	if spaceErr != nil {
		return r.backupFailed(spaceErr)
	}

	svc := r.o.deps.Backups
	if r.opts.BackupDestination != "" {
		svc = backup.NewService(r.o.deps.FS, r.opts.BackupDestination, r.o.deps.Validator)
	}
	if svc == nil {
		return r.backupFailed(errors.New("no backup location configured"))
	}

	rec, err := svc.Create(r.ctx, r.token, survivors)
	if err != nil {
		if r.stopped() || errors.Is(err, cancel.ErrCancelled) {
			return StatusCancelled, false
		}
		return r.backupFailed(err)
	}
	r.result.Backup = &rec
	return StatusCompleted, true
}

func (r *run) backupFailed(err error) (Status, bool) {
	r.log.Error().Err(err).Msg("backup failed, nothing deleted")
	r.result.Err = fmt.Errorf("backup: %w", err)
	return StatusBackupFailed, false
}

func (r *run) finish(status Status) Result {
	r.stats.EndedAt = r.o.now()
	r.result.Status = status
	r.result.Stats = r.stats

	state := StateCompleted
	if status == StatusCancelled {
		state = StateCancelled
	}
	r.percent = 100
	r.notify(state, "")

	event := r.log.Info()
	if status == StatusBackupFailed {
		event = r.log.Error()
	}
	event.
		Str("status", status.String()).
		Int64("files", r.stats.FilesDeleted).
		Int64("dirs", r.stats.DirectoriesDeleted).
		Str("freed", size.Format(r.stats.BytesFreed)).
		Int64("errors", r.stats.Errors).
		Bool("dry_run", r.stats.DryRun).
		Msg("cleanup finished")

	// An interrupt cancels r.ctx; the summary must still be stored and sent.
	done := context.WithoutCancel(r.ctx)
	if status == StatusCompleted && !r.opts.DryRun && r.o.deps.History != nil {
		r.record(done)
	}
	if r.o.deps.Notifier != nil {
		if err := r.o.deps.Notifier.Notify(done, r.result); err != nil {
			r.log.Warn().Err(err).Msg("notification failed")
		}
	}
	return r.result
}

func (r *run) record(ctx context.Context) {
	entry := history.Entry{
		Timestamp:          r.stats.EndedAt,
		FilesDeleted:       r.stats.FilesDeleted,
		DirectoriesDeleted: r.stats.DirectoriesDeleted,
		BytesFreed:         r.stats.BytesFreed,
		Errors:             r.stats.Errors,
		Duration:           r.stats.Duration(),
		ProvidersUsed:      r.result.Providers,
	}
	if r.result.Backup != nil {
		entry.BackupID = r.result.Backup.ID
	}
	// History is bookkeeping; a failed write does not change the outcome.
	if _, err := r.o.deps.History.Record(ctx, entry); err != nil {
		r.log.Warn().Err(err).Msg("failed to record history")
	}
}

func providersOf(locs []provider.Location) []string {
	seen := map[string]bool{}
	var names []string
	for _, loc := range locs {
		if !seen[loc.Provider] {
			seen[loc.Provider] = true
			names = append(names, loc.Provider)
		}
	}
	sort.Strings(names)
	return names
}
