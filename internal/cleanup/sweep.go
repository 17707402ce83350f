package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/Automaat/shader-buster/internal/cache"
	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/gate"
	"github.com/rs/zerolog"
)

// run is the state of one Orchestrator.Run. It lives on the worker goroutine.
type run struct {
	o      *Orchestrator
	ctx    context.Context
	log    *zerolog.Logger
	token  *cancel.Token
	obs    Observer
	result Result
	stats  Stats
	opts   Options

	total     int64
	processed int64
	percent   float64
}

func (r *run) stopped() bool {
	return r.token.Cancelled() || r.ctx.Err() != nil
}

// sweep empties dir depth-first, keeping dir itself. Reports whether the
// run was cancelled.
func (r *run) sweep(dir string) bool {
	entries, err := r.o.deps.FS.ReadDir(dir)
	if err != nil {
		r.itemError(cache.ClassifyError(dir, err))
		return false
	}

	for _, entry := range entries {
		if r.stopped() {
			return true
		}

		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if r.sweep(path) {
				return true
			}
			r.removeDir(path)
		} else {
			r.removeFile(path, entry)
		}
		r.processed++
		r.emit(StateDeleting, path)
	}
	return false
}

func (r *run) removeFile(path string, info fs.FileInfo) {
	var bytes int64
	if info.Mode().IsRegular() {
		bytes = info.Size()
	}

	if r.opts.DryRun {
		if d := r.o.deps.Gate.PermitsEntry(path); !d.Allowed {
			r.denied(path, d)
			return
		}
		r.stats.FilesDeleted++
		r.stats.BytesFreed += bytes
		return
	}

	if err := r.remove(path); err != nil {
		r.deleteError(path, err)
		return
	}
	r.stats.FilesDeleted++
	r.stats.BytesFreed += bytes
}

// removeDir removes an emptied directory without recursing. A directory that
// gained entries since it was listed is left in place and counted as an error.
func (r *run) removeDir(path string) {
	if r.opts.DryRun {
		if d := r.o.deps.Gate.PermitsEntry(path); !d.Allowed {
			r.denied(path, d)
			return
		}
		r.stats.DirectoriesDeleted++
		return
	}

	if err := r.remove(path); err != nil {
		r.deleteError(path, err)
		return
	}
	r.stats.DirectoriesDeleted++
}

// remove deletes one entry through the gate, retrying while another process
// holds it.
func (r *run) remove(path string) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.o.deps.Gate.Remove(path)
		if err == nil || attempt >= r.o.deps.LockedRetries || r.stopped() {
			return err
		}
		if !cache.ClassifyError(path, err).Transient() {
			return err
		}
		r.o.sleep(r.o.deps.RetryDelay)
	}
}

func (r *run) deleteError(path string, err error) {
	var denied *gate.DeniedError
	if errors.As(err, &denied) {
		r.result.Denied = append(r.result.Denied, denied)
		r.log.Warn().Err(err).Str("path", path).Msg("deletion denied")
		r.stats.Errors++
		return
	}
	r.itemError(cache.ClassifyError(path, err))
}

func (r *run) denied(path string, d gate.Decision) {
	r.deleteError(path, &gate.DeniedError{Path: path, Resolved: d.Resolved, Reason: d.Reason})
}

func (r *run) itemError(e cache.AccessError) {
	r.stats.Errors++
	if len(r.result.ItemErrors) < maxItemErrors {
		r.result.ItemErrors = append(r.result.ItemErrors, e)
	}
	r.log.Warn().Err(e.Err).Str("path", e.Path).Str("reason", e.Reason).Msg("delete failed")
}

// emit sends a non-terminal snapshot. Percent never decreases and stays
// below 100 until finish.
func (r *run) emit(state State, current string) {
	if r.total > 0 {
		p := float64(r.processed) / float64(r.total) * 100
		if p > 99 {
			p = 99
		}
		if p > r.percent {
			r.percent = p
		}
	}
	r.notify(state, current)
}

func (r *run) notify(state State, current string) {
	if r.obs == nil {
		return
	}
	r.obs.OnProgress(Progress{
		State:   state,
		Percent: r.percent,
		Stats:   r.stats,
		Current: current,
	})
}
