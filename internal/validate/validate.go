// Package validate runs pre-flight permission and free-space checks.
package validate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/pkg/size"
)

// ErrInsufficientSpace is wrapped by every SpaceError.
var ErrInsufficientSpace = errors.New("insufficient space")

// SpaceError reports a volume without room for a backup or restore.
type SpaceError struct {
	Volume   string
	Required uint64
	Free     uint64
}

func (e *SpaceError) Error() string {
	return fmt.Sprintf("insufficient space on %s: need %s, have %s",
		e.Volume, size.Format(int64(e.Required)), size.Format(int64(e.Free)))
}

func (e *SpaceError) Unwrap() error {
	return ErrInsufficientSpace
}

// Rejection is a location excluded by validation.
type Rejection struct {
	Err      error
	Reason   string
	Location provider.Location
}

// Report is the outcome of Validate.
type Report struct {
	// SpaceErr is set when a requested backup would not fit.
	SpaceErr error
	Approved []provider.Location
	Rejected []Rejection
}

// Options configures Validate.
type Options struct {
	BackupRoot         string
	Headroom           int64
	RequireBackupSpace bool
}

// Requirement is a number of bytes that must fit on the volume holding Path.
type Requirement struct {
	Path  string
	Bytes int64
}

// Service answers whether the current user can clean, back up and restore paths.
type Service struct {
	fs fsys.FS
}

// New creates a validation service.
func New(f fsys.FS) *Service {
	return &Service{fs: f}
}

// Validate checks each location for existence and permissions and, when a
// backup is requested, that the backup volume can hold the approved set.
func (s *Service) Validate(ctx context.Context, locs []provider.Location, opts Options) Report {
	log := logging.FromContext(ctx)
	var report Report

	for _, loc := range locs {
		if reason, err := s.checkLocation(loc.Path); err != nil {
			log.Warn().Err(err).Str("path", loc.Path).Str("reason", reason).Msg("location rejected")
			report.Rejected = append(report.Rejected, Rejection{Location: loc, Reason: reason, Err: err})
			continue
		}
		report.Approved = append(report.Approved, loc)
	}

	if opts.RequireBackupSpace {
		report.SpaceErr = s.CheckBackupSpace(report.Approved, opts.BackupRoot, opts.Headroom)
	}

	return report
}

// CheckBackupSpace checks that the volume holding root can store a snapshot
// of locs plus headroom. An empty set always fits.
func (s *Service) CheckBackupSpace(locs []provider.Location, root string, headroom int64) error {
	if len(locs) == 0 {
		return nil
	}
	var total int64
	for _, loc := range locs {
		total += loc.EstimatedSize
	}
	return s.CheckSpace([]Requirement{{Path: root, Bytes: total}}, headroom)
}

func (s *Service) checkLocation(path string) (string, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return "not accessible", err
	}
	if !info.IsDir() {
		return "not a directory", fmt.Errorf("%s is not a directory", path)
	}
	if _, err := s.fs.ReadDir(path); err != nil {
		return "not readable", err
	}
	if err := s.fs.Writable(path); err != nil {
		return "not writable", err
	}
	return "", nil
}

// CheckSpace groups requirements by volume and checks each volume once.
// headroom is added to every volume's total.
func (s *Service) CheckSpace(reqs []Requirement, headroom int64) error {
	type need struct {
		bytes int64
		free  uint64
	}
	volumes := make(map[string]*need)

	for _, r := range reqs {
		vol, err := s.fs.Volume(r.Path)
		if err != nil {
			return fmt.Errorf("check space for %s: %w", r.Path, err)
		}
		n, ok := volumes[vol.ID]
		if !ok {
			n = &need{bytes: headroom, free: vol.Free}
			volumes[vol.ID] = n
		}
		n.bytes += r.Bytes
	}

	ids := make([]string, 0, len(volumes))
	for id := range volumes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := volumes[id]
		if n.bytes > 0 && uint64(n.bytes) > n.free {
			return &SpaceError{Volume: id, Required: uint64(n.bytes), Free: n.free}
		}
	}
	return nil
}

// CheckWritable verifies files can be created at path. A missing path is
// checked against its nearest existing ancestor.
func (s *Service) CheckWritable(path string) error {
	cur := path
	for {
		info, err := s.fs.Stat(cur)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", cur)
			}
			return s.fs.Writable(cur)
		}
		parent := filepath.Dir(filepath.Clean(cur))
		if parent == cur {
			return fmt.Errorf("no existing ancestor for %s: %w", path, err)
		}
		cur = parent
	}
}
