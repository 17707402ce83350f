package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/Automaat/shader-buster/internal/validate"
)

var (
	// ErrNotFound is returned for unknown snapshot IDs.
	ErrNotFound = errors.New("backup not found")
	// ErrNothingToBackup is returned when Create gets no locations.
	ErrNothingToBackup = errors.New("nothing to back up")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Service creates, lists and restores snapshots under a backup root.
type Service struct {
	fs        fsys.FS
	validator *validate.Service
	now       func() time.Time
	root      string
}

// NewService creates a backup service rooted at root.
func NewService(f fsys.FS, root string, v *validate.Service) *Service {
	if v == nil {
		v = validate.New(f)
	}
	return &Service{
		fs:        f,
		validator: v,
		now:       time.Now,
		root:      root,
	}
}

// Root returns the backup root directory.
func (s *Service) Root() string {
	return s.root
}

// Create copies every location into a new snapshot. The snapshot appears
// under its final name only after all sources were copied; on any error or
// cancellation the staging directory is removed and no record exists.
func (s *Service) Create(ctx context.Context, token *cancel.Token, locs []provider.Location) (Record, error) {
	if len(locs) == 0 {
		return Record{}, ErrNothingToBackup
	}
	log := logging.FromContext(ctx)

	if err := s.fs.MkdirAll(s.root, 0o750); err != nil {
		return Record{}, fmt.Errorf("create backup root: %w", err)
	}

	created := s.now().UTC()
	id, err := s.freeID(created)
	if err != nil {
		return Record{}, err
	}

	staging := filepath.Join(s.root, stagingPrefix+id)
	if err := s.fs.MkdirAll(staging, 0o750); err != nil {
		return Record{}, fmt.Errorf("create staging dir: %w", err)
	}

	rec, err := s.populate(ctx, token, staging, id, created, locs)
	if err != nil {
		s.discard(ctx, staging)
		return Record{}, err
	}

	final := filepath.Join(s.root, id)
	if err := s.fs.Rename(staging, final); err != nil {
		s.discard(ctx, staging)
		return Record{}, fmt.Errorf("finalize backup: %w", err)
	}
	rec.Root = final

	log.Info().
		Str("backup", id).
		Int64("files", rec.FileCount).
		Int64("bytes", rec.TotalBytes).
		Msg("backup created")
	return rec, nil
}

func (s *Service) populate(ctx context.Context, token *cancel.Token, staging, id string, created time.Time, locs []provider.Location) (Record, error) {
	rec := Record{
		CreatedAt: created,
		ID:        id,
		Version:   manifestVersion,
	}
	c := &copier{fs: s.fs, token: token, sums: map[string]string{}}
	used := map[string]bool{}

	for _, loc := range locs {
		if err := token.Err(); err != nil {
			return Record{}, err
		}

		canonical := fsys.Canonical(s.fs, loc.Path)
		dir := sourceDir(canonical)
		if used[dir] {
			continue
		}
		used[dir] = true

		stats, err := c.tree(ctx, canonical, filepath.Join(staging, dir), dir)
		if err != nil {
			return Record{}, err
		}

		rec.Sources = append(rec.Sources, Source{
			Original: loc.Path,
			Dir:      dir,
			Provider: loc.Provider,
			Bytes:    stats.bytes,
			Files:    stats.files,
		})
		rec.TotalBytes += stats.bytes
		rec.FileCount += stats.files
	}

	if err := writeChecksums(s.fs, staging, c.sums); err != nil {
		return Record{}, fmt.Errorf("write checksums: %w", err)
	}
	if err := writeJSON(s.fs, filepath.Join(staging, manifestFile), rec); err != nil {
		return Record{}, fmt.Errorf("write manifest: %w", err)
	}
	return rec, nil
}

// freeID returns the timestamp ID, suffixed when a snapshot from the same
// second already exists.
func (s *Service) freeID(t time.Time) (string, error) {
	base := t.Format(idLayout)
	id := base
	for n := 2; ; n++ {
		_, err := s.fs.Stat(filepath.Join(s.root, id))
		if errors.Is(err, os.ErrNotExist) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check backup id: %w", err)
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// discard removes a snapshot or staging directory. It refuses anything
// outside the backup root.
func (s *Service) discard(ctx context.Context, dir string) {
	if err := s.removeOwned(dir); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("path", dir).Msg("failed to remove backup directory")
	}
}

func (s *Service) removeOwned(dir string) error {
	root := filepath.Clean(s.root)
	dir = filepath.Clean(dir)
	if dir == root || !fsys.Within(root, dir) {
		return fmt.Errorf("%s is outside backup root %s", dir, root)
	}
	return s.fs.RemoveAll(dir)
}

// sourceDir names the snapshot subdirectory for an original path.
func sourceDir(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	name := strings.Trim(unsafeChars.ReplaceAllString(filepath.Base(canonical), "_"), "._")
	if name == "" {
		name = "root"
	}
	if len(name) > 40 {
		name = name[:40]
	}
	return name + "-" + hex.EncodeToString(sum[:])[:12]
}

// List returns every complete snapshot, newest first. Staging directories and
// snapshots with unreadable manifests are skipped.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	entries, err := s.fs.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	log := logging.FromContext(ctx)
	var records []Record
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		rec, err := readManifest(s.fs, filepath.Join(s.root, e.Name()))
		if err != nil {
			log.Debug().Err(err).Str("dir", e.Name()).Msg("skipping backup directory")
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

// Get loads a snapshot by ID.
func (s *Service) Get(id string) (Record, error) {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	rec, err := readManifest(s.fs, filepath.Join(s.root, id))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return rec, err
}

// Remove deletes a snapshot.
func (s *Service) Remove(id string) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.removeOwned(rec.Root)
}

// PruneOptions selects snapshots to delete. Zero values disable a rule.
type PruneOptions struct {
	Keep      int
	OlderThan time.Duration
}

// Prune removes snapshots beyond the newest Keep or older than OlderThan.
func (s *Service) Prune(ctx context.Context, opts PruneOptions) ([]Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Time{}
	if opts.OlderThan > 0 {
		cutoff = s.now().Add(-opts.OlderThan)
	}

	var removed []Record
	for i, rec := range records {
		expired := opts.Keep > 0 && i >= opts.Keep
		if !cutoff.IsZero() && rec.CreatedAt.Before(cutoff) {
			expired = true
		}
		if !expired {
			continue
		}
		if err := s.removeOwned(rec.Root); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", rec.ID, err)
		}
		removed = append(removed, rec)
	}
	return removed, nil
}
