package backup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/Automaat/shader-buster/internal/validate"
)

// RestoreResult reports what a restore wrote.
type RestoreResult struct {
	Targets []string
	Bytes   int64
	Files   int64
}

// Restore copies a snapshot back to its original paths, or to
// dest/<source dir> when dest is set. Missing parents are created.
// Restoring only adds or overwrites files, so no deletion checks apply.
func (s *Service) Restore(ctx context.Context, rec Record, dest string) (RestoreResult, error) {
	log := logging.FromContext(ctx)

	targets := make([]string, len(rec.Sources))
	reqs := make([]validate.Requirement, len(rec.Sources))
	for i, src := range rec.Sources {
		targets[i] = src.Original
		if dest != "" {
			targets[i] = filepath.Join(dest, src.Dir)
		}
		if err := s.validator.CheckWritable(targets[i]); err != nil {
			return RestoreResult{}, fmt.Errorf("restore target %s: %w", targets[i], err)
		}
		reqs[i] = validate.Requirement{Path: targets[i], Bytes: src.Bytes}
	}
	if err := s.validator.CheckSpace(reqs, 0); err != nil {
		return RestoreResult{}, err
	}

	c := &copier{fs: s.fs}
	result := RestoreResult{Targets: targets}
	for i, src := range rec.Sources {
		stats, err := c.tree(ctx, filepath.Join(rec.Root, src.Dir), targets[i], "")
		result.Bytes += stats.bytes
		result.Files += stats.files
		if err != nil {
			return result, err
		}
		log.Info().Str("backup", rec.ID).Str("target", targets[i]).Int64("files", stats.files).Msg("restored")
	}
	return result, nil
}
