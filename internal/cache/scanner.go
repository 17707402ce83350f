package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// measureConcurrency bounds parallel tree walks.
const measureConcurrency = 4

// Usage is the size of a directory tree.
type Usage struct {
	Bytes int64
	Files int64
	Dirs  int64
}

// Items is the number of entries a sweep of the tree will visit.
func (u Usage) Items() int64 {
	return u.Files + u.Dirs
}

// ScanResult contains tree usage with access warnings.
type ScanResult struct {
	Warnings []AccessError
	Usage
}

// Measure walks root without following symlinks and sums regular file sizes.
// The root itself is not counted as a directory.
// Access errors are collected as warnings rather than stopping the scan.
func Measure(ctx context.Context, f fsys.FS, root string) (ScanResult, error) {
	return measure(ctx, f, root, nil)
}

func measure(ctx context.Context, f fsys.FS, root string, tok *cancel.Token) (ScanResult, error) {
	var result ScanResult

	err := afero.Walk(f, root, func(path string, info fs.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if tok.Cancelled() {
			return cancel.ErrCancelled
		}
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				result.Warnings = append(result.Warnings, ClassifyError(path, err))
			}
			if info != nil && info.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		switch {
		case info.IsDir():
			result.Dirs++
		case info.Mode()&fs.ModeSymlink != 0:
			result.Files++
		default:
			result.Files++
			result.Bytes += info.Size()
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipDir) {
		return result, fmt.Errorf("measure %s: %w", root, err)
	}
	return result, nil
}

// MeasureAll measures every root in parallel. Results are index-aligned with roots.
// Setting tok stops every walk at its next entry; tok may be nil.
func MeasureAll(ctx context.Context, f fsys.FS, roots []string, tok *cancel.Token) ([]ScanResult, error) {
	results := make([]ScanResult, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(measureConcurrency)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			res, err := measure(gctx, f, root, tok)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
