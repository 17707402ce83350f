package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/spf13/afero"
)

// copyStats counts what one tree copy wrote.
type copyStats struct {
	bytes int64
	files int64
}

// copier mirrors directory trees. When sums is non-nil every copied file's
// sha256 is stored under prefix/relative-path (slash separated).
type copier struct {
	fs    fsys.FS
	token *cancel.Token
	sums  map[string]string
}

// tree copies src into dst without following links. Any error aborts the copy.
func (c *copier) tree(ctx context.Context, src, dst, prefix string) (copyStats, error) {
	log := logging.FromContext(ctx)
	var stats copyStats

	err := afero.Walk(c.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.token.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return c.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode()&fs.ModeSymlink != 0:
			log.Debug().Str("path", path).Msg("skipping symlink")
			return nil
		case !info.Mode().IsRegular():
			log.Debug().Str("path", path).Msg("skipping special file")
			return nil
		}

		n, sum, err := c.file(path, target, info)
		if err != nil {
			return err
		}
		stats.bytes += n
		stats.files++
		if c.sums != nil {
			c.sums[filepath.ToSlash(filepath.Join(prefix, rel))] = sum
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("copy %s: %w", src, err)
	}
	return stats, nil
}

func (c *copier) file(src, dst string, info fs.FileInfo) (int64, string, error) {
	in, err := c.fs.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	if err := c.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, "", err
	}
	out, err := c.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()|0o600)
	if err != nil {
		return 0, "", err
	}

	var h hash.Hash
	var w io.Writer = out
	if c.sums != nil {
		h = sha256.New()
		w = io.MultiWriter(out, h)
	}

	n, err := io.Copy(w, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", err
	}

	if err := c.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return 0, "", err
	}

	if h == nil {
		return n, "", nil
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func sha256File(f fsys.FS, path string) (string, error) {
	in, err := f.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	h := sha256.New()
	if _, err := io.Copy(h, in); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
