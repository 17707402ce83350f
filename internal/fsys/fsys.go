// Package fsys is the filesystem abstraction shared by discovery, validation,
// backup and deletion.
package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/afero"
)

// Volume identifies the filesystem a path lives on.
type Volume struct {
	ID   string // mountpoint or drive root
	Free uint64
}

// FS extends afero.Fs with the queries the pipeline needs.
type FS interface {
	afero.Fs

	// Lstat returns file info without following a final symlink.
	Lstat(name string) (fs.FileInfo, error)

	// ReadDir lists a directory without following symlinked entries.
	ReadDir(name string) ([]fs.FileInfo, error)

	// EvalSymlinks resolves every link in name. The path must exist.
	EvalSymlinks(name string) (string, error)

	// Writable returns nil if the current user may create and remove entries in name.
	Writable(name string) error

	// Volume reports the volume holding name and its free space.
	// name need not exist; its nearest existing ancestor is used.
	Volume(name string) (Volume, error)
}

// OS is the real filesystem.
type OS struct {
	afero.Fs
}

// NewOS returns the host filesystem.
func NewOS() *OS {
	return &OS{Fs: afero.NewOsFs()}
}

// Lstat implements FS.
func (o *OS) Lstat(name string) (fs.FileInfo, error) {
	if l, ok := o.Fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err
	}
	return o.Fs.Stat(name)
}

// ReadDir implements FS.
func (o *OS) ReadDir(name string) ([]fs.FileInfo, error) {
	return afero.ReadDir(o.Fs, name)
}

// EvalSymlinks implements FS.
func (o *OS) EvalSymlinks(name string) (string, error) {
	return filepath.EvalSymlinks(name)
}

// Writable implements FS.
func (o *OS) Writable(name string) error {
	return writable(name)
}

// Volume implements FS.
func (o *OS) Volume(name string) (Volume, error) {
	existing, err := existingAncestor(o, name)
	if err != nil {
		return Volume{}, err
	}

	usage, err := disk.Usage(existing)
	if err != nil {
		return Volume{}, fmt.Errorf("disk usage %s: %w", existing, err)
	}

	return Volume{ID: mountpointOf(existing), Free: usage.Free}, nil
}

func existingAncestor(o *OS, name string) (string, error) {
	cur, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", name, err)
	}
	for {
		if _, err := o.Stat(cur); err == nil {
			return cur, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no existing ancestor for %s", name)
		}
		cur = parent
	}
}

// mountpointOf picks the longest mountpoint containing path.
// Falls back to the volume name or filesystem root when partitions are unavailable.
func mountpointOf(path string) string {
	best := ""
	if parts, err := disk.Partitions(false); err == nil {
		for _, p := range parts {
			if Within(p.Mountpoint, path) && len(p.Mountpoint) > len(best) {
				best = p.Mountpoint
			}
		}
	}
	if best != "" {
		return best
	}
	if v := filepath.VolumeName(path); v != "" {
		return v + string(filepath.Separator)
	}
	return string(filepath.Separator)
}

// Within reports whether path is root or lies below it.
// Comparison is case-insensitive on Windows.
func Within(root, path string) bool {
	if runtime.GOOS == "windows" {
		root = strings.ToLower(root)
		path = strings.ToLower(path)
	}
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Resolve follows links in the longest existing prefix of path and rejoins the rest.
func Resolve(f FS, path string) string {
	cur := filepath.Clean(path)
	rest := ""
	for {
		if resolved, err := f.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Clean(path)
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

// Canonical returns the absolute, link-resolved form of path used for
// duplicate detection and gate checks. Lowercased on Windows.
func Canonical(f FS, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	resolved := Resolve(f, abs)
	if runtime.GOOS == "windows" {
		return strings.ToLower(resolved)
	}
	return resolved
}
