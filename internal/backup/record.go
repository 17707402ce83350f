// Package backup snapshots cache directories before deletion and restores them.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/spf13/afero"
)

const (
	manifestFile  = "manifest.json"
	checksumsFile = "checksums.txt"
	stagingPrefix = ".staging-"

	// idLayout is the snapshot directory name; colons are not portable.
	idLayout = "2006-01-02T15-04-05Z"

	manifestVersion = 1
)

// Source maps one backed-up location to its snapshot subdirectory.
type Source struct {
	Original string `json:"original"`
	Dir      string `json:"dir"`
	Provider string `json:"provider,omitempty"`
	Bytes    int64  `json:"bytes"`
	Files    int64  `json:"files"`
}

// Record describes a completed snapshot. Only fully materialized snapshots
// have records.
type Record struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	Root       string    `json:"-"`
	Sources    []Source  `json:"sources"`
	Version    int       `json:"version"`
	TotalBytes int64     `json:"total_bytes"`
	FileCount  int64     `json:"file_count"`
}

func writeJSON(f fsys.FS, path string, v any) (err error) {
	file, err := f.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readManifest(f fsys.FS, dir string) (Record, error) {
	data, err := afero.ReadFile(f, filepath.Join(dir, manifestFile))
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse manifest: %w", err)
	}
	if rec.Version > manifestVersion {
		return Record{}, fmt.Errorf("manifest version %d is newer than supported %d", rec.Version, manifestVersion)
	}
	rec.Root = dir
	return rec, nil
}
