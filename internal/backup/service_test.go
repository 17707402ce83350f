package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// snapshotTree maps relative paths under root to file contents.
func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

type env struct {
	svc     *Service
	root    string
	sources []string
}

func newEnv(t *testing.T) env {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	nv := filepath.Join(base, "cache", "nv", "GLCache")
	mesa := filepath.Join(base, "cache", "mesa_shader_cache")
	createTestFile(t, filepath.Join(nv, "a.bin"), "aaaa")
	createTestFile(t, filepath.Join(nv, "sub", "b.bin"), "bb")
	createTestFile(t, filepath.Join(mesa, "index"), "mesa-index")
	require.NoError(t, os.MkdirAll(filepath.Join(mesa, "empty"), 0o755))

	root := filepath.Join(base, "backups")
	return env{
		svc:     NewService(fsys.NewOS(), root, nil),
		root:    root,
		sources: []string{nv, mesa},
	}
}

func (e env) locations() []provider.Location {
	locs := make([]provider.Location, len(e.sources))
	for i, p := range e.sources {
		locs[i] = provider.Location{Path: p, Provider: "test"}
	}
	return locs
}

func TestCreate_WritesCompleteSnapshot(t *testing.T) {
	e := newEnv(t)

	rec, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	assert.Equal(t, int64(3), rec.FileCount)
	assert.Equal(t, int64(16), rec.TotalBytes)
	require.Len(t, rec.Sources, 2)
	assert.Equal(t, e.sources[0], rec.Sources[0].Original)
	assert.Equal(t, e.sources[1], rec.Sources[1].Original)
	assert.DirExists(t, rec.Root)
	assert.FileExists(t, filepath.Join(rec.Root, manifestFile))
	assert.FileExists(t, filepath.Join(rec.Root, checksumsFile))
	assert.DirExists(t, filepath.Join(rec.Root, rec.Sources[1].Dir, "empty"))

	records, err := e.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, rec.Sources, records[0].Sources)

	got, err := e.svc.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Root, got.Root)
}

func TestCreate_FailureLeavesNoRecord(t *testing.T) {
	e := newEnv(t)
	locs := append(e.locations(), provider.Location{Path: filepath.Join(filepath.Dir(e.root), "gone")})

	_, err := e.svc.Create(context.Background(), cancel.New(), locs)
	require.Error(t, err)

	entries, err := os.ReadDir(e.root)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory must be removed")

	records, err := e.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCreate_Cancelled(t *testing.T) {
	e := newEnv(t)
	tok := cancel.New()
	tok.Cancel()

	_, err := e.svc.Create(context.Background(), tok, e.locations())
	require.ErrorIs(t, err, cancel.ErrCancelled)

	records, err := e.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCreate_NothingToBackup(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Create(context.Background(), cancel.New(), nil)
	assert.ErrorIs(t, err, ErrNothingToBackup)
}

func TestRestore_ToOriginalPaths(t *testing.T) {
	e := newEnv(t)
	before := map[string]map[string]string{}
	for _, src := range e.sources {
		before[src] = snapshotTree(t, src)
	}

	rec, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	for _, src := range e.sources {
		require.NoError(t, os.RemoveAll(src))
	}

	res, err := e.svc.Restore(context.Background(), rec, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Files)
	assert.Equal(t, e.sources, res.Targets)

	for _, src := range e.sources {
		assert.Equal(t, before[src], snapshotTree(t, src))
	}
	assert.DirExists(t, filepath.Join(e.sources[1], "empty"))
}

func TestRestore_ToDestination(t *testing.T) {
	e := newEnv(t)
	rec, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "restored", "deeper")
	res, err := e.svc.Restore(context.Background(), rec, dest)
	require.NoError(t, err)

	for i, src := range rec.Sources {
		assert.Equal(t, filepath.Join(dest, src.Dir), res.Targets[i])
		assert.Equal(t, snapshotTree(t, e.sources[i]), snapshotTree(t, res.Targets[i]))
	}
}

func TestVerify(t *testing.T) {
	e := newEnv(t)
	rec, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	problems, err := e.svc.Verify(rec)
	require.NoError(t, err)
	assert.Empty(t, problems)

	nvDir := rec.Sources[0].Dir
	require.NoError(t, os.WriteFile(filepath.Join(rec.Root, nvDir, "a.bin"), []byte("tampered"), 0o600))
	require.NoError(t, os.Remove(filepath.Join(rec.Root, nvDir, "sub", "b.bin")))

	problems, err = e.svc.Verify(rec)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"modified: " + nvDir + "/a.bin",
		"missing: " + nvDir + "/sub/b.bin",
	}, problems)
}

func TestList_SkipsPartialSnapshots(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(e.root, stagingPrefix+"2020-01-01T00-00-00Z"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(e.root, "2020-01-01T00-00-00Z"), 0o755))
	createTestFile(t, filepath.Join(e.root, "2020-01-02T00-00-00Z", manifestFile), "{broken")

	records, err := e.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestList_MissingRoot(t *testing.T) {
	svc := NewService(fsys.NewOS(), filepath.Join(t.TempDir(), "none"), nil)
	records, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPrune(t *testing.T) {
	e := newEnv(t)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 4; i++ {
		i := i
		e.svc.now = func() time.Time { return start.Add(time.Duration(i) * 24 * time.Hour) }
		rec, err := e.svc.Create(context.Background(), cancel.New(), e.locations()[:1])
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	records, err := e.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, ids[3], records[0].ID, "newest first")

	removed, err := e.svc.Prune(context.Background(), PruneOptions{Keep: 3})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, ids[0], removed[0].ID)

	// now is still day 3; anything older than 36h goes.
	removed, err = e.svc.Prune(context.Background(), PruneOptions{OlderThan: 36 * time.Hour})
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.Equal(t, ids[1], removed[0].ID)

	records, err = e.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCreate_SameSecondGetsSuffix(t *testing.T) {
	e := newEnv(t)
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	e.svc.now = func() time.Time { return fixed }

	first, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)
	second, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	assert.Equal(t, "2026-03-04T05-06-07Z", first.ID)
	assert.Equal(t, "2026-03-04T05-06-07Z-2", second.ID)
}

func TestGetAndRemove(t *testing.T) {
	e := newEnv(t)
	rec, err := e.svc.Create(context.Background(), cancel.New(), e.locations())
	require.NoError(t, err)

	for _, id := range []string{"", "../etc", ".staging-x", "nope"} {
		_, err := e.svc.Get(id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}

	require.NoError(t, e.svc.Remove(rec.ID))
	assert.NoDirExists(t, rec.Root)
	assert.ErrorIs(t, e.svc.Remove(rec.ID), ErrNotFound)
}

func TestSourceDir(t *testing.T) {
	a := sourceDir("/home/u/.cache/mesa_shader_cache")
	b := sourceDir("/other/mesa_shader_cache")

	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^mesa_shader_cache-[0-9a-f]{12}$`, a)
	assert.Regexp(t, `^root-[0-9a-f]{12}$`, sourceDir("/"))
	assert.Regexp(t, `^User_Data-[0-9a-f]{12}$`, sourceDir(`/x/User Data`))
}

var errFlush = errors.New("flush failed")

// closeFailFS fails Close on files named name.
type closeFailFS struct {
	*fsys.OS
	name string
}

type closeFailFile struct {
	afero.File
}

func (f closeFailFile) Close() error {
	_ = f.File.Close()
	return errFlush
}

func (f *closeFailFS) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.OS.OpenFile(name, flag, perm)
	if err != nil || filepath.Base(name) != f.name {
		return file, err
	}
	return closeFailFile{File: file}, nil
}

func TestCreate_MetadataCloseErrorAborts(t *testing.T) {
	for _, name := range []string{manifestFile, checksumsFile} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			svc := NewService(&closeFailFS{OS: fsys.NewOS(), name: name}, e.root, nil)

			_, err := svc.Create(context.Background(), cancel.New(), e.locations())
			require.ErrorIs(t, err, errFlush)

			entries, err := os.ReadDir(e.root)
			require.NoError(t, err)
			assert.Empty(t, entries)

			records, err := svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}
