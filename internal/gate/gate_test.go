package gate

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	gate   *Gate
	system string
	home   string
	cache  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	f := fixture{
		system: filepath.Join(root, "system"),
		home:   filepath.Join(root, "home"),
		cache:  filepath.Join(root, "home", ".cache"),
	}
	for _, dir := range []string{f.system, f.cache} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.system, "kernel"), []byte("k"), 0o600))

	f.gate = New(fsys.NewOS(), Protected{
		Trees: []string{f.system},
		Exact: []string{f.home},
	})
	return f
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
}

func TestPermits(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		path    string
		allowed bool
	}{
		{"protected tree root", f.system, false},
		{"inside protected tree", filepath.Join(f.system, "kernel"), false},
		{"missing path inside protected tree", filepath.Join(f.system, "nope", "deeper"), false},
		{"home root", f.home, false},
		{"home subdir", f.cache, true},
		{"missing path under home", filepath.Join(f.cache, "mesa_shader_cache"), true},
		{"relative path", "home/.cache", false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.gate.Permits(tt.path)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reason)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestPermits_SymlinkIntoProtectedTree(t *testing.T) {
	f := newFixture(t)
	link := filepath.Join(f.cache, "y")
	symlinkOrSkip(t, f.system, link)

	d := f.gate.Permits(link)
	assert.False(t, d.Allowed)
	assert.Equal(t, f.system, d.Resolved)

	assert.False(t, f.gate.Permits(filepath.Join(link, "kernel")).Allowed)
}

func TestPermits_SymlinkToHomeRoot(t *testing.T) {
	f := newFixture(t)
	link := filepath.Join(f.cache, "up")
	symlinkOrSkip(t, f.home, link)

	assert.False(t, f.gate.Permits(link).Allowed)
}

func TestPermits_LinkedProtectedRoot(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	realDir := filepath.Join(root, "real-system")
	require.NoError(t, os.Mkdir(realDir, 0o755))
	alias := filepath.Join(root, "system-alias")
	symlinkOrSkip(t, realDir, alias)

	g := New(fsys.NewOS(), Protected{Trees: []string{alias}})
	assert.False(t, g.Permits(filepath.Join(realDir, "file")).Allowed)
}

func TestCheck_ReturnsDeniedError(t *testing.T) {
	f := newFixture(t)

	err := f.gate.Check(filepath.Join(f.system, "kernel"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDenied)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reason, "protected tree")

	assert.NoError(t, f.gate.Check(f.cache))
}

func TestRemove(t *testing.T) {
	f := newFixture(t)

	victim := filepath.Join(f.cache, "blob.bin")
	require.NoError(t, os.WriteFile(victim, []byte("x"), 0o600))
	require.NoError(t, f.gate.Remove(victim))
	assert.NoFileExists(t, victim)

	protected := filepath.Join(f.system, "kernel")
	assert.ErrorIs(t, f.gate.Remove(protected), ErrDenied)
	assert.FileExists(t, protected)
}

func TestRemove_NotRecursive(t *testing.T) {
	f := newFixture(t)

	dir := filepath.Join(f.cache, "full")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("a"), 0o600))

	assert.Error(t, f.gate.Remove(dir))
	assert.DirExists(t, dir)
}

func TestRemove_LinkEntryIsUnlinked(t *testing.T) {
	f := newFixture(t)
	link := filepath.Join(f.cache, "y")
	symlinkOrSkip(t, f.system, link)

	require.NoError(t, f.gate.Remove(link))
	_, err := os.Lstat(link)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, filepath.Join(f.system, "kernel"))
}

func TestRemove_ThroughLinkedParentDenied(t *testing.T) {
	f := newFixture(t)
	link := filepath.Join(f.cache, "y")
	symlinkOrSkip(t, f.system, link)

	assert.ErrorIs(t, f.gate.Remove(filepath.Join(link, "kernel")), ErrDenied)
	assert.FileExists(t, filepath.Join(f.system, "kernel"))
}

func TestDefaultProtected_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux layout")
	}

	home := filepath.Join(string(filepath.Separator), "home", "shader-buster-test")
	g := New(fsys.NewOS(), DefaultProtected("linux", home, func(string) string { return "" }))

	assert.False(t, g.Permits("/").Allowed)
	assert.False(t, g.Permits("/usr/share/fonts").Allowed)
	assert.False(t, g.Permits("/etc").Allowed)
	assert.False(t, g.Permits(home).Allowed)
	assert.True(t, g.Permits(filepath.Join(home, ".cache", "mesa_shader_cache")).Allowed)
}

func TestDefaultProtected_Windows(t *testing.T) {
	env := map[string]string{
		"SystemDrive":  "D:",
		"SystemRoot":   `D:\WINNT`,
		"ProgramFiles": `D:\Apps`,
		"USERPROFILE":  `D:\Users\me`,
	}
	p := DefaultProtected("windows", `D:\Users\me`, func(k string) string { return env[k] })

	assert.Equal(t, []string{`D:\WINNT`, `D:\Apps`}, p.Trees)
	assert.Contains(t, p.Exact, `D:\`)
	assert.Contains(t, p.Exact, `D:\Users\me`)
}
