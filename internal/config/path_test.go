package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHome points the user home directory at a temp dir for the test.
func fakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestExpandTilde(t *testing.T) {
	home := fakeHome(t)

	tests := map[string]string{
		"~":                   home,
		"~/AppData/Local":     filepath.Join(home, "AppData/Local"),
		"/var/cache/mesa":     "/var/cache/mesa",
		"shadercache":         "shadercache",
		"/games/~steam/cache": "/games/~steam/cache",
		"~other/cache":        "~other/cache",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			got, err := ExpandTilde(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestExpandPaths(t *testing.T) {
	home := fakeHome(t)
	t.Setenv("SB_GAMES", home)

	games := filepath.Join(home, "games")
	for _, name := range []string{"alpha", "beta"} {
		require.NoError(t, os.MkdirAll(filepath.Join(games, name, "shadercache"), 0o750))
	}

	t.Run("literal paths pass through", func(t *testing.T) {
		got, err := ExpandPaths([]string{"~/dxcache", "/opt/cache"})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(home, "dxcache"), "/opt/cache"}, got)
	})

	t.Run("env vars are expanded", func(t *testing.T) {
		got, err := ExpandPaths([]string{"$SB_GAMES/dxcache"})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(home, "dxcache")}, got)
	})

	t.Run("globs expand to matches", func(t *testing.T) {
		got, err := ExpandPaths([]string{"~/games/*/shadercache"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(games, "alpha", "shadercache"),
			filepath.Join(games, "beta", "shadercache"),
		}, got)
	})

	t.Run("glob without matches yields nothing", func(t *testing.T) {
		got, err := ExpandPaths([]string{"~/games/*/GLCache"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bad glob", func(t *testing.T) {
		_, err := ExpandPaths([]string{"~/games/[a"})
		assert.Error(t, err)
	})
}

func TestStandardPaths(t *testing.T) {
	home := fakeHome(t)

	dir, err := DirPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "shader-buster"), dir)

	file, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), file)

	data, err := DataDirPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "shader-buster"), data)
}

func TestHistoryPath(t *testing.T) {
	home := fakeHome(t)
	cfg := DefaultConfig()

	got, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "shader-buster", "history.db"), got)

	cfg.History.Path = "~/runs.db"
	got, err = cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "runs.db"), got)
}

func TestBackupRoot(t *testing.T) {
	home := fakeHome(t)
	cfg := DefaultConfig()

	cfg.Backup.Root = "~/shader-backups"
	got, err := cfg.BackupRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "shader-backups"), got)
}
