package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Automaat/shader-buster/internal/cleanup"
	"github.com/Automaat/shader-buster/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a throwaway settings file whose only enabled provider is
// "custom", pointed at cacheDirs.
type testEnv struct {
	loader    *config.Loader
	backupDir string
	dbPath    string
}

func createTempConfig(t *testing.T, cacheDirs ...string) testEnv {
	t.Helper()
	tmpDir := t.TempDir()
	env := testEnv{
		backupDir: filepath.Join(tmpDir, "backups"),
		dbPath:    filepath.Join(tmpDir, "history.db"),
	}

	names := make([]string, 0)
	for name := range config.DefaultProviders() {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("schema_version: 2\nproviders:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s:\n    enabled: %t\n", name, name == "custom")
	}
	b.WriteString("custom_paths:\n")
	for _, dir := range cacheDirs {
		fmt.Fprintf(&b, "  - %q\n", dir)
	}
	fmt.Fprintf(&b, "backup:\n  auto: false\n  root: %q\n  headroom: \"\"\n", env.backupDir)
	fmt.Fprintf(&b, "history:\n  path: %q\n  max_entries: 100\n", env.dbPath)
	b.WriteString("log:\n  level: \"off\"\n  format: console\n")

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(b.String()), 0o600))

	env.loader = newLoader()
	env.loader.SetConfigPath(cfgPath)
	return env
}

// createCache fills a directory with 30 bytes in two files.
func createCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pipeline"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.bin"), make([]byte, 10), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline", "blob.bin"), make([]byte, 20), 0o600))
	return dir
}

func boolPtr(b bool) *bool {
	return &b
}

func TestClean_NoArgsNoAll(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	err := runCleanWithLoader(env.loader, nil, cleanFlags{}, strings.NewReader(""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "specify providers or use --all")
	assert.Contains(t, err.Error(), "custom")
}

func TestClean_UnknownProvider(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	err := runCleanWithLoader(env.loader, []string{"nonexistent"}, cleanFlags{}, strings.NewReader(""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown providers: nonexistent")
	assert.Contains(t, err.Error(), "Available: custom")
}

func TestClean_DisabledProviderIsUnknown(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	err := runCleanWithLoader(env.loader, []string{"nvidia"}, cleanFlags{}, strings.NewReader(""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown providers: nvidia")
}

func TestClean_DryRun(t *testing.T) {
	cacheDir := createCache(t)
	env := createTempConfig(t, cacheDir)

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, dryRun: true}, strings.NewReader(""))
	})
	require.NoError(t, err)

	assert.Contains(t, output, "Would clean 1 location(s)")
	assert.Contains(t, output, "[dry-run]")
	assert.FileExists(t, filepath.Join(cacheDir, "index.bin"))
	assert.FileExists(t, filepath.Join(cacheDir, "pipeline", "blob.bin"))
}

func TestClean_Force_SkipsConfirmation(t *testing.T) {
	cacheDir := createCache(t)
	env := createTempConfig(t, cacheDir)

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, []string{"custom"}, cleanFlags{force: true}, strings.NewReader(""))
	})
	require.NoError(t, err)

	assert.NotContains(t, output, "[y/N]")
	assert.Contains(t, output, "Cleaned 1 location(s)")
	assert.Contains(t, output, "Freed 30 B")

	assert.DirExists(t, cacheDir, "location root is kept")
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClean_ConfirmationYes(t *testing.T) {
	cacheDir := createCache(t)
	env := createTempConfig(t, cacheDir)

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true}, strings.NewReader("y\n"))
	})
	require.NoError(t, err)

	assert.Contains(t, output, "Delete caches of 1 provider(s): custom? [y/N]")
	assert.NoFileExists(t, filepath.Join(cacheDir, "index.bin"))
}

func TestClean_ConfirmationNo(t *testing.T) {
	cacheDir := createCache(t)
	env := createTempConfig(t, cacheDir)

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true}, strings.NewReader("n\n"))
	})
	require.NoError(t, err)

	assert.Contains(t, output, "Aborted")
	assert.FileExists(t, filepath.Join(cacheDir, "index.bin"))
}

func TestClean_ConfirmationMentionsBackup(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	output := captureStdout(t, func() {
		_ = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, backup: boolPtr(true)}, strings.NewReader("\n"))
	})

	assert.Contains(t, output, "with backup")
	assert.Contains(t, output, "Aborted")
}

func TestClean_QuietMode(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true, quiet: true}, strings.NewReader(""))
	})
	require.NoError(t, err)

	assert.Equal(t, "30 B\n", output)
}

func TestClean_JSON(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true, json: true}, strings.NewReader(""))
	})
	require.NoError(t, err)

	var report CleanReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, "30 B", report.Freed)
	assert.Equal(t, int64(2), report.Stats.FilesDeleted)
	assert.Equal(t, int64(1), report.Stats.DirectoriesDeleted)
	assert.Equal(t, int64(30), report.Stats.BytesFreed)
	require.Len(t, report.Locations, 1)
	assert.Equal(t, "custom", report.Locations[0].Provider)
	assert.Empty(t, report.BackupID)
}

func TestClean_NothingToClean(t *testing.T) {
	env := createTempConfig(t, filepath.Join(t.TempDir(), "missing"))

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true, json: true}, strings.NewReader(""))
	})
	require.NoError(t, err)

	var report CleanReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, "nothing to clean", report.Status)
	assert.Empty(t, report.Locations)
}

func TestClean_RecordsHistory(t *testing.T) {
	env := createTempConfig(t, createCache(t))

	captureStdout(t, func() {
		require.NoError(t, runCleanWithLoader(env.loader, nil, cleanFlags{all: true, dryRun: true}, strings.NewReader("")))
		require.NoError(t, runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true}, strings.NewReader("")))
	})

	entries := historyEntries(t, env.loader)
	require.Len(t, entries, 1, "dry runs are not recorded")
	assert.Equal(t, []string{"custom"}, entries[0].ProvidersUsed)
	assert.Equal(t, int64(30), entries[0].BytesFreed)
	assert.False(t, entries[0].DryRun)
}

func TestClean_WithBackup(t *testing.T) {
	cacheDir := createCache(t)
	env := createTempConfig(t, cacheDir)

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true, json: true, backup: boolPtr(true)}, strings.NewReader(""))
	})
	require.NoError(t, err)

	var report CleanReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, "completed", report.Status)
	require.NotEmpty(t, report.BackupID)
	assert.DirExists(t, filepath.Join(env.backupDir, report.BackupID))
	assert.NoFileExists(t, filepath.Join(cacheDir, "index.bin"))

	entries := historyEntries(t, env.loader)
	require.Len(t, entries, 1)
	assert.Equal(t, report.BackupID, entries[0].BackupID)
}

func TestClean_DestImpliesBackup(t *testing.T) {
	env := createTempConfig(t, createCache(t))
	dest := filepath.Join(t.TempDir(), "elsewhere")

	var err error
	output := captureStdout(t, func() {
		err = runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true, json: true, dest: dest}, strings.NewReader(""))
	})
	require.NoError(t, err)

	var report CleanReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	require.NotEmpty(t, report.BackupID)
	assert.DirExists(t, filepath.Join(dest, report.BackupID))
	assert.NoDirExists(t, env.backupDir)
}

func TestClean_CorruptConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("providers: [unterminated"), 0o600))
	loader := newLoader()
	loader.SetConfigPath(cfgPath)

	err := runCleanWithLoader(loader, nil, cleanFlags{all: true, force: true}, strings.NewReader(""))

	var corrupt *config.CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, cfgPath, corrupt.Path)
}

func TestCleanCmd_HasFlags(t *testing.T) {
	flags := CleanCmd.Flags()

	for _, name := range []string{"all", "dry-run", "force", "quiet", "json", "backup", "dest"} {
		assert.NotNil(t, flags.Lookup(name), "missing --%s", name)
	}
}

func TestConfirmClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"full yes", "YES\n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
		{"eof", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			captureStdout(t, func() {
				got = confirmClean(nil, cleanup.Options{}, strings.NewReader(tt.input))
			})
			assert.Equal(t, tt.want, got)
		})
	}
}
