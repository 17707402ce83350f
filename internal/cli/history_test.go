package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyEntries(t *testing.T, loader *config.Loader) []history.Entry {
	t.Helper()
	var err error
	output := captureStdout(t, func() {
		err = runHistoryListWithLoader(loader, 0, true)
	})
	require.NoError(t, err)

	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	return entries
}

func cleanOnce(t *testing.T, env testEnv) {
	t.Helper()
	captureStdout(t, func() {
		require.NoError(t, runCleanWithLoader(env.loader, nil, cleanFlags{all: true, force: true}, strings.NewReader("")))
	})
}

func TestHistoryList_Empty(t *testing.T) {
	env := createTempConfig(t)

	var err error
	output := captureStdout(t, func() {
		err = runHistoryListWithLoader(env.loader, 20, false)
	})
	require.NoError(t, err)
	assert.Contains(t, output, "No cleanups recorded")

	assert.Empty(t, historyEntries(t, env.loader))
}

func TestHistoryList_Table(t *testing.T) {
	env := createTempConfig(t, createCache(t))
	cleanOnce(t, env)

	var err error
	output := captureStdout(t, func() {
		err = runHistoryListWithLoader(env.loader, 20, false)
	})
	require.NoError(t, err)

	assert.Contains(t, output, "Freed")
	assert.Contains(t, output, "30 B")
	assert.Contains(t, output, "custom")
}

func TestHistoryList_Limit(t *testing.T) {
	cacheDir := createCache(t)
	env := createTempConfig(t, cacheDir)
	cleanOnce(t, env)
	cleanOnce(t, env)

	var err error
	output := captureStdout(t, func() {
		err = runHistoryListWithLoader(env.loader, 1, true)
	})
	require.NoError(t, err)

	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	assert.Len(t, entries, 1)
}

func TestHistoryTotals(t *testing.T) {
	env := createTempConfig(t, createCache(t))
	cleanOnce(t, env)

	var err error
	output := captureStdout(t, func() {
		err = runHistoryTotalsWithLoader(env.loader, true)
	})
	require.NoError(t, err)

	var totals history.Totals
	require.NoError(t, json.Unmarshal([]byte(output), &totals))
	assert.Equal(t, int64(1), totals.Runs)
	assert.Equal(t, int64(2), totals.FilesDeleted)
	assert.Equal(t, int64(30), totals.BytesFreed)

	output = captureStdout(t, func() {
		err = runHistoryTotalsWithLoader(env.loader, false)
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Freed 30 B in 1 cleanup")
}

func TestHistoryClear(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		env := createTempConfig(t, createCache(t))
		cleanOnce(t, env)

		var err error
		output := captureStdout(t, func() {
			err = runHistoryClearWithLoader(env.loader, false, strings.NewReader("n\n"))
		})
		require.NoError(t, err)

		assert.Contains(t, output, "Aborted")
		assert.Len(t, historyEntries(t, env.loader), 1)
	})

	t.Run("forced", func(t *testing.T) {
		env := createTempConfig(t, createCache(t))
		cleanOnce(t, env)

		var err error
		output := captureStdout(t, func() {
			err = runHistoryClearWithLoader(env.loader, true, strings.NewReader(""))
		})
		require.NoError(t, err)

		assert.Contains(t, output, "History cleared")
		assert.Empty(t, historyEntries(t, env.loader))
	})
}
