package cleanup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, h *Handle) Result {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
	}
	return h.Wait()
}

func TestRunner_RejectsSecondStart(t *testing.T) {
	h := newHarness(t)
	runner := NewRunner(h.orch)
	slow := &staticProvider{name: "gpu", priority: 20, paths: []string{h.cache}, release: make(chan struct{})}

	first, err := runner.Start(context.Background(), []provider.Provider{slow}, Options{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Same(t, first, runner.Active())

	_, err = runner.Start(context.Background(), []provider.Provider{cacheProvider(h.cache)}, Options{}, nil)
	assert.ErrorIs(t, err, ErrRunActive)

	close(slow.release)
	res := waitDone(t, first)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Nil(t, runner.Active())

	second, err := runner.Start(context.Background(), nil, Options{}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StatusNothingToClean, waitDone(t, second).Status)
}

func TestRunner_Cancel(t *testing.T) {
	h := newHarness(t)
	runner := NewRunner(h.orch)
	blocked := &staticProvider{name: "gpu", priority: 20, paths: []string{h.cache}, release: make(chan struct{})}

	handle, err := runner.Start(context.Background(), []provider.Provider{blocked}, Options{}, nil)
	require.NoError(t, err)

	assert.True(t, handle.Cancel())
	assert.False(t, handle.Cancel())
	close(blocked.release)

	res := waitDone(t, handle)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Zero(t, res.Stats.FilesDeleted)
	assert.FileExists(t, filepath.Join(h.cache, "a.bin"))
	assert.Empty(t, h.history.Entries())
}

func TestRunner_StreamsToChannelObserver(t *testing.T) {
	h := newHarness(t)
	runner := NewRunner(h.orch)
	obs := NewChannelObserver(64)

	handle, err := runner.Start(context.Background(), []provider.Provider{cacheProvider(h.cache)}, Options{DryRun: true}, obs)
	require.NoError(t, err)

	var last Progress
	for p := range obs.C() {
		last = p
	}
	res := waitDone(t, handle)

	assert.Equal(t, StateCompleted, last.State)
	assert.Equal(t, float64(100), last.Percent)
	assert.Equal(t, res.Stats.FilesDeleted, last.Stats.FilesDeleted)
}
