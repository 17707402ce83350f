package cache

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/Automaat/shader-buster/internal/config"
	"github.com/Automaat/shader-buster/internal/fsys"
	"github.com/Automaat/shader-buster/pkg/size"
	"github.com/stretchr/testify/require"
)

// TestMeasureAgainstDu compares Measure with du on the local Mesa cache, when one exists.
func TestMeasureAgainstDu(t *testing.T) {
	if testing.Short() || runtime.GOOS != "linux" {
		t.Skip("integration test")
	}

	paths, err := config.ExpandPaths([]string{filepath.Join("~", ".cache", "mesa_shader_cache")})
	if err != nil || len(paths) == 0 {
		t.Skip("no mesa shader cache")
	}
	if _, err := os.Stat(paths[0]); err != nil {
		t.Skip("no mesa shader cache")
	}

	res, err := Measure(context.Background(), fsys.NewOS(), paths[0])
	require.NoError(t, err)

	out, err := exec.Command("du", "-sb", paths[0]).Output()
	if err != nil {
		t.Skipf("du failed: %v", err)
	}
	fields := strings.Fields(string(out))
	require.NotEmpty(t, fields)
	duSize, err := strconv.ParseInt(fields[0], 10, 64)
	require.NoError(t, err)

	t.Logf("Measure: %d (%s), du -sb: %d (%s)", res.Bytes, size.Format(res.Bytes), duSize, size.Format(duSize))
	if duSize == 0 {
		require.Zero(t, res.Bytes)
		return
	}

	// du also counts directory entries, so allow some slack.
	diff := duSize - res.Bytes
	if diff < 0 {
		diff = -diff
	}
	if pct := float64(diff) / float64(duSize) * 100; pct > 5 {
		t.Errorf("size difference %.2f%% > 5%%: ours=%d, du=%d", pct, res.Bytes, duSize)
	}
}
