package sim

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfrobertson/LensIt/sim/pbs"
)

func TestLoadEnv_MissingRoot(t *testing.T) {
	t.Setenv("LENSIT", "")
	_, err := LoadEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEnvironment))
}

func TestLoadEnv_Defaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LENSIT", root)
	for _, k := range []string{"LENSIT_CLS", "OMP_NUM_THREADS", "LENSIT_RANK", "LENSIT_SIZE"} {
		t.Setenv(k, "") // register restoration, then clear
		os.Unsetenv(k)
	}

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, root, e.Root)
	assert.Equal(t, filepath.Join(root, "data", "cls"), e.ClsDir)
	assert.Equal(t, 1, e.Threads)
	assert.Equal(t, 0, e.Rank)
	assert.Equal(t, 1, e.Size)

	g, err := e.Group()
	require.NoError(t, err)
	assert.IsType(t, pbs.Solo{}, g)
}

func TestLoadEnv_Overrides(t *testing.T) {
	root := t.TempDir()
	cls := t.TempDir()
	t.Setenv("LENSIT", root)
	t.Setenv("LENSIT_CLS", cls)
	t.Setenv("OMP_NUM_THREADS", "8")
	t.Setenv("LENSIT_RANK", "2")
	t.Setenv("LENSIT_SIZE", "4")
	t.Setenv("LENSIT_JOBID", "12345")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, cls, e.ClsDir)
	assert.Equal(t, 8, e.Threads)
	assert.Equal(t, "12345", e.JobID)

	g, err := e.Group()
	require.NoError(t, err)
	assert.Equal(t, 2, g.Rank())
	assert.Equal(t, 4, g.Size())
}

func TestEnv_GroupRejectsBadRank(t *testing.T) {
	e := Env{Root: t.TempDir(), Rank: 4, Size: 4, JobID: "j"}
	_, err := e.Group()
	assert.Error(t, err)
}

func TestEnv_GroupRequiresJobID(t *testing.T) {
	e := Env{Root: t.TempDir(), Rank: 0, Size: 2}
	_, err := e.Group()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingJobID))
}

func TestEnv_GroupScopesBarriersPerRun(t *testing.T) {
	// A completed run leaves its final-epoch markers behind. A later run
	// over the same cache root must not rendezvous on them: its first
	// barrier stays closed until its own second rank arrives.
	root := t.TempDir()
	group := func(rank int, job string) pbs.Group {
		g, err := Env{Root: root, Rank: rank, Size: 2, JobID: job}.Group()
		require.NoError(t, err)
		return g
	}

	// First run completes a barrier, leaving markers under its directory.
	first0, first1 := group(0, "run1"), group(1, "run1")
	var wg sync.WaitGroup
	for _, g := range []pbs.Group{first0, first1} {
		wg.Add(1)
		go func(g pbs.Group) {
			defer wg.Done()
			assert.NoError(t, g.Barrier())
		}(g)
	}
	wg.Wait()

	// The resumed run's lone rank must still be blocked.
	resumed0 := group(0, "run2")
	done := make(chan error, 1)
	go func() { done <- resumed0.Barrier() }()
	select {
	case <-done:
		t.Fatal("barrier released before the second rank of the run arrived")
	case <-time.After(300 * time.Millisecond):
	}

	// It opens once the same run's second rank enters.
	require.NoError(t, group(1, "run2").Barrier())
	require.NoError(t, <-done)
}
