package pbs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolo(t *testing.T) {
	g := Solo{}
	assert.Equal(t, 0, g.Rank())
	assert.Equal(t, 1, g.Size())
	assert.NoError(t, g.Barrier())
}

func TestNewFileGroup_Validation(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileGroup(dir, 0, 0)
	assert.Error(t, err)
	_, err = NewFileGroup(dir, 2, 2)
	assert.Error(t, err)
	_, err = NewFileGroup(dir, -1, 2)
	assert.Error(t, err)
}

func TestFileGroup_BarrierSynchronizes(t *testing.T) {
	// No member may leave the barrier before the last one has entered it.
	dir := t.TempDir()
	const size = 4

	var entered int32
	var wg sync.WaitGroup
	for rank := 0; rank < size; rank++ {
		g, err := NewFileGroup(dir, rank, size)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt32(&entered, 1)
			assert.NoError(t, g.Barrier())
			assert.Equal(t, int32(size), atomic.LoadInt32(&entered))
		}()
	}
	wg.Wait()
}

func TestFileGroup_ConsecutiveBarriers(t *testing.T) {
	// Each barrier uses a fresh epoch, so leftover markers from the first
	// cannot satisfy the second early.
	dir := t.TempDir()
	const size = 3

	groups := make([]*FileGroup, size)
	for rank := 0; rank < size; rank++ {
		g, err := NewFileGroup(dir, rank, size)
		require.NoError(t, err)
		groups[rank] = g
	}

	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		for _, g := range groups {
			wg.Add(1)
			go func(g *FileGroup) {
				defer wg.Done()
				assert.NoError(t, g.Barrier())
			}(g)
		}
		wg.Wait()
	}
}

// === FillAsLeader ===

type fakeGroup struct {
	rank, size int
	barriers   int
}

func (g *fakeGroup) Rank() int { return g.rank }
func (g *fakeGroup) Size() int { return g.size }
func (g *fakeGroup) Barrier() error {
	g.barriers++
	return nil
}

type fakeFiller struct {
	full    bool
	touched []int
	fail    error
}

func (f *fakeFiller) IsFull() (bool, error) { return f.full, nil }
func (f *fakeFiller) Touch(idx int) error {
	if f.fail != nil {
		return f.fail
	}
	f.touched = append(f.touched, idx)
	return nil
}

func TestFillAsLeader_LeaderFillsAllIndices(t *testing.T) {
	g := &fakeGroup{rank: 0, size: 2}
	f := &fakeFiller{}
	require.NoError(t, FillAsLeader(g, f, 5, "test"))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, f.touched)
	assert.Equal(t, 1, g.barriers)
}

func TestFillAsLeader_FollowerOnlyWaits(t *testing.T) {
	g := &fakeGroup{rank: 1, size: 2}
	f := &fakeFiller{}
	require.NoError(t, FillAsLeader(g, f, 5, "test"))
	assert.Empty(t, f.touched)
	assert.Equal(t, 1, g.barriers)
}

func TestFillAsLeader_FullCacheSkipsGeneration(t *testing.T) {
	g := &fakeGroup{rank: 0, size: 1}
	f := &fakeFiller{full: true}
	require.NoError(t, FillAsLeader(g, f, 5, "test"))
	assert.Empty(t, f.touched)
	assert.Equal(t, 1, g.barriers)
}

func TestFillAsLeader_PropagatesTouchError(t *testing.T) {
	g := &fakeGroup{rank: 0, size: 1}
	f := &fakeFiller{fail: errors.New("disk full")}
	err := FillAsLeader(g, f, 5, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, g.barriers)
}
