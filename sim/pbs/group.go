// Package pbs coordinates a fixed-size group of cooperating worker
// processes. The rank-0 worker is the leader by convention: it alone fills
// missing cache entries while the rest rendezvous at a barrier, so no worker
// ever reads a partially generated cache.
package pbs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Group identifies one worker within a fixed-size set and provides the
// rendezvous barrier the set synchronizes on.
type Group interface {
	// Rank is this worker's index in [0, Size).
	Rank() int
	// Size is the number of cooperating workers.
	Size() int
	// Barrier blocks until every worker in the group has entered it.
	Barrier() error
}

// Solo is the single-process group: rank 0 of 1, no-op barrier.
type Solo struct{}

func (Solo) Rank() int      { return 0 }
func (Solo) Size() int      { return 1 }
func (Solo) Barrier() error { return nil }

// FileGroup synchronizes OS processes through marker files in a shared
// directory. Each barrier uses a fresh epoch so markers from earlier
// barriers never satisfy a later one. There is no timeout: a stalled worker
// stalls the whole group.
type FileGroup struct {
	rank, size int
	dir        string
	epoch      int
	poll       time.Duration
}

// NewFileGroup creates a file-backed group. All workers of a run must share
// dir and agree on size. dir must be unique to the run: markers of a
// completed run stay behind, and in a reused directory they would release
// another run's first barrier before its workers have arrived.
func NewFileGroup(dir string, rank, size int) (*FileGroup, error) {
	if size < 1 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("pbs: invalid rank %d of %d", rank, size)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pbs: barrier dir: %w", err)
	}
	return &FileGroup{rank: rank, size: size, dir: dir, poll: 50 * time.Millisecond}, nil
}

func (g *FileGroup) Rank() int { return g.rank }
func (g *FileGroup) Size() int { return g.size }

func (g *FileGroup) marker(epoch, rank int) string {
	return filepath.Join(g.dir, fmt.Sprintf("b%06d.r%03d", epoch, rank))
}

// Barrier writes this worker's marker for the current epoch and polls until
// all ranks have written theirs. Markers of the previous epoch are removed
// once the new one completes; by then every rank has passed it.
func (g *FileGroup) Barrier() error {
	if err := os.WriteFile(g.marker(g.epoch, g.rank), nil, 0o644); err != nil {
		return fmt.Errorf("pbs: barrier marker: %w", err)
	}
	prefix := fmt.Sprintf("b%06d.", g.epoch)
	for {
		entries, err := os.ReadDir(g.dir)
		if err != nil {
			return fmt.Errorf("pbs: barrier poll: %w", err)
		}
		arrived := 0
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), prefix) {
				arrived++
			}
		}
		if arrived >= g.size {
			break
		}
		time.Sleep(g.poll)
	}
	if g.epoch > 0 {
		os.Remove(g.marker(g.epoch-1, g.rank))
	}
	g.epoch++
	return nil
}
