package pbs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Filler is a cache that can be completed one index at a time. Touch must be
// idempotent: generating an index that already exists is a no-op.
type Filler interface {
	IsFull() (bool, error)
	Touch(idx int) error
}

// FillAsLeader completes the cache on rank 0 and then synchronizes the whole
// group, so that when it returns no worker can observe a partial cache.
// Indices already on disk are left untouched; only missing ones are
// generated.
func FillAsLeader(g Group, f Filler, n int, label string) error {
	full, err := f.IsFull()
	if err != nil {
		return err
	}
	if !full && g.Rank() == 0 {
		logrus.Infof("%s: generating %d realizations", label, n)
		lastPct := -1
		for i := 0; i < n; i++ {
			if err := f.Touch(i); err != nil {
				return fmt.Errorf("%s: index %d: %w", label, i, err)
			}
			if pct := (i + 1) * 100 / n; pct/10 > lastPct/10 {
				logrus.Infof("%s: %3d%% (%d/%d)", label, pct, i+1, n)
				lastPct = pct
			}
		}
	}
	return g.Barrier()
}
