// Package phases generates and caches per-simulation random phase
// realizations. Each index is drawn from an RNG whose seed is derived from
// the cache identity and the index alone, committed to disk exactly once,
// and bit-identical on every subsequent read.
package phases

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/mfrobertson/LensIt/sim/store"
)

// IndexError reports a request for a simulation index outside the cache's
// configured range. It signals a configuration error, not a transient state.
type IndexError struct {
	Index, Count int
}

func (e IndexError) Error() string {
	return fmt.Sprintf("phases: index %d out of range (cache holds %d simulations)", e.Index, e.Count)
}

// seedFor derives the RNG seed of one realization from the cache identity
// and the index, in the spirit of a partitioned master seed: FNV-1a of the
// key path XOR FNV-1a of the per-index tag.
func seedFor(key store.Key, idx int) int64 {
	return fnv1a64(strings.Join(key.Segments(), "/")) ^ fnv1a64("sim_"+strconv.Itoa(idx))
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

func artifactName(idx int) string {
	return fmt.Sprintf("sim_%04d", idx)
}

// cache carries the pieces shared by the alm- and pixel-space variants.
type cache struct {
	st     *store.Store
	key    store.Key
	fields int
	nmax   int
	sf     singleflight.Group
}

// Exists reports whether realization idx has been committed.
func (c *cache) Exists(idx int) (bool, error) {
	return c.st.Exists(c.key, artifactName(idx))
}

// IsFull reports whether realizations for all indices 0..nmax-1 exist on
// disk. Once true it stays true: realizations are never deleted.
func (c *cache) IsFull() (bool, error) {
	for i := 0; i < c.nmax; i++ {
		ok, err := c.Exists(i)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// FieldCount returns the number of random fields per realization.
func (c *cache) FieldCount() int { return c.fields }

// SimCount returns the configured number of realizations.
func (c *cache) SimCount() int { return c.nmax }

// Key returns the structured cache identity.
func (c *cache) Key() store.Key { return c.key }

// get runs gen for idx at most once per process (concurrent callers for the
// same index share one generation) and commits the result if missing.
func (c *cache) get(idx int, gen func(rng *rand.Rand) *store.Artifact) (*store.Artifact, error) {
	if idx < 0 || idx >= c.nmax {
		return nil, IndexError{Index: idx, Count: c.nmax}
	}
	v, err, _ := c.sf.Do(strconv.Itoa(idx), func() (interface{}, error) {
		ok, err := c.Exists(idx)
		if err != nil {
			return nil, err
		}
		if ok {
			return c.st.Read(c.key, artifactName(idx))
		}
		a := gen(rand.New(rand.NewSource(seedFor(c.key, idx))))
		if err := c.st.Write(c.key, artifactName(idx), a); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Artifact), nil
}
