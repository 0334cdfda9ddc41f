package phases

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/store"
)

// AlmCache holds harmonic-space phase realizations: per index, fieldCount
// independent unit-variance complex Gaussian vectors in the projection's
// condensed alm layout.
type AlmCache struct {
	cache
	proj *geom.Projection
}

// NewAlmCache opens (or creates) an alm phase cache. The key must encode
// every parameter that affects content: simulation count, sky fraction and
// field-set variant included.
func NewAlmCache(st *store.Store, key store.Key, fieldCount int, proj *geom.Projection, nmax int) (*AlmCache, error) {
	if fieldCount < 1 || nmax < 1 {
		return nil, fmt.Errorf("phases: need at least one field and one simulation, got %d/%d", fieldCount, nmax)
	}
	if err := st.EnsureDir(key); err != nil {
		return nil, err
	}
	return &AlmCache{
		cache: cache{st: st, key: key, fields: fieldCount, nmax: nmax},
		proj:  proj,
	}, nil
}

// Proj returns the harmonic layout the phases are drawn on.
func (c *AlmCache) Proj() *geom.Projection { return c.proj }

// Get returns the phase realization for idx, generating and committing it
// first if missing. Field f of the result has unit variance per mode.
func (c *AlmCache) Get(idx int) ([][]complex128, error) {
	a, err := c.get(idx, c.draw)
	if err != nil {
		return nil, err
	}
	out := make([][]complex128, c.fields)
	for f := 0; f < c.fields; f++ {
		fld := a.Field(fieldName(f))
		if fld == nil || fld.Complex == nil {
			return nil, store.CorruptArtifactError{
				Path:   fmt.Sprintf("%v/%s", c.key.Segments(), artifactName(idx)),
				Reason: fmt.Sprintf("missing complex field %s", fieldName(f)),
			}
		}
		out[f] = fld.Complex
	}
	return out, nil
}

// Touch generates realization idx if missing, discarding the data.
func (c *AlmCache) Touch(idx int) error {
	_, err := c.get(idx, c.draw)
	return err
}

func (c *AlmCache) draw(rng *rand.Rand) *store.Artifact {
	n := c.proj.Nalm()
	a := &store.Artifact{}
	sigma := 1 / math.Sqrt2
	for f := 0; f < c.fields; f++ {
		v := make([]complex128, n)
		for i := range v {
			v[i] = complex(rng.NormFloat64()*sigma, rng.NormFloat64()*sigma)
		}
		a.Fields = append(a.Fields, store.Field{Name: fieldName(f), Complex: v})
	}
	return a
}

func fieldName(f int) string { return fmt.Sprintf("pha_%d", f) }
