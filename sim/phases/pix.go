package phases

import (
	"fmt"
	"math/rand"

	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/store"
)

// PixCache holds pixel-space phase realizations: per index, fieldCount
// independent standard-normal maps on the grid. Used for instrumental noise,
// one field per temperature/Q/U channel.
type PixCache struct {
	cache
	mat *geom.EllMat
}

// NewPixCache opens (or creates) a pixel phase cache on the given grid.
func NewPixCache(st *store.Store, key store.Key, fieldCount int, mat *geom.EllMat, nmax int) (*PixCache, error) {
	if fieldCount < 1 || nmax < 1 {
		return nil, fmt.Errorf("phases: need at least one field and one simulation, got %d/%d", fieldCount, nmax)
	}
	if err := st.EnsureDir(key); err != nil {
		return nil, err
	}
	return &PixCache{
		cache: cache{st: st, key: key, fields: fieldCount, nmax: nmax},
		mat:   mat,
	}, nil
}

// Mat returns the pixel grid the phases are drawn on.
func (c *PixCache) Mat() *geom.EllMat { return c.mat }

// Get returns the pixel phase realization for idx, generating and committing
// it first if missing. Each field is a flat row-major map of Npix values.
func (c *PixCache) Get(idx int) ([][]float64, error) {
	a, err := c.get(idx, c.draw)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, c.fields)
	for f := 0; f < c.fields; f++ {
		fld := a.Field(fieldName(f))
		if fld == nil || fld.Real == nil {
			return nil, store.CorruptArtifactError{
				Path:   fmt.Sprintf("%v/%s", c.key.Segments(), artifactName(idx)),
				Reason: fmt.Sprintf("missing real field %s", fieldName(f)),
			}
		}
		out[f] = fld.Real
	}
	return out, nil
}

// Touch generates realization idx if missing, discarding the data.
func (c *PixCache) Touch(idx int) error {
	_, err := c.get(idx, c.draw)
	return err
}

func (c *PixCache) draw(rng *rand.Rand) *store.Artifact {
	a := &store.Artifact{}
	for f := 0; f < c.fields; f++ {
		v := make([]float64, c.mat.Npix())
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		a.Fields = append(a.Fields, store.Field{Name: fieldName(f), Real: v})
	}
	return a
}
