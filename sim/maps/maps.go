// Package maps builds the observed-data simulation library: beam-convolved
// lensed skies regridded onto the data geometry with pixel noise added.
package maps

import (
	"fmt"

	"github.com/mfrobertson/LensIt/sim/cmbs"
	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/phases"
	"github.com/mfrobertson/LensIt/sim/store"
	"github.com/mfrobertson/LensIt/sim/transform"
)

// NoiseChannels is the number of pixel noise fields per realization:
// temperature, Q and U polarization.
const NoiseChannels = 3

// Maps is one observed realization: pixel maps on the data grid.
type Maps struct {
	T, Q, U []float64
}

// NoiseLevels are the per-pixel noise standard deviations of the three
// channels, in map units.
type NoiseLevels struct {
	T, Q, U float64
}

// Library is the noisy-map simulation library. Realization idx is a pure
// function of the lensed-sky library's idx output, the beam transfer
// function, and the pixel phase cache's idx output scaled by the noise
// levels.
type Library struct {
	st        *store.Store
	key       store.Key
	eng       transform.Engine // data geometry
	sky       *cmbs.Library
	transf    []float64
	noise     NoiseLevels
	pixPha    *phases.PixCache
	cacheMaps bool
}

// New validates the composition. The pixel phase cache must live on the data
// grid with one field per noise channel and cover the same simulation count
// as the sky library.
func New(st *store.Store, key store.Key, eng transform.Engine, sky *cmbs.Library,
	transf []float64, noise NoiseLevels, pixPha *phases.PixCache, cacheMaps bool) (*Library, error) {
	if pixPha.FieldCount() != NoiseChannels {
		return nil, fmt.Errorf("maps: pixel phase cache has %d fields, want %d", pixPha.FieldCount(), NoiseChannels)
	}
	if pixPha.Mat().Shape != eng.Proj().Mat.Shape {
		return nil, fmt.Errorf("maps: pixel phases on %v grid, data geometry is %v",
			pixPha.Mat().Shape, eng.Proj().Mat.Shape)
	}
	if pixPha.SimCount() != sky.SimCount() {
		return nil, fmt.Errorf("maps: pixel phases cover %d simulations, sky library %d",
			pixPha.SimCount(), sky.SimCount())
	}
	if err := st.EnsureDir(key); err != nil {
		return nil, err
	}
	return &Library{
		st: st, key: key, eng: eng, sky: sky,
		transf: transf, noise: noise, pixPha: pixPha, cacheMaps: cacheMaps,
	}, nil
}

// SimCount returns the number of realizations in the library.
func (l *Library) SimCount() int { return l.sky.SimCount() }

// Proj returns the data harmonic layout.
func (l *Library) Proj() *geom.Projection { return l.eng.Proj() }

// Key returns the structured cache identity of the library.
func (l *Library) Key() store.Key { return l.key }

// GetSim returns the observed realization for idx.
func (l *Library) GetSim(idx int) (*Maps, error) {
	if idx < 0 || idx >= l.SimCount() {
		return nil, phases.IndexError{Index: idx, Count: l.SimCount()}
	}
	name := simName(idx)
	if l.cacheMaps {
		if ok, err := l.st.Exists(l.key, name); err != nil {
			return nil, err
		} else if ok {
			return l.read(name)
		}
	}
	out, err := l.compute(idx)
	if err != nil {
		return nil, err
	}
	if l.cacheMaps {
		if err := l.st.Write(l.key, name, mapsArtifact(out)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Touch generates realization idx if missing, discarding the data.
func (l *Library) Touch(idx int) error {
	_, err := l.GetSim(idx)
	return err
}

// IsFull reports whether all observed realizations are committed.
func (l *Library) IsFull() (bool, error) {
	if !l.cacheMaps {
		return false, nil
	}
	for i := 0; i < l.SimCount(); i++ {
		ok, err := l.st.Exists(l.key, simName(i))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (l *Library) compute(idx int) (*Maps, error) {
	sky, err := l.sky.GetSim(idx)
	if err != nil {
		return nil, err
	}
	skyProj := l.sky.Proj()
	dataProj := l.eng.Proj()

	// Beam-convolve on the sky grid, then truncate onto the coarser data
	// grid's mode set.
	observe := func(alm []complex128) ([]complex128, error) {
		if alm == nil {
			return nil, nil
		}
		beamed := skyProj.AlmxFl(cloneAlm(alm), l.transf)
		return geom.Degrade(dataProj, skyProj, beamed)
	}
	talm, err := observe(sky.T)
	if err != nil {
		return nil, err
	}
	ealm, err := observe(sky.E)
	if err != nil {
		return nil, err
	}
	balm, err := observe(sky.B)
	if err != nil {
		return nil, err
	}

	out := &Maps{}
	if out.T, err = l.eng.Alm2Map(talm); err != nil {
		return nil, err
	}
	if ealm != nil {
		cos2p, sin2p := dataProj.SpinRotation()
		n := dataProj.Nalm()
		qalm := make([]complex128, n)
		ualm := make([]complex128, n)
		for a := 0; a < n; a++ {
			e := ealm[a]
			var b complex128
			if balm != nil {
				b = balm[a]
			}
			qalm[a] = -e*complex(cos2p[a], 0) + b*complex(sin2p[a], 0)
			ualm[a] = -e*complex(sin2p[a], 0) - b*complex(cos2p[a], 0)
		}
		if out.Q, err = l.eng.Alm2Map(qalm); err != nil {
			return nil, err
		}
		if out.U, err = l.eng.Alm2Map(ualm); err != nil {
			return nil, err
		}
	}

	pix, err := l.pixPha.Get(idx)
	if err != nil {
		return nil, err
	}
	addNoise(out.T, pix[0], l.noise.T)
	addNoise(out.Q, pix[1], l.noise.Q)
	addNoise(out.U, pix[2], l.noise.U)
	return out, nil
}

func addNoise(m, pha []float64, level float64) {
	if m == nil {
		return
	}
	for i := range m {
		m[i] += pha[i] * level
	}
}

func cloneAlm(v []complex128) []complex128 {
	out := make([]complex128, len(v))
	copy(out, v)
	return out
}

func simName(idx int) string { return fmt.Sprintf("sim_%04d", idx) }

func mapsArtifact(m *Maps) *store.Artifact {
	art := &store.Artifact{}
	add := func(name string, v []float64) {
		if v != nil {
			art.Fields = append(art.Fields, store.Field{Name: name, Real: v})
		}
	}
	add("t", m.T)
	add("q", m.Q)
	add("u", m.U)
	return art
}

func (l *Library) read(name string) (*Maps, error) {
	art, err := l.st.Read(l.key, name)
	if err != nil {
		return nil, err
	}
	pick := func(n string) []float64 {
		if f := art.Field(n); f != nil {
			return f.Real
		}
		return nil
	}
	return &Maps{T: pick("t"), Q: pick("q"), U: pick("u")}, nil
}
