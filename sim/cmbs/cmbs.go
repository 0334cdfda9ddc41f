// Package cmbs builds the lensed CMB sky simulation library: random phases
// colored by the fiducial unlensed spectra, deflected by a lensing field
// drawn from the same phases, and optionally cached per index.
package cmbs

import (
	"fmt"
	"math"

	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/lensing"
	"github.com/mfrobertson/LensIt/sim/phases"
	"github.com/mfrobertson/LensIt/sim/spectra"
	"github.com/mfrobertson/LensIt/sim/store"
	"github.com/mfrobertson/LensIt/sim/transform"
)

// Alms is one lensed sky realization in harmonic space. B is present even
// when the unlensed model has no B power: lensing generates it. P and O are
// the input potentials, passed through unlensed.
type Alms struct {
	T, E, B []complex128
	P, O    []complex128
}

// Library is the lensed-sky simulation library. The realization for an index
// is a pure deterministic function of the phase cache's realization at that
// index plus the fixed spectra, so cached and recomputed results agree.
type Library struct {
	st          *store.Store
	key         store.Key
	eng         transform.Engine
	remap       lensing.Remapper
	cls         *spectra.Cls
	pha         *phases.AlmCache
	fields      []spectra.Field
	cacheLensed bool
}

// New validates the composition and returns the library. The phase cache
// must carry one field per component implied by the spectra, on the same
// projection the engine transforms on.
func New(st *store.Store, key store.Key, eng transform.Engine, remap lensing.Remapper,
	cls *spectra.Cls, pha *phases.AlmCache, cacheLensed bool) (*Library, error) {
	if err := cls.Validate(); err != nil {
		return nil, err
	}
	fields := cls.Fields()
	if pha.FieldCount() != len(fields) {
		return nil, fmt.Errorf("cmbs: phase cache has %d fields, spectra imply %d (%s)",
			pha.FieldCount(), len(fields), fieldString(fields))
	}
	if pha.Proj().Nalm() != eng.Proj().Nalm() {
		return nil, fmt.Errorf("cmbs: phase cache and engine disagree on alm layout (%d vs %d modes)",
			pha.Proj().Nalm(), eng.Proj().Nalm())
	}
	if err := st.EnsureDir(key); err != nil {
		return nil, err
	}
	return &Library{
		st: st, key: key, eng: eng, remap: remap,
		cls: cls, pha: pha, fields: fields, cacheLensed: cacheLensed,
	}, nil
}

// SimCount returns the number of realizations in the library.
func (l *Library) SimCount() int { return l.pha.SimCount() }

// Proj returns the sky harmonic layout.
func (l *Library) Proj() *geom.Projection { return l.eng.Proj() }

// Fields returns the sky components this library simulates.
func (l *Library) Fields() []spectra.Field { return l.fields }

// Key returns the structured cache identity of the library.
func (l *Library) Key() store.Key { return l.key }

// GetSim returns the lensed sky realization for idx, serving it from cache
// when present and committing it after first computation when caching is on.
func (l *Library) GetSim(idx int) (*Alms, error) {
	if idx < 0 || idx >= l.SimCount() {
		return nil, phases.IndexError{Index: idx, Count: l.SimCount()}
	}
	name := simName(idx)
	if l.cacheLensed {
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
	if l.cacheLensed {
		if err := l.st.Write(l.key, name, almsArtifact(out)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Touch generates realization idx if missing, discarding the data. Only
// meaningful when lensed products are cached.
func (l *Library) Touch(idx int) error {
	_, err := l.GetSim(idx)
	return err
}

// IsFull reports whether all lensed realizations are committed.
func (l *Library) IsFull() (bool, error) {
	if !l.cacheLensed {
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

func (l *Library) compute(idx int) (*Alms, error) {
	pha, err := l.pha.Get(idx)
	if err != nil {
		return nil, err
	}
	unl, err := l.color(pha)
	if err != nil {
		return nil, err
	}

	defl, err := lensing.FromPotentials(l.eng, unl.P, unl.O)
	if err != nil {
		return nil, err
	}
	mat := l.eng.Proj().Mat

	lensMap := func(alm []complex128) ([]complex128, error) {
		m, err := l.eng.Alm2Map(alm)
		if err != nil {
			return nil, err
		}
		m, err = l.remap.Remap(m, defl.Dx, defl.Dy, mat)
		if err != nil {
			return nil, err
		}
		return l.eng.Map2Alm(m)
	}

	out := &Alms{P: unl.P, O: unl.O}
	if out.T, err = lensMap(unl.T); err != nil {
		return nil, err
	}
	if unl.E != nil {
		proj := l.eng.Proj()
		cos2p, sin2p := proj.SpinRotation()
		n := proj.Nalm()
		qalm := make([]complex128, n)
		ualm := make([]complex128, n)
		for a := 0; a < n; a++ {
			e := unl.E[a]
			var b complex128
			if unl.B != nil {
				b = unl.B[a]
			}
			qalm[a] = -e*complex(cos2p[a], 0) + b*complex(sin2p[a], 0)
			ualm[a] = -e*complex(sin2p[a], 0) - b*complex(cos2p[a], 0)
		}
		if qalm, err = lensMap(qalm); err != nil {
			return nil, err
		}
		if ualm, err = lensMap(ualm); err != nil {
			return nil, err
		}
		out.E = make([]complex128, n)
		out.B = make([]complex128, n)
		for a := 0; a < n; a++ {
			out.E[a] = -(qalm[a]*complex(cos2p[a], 0) + ualm[a]*complex(sin2p[a], 0))
			out.B[a] = qalm[a]*complex(sin2p[a], 0) - ualm[a]*complex(cos2p[a], 0)
		}
	}
	return out, nil
}

// color turns unit-variance phases into unlensed alms with the fiducial
// power, correlating T and E through the TE spectrum (Cholesky of the 2x2
// block).
func (l *Library) color(pha [][]complex128) (*Alms, error) {
	proj := l.eng.Proj()
	lmax := l.cls.LMax()

	rootTT := make([]float64, lmax+1)
	teOverRootTT := make([]float64, lmax+1)
	rootEERes := make([]float64, lmax+1)
	for ell := 0; ell <= lmax; ell++ {
		tt := l.cls.TT[ell]
		rootTT[ell] = math.Sqrt(tt)
		if l.cls.EE != nil {
			ee := l.cls.EE[ell]
			te := 0.0
			if l.cls.TE != nil {
				te = l.cls.TE[ell]
			}
			if tt > 0 {
				teOverRootTT[ell] = te / math.Sqrt(tt)
				res := ee - te*te/tt
				if res > 0 {
					rootEERes[ell] = math.Sqrt(res)
				}
			} else {
				rootEERes[ell] = math.Sqrt(ee)
			}
		}
	}

	out := &Alms{}
	var xiT []complex128
	next := 0
	take := func() []complex128 {
		v := pha[next]
		next++
		return v
	}
	for _, f := range l.fields {
		switch f {
		case spectra.FieldT:
			xiT = take()
			out.T = proj.AlmxFl(cloneAlm(xiT), rootTT)
		case spectra.FieldE:
			xiE := take()
			e := proj.AlmxFl(cloneAlm(xiT), teOverRootTT)
			e2 := proj.AlmxFl(cloneAlm(xiE), rootEERes)
			for a := range e {
				e[a] += e2[a]
			}
			out.E = e
		case spectra.FieldB:
			out.B = proj.AlmxFl(cloneAlm(take()), rootFl(l.cls.BB))
		case spectra.FieldP:
			out.P = proj.AlmxFl(cloneAlm(take()), rootFl(l.cls.PP))
		case spectra.FieldO:
			out.O = proj.AlmxFl(cloneAlm(take()), rootFl(l.cls.OO))
		}
	}
	return out, nil
}

func rootFl(cl []float64) []float64 {
	fl := make([]float64, len(cl))
	for i, v := range cl {
		if v > 0 {
			fl[i] = math.Sqrt(v)
		}
	}
	return fl
}

func cloneAlm(v []complex128) []complex128 {
	out := make([]complex128, len(v))
	copy(out, v)
	return out
}

func simName(idx int) string { return fmt.Sprintf("sim_%04d", idx) }

func fieldString(fields []spectra.Field) string {
	b := make([]byte, len(fields))
	for i, f := range fields {
		b[i] = byte(f)
	}
	return string(b)
}

func almsArtifact(a *Alms) *store.Artifact {
	art := &store.Artifact{}
	add := func(name string, v []complex128) {
		if v != nil {
			art.Fields = append(art.Fields, store.Field{Name: name, Complex: v})
		}
	}
	add("t", a.T)
	add("e", a.E)
	add("b", a.B)
	add("p", a.P)
	add("o", a.O)
	return art
}

func (l *Library) read(name string) (*Alms, error) {
	art, err := l.st.Read(l.key, name)
	if err != nil {
		return nil, err
	}
	pick := func(n string) []complex128 {
		if f := art.Field(n); f != nil {
			return f.Complex
		}
		return nil
	}
	return &Alms{T: pick("t"), E: pick("e"), B: pick("b"), P: pick("p"), O: pick("o")}, nil
}
