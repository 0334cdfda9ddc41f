package geom

import (
	"fmt"
	"math"
)

// FilterFunc decides which multipoles a Projection keeps.
type FilterFunc func(ell int) bool

// EllBand returns a filter keeping lmin <= ell <= lmax.
func EllBand(lmin, lmax int) FilterFunc {
	return func(ell int) bool { return ell >= lmin && ell <= lmax }
}

// EllCap returns a filter keeping ell <= lmax.
func EllCap(lmax int) FilterFunc {
	return func(ell int) bool { return ell <= lmax }
}

// Projection fixes the layout of condensed harmonic vectors: the subset of
// rFFT grid modes passing an ell filter, in row-major grid order. All alm
// slices exchanged with a Projection have length Nalm().
type Projection struct {
	Mat *EllMat

	idx  []int       // flat rFFT grid index per condensed mode
	pos  map[int]int // inverse of idx
	ells []int       // multipole per condensed mode
	lmax int
}

// NewProjection scans the rFFT grid of m and records the modes passing filt.
func NewProjection(m *EllMat, filt FilterFunc) *Projection {
	hx := m.HalfCols()
	p := &Projection{Mat: m, pos: make(map[int]int)}
	for i := 0; i < m.Shape[0]; i++ {
		for j := 0; j < hx; j++ {
			ell := m.Ell(i, j)
			if !filt(ell) {
				continue
			}
			flat := i*hx + j
			p.pos[flat] = len(p.idx)
			p.idx = append(p.idx, flat)
			p.ells = append(p.ells, ell)
			if ell > p.lmax {
				p.lmax = ell
			}
		}
	}
	return p
}

// Nalm returns the number of condensed modes.
func (p *Projection) Nalm() int { return len(p.idx) }

// EllMax returns the largest multipole kept by the projection.
func (p *Projection) EllMax() int { return p.lmax }

// Ells returns the multipole of each condensed mode. The slice is shared,
// not copied; callers must not mutate it.
func (p *Projection) Ells() []int { return p.ells }

// ModeKxKy returns the wavevector of condensed mode a.
func (p *Projection) ModeKxKy(a int) (kx, ky float64) {
	hx := p.Mat.HalfCols()
	return p.Mat.KxKy(p.idx[a]/hx, p.idx[a]%hx)
}

// Extract condenses a full rFFT grid into the projection's alm layout.
func (p *Projection) Extract(full []complex128) []complex128 {
	alm := make([]complex128, len(p.idx))
	for a, flat := range p.idx {
		alm[a] = full[flat]
	}
	return alm
}

// Scatter expands a condensed alm vector onto a zero-filled rFFT grid.
func (p *Projection) Scatter(alm []complex128) []complex128 {
	full := make([]complex128, p.Mat.Shape[0]*p.Mat.HalfCols())
	for a, flat := range p.idx {
		full[flat] = alm[a]
	}
	return full
}

// AlmxFl multiplies alm in place by the ell-dependent filter fl, treating
// multipoles beyond len(fl)-1 as zero. Returns alm for chaining.
func (p *Projection) AlmxFl(alm []complex128, fl []float64) []complex128 {
	for a, ell := range p.ells {
		if ell < len(fl) {
			alm[a] *= complex(fl[ell], 0)
		} else {
			alm[a] = 0
		}
	}
	return alm
}

// SpinRotation returns cos(2φ) and sin(2φ) of each mode's wavevector angle,
// used to exchange E/B and Q/U harmonic components.
func (p *Projection) SpinRotation() (cos2p, sin2p []float64) {
	cos2p = make([]float64, len(p.idx))
	sin2p = make([]float64, len(p.idx))
	for a := range p.idx {
		kx, ky := p.ModeKxKy(a)
		phi := math.Atan2(ky, kx)
		cos2p[a] = math.Cos(2 * phi)
		sin2p[a] = math.Sin(2 * phi)
	}
	return cos2p, sin2p
}

// Degrade maps a condensed alm vector from a finer projection src onto dst.
// Both must cover the same physical patch so their mode lattices coincide;
// dst modes absent from src (possible only if dst keeps higher multipoles
// than src) are set to zero.
func Degrade(dst, src *Projection, alm []complex128) ([]complex128, error) {
	if dst.Mat.LSides != src.Mat.LSides {
		return nil, fmt.Errorf("geom: degrade between mismatched patches %v and %v",
			dst.Mat.LSides, src.Mat.LSides)
	}
	if len(alm) != src.Nalm() {
		return nil, fmt.Errorf("geom: degrade: alm length %d, want %d", len(alm), src.Nalm())
	}
	srcHx := src.Mat.HalfCols()
	out := make([]complex128, dst.Nalm())
	for a, flat := range dst.idx {
		hx := dst.Mat.HalfCols()
		fy, fx := dst.Mat.Freqs(flat/hx, flat%hx)
		row := fy
		if row < 0 {
			row += src.Mat.Shape[0]
		}
		if pos, ok := src.pos[row*srcHx+fx]; ok {
			out[a] = alm[pos]
		}
	}
	return out, nil
}
