package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullProjection(t *testing.T, low, high int) *Projection {
	t.Helper()
	m, err := NewEllMat(low, high)
	require.NoError(t, err)
	return NewProjection(m, func(ell int) bool { return true })
}

func TestProjection_FullGridModeCount(t *testing.T) {
	p := fullProjection(t, 4, 10)
	assert.Equal(t, 16*9, p.Nalm()) // ny x (nx/2+1)
}

func TestProjection_BandFilter(t *testing.T) {
	m, err := NewEllMat(5, 11)
	require.NoError(t, err)
	band := NewProjection(m, EllBand(100, 2000))
	for _, ell := range band.Ells() {
		assert.GreaterOrEqual(t, ell, 100)
		assert.LessOrEqual(t, ell, 2000)
	}
	assert.Less(t, band.Nalm(), NewProjection(m, EllCap(m.EllMax())).Nalm())
}

func TestProjection_ExtractScatterRoundTrip(t *testing.T) {
	m, err := NewEllMat(4, 10)
	require.NoError(t, err)
	p := NewProjection(m, EllCap(m.EllMax()/2))

	full := make([]complex128, m.Shape[0]*m.HalfCols())
	for i := range full {
		full[i] = complex(float64(i), -float64(i))
	}
	alm := p.Extract(full)
	back := p.Scatter(alm)
	again := p.Extract(back)
	assert.Equal(t, alm, again)

	// scattered grid is zero outside the kept modes
	kept := make(map[int]bool, len(p.idx))
	for _, flat := range p.idx {
		kept[flat] = true
	}
	for flat, v := range back {
		if !kept[flat] {
			assert.Equal(t, complex128(0), v)
		}
	}
}

func TestProjection_AlmxFl(t *testing.T) {
	p := fullProjection(t, 3, 9)
	alm := make([]complex128, p.Nalm())
	for i := range alm {
		alm[i] = 1
	}
	fl := make([]float64, p.EllMax()+1)
	for i := range fl {
		fl[i] = 2
	}
	p.AlmxFl(alm, fl)
	for _, v := range alm {
		assert.Equal(t, complex128(2), v)
	}

	// multipoles beyond the filter are zeroed
	alm2 := make([]complex128, p.Nalm())
	for i := range alm2 {
		alm2[i] = 1
	}
	p.AlmxFl(alm2, []float64{1}) // only ell=0 survives
	nonzero := 0
	for _, v := range alm2 {
		if v != 0 {
			nonzero++
		}
	}
	assert.Equal(t, 1, nonzero)
}

func TestDegrade_FromFinerGrid(t *testing.T) {
	fine, err := NewEllMat(6, 10)
	require.NoError(t, err)
	coarse, err := NewEllMat(4, 10)
	require.NoError(t, err)

	lmax := coarse.EllMax() / 2
	src := NewProjection(fine, EllCap(lmax))
	dst := NewProjection(coarse, EllCap(lmax))

	alm := make([]complex128, src.Nalm())
	for i := range alm {
		alm[i] = complex(float64(i+1), 0)
	}
	out, err := Degrade(dst, src, alm)
	require.NoError(t, err)
	require.Len(t, out, dst.Nalm())

	// every coarse mode must have found its counterpart on the fine grid
	for a, v := range out {
		assert.NotZero(t, v, "mode %d (ell=%d)", a, dst.Ells()[a])
	}
}

func TestDegrade_MismatchedPatches(t *testing.T) {
	a := fullProjection(t, 4, 10)
	b := fullProjection(t, 4, 11)
	_, err := Degrade(b, a, make([]complex128, a.Nalm()))
	assert.Error(t, err)
}

func TestDegrade_SameGridIsIdentity(t *testing.T) {
	p := fullProjection(t, 4, 10)
	alm := make([]complex128, p.Nalm())
	for i := range alm {
		alm[i] = complex(float64(i), 1)
	}
	out, err := Degrade(p, p, alm)
	require.NoError(t, err)
	assert.Equal(t, alm, out)
}
