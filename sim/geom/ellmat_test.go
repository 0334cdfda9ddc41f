package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEllMat_FullSkyScenario(t *testing.T) {
	// LD=7, HD=14: 128 pixels per side, full-sky area.
	m, err := NewEllMat(7, 14)
	assert.NoError(t, err)
	assert.Equal(t, [2]int{128, 128}, m.Shape)

	wantSide := math.Sqrt(4*math.Pi) / math.Pow(2, 14) * math.Pow(2, 7) * math.Pow(2, 7)
	assert.InDelta(t, wantSide, m.LSides[0], 1e-12)
	assert.InDelta(t, wantSide, m.LSides[1], 1e-12)
	assert.Equal(t, 1000, m.FSkyMilli())

	// At the full sampling (LD=HD=14) the pixel is ~0.74 arcmin.
	full, err := NewEllMat(14, 14)
	assert.NoError(t, err)
	pixAmin := full.LSides[0] / float64(full.Shape[0]) * 180 * 60 / math.Pi
	assert.InDelta(t, 0.74, pixAmin, 0.01)
	assert.Equal(t, full.LSides, m.LSides)
}

func TestNewEllMat_InvalidResolutions(t *testing.T) {
	tests := []struct {
		name    string
		low, hi int
	}{
		{"low above high", 10, 7},
		{"high above max", 7, 15},
		{"negative low", -1, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEllMat(tt.low, tt.hi)
			assert.Error(t, err)
			assert.IsType(t, ResolutionError{}, err)
		})
	}
}

func TestEllMat_SamePatchAcrossSamplings(t *testing.T) {
	// Two grids with the same HD cover the same physical patch.
	fine, err := NewEllMat(8, 12)
	assert.NoError(t, err)
	coarse, err := NewEllMat(6, 12)
	assert.NoError(t, err)
	assert.Equal(t, fine.LSides, coarse.LSides)
	assert.Equal(t, 4*coarse.Shape[0], fine.Shape[0])
}

func TestEllMat_Freqs(t *testing.T) {
	m, err := NewEllMat(4, 10) // 16x16
	assert.NoError(t, err)

	fy, fx := m.Freqs(0, 0)
	assert.Equal(t, 0, fy)
	assert.Equal(t, 0, fx)

	fy, _ = m.Freqs(15, 0)
	assert.Equal(t, -1, fy)

	fy, _ = m.Freqs(8, 0)
	assert.Equal(t, 8, fy)
}

func TestEllMat_EllZeroMode(t *testing.T) {
	m, err := NewEllMat(5, 11)
	assert.NoError(t, err)
	assert.Equal(t, 0, m.Ell(0, 0))
	assert.True(t, m.Ell(0, 1) > 0)
	assert.Equal(t, m.EllMax(), m.Ell(m.Shape[0]/2, m.Shape[1]/2))
}

func TestKey_PathDisjointness(t *testing.T) {
	a, _ := NewEllMat(7, 14)
	b, _ := NewEllMat(7, 13)
	c, _ := NewEllMat(6, 14)
	assert.NotEqual(t, a.Key().Segments(), b.Key().Segments())
	assert.NotEqual(t, a.Key().Segments(), c.Key().Segments())
	assert.NotEqual(t, b.Key().Segments(), c.Key().Segments())

	a2, _ := NewEllMat(7, 14)
	assert.Equal(t, a.Key().Segments(), a2.Key().Segments())
}
