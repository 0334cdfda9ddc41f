// Package geom describes flat-sky pixel/harmonic geometries.
//
// An EllMat is the value object derived from the (lowRes, highRes) resolution
// pair: a square grid of 2^lowRes pixels per side covering a patch whose
// physical side scales as 2^highRes, reaching the full-sky area at highRes=14.
// A Projection restricts the grid's rFFT modes to a multipole band and gives
// condensed harmonic vectors their layout.
package geom

import (
	"fmt"
	"math"
)

// MaxRes is the largest supported resolution exponent. At highRes = MaxRes
// the patch area equals the full sky (4π steradians).
const MaxRes = 14

// ResolutionError reports a (lowRes, highRes) pair outside the supported
// range. It is returned before any I/O or generation work happens.
type ResolutionError struct {
	LowRes, HighRes int
}

func (e ResolutionError) Error() string {
	return fmt.Sprintf("geom: invalid resolution pair (low=%d, high=%d): need 0 <= low <= high <= %d",
		e.LowRes, e.HighRes, MaxRes)
}

// EllMat is a flat-sky grid descriptor. Immutable once constructed.
type EllMat struct {
	LowRes  int
	HighRes int
	Shape   [2]int     // pixels per side (rows, cols)
	LSides  [2]float64 // physical side lengths, radians
}

// NewEllMat derives the grid geometry from the resolution pair.
// The cell size is (sqrt(4π)/2^14)·2^(highRes-lowRes) radians, so two grids
// sharing highRes cover the same physical patch at different samplings.
func NewEllMat(lowRes, highRes int) (*EllMat, error) {
	if lowRes < 0 || highRes < lowRes || highRes > MaxRes {
		return nil, ResolutionError{LowRes: lowRes, HighRes: highRes}
	}
	n := 1 << lowRes
	cell := math.Sqrt(4*math.Pi) / float64(int(1)<<MaxRes) * float64(int(1)<<(highRes-lowRes))
	side := cell * float64(n)
	return &EllMat{
		LowRes:  lowRes,
		HighRes: highRes,
		Shape:   [2]int{n, n},
		LSides:  [2]float64{side, side},
	}, nil
}

// Npix returns the number of pixels in the grid.
func (m *EllMat) Npix() int { return m.Shape[0] * m.Shape[1] }

// CellArea returns the solid angle of one pixel in steradians.
func (m *EllMat) CellArea() float64 {
	return m.LSides[0] * m.LSides[1] / float64(m.Npix())
}

// FSkyMilli returns the sky-fraction bucket used in cache paths:
// round(patch area / 4π × 1000).
func (m *EllMat) FSkyMilli() int {
	return int(math.Round(m.LSides[0] * m.LSides[1] / (4 * math.Pi) * 1000))
}

// HalfCols returns the number of rFFT columns, Shape[1]/2+1.
func (m *EllMat) HalfCols() int { return m.Shape[1]/2 + 1 }

// Freqs returns the signed integer frequencies of rFFT grid point (i, j).
func (m *EllMat) Freqs(i, j int) (fy, fx int) {
	fy = i
	if i > m.Shape[0]/2 {
		fy = i - m.Shape[0]
	}
	return fy, j
}

// KxKy returns the angular wavevector of rFFT grid point (i, j) in rad^-1.
func (m *EllMat) KxKy(i, j int) (kx, ky float64) {
	fy, fx := m.Freqs(i, j)
	kx = 2 * math.Pi * float64(fx) / m.LSides[1]
	ky = 2 * math.Pi * float64(fy) / m.LSides[0]
	return kx, ky
}

// Ell returns the multipole of rFFT grid point (i, j), rounded to the
// nearest integer.
func (m *EllMat) Ell(i, j int) int {
	kx, ky := m.KxKy(i, j)
	return int(math.Round(math.Hypot(kx, ky)))
}

// EllMax returns the largest multipole present on the grid.
func (m *EllMat) EllMax() int {
	return m.Ell(m.Shape[0]/2, m.Shape[1]/2)
}

// Key returns the on-disk identity of this geometry. Two descriptors built
// from different resolution pairs never share a path.
func (m *EllMat) Key() Key {
	return Key{HighRes: m.HighRes, LowRes: m.LowRes}
}

// Key is the structured cache identity of an EllMat.
type Key struct {
	HighRes, LowRes int
}

// Segments serializes the key at the storage boundary.
func (k Key) Segments() []string {
	return []string{"ellmats", fmt.Sprintf("ellmat_%d_%d", k.HighRes, k.LowRes)}
}
