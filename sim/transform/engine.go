// Package transform provides the flat-sky harmonic transform engine.
//
// The Engine interface is the seam the simulation libraries depend on; the
// shipped implementation runs two-pass real FFTs from gonum's dsp/fourier.
package transform

import (
	"fmt"

	"github.com/mfrobertson/LensIt/sim/geom"
)

// Engine converts between pixel maps and condensed harmonic vectors on a
// fixed projection. Implementations must be deterministic: the same map
// always yields the same alm vector.
type Engine interface {
	// Proj returns the harmonic layout of alm vectors exchanged with the
	// engine.
	Proj() *geom.Projection
	// Map2Alm transforms a flat row-major pixel map of Npix values into the
	// projection's condensed alm layout.
	Map2Alm(m []float64) ([]complex128, error)
	// Alm2Map inverts Map2Alm, dropping modes outside the projection.
	Alm2Map(alm []complex128) ([]float64, error)
}

func checkMapLen(p *geom.Projection, m []float64) error {
	if len(m) != p.Mat.Npix() {
		return fmt.Errorf("transform: map length %d, grid wants %d", len(m), p.Mat.Npix())
	}
	return nil
}

func checkAlmLen(p *geom.Projection, alm []complex128) error {
	if len(alm) != p.Nalm() {
		return fmt.Errorf("transform: alm length %d, projection wants %d", len(alm), p.Nalm())
	}
	return nil
}
