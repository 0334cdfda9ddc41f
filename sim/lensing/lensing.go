// Package lensing builds deflection fields from lensing potentials and
// remaps sky maps along them.
package lensing

import (
	"fmt"
	"math"

	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/transform"
)

// Remapper displaces a pixel map along a deflection field given in radians.
// Implementations treat the patch as periodic.
type Remapper interface {
	Remap(m, dx, dy []float64, mat *geom.EllMat) ([]float64, error)
}

// Deflection holds the two pixel-space components of a deflection field.
type Deflection struct {
	Dx, Dy []float64
}

// FromPotentials synthesizes the deflection maps from a gradient (lensing)
// potential and an optional curl potential: d = ∇φ + ∇×Ω. Either alm may be
// nil.
func FromPotentials(eng transform.Engine, phi, omega []complex128) (*Deflection, error) {
	proj := eng.Proj()
	n := proj.Nalm()
	gx := make([]complex128, n)
	gy := make([]complex128, n)
	add := func(alm []complex128, curl bool) error {
		if len(alm) != n {
			return fmt.Errorf("lensing: potential alm length %d, want %d", len(alm), n)
		}
		for a := 0; a < n; a++ {
			kx, ky := proj.ModeKxKy(a)
			// gradient: d = i k φ; curl: d = i (-ky, kx) Ω
			if curl {
				gx[a] += alm[a] * complex(0, -ky)
				gy[a] += alm[a] * complex(0, kx)
			} else {
				gx[a] += alm[a] * complex(0, kx)
				gy[a] += alm[a] * complex(0, ky)
			}
		}
		return nil
	}
	if phi != nil {
		if err := add(phi, false); err != nil {
			return nil, err
		}
	}
	if omega != nil {
		if err := add(omega, true); err != nil {
			return nil, err
		}
	}
	dx, err := eng.Alm2Map(gx)
	if err != nil {
		return nil, err
	}
	dy, err := eng.Alm2Map(gy)
	if err != nil {
		return nil, err
	}
	return &Deflection{Dx: dx, Dy: dy}, nil
}

// Bilinear remaps by sampling the source map at the displaced position with
// bilinear interpolation on the periodic grid.
type Bilinear struct{}

// Remap implements Remapper.
func (Bilinear) Remap(m, dx, dy []float64, mat *geom.EllMat) ([]float64, error) {
	ny, nx := mat.Shape[0], mat.Shape[1]
	if len(m) != ny*nx || len(dx) != ny*nx || len(dy) != ny*nx {
		return nil, fmt.Errorf("lensing: map/deflection size mismatch (%d, %d, %d pixels on %dx%d grid)",
			len(m), len(dx), len(dy), ny, nx)
	}
	cellY := mat.LSides[0] / float64(ny)
	cellX := mat.LSides[1] / float64(nx)
	out := make([]float64, len(m))
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			p := i*nx + j
			y := float64(i) + dy[p]/cellY
			x := float64(j) + dx[p]/cellX
			y0 := int(math.Floor(y))
			x0 := int(math.Floor(x))
			fy := y - float64(y0)
			fx := x - float64(x0)
			i0, i1 := mod(y0, ny), mod(y0+1, ny)
			j0, j1 := mod(x0, nx), mod(x0+1, nx)
			out[p] = m[i0*nx+j0]*(1-fy)*(1-fx) +
				m[i0*nx+j1]*(1-fy)*fx +
				m[i1*nx+j0]*fy*(1-fx) +
				m[i1*nx+j1]*fy*fx
		}
	}
	return out, nil
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
