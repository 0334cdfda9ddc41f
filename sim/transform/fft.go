package transform

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mfrobertson/LensIt/sim/geom"
)

// FFTEngine is the default harmonic transform: a row real-FFT followed by a
// column complex-FFT, normalized so that alm carry physical units
// (forward scale sqrt(V)/Npix) and Alm2Map∘Map2Alm is the identity on kept
// modes. Rows and columns are processed by `threads` goroutines, each with
// its own FFT plan.
type FFTEngine struct {
	proj    *geom.Projection
	threads int
	norm    float64
}

// NewFFT builds an engine on the given projection. threads < 1 is treated
// as 1.
func NewFFT(proj *geom.Projection, threads int) *FFTEngine {
	if threads < 1 {
		threads = 1
	}
	m := proj.Mat
	return &FFTEngine{
		proj:    proj,
		threads: threads,
		norm:    math.Sqrt(m.LSides[0]*m.LSides[1]) / float64(m.Npix()),
	}
}

func (e *FFTEngine) Proj() *geom.Projection { return e.proj }

// parallel runs fn(i) for i in [0, n) across the engine's worker count.
func (e *FFTEngine) parallel(n int, fn func(w, i int)) {
	workers := e.threads
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(0, i)
		}
		return
	}
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(w, i)
			}
		}(w, lo, hi)
	}
	wg.Wait()
}

// Map2Alm implements Engine.
func (e *FFTEngine) Map2Alm(m []float64) ([]complex128, error) {
	if err := checkMapLen(e.proj, m); err != nil {
		return nil, err
	}
	ny, nx := e.proj.Mat.Shape[0], e.proj.Mat.Shape[1]
	hx := e.proj.Mat.HalfCols()
	full := make([]complex128, ny*hx)

	// Row pass: real FFT of each row.
	rowPlans := e.plansReal(nx)
	e.parallel(ny, func(w, i int) {
		rowPlans[w].Coefficients(full[i*hx:(i+1)*hx], m[i*nx:(i+1)*nx])
	})

	// Column pass: complex FFT down each column.
	colPlans := e.plansCmplx(ny)
	e.parallel(hx, func(w, j int) {
		col := make([]complex128, ny)
		dst := make([]complex128, ny)
		for i := 0; i < ny; i++ {
			col[i] = full[i*hx+j]
		}
		colPlans[w].Coefficients(dst, col)
		for i := 0; i < ny; i++ {
			full[i*hx+j] = dst[i] * complex(e.norm, 0)
		}
	})
	return e.proj.Extract(full), nil
}

// Alm2Map implements Engine.
func (e *FFTEngine) Alm2Map(alm []complex128) ([]float64, error) {
	if err := checkAlmLen(e.proj, alm); err != nil {
		return nil, err
	}
	ny, nx := e.proj.Mat.Shape[0], e.proj.Mat.Shape[1]
	hx := e.proj.Mat.HalfCols()
	full := e.proj.Scatter(alm)

	// Inverse column pass. gonum's transforms are unnormalized, so the
	// round trip picks up a factor Npix that is divided out here together
	// with the physical normalization.
	scale := 1 / (e.norm * float64(ny) * float64(nx))
	colPlans := e.plansCmplx(ny)
	e.parallel(hx, func(w, j int) {
		col := make([]complex128, ny)
		dst := make([]complex128, ny)
		for i := 0; i < ny; i++ {
			col[i] = full[i*hx+j]
		}
		colPlans[w].Sequence(dst, col)
		for i := 0; i < ny; i++ {
			full[i*hx+j] = dst[i] * complex(scale, 0)
		}
	})

	// Inverse row pass: real inverse FFT of each row.
	out := make([]float64, ny*nx)
	rowPlans := e.plansReal(nx)
	e.parallel(ny, func(w, i int) {
		rowPlans[w].Sequence(out[i*nx:(i+1)*nx], full[i*hx:(i+1)*hx])
	})
	return out, nil
}

// plansReal allocates one real-FFT plan per worker; plans are not safe for
// concurrent use.
func (e *FFTEngine) plansReal(n int) []*fourier.FFT {
	plans := make([]*fourier.FFT, e.threads)
	for i := range plans {
		plans[i] = fourier.NewFFT(n)
	}
	return plans
}

func (e *FFTEngine) plansCmplx(n int) []*fourier.CmplxFFT {
	plans := make([]*fourier.CmplxFFT, e.threads)
	for i := range plans {
		plans[i] = fourier.NewCmplxFFT(n)
	}
	return plans
}
