// Package spectra holds fiducial power spectra and the CAMB file loader.
package spectra

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Field labels one sky component: temperature, the two polarization modes,
// the lensing potential and the field-rotation (curl) potential.
type Field byte

const (
	FieldT Field = 't'
	FieldE Field = 'e'
	FieldB Field = 'b'
	FieldP Field = 'p'
	FieldO Field = 'o'
)

// Cls is a fixed set of auto/cross power spectra indexed by multipole.
// A nil slice means the component is absent; field sets are derived from
// which slices are present rather than from open string keys.
type Cls struct {
	TT []float64
	EE []float64
	BB []float64
	TE []float64
	PP []float64
	OO []float64
}

// Validate checks internal consistency: TT must be present, TE requires both
// TT and EE, and all CMB spectra must share a length.
func (c *Cls) Validate() error {
	if c.TT == nil {
		return fmt.Errorf("spectra: missing TT")
	}
	for name, s := range map[string][]float64{"EE": c.EE, "BB": c.BB, "TE": c.TE} {
		if s != nil && len(s) != len(c.TT) {
			return fmt.Errorf("spectra: %s length %d, TT length %d", name, len(s), len(c.TT))
		}
	}
	if c.TE != nil && c.EE == nil {
		return fmt.Errorf("spectra: TE present without EE")
	}
	return nil
}

// LMax returns the highest multipole carried by the CMB spectra.
func (c *Cls) LMax() int { return len(c.TT) - 1 }

// Fields returns the sky components implied by the present spectra, in
// canonical order t, e, b, p, o.
func (c *Cls) Fields() []Field {
	fields := []Field{FieldT}
	if c.EE != nil {
		fields = append(fields, FieldE)
	}
	if c.BB != nil {
		fields = append(fields, FieldB)
	}
	if c.PP != nil {
		fields = append(fields, FieldP)
	}
	if c.OO != nil {
		fields = append(fields, FieldO)
	}
	return fields
}

// Truncate returns a copy with the CMB spectra capped at lmax. The lensing
// potential spectrum keeps its full length, matching the convention of the
// fiducial files which carry pp to higher multipoles.
func (c *Cls) Truncate(lmax int) *Cls {
	trim := func(s []float64) []float64 {
		if s == nil {
			return nil
		}
		if len(s) > lmax+1 {
			s = s[:lmax+1]
		}
		out := make([]float64, len(s))
		copy(out, s)
		return out
	}
	full := func(s []float64) []float64 {
		if s == nil {
			return nil
		}
		out := make([]float64, len(s))
		copy(out, s)
		return out
	}
	return &Cls{
		TT: trim(c.TT), EE: trim(c.EE), BB: trim(c.BB), TE: trim(c.TE),
		PP: full(c.PP), OO: full(c.OO),
	}
}

// Fingerprint returns a short stable tag over the spectra content, used to
// key caches so that changing the fiducial model never silently reuses
// realizations drawn from another one.
func (c *Cls) Fingerprint() string {
	h := fnv.New64a()
	var b [8]byte
	add := func(s []float64) {
		for _, v := range s {
			u := math.Float64bits(v)
			for i := 0; i < 8; i++ {
				b[i] = byte(u >> (8 * i))
			}
			h.Write(b[:])
		}
		h.Write([]byte{0xff})
	}
	for _, s := range [][]float64{c.TT, c.EE, c.BB, c.TE, c.PP, c.OO} {
		add(s)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// GaussBeam returns the harmonic transfer function of a Gaussian beam with
// the given full width at half maximum (radians), for multipoles 0..lmax.
func GaussBeam(fwhm float64, lmax int) []float64 {
	sigma := fwhm / math.Sqrt(8*math.Ln2)
	bl := make([]float64, lmax+1)
	for ell := 0; ell <= lmax; ell++ {
		l := float64(ell)
		bl[ell] = math.Exp(-l * (l + 1) * sigma * sigma / 2)
	}
	return bl
}
