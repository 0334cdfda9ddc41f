// Package cov builds the diagonal-in-harmonic-space covariance model used
// for lensing reconstruction. One Operator per configuration, no simulation
// indices involved.
package cov

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/spectra"
	"github.com/mfrobertson/LensIt/sim/store"
)

// Channel labels one observed map component.
type Channel byte

const (
	ChannelT Channel = 't'
	ChannelQ Channel = 'q'
	ChannelU Channel = 'u'
)

// Operator is a diagonal covariance model: per channel and multipole,
// C_ell(data) = C_ell(lensed) · b_ell² + N_ell, with the flat noise spectra
// derived from per-pixel noise levels. SkyProj, when set, is the finer
// geometry used for lensing-response evaluations.
type Operator struct {
	Proj    *geom.Projection
	SkyProj *geom.Projection

	ClsUnl *spectra.Cls
	ClsLen *spectra.Cls
	Transf []float64

	NoiseT []float64
	NoiseQ []float64
	NoiseU []float64
}

// FlatNoise converts a noise level in µK·arcmin to the flat noise power
// spectrum (level·π/180/60)², constant over 0..lmax.
func FlatNoise(levelUKAmin float64, lmax int) []float64 {
	n := levelUKAmin * math.Pi / 180 / 60
	cl := make([]float64, lmax+1)
	for i := range cl {
		cl[i] = n * n
	}
	return cl
}

// Build assembles the operator and pins its parameters under the key: the
// first build commits a manifest artifact, later builds with the same key
// must match it, so a stale cache is never silently reused for different
// inputs.
func Build(st *store.Store, key store.Key, proj, skyProj *geom.Projection,
	clsUnl, clsLen *spectra.Cls, transf []float64,
	noiseT, noiseQ, noiseU []float64) (*Operator, error) {
	if err := clsUnl.Validate(); err != nil {
		return nil, fmt.Errorf("cov: unlensed: %w", err)
	}
	if err := clsLen.Validate(); err != nil {
		return nil, fmt.Errorf("cov: lensed: %w", err)
	}
	op := &Operator{
		Proj: proj, SkyProj: skyProj,
		ClsUnl: clsUnl, ClsLen: clsLen, Transf: transf,
		NoiseT: noiseT, NoiseQ: noiseQ, NoiseU: noiseU,
	}
	if err := op.pin(st, key); err != nil {
		return nil, err
	}
	return op, nil
}

// DataCl evaluates the model's diagonal covariance for one channel at one
// multipole. Multipoles outside the tabulated spectra contribute zero signal.
func (op *Operator) DataCl(ch Channel, ell int) (float64, error) {
	var sig, noise []float64
	switch ch {
	case ChannelT:
		sig, noise = op.ClsLen.TT, op.NoiseT
	case ChannelQ:
		sig, noise = op.ClsLen.EE, op.NoiseQ
	case ChannelU:
		sig, noise = op.ClsLen.EE, op.NoiseU
	default:
		return 0, fmt.Errorf("cov: unknown channel %q", string(ch))
	}
	var c float64
	if sig != nil && ell < len(sig) && ell < len(op.Transf) {
		c = sig[ell] * op.Transf[ell] * op.Transf[ell]
	}
	if ell < len(noise) {
		c += noise[ell]
	}
	return c, nil
}

// Diag tabulates DataCl over the operator's projection band, 0..EllMax.
func (op *Operator) Diag(ch Channel) ([]float64, error) {
	out := make([]float64, op.Proj.EllMax()+1)
	for ell := range out {
		c, err := op.DataCl(ch, ell)
		if err != nil {
			return nil, err
		}
		out[ell] = c
	}
	return out, nil
}

// pin writes or verifies the parameter manifest.
func (op *Operator) pin(st *store.Store, key store.Key) error {
	const name = "params"
	manifest := &store.Artifact{Fields: []store.Field{
		{Name: "transf", Real: op.Transf},
		{Name: "noise_t", Real: op.NoiseT},
		{Name: "noise_q", Real: op.NoiseQ},
		{Name: "noise_u", Real: op.NoiseU},
		{Name: "cls_unl", Real: clsTag(op.ClsUnl)},
		{Name: "cls_len", Real: clsTag(op.ClsLen)},
	}}
	ok, err := st.Exists(key, name)
	if err != nil {
		return err
	}
	if !ok {
		return st.Write(key, name, manifest)
	}
	prev, err := st.Read(key, name)
	if err != nil {
		return err
	}
	for _, f := range manifest.Fields {
		old := prev.Field(f.Name)
		if old == nil || !equal(old.Real, f.Real) {
			return fmt.Errorf("cov: cache %v was built with different %s; refusing to reuse",
				key.Segments(), f.Name)
		}
	}
	return nil
}

// clsTag condenses a spectra set into its fingerprint, packed into two
// exactly-representable floats so manifest comparison stays bitwise.
func clsTag(c *spectra.Cls) []float64 {
	h := fnv.New64a()
	h.Write([]byte(c.Fingerprint()))
	sum := h.Sum64()
	return []float64{float64(sum >> 32), float64(sum & 0xffffffff)}
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
