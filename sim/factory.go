package sim

import (
	"math"

	"github.com/mfrobertson/LensIt/sim/cmbs"
	"github.com/mfrobertson/LensIt/sim/cov"
	"github.com/mfrobertson/LensIt/sim/geom"
	"github.com/mfrobertson/LensIt/sim/lensing"
	"github.com/mfrobertson/LensIt/sim/maps"
	"github.com/mfrobertson/LensIt/sim/pbs"
	"github.com/mfrobertson/LensIt/sim/phases"
	"github.com/mfrobertson/LensIt/sim/spectra"
	"github.com/mfrobertson/LensIt/sim/transform"
)

// Geometry builds the flat-sky grid descriptor for the resolution pair and
// ensures its identity path exists under the cache root. Invalid resolutions
// fail before any I/O.
func Geometry(e Env, lowRes, highRes int) (*geom.EllMat, error) {
	m, err := geom.NewEllMat(lowRes, highRes)
	if err != nil {
		return nil, err
	}
	if err := e.Store().EnsureDir(m.Key()); err != nil {
		return nil, err
	}
	return m, nil
}

// LensedCMBLibrary returns the default lensed CMB simulation library:
// simCount realizations on a square patch of 2^res pixels at the sky
// sampling, with random phases generated once (by the group leader) and the
// lensed products optionally cached.
func LensedCMBLibrary(e Env, g pbs.Group, res int, withRotation, cacheSims bool, simCount int) (*cmbs.Library, error) {
	skyMat, err := Geometry(e, res, res)
	if err != nil {
		return nil, err
	}
	clsUnl, _, err := FidCls(e, LMaxSky, withRotation)
	if err != nil {
		return nil, err
	}
	skyProj := geom.NewProjection(skyMat, geom.EllCap(LMaxSky))

	st := e.Store()
	fsky := skyMat.FSkyMilli()
	tag := clsUnl.Fingerprint()
	fields := clsUnl.Fields()

	pha, err := phases.NewAlmCache(st, SkyPhaseKey{
		SimCount: simCount, FSkyMilli: fsky, ClsTag: tag, WithCurl: withRotation,
	}, len(fields), skyProj, simCount)
	if err != nil {
		return nil, err
	}
	if err := pbs.FillAsLeader(g, pha, simCount, "Generating CMB phases"); err != nil {
		return nil, err
	}

	eng := transform.NewFFT(skyProj, e.Threads)
	return cmbs.New(st, LensedKey{
		SimCount: simCount, FSkyMilli: fsky, ClsTag: tag, WithCurl: withRotation,
	}, eng, lensing.Bilinear{}, clsUnl, pha, cacheSims)
}

// NoisyMapLibrary returns the default observed-data simulation library for a
// named experiment: lensed skies at the 2^highRes sampling, beam-convolved,
// regridded onto the 2^lowRes data grid and degraded by pixel noise at the
// experiment's levels.
func NoisyMapLibrary(e Env, g pbs.Group, exp Experiment, lowRes, highRes int,
	withRotation, cacheLensed, cacheMaps bool, simCount int) (*maps.Library, error) {
	cfg, err := ExperimentConfig(exp)
	if err != nil {
		return nil, err
	}
	lenLib, err := LensedCMBLibrary(e, g, highRes, withRotation, cacheLensed, simCount)
	if err != nil {
		return nil, err
	}
	dataMat, err := Geometry(e, lowRes, highRes)
	if err != nil {
		return nil, err
	}
	lmaxSky := lenLib.Proj().EllMax()
	dataProj := geom.NewProjection(dataMat, geom.EllCap(lmaxSky))
	transf := spectra.GaussBeam(cfg.BeamFWHMRad(), lmaxSky)

	// Per-pixel noise: level in µK·arcmin divided by the pixel side in
	// arcmin (the square root of the cell area).
	aminPerRad := 180 * 60 / math.Pi
	vcellAmin2 := dataMat.CellArea() * aminPerRad * aminPerRad
	noise := maps.NoiseLevels{
		T: cfg.TNoise / math.Sqrt(vcellAmin2),
		Q: cfg.PNoise / math.Sqrt(vcellAmin2),
		U: cfg.PNoise / math.Sqrt(vcellAmin2),
	}

	st := e.Store()
	fsky := dataMat.FSkyMilli()
	pixPha, err := phases.NewPixCache(st, PixPhaseKey{
		SimCount: simCount, FSkyMilli: fsky, LowRes: lowRes,
	}, maps.NoiseChannels, dataMat, simCount)
	if err != nil {
		return nil, err
	}
	if err := pbs.FillAsLeader(g, pixPha, simCount, "Generating noise phases"); err != nil {
		return nil, err
	}

	eng := transform.NewFFT(dataProj, e.Threads)
	return maps.New(st, MapsKey{
		SimCount: simCount, FSkyMilli: fsky, LowRes: lowRes, Exp: exp,
		ClsTag: lenLib.Key().(LensedKey).ClsTag, WithCurl: withRotation,
	}, eng, lenLib, transf, noise, pixPha, cacheMaps)
}

// CovarianceOperator returns the diagonal covariance model for a named
// experiment on the (lowRes, highRes) geometry: fiducial spectra, Gaussian
// beam transfer and flat noise spectra from the experiment's levels, with a
// finer sky projection kept for lensing-response evaluations.
func CovarianceOperator(e Env, exp Experiment, lowRes, highRes int) (*cov.Operator, error) {
	cfg, err := ExperimentConfig(exp)
	if err != nil {
		return nil, err
	}
	clsUnl, clsLen, err := FidCls(e, LMaxSky, false)
	if err != nil {
		return nil, err
	}
	mat, err := Geometry(e, lowRes, highRes)
	if err != nil {
		return nil, err
	}
	proj := geom.NewProjection(mat, geom.EllBand(cfg.EllMin, cfg.EllMax))
	skyProj := geom.NewProjection(mat, geom.EllCap(LMaxSky))
	transf := spectra.GaussBeam(cfg.BeamFWHMRad(), LMaxSky)

	return cov.Build(e.Store(), CovKey{Exp: exp, LowRes: lowRes, HighRes: highRes},
		proj, skyProj, clsUnl, clsLen, transf,
		cov.FlatNoise(cfg.TNoise, LMaxSky),
		cov.FlatNoise(cfg.PNoise, LMaxSky),
		cov.FlatNoise(cfg.PNoise, LMaxSky))
}
