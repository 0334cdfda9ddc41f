package sim

import (
	"path/filepath"

	"github.com/mfrobertson/LensIt/sim/spectra"
)

// LMaxSky is the default multipole cap of the fiducial sky spectra.
const LMaxSky = 5120

// FidCls loads the fiducial unlensed and lensed CMB spectra from the
// environment's spectra directory, capped at ellMaxSky (the lensing
// potential keeps its full tabulated range). With rotation the field-rotation
// spectrum is attached to the unlensed set, which switches the simulated
// deflections to include a curl mode.
func FidCls(e Env, ellMaxSky int, withRotation bool) (clsUnl, clsLen *spectra.Cls, err error) {
	clsUnl, err = spectra.LoadCAMB(filepath.Join(e.ClsDir, spectra.LensPotentialFile))
	if err != nil {
		return nil, nil, err
	}
	clsUnl = clsUnl.Truncate(ellMaxSky)
	if withRotation {
		oo, err := spectra.LoadRotation(filepath.Join(e.ClsDir, spectra.FieldRotationFile))
		if err != nil {
			return nil, nil, err
		}
		clsUnl.OO = oo
	}
	clsLen, err = spectra.LoadCAMB(filepath.Join(e.ClsDir, spectra.LensedFile))
	if err != nil {
		return nil, nil, err
	}
	return clsUnl, clsLen.Truncate(ellMaxSky), nil
}

// FidTensCls loads the fiducial tensor spectra, capped at ellMaxSky.
func FidTensCls(e Env, ellMaxSky int) (*spectra.Cls, error) {
	cls, err := spectra.LoadCAMB(filepath.Join(e.ClsDir, spectra.TensorFile))
	if err != nil {
		return nil, err
	}
	return cls.Truncate(ellMaxSky), nil
}
