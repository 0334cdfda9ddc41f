package sim

import (
	"fmt"
)

// Structured cache keys. Identity and equality live in these types; paths
// exist only once a key reaches the store boundary. Every parameter that
// affects an artifact's content appears in its key, so distinct
// configurations can never collide on disk.

// SkyPhaseKey identifies the CMB sky phase cache.
type SkyPhaseKey struct {
	SimCount  int
	FSkyMilli int
	ClsTag    string // fingerprint of the unlensed spectra, see spectra.Cls.Fingerprint
	WithCurl  bool
}

func (k SkyPhaseKey) Segments() []string {
	return []string{
		fmt.Sprintf("%d_sims", k.SimCount),
		fmt.Sprintf("fsky%04d", k.FSkyMilli),
		"len_alms",
		"skypha" + curlSuffix(k.WithCurl) + "_cls" + k.ClsTag,
	}
}

// LensedKey identifies the lensed-sky library cache.
type LensedKey struct {
	SimCount  int
	FSkyMilli int
	ClsTag    string
	WithCurl  bool
}

func (k LensedKey) Segments() []string {
	return []string{
		fmt.Sprintf("%d_sims", k.SimCount),
		fmt.Sprintf("fsky%04d", k.FSkyMilli),
		"len_alms" + curlSuffix(k.WithCurl) + "_cls" + k.ClsTag,
	}
}

// PixPhaseKey identifies a pixel noise phase cache. Pixel phases are unit
// variance and experiment-agnostic: the experiment enters the noisy-map key
// instead.
type PixPhaseKey struct {
	SimCount  int
	FSkyMilli int
	LowRes    int
}

func (k PixPhaseKey) Segments() []string {
	return []string{
		fmt.Sprintf("%d_sims", k.SimCount),
		fmt.Sprintf("fsky%04d", k.FSkyMilli),
		fmt.Sprintf("res%d", k.LowRes),
		"pixpha",
	}
}

// MapsKey identifies a noisy-map library cache. The experiment name carries
// the noise and beam parameterization.
type MapsKey struct {
	SimCount  int
	FSkyMilli int
	LowRes    int
	Exp       Experiment
	ClsTag    string
	WithCurl  bool
}

func (k MapsKey) Segments() []string {
	return []string{
		fmt.Sprintf("%d_sims", k.SimCount),
		fmt.Sprintf("fsky%04d", k.FSkyMilli),
		fmt.Sprintf("res%d", k.LowRes),
		string(k.Exp),
		"maps" + curlSuffix(k.WithCurl) + "_cls" + k.ClsTag,
	}
}

// CovKey identifies a covariance operator cache.
type CovKey struct {
	Exp     Experiment
	LowRes  int
	HighRes int
}

func (k CovKey) Segments() []string {
	return []string{
		"Covs",
		string(k.Exp),
		fmt.Sprintf("LD%dHD%d", k.LowRes, k.HighRes),
	}
}

func curlSuffix(withCurl bool) string {
	if withCurl {
		return "_wcurl"
	}
	return ""
}
