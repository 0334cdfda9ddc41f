package sim

import (
	"fmt"
	"math"
	"sort"
)

// Experiment names one instrument configuration in the registry.
type Experiment string

// The registered experiment configurations.
const (
	Planck         Experiment = "Planck"
	Planck65       Experiment = "Planck_65"
	Planck45       Experiment = "Planck45"
	Planck45LMax3k Experiment = "Planck45_lmax3000"
	S4             Experiment = "S4"
	S4Opti         Experiment = "S4_opti"
	S4SPDP         Experiment = "S4_SPDP"
	S4Opti6000     Experiment = "S4_opti_6000"
	S5             Experiment = "S5"
	S6             Experiment = "S6"
	SO             Experiment = "SO"
	SOb1           Experiment = "SOb1"
	PB85           Experiment = "PB85"
	PB5            Experiment = "PB5"
	FancyMark      Experiment = "fcy_mark"
	FiveMuKOneAmin Experiment = "5muKamin_1amin"
)

// UnknownExperimentError is returned for names absent from the registry.
// Raised before any filesystem access.
type UnknownExperimentError struct {
	Name string
}

func (e UnknownExperimentError) Error() string {
	return fmt.Sprintf("sim: unknown experiment %q", e.Name)
}

// ExpConfig is the static instrument description: map noise levels in
// µK·arcmin, beam width in arcmin, and the multipole band used for
// reconstruction. Immutable; no caching involved.
type ExpConfig struct {
	TNoise   float64 // temperature noise level, µK·arcmin
	PNoise   float64 // polarization noise level, µK·arcmin
	BeamFWHM float64 // beam full width at half maximum, arcmin
	EllMin   int
	EllMax   int
}

// BeamFWHMRad returns the beam width in radians.
func (c ExpConfig) BeamFWHMRad() float64 {
	return c.BeamFWHM / 60 * math.Pi / 180
}

// registry is the closed experiment table. A zero PNoise means the √2·TNoise
// polarization default applies.
var registry = map[Experiment]ExpConfig{
	Planck:         {TNoise: 35, BeamFWHM: 7, EllMin: 10, EllMax: 2048},
	Planck65:       {TNoise: 35, BeamFWHM: 6.5, EllMin: 100, EllMax: 2048},
	Planck45:       {TNoise: 45, BeamFWHM: 5, EllMin: 10, EllMax: 2048},
	Planck45LMax3k: {TNoise: 45, BeamFWHM: 5, EllMin: 10, EllMax: 3000},
	S4:             {TNoise: 1.5, BeamFWHM: 3, EllMin: 10, EllMax: 3000},
	S4Opti:         {TNoise: 1, BeamFWHM: 1, EllMin: 10, EllMax: 3000},
	S4SPDP:         {TNoise: 0.5 / math.Sqrt2, BeamFWHM: 1, EllMin: 10, EllMax: 4096},
	S4Opti6000:     {TNoise: 1, BeamFWHM: 1, EllMin: 10, EllMax: 6000},
	S5:             {TNoise: 1.5 / 4, BeamFWHM: 3, EllMin: 10, EllMax: 3000},
	S6:             {TNoise: 1.5 / 4 / 4, BeamFWHM: 3, EllMin: 10, EllMax: 3000},
	SO:             {TNoise: 3, BeamFWHM: 3, EllMin: 10, EllMax: 3000},
	SOb1:           {TNoise: 3, BeamFWHM: 1, EllMin: 10, EllMax: 3000},
	PB85:           {TNoise: 8.5 / math.Sqrt2, BeamFWHM: 3.5, EllMin: 10, EllMax: 3000},
	PB5:            {TNoise: 5 / math.Sqrt2, BeamFWHM: 3.5, EllMin: 10, EllMax: 3000},
	FancyMark:      {TNoise: 5, BeamFWHM: 1.4, EllMin: 10, EllMax: 3000},
	FiveMuKOneAmin: {TNoise: 5, BeamFWHM: 1, EllMin: 10, EllMax: 3000},
}

// ExperimentConfig looks up a named experiment. Unknown names fail fast with
// UnknownExperimentError and no I/O. When the table gives no explicit
// polarization noise, the √2·TNoise default applies.
func ExperimentConfig(name Experiment) (ExpConfig, error) {
	cfg, ok := registry[name]
	if !ok {
		return ExpConfig{}, UnknownExperimentError{Name: string(name)}
	}
	if cfg.PNoise == 0 {
		cfg.PNoise = math.Sqrt2 * cfg.TNoise
	}
	return cfg, nil
}

// Experiments returns the registered names, sorted.
func Experiments() []Experiment {
	out := make([]Experiment, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
