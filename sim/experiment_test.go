package sim

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExperimentConfig_Planck(t *testing.T) {
	cfg, err := ExperimentConfig(Planck)
	require.NoError(t, err)
	assert.Equal(t, 35.0, cfg.TNoise)
	assert.Equal(t, 7.0, cfg.BeamFWHM)
	assert.Equal(t, 10, cfg.EllMin)
	assert.Equal(t, 2048, cfg.EllMax)
	// No explicit polarization noise in the table: the sqrt(2) default.
	assert.InEpsilon(t, 35*math.Sqrt2, cfg.PNoise, 1e-15)
}

func TestExperimentConfig_Table(t *testing.T) {
	tests := []struct {
		exp    Experiment
		tNoise float64
		beam   float64
		lmax   int
	}{
		{S4, 1.5, 3, 3000},
		{S4Opti6000, 1, 1, 6000},
		{S5, 1.5 / 4, 3, 3000},
		{S6, 1.5 / 16, 3, 3000},
		{SOb1, 3, 1, 3000},
		{PB85, 8.5 / math.Sqrt2, 3.5, 3000},
		{FiveMuKOneAmin, 5, 1, 3000},
	}
	for _, tc := range tests {
		t.Run(string(tc.exp), func(t *testing.T) {
			cfg, err := ExperimentConfig(tc.exp)
			require.NoError(t, err)
			assert.InEpsilon(t, tc.tNoise, cfg.TNoise, 1e-15)
			assert.InEpsilon(t, tc.beam, cfg.BeamFWHM, 1e-15)
			assert.Equal(t, tc.lmax, cfg.EllMax)
			assert.InEpsilon(t, math.Sqrt2*tc.tNoise, cfg.PNoise, 1e-15)
		})
	}
}

func TestExperimentConfig_Unknown(t *testing.T) {
	_, err := ExperimentConfig("NotAnExperiment")
	require.Error(t, err)
	assert.Equal(t, UnknownExperimentError{Name: "NotAnExperiment"}, err)
	assert.Contains(t, err.Error(), "NotAnExperiment")
}

func TestExpConfig_BeamFWHMRad(t *testing.T) {
	cfg := ExpConfig{BeamFWHM: 60} // one degree
	assert.InEpsilon(t, math.Pi/180, cfg.BeamFWHMRad(), 1e-15)
}

func TestExperiments_SortedAndComplete(t *testing.T) {
	names := Experiments()
	assert.Len(t, names, len(registry))
	assert.True(t, sort.SliceIsSorted(names, func(i, j int) bool { return names[i] < names[j] }))
	assert.Contains(t, names, Planck)
	assert.Contains(t, names, S4SPDP)
}
