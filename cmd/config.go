package cmd

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mfrobertson/LensIt/sim"
	"github.com/mfrobertson/LensIt/sim/geom"
)

// expConfigOut is the YAML rendering of one experiment configuration.
type expConfigOut struct {
	Experiment string  `yaml:"experiment"`
	TNoise     float64 `yaml:"t_noise_uk_amin"`
	PNoise     float64 `yaml:"p_noise_uk_amin"`
	BeamFWHM   float64 `yaml:"beam_fwhm_amin"`
	EllMin     int     `yaml:"ell_min"`
	EllMax     int     `yaml:"ell_max"`
}

// configCmd prints the noise/beam parameters of a named experiment, or lists
// the registry when no name is given.
var configCmd = &cobra.Command{
	Use:   "config [experiment]",
	Short: "Print experiment noise, beam and multipole-band parameters",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			for _, name := range sim.Experiments() {
				fmt.Println(name)
			}
			return
		}
		cfg, err := sim.ExperimentConfig(sim.Experiment(args[0]))
		var unknown sim.UnknownExperimentError
		if errors.As(err, &unknown) {
			logrus.Fatalf("%v (run 'lensit config' for the registry)", err)
		}
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		out := expConfigOut{
			Experiment: args[0],
			TNoise:     cfg.TNoise,
			PNoise:     cfg.PNoise,
			BeamFWHM:   cfg.BeamFWHM,
			EllMin:     cfg.EllMin,
			EllMax:     cfg.EllMax,
		}
		enc := yaml.NewEncoder(os.Stdout)
		if err := enc.Encode(out); err != nil {
			logrus.Fatalf("encoding config: %v", err)
		}
		enc.Close()
	},
}

// geomCmd prints the grid derived from a resolution pair.
var geomCmd = &cobra.Command{
	Use:   "geom",
	Short: "Print the flat-sky grid for a resolution pair",
	Run: func(cmd *cobra.Command, args []string) {
		m, err := geom.NewEllMat(lowRes, highRes)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		fmt.Printf("shape: %dx%d pixels\n", m.Shape[0], m.Shape[1])
		fmt.Printf("side: %.6f rad (%.2f arcmin/pixel)\n",
			m.LSides[0], m.LSides[0]/float64(m.Shape[0])*180*60/math.Pi)
		fmt.Printf("fsky bucket: %d/1000\n", m.FSkyMilli())
		fmt.Printf("ell max: %d\n", m.EllMax())
	},
}

func init() {
	geomCmd.Flags().IntVar(&lowRes, "ld-res", 10, "Grid resolution exponent")
	geomCmd.Flags().IntVar(&highRes, "hd-res", 14, "Physical patch size exponent")
	rootCmd.AddCommand(configCmd, geomCmd)
}
