package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mfrobertson/LensIt/sim"
)

var (
	// CLI flags shared by the build subcommands
	experiment   string // Experiment configuration name
	lowRes       int    // Data grid resolution exponent (2^lowRes pixels per side)
	highRes      int    // Physical patch size exponent (full sky at 14)
	simCount     int    // Number of simulations in the library
	withRotation bool   // Include the lensing curl mode in deflections
	cacheLensed  bool   // Cache lensed CMB products on first computation
	cacheMaps    bool   // Cache observed data maps on first computation
)

// buildCmd groups the library build subcommands.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a simulation library or covariance operator cache",
}

// buildCmbs fills the lensed CMB library (phases first, then every lensed
// realization when caching is on).
var buildCmbs = &cobra.Command{
	Use:   "cmbs",
	Short: "Build the lensed CMB simulation library",
	Run: func(cmd *cobra.Command, args []string) {
		env, group := mustEnv()
		start := time.Now()
		lib, err := sim.LensedCMBLibrary(env, group, highRes, withRotation, cacheLensed, simCount)
		if err != nil {
			logrus.Fatalf("building lensed CMB library: %v", err)
		}
		if cacheLensed {
			if err := fillLibrary(group, lib, simCount, "Lensing CMB skies"); err != nil {
				logrus.Fatalf("filling lensed CMB library: %v", err)
			}
		}
		logrus.Infof("Lensed CMB library ready (%d sims, %v)", lib.SimCount(), time.Since(start).Round(time.Millisecond))
	},
}

// buildMaps fills the noisy observed-map library for an experiment.
var buildMaps = &cobra.Command{
	Use:   "maps",
	Short: "Build the observed data-map simulation library",
	PreRun: func(cmd *cobra.Command, args []string) {
		applyDefaults(cmd.Flags().Changed)
	},
	Run: func(cmd *cobra.Command, args []string) {
		env, group := mustEnv()
		start := time.Now()
		lib, err := sim.NoisyMapLibrary(env, group, sim.Experiment(experiment),
			lowRes, highRes, withRotation, cacheLensed, cacheMaps, simCount)
		if err != nil {
			logrus.Fatalf("building map library: %v", err)
		}
		if cacheMaps {
			if err := fillLibrary(group, lib, simCount, "Generating data maps"); err != nil {
				logrus.Fatalf("filling map library: %v", err)
			}
		}
		logrus.Infof("Map library ready (%d sims, %v)", lib.SimCount(), time.Since(start).Round(time.Millisecond))
	},
}

// buildCov assembles the covariance operator cache for an experiment.
var buildCov = &cobra.Command{
	Use:   "cov",
	Short: "Build the diagonal covariance operator",
	PreRun: func(cmd *cobra.Command, args []string) {
		applyDefaults(cmd.Flags().Changed)
	},
	Run: func(cmd *cobra.Command, args []string) {
		env, _ := mustEnv()
		op, err := sim.CovarianceOperator(env, sim.Experiment(experiment), lowRes, highRes)
		if err != nil {
			logrus.Fatalf("building covariance operator: %v", err)
		}
		logrus.Infof("Covariance operator ready (%d alm modes up to ell=%d)",
			op.Proj.Nalm(), op.Proj.EllMax())
	},
}

func init() {
	for _, c := range []*cobra.Command{buildCmbs, buildMaps, buildCov} {
		c.Flags().IntVar(&highRes, "hd-res", 14, "Physical patch size exponent (full sky at 14)")
		c.Flags().IntVar(&simCount, "nsims", 120, "Number of simulations in the library")
	}
	for _, c := range []*cobra.Command{buildMaps, buildCov} {
		c.Flags().StringVar(&experiment, "exp", "Planck", "Experiment configuration name")
		c.Flags().IntVar(&lowRes, "ld-res", 10, "Data grid resolution exponent")
		c.Flags().StringVar(&defaultsFilePath, "defaults", "", "YAML file of per-experiment build defaults")
	}
	for _, c := range []*cobra.Command{buildCmbs, buildMaps} {
		c.Flags().BoolVar(&withRotation, "wrotation", false, "Include the lensing curl mode")
		c.Flags().BoolVar(&cacheLensed, "cache-lensed", true, "Cache lensed CMB products")
	}
	buildMaps.Flags().BoolVar(&cacheMaps, "cache-maps", false, "Cache observed data maps")

	buildCmd.AddCommand(buildCmbs, buildMaps, buildCov)
	rootCmd.AddCommand(buildCmd)
}
