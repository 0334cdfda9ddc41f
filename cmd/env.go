package cmd

import (
	"github.com/sirupsen/logrus"

	"github.com/mfrobertson/LensIt/sim"
	"github.com/mfrobertson/LensIt/sim/pbs"
)

// mustEnv loads the toolkit environment and process group, or exits.
func mustEnv() (sim.Env, pbs.Group) {
	env, err := sim.LoadEnv()
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	group, err := env.Group()
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	if group.Size() > 1 {
		logrus.Infof("Cooperating as rank %d of %d", group.Rank(), group.Size())
	}
	return env, group
}

// fillLibrary completes a library cache on the leader and synchronizes the
// group afterwards.
func fillLibrary(g pbs.Group, f pbs.Filler, n int, label string) error {
	return pbs.FillAsLeader(g, f, n, label)
}
