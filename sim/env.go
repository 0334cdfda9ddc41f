package sim

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/mfrobertson/LensIt/sim/pbs"
	"github.com/mfrobertson/LensIt/sim/store"
)

// ErrMissingEnvironment is returned when the cache root is not configured.
// Fatal: there is nowhere safe to write.
var ErrMissingEnvironment = errors.New("sim: LENSIT environment variable not set (cache root)")

// ErrMissingJobID is returned when a multi-process run has no job identifier.
// Barrier markers are scoped per run; without a run identity a resumed run
// could rendezvous on a previous run's leftover markers.
var ErrMissingJobID = errors.New("sim: LENSIT_JOBID required when LENSIT_SIZE > 1")

// Env is the process environment of the toolkit, threaded explicitly through
// every factory instead of read from globals.
type Env struct {
	// Root is the writable directory all caches live under.
	Root string `env:"LENSIT"`
	// ClsDir overrides the directory holding the fiducial spectra files;
	// defaults to <Root>/data/cls.
	ClsDir string `env:"LENSIT_CLS"`
	// Threads is the worker count of the harmonic transform engine.
	Threads int `env:"OMP_NUM_THREADS" envDefault:"1"`
	// Rank and Size describe this process within a cooperating worker
	// group; the default is the solo group.
	Rank int `env:"LENSIT_RANK" envDefault:"0"`
	Size int `env:"LENSIT_SIZE" envDefault:"1"`
	// JobID names the run all workers of a group belong to (typically the
	// scheduler's job id). Required when Size > 1: it scopes the barrier
	// rendezvous, so one run's markers can never release another run's.
	JobID string `env:"LENSIT_JOBID"`
}

// LoadEnv parses the environment. The cache root is required.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("sim: parse environment: %w", err)
	}
	if e.Root == "" {
		return Env{}, ErrMissingEnvironment
	}
	if e.ClsDir == "" {
		e.ClsDir = filepath.Join(e.Root, "data", "cls")
	}
	if e.Threads < 1 {
		e.Threads = 1
	}
	return e, nil
}

// Store opens the artifact store under the cache root's temp subtree.
func (e Env) Store() *store.Store {
	return store.Open(filepath.Join(e.Root, "temp"))
}

// Group returns the process group this worker belongs to: the solo group
// when running alone, a file-backed barrier group otherwise. The rendezvous
// directory is keyed by the run's JobID: a resumed run over the same cache
// root gets a fresh barrier instead of the previous run's final markers.
func (e Env) Group() (pbs.Group, error) {
	if e.Size <= 1 {
		return pbs.Solo{}, nil
	}
	if e.JobID == "" {
		return nil, ErrMissingJobID
	}
	return pbs.NewFileGroup(filepath.Join(e.Root, "temp", "pbs", e.JobID), e.Rank, e.Size)
}
