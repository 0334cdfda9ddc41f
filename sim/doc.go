// Package sim is the entry point of the flat-sky CMB lensing simulation
// toolkit: it composes the cached simulation libraries and the covariance
// operator used for lensing reconstruction.
//
// # Reading Guide
//
// Start with these three files to understand the composition pipeline:
//   - env.go: the cache-root/thread-count environment configuration
//   - experiment.go: the closed registry of instrument configurations
//   - factory.go: the factories walking the dependency graph bottom-up
//     (phases → lensed skies → observed maps → covariance)
//
// # Architecture
//
// The sim package orchestrates; the mechanics live in sub-packages:
//   - sim/geom: flat-sky grid descriptors and harmonic projections
//   - sim/spectra: fiducial power spectra and the CAMB file loader
//   - sim/store: structured cache keys and write-once artifacts
//   - sim/phases: deterministic per-index random phase caches
//   - sim/pbs: the multi-process leader/barrier coordination
//   - sim/transform: the harmonic transform engine (gonum FFT)
//   - sim/lensing: deflection synthesis and map remapping
//   - sim/cmbs, sim/maps, sim/cov: the simulation libraries themselves
//
// Every factory is a pure function of its explicit arguments plus the cache
// contents on disk: the same configuration always resolves to the same cache
// and is reused rather than rebuilt.
package sim
