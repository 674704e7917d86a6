package engine

import (
	"runtime"

	"github.com/kinetigo/kinetiq/spectral"
)

// Method selects the simulation kernel.
type Method int

const (
	// Spectral propagates occupancy by eigen expansion of each unique Q.
	Spectral Method = iota

	// MonteCarlo samples event chains with the Gillespie kernel.
	MonteCarlo
)

// Options configure a Simulator.
//
// Fields:
//   - Method         — Spectral or MonteCarlo.
//   - NumRuns        — Monte Carlo runs per cell per variable set.
//   - AccumulateRuns — append Monte Carlo runs to existing chains.
//   - SampleRuns     — rebuild probability matrices from the chains.
//   - Workers        — parallel task limit for both fan-out phases.
//   - Eigen          — tolerances of the spectral decomposition.
type Options struct {
	Method         Method
	NumRuns        int
	AccumulateRuns bool
	SampleRuns     bool
	Workers        int
	Eigen          spectral.Options
}

// DefaultOptions returns the spectral method on all CPUs with production
// eigen tolerances and the Monte Carlo sampling flags a fresh run wants.
func DefaultOptions() Options {
	return Options{
		Method:     Spectral,
		NumRuns:    1000,
		SampleRuns: true,
		Workers:    runtime.NumCPU(),
		Eigen:      spectral.DefaultOptions(),
	}
}
