// Package montecarlo implements the Gillespie-style simulation kernel:
// per-cell event chains of (state, dwell) pairs drawn from the unique
// epochs' exponential dwell distributions, with epoch-boundary handling
// that truncates a dwell at the boundary and extends it by a fresh draw
// under the next epoch's rate. Chains can be reduced back to a
// probability matrix by interval-overlap averaging.
package montecarlo

import (
	"fmt"
	"sync/atomic"

	"github.com/kinetigo/kinetiq/matrix"
	"github.com/kinetigo/kinetiq/protocol"
	"github.com/kinetigo/kinetiq/spectral"
)

// epsilon is the absorbing-state exit-rate threshold (5·ε for float64).
const epsilon = 5 * 2.220446049250313e-16

// Options configure a Monte Carlo invocation.
type Options struct {
	// NumRuns is the number of independent event chains per cell.
	NumRuns int
	// Accumulate appends new runs to existing chains instead of replacing.
	Accumulate bool
	// Sample reconstructs the probability matrix from the chains after
	// all runs complete.
	Sample bool
}

// DefaultOptions returns a production-ready configuration.
func DefaultOptions() Options { return Options{NumRuns: 1000, Sample: true} }

// PrepareExitRates fills u.ExitRates with the per-state total exit rate
// -Q[i,i], the rate parameter of the exponential dwell distribution.
// Called by the coordinator in place of a spectral decomposition.
func PrepareExitRates(u *protocol.UniqueEpoch) {
	numStates := u.NumStates()
	u.ExitRates = make([]float64, numStates)
	for i := 0; i < numStates; i++ {
		diag, _ := u.Rates.At(i, i)
		u.ExitRates[i] = -diag
	}
	u.EigenValues = nil
	u.Projectors = nil
}

// Simulate writes opts.NumRuns event chains to the v-th slot of sim,
// appending to the existing chains when opts.Accumulate is set and
// replacing them otherwise.
//
// Each run: draw the starting state by inverse CDF on p0; then repeatedly
// draw an exponential dwell at the current epoch's exit rate, spilling
// across epoch boundaries by truncate-and-extend; emit (state, dwell);
// choose the next state categorically over the departure rates. A state
// with exit rate below threshold absorbs the rest of the protocol.
//
// The abort flag is honored between runs and inside the event loop.
func Simulate(sim *protocol.Simulation, p0 []float64, startEquilibrated bool, opts Options, v int, abort *atomic.Bool) error {
	numStates := len(p0)
	chains := sim.EventsAt(v)
	if !opts.Accumulate {
		*chains = nil
	}
	if startEquilibrated {
		eq, err := spectral.EquilibriumProbability(sim.Epochs[0].Unique.Rates)
		if err != nil {
			return fmt.Errorf("Simulate: equilibrated start: %w", err)
		}
		p0 = eq
	}
	rng := sim.RNG
	for run := 0; run < opts.NumRuns; run++ {
		if aborted(abort) {
			return nil
		}
		chain := make(protocol.EventChain, 0, 64)
		// starting state by inverse CDF
		state := numStates - 1
		prnd := rng.Float64()
		ptot := 0.0
		for i := 0; i < numStates; i++ {
			ptot += p0[i]
			if ptot > prnd {
				state = i

				break
			}
		}
		elapsed := sim.Time[0] // event time is absolute, like the epoch grid
		epochIdx := 0
		for elapsed < sim.EndTime {
			if aborted(abort) {
				return nil
			}
			u := sim.Epochs[epochIdx].Unique
			kout := u.ExitRates[state]
			if kout < epsilon {
				// absorbing under this epoch: dwell to the end
				chain = append(chain, protocol.Event{State: state, Duration: sim.EndTime - elapsed})

				break
			}
			lifetime := rng.ExpFloat64() / kout
			for elapsed+lifetime > sim.Epochs[epochIdx].Start+sim.Epochs[epochIdx].Duration {
				// truncate at the boundary and extend under the next epoch
				lifetime = sim.Epochs[epochIdx].Start + sim.Epochs[epochIdx].Duration - elapsed
				epochIdx++
				if epochIdx == len(sim.Epochs) {
					break
				}
				kout = sim.Epochs[epochIdx].Unique.ExitRates[state]
				if kout < epsilon {
					epochIdx = len(sim.Epochs)

					break
				}
				lifetime += rng.ExpFloat64() / kout
			}
			if epochIdx == len(sim.Epochs) {
				// protocol ended mid-dwell: close the chain
				chain = append(chain, protocol.Event{State: state, Duration: sim.EndTime - elapsed})

				break
			}
			chain = append(chain, protocol.Event{State: state, Duration: lifetime})
			elapsed += lifetime
			if elapsed < sim.EndTime {
				// next state categorically over departure rates of the
				// current epoch's generator row
				prnd = rng.Float64()
				ptot = 0.0
				for _, e := range sim.Epochs[epochIdx].Unique.Rates.Row(state) {
					if e.Col == state {
						continue
					}
					ptot += e.Val / kout
					if ptot >= prnd {
						state = e.Col

						break
					}
				}
			}
		}
		*chains = append(*chains, chain)
	}
	if opts.Sample {
		P := sim.ProbabilityAt(v, numStates)
		Resample(P, *chains, sim.Time, sim.EndTime, abort)
	}

	return nil
}

// Resample reconstructs a probability matrix from event chains: for each
// sample interval [t_k, t_k+1) of length Δ (the last interval extends to
// endTime), every chain accumulates overlap(event, interval)/Δ into
// P[k, state], and the matrix is divided by the number of chains.
func Resample(P *matrix.Dense, chains []protocol.EventChain, time []float64, endTime float64, abort *atomic.Bool) {
	numPts := len(time)
	P.Zero()
	if len(chains) == 0 {
		return
	}
	for _, chain := range chains {
		if len(chain) == 0 {
			continue
		}
		t := 0
		ev := 0
		intervalStart := time[t]
		intervalEnd := endTime
		if t+1 < numPts {
			intervalEnd = time[t+1]
		}
		interval := intervalEnd - intervalStart
		eventStart := intervalStart
		eventEnd := eventStart + chain[ev].Duration
		for t < numPts && ev < len(chain) {
			if aborted(abort) {
				return
			}
			switch {
			case eventStart <= intervalStart && eventEnd >= intervalEnd:
				// event covers the whole interval
				P.Row(t)[chain[ev].State]++
				t++
				intervalStart = intervalEnd
				if t+1 < numPts {
					intervalEnd = time[t+1]
				} else {
					intervalEnd = endTime
				}
				interval = intervalEnd - intervalStart
			case eventStart <= intervalStart:
				// event stops mid interval
				P.Row(t)[chain[ev].State] += (eventEnd - intervalStart) / interval
				ev++
				if ev == len(chain) {
					break
				}
				eventStart = eventEnd
				eventEnd = eventStart + chain[ev].Duration
			case eventEnd >= intervalEnd:
				// event starts mid interval
				P.Row(t)[chain[ev].State] += (intervalEnd - eventStart) / interval
				t++
				intervalStart = intervalEnd
				if t+1 < numPts {
					intervalEnd = time[t+1]
				} else {
					intervalEnd = endTime
				}
				interval = intervalEnd - intervalStart
			default:
				// event starts and stops mid interval
				P.Row(t)[chain[ev].State] += chain[ev].Duration / interval
				ev++
				if ev == len(chain) {
					break
				}
				eventStart = eventEnd
				eventEnd = eventStart + chain[ev].Duration
			}
		}
	}
	inv := 1.0 / float64(len(chains))
	for k := 0; k < numPts; k++ {
		row := P.Row(k)
		for j := range row {
			row[j] *= inv
		}
	}
}

func aborted(abort *atomic.Bool) bool { return abort != nil && abort.Load() }
