package protocol

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"

	"github.com/seehuhn/mt19937"

	"github.com/kinetigo/kinetiq/matrix"
)

// Event is one Monte Carlo occupancy event: the state index and the dwell
// duration spent in it.
type Event struct {
	State    int
	Duration float64
}

// EventChain is the ordered event sequence of a single Monte Carlo run.
type EventChain []Event

// Simulation is one cell of a protocol's conditions grid: its sample time
// base, synthesized stimulus vectors, epochs, and per-variable-set
// outputs. Cells are disjoint; each owns a private Mersenne-Twister
// stream seeded from system entropy at Init.
type Simulation struct {
	Time    []float64
	EndTime float64
	Stimuli map[string][]float64
	Weight  []float64
	Mask    []bool
	Epochs  []Epoch

	// outputs, indexed by variable-set index
	Probability []*matrix.Dense
	Events      [][]EventChain
	Waveforms   []map[string][]float64

	RNG *mathrand.Rand
}

// NumPts returns the cell's sample count.
func (sim *Simulation) NumPts() int { return len(sim.Time) }

// ProbabilityAt returns the probability matrix of variable set v, growing
// the slice (zero-filled) so slot v is writable. numStates sizes a fresh
// matrix when the slot is empty or mis-shaped.
func (sim *Simulation) ProbabilityAt(v, numStates int) *matrix.Dense {
	for len(sim.Probability) <= v {
		sim.Probability = append(sim.Probability, nil)
	}
	P := sim.Probability[v]
	if P == nil || P.Rows() != sim.NumPts() || P.Cols() != numStates {
		P, _ = matrix.NewDense(sim.NumPts(), numStates)
		sim.Probability[v] = P
	}

	return P
}

// EventsAt returns a pointer to the event-chain slot of variable set v,
// growing the slice so slot v is writable.
func (sim *Simulation) EventsAt(v int) *[]EventChain {
	for len(sim.Events) <= v {
		sim.Events = append(sim.Events, nil)
	}

	return &sim.Events[v]
}

// WaveformsAt returns the waveform map of variable set v, growing the
// slice so slot v is writable.
func (sim *Simulation) WaveformsAt(v int) map[string][]float64 {
	for len(sim.Waveforms) <= v {
		sim.Waveforms = append(sim.Waveforms, nil)
	}
	if sim.Waveforms[v] == nil {
		sim.Waveforms[v] = make(map[string][]float64)
	}

	return sim.Waveforms[v]
}

// scanEpochs rebuilds the epoch list: a new epoch opens at sample i
// whenever any stimulus sample differs from sample i-1. The final epoch is
// closed by the recorded end time, covering the trailing partial step.
func (sim *Simulation) scanEpochs() {
	sim.Epochs = sim.Epochs[:0]
	numPts := len(sim.Time)
	if numPts == 0 {
		return
	}
	open := Epoch{Start: sim.Time[0], FirstPt: 0, Stimuli: sim.stimuliAt(0)}
	for i := 1; i < numPts; i++ {
		if !sim.stimuliChangedAt(i) {
			continue
		}
		open.Duration = sim.Time[i] - open.Start
		open.NumPts = i - open.FirstPt
		sim.Epochs = append(sim.Epochs, open)
		open = Epoch{Start: sim.Time[i], FirstPt: i, Stimuli: sim.stimuliAt(i)}
	}
	open.Duration = sim.EndTime - open.Start
	open.NumPts = numPts - open.FirstPt
	sim.Epochs = append(sim.Epochs, open)
}

func (sim *Simulation) stimuliAt(i int) map[string]float64 {
	out := make(map[string]float64, len(sim.Stimuli))
	for name, samples := range sim.Stimuli {
		out[name] = samples[i]
	}

	return out
}

func (sim *Simulation) stimuliChangedAt(i int) bool {
	for _, samples := range sim.Stimuli {
		if samples[i] != samples[i-1] {
			return true
		}
	}

	return false
}

// seedRNG gives the cell a fresh 624-word Mersenne-Twister stream seeded
// from the system entropy source.
func (sim *Simulation) seedRNG() {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	mt := mt19937.New()
	mt.Seed(int64(binary.LittleEndian.Uint64(buf[:])))
	sim.RNG = mathrand.New(mt)
}

// MaxProbabilityError returns the worst |Σ_j P[k,j] − 1| over every
// filled variable set and sample, a cheap conservation diagnostic.
func (sim *Simulation) MaxProbabilityError() float64 {
	maxErr := 0.0
	for _, P := range sim.Probability {
		if P == nil {
			continue
		}
		for k := 0; k < P.Rows(); k++ {
			sum := 0.0
			for _, v := range P.Row(k) {
				sum += v
			}
			if d := sum - 1; d > maxErr {
				maxErr = d
			} else if -d > maxErr {
				maxErr = -d
			}
		}
	}

	return maxErr
}
