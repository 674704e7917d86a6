package protocol

import "github.com/kinetigo/kinetiq/matrix"

// Epoch is a maximal sub-interval of one simulation cell during which all
// stimulus values are constant. It references, but does not own, the
// deduplicated UniqueEpoch carrying the numeric derivations for its
// stimulus tuple.
type Epoch struct {
	Stimuli  map[string]float64
	Start    float64
	Duration float64
	FirstPt  int
	NumPts   int
	Unique   *UniqueEpoch
}

// UniqueEpoch is a deduplicated epoch record keyed by its stimulus tuple.
// All numeric fields are (re)assembled by the coordinator for the current
// variable-set index and are only valid between assembly and the end of
// the derived pass for that index.
type UniqueEpoch struct {
	Stimuli map[string]float64

	// assembly outputs
	StartProb      []float64
	Attributes     map[string][]float64
	Rates          *matrix.Sparse
	Charges        *matrix.Sparse
	ChargeCurrents []float64

	// spectral decomposition (eigen method)
	EigenValues []float64
	Projectors  []*matrix.Dense

	// exponential-dwell parameters (Monte Carlo method): -Q[i][i] per state
	ExitRates []float64
}

// NumStates returns the state count of the last assembly, 0 before any.
func (u *UniqueEpoch) NumStates() int {
	if u.Rates == nil {
		return 0
	}

	return u.Rates.Rows()
}

// EpochRegistry is the process-wide set of unique epochs, owned by the
// coordinator and rebuilt on every Init.
type EpochRegistry struct {
	epochs []*UniqueEpoch
}

// NewEpochRegistry returns an empty registry.
func NewEpochRegistry() *EpochRegistry { return &EpochRegistry{} }

// Lookup finds the unique epoch for the given stimulus tuple
// (order-insensitive equality over the name→value map), creating and
// registering one on miss.
func (r *EpochRegistry) Lookup(stimuli map[string]float64) *UniqueEpoch {
	for _, u := range r.epochs {
		if sameStimuli(u.Stimuli, stimuli) {
			return u
		}
	}
	u := &UniqueEpoch{Stimuli: copyStimuli(stimuli)}
	r.epochs = append(r.epochs, u)

	return u
}

// All returns the registered unique epochs in creation order.
func (r *EpochRegistry) All() []*UniqueEpoch { return r.epochs }

// Len returns the number of registered unique epochs.
func (r *EpochRegistry) Len() int { return len(r.epochs) }

// Reset drops every registered epoch; a new Init starts clean.
func (r *EpochRegistry) Reset() { r.epochs = nil }

func sameStimuli(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for name, av := range a {
		bv, ok := b[name]
		if !ok || av != bv {
			return false
		}
	}

	return true
}

func copyStimuli(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for name, v := range in {
		out[name] = v
	}

	return out
}
