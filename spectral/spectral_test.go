package spectral_test

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetigo/kinetiq/matrix"
	"github.com/kinetigo/kinetiq/protocol"
	"github.com/kinetigo/kinetiq/spectral"
)

// twoStateQ builds the generator [[-a, a], [b, -b]].
func twoStateQ(t *testing.T, a, b float64) *matrix.Sparse {
	t.Helper()
	Q, err := matrix.NewSparse(2, 2)
	require.NoError(t, err)
	require.NoError(t, Q.Set(0, 1, a))
	require.NoError(t, Q.Set(1, 0, b))
	require.NoError(t, Q.SetGeneratorDiagonal())

	return Q
}

// flatProtocol builds a single-cell protocol with no stimuli: one epoch.
func flatProtocol(t *testing.T, duration, dt string) (*protocol.Protocol, *protocol.EpochRegistry) {
	t.Helper()
	p := protocol.New("flat")
	p.Duration = duration
	p.SampleInterval = dt
	reg := protocol.NewEpochRegistry()
	require.NoError(t, p.Init(reg))

	return p, reg
}

// TestDecompose_TwoState verifies eigenvalue ordering (|λ| ascending) and
// the equilibrium-projector invariant π₀·A₀·Q ≈ 0.
func TestDecompose_TwoState(t *testing.T) {
	_, reg := flatProtocol(t, "1", "0.01")
	u := reg.All()[0]
	u.Rates = twoStateQ(t, 3, 1)

	require.NoError(t, spectral.Decompose(u, spectral.DefaultOptions(), nil))
	require.Len(t, u.EigenValues, 2)
	assert.InDelta(t, 0, u.EigenValues[0], 1e-8)
	assert.InDelta(t, -4, u.EigenValues[1], 1e-8)

	// π₀·A₀ is the stationary distribution: applying Q must annihilate it.
	p0 := []float64{1, 0}
	eq, err := spectral.Equilibrium(p0, u)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, eq[0], 1e-8)
	assert.InDelta(t, 0.75, eq[1], 1e-8)
	// row-vector product: eq·Q must vanish
	qd, err := u.Rates.ToDense()
	require.NoError(t, err)
	eqQ, err := qd.VecMul(eq)
	require.NoError(t, err)
	for _, v := range eqQ {
		assert.InDelta(t, 0, v, 1e-8)
	}
}

// TestDecompose_TooFewStates verifies ErrSpectral for N < 2.
func TestDecompose_TooFewStates(t *testing.T) {
	u := &protocol.UniqueEpoch{}
	err := spectral.Decompose(u, spectral.DefaultOptions(), nil)
	assert.ErrorIs(t, err, spectral.ErrSpectral)
}

// TestPropagate_TwoStateRelaxation checks the analytic solution
// P_A(t) = p_eq + (1-p_eq)·exp(-(a+b)t) and probability conservation.
func TestPropagate_TwoStateRelaxation(t *testing.T) {
	p, reg := flatProtocol(t, "1", "0.01")
	sim := p.Simulations[0][0]
	u := reg.All()[0]
	a, b := 3.0, 1.0
	u.Rates = twoStateQ(t, a, b)
	require.NoError(t, spectral.Decompose(u, spectral.DefaultOptions(), nil))

	require.NoError(t, spectral.Propagate(sim, []float64{1, 0}, false, 0, nil))
	P := sim.Probability[0]
	require.NotNil(t, P)

	peq := b / (a + b)
	for k, tv := range sim.Time {
		pa, _ := P.At(k, 0)
		want := peq + (1-peq)*math.Exp(-(a+b)*tv)
		assert.InDelta(t, want, pa, 1e-6, "t=%g", tv)
		row := P.Row(k)
		assert.InDelta(t, 1, row[0]+row[1], 1e-6, "conservation at t=%g", tv)
	}
}

// TestPropagate_StartEquilibrated verifies the equilibrium start: the
// occupancy is flat at p_eq across the whole (single-epoch) protocol.
func TestPropagate_StartEquilibrated(t *testing.T) {
	p, reg := flatProtocol(t, "0.5", "0.01")
	sim := p.Simulations[0][0]
	u := reg.All()[0]
	u.Rates = twoStateQ(t, 3, 1)
	require.NoError(t, spectral.Decompose(u, spectral.DefaultOptions(), nil))

	require.NoError(t, spectral.Propagate(sim, []float64{1, 0}, true, 0, nil))
	P := sim.Probability[0]
	for k := range sim.Time {
		pa, _ := P.At(k, 0)
		assert.InDelta(t, 0.25, pa, 1e-8)
	}
}

// TestPropagate_MultiEpoch drives a two-epoch protocol (rate switch at
// mid-protocol) and checks continuity and conservation at the boundary.
func TestPropagate_MultiEpoch(t *testing.T) {
	p := protocol.New("switch")
	p.Duration = "1"
	p.SampleInterval = "0.01"
	p.Stimuli = append(p.Stimuli, &protocol.Stimulus{
		Name: "z", Active: true,
		Start: "0.5", Duration: "1", Amplitude: "1", Repetitions: "1",
	})
	reg := protocol.NewEpochRegistry()
	require.NoError(t, p.Init(reg))
	sim := p.Simulations[0][0]
	require.Len(t, sim.Epochs, 2)
	require.Equal(t, 2, reg.Len())

	// epoch 1: slow approach to 0.5/0.5; epoch 2: fast approach to 0.25/0.75
	for _, u := range reg.All() {
		if u.Stimuli["z"] == 0 {
			u.Rates = twoStateQ(t, 1, 1)
		} else {
			u.Rates = twoStateQ(t, 6, 2)
		}
		require.NoError(t, spectral.Decompose(u, spectral.DefaultOptions(), nil))
	}
	require.NoError(t, spectral.Propagate(sim, []float64{1, 0}, false, 0, nil))
	P := sim.Probability[0]

	for k, tv := range sim.Time {
		row := P.Row(k)
		assert.InDelta(t, 1, row[0]+row[1], 1e-6, "t=%g", tv)
	}
	// continuity: value just after the boundary is close to just before
	boundary := sim.Epochs[1].FirstPt
	before, _ := P.At(boundary-1, 0)
	after, _ := P.At(boundary, 0)
	assert.InDelta(t, before, after, 0.05)
	// late-time value approaches the second epoch's equilibrium 0.25
	last, _ := P.At(len(sim.Time)-1, 0)
	assert.InDelta(t, 0.25, last, 0.02)
}

// TestEquilibriumProbability verifies the closed-form stationary solve
// used by Monte Carlo equilibrated starts.
func TestEquilibriumProbability(t *testing.T) {
	Q := twoStateQ(t, 3, 1)
	eq, err := spectral.EquilibriumProbability(Q)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, eq[0], 1e-10)
	assert.InDelta(t, 0.75, eq[1], 1e-10)
}

// TestPropagate_AbortShortCircuits verifies the cooperative abort path.
func TestPropagate_AbortShortCircuits(t *testing.T) {
	p, reg := flatProtocol(t, "1", "0.01")
	sim := p.Simulations[0][0]
	u := reg.All()[0]
	u.Rates = twoStateQ(t, 3, 1)
	require.NoError(t, spectral.Decompose(u, spectral.DefaultOptions(), nil))

	var abort atomic.Bool
	abort.Store(true)
	require.NoError(t, spectral.Propagate(sim, []float64{1, 0}, false, 0, &abort))
	// aborted before any write: matrix stays zero
	P := sim.Probability[0]
	v, _ := P.At(0, 0)
	assert.Zero(t, v)
}
