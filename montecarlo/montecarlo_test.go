package montecarlo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetigo/kinetiq/matrix"
	"github.com/kinetigo/kinetiq/montecarlo"
	"github.com/kinetigo/kinetiq/protocol"
	"github.com/kinetigo/kinetiq/spectral"
)

func twoStateQ(t *testing.T, a, b float64) *matrix.Sparse {
	t.Helper()
	Q, err := matrix.NewSparse(2, 2)
	require.NoError(t, err)
	require.NoError(t, Q.Set(0, 1, a))
	require.NoError(t, Q.Set(1, 0, b))
	require.NoError(t, Q.SetGeneratorDiagonal())

	return Q
}

func flatCell(t *testing.T, duration, dt string) (*protocol.Simulation, *protocol.UniqueEpoch) {
	t.Helper()
	p := protocol.New("mc")
	p.Duration = duration
	p.SampleInterval = dt
	reg := protocol.NewEpochRegistry()
	require.NoError(t, p.Init(reg))

	return p.Simulations[0][0], reg.All()[0]
}

// TestSimulate_ChainInvariants checks structural properties of event
// chains: dwell positivity, total duration equal to the protocol span,
// and alternating states for a two-state scheme.
func TestSimulate_ChainInvariants(t *testing.T) {
	sim, u := flatCell(t, "1", "0.001")
	u.Rates = twoStateQ(t, 10, 10)
	montecarlo.PrepareExitRates(u)
	require.Equal(t, []float64{10, 10}, u.ExitRates)

	opts := montecarlo.Options{NumRuns: 200}
	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, opts, 0, nil))
	chains := sim.Events[0]
	require.Len(t, chains, 200)

	for _, chain := range chains {
		require.NotEmpty(t, chain)
		total := 0.0
		for i, ev := range chain {
			assert.GreaterOrEqual(t, ev.Duration, 0.0)
			assert.Contains(t, []int{0, 1}, ev.State)
			if i > 0 {
				assert.NotEqual(t, chain[i-1].State, ev.State, "two-state chains alternate")
			}
			total += ev.Duration
		}
		assert.InDelta(t, 1.0, total, 1e-9, "chain spans the protocol")
		assert.Equal(t, 0, chain[0].State, "started in state A")
	}
}

// TestSimulate_AccumulateAppends verifies the accumulate flag.
func TestSimulate_AccumulateAppends(t *testing.T) {
	sim, u := flatCell(t, "0.1", "0.01")
	u.Rates = twoStateQ(t, 5, 5)
	montecarlo.PrepareExitRates(u)

	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, montecarlo.Options{NumRuns: 10}, 0, nil))
	require.Len(t, sim.Events[0], 10)
	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, montecarlo.Options{NumRuns: 10, Accumulate: true}, 0, nil))
	require.Len(t, sim.Events[0], 20)
	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, montecarlo.Options{NumRuns: 5}, 0, nil))
	require.Len(t, sim.Events[0], 5, "non-accumulating run replaces")
}

// TestSimulate_AbsorbingState verifies the single closing event when the
// start state has no exit.
func TestSimulate_AbsorbingState(t *testing.T) {
	sim, u := flatCell(t, "1", "0.1")
	Q, err := matrix.NewSparse(2, 2)
	require.NoError(t, err)
	require.NoError(t, Q.Set(1, 0, 3)) // only B→A; A absorbs
	require.NoError(t, Q.SetGeneratorDiagonal())
	u.Rates = Q
	montecarlo.PrepareExitRates(u)

	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, montecarlo.Options{NumRuns: 5}, 0, nil))
	for _, chain := range sim.Events[0] {
		require.Len(t, chain, 1)
		assert.Equal(t, 0, chain[0].State)
		assert.InDelta(t, 1.0, chain[0].Duration, 1e-12)
	}
}

// TestSimulate_ConvergenceToSpectral is the Monte Carlo convergence
// scenario: symmetric two-state rates k=10, 1 s at 1 ms, start in A. The
// sampled occupancy must match the spectral solution within 3/√runs at
// every sample, and conserve probability.
func TestSimulate_ConvergenceToSpectral(t *testing.T) {
	const runs = 2000
	sim, u := flatCell(t, "1", "0.001")
	u.Rates = twoStateQ(t, 10, 10)
	montecarlo.PrepareExitRates(u)

	opts := montecarlo.Options{NumRuns: runs, Sample: true}
	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, opts, 0, nil))
	P := sim.Probability[0]
	require.NotNil(t, P)

	tolerance := 3.0 / math.Sqrt(runs)
	for k, tv := range sim.Time {
		want := 0.5 + 0.5*math.Exp(-20*tv)
		got, _ := P.At(k, 0)
		assert.InDelta(t, want, got, tolerance, "t=%g", tv)
		row := P.Row(k)
		assert.InDelta(t, 1.0, row[0]+row[1], tolerance, "conservation at t=%g", tv)
	}
}

// TestSimulate_EquilibratedStart verifies the closed-form equilibrium
// start: occupancy stays near 0.25/0.75 throughout.
func TestSimulate_EquilibratedStart(t *testing.T) {
	const runs = 2000
	sim, u := flatCell(t, "0.5", "0.01")
	u.Rates = twoStateQ(t, 3, 1)
	montecarlo.PrepareExitRates(u)

	opts := montecarlo.Options{NumRuns: runs, Sample: true}
	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, true, opts, 0, nil))
	P := sim.Probability[0]
	tolerance := 4.0 / math.Sqrt(runs)
	for k := range sim.Time {
		got, _ := P.At(k, 0)
		assert.InDelta(t, 0.25, got, tolerance, "sample %d", k)
	}
}

// TestResample_HandBuiltChain reduces a hand-built chain and checks the
// per-interval overlap arithmetic exactly.
func TestResample_HandBuiltChain(t *testing.T) {
	time := []float64{0, 1, 2}
	endTime := 3.0
	P, err := matrix.NewDense(3, 2)
	require.NoError(t, err)
	chains := []protocol.EventChain{
		{{State: 0, Duration: 1.5}, {State: 1, Duration: 1.5}},
	}
	montecarlo.Resample(P, chains, time, endTime, nil)

	v, _ := P.At(0, 0)
	assert.InDelta(t, 1.0, v, 1e-12) // [0,1) fully state 0
	v, _ = P.At(1, 0)
	assert.InDelta(t, 0.5, v, 1e-12) // [1,2) half/half
	v, _ = P.At(1, 1)
	assert.InDelta(t, 0.5, v, 1e-12)
	v, _ = P.At(2, 1)
	assert.InDelta(t, 1.0, v, 1e-12) // [2,3] fully state 1
}

// TestSimulate_EpochBoundarySpill drives a rate switch mid-protocol and
// verifies chains stay contiguous across the boundary.
func TestSimulate_EpochBoundarySpill(t *testing.T) {
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
	for _, u := range reg.All() {
		if u.Stimuli["z"] == 0 {
			u.Rates = twoStateQ(t, 1, 1)
		} else {
			u.Rates = twoStateQ(t, 50, 50)
		}
		montecarlo.PrepareExitRates(u)
	}

	require.NoError(t, montecarlo.Simulate(sim, []float64{1, 0}, false, montecarlo.Options{NumRuns: 100}, 0, nil))
	for _, chain := range sim.Events[0] {
		total := 0.0
		for _, ev := range chain {
			total += ev.Duration
		}
		assert.InDelta(t, 1.0, total, 1e-9)
	}
}

// TestSpectralEquilibriumAgreement checks that the closed-form equilibrium
// used for equilibrated starts agrees with the analytic two-state values.
func TestSpectralEquilibriumAgreement(t *testing.T) {
	Q := twoStateQ(t, 7, 3)
	eq, err := spectral.EquilibriumProbability(Q)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, eq[0], 1e-10)
	assert.InDelta(t, 0.7, eq[1], 1e-10)
}
