package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetigo/kinetiq/engine"
	"github.com/kinetigo/kinetiq/model"
	"github.com/kinetigo/kinetiq/protocol"
)

// fixtureModel is the two-state reference scheme: x = 3.14·z, y = 6.28,
// A→B at x, B→A at y/2, conductance g = 15 on B.
func fixtureModel() *model.Model {
	m := model.Empty("fixture")
	m.Variables = append(m.Variables,
		&model.Variable{Name: "x", Value: "3.14 * z"},
		&model.Variable{Name: "y", Value: "sqrt(((2 + 0) * -3.14)^2)"},
	)
	m.States = append(m.States,
		&model.State{Name: "A", Probability: "1"},
		&model.State{Name: "B", Attributes: "g: 15"},
	)
	m.Transitions = append(m.Transitions,
		&model.Transition{FromName: "A", ToName: "B", Rate: "x"},
		&model.Transition{FromName: "B", ToName: "A", Rate: "y/2"},
	)

	return m
}

// fixtureProtocol holds z at 3 for the whole second, sampled at 10 ms.
func fixtureProtocol() *protocol.Protocol {
	p := protocol.New("clamp")
	p.Duration = "1"
	p.SampleInterval = "0.01"
	p.Stimuli = append(p.Stimuli, &protocol.Stimulus{
		Name: "z", Active: true,
		Start: "0", Duration: "2", Amplitude: "3", Repetitions: "1",
	})

	return p
}

// TestSimulate_SpectralEndToEnd drives init → simulate and checks the
// propagated occupancy against the analytic two-state solution, plus
// probability conservation at every sample.
func TestSimulate_SpectralEndToEnd(t *testing.T) {
	m := fixtureModel()
	p := fixtureProtocol()
	sm := engine.New(m, []*protocol.Protocol{p}, engine.DefaultOptions())
	require.NoError(t, sm.Init())
	require.NoError(t, sm.Simulate(context.Background()))
	assert.Empty(t, sm.Message())

	sim := p.Simulations[0][0]
	P := sim.Probability[0]
	require.NotNil(t, P)

	kAB, kBA := 9.42, 3.14
	total := kAB + kBA
	peq := kBA / total
	for k, tv := range sim.Time {
		want := peq + (1-peq)*math.Exp(-total*tv)
		got, _ := P.At(k, 0)
		assert.InDelta(t, want, got, 1e-6, "t=%g", tv)
	}
	assert.Less(t, sm.MaxProbabilityError(), 1e-6)
}

// TestSimulate_DerivedWaveformsAndSummary verifies the derived pass:
// state-attribute waveforms, state-group occupancy, user waveforms
// referencing both, and a windowed summary reduced to scalars.
func TestSimulate_DerivedWaveformsAndSummary(t *testing.T) {
	m := fixtureModel()
	m.Groups = append(m.Groups, &model.StateGroup{
		Name: "open", Active: true, States: "B",
	})
	p := fixtureProtocol()
	p.Waveforms = append(p.Waveforms, &protocol.Waveform{
		Name: "I", Active: true, Expr: "g * 2",
	})
	p.Summaries = append(p.Summaries, &protocol.Summary{
		Name: "steady", Active: true,
		ExprX: "mean(t)", ExprY: "max(g)",
		StartX: "0.9", DurationX: "0.1",
		StartY: "0", DurationY: "1",
	})
	sm := engine.New(m, []*protocol.Protocol{p}, engine.DefaultOptions())
	require.NoError(t, sm.Init())
	require.NoError(t, sm.Simulate(context.Background()))

	sim := p.Simulations[0][0]
	wf := sim.Waveforms[0]
	require.Contains(t, wf, "g")
	require.Contains(t, wf, "open")
	require.Contains(t, wf, "I")

	P := sim.Probability[0]
	for k := range sim.Time {
		pb, _ := P.At(k, 1)
		assert.InDelta(t, 15*pb, wf["g"][k], 1e-9)
		assert.InDelta(t, pb, wf["open"][k], 1e-9)
		assert.InDelta(t, 2*wf["g"][k], wf["I"][k], 1e-9)
	}

	sum := p.Summaries[0]
	x, err := sum.DataX[0].At(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.945, x, 1e-9) // mean of t over [0.9, 1.0)
	y, err := sum.DataY[0].At(0, 0)
	require.NoError(t, err)
	// g grows monotonically toward 15·p_B(∞): the max sits at the last
	// window sample, t = 0.99
	peq := 9.42 / 12.56
	want := 15 * peq * (1 - math.Exp(-12.56*0.99))
	assert.InDelta(t, want, y, 1e-6)
}

// TestSimulate_MonteCarloEndToEnd checks the sampled kernel against the
// spectral solution within the statistical tolerance.
func TestSimulate_MonteCarloEndToEnd(t *testing.T) {
	const runs = 1500
	m := fixtureModel()
	p := fixtureProtocol()
	opts := engine.DefaultOptions()
	opts.Method = engine.MonteCarlo
	opts.NumRuns = runs
	sm := engine.New(m, []*protocol.Protocol{p}, opts)
	require.NoError(t, sm.Init())
	require.NoError(t, sm.Simulate(context.Background()))

	sim := p.Simulations[0][0]
	require.Len(t, sim.Events[0], runs)
	P := sim.Probability[0]
	require.NotNil(t, P)

	tolerance := 3.0 / math.Sqrt(runs)
	peq := 3.14 / 12.56
	for k, tv := range sim.Time {
		want := peq + (1-peq)*math.Exp(-12.56*tv)
		got, _ := P.At(k, 0)
		assert.InDelta(t, want, got, tolerance, "t=%g", tv)
	}
	assert.Less(t, sm.MaxProbabilityError(), tolerance)
}

// TestSimulate_VariableSets runs two parameterizations and verifies both
// output slices are filled with distinct dynamics.
func TestSimulate_VariableSets(t *testing.T) {
	m := model.Empty("sets")
	m.Variables = append(m.Variables,
		&model.Variable{Name: "kf", Value: "2"},
		&model.Variable{Name: "kf", Value: "20"},
	)
	m.States = append(m.States,
		&model.State{Name: "A", Probability: "1"},
		&model.State{Name: "B"},
	)
	m.Transitions = append(m.Transitions,
		&model.Transition{FromName: "A", ToName: "B", Rate: "kf"},
		&model.Transition{FromName: "B", ToName: "A", Rate: "1"},
	)
	p := protocol.New("flat")
	p.Duration = "0.5"
	p.SampleInterval = "0.01"
	sm := engine.New(m, []*protocol.Protocol{p}, engine.DefaultOptions())
	require.NoError(t, sm.Init())
	require.NoError(t, sm.Simulate(context.Background()))

	sim := p.Simulations[0][0]
	require.Len(t, sim.Probability, 2)
	slow, _ := sim.Probability[0].At(10, 0) // t = 0.1
	fast, _ := sim.Probability[1].At(10, 0)
	assert.Greater(t, slow, fast, "higher forward rate drains A faster")
	assert.Less(t, sm.MaxProbabilityError(), 1e-6)
}

// TestSimulate_StartEquilibrated verifies flat occupancy from an
// equilibrated start.
func TestSimulate_StartEquilibrated(t *testing.T) {
	m := fixtureModel()
	p := fixtureProtocol()
	p.StartEquilibrated = true
	sm := engine.New(m, []*protocol.Protocol{p}, engine.DefaultOptions())
	require.NoError(t, sm.Init())
	require.NoError(t, sm.Simulate(context.Background()))

	P := p.Simulations[0][0].Probability[0]
	peq := 3.14 / 12.56
	for k := range p.Simulations[0][0].Time {
		got, _ := P.At(k, 0)
		assert.InDelta(t, peq, got, 1e-8)
	}
}

// TestSimulate_Cancellation verifies the cooperative abort surface.
func TestSimulate_Cancellation(t *testing.T) {
	m := fixtureModel()
	p := fixtureProtocol()
	sm := engine.New(m, []*protocol.Protocol{p}, engine.DefaultOptions())
	require.NoError(t, sm.Init())
	sm.Abort()
	err := sm.Simulate(context.Background())
	assert.ErrorIs(t, err, engine.ErrCancelled)
	assert.NotEmpty(t, sm.Message())

	// context cancellation maps to the same error
	require.NoError(t, sm.Init())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sm.Simulate(ctx), engine.ErrCancelled)
}

// TestSimulate_AssemblyErrorAborts verifies that an assembly failure
// aborts the run and surfaces one message.
func TestSimulate_AssemblyErrorAborts(t *testing.T) {
	m := fixtureModel()
	m.Transitions[0].Rate = "0 - 5" // negative rate
	p := fixtureProtocol()
	sm := engine.New(m, []*protocol.Protocol{p}, engine.DefaultOptions())
	require.NoError(t, sm.Init())
	err := sm.Simulate(context.Background())
	assert.ErrorIs(t, err, model.ErrNegativeRate)
	assert.True(t, sm.Aborted())
	assert.NotEmpty(t, sm.Message())
}

// TestInit_NoProtocols verifies the empty-simulator guard.
func TestInit_NoProtocols(t *testing.T) {
	sm := engine.New(fixtureModel(), nil, engine.DefaultOptions())
	assert.ErrorIs(t, sm.Init(), engine.ErrNoProtocols)
}

// TestOptimize_RecoversRate fits a free forward rate against reference
// data generated at a known value.
func TestOptimize_RecoversRate(t *testing.T) {
	build := func(rate string) (*model.Model, *protocol.Protocol) {
		m := model.Empty("fit")
		m.Variables = append(m.Variables,
			&model.Variable{Name: "kf", Value: rate, Min: 0.1, Max: 100},
		)
		m.States = append(m.States,
			&model.State{Name: "A", Probability: "1", Attributes: "g: 1"},
			&model.State{Name: "B"},
		)
		m.Transitions = append(m.Transitions,
			&model.Transition{FromName: "A", ToName: "B", Rate: "kf"},
			&model.Transition{FromName: "B", ToName: "A", Rate: "3"},
		)
		p := protocol.New("fit")
		p.Duration = "0.5"
		p.SampleInterval = "0.02"
		p.Waveforms = append(p.Waveforms, &protocol.Waveform{Name: "I", Active: true, Expr: "g"})

		return m, p
	}

	// generate reference data at kf = 8
	mTrue, pTrue := build("8")
	smTrue := engine.New(mTrue, []*protocol.Protocol{pTrue}, engine.DefaultOptions())
	require.NoError(t, smTrue.Init())
	require.NoError(t, smTrue.Simulate(context.Background()))
	ref := append([]float64(nil), pTrue.Simulations[0][0].Waveforms[0]["I"]...)

	// fit from a distant start
	mFit, pFit := build("2")
	mFit.Variables[0].Const = false
	pFit.References = append(pFit.References, &protocol.ReferenceData{
		Name: "ref", Active: true, Waveform: "I",
		Data: [][][]float64{{ref}},
	})
	smFit := engine.New(mFit, []*protocol.Protocol{pFit}, engine.DefaultOptions())
	require.NoError(t, smFit.Init())

	require.NoError(t, smFit.Optimize(context.Background(), 25))
	cost, err := smFit.TotalCost()
	require.NoError(t, err)

	// baseline cost at the starting guess, for comparison
	mBase, pBase := build("2")
	pBase.References = append(pBase.References, &protocol.ReferenceData{
		Name: "ref", Active: true, Waveform: "I",
		Data: [][][]float64{{ref}},
	})
	smBase := engine.New(mBase, []*protocol.Protocol{pBase}, engine.DefaultOptions())
	require.NoError(t, smBase.Init())
	require.NoError(t, smBase.Simulate(context.Background()))
	baseCost, err := smBase.TotalCost()
	require.NoError(t, err)

	assert.Less(t, cost, baseCost/10, "optimization must shrink the residual")
	fitted := mFit.FreeVariables()
	require.Len(t, fitted, 1)
	assert.InDelta(t, 8.0, fitted[0].Value, 1.5)
}
