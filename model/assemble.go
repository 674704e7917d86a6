package model

import (
	"fmt"

	"github.com/kinetigo/kinetiq/expr"
	"github.com/kinetigo/kinetiq/matrix"
)

// startProbThreshold is the minimum total starting probability accepted
// before renormalization in states-only mode.
const startProbThreshold = 1e-5

// paramEnv builds a fresh evaluation environment over the frozen
// parameter map.
func (m *Model) paramEnv() *expr.Env {
	env := expr.NewEnv()
	for name, value := range m.params {
		env.BindScalar(name, value)
	}

	return env
}

// StartingProbability assembles the starting-probability row vector for
// the current parameter map.
//
// States-only mode: each state's probability expression, clamped to [0,1];
// the vector is renormalized to sum 1, and fails with ErrStartProb when
// the raw sum is below threshold. Binary-element mode: per-element
// p0 ∈ [0,1]; the probability of state with bit pattern b is the product
// over elements of p0(j) (bit clear) or 1-p0(j) (bit set).
func (m *Model) StartingProbability() ([]float64, error) {
	env := m.paramEnv()
	if len(m.Elements) > 0 {
		numStates := 1 << len(m.Elements)
		p0 := make([]float64, len(m.Elements))
		for j, e := range m.Elements {
			value, err := expr.EvalScalar(e.Probability0, env)
			if err != nil {
				return nil, fmt.Errorf("StartingProbability: element %q: %w", e.Name, err)
			}
			p0[j] = clamp01(value)
		}
		probs := make([]float64, numStates)
		for i := range probs {
			p := 1.0
			for j := range m.Elements {
				if i&(1<<j) != 0 {
					p *= 1 - p0[j]
				} else {
					p *= p0[j]
				}
			}
			probs[i] = p
		}

		return probs, nil
	}
	probs := make([]float64, len(m.States))
	total := 0.0
	for i, s := range m.States {
		value, err := expr.EvalScalar(s.Probability, env)
		if err != nil {
			return nil, fmt.Errorf("StartingProbability: state %q: %w", s.Name, err)
		}
		probs[i] = clamp01(value)
		total += probs[i]
	}
	if total < startProbThreshold {
		return nil, fmt.Errorf("StartingProbability: %w", ErrStartProb)
	}
	if total != 1 {
		for i := range probs {
			probs[i] /= total
		}
	}

	return probs, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}

	return x
}

// StateAttributes assembles the per-attribute state-value row vectors:
// group attributes write at every group index, then in states-only mode a
// per-State attribute overrides the group value at that state. Attributes
// never mentioned stay zero.
func (m *Model) StateAttributes() (map[string][]float64, error) {
	env := m.paramEnv()
	numStates := m.NumStates()
	attrs := make(map[string][]float64)
	for _, g := range m.Groups {
		if !g.Active {
			continue
		}
		for _, ae := range ParseAttributes(g.Attributes) {
			value, err := expr.EvalScalar(ae.Expr, env)
			if err != nil {
				return nil, fmt.Errorf("StateAttributes: group %q attribute %q: %w", g.Name, ae.Name, err)
			}
			if _, ok := attrs[ae.Name]; !ok {
				attrs[ae.Name] = make([]float64, numStates)
			}
			vec := attrs[ae.Name]
			for _, idx := range g.indexes {
				vec[idx] = value
			}
		}
	}
	if len(m.Elements) == 0 {
		for i, s := range m.States {
			for _, ae := range ParseAttributes(s.Attributes) {
				value, err := expr.EvalScalar(ae.Expr, env)
				if err != nil {
					return nil, fmt.Errorf("StateAttributes: state %q attribute %q: %w", s.Name, ae.Name, err)
				}
				if _, ok := attrs[ae.Name]; !ok {
					attrs[ae.Name] = make([]float64, numStates)
				}
				attrs[ae.Name][i] = value
			}
		}
	}

	return attrs, nil
}

// TransitionRates assembles the sparse transition-rate generator Q for the
// current parameter map: off-diagonal entries are the evaluated rates
// (with interaction factors applied in binary-element mode), and each
// diagonal entry is the negated row sum, so probability is conserved.
// Fails with ErrNegativeRate when any rate or factor evaluates negative.
func (m *Model) TransitionRates() (*matrix.Sparse, error) {
	env := m.paramEnv()
	numStates := m.NumStates()
	Q, err := matrix.NewSparse(numStates, numStates)
	if err != nil {
		return nil, fmt.Errorf("TransitionRates: %w", err)
	}
	if len(m.Elements) > 0 {
		for _, e := range m.Elements {
			rate01, err := expr.EvalScalar(e.Rate01, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionRates: element %q: %w", e.Name, err)
			}
			rate10, err := expr.EvalScalar(e.Rate10, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionRates: element %q: %w", e.Name, err)
			}
			if rate01 < 0 {
				return nil, fmt.Errorf("TransitionRates: element %q rate01 %q: %w", e.Name, e.Rate01, ErrNegativeRate)
			}
			if rate10 < 0 {
				return nil, fmt.Errorf("TransitionRates: element %q rate10 %q: %w", e.Name, e.Rate10, ErrNegativeRate)
			}
			if rate01 > 0 {
				for _, p := range e.pairs01 {
					_ = Q.Set(p.From, p.To, rate01)
				}
			}
			if rate10 > 0 {
				for _, p := range e.pairs10 {
					_ = Q.Set(p.From, p.To, rate10)
				}
			}
		}
		// Interaction factors multiply every transition in which a coupled
		// element changes configuration.
		for _, in := range m.Interactions {
			if in.a < 0 || in.b < 0 {
				continue
			}
			factor11, err := expr.EvalScalar(in.Factor11, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionRates: interaction %q/%q: %w", in.AName, in.BName, err)
			}
			factorA1, err := expr.EvalScalar(in.FactorA1, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionRates: interaction %q/%q: %w", in.AName, in.BName, err)
			}
			factor1B, err := expr.EvalScalar(in.Factor1B, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionRates: interaction %q/%q: %w", in.AName, in.BName, err)
			}
			if factor11 < 0 || factorA1 < 0 || factor1B < 0 {
				return nil, fmt.Errorf("TransitionRates: interaction %q/%q: %w", in.AName, in.BName, ErrNegativeRate)
			}
			if factorA1 != 1 {
				for _, p := range in.pairs0111 {
					_ = Q.Scale(p.From, p.To, factorA1)
				}
			}
			if factor1B != 1 {
				for _, p := range in.pairs1011 {
					_ = Q.Scale(p.From, p.To, factor1B)
				}
			}
			if factorA1/factor11 != 1 {
				for _, p := range in.pairs1101 {
					_ = Q.Scale(p.From, p.To, factorA1/factor11)
				}
			}
			if factor1B/factor11 != 1 {
				for _, p := range in.pairs1110 {
					_ = Q.Scale(p.From, p.To, factor1B/factor11)
				}
			}
		}
	} else {
		for _, t := range m.Transitions {
			if t.from < 0 || t.to < 0 {
				continue
			}
			rate, err := expr.EvalScalar(t.Rate, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionRates: %q→%q: %w", t.FromName, t.ToName, err)
			}
			if rate < 0 {
				return nil, fmt.Errorf("TransitionRates: %q→%q rate %q: %w", t.FromName, t.ToName, t.Rate, ErrNegativeRate)
			}
			if rate > 0 {
				_ = Q.Set(t.from, t.to, rate)
			}
		}
	}
	if err := Q.SetGeneratorDiagonal(); err != nil {
		return nil, fmt.Errorf("TransitionRates: %w", err)
	}

	return Q, nil
}

// TransitionCharges assembles the sparse signed transition-charge matrix
// by the same edge scheme as TransitionRates (no diagonal, no factors).
func (m *Model) TransitionCharges() (*matrix.Sparse, error) {
	env := m.paramEnv()
	numStates := m.NumStates()
	C, err := matrix.NewSparse(numStates, numStates)
	if err != nil {
		return nil, fmt.Errorf("TransitionCharges: %w", err)
	}
	if len(m.Elements) > 0 {
		for _, e := range m.Elements {
			charge01, err := expr.EvalScalar(e.Charge01, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionCharges: element %q: %w", e.Name, err)
			}
			charge10, err := expr.EvalScalar(e.Charge10, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionCharges: element %q: %w", e.Name, err)
			}
			if charge01 != 0 {
				for _, p := range e.pairs01 {
					_ = C.Set(p.From, p.To, charge01)
				}
			}
			if charge10 != 0 {
				for _, p := range e.pairs10 {
					_ = C.Set(p.From, p.To, charge10)
				}
			}
		}
	} else {
		for _, t := range m.Transitions {
			if t.from < 0 || t.to < 0 {
				continue
			}
			charge, err := expr.EvalScalar(t.Charge, env)
			if err != nil {
				return nil, fmt.Errorf("TransitionCharges: %q→%q: %w", t.FromName, t.ToName, err)
			}
			if charge != 0 {
				_ = C.Set(t.from, t.to, charge)
			}
		}
	}

	return C, nil
}
