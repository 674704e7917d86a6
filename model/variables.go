package model

import (
	"fmt"

	"github.com/kinetigo/kinetiq/expr"
)

// EvalVariables rebuilds the parameter map for variable-set index v. The
// map is seeded from the external stimuli, then Variables are walked in
// declaration order; a Variable evaluates when its repeat index equals v,
// or when its repeat index is below v and its group has at most v repeats.
// In the second case every repeat of the group evaluates in declaration
// order, so the last repeat's value persists for all higher set indices.
// Every value is visible to subsequently declared Variables.
func (m *Model) EvalVariables(stimuli map[string]float64, v int) error {
	params := make(map[string]float64, len(stimuli)+len(m.Variables))
	env := expr.NewEnv()
	for name, value := range stimuli {
		params[name] = value
		env.BindScalar(name, value)
	}
	for _, variable := range m.Variables {
		if variable.repeatIndex != v && !(variable.repeatIndex < v && variable.repeatCount <= v) {
			continue
		}
		value, err := expr.EvalScalar(variable.Value, env)
		if err != nil {
			return fmt.Errorf("EvalVariables: %q: %w", variable.Name, err)
		}
		params[variable.Name] = value
		env.BindScalar(variable.Name, value)
	}
	m.params = params

	return nil
}

// NumVariableSets returns the number of independent parameterizations: the
// maximum repeat count across Variables, and at least one so a model
// without variables still propagates. Valid after Init.
func (m *Model) NumVariableSets() int {
	numSets := 1
	for _, v := range m.Variables {
		if v.repeatCount > numSets {
			numSets = v.repeatCount
		}
	}

	return numSets
}

// FreeVariable is one fit parameter: the current value of a non-const,
// pure-number Variable together with its bounds.
type FreeVariable struct {
	Value float64
	Min   float64
	Max   float64
}

// FreeVariables collects the ordered free-variable values with their
// bounds. A Variable participates when it is not const and its value
// expression is a bare number.
func (m *Model) FreeVariables() []FreeVariable {
	var out []FreeVariable
	for _, v := range m.Variables {
		if v.Const {
			continue
		}
		if x, ok := expr.IsNumber(v.Value); ok {
			out = append(out, FreeVariable{Value: x, Min: v.Min, Max: v.Max})
		}
	}

	return out
}

// SetFreeVariables writes values back into the free Variables in the same
// order FreeVariables produces them. Fails with ErrFreeValues when too few
// values are supplied; extra values are ignored.
func (m *Model) SetFreeVariables(values []float64) error {
	i := 0
	for _, v := range m.Variables {
		if v.Const {
			continue
		}
		if _, ok := expr.IsNumber(v.Value); !ok {
			continue
		}
		if i >= len(values) {
			return fmt.Errorf("SetFreeVariables: %d supplied: %w", len(values), ErrFreeValues)
		}
		v.Value = formatNumber(values[i])
		i++
	}

	return nil
}

func formatNumber(x float64) string { return fmt.Sprintf("%.17g", x) }
