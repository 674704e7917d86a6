package model

// Model is the aggregate owner of all kinetic-model entities. Entities are
// appended in declaration order; all cross-references are by name and are
// resolved to indices by Init.
type Model struct {
	Name  string
	Notes string

	Variables    []*Variable
	States       []*State
	Transitions  []*Transition
	Elements     []*BinaryElement
	Interactions []*Interaction
	Groups       []*StateGroup

	params     map[string]float64 // parameter map of the last EvalVariables
	stateNames []string           // state-name labels of the last Init
}

// New returns a model pre-seeded the way a fresh editor session starts:
// the physical-constant variables and a two-state A⇄B scheme.
func New(name string) *Model {
	m := &Model{Name: name}
	m.Variables = append(m.Variables,
		&Variable{Name: "k", Value: "0.000086173324", Description: "Boltzmann constant (eV/K)", Const: true},
		&Variable{Name: "R", Value: "0.0019872036", Description: "Gas constant (kcal/mol/K)", Const: true},
		&Variable{Name: "h", Value: "4.135667662*10^-15", Description: "Plank constant (eV*s)", Const: true},
	)
	a := &State{Name: "A", Probability: "1", Position: [3]float64{-2, 0, 0}}
	b := &State{Name: "B", Position: [3]float64{2, 0, 0}}
	m.States = append(m.States, a, b)
	m.Transitions = append(m.Transitions,
		&Transition{FromName: "A", ToName: "B"},
		&Transition{FromName: "B", ToName: "A"},
	)

	return m
}

// Empty returns a model with no entities at all.
func Empty(name string) *Model { return &Model{Name: name} }

// StateNames returns the state-name labels assigned by the last Init.
func (m *Model) StateNames() []string { return m.stateNames }

// Parameters returns the parameter map produced by the last EvalVariables.
// The map is frozen between EvalVariables calls; callers must not mutate it.
func (m *Model) Parameters() map[string]float64 { return m.params }

// NumStates returns the size of the state space: 2^k for k binary
// elements, the state count otherwise.
func (m *Model) NumStates() int {
	if len(m.Elements) > 0 {
		return 1 << len(m.Elements)
	}

	return len(m.States)
}

// FindState returns the state with the given name, or nil.
func (m *Model) FindState(name string) *State {
	for _, s := range m.States {
		if s.Name == name {
			return s
		}
	}

	return nil
}

// FindElement returns the binary element with the given name, or nil.
func (m *Model) FindElement(name string) *BinaryElement {
	for _, e := range m.Elements {
		if e.Name == name {
			return e
		}
	}

	return nil
}

// FindTransition returns the transition from → to (by state name), or nil.
func (m *Model) FindTransition(from, to string) *Transition {
	for _, t := range m.Transitions {
		if t.FromName == from && t.ToName == to {
			return t
		}
	}

	return nil
}

// FindInteraction returns the interaction between elements a and b,
// order-insensitive, or nil.
func (m *Model) FindInteraction(a, b string) *Interaction {
	for _, in := range m.Interactions {
		if (in.AName == a && in.BName == b) || (in.AName == b && in.BName == a) {
			return in
		}
	}

	return nil
}

// RemoveState deletes the named state and every transition incident on it.
func (m *Model) RemoveState(name string) {
	states := m.States[:0]
	for _, s := range m.States {
		if s.Name != name {
			states = append(states, s)
		}
	}
	m.States = states
	trans := m.Transitions[:0]
	for _, t := range m.Transitions {
		if t.FromName != name && t.ToName != name {
			trans = append(trans, t)
		}
	}
	m.Transitions = trans
}

// RemoveElement deletes the named binary element and every interaction
// incident on it.
func (m *Model) RemoveElement(name string) {
	elems := m.Elements[:0]
	for _, e := range m.Elements {
		if e.Name != name {
			elems = append(elems, e)
		}
	}
	m.Elements = elems
	inters := m.Interactions[:0]
	for _, in := range m.Interactions {
		if in.AName != name && in.BName != name {
			inters = append(inters, in)
		}
	}
	m.Interactions = inters
}
