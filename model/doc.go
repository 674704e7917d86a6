// Package model defines kinetic-model entities and compiles them into the
// numeric objects the simulation kernels consume.
//
// A Model aggregates typed containers of Variables, States, Transitions,
// BinaryElements, Interactions and StateGroups. Two mutually exclusive
// modes exist: a states-only scheme (explicit states and directed rate
// transitions) and a binary-elements scheme, where k two-configuration
// elements induce a 2^k product state space and Interactions modulate
// rates multiplicatively. If any BinaryElement exists, States and
// Transitions are ignored by matrix assembly.
//
// Call sequence per run:
//
//	names, err := m.Init()              // after any structural edit
//	err = m.EvalVariables(stimuli, v)   // refresh parameter map for set v
//	p0, err := m.StartingProbability()
//	attrs, err := m.StateAttributes()
//	Q, err := m.TransitionRates()       // conservative generator
//	C, err := m.TransitionCharges()
//
// Variables sharing one name form a variable set: the i-th repeat supplies
// the value for set index i, and the last repeat persists for all higher
// indices. Free (non-const, pure-number) Variables expose their values and
// [Min,Max] bounds to fitting code via FreeVariables/SetFreeVariables.
//
// Errors:
//
//	ErrGroupSpec    - invalid state name or configuration string in a group.
//	ErrNegativeRate - negative rate or interaction factor after evaluation.
//	ErrStartProb    - starting probabilities sum below threshold.
//	ErrFreeValues   - too few values supplied to SetFreeVariables.
package model
