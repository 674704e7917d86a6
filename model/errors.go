// Package model: sentinel error set, matched via errors.Is.

package model

import "errors"

var (
	// ErrGroupSpec indicates an invalid state name or configuration string
	// in a StateGroup's states spec.
	ErrGroupSpec = errors.New("model: invalid state group spec")

	// ErrNegativeRate indicates a transition rate or interaction factor
	// that evaluated negative.
	ErrNegativeRate = errors.New("model: negative rate or factor")

	// ErrStartProb indicates that the starting probabilities of a
	// states-only model sum below the renormalization threshold: at least
	// one state must have non-zero starting probability.
	ErrStartProb = errors.New("model: starting probabilities sum to zero")

	// ErrFreeValues indicates that SetFreeVariables received fewer values
	// than there are free variables.
	ErrFreeValues = errors.New("model: wrong free variable value count")
)
