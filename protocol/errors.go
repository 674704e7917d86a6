// Package protocol: sentinel error set, matched via errors.Is.

package protocol

import "errors"

var (
	// ErrConditions indicates an unusable conditions value: a sample
	// interval that is not positive, or a duration producing no samples.
	ErrConditions = errors.New("protocol: invalid conditions value")

	// ErrRefShape indicates reference data whose sample count does not
	// match the simulation cell it is compared against.
	ErrRefShape = errors.New("protocol: reference data shape mismatch")
)
