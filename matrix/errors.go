// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// All algorithms return these sentinels and tests check them via errors.Is.
// No algorithm panics on user-triggered error conditions; panics are
// reserved for programmer errors in private helpers.

package matrix

import "errors"

var (
	// ErrBadShape is returned when a requested shape is invalid (r<=0 or c<=0).
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside valid
	// bounds. Public indexers (At/Set) return this, never panic.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between
	// operands, e.g. MulVec with a wrong-length vector.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required but the input
	// wasn't.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrSingular is returned when factorization meets a pivot column with
	// no usable entry.
	ErrSingular = errors.New("matrix: singular matrix")

	// ErrEigenFailed indicates that the eigen iteration failed to converge
	// under the given tolerance/iteration budget.
	ErrEigenFailed = errors.New("matrix: eigen decomposition failed")
)
