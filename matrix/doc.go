// SPDX-License-Identifier: MIT

// Package matrix provides the dense and sparse numeric containers used by
// the kinetiq simulation core: row-major dense matrices for probability
// time courses and eigenvector bases, and row-compressed sparse matrices
// for transition-rate generators and transition charges.
//
// The package is deliberately small and allocation-transparent. Public
// indexers (At/Set) validate bounds and return sentinel errors rather than
// panicking; hot kernel loops use Row views.
//
// Advanced decompositions (LU, inverse, QR, eigen) live in matrix/ops.
//
// Errors:
//
//	ErrBadShape          - non-positive requested dimensions.
//	ErrOutOfRange        - row/column index outside bounds.
//	ErrDimensionMismatch - incompatible operand shapes.
//	ErrNonSquare         - square matrix required.
//	ErrSingular          - zero pivot during factorization.
//	ErrEigenFailed       - eigen iteration did not converge.
package matrix
