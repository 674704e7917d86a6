// Package ops provides advanced matrix operations for the kinetiq/matrix
// package. QR computes the QR decomposition of a square matrix using
// Householder reflections, returning orthogonal Q and upper-triangular R
// such that m = Q×R.
package ops

import (
	"fmt"
	"math"

	"github.com/kinetigo/kinetiq/matrix"
)

// QR returns Q and R for the decomposition m = Q×R.
// Returns ErrNonSquare if m is not square.
// Complexity: O(n³) time, O(n²) memory where n = m.Rows().
func QR(m *matrix.Dense) (*matrix.Dense, *matrix.Dense, error) {
	// Stage 1: Validate input dimensions
	rows, cols := m.Rows(), m.Cols()
	if rows != cols {
		return nil, nil, fmt.Errorf("QR: non-square %dx%d: %w", rows, cols, matrix.ErrNonSquare)
	}
	n := rows

	// Stage 2: Prepare working matrices and the Householder vector
	A := m.Clone()
	Q, err := matrix.Identity(n)
	if err != nil {
		return nil, nil, fmt.Errorf("QR: %w", err)
	}
	v := make([]float64, n)

	// Stage 3: Execute Householder reflections
	var (
		k, i, j    int     // loop indices
		sum, alpha float64 // projection accumulator and reflection scalar
		norm, beta float64 // column norm and vᵀv
		val        float64
		tau        float64 // 2/β factor
	)
	for k = 0; k < n; k++ {
		// 3.1: norm of A[k:n][k]
		norm = 0
		for i = k; i < n; i++ {
			val, _ = A.At(i, k)
			norm += val * val
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue // skip zero column
		}
		// 3.2: reflection scalar alpha = -sign(A[k][k]) * norm
		val, _ = A.At(k, k)
		alpha = -math.Copysign(norm, val)
		// 3.3: build Householder vector v
		for i = 0; i < n; i++ {
			v[i] = 0
		}
		for i = k; i < n; i++ {
			val, _ = A.At(i, k)
			v[i] = val
		}
		v[k] -= alpha
		// 3.4: beta = vᵀv
		beta = 0
		for i = k; i < n; i++ {
			beta += v[i] * v[i]
		}
		if beta == 0 {
			continue
		}
		tau = 2.0 / beta
		// 3.5: apply reflection to A (becomes R)
		for j = k; j < n; j++ {
			sum = 0
			for i = k; i < n; i++ {
				val, _ = A.At(i, j)
				sum += v[i] * val
			}
			for i = k; i < n; i++ {
				val, _ = A.At(i, j)
				_ = A.Set(i, j, val-tau*v[i]*sum)
			}
		}
		// 3.6: apply reflection to Q
		for j = 0; j < n; j++ {
			sum = 0
			for i = k; i < n; i++ {
				val, _ = Q.At(i, j)
				sum += v[i] * val
			}
			for i = k; i < n; i++ {
				val, _ = Q.At(i, j)
				_ = Q.Set(i, j, val-tau*v[i]*sum)
			}
		}
	}

	// Stage 4: Finalize. Accumulated Q holds the product of reflections,
	// i.e. Qᵀ; transpose in place to return the orthogonal factor.
	var qij, qji float64
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			qij, _ = Q.At(i, j)
			qji, _ = Q.At(j, i)
			_ = Q.Set(i, j, qji)
			_ = Q.Set(j, i, qij)
		}
	}

	return Q, A, nil
}
