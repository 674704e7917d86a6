// Package ops provides advanced matrix operations for the kinetiq/matrix
// package: LU factorization, inversion, QR decomposition and eigen
// decomposition of real matrices.
package ops

import (
	"fmt"
	"math"

	"github.com/kinetigo/kinetiq/matrix"
)

// LU performs Doolittle LU decomposition with partial (row) pivoting on a
// square matrix m. It returns L (unit lower triangular), U (upper
// triangular) and the row permutation perm such that m[perm[i]] row order
// satisfies P·m = L·U. Pivoting is required here because the spectral
// pipeline factors shifted matrices A-λI that are near-singular by
// construction.
// Returns ErrNonSquare or ErrSingular.
// Complexity: O(n³) time, O(n²) memory, where n = m.Rows().
func LU(m *matrix.Dense) (*matrix.Dense, *matrix.Dense, []int, error) {
	// Stage 1: Validate input is square
	rows, cols := m.Rows(), m.Cols()
	if rows != cols {
		return nil, nil, nil, fmt.Errorf("LU: non-square %dx%d: %w", rows, cols, matrix.ErrNonSquare)
	}
	n := rows

	// Stage 2: Prepare working copy, L, U, and identity permutation
	A := m.Clone()
	L, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("LU: %w", err)
	}
	U, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("LU: %w", err)
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	// Stage 3: Execute elimination with row pivoting
	var (
		i, j, k  int     // loop indices
		pivotRow int     // row with max |A[i][k]|
		pivot    float64 // pivot magnitude holder
		val      float64
	)
	for k = 0; k < n; k++ {
		// 3.1: select pivot row
		pivotRow = k
		pivot, _ = A.At(k, k)
		pivot = math.Abs(pivot)
		for i = k + 1; i < n; i++ {
			val, _ = A.At(i, k)
			if math.Abs(val) > pivot {
				pivot = math.Abs(val)
				pivotRow = i
			}
		}
		if pivot == 0 {
			return nil, nil, nil, fmt.Errorf("LU: zero pivot column %d: %w", k, matrix.ErrSingular)
		}
		// 3.2: swap rows k and pivotRow in A, perm, and the built part of L
		if pivotRow != k {
			rowK, rowP := A.Row(k), A.Row(pivotRow)
			for j = 0; j < n; j++ {
				rowK[j], rowP[j] = rowP[j], rowK[j]
			}
			perm[k], perm[pivotRow] = perm[pivotRow], perm[k]
			lK, lP := L.Row(k), L.Row(pivotRow)
			for j = 0; j < k; j++ {
				lK[j], lP[j] = lP[j], lK[j]
			}
		}
		// 3.3: eliminate below the pivot
		diag, _ := A.At(k, k)
		for i = k + 1; i < n; i++ {
			val, _ = A.At(i, k)
			factor := val / diag
			_ = L.Set(i, k, factor)
			if factor != 0 {
				ri, rk := A.Row(i), A.Row(k)
				for j = k; j < n; j++ {
					ri[j] -= factor * rk[j]
				}
			}
		}
	}

	// Stage 4: Finalize L diagonal and copy U from the eliminated A
	for i = 0; i < n; i++ {
		_ = L.Set(i, i, 1)
		for j = i; j < n; j++ {
			val, _ = A.At(i, j)
			_ = U.Set(i, j, val)
		}
	}

	return L, U, perm, nil
}

// LUSolve solves P·A·x = L·U·x = b[perm] by forward then backward
// substitution, for factors produced by LU.
// Returns ErrDimensionMismatch or ErrSingular.
// Complexity: O(n²).
func LUSolve(L, U *matrix.Dense, perm []int, b []float64) ([]float64, error) {
	n := L.Rows()
	if len(b) != n || len(perm) != n {
		return nil, fmt.Errorf("LUSolve: length %d vs %d: %w", len(b), n, matrix.ErrDimensionMismatch)
	}
	var (
		i, k       int
		sum, pivot float64
		val        float64
	)
	// Forward substitution: L·y = b[perm]
	y := make([]float64, n)
	for i = 0; i < n; i++ {
		sum = 0
		row := L.Row(i)
		for k = 0; k < i; k++ {
			sum += row[k] * y[k]
		}
		y[i] = b[perm[i]] - sum
	}
	// Backward substitution: U·x = y
	x := make([]float64, n)
	for i = n - 1; i >= 0; i-- {
		sum = 0
		row := U.Row(i)
		for k = i + 1; k < n; k++ {
			sum += row[k] * x[k]
		}
		pivot, _ = U.At(i, i)
		if pivot == 0 {
			return nil, fmt.Errorf("LUSolve: zero pivot at %d: %w", i, matrix.ErrSingular)
		}
		val = (y[i] - sum) / pivot
		x[i] = val
	}

	return x, nil
}
