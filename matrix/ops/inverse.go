// Package ops provides advanced matrix operations for the kinetiq/matrix
// package. Inverse computes the inverse of a square matrix via pivoted LU
// decomposition and per-column substitution.
package ops

import (
	"fmt"

	"github.com/kinetigo/kinetiq/matrix"
)

// Inverse returns the inverse of the square matrix m.
// Blueprint:
//
//	Stage 1 (Validate): ensure m is square.
//	Stage 2 (Decompose): P·m = L·U via pivoted Doolittle.
//	Stage 3 (Execute): for each identity column eᵢ, solve L·U·x = P·eᵢ.
//	Stage 4 (Finalize): assemble solution columns into the inverse.
//
// Returns ErrNonSquare or ErrSingular.
// Complexity: O(n³) time, O(n²) memory, where n = m.Rows().
func Inverse(m *matrix.Dense) (*matrix.Dense, error) {
	// Stage 1: Validate input shape
	rows, cols := m.Rows(), m.Cols()
	if rows != cols {
		return nil, fmt.Errorf("Inverse: non-square %dx%d: %w", rows, cols, matrix.ErrNonSquare)
	}

	// Stage 2: LU decomposition
	L, U, perm, err := LU(m)
	if err != nil {
		return nil, fmt.Errorf("Inverse: %w", err)
	}

	// Stage 3: Solve for each basis column
	inv, err := matrix.NewDense(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("Inverse: %w", err)
	}
	e := make([]float64, rows)
	var (
		col, i int
		x      []float64
	)
	for col = 0; col < cols; col++ {
		for i = range e {
			e[i] = 0
		}
		e[col] = 1
		x, err = LUSolve(L, U, perm, e)
		if err != nil {
			return nil, fmt.Errorf("Inverse: %w", err)
		}
		for i = 0; i < rows; i++ {
			_ = inv.Set(i, col, x[i])
		}
	}

	// Stage 4: Return assembled inverse
	return inv, nil
}
