// Package ops provides advanced matrix operations for the kinetiq/matrix
// package. Eigen computes eigenvalues of a real square matrix by shifted
// QR iteration with deflation, and right eigenvectors by inverse iteration
// on the shifted, pivoted LU factorization.
package ops

import (
	"fmt"
	"math"

	"github.com/kinetigo/kinetiq/matrix"
)

// Eigen computes all eigenvalues and right eigenvectors of the real square
// matrix m. It returns the eigenvalues and a matrix V whose i-th column is
// the eigenvector of the i-th eigenvalue (same order).
//
// The spectrum must be real: transition-rate generators of kinetic schemes
// are similar to symmetric matrices whenever the scheme satisfies detailed
// balance, and the iteration fails loudly (ErrEigenFailed) when a complex
// conjugate pair persists instead of silently realifying it.
//
// Blueprint:
//
//	Stage 1 (Validate): square input.
//	Stage 2 (Values):   shifted QR iteration, deflating converged rows.
//	Stage 3 (Vectors):  inverse iteration per eigenvalue, with in-cluster
//	                    orthogonalization for repeated eigenvalues.
//
// tol is the relative deflation/convergence threshold; maxIter caps the
// total number of QR steps.
// Complexity: O(maxIter·n³) worst case; Memory: O(n²).
func Eigen(m *matrix.Dense, tol float64, maxIter int) ([]float64, *matrix.Dense, error) {
	// Stage 1: Validate input
	n, cols := m.Rows(), m.Cols()
	if n != cols {
		return nil, nil, fmt.Errorf("Eigen: non-square %dx%d: %w", n, cols, matrix.ErrNonSquare)
	}
	if n == 1 {
		val, _ := m.At(0, 0)
		V, _ := matrix.Identity(1)

		return []float64{val}, V, nil
	}

	// Stage 2: Eigenvalues by shifted QR iteration
	vals, err := qrEigenvalues(m, tol, maxIter)
	if err != nil {
		return nil, nil, err
	}

	// Stage 3: Eigenvectors by inverse iteration
	V, err := inverseIterationVectors(m, vals, tol)
	if err != nil {
		return nil, nil, err
	}

	return vals, V, nil
}

// qrEigenvalues runs shifted QR steps on a working copy, deflating the
// trailing row whenever its off-diagonal part is negligible.
func qrEigenvalues(m *matrix.Dense, tol float64, maxIter int) ([]float64, error) {
	n := m.Rows()
	A := m.Clone()
	scale := matrixScale(A)
	if scale == 0 {
		scale = 1
	}
	vals := make([]float64, 0, n)
	var (
		am   = n // active leading block size
		iter int
		a, b, c, d float64 // trailing 2x2 of the active block
	)
	for am > 0 {
		if am == 1 {
			v, _ := A.At(0, 0)
			vals = append(vals, v)
			am = 0

			break
		}
		// deflate the trailing row when its off-diagonal part is negligible
		if rowOffMax(A, am-1) <= tol*scale {
			v, _ := A.At(am-1, am-1)
			vals = append(vals, v)
			am--

			continue
		}
		// terminal 2x2 block: closed form, or a complex pair
		if am == 2 && rowOffMax(A, 1) > tol*scale && iter > maxIter/2 {
			a, _ = A.At(0, 0)
			b, _ = A.At(0, 1)
			c, _ = A.At(1, 0)
			d, _ = A.At(1, 1)
			disc := (a-d)*(a-d) + 4*b*c
			if disc < 0 {
				return nil, fmt.Errorf("Eigen: complex pair: %w", matrix.ErrEigenFailed)
			}
		}
		if iter >= maxIter {
			return nil, fmt.Errorf("Eigen: no convergence after %d steps: %w", maxIter, matrix.ErrEigenFailed)
		}
		// Wilkinson shift from the trailing 2x2 of the active block
		a, _ = A.At(am-2, am-2)
		b, _ = A.At(am-2, am-1)
		c, _ = A.At(am-1, am-2)
		d, _ = A.At(am-1, am-1)
		sigma := wilkinsonShift(a, b, c, d)
		if err := qrStep(A, am, sigma); err != nil {
			return nil, err
		}
		iter++
	}

	return vals, nil
}

// matrixScale is the max-abs element, used for relative thresholds.
func matrixScale(A *matrix.Dense) float64 {
	var s, v float64
	for i := 0; i < A.Rows(); i++ {
		for _, v = range A.Row(i) {
			if math.Abs(v) > s {
				s = math.Abs(v)
			}
		}
	}

	return s
}

// rowOffMax is the max-abs off-diagonal element of row i within the
// leading (i+1)×(i+1) block.
func rowOffMax(A *matrix.Dense, i int) float64 {
	row := A.Row(i)
	var s float64
	for j := 0; j < i; j++ {
		if math.Abs(row[j]) > s {
			s = math.Abs(row[j])
		}
	}

	return s
}

// wilkinsonShift picks the eigenvalue of [[a,b],[c,d]] closest to d,
// falling back to d when the block's spectrum is complex.
func wilkinsonShift(a, b, c, d float64) float64 {
	tr := a + d
	disc := (a-d)*(a-d) + 4*b*c
	if disc < 0 {
		return d
	}
	root := math.Sqrt(disc)
	l1 := (tr + root) / 2
	l2 := (tr - root) / 2
	if math.Abs(l1-d) < math.Abs(l2-d) {
		return l1
	}

	return l2
}

// qrStep performs one shifted step A ← R·Q + σI on the leading am×am block.
func qrStep(A *matrix.Dense, am int, sigma float64) error {
	// extract shifted leading block
	B, err := matrix.NewDense(am, am)
	if err != nil {
		return fmt.Errorf("Eigen: %w", err)
	}
	var v float64
	for i := 0; i < am; i++ {
		for j := 0; j < am; j++ {
			v, _ = A.At(i, j)
			if i == j {
				v -= sigma
			}
			_ = B.Set(i, j, v)
		}
	}
	Q, R, err := QR(B)
	if err != nil {
		return fmt.Errorf("Eigen: %w", err)
	}
	// write back R·Q + σI
	var sum, rv, qv float64
	for i := 0; i < am; i++ {
		for j := 0; j < am; j++ {
			sum = 0
			for k := i; k < am; k++ { // R is upper triangular
				rv, _ = R.At(i, k)
				qv, _ = Q.At(k, j)
				sum += rv * qv
			}
			if i == j {
				sum += sigma
			}
			_ = A.Set(i, j, sum)
		}
	}

	return nil
}

// inverseIterationVectors recovers a right eigenvector for each eigenvalue
// by a few rounds of inverse iteration on A-(λ+δ)I. Eigenvalues within a
// cluster (equal within tolerance) get start vectors and iterates
// orthogonalized against earlier members so repeated eigenvalues span
// their eigenspace instead of collapsing onto one vector.
func inverseIterationVectors(m *matrix.Dense, vals []float64, tol float64) (*matrix.Dense, error) {
	n := m.Rows()
	V, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("Eigen: %w", err)
	}
	scale := matrixScale(m)
	if scale == 0 {
		scale = 1
	}
	cols := make([][]float64, len(vals))
	for vi, lambda := range vals {
		// cluster members already solved
		var cluster [][]float64
		for vj := 0; vj < vi; vj++ {
			if math.Abs(vals[vj]-lambda) <= 10*tol*scale {
				cluster = append(cluster, cols[vj])
			}
		}
		x, err := inverseIterate(m, lambda, vi, cluster, scale)
		if err != nil {
			return nil, err
		}
		cols[vi] = x
		for i := 0; i < n; i++ {
			_ = V.Set(i, vi, x[i])
		}
	}

	return V, nil
}

// inverseIterate runs the shifted solves for a single eigenvalue.
func inverseIterate(m *matrix.Dense, lambda float64, seed int, cluster [][]float64, scale float64) ([]float64, error) {
	const rounds = 4
	n := m.Rows()
	delta := (math.Abs(lambda) + scale) * 1e-10
	var (
		L, U  *matrix.Dense
		perm  []int
		err   error
		shift = lambda + delta
	)
	// retry with a larger perturbation if the shifted matrix is exactly singular
	for attempt := 0; attempt < 4; attempt++ {
		B := m.Clone()
		var v float64
		for i := 0; i < n; i++ {
			v, _ = B.At(i, i)
			_ = B.Set(i, i, v-shift)
		}
		L, U, perm, err = LU(B)
		if err == nil {
			break
		}
		shift += delta * math.Pow(10, float64(attempt+1))
	}
	if err != nil {
		return nil, fmt.Errorf("Eigen: shifted factorization: %w", matrix.ErrEigenFailed)
	}
	// deterministic start vector, decorrelated per eigenvalue index
	x := make([]float64, n)
	for i := range x {
		x[i] = 1 + float64((i+seed)%n)/float64(n)
	}
	if seed < n {
		x[seed] += 1
	}
	orthogonalize(x, cluster)
	for r := 0; r < rounds; r++ {
		x, err = LUSolve(L, U, perm, x)
		if err != nil {
			return nil, fmt.Errorf("Eigen: inverse iteration: %w", matrix.ErrEigenFailed)
		}
		orthogonalize(x, cluster)
		normalize(x)
	}

	return x, nil
}

// orthogonalize removes the projections of x onto each unit-normalized
// basis vector (classical Gram-Schmidt).
func orthogonalize(x []float64, basis [][]float64) {
	for _, b := range basis {
		var dot, nrm float64
		for i := range b {
			dot += x[i] * b[i]
			nrm += b[i] * b[i]
		}
		if nrm == 0 {
			continue
		}
		f := dot / nrm
		for i := range x {
			x[i] -= f * b[i]
		}
	}
}

// normalize scales x to unit 2-norm in place.
func normalize(x []float64) {
	var nrm float64
	for _, v := range x {
		nrm += v * v
	}
	nrm = math.Sqrt(nrm)
	if nrm == 0 {
		return
	}
	for i := range x {
		x[i] /= nrm
	}
}
