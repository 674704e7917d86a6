// SPDX-License-Identifier: MIT

package matrix

import "fmt"

// Dense is a row-major dense matrix of float64 values.
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense allocates a zeroed rows×cols dense matrix.
// Returns ErrBadShape for non-positive dimensions.
// Complexity: O(rows·cols).
func NewDense(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("NewDense %dx%d: %w", rows, cols, ErrBadShape)
	}

	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}, nil
}

// Identity allocates an n×n identity matrix.
func Identity(n int) (*Dense, error) {
	m, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}

	return m, nil
}

// Rows returns the number of rows. Complexity: O(1).
func (d *Dense) Rows() int { return d.rows }

// Cols returns the number of columns. Complexity: O(1).
func (d *Dense) Cols() int { return d.cols }

// At retrieves the element at (i, j).
// Returns ErrOutOfRange for invalid indices. Complexity: O(1).
func (d *Dense) At(i, j int) (float64, error) {
	if i < 0 || i >= d.rows || j < 0 || j >= d.cols {
		return 0, fmt.Errorf("At(%d,%d) of %dx%d: %w", i, j, d.rows, d.cols, ErrOutOfRange)
	}

	return d.data[i*d.cols+j], nil
}

// Set assigns v at (i, j).
// Returns ErrOutOfRange for invalid indices. Complexity: O(1).
func (d *Dense) Set(i, j int, v float64) error {
	if i < 0 || i >= d.rows || j < 0 || j >= d.cols {
		return fmt.Errorf("Set(%d,%d) of %dx%d: %w", i, j, d.rows, d.cols, ErrOutOfRange)
	}
	d.data[i*d.cols+j] = v

	return nil
}

// Row returns a mutable view of row i. The slice aliases the matrix
// storage; writes show through. Complexity: O(1).
func (d *Dense) Row(i int) []float64 {
	return d.data[i*d.cols : (i+1)*d.cols]
}

// Col copies column j into a fresh slice. Complexity: O(rows).
func (d *Dense) Col(j int) []float64 {
	out := make([]float64, d.rows)
	for i := 0; i < d.rows; i++ {
		out[i] = d.data[i*d.cols+j]
	}

	return out
}

// Clone returns a deep copy. Complexity: O(rows·cols).
func (d *Dense) Clone() *Dense {
	cp := &Dense{rows: d.rows, cols: d.cols, data: make([]float64, len(d.data))}
	copy(cp.data, d.data)

	return cp
}

// Zero resets every element to 0 in place.
func (d *Dense) Zero() {
	for i := range d.data {
		d.data[i] = 0
	}
}

// VecMul computes the row-vector product x·d for a length-rows x,
// returning a length-cols vector.
// Returns ErrDimensionMismatch on length mismatch. Complexity: O(rows·cols).
func (d *Dense) VecMul(x []float64) ([]float64, error) {
	if len(x) != d.rows {
		return nil, fmt.Errorf("VecMul len %d vs %d rows: %w", len(x), d.rows, ErrDimensionMismatch)
	}
	out := make([]float64, d.cols)
	for i := 0; i < d.rows; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		row := d.Row(i)
		for j, v := range row {
			out[j] += xi * v
		}
	}

	return out, nil
}

// MulVec computes the matrix-vector product d·y for a length-cols y,
// returning a length-rows vector.
// Returns ErrDimensionMismatch on length mismatch. Complexity: O(rows·cols).
func (d *Dense) MulVec(y []float64) ([]float64, error) {
	if len(y) != d.cols {
		return nil, fmt.Errorf("MulVec len %d vs %d cols: %w", len(y), d.cols, ErrDimensionMismatch)
	}
	out := make([]float64, d.rows)
	for i := 0; i < d.rows; i++ {
		row := d.Row(i)
		var sum float64
		for j, v := range row {
			sum += v * y[j]
		}
		out[i] = sum
	}

	return out, nil
}
