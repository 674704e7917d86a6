// SPDX-License-Identifier: MIT

package matrix

import "fmt"

// Entry is one stored (column, value) pair of a sparse row.
type Entry struct {
	Col int
	Val float64
}

// Sparse is a row-compressed sparse matrix: each row keeps its stored
// entries ordered by column. Suited to transition-rate generators, where
// rows are short and iterated in order during sampling and assembly.
type Sparse struct {
	rows, cols int
	entries    [][]Entry
}

// NewSparse allocates an empty rows×cols sparse matrix.
// Returns ErrBadShape for non-positive dimensions.
func NewSparse(rows, cols int) (*Sparse, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("NewSparse %dx%d: %w", rows, cols, ErrBadShape)
	}

	return &Sparse{rows: rows, cols: cols, entries: make([][]Entry, rows)}, nil
}

// Rows returns the number of rows. Complexity: O(1).
func (s *Sparse) Rows() int { return s.rows }

// Cols returns the number of columns. Complexity: O(1).
func (s *Sparse) Cols() int { return s.cols }

// locate finds the position of column j in row i, reporting presence.
func (s *Sparse) locate(i, j int) (int, bool) {
	row := s.entries[i]
	lo, hi := 0, len(row)
	for lo < hi {
		mid := (lo + hi) / 2
		if row[mid].Col < j {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo, lo < len(row) && row[lo].Col == j
}

// Set stores v at (i, j), inserting or overwriting.
// Returns ErrOutOfRange for invalid indices. Complexity: O(log nnz(row)+nnz(row)).
func (s *Sparse) Set(i, j int, v float64) error {
	if i < 0 || i >= s.rows || j < 0 || j >= s.cols {
		return fmt.Errorf("Set(%d,%d) of %dx%d: %w", i, j, s.rows, s.cols, ErrOutOfRange)
	}
	pos, found := s.locate(i, j)
	if found {
		s.entries[i][pos].Val = v

		return nil
	}
	row := s.entries[i]
	row = append(row, Entry{})
	copy(row[pos+1:], row[pos:])
	row[pos] = Entry{Col: j, Val: v}
	s.entries[i] = row

	return nil
}

// At retrieves the element at (i, j); absent entries are 0.
// Returns ErrOutOfRange for invalid indices.
func (s *Sparse) At(i, j int) (float64, error) {
	if i < 0 || i >= s.rows || j < 0 || j >= s.cols {
		return 0, fmt.Errorf("At(%d,%d) of %dx%d: %w", i, j, s.rows, s.cols, ErrOutOfRange)
	}
	pos, found := s.locate(i, j)
	if !found {
		return 0, nil
	}

	return s.entries[i][pos].Val, nil
}

// Scale multiplies the stored entry at (i, j) by f. Absent entries stay
// absent (0·f = 0), mirroring multiplicative rate factors that only touch
// existing transitions.
func (s *Sparse) Scale(i, j int, f float64) error {
	if i < 0 || i >= s.rows || j < 0 || j >= s.cols {
		return fmt.Errorf("Scale(%d,%d) of %dx%d: %w", i, j, s.rows, s.cols, ErrOutOfRange)
	}
	if pos, found := s.locate(i, j); found {
		s.entries[i][pos].Val *= f
	}

	return nil
}

// Row returns the stored entries of row i, ordered by column. The slice
// aliases internal storage and must not be mutated by callers.
func (s *Sparse) Row(i int) []Entry { return s.entries[i] }

// RowSum returns the sum of the stored entries of row i. Complexity: O(nnz(row)).
func (s *Sparse) RowSum(i int) float64 {
	var sum float64
	for _, e := range s.entries[i] {
		sum += e.Val
	}

	return sum
}

// NonZeros counts stored entries across all rows.
func (s *Sparse) NonZeros() int {
	n := 0
	for _, row := range s.entries {
		n += len(row)
	}

	return n
}

// SetGeneratorDiagonal sets each diagonal entry to the negated sum of the
// other stored entries of its row, making the matrix a conservative
// infinitesimal generator (zero row sums).
// Returns ErrNonSquare for non-square matrices. Complexity: O(nnz).
func (s *Sparse) SetGeneratorDiagonal() error {
	if s.rows != s.cols {
		return fmt.Errorf("SetGeneratorDiagonal %dx%d: %w", s.rows, s.cols, ErrNonSquare)
	}
	var offSum float64
	for i := 0; i < s.rows; i++ {
		offSum = 0
		for _, e := range s.entries[i] {
			if e.Col != i {
				offSum += e.Val
			}
		}
		if err := s.Set(i, i, -offSum); err != nil {
			return err
		}
	}

	return nil
}

// HadamardRowSums computes rowsum(s ⊙ o): for each row, the sum over
// columns of the products of co-located entries.
// Returns ErrDimensionMismatch when shapes differ. Complexity: O(nnz).
func (s *Sparse) HadamardRowSums(o *Sparse) ([]float64, error) {
	if s.rows != o.rows || s.cols != o.cols {
		return nil, fmt.Errorf("HadamardRowSums %dx%d vs %dx%d: %w", s.rows, s.cols, o.rows, o.cols, ErrDimensionMismatch)
	}
	out := make([]float64, s.rows)
	for i := 0; i < s.rows; i++ {
		a, b := s.entries[i], o.entries[i]
		ai, bi := 0, 0
		for ai < len(a) && bi < len(b) {
			switch {
			case a[ai].Col < b[bi].Col:
				ai++
			case a[ai].Col > b[bi].Col:
				bi++
			default:
				out[i] += a[ai].Val * b[bi].Val
				ai++
				bi++
			}
		}
	}

	return out, nil
}

// ToDense expands the sparse matrix into a dense one. Complexity: O(rows·cols).
func (s *Sparse) ToDense() (*Dense, error) {
	d, err := NewDense(s.rows, s.cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < s.rows; i++ {
		row := d.Row(i)
		for _, e := range s.entries[i] {
			row[e.Col] = e.Val
		}
	}

	return d, nil
}
