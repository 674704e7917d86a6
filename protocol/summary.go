package protocol

import "github.com/kinetigo/kinetiq/matrix"

// Normalization selects how a summary's Y data is rescaled after filling.
type Normalization int

const (
	// NormalizeNone leaves the summary data as computed.
	NormalizeNone Normalization = iota

	// NormalizePerRow divides each row of dataY by its max absolute value.
	NormalizePerRow

	// NormalizeAllRows divides the whole dataY matrix by its global max
	// absolute value.
	NormalizeAllRows
)

// Waveform is a user-defined derived time course: a named expression
// evaluated over the full sample axis with every parameter, stimulus,
// state column and previously computed waveform in scope.
type Waveform struct {
	Name   string
	Active bool
	Expr   string
}

// Summary reduces two independent sample windows of every cell to scalar
// X/Y values, producing rows×cols matrices per variable set. Expressions
// and windows are conditions specs.
type Summary struct {
	Name          string
	Active        bool
	ExprX         string
	ExprY         string
	StartX        string
	DurationX     string
	StartY        string
	DurationY     string
	Normalization Normalization

	exprXs     [][]string
	exprYs     [][]string
	startXs    [][]float64
	durationXs [][]float64
	startYs    [][]float64
	durationYs [][]float64

	firstPtX [][]int
	numPtsX  [][]int
	firstPtY [][]int
	numPtsY  [][]int

	// DataX/DataY are the filled rows×cols scalar matrices per variable
	// set, written by the coordinator's derived pass.
	DataX []*matrix.Dense
	DataY []*matrix.Dense
}

func (s *Summary) parseConditions() {
	s.exprXs = ParseStringGrid(s.ExprX)
	s.exprYs = ParseStringGrid(s.ExprY)
	s.startXs = ParseFloatGrid(s.StartX)
	s.durationXs = ParseFloatGrid(s.DurationX)
	s.startYs = ParseFloatGrid(s.StartY)
	s.durationYs = ParseFloatGrid(s.DurationY)
}

func (s *Summary) limits(rows, cols *int) {
	gridLimits(s.exprXs, rows, cols)
	gridLimits(s.exprYs, rows, cols)
	gridLimits(s.startXs, rows, cols)
	gridLimits(s.durationXs, rows, cols)
	gridLimits(s.startYs, rows, cols)
	gridLimits(s.durationYs, rows, cols)
}

func (s *Summary) pad(rows, cols int) {
	s.exprXs = padGrid(s.exprXs, rows, cols, "")
	s.exprYs = padGrid(s.exprYs, rows, cols, "")
	s.startXs = padGrid(s.startXs, rows, cols, 0)
	s.durationXs = padGrid(s.durationXs, rows, cols, 0)
	s.startYs = padGrid(s.startYs, rows, cols, 0)
	s.durationYs = padGrid(s.durationYs, rows, cols, 0)
	s.firstPtX = intGrid(rows, cols)
	s.numPtsX = intGrid(rows, cols)
	s.firstPtY = intGrid(rows, cols)
	s.numPtsY = intGrid(rows, cols)
}

func intGrid(rows, cols int) [][]int {
	g := make([][]int, rows)
	for i := range g {
		g[i] = make([]int, cols)
	}

	return g
}

// resolveWindows records the sample-index ranges of both windows for cell
// (row, col) against its time base.
func (s *Summary) resolveWindows(time []float64, row, col int) {
	first, num := sampleRange(time, s.startXs[row][col], s.startXs[row][col]+s.durationXs[row][col])
	s.firstPtX[row][col] = first
	s.numPtsX[row][col] = num
	first, num = sampleRange(time, s.startYs[row][col], s.startYs[row][col]+s.durationYs[row][col])
	s.firstPtY[row][col] = first
	s.numPtsY[row][col] = num
}

// ExprXAt returns the X expression for cell (row, col). Valid after Init.
func (s *Summary) ExprXAt(row, col int) string { return s.exprXs[row][col] }

// ExprYAt returns the Y expression for cell (row, col). Valid after Init.
func (s *Summary) ExprYAt(row, col int) string { return s.exprYs[row][col] }

// WindowX returns the resolved (firstPt, numPts) X window of cell (row, col).
func (s *Summary) WindowX(row, col int) (int, int) {
	return s.firstPtX[row][col], s.numPtsX[row][col]
}

// WindowY returns the resolved (firstPt, numPts) Y window of cell (row, col).
func (s *Summary) WindowY(row, col int) (int, int) {
	return s.firstPtY[row][col], s.numPtsY[row][col]
}

// DataAt returns the (dataX, dataY) matrices of variable set v, allocating
// zeroed rows×cols matrices so slot v is writable.
func (s *Summary) DataAt(v, rows, cols int) (*matrix.Dense, *matrix.Dense) {
	for len(s.DataX) <= v {
		m, _ := matrix.NewDense(rows, cols)
		s.DataX = append(s.DataX, m)
	}
	for len(s.DataY) <= v {
		m, _ := matrix.NewDense(rows, cols)
		s.DataY = append(s.DataY, m)
	}

	return s.DataX[v], s.DataY[v]
}

// Normalize rescales dataY of variable set v according to the summary's
// normalization mode.
func (s *Summary) Normalize(v int) {
	if v >= len(s.DataY) || s.DataY[v] == nil {
		return
	}
	dataY := s.DataY[v]
	switch s.Normalization {
	case NormalizePerRow:
		for i := 0; i < dataY.Rows(); i++ {
			row := dataY.Row(i)
			maxAbs := 0.0
			for _, x := range row {
				if a := abs(x); a > maxAbs {
					maxAbs = a
				}
			}
			if maxAbs == 0 {
				continue
			}
			for j := range row {
				row[j] /= maxAbs
			}
		}
	case NormalizeAllRows:
		maxAbs := 0.0
		for i := 0; i < dataY.Rows(); i++ {
			for _, x := range dataY.Row(i) {
				if a := abs(x); a > maxAbs {
					maxAbs = a
				}
			}
		}
		if maxAbs == 0 {
			return
		}
		for i := 0; i < dataY.Rows(); i++ {
			row := dataY.Row(i)
			for j := range row {
				row[j] /= maxAbs
			}
		}
	case NormalizeNone:
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}
