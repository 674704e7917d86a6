package protocol

import (
	"math"

	"github.com/kinetigo/kinetiq/expr"
)

// epsilon is the shared sample-snapping and degeneracy tolerance.
const epsilon = 5 * 2.220446049250313e-16 // 5·ε for float64

// Stimulus is one named stimulus source. Every property is a conditions
// spec, so a single Stimulus can sweep amplitude, timing or shape across
// the grid. The special names "weight" and "mask" (case-insensitive)
// divert the waveform into the cell's weight vector and sample mask.
type Stimulus struct {
	Name        string
	Active      bool
	Start       string
	Duration    string
	Amplitude   string
	OnsetExpr   string
	OffsetExpr  string
	Repetitions string
	Period      string

	starts      [][]float64
	durations   [][]float64
	amplitudes  [][]float64
	onsetExprs  [][]string
	offsetExprs [][]string
	repeats     [][]int
	periods     [][]float64
}

// parseConditions refreshes the per-grid property matrices.
func (s *Stimulus) parseConditions() {
	s.starts = ParseFloatGrid(s.Start)
	s.durations = ParseFloatGrid(s.Duration)
	s.amplitudes = ParseFloatGrid(s.Amplitude)
	s.onsetExprs = ParseStringGrid(s.OnsetExpr)
	s.offsetExprs = ParseStringGrid(s.OffsetExpr)
	s.repeats = ParseIntGrid(s.Repetitions)
	s.periods = ParseFloatGrid(s.Period)
}

func (s *Stimulus) limits(rows, cols *int) {
	gridLimits(s.starts, rows, cols)
	gridLimits(s.durations, rows, cols)
	gridLimits(s.amplitudes, rows, cols)
	gridLimits(s.onsetExprs, rows, cols)
	gridLimits(s.offsetExprs, rows, cols)
	gridLimits(s.repeats, rows, cols)
	gridLimits(s.periods, rows, cols)
}

func (s *Stimulus) pad(rows, cols int) {
	s.starts = padGrid(s.starts, rows, cols, 0)
	s.durations = padGrid(s.durations, rows, cols, 0)
	s.amplitudes = padGrid(s.amplitudes, rows, cols, 0)
	s.onsetExprs = padGrid(s.onsetExprs, rows, cols, "")
	s.offsetExprs = padGrid(s.offsetExprs, rows, cols, "")
	s.repeats = padGrid(s.repeats, rows, cols, 1)
	s.periods = padGrid(s.periods, rows, cols, 0)
}

// waveformAt synthesizes the stimulus sample vector for cell (row, col)
// over the given sample times. Each repetition contributes a square pulse
// of the cell amplitude between its on and off times, unless an onset or
// offset expression is present: then the expression is evaluated with "t"
// rebased to the on (resp. off) time and scaled by the amplitude.
// Expression failures are swallowed, because onset/offset expressions are
// user-authored: a failed onset expression falls back to the square pulse
// over the on-region, and a failed offset expression contributes nothing.
func (s *Stimulus) waveformAt(time []float64, row, col int) []float64 {
	numPts := len(time)
	out := make([]float64, numPts)
	duration := s.durations[row][col]
	amplitude := s.amplitudes[row][col]
	if duration <= epsilon || math.Abs(amplitude) <= epsilon {
		return out
	}
	onsetExpr := s.onsetExprs[row][col]
	offsetExpr := s.offsetExprs[row][col]
	for rep := 0; rep < s.repeats[row][col]; rep++ {
		onsetTime := s.starts[row][col] + float64(rep)*s.periods[row][col]
		offsetTime := onsetTime + duration
		firstOnsetPt := snapIndex(time, onsetTime)
		if firstOnsetPt >= numPts {
			continue
		}
		firstOffsetPt := snapIndex(time, offsetTime)
		numOnsetPts := firstOffsetPt - firstOnsetPt
		numOffsetPts := numPts - firstOffsetPt
		if onsetExpr == "" && offsetExpr == "" {
			// square pulse
			for i := firstOnsetPt; i < firstOffsetPt; i++ {
				out[i] += amplitude
			}

			continue
		}
		if numOnsetPts > 0 && onsetExpr != "" {
			if !addShapedSegment(out, time, firstOnsetPt, numOnsetPts, onsetTime, amplitude, onsetExpr) {
				// square-pulse fallback
				for i := firstOnsetPt; i < firstOffsetPt; i++ {
					out[i] += amplitude
				}
			}
		}
		if numOffsetPts > 0 && offsetExpr != "" {
			addShapedSegment(out, time, firstOffsetPt, numOffsetPts, offsetTime, amplitude, offsetExpr)
		}
	}

	return out
}

// addShapedSegment evaluates src with "t" bound to time[first:first+num]
// rebased to base, and accumulates amplitude·result into out. It reports
// whether evaluation succeeded; on failure out is left unchanged.
func addShapedSegment(out, time []float64, first, num int, base, amplitude float64, src string) bool {
	pulseTime := make([]float64, num)
	for i := range pulseTime {
		pulseTime[i] = time[first+i] - base
	}
	env := expr.NewEnv()
	env.BindVector("t", pulseTime)
	shaped, err := expr.EvalVector(src, env, num)
	if err != nil {
		return false
	}
	for i, v := range shaped {
		out[first+i] += amplitude * v
	}

	return true
}

// snapIndex finds the first sample index at or after x within tolerance:
// the index of the closest sample, advanced by one when that sample lies
// more than epsilon before x. May return len(time).
func snapIndex(time []float64, x float64) int {
	closest := 0
	best := math.Abs(time[0] - x)
	for i := 1; i < len(time); i++ {
		if d := math.Abs(time[i] - x); d < best {
			best = d
			closest = i
		}
	}
	if time[closest] < x-epsilon {
		closest++
	}

	return closest
}

// sampleRange resolves the window [start, stop) to (firstPt, numPts) over
// the sample times, snapping each edge to the nearest sample and rounding
// up when the snapped sample lies below the edge; the sample snapped to
// stop is not included.
func sampleRange(time []float64, start, stop float64) (int, int) {
	firstPt := snapIndex(time, start)
	if firstPt >= len(time) {
		return len(time), 0
	}
	endPt := snapIndex(time, stop)
	if endPt < firstPt {
		endPt = firstPt
	}

	return firstPt, endPt - firstPt
}
