package protocol

import "fmt"

// ReferenceData attaches experimental sample vectors to the grid for
// fitting: one vector per cell, compared against the named waveform.
// Missing cells are skipped; present cells must match the cell's sample
// count.
type ReferenceData struct {
	Name     string
	Active   bool
	Waveform string
	Data     [][][]float64 // [row][col] → sample vector, may be ragged
}

// at returns the reference vector for cell (row, col), or nil.
func (r *ReferenceData) at(row, col int) []float64 {
	if row >= len(r.Data) || col >= len(r.Data[row]) {
		return nil
	}

	return r.Data[row][col]
}

// Validate checks every present reference vector against the grid's cell
// sample counts. Fails with ErrRefShape on the first mismatch.
func (r *ReferenceData) Validate(sims [][]*Simulation) error {
	for row := range r.Data {
		for col := range r.Data[row] {
			vec := r.Data[row][col]
			if vec == nil || row >= len(sims) || col >= len(sims[row]) {
				continue
			}
			if got, want := len(vec), sims[row][col].NumPts(); got != want {
				return fmt.Errorf("reference %q cell (%d,%d): %d samples, want %d: %w",
					r.Name, row, col, got, want, ErrRefShape)
			}
		}
	}

	return nil
}
