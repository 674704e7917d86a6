package engine

import (
	"fmt"

	"github.com/kinetigo/kinetiq/expr"
	"github.com/kinetigo/kinetiq/matrix"
	"github.com/kinetigo/kinetiq/montecarlo"
	"github.com/kinetigo/kinetiq/protocol"
)

// derivedPass fills, for variable set v, every cell's derived waveforms
// (state attributes, state groups, user expressions) and every summary's
// scalar grids, then applies summary normalization. Runs serially after
// the propagation barrier; the evaluation environment is per-cell.
func (s *Simulator) derivedPass(v int) error {
	for _, p := range s.Protocols {
		rows := p.Rows()
		cols := p.Cols()
		for _, sum := range p.Summaries {
			if sum.Active {
				dataX, dataY := sum.DataAt(v, rows, cols)
				dataX.Zero()
				dataY.Zero()
			}
		}
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				if s.abort.Load() {
					return nil
				}
				if err := s.derivedCell(p, v, row, col); err != nil {
					return fmt.Errorf("derived pass: protocol %q cell (%d,%d): %w", p.Name, row, col, err)
				}
			}
		}
		for _, sum := range p.Summaries {
			if sum.Active {
				sum.Normalize(v)
			}
		}
	}

	return nil
}

func (s *Simulator) derivedCell(p *protocol.Protocol, v, row, col int) error {
	sim := p.Simulations[row][col]
	numPts := sim.NumPts()
	numStates := sim.Epochs[0].Unique.NumStates()

	// probability source: the propagated matrix when its shape is current,
	// else a transient reconstruction from Monte Carlo chains.
	var P *matrix.Dense
	if v < len(sim.Probability) && sim.Probability[v] != nil {
		if cand := sim.Probability[v]; cand.Rows() == numPts && cand.Cols() == numStates {
			P = cand
		}
	}
	if P == nil && s.Options.Method == MonteCarlo && v < len(sim.Events) && len(sim.Events[v]) > 0 {
		P, _ = matrix.NewDense(numPts, numStates)
		montecarlo.Resample(P, sim.Events[v], sim.Time, sim.EndTime, &s.abort)
	}

	waveforms := sim.WaveformsAt(v)
	for name := range waveforms {
		delete(waveforms, name)
	}

	// state attributes as waveforms, epoch by epoch
	if P != nil {
		for ei := range sim.Epochs {
			epoch := &sim.Epochs[ei]
			for attrName, attrVec := range epoch.Unique.Attributes {
				wf, ok := waveforms[attrName]
				if !ok {
					wf = make([]float64, numPts)
					waveforms[attrName] = wf
				}
				for k := 0; k < epoch.NumPts; k++ {
					pRow := P.Row(epoch.FirstPt + k)
					dot := 0.0
					for j, av := range attrVec {
						dot += pRow[j] * av
					}
					wf[epoch.FirstPt+k] = dot
				}
			}
		}
	}

	// state-group occupancy waveforms
	if P != nil {
		for _, g := range s.Model.Groups {
			if !g.Active {
				continue
			}
			wf := make([]float64, numPts)
			for _, stateIndex := range g.Indexes() {
				colVals := P.Col(stateIndex)
				for k := range wf {
					wf[k] += colVals[k]
				}
			}
			waveforms[g.Name] = wf
		}
	}

	// user waveforms, each visible to the next
	env := s.cellEnv(sim, P, waveforms, 0, numPts)
	for _, w := range p.Waveforms {
		if !w.Active {
			continue
		}
		value, err := expr.Eval(w.Expr, env)
		if err != nil {
			return fmt.Errorf("waveform %q: %w", w.Name, err)
		}
		if value.Len() != numPts {
			return fmt.Errorf("waveform %q: length %d, want %d: %w", w.Name, value.Len(), numPts, expr.ErrShape)
		}
		vec, err := value.Slice(numPts)
		if err != nil {
			return fmt.Errorf("waveform %q: %w", w.Name, err)
		}
		owned := append([]float64(nil), vec...)
		waveforms[w.Name] = owned
		env.BindVector(w.Name, owned)
	}

	// summaries over their resolved windows
	for _, sum := range p.Summaries {
		if !sum.Active {
			continue
		}
		dataX, dataY := sum.DataAt(v, p.Rows(), p.Cols())
		first, num := sum.WindowX(row, col)
		winEnv := s.cellEnv(sim, P, waveforms, first, num)
		x, err := expr.EvalScalar(sum.ExprXAt(row, col), winEnv)
		if err != nil {
			return fmt.Errorf("summary %q X: %w", sum.Name, err)
		}
		_ = dataX.Set(row, col, x)
		firstY, numY := sum.WindowY(row, col)
		if firstY != first || numY != num {
			winEnv = s.cellEnv(sim, P, waveforms, firstY, numY)
		}
		y, err := expr.EvalScalar(sum.ExprYAt(row, col), winEnv)
		if err != nil {
			return fmt.Errorf("summary %q Y: %w", sum.Name, err)
		}
		_ = dataY.Set(row, col, y)
	}

	return nil
}

// cellEnv builds the evaluation environment of one cell over the sample
// window [first, first+num): every scalar parameter, t, every stimulus
// vector, every state occupancy column, every computed waveform.
func (s *Simulator) cellEnv(sim *protocol.Simulation, P *matrix.Dense, waveforms map[string][]float64, first, num int) *expr.Env {
	env := expr.NewEnv()
	for name, value := range s.Model.Parameters() {
		env.BindScalar(name, value)
	}
	env.BindVector("t", sim.Time[first:first+num])
	for name, vec := range sim.Stimuli {
		env.BindVector(name, vec[first:first+num])
	}
	if P != nil {
		for j, name := range s.stateNames {
			colVals := P.Col(j)
			env.BindVector(name, colVals[first:first+num])
		}
	}
	for name, vec := range waveforms {
		env.BindVector(name, vec[first:first+num])
	}

	return env
}
