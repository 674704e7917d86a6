package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Optimize refines the model's free variables (non-const, pure-number,
// with their [Min,Max] bounds) against the attached reference data by
// bounded coordinate descent: each outer iteration probes every free
// variable with a shrinking relative step and keeps improvements of the
// total weighted residual cost. The protocols must carry reference data
// and matching waveforms for the cost to be meaningful.
//
// Cancellation behaves as in Simulate; the best parameter vector found so
// far stays applied to the model on any exit.
func (s *Simulator) Optimize(ctx context.Context, iterations int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	free := s.Model.FreeVariables()
	if len(free) == 0 {
		return s.Simulate(ctx)
	}
	values := make([]float64, len(free))
	for i, f := range free {
		values[i] = f.Value
	}
	evaluate := func(candidate []float64) (float64, error) {
		if err := s.Model.SetFreeVariables(candidate); err != nil {
			return 0, err
		}
		if err := s.Simulate(ctx); err != nil {
			return 0, err
		}

		return s.TotalCost()
	}
	// on every exit, including cancellation and errors, leave the best
	// vector applied rather than the last probed candidate
	defer func() { _ = s.Model.SetFreeVariables(values) }()
	best, err := evaluate(values)
	if err != nil {
		return err
	}
	s.Logger.Info("optimize start", zap.Int("freeVariables", len(free)), zap.Float64("cost", best))
	step := 0.25
	for iter := 0; iter < iterations; iter++ {
		if err := s.checkCancelled(ctx); err != nil {
			return err
		}
		improved := false
		for i := range values {
			for _, direction := range []float64{1, -1} {
				if err := s.checkCancelled(ctx); err != nil {
					return err
				}
				candidate := append([]float64(nil), values...)
				candidate[i] = probe(values[i], direction*step, free[i].Min, free[i].Max)
				if candidate[i] == values[i] {
					continue
				}
				cost, err := evaluate(candidate)
				if err != nil {
					return err
				}
				if cost < best {
					best = cost
					values = candidate
					improved = true
				}
			}
		}
		if !improved {
			step /= 2
			if step < 1e-6 {
				break
			}
		}
		s.Logger.Debug("optimize iteration",
			zap.Int("iteration", iter), zap.Float64("cost", best), zap.Float64("step", step))
	}
	// leave the best vector applied and its outputs filled
	if err := s.Model.SetFreeVariables(values); err != nil {
		return err
	}
	if err := s.Simulate(ctx); err != nil {
		return err
	}
	s.Logger.Info("optimize done", zap.Float64("cost", best))

	return nil
}

// probe steps x by a relative amount, clamped to [min, max] when the
// bounds are meaningful (max > min).
func probe(x, step, min, max float64) float64 {
	delta := step * x
	if delta == 0 {
		delta = step
	}
	candidate := x + delta
	if max > min {
		if candidate > max {
			candidate = max
		}
		if candidate < min {
			candidate = min
		}
	}

	return candidate
}

// String renders the method for logs and error text.
func (m Method) String() string {
	switch m {
	case Spectral:
		return "spectral"
	case MonteCarlo:
		return "monte-carlo"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}
