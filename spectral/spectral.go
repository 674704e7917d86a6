// Package spectral implements the eigen-expansion simulation kernel: it
// decomposes each unique epoch's transition-rate generator into
// eigenvalues and rank-1 spectral projectors, and propagates a starting
// probability row vector across a cell's epochs by summed exponentials,
//
//	P(t) = Σ_i exp(t·λ_i) · (π₀ · A_i),  A_i = v_i · w_iᵀ,
//
// where v_i is the i-th right eigenvector and w_i the i-th row of V⁻¹.
// Eigenpairs are sorted by ascending |λ| so index 0 carries the near-zero
// eigenvalue whose projector maps any distribution to equilibrium.
package spectral

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/kinetigo/kinetiq/matrix"
	"github.com/kinetigo/kinetiq/matrix/ops"
	"github.com/kinetigo/kinetiq/protocol"
)

// ErrSpectral is returned when the eigen decomposition fails or is
// requested for fewer than two states.
var ErrSpectral = errors.New("spectral: eigen expansion failed")

// Options tune the underlying eigen iteration.
type Options struct {
	// Tol is the relative deflation/convergence threshold.
	Tol float64
	// MaxIter caps the number of QR steps.
	MaxIter int
}

// DefaultOptions returns the production tolerances.
func DefaultOptions() Options { return Options{Tol: 1e-12, MaxIter: 10000} }

// Decompose fills u's spectral fields (EigenValues, Projectors) from its
// assembled rate generator. Pairs are sorted ascending by |λ|.
// Fails with ErrSpectral for N < 2 or on non-convergence.
// Complexity: O(iter·N³).
func Decompose(u *protocol.UniqueEpoch, opts Options, abort *atomic.Bool) error {
	numStates := u.NumStates()
	if numStates < 2 {
		return fmt.Errorf("Decompose: %d states: %w", numStates, ErrSpectral)
	}
	dense, err := u.Rates.ToDense()
	if err != nil {
		return fmt.Errorf("Decompose: %w", err)
	}
	if aborted(abort) {
		return nil
	}
	vals, V, err := ops.Eigen(dense, opts.Tol, opts.MaxIter)
	if err != nil {
		return fmt.Errorf("Decompose: %w: %w", err, ErrSpectral)
	}
	if aborted(abort) {
		return nil
	}
	W, err := ops.Inverse(V)
	if err != nil {
		return fmt.Errorf("Decompose: eigenvector basis: %w: %w", err, ErrSpectral)
	}
	// sort eigenpair indices by ascending |λ|
	order := make([]int, numStates)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(vals[order[a]]) < math.Abs(vals[order[b]])
	})
	u.EigenValues = make([]float64, numStates)
	u.Projectors = make([]*matrix.Dense, numStates)
	for i, j := range order {
		if aborted(abort) {
			return nil
		}
		u.EigenValues[i] = vals[j]
		A, err := matrix.NewDense(numStates, numStates)
		if err != nil {
			return fmt.Errorf("Decompose: %w", err)
		}
		wRow := W.Row(j)
		for r := 0; r < numStates; r++ {
			vr, _ := V.At(r, j)
			row := A.Row(r)
			for c := 0; c < numStates; c++ {
				row[c] = vr * wRow[c]
			}
		}
		u.Projectors[i] = A
	}

	return nil
}

// Equilibrium returns p·A₀, the equilibrium distribution of the epoch's
// generator reached from p. Valid after Decompose.
func Equilibrium(p []float64, u *protocol.UniqueEpoch) ([]float64, error) {
	if len(u.Projectors) == 0 {
		return nil, fmt.Errorf("Equilibrium: not decomposed: %w", ErrSpectral)
	}
	out, err := u.Projectors[0].VecMul(p)
	if err != nil {
		return nil, fmt.Errorf("Equilibrium: %w", err)
	}

	return out, nil
}

// EquilibriumProbability solves for the stationary distribution of Q in
// closed form: u·(S·Sᵀ)⁻¹ with S = [Q | 1]. It needs no decomposition and
// serves the Monte Carlo kernel's equilibrated starts.
func EquilibriumProbability(Q *matrix.Sparse) ([]float64, error) {
	n := Q.Rows()
	S, err := matrix.NewDense(n, n+1)
	if err != nil {
		return nil, fmt.Errorf("EquilibriumProbability: %w", err)
	}
	for i := 0; i < n; i++ {
		row := S.Row(i)
		for _, e := range Q.Row(i) {
			row[e.Col] = e.Val
		}
		row[n] = 1
	}
	// G = S·Sᵀ (n×n)
	G, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("EquilibriumProbability: %w", err)
	}
	for i := 0; i < n; i++ {
		si := S.Row(i)
		gi := G.Row(i)
		for j := 0; j < n; j++ {
			sj := S.Row(j)
			var dot float64
			for k := 0; k <= n; k++ {
				dot += si[k] * sj[k]
			}
			gi[j] = dot
		}
	}
	inv, err := ops.Inverse(G)
	if err != nil {
		return nil, fmt.Errorf("EquilibriumProbability: %w", err)
	}
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	out, err := inv.VecMul(ones)
	if err != nil {
		return nil, fmt.Errorf("EquilibriumProbability: %w", err)
	}

	return out, nil
}

// Propagate fills the v-th probability matrix of sim by spectral
// expansion across its epochs:
//
//	Stage 1: optionally replace π₀ by the first epoch's equilibrium.
//	Stage 2: per epoch, P[first..first+count) += Σ_i exp(τ·λ_i)·(π₀·A_i)
//	         with τ rebased to the epoch start.
//	Stage 3: between epochs, π₀ ← Σ_i exp(L·λ_i)·(π₀·A_i).
//
// The abort flag is honored at every epoch and eigen-index boundary; an
// aborted call returns leaving the matrix partially filled.
func Propagate(sim *protocol.Simulation, p0 []float64, startEquilibrated bool, v int, abort *atomic.Bool) error {
	numStates := len(p0)
	P := sim.ProbabilityAt(v, numStates)
	P.Zero()
	p := append([]float64(nil), p0...)
	for ei := range sim.Epochs {
		if aborted(abort) {
			return nil
		}
		epoch := &sim.Epochs[ei]
		u := epoch.Unique
		if ei == 0 && startEquilibrated {
			var err error
			p, err = Equilibrium(p, u)
			if err != nil {
				return fmt.Errorf("Propagate: %w", err)
			}
			for k := 0; k < epoch.NumPts; k++ {
				copy(P.Row(epoch.FirstPt+k), p)
			}

			continue
		}
		if len(u.EigenValues) != numStates {
			return fmt.Errorf("Propagate: epoch not decomposed: %w", ErrSpectral)
		}
		// cache π·A_i for this epoch
		projected := make([][]float64, numStates)
		for i := 0; i < numStates; i++ {
			if aborted(abort) {
				return nil
			}
			pa, err := u.Projectors[i].VecMul(p)
			if err != nil {
				return fmt.Errorf("Propagate: %w", err)
			}
			projected[i] = pa
		}
		for i := 0; i < numStates; i++ {
			if aborted(abort) {
				return nil
			}
			lambda := u.EigenValues[i]
			pa := projected[i]
			for k := 0; k < epoch.NumPts; k++ {
				tau := sim.Time[epoch.FirstPt+k] - epoch.Start
				scale := math.Exp(tau * lambda)
				row := P.Row(epoch.FirstPt + k)
				for j := range row {
					row[j] += scale * pa[j]
				}
			}
		}
		if ei+1 < len(sim.Epochs) {
			next := make([]float64, numStates)
			for i := 0; i < numStates; i++ {
				scale := math.Exp(u.EigenValues[i] * epoch.Duration)
				for j, pv := range projected[i] {
					next[j] += scale * pv
				}
			}
			p = next
		}
	}

	return nil
}

func aborted(abort *atomic.Bool) bool { return abort != nil && abort.Load() }
