package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kinetigo/kinetiq/model"
	"github.com/kinetigo/kinetiq/montecarlo"
	"github.com/kinetigo/kinetiq/protocol"
	"github.com/kinetigo/kinetiq/spectral"
)

// chargeCurrentScale converts rowsum(Q ⊙ C) from elementary charges per
// second to picoamperes.
const chargeCurrentScale = 6.242e-6

// Simulator drives a kinetic model through a set of stimulus protocols.
// It owns the unique-epoch registry; a new Init rebuilds the grids and
// invalidates every derived cache.
type Simulator struct {
	Model     *model.Model
	Protocols []*protocol.Protocol
	Options   Options
	Logger    *zap.Logger

	registry   *protocol.EpochRegistry
	stateNames []string

	abort   atomic.Bool
	mu      sync.Mutex
	message string
}

// New assembles a simulator with zap.NewNop() installed as its Logger.
func New(m *model.Model, protocols []*protocol.Protocol, opts Options) *Simulator {
	return &Simulator{
		Model:     m,
		Protocols: protocols,
		Options:   opts,
		Logger:    zap.NewNop(),
		registry:  protocol.NewEpochRegistry(),
	}
}

// StateNames returns the labels assigned by the last Init.
func (s *Simulator) StateNames() []string { return s.stateNames }

// Registry exposes the unique-epoch registry (read-only use).
func (s *Simulator) Registry() *protocol.EpochRegistry { return s.registry }

// Abort requests cooperative cancellation of the running invocation.
func (s *Simulator) Abort() { s.abort.Store(true) }

// Aborted reports whether cancellation was requested.
func (s *Simulator) Aborted() bool { return s.abort.Load() }

// Message returns the last failure or cancellation message, empty after a
// clean run.
func (s *Simulator) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.message
}

func (s *Simulator) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Init renumbers the model, rebuilds every protocol grid and repopulates
// the unique-epoch registry. Must precede Simulate after structural edits.
func (s *Simulator) Init() error {
	s.abort.Store(false)
	s.setMessage("")
	if len(s.Protocols) == 0 {
		return ErrNoProtocols
	}
	names, err := s.Model.Init()
	if err != nil {
		s.setMessage(err.Error())

		return fmt.Errorf("Init: %w", err)
	}
	s.stateNames = names
	s.registry.Reset()
	for _, p := range s.Protocols {
		if err := p.Init(s.registry); err != nil {
			s.setMessage(err.Error())

			return fmt.Errorf("Init: protocol %q: %w", p.Name, err)
		}
	}
	if s.Logger != nil {
		s.Logger.Debug("initialized",
			zap.Int("states", len(names)),
			zap.Int("protocols", len(s.Protocols)),
			zap.Int("uniqueEpochs", s.registry.Len()))
	}

	return nil
}

// Simulate runs every variable set through assembly, decomposition,
// propagation and the derived pass. On failure the run stops, the message
// records the cause, and output slices of earlier variable sets remain.
func (s *Simulator) Simulate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	numSets := s.Model.NumVariableSets()
	log.Info("simulate start",
		zap.String("run", runID),
		zap.Int("variableSets", numSets),
		zap.Int("uniqueEpochs", s.registry.Len()))
	for v := 0; v < numSets; v++ {
		if err := s.checkCancelled(ctx); err != nil {
			return err
		}
		if err := s.assemble(v); err != nil {
			s.abort.Store(true)
			s.setMessage(err.Error())
			log.Error("assembly failed", zap.String("run", runID), zap.Int("set", v), zap.Error(err))

			return err
		}
		if err := s.decompose(ctx); err != nil {
			s.abort.Store(true)
			s.setMessage(err.Error())
			log.Error("decomposition failed", zap.String("run", runID), zap.Int("set", v), zap.Error(err))

			return err
		}
		if err := s.propagate(ctx, v); err != nil {
			s.abort.Store(true)
			s.setMessage(err.Error())
			log.Error("propagation failed", zap.String("run", runID), zap.Int("set", v), zap.Error(err))

			return err
		}
		if err := s.checkCancelled(ctx); err != nil {
			return err
		}
		if err := s.derivedPass(v); err != nil {
			s.abort.Store(true)
			s.setMessage(err.Error())
			log.Error("derived pass failed", zap.String("run", runID), zap.Int("set", v), zap.Error(err))

			return err
		}
		log.Debug("variable set done", zap.String("run", runID), zap.Int("set", v))
	}
	if err := s.checkCancelled(ctx); err != nil {
		return err
	}
	log.Info("simulate done", zap.String("run", runID))

	return nil
}

func (s *Simulator) checkCancelled(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		s.abort.Store(true)
	}
	if s.abort.Load() {
		s.setMessage(ErrCancelled.Error())

		return ErrCancelled
	}

	return nil
}

// assemble refreshes every unique epoch's numeric fields for variable set
// v. The per-epoch stimulus tuple seeds the parameter map, so parameters
// may depend on stimulus values.
func (s *Simulator) assemble(v int) error {
	for _, u := range s.registry.All() {
		if s.abort.Load() {
			return nil
		}
		if err := s.Model.EvalVariables(u.Stimuli, v); err != nil {
			return err
		}
		var err error
		if u.StartProb, err = s.Model.StartingProbability(); err != nil {
			return err
		}
		if u.Attributes, err = s.Model.StateAttributes(); err != nil {
			return err
		}
		if u.Rates, err = s.Model.TransitionRates(); err != nil {
			return err
		}
		if u.Charges, err = s.Model.TransitionCharges(); err != nil {
			return err
		}
		numStates := u.Rates.Rows()
		if u.Charges.NonZeros() > 0 {
			sums, err := u.Rates.HadamardRowSums(u.Charges)
			if err != nil {
				return err
			}
			for i := range sums {
				sums[i] *= chargeCurrentScale
			}
			u.ChargeCurrents = sums
		} else {
			u.ChargeCurrents = make([]float64, numStates)
		}
	}

	return nil
}

// decompose runs the per-unique-epoch preparation in parallel: spectral
// expansion for the eigen method, exit-rate tables for Monte Carlo.
func (s *Simulator) decompose(ctx context.Context) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers())
	for _, u := range s.registry.All() {
		u := u
		eg.Go(func() error {
			if s.abort.Load() {
				return nil
			}
			if s.Options.Method == Spectral {
				return spectral.Decompose(u, s.Options.Eigen, &s.abort)
			}
			montecarlo.PrepareExitRates(u)

			return nil
		})
	}

	return eg.Wait()
}

// propagate runs every simulation cell of every protocol in parallel.
func (s *Simulator) propagate(ctx context.Context, v int) error {
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers())
	mcOpts := montecarlo.Options{
		NumRuns:    s.Options.NumRuns,
		Accumulate: s.Options.AccumulateRuns,
		Sample:     s.Options.SampleRuns,
	}
	for _, p := range s.Protocols {
		startEquilibrated := p.StartEquilibrated
		for row := range p.Simulations {
			for col := range p.Simulations[row] {
				sim := p.Simulations[row][col]
				eg.Go(func() error {
					if s.abort.Load() {
						return nil
					}
					p0 := sim.Epochs[0].Unique.StartProb
					if s.Options.Method == Spectral {
						return spectral.Propagate(sim, p0, startEquilibrated, v, &s.abort)
					}

					return montecarlo.Simulate(sim, p0, startEquilibrated, mcOpts, v, &s.abort)
				})
			}
		}
	}

	return eg.Wait()
}

func (s *Simulator) workers() int {
	if s.Options.Workers > 0 {
		return s.Options.Workers
	}

	return 1
}

// MaxProbabilityError reports the worst conservation violation across all
// cells and variable sets, a post-run sanity diagnostic.
func (s *Simulator) MaxProbabilityError() float64 {
	maxErr := 0.0
	for _, p := range s.Protocols {
		for row := range p.Simulations {
			for col := range p.Simulations[row] {
				if e := p.Simulations[row][col].MaxProbabilityError(); e > maxErr {
					maxErr = e
				}
			}
		}
	}

	return maxErr
}

// TotalCost sums the weighted residual cost of every protocol over every
// variable set. Valid after Simulate when reference data is attached.
func (s *Simulator) TotalCost() (float64, error) {
	total := 0.0
	numSets := s.Model.NumVariableSets()
	for _, p := range s.Protocols {
		for v := 0; v < numSets; v++ {
			c, err := p.Cost(v)
			if err != nil {
				return 0, err
			}
			total += c
		}
	}

	return total, nil
}
