package protocol

import (
	"fmt"
	"math"
	"strings"
)

// Protocol is one stimulus-clamp protocol: timing conditions, stimuli,
// derived waveforms, summaries and reference data, expanded into a
// rows×cols grid of Simulations by Init.
type Protocol struct {
	Name              string
	Start             string
	Duration          string
	SampleInterval    string
	Weight            string
	StartEquilibrated bool

	Stimuli    []*Stimulus
	Waveforms  []*Waveform
	Summaries  []*Summary
	References []*ReferenceData

	Simulations [][]*Simulation

	starts          [][]float64
	durations       [][]float64
	sampleIntervals [][]float64
	weights         [][]float64
}

// New returns a protocol with the default one-second, one-millisecond
// time base.
func New(name string) *Protocol {
	return &Protocol{
		Name:           name,
		Start:          "0",
		Duration:       "1",
		SampleInterval: "0.001",
		Weight:         "1",
	}
}

// Rows returns the grid row count of the last Init.
func (p *Protocol) Rows() int { return len(p.Simulations) }

// Cols returns the grid column count of the last Init.
func (p *Protocol) Cols() int {
	if len(p.Simulations) == 0 {
		return 0
	}

	return len(p.Simulations[0])
}

// Init rebuilds the simulation grid:
//
//	Stage 1 (Parse):       all conditions specs become 2-D matrices.
//	Stage 2 (Pad):         every matrix is padded to the grid maximum.
//	Stage 3 (Discretize):  per cell, the sample time base, weight vector,
//	                       stimulus vectors (routing "weight"/"mask"),
//	                       and boolean mask are synthesized.
//	Stage 4 (Epochs):      cells are segmented into constant-stimulus
//	                       epochs, linked through the registry.
//	Stage 5 (Windows/RNG): summary windows resolve to sample ranges and
//	                       each cell gets a fresh entropy-seeded RNG.
//
// Fails with ErrConditions on a non-positive sample interval and with
// ErrRefShape on mismatched reference data.
func (p *Protocol) Init(reg *EpochRegistry) error {
	// Stage 1: parse conditions specs
	p.starts = ParseFloatGrid(p.Start)
	p.durations = ParseFloatGrid(p.Duration)
	p.sampleIntervals = ParseFloatGrid(p.SampleInterval)
	p.weights = ParseFloatGrid(p.Weight)
	for _, s := range p.Stimuli {
		if s.Active {
			s.parseConditions()
		}
	}
	for _, s := range p.Summaries {
		if s.Active {
			s.parseConditions()
		}
	}

	// Stage 2: grid limits and padding
	rows, cols := 1, 1
	gridLimits(p.starts, &rows, &cols)
	gridLimits(p.durations, &rows, &cols)
	gridLimits(p.sampleIntervals, &rows, &cols)
	gridLimits(p.weights, &rows, &cols)
	for _, s := range p.Stimuli {
		if s.Active {
			s.limits(&rows, &cols)
		}
	}
	for _, s := range p.Summaries {
		if s.Active {
			s.limits(&rows, &cols)
		}
	}
	p.starts = padGrid(p.starts, rows, cols, 0)
	p.durations = padGrid(p.durations, rows, cols, 0)
	p.sampleIntervals = padGrid(p.sampleIntervals, rows, cols, 0)
	p.weights = padGrid(p.weights, rows, cols, 1)
	for _, s := range p.Stimuli {
		if s.Active {
			s.pad(rows, cols)
		}
	}
	for _, s := range p.Summaries {
		if s.Active {
			s.pad(rows, cols)
		}
	}

	// Stages 3-5 per cell
	p.Simulations = make([][]*Simulation, rows)
	for row := 0; row < rows; row++ {
		p.Simulations[row] = make([]*Simulation, cols)
		for col := 0; col < cols; col++ {
			sim, err := p.initCell(row, col, reg)
			if err != nil {
				return fmt.Errorf("Init: cell (%d,%d): %w", row, col, err)
			}
			p.Simulations[row][col] = sim
		}
	}

	// Reference data shapes
	for _, r := range p.References {
		if !r.Active {
			continue
		}
		if err := r.Validate(p.Simulations); err != nil {
			return fmt.Errorf("Init: %w", err)
		}
	}

	return nil
}

func (p *Protocol) initCell(row, col int, reg *EpochRegistry) (*Simulation, error) {
	dt := p.sampleIntervals[row][col]
	duration := p.durations[row][col]
	if dt <= 0 {
		return nil, fmt.Errorf("sample interval %g: %w", dt, ErrConditions)
	}
	start := p.starts[row][col]
	numSteps := int(math.Floor(duration / dt))
	if numSteps < 0 {
		return nil, fmt.Errorf("duration %g: %w", duration, ErrConditions)
	}
	sim := &Simulation{
		EndTime: start + duration,
		Stimuli: make(map[string][]float64),
	}
	// sample time points: start + k·dt, k = 0..numSteps
	sim.Time = make([]float64, numSteps+1)
	for k := range sim.Time {
		sim.Time[k] = start + float64(k)*dt
	}
	numPts := len(sim.Time)
	// sample weights
	sim.Weight = make([]float64, numPts)
	for i := range sim.Weight {
		sim.Weight[i] = p.weights[row][col]
	}
	// stimulus waveforms, plus weight and mask routing
	maskSum := make([]float64, numPts)
	for _, s := range p.Stimuli {
		if !s.Active {
			continue
		}
		wave := s.waveformAt(sim.Time, row, col)
		switch strings.ToLower(s.Name) {
		case "weight":
			for i := range sim.Weight {
				sim.Weight[i] += wave[i]
			}
		case "mask":
			for i := range maskSum {
				maskSum[i] += wave[i]
			}
		default:
			if existing, ok := sim.Stimuli[s.Name]; ok {
				for i := range existing {
					existing[i] += wave[i]
				}
			} else {
				sim.Stimuli[s.Name] = wave
			}
		}
	}
	// zero = unmasked (true); non-zero = masked out
	sim.Mask = make([]bool, numPts)
	for i, v := range maskSum {
		sim.Mask[i] = v == 0
	}
	// epochs and unique-epoch link-up
	sim.scanEpochs()
	for i := range sim.Epochs {
		sim.Epochs[i].Unique = reg.Lookup(sim.Epochs[i].Stimuli)
	}
	// cell RNG
	sim.seedRNG()
	// summary sample windows
	for _, s := range p.Summaries {
		if s.Active {
			s.resolveWindows(sim.Time, row, col)
		}
	}

	return sim, nil
}

// Cost reduces variable set v to the weighted sum of squared residuals of
// every active reference data set against its named waveform, over
// unmasked samples only.
func (p *Protocol) Cost(v int) (float64, error) {
	total := 0.0
	for _, r := range p.References {
		if !r.Active {
			continue
		}
		for row := range p.Simulations {
			for col := range p.Simulations[row] {
				sim := p.Simulations[row][col]
				ref := r.at(row, col)
				if ref == nil {
					continue
				}
				if len(ref) != sim.NumPts() {
					return 0, fmt.Errorf("Cost: reference %q cell (%d,%d): %w", r.Name, row, col, ErrRefShape)
				}
				if v >= len(sim.Waveforms) {
					continue
				}
				wf, ok := sim.Waveforms[v][r.Waveform]
				if !ok {
					continue
				}
				for k, refVal := range ref {
					if !sim.Mask[k] {
						continue
					}
					d := wf[k] - refVal
					total += sim.Weight[k] * d * d
				}
			}
		}
	}

	return total, nil
}
