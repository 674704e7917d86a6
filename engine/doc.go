// Package engine coordinates a full simulation run: it owns the
// unique-epoch registry, sequences the per-variable-set phases, fans the
// expensive work out over a bounded worker pool, and fills the derived
// waveforms and summaries.
//
// Execution per Simulate invocation:
//
//	Init once;
//	for v = 0 .. numVariableSets-1:
//	    per unique epoch (sequential): eval variables, assemble P0, Q,
//	        charges, attributes, charge currents
//	    parallel: spectral decomposition OR dwell-rate preparation
//	    join
//	    parallel: propagate every simulation cell of every protocol
//	    join
//	    serial: state-group/user waveforms and windowed summaries
//
// Cells are independent and unique epochs are shared, so the two fork/join
// barriers are the only synchronization. Cancellation is cooperative: an
// atomic flag checked at every parallel task entry and inside kernel inner
// loops; an aborted run keeps all output slices already written for
// earlier variable-set indices.
package engine
