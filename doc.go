// Package kinetiq is a simulation core for continuous-time, discrete-state
// Markov kinetic models driven by piecewise-constant external stimuli.
//
// 🚀 What is kinetiq?
//
//	An embeddable, concurrent engine that turns a declarative kinetic model
//	(states/transitions, or binary elements with interactions) plus stimulus
//	protocols into occupancy-probability time courses and Monte Carlo sample
//	paths:
//		• Expression language: scalar & element-wise arithmetic over named
//		  parameters and sample vectors
//		• Model compiler: starting probabilities, sparse rate generator Q,
//		  transition charges, per-state attributes
//		• Epoch engine: protocols discretized into constant-stimulus epochs,
//		  deduplicated across a rows×cols conditions grid
//		• Two kernels: spectral (eigen-expansion) propagation and a
//		  Gillespie-style event-chain sampler
//		• Derived pass: state-group and user-expression waveforms, windowed
//		  scalar summaries with optional normalization
//
// ✨ Why kinetiq?
//
//   - Deterministic phase ordering – assemble → decompose → propagate →
//     reduce, with explicit fork/join barriers per variable set
//   - Cooperative cancellation – a single atomic flag checked inside every
//     long-running kernel loop
//   - Per-cell Mersenne-Twister streams – reproducible within a run,
//     independent across cells
//
// Everything is organized under flat subpackages:
//
//	expr/       — lexer, Pratt parser & broadcasting evaluator
//	matrix/     — dense & sparse matrices (+ ops: LU, inverse, QR, eigen)
//	model/      — entities, index builder, variable sets, matrix assembly
//	protocol/   — conditions grids, stimuli, simulations, epochs, summaries
//	spectral/   — eigen-expansion propagation across epochs
//	montecarlo/ — event-chain sampling & chain→probability reconstruction
//	engine/     — the concurrency coordinator and public run surface
//	export/     — .dwt event-chain and tab-separated curve exports
//	project/    — persisted JSON project trees
//
// Dive into DESIGN.md for the grounding ledger and the decisions behind the
// open questions.
package kinetiq
