// Package protocol turns stimulus-clamp protocols into simulation-ready
// cells: a rows×cols conditions grid of Simulations, each discretized to
// sample points and segmented into constant-stimulus epochs.
//
// Scalar protocol properties (start, duration, sample interval, weight,
// every Stimulus property, summary windows) are conditions specs: 2-D
// matrices written as ';'-separated rows of ','/whitespace-separated
// columns with a:b and a:b:c range shorthand. The effective grid size is
// the maximum over all specs; smaller matrices are padded by repeating
// their last element along each axis.
//
// Every epoch is keyed by its stimulus tuple and deduplicated through a
// process-wide EpochRegistry, so the expensive per-Q work (assembly,
// eigen decomposition, dwell distributions) happens once per distinct
// stimulus combination, no matter how many cells share it.
//
// Stimuli named "weight" and "mask" are special: they add into the cell's
// weight vector and zero/non-zero mask instead of becoming named stimulus
// sample vectors.
//
// Errors:
//
//	ErrConditions - non-positive sample interval or empty time base.
//	ErrRefShape   - reference data does not match the cell sample count.
package protocol
