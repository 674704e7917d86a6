// Package engine: sentinel error set, matched via errors.Is.

package engine

import "errors"

var (
	// ErrCancelled is returned when a run is aborted cooperatively, either
	// through Abort or context cancellation.
	ErrCancelled = errors.New("engine: simulation cancelled")

	// ErrNoProtocols is returned by Init when no protocols are attached.
	ErrNoProtocols = errors.New("engine: no protocols attached")
)
