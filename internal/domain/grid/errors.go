package grid

import "errors"

var (
	// ErrInvalidConfiguration covers non-positive dimensions, unknown topologies,
	// out-of-range probabilities and empty threshold sets.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrOutOfRange is returned by queries with coordinates outside the grid.
	ErrOutOfRange = errors.New("coordinates out of range")
)
