package state

import "errors"

// Sentinel errors for computed-state definitions.
var (
	ErrComputedCycle   = errors.New("computed dependency cycle")
	ErrInvalidComputed = errors.New("invalid computed definition")
)
