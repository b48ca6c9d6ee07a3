package sequence

import "errors"

// Sentinel errors returned by the store and player.
var (
	// ErrEmptySequence is returned when saving a sequence with no steps.
	ErrEmptySequence = errors.New("sequence: must contain at least one step")

	// ErrInvalidStep is returned for malformed step data.
	ErrInvalidStep = errors.New("sequence: invalid step")

	// ErrNotFound is returned when a sequence slot has nothing saved.
	ErrNotFound = errors.New("sequence: not found")
)
