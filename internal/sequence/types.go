package sequence

import (
	"fmt"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// Index identifies one sequence slot on the controller grid.
type Index = grid.Coord

// DurationUnit selects how a step's duration is measured.
type DurationUnit string

const (
	// UnitSeconds paces the step against wall-clock time.
	UnitSeconds DurationUnit = "seconds"

	// UnitBars paces the step against externally-supplied beat ticks.
	UnitBars DurationUnit = "bars"
)

// Step is one ordered, timed element of a sequence.
type Step struct {
	// Scenes is the scene set this step lights.
	Scenes []grid.Coord `json:"scenes"`

	// Duration is how long the step holds, in Unit units. Must be positive.
	Duration float64 `json:"duration"`

	// Name is an optional display label for the step.
	Name string `json:"name,omitempty"`

	// Unit is the duration unit; defaults to seconds when absent.
	Unit DurationUnit `json:"duration_unit,omitempty"`
}

// Sequence is a non-empty ordered list of steps stored under a grid slot.
type Sequence struct {
	Index Index  `json:"index"`
	Steps []Step `json:"steps"`

	// Loop restarts the sequence at step 0 after the last step.
	Loop bool `json:"loop"`

	// LoopCount bounds looping to a finite number of extra passes.
	// Nil means infinite when Loop is set.
	LoopCount *int `json:"loop_count,omitempty"`

	// NextSequences are follow-up slots chained to when a non-looping
	// sequence completes. Chaining is deterministic: only the first entry
	// is followed; the rest are persisted for forward compatibility.
	NextSequences []Index `json:"next_sequences,omitempty"`
}

// PlaybackState is the user's play/pause intent. It is independent of
// whether any sequence is active and survives sequence switches.
type PlaybackState string

const (
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// Validate checks a sequence for structural problems.
func (s *Sequence) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptySequence
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	if s.LoopCount != nil && *s.LoopCount < 0 {
		return fmt.Errorf("%w: negative loop count", ErrInvalidStep)
	}
	return nil
}

// Validate checks a single step.
func (s *Step) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidStep)
	}
	switch s.Unit {
	case UnitSeconds, UnitBars, "":
	default:
		return fmt.Errorf("%w: unknown duration unit %q", ErrInvalidStep, s.Unit)
	}
	return nil
}

// EffectiveUnit returns the step's unit with the seconds default applied.
func (s *Step) EffectiveUnit() DurationUnit {
	if s.Unit == "" {
		return UnitSeconds
	}
	return s.Unit
}

// Clone returns a deep copy so a running snapshot cannot be mutated by a
// concurrent save.
func (s *Sequence) Clone() *Sequence {
	cpy := *s
	cpy.Steps = make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		cpy.Steps[i] = step
		cpy.Steps[i].Scenes = append([]grid.Coord(nil), step.Scenes...)
	}
	cpy.NextSequences = append([]Index(nil), s.NextSequences...)
	if s.LoopCount != nil {
		n := *s.LoopCount
		cpy.LoopCount = &n
	}
	return &cpy
}
