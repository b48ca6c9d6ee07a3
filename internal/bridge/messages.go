package bridge

import (
	"time"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// MQTT message types exchanged between the controller core and its
// hardware collaborators.

// SceneCommandMessage is sent from the core to the lighting driver to set
// one scene's state.
// Topic: cuegrid/command/lighting/scene
type SceneCommandMessage struct {
	// Scene is the grid coordinate of the scene.
	Scene grid.Coord `json:"scene"`

	// Active is the explicit target state (not a toggle).
	Active bool `json:"active"`

	// Source identifies the publisher ("core").
	Source string `json:"source"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackMessage is sent from the lighting driver when it observes a
// scene state change on its side.
// Topic: cuegrid/feedback/lighting/state
type FeedbackMessage struct {
	// NativeID is the driver's own identifier for the scene. By default
	// this is the "x,y" coordinate string; an explicit mapping can
	// override it.
	NativeID string `json:"native_id"`

	// Active is the observed state.
	Active bool `json:"active"`

	// Timestamp is when the state was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`
}

// ButtonKind distinguishes what a grid button press addresses.
type ButtonKind string

const (
	// ButtonScene is a press on the scene area of the grid.
	ButtonScene ButtonKind = "scene"

	// ButtonSequence is a press on the sequence area of the grid.
	ButtonSequence ButtonKind = "sequence"
)

// ButtonMessage is a grid button press from the controller hardware.
// Topic: cuegrid/input/button
type ButtonMessage struct {
	// Kind is what the button addresses (scene or sequence slot).
	Kind ButtonKind `json:"kind"`

	// Coord is the grid coordinate of the pressed button.
	Coord grid.Coord `json:"coord"`

	// Timestamp is when the press was registered (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`
}

// ClockTickMessage is a beat tick from the external musical clock.
// Topic: cuegrid/clock/beat
//
// Bar ticks (cuegrid/clock/bar) carry no payload; an empty or malformed
// beat payload counts as a single beat.
type ClockTickMessage struct {
	// Beats is how many beats elapsed since the last tick. Zero or
	// negative values are treated as 1.
	Beats int `json:"beats"`
}
