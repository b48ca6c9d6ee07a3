package api

import (
	"github.com/cuegrid/cuegrid-core/internal/device"
	"github.com/cuegrid/cuegrid-core/internal/grid"
	"github.com/cuegrid/cuegrid-core/internal/sequence"
)

// Telemetry receives playback and state events for time-series recording.
// Satisfied by *tsdb.Writer. A nil Telemetry disables recording.
type Telemetry interface {
	RecordStepChange(index grid.Coord, step int, sceneCount int)
	RecordSceneState(coord grid.Coord, active bool)
	RecordDeviceState(deviceType string, state string)
}

// Events fans player, scene set, and device registry signals out to the
// WebSocket hub and, when configured, the time-series writer.
//
// It implements sequence.Notifier and scene.Notifier; DeviceStateChanged
// is registered on the registry as a device.Listener. Callers must not
// block in these methods, so everything here is a non-blocking hub send.
type Events struct {
	hub       *Hub
	telemetry Telemetry
}

// NewEvents creates the event fan-out over the given hub.
func NewEvents(hub *Hub, telemetry Telemetry) *Events {
	return &Events{hub: hub, telemetry: telemetry}
}

// StepChanged broadcasts a playback step transition.
func (e *Events) StepChanged(index sequence.Index, step int, scenes []grid.Coord) {
	e.hub.Broadcast(ChannelPlaybackStep, map[string]any{
		"index":  index,
		"step":   step,
		"scenes": scenes,
	})
	if e.telemetry != nil {
		e.telemetry.RecordStepChange(index, step, len(scenes))
	}
}

// SequenceCompleted broadcasts natural completion of a non-looping sequence.
func (e *Events) SequenceCompleted(index sequence.Index) {
	e.hub.Broadcast(ChannelPlaybackCompleted, map[string]any{
		"index": index,
	})
}

// PlaybackStateChanged broadcasts a play/pause transition.
func (e *Events) PlaybackStateChanged(playing bool) {
	e.hub.Broadcast(ChannelPlaybackState, map[string]any{
		"playing": playing,
	})
}

// SceneActivated broadcasts a scene turning on.
func (e *Events) SceneActivated(coord grid.Coord) {
	e.sceneState(coord, true)
}

// SceneDeactivated broadcasts a scene turning off.
func (e *Events) SceneDeactivated(coord grid.Coord) {
	e.sceneState(coord, false)
}

func (e *Events) sceneState(coord grid.Coord, active bool) {
	e.hub.Broadcast(ChannelSceneState, map[string]any{
		"scene":  coord,
		"active": active,
	})
	if e.telemetry != nil {
		e.telemetry.RecordSceneState(coord, active)
	}
}

// DeviceStateChanged broadcasts a device state transition. Register it with
// Registry.AddListener.
func (e *Events) DeviceStateChanged(deviceType device.Type, state device.State) {
	e.hub.Broadcast(ChannelDeviceState, map[string]any{
		"device": deviceType,
		"state":  state,
	})
	if e.telemetry != nil {
		e.telemetry.RecordDeviceState(string(deviceType), string(state))
	}
}
