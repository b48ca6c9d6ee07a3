package api

import (
	"sync"
	"testing"

	"github.com/cuegrid/cuegrid-core/internal/device"
	"github.com/cuegrid/cuegrid-core/internal/grid"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/config"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/logging"
)

// recordingTelemetry captures telemetry calls for assertions.
type recordingTelemetry struct {
	mu     sync.Mutex
	steps  []int
	scenes []bool
	states []string
}

func (r *recordingTelemetry) RecordStepChange(_ grid.Coord, step int, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *recordingTelemetry) RecordSceneState(_ grid.Coord, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes = append(r.scenes, active)
}

func (r *recordingTelemetry) RecordDeviceState(_ string, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func testEvents(t *testing.T, telemetry Telemetry) *Events {
	t.Helper()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)
	return NewEvents(hub, telemetry)
}

func TestEventsForwardTelemetry(t *testing.T) {
	rec := &recordingTelemetry{}
	events := testEvents(t, rec)

	events.StepChanged(grid.Coord{X: 0, Y: 0}, 2, []grid.Coord{{X: 1, Y: 1}})
	events.SceneActivated(grid.Coord{X: 1, Y: 1})
	events.SceneDeactivated(grid.Coord{X: 1, Y: 1})
	events.DeviceStateChanged(device.TypeClock, device.StateConnected)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.steps) != 1 || rec.steps[0] != 2 {
		t.Errorf("steps = %v, want [2]", rec.steps)
	}
	if len(rec.scenes) != 2 || !rec.scenes[0] || rec.scenes[1] {
		t.Errorf("scenes = %v, want [true false]", rec.scenes)
	}
	if len(rec.states) != 1 || rec.states[0] != string(device.StateConnected) {
		t.Errorf("states = %v, want [connected]", rec.states)
	}
}

func TestEventsNilTelemetry(t *testing.T) {
	events := testEvents(t, nil)

	// Must not panic without a telemetry writer or connected clients.
	events.StepChanged(grid.Coord{X: 0, Y: 0}, 0, nil)
	events.SequenceCompleted(grid.Coord{X: 0, Y: 0})
	events.PlaybackStateChanged(true)
	events.SceneActivated(grid.Coord{X: 2, Y: 2})
	events.DeviceStateChanged(device.TypeLighting, device.StateError)
}
