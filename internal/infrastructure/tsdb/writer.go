// Package tsdb records CueGrid playback and state telemetry as time-series
// points.
//
// It sits between the event fan-out and the InfluxDB client: domain events
// come in, tagged measurement points go out. All writes are non-blocking
// and batched by the underlying client, so recording from the player's
// worker or a notification path is safe.
package tsdb

import (
	"time"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// PointWriter is the write surface the recorder needs.
// Satisfied by *influxdb.Client.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// Measurement names.
const (
	measurementPlaybackStep = "playback_step"
	measurementPlaybackRun  = "playback_run"
	measurementSceneState   = "scene_state"
	measurementDeviceState  = "device_state"
)

// Writer records domain events as time-series points.
//
// A nil Writer is valid and discards everything, so callers never need to
// check whether telemetry is enabled.
type Writer struct {
	points PointWriter
}

// NewWriter creates a recorder over the given point writer.
// Returns nil when points is nil; a nil Writer discards all records.
func NewWriter(points PointWriter) *Writer {
	if points == nil {
		return nil
	}
	return &Writer{points: points}
}

// RecordStepChange records one playback step transition.
func (w *Writer) RecordStepChange(index grid.Coord, step int, sceneCount int) {
	if w == nil {
		return
	}
	w.points.WritePoint(measurementPlaybackStep,
		map[string]string{"sequence": index.String()},
		map[string]interface{}{
			"step":        step,
			"scene_count": sceneCount,
		},
	)
}

// RecordPlaybackRun records a finished playback run.
func (w *Writer) RecordPlaybackRun(index grid.Coord, status string, stepsAdvanced int, duration time.Duration) {
	if w == nil {
		return
	}
	w.points.WritePoint(measurementPlaybackRun,
		map[string]string{
			"sequence": index.String(),
			"status":   status,
		},
		map[string]interface{}{
			"steps_advanced": stepsAdvanced,
			"duration_s":     duration.Seconds(),
		},
	)
}

// RecordSceneState records a scene turning on or off.
func (w *Writer) RecordSceneState(coord grid.Coord, active bool) {
	if w == nil {
		return
	}
	value := 0.0
	if active {
		value = 1.0
	}
	w.points.WritePoint(measurementSceneState,
		map[string]string{"scene": coord.String()},
		map[string]interface{}{"active": value},
	)
}

// RecordDeviceState records a device connection state transition.
// States are encoded as a numeric level so dashboards can graph them:
// connected=2, connecting=1, disconnected=0, error=-1.
func (w *Writer) RecordDeviceState(deviceType string, state string) {
	if w == nil {
		return
	}
	w.points.WritePoint(measurementDeviceState,
		map[string]string{"device": deviceType},
		map[string]interface{}{
			"state": state,
			"level": stateLevel(state),
		},
	)
}

func stateLevel(state string) int {
	switch state {
	case "connected":
		return 2
	case "connecting":
		return 1
	case "error":
		return -1
	default:
		return 0
	}
}
