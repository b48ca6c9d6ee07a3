package tsdb

import (
	"sync"
	"testing"
	"time"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// recordedPoint captures one WritePoint call.
type recordedPoint struct {
	measurement string
	tags        map[string]string
	fields      map[string]interface{}
}

// fakePointWriter records points for assertions.
type fakePointWriter struct {
	mu     sync.Mutex
	points []recordedPoint
}

func (f *fakePointWriter) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, recordedPoint{measurement, tags, fields})
}

func (f *fakePointWriter) last(t *testing.T) recordedPoint {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.points) == 0 {
		t.Fatal("no points recorded")
	}
	return f.points[len(f.points)-1]
}

func TestNilWriterDiscards(t *testing.T) {
	var w *Writer

	// None of these may panic.
	w.RecordStepChange(grid.Coord{X: 0, Y: 0}, 1, 2)
	w.RecordPlaybackRun(grid.Coord{X: 0, Y: 0}, "completed", 5, time.Minute)
	w.RecordSceneState(grid.Coord{X: 1, Y: 1}, true)
	w.RecordDeviceState("lighting", "connected")
}

func TestNewWriterNilPoints(t *testing.T) {
	if w := NewWriter(nil); w != nil {
		t.Error("NewWriter(nil) should return nil")
	}
}

func TestRecordStepChange(t *testing.T) {
	sink := &fakePointWriter{}
	w := NewWriter(sink)

	w.RecordStepChange(grid.Coord{X: 2, Y: 3}, 4, 2)

	p := sink.last(t)
	if p.measurement != "playback_step" {
		t.Errorf("measurement = %q, want playback_step", p.measurement)
	}
	if p.tags["sequence"] != "2,3" {
		t.Errorf("sequence tag = %q, want 2,3", p.tags["sequence"])
	}
	if p.fields["step"] != 4 {
		t.Errorf("step field = %v, want 4", p.fields["step"])
	}
	if p.fields["scene_count"] != 2 {
		t.Errorf("scene_count field = %v, want 2", p.fields["scene_count"])
	}
}

func TestRecordPlaybackRun(t *testing.T) {
	sink := &fakePointWriter{}
	w := NewWriter(sink)

	w.RecordPlaybackRun(grid.Coord{X: 0, Y: 1}, "stopped", 7, 90*time.Second)

	p := sink.last(t)
	if p.measurement != "playback_run" {
		t.Errorf("measurement = %q, want playback_run", p.measurement)
	}
	if p.tags["status"] != "stopped" {
		t.Errorf("status tag = %q, want stopped", p.tags["status"])
	}
	if p.fields["steps_advanced"] != 7 {
		t.Errorf("steps_advanced = %v, want 7", p.fields["steps_advanced"])
	}
	if p.fields["duration_s"] != 90.0 {
		t.Errorf("duration_s = %v, want 90", p.fields["duration_s"])
	}
}

func TestRecordSceneState(t *testing.T) {
	sink := &fakePointWriter{}
	w := NewWriter(sink)

	w.RecordSceneState(grid.Coord{X: 5, Y: 0}, true)
	if p := sink.last(t); p.fields["active"] != 1.0 {
		t.Errorf("active = %v, want 1", p.fields["active"])
	}

	w.RecordSceneState(grid.Coord{X: 5, Y: 0}, false)
	if p := sink.last(t); p.fields["active"] != 0.0 {
		t.Errorf("active = %v, want 0", p.fields["active"])
	}
}

func TestRecordDeviceStateLevels(t *testing.T) {
	sink := &fakePointWriter{}
	w := NewWriter(sink)

	tests := []struct {
		state string
		level int
	}{
		{"connected", 2},
		{"connecting", 1},
		{"disconnected", 0},
		{"error", -1},
	}

	for _, tt := range tests {
		w.RecordDeviceState("clock", tt.state)
		p := sink.last(t)
		if p.fields["level"] != tt.level {
			t.Errorf("level for %s = %v, want %d", tt.state, p.fields["level"], tt.level)
		}
		if p.tags["device"] != "clock" {
			t.Errorf("device tag = %q, want clock", p.tags["device"])
		}
	}
}
