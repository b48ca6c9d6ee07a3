package scene

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// mockOutput records every hardware write in order.
type mockOutput struct {
	mu     sync.Mutex
	writes []sceneWrite
	failOn *grid.Coord
}

type sceneWrite struct {
	Coord  grid.Coord
	Active bool
}

func (m *mockOutput) SetSceneState(coord grid.Coord, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil && *m.failOn == coord {
		return errors.New("hardware write failed")
	}
	m.writes = append(m.writes, sceneWrite{Coord: coord, Active: active})
	return nil
}

func (m *mockOutput) getWrites() []sceneWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]sceneWrite, len(m.writes))
	copy(cpy, m.writes)
	return cpy
}

func (m *mockOutput) reset() {
	m.mu.Lock()
	m.writes = nil
	m.mu.Unlock()
}

func coords(pairs ...[2]int) []grid.Coord {
	out := make([]grid.Coord, len(pairs))
	for i, p := range pairs {
		out[i] = grid.Coord{X: p[0], Y: p[1]}
	}
	return out
}

func TestActivateScenesDiff(t *testing.T) {
	out := &mockOutput{}
	set := NewSet(out)

	// A = {(0,0), (1,1), (2,2)}
	set.ActivateScenes(coords([2]int{0, 0}, [2]int{1, 1}, [2]int{2, 2}), true)
	if got := len(out.getWrites()); got != 3 {
		t.Fatalf("initial activation issued %d writes, want 3", got)
	}
	out.reset()

	// B = {(1,1), (3,3)}: expect off for (0,0),(2,2), on for (3,3), nothing for (1,1).
	set.ActivateScenes(coords([2]int{1, 1}, [2]int{3, 3}), true)

	var ons, offs []grid.Coord
	for _, w := range out.getWrites() {
		if w.Active {
			ons = append(ons, w.Coord)
		} else {
			offs = append(offs, w.Coord)
		}
	}
	if len(offs) != 2 {
		t.Errorf("deactivated %v, want exactly A\\B (2 scenes)", offs)
	}
	if len(ons) != 1 || ons[0] != (grid.Coord{X: 3, Y: 3}) {
		t.Errorf("activated %v, want exactly B\\A = [(3,3)]", ons)
	}

	// Offs are applied before ons.
	writes := out.getWrites()
	for i, w := range writes {
		if !w.Active {
			continue
		}
		for _, later := range writes[i:] {
			if !later.Active {
				t.Errorf("off write after on write: %v", writes)
			}
		}
	}
}

func TestActivateScenesLeavesManualScenesAlone(t *testing.T) {
	out := &mockOutput{}
	set := NewSet(out)

	manual := grid.Coord{X: 8, Y: 8}
	set.ToggleScene(manual)
	out.reset()

	set.ActivateScenes(coords([2]int{0, 0}), true)
	set.ActivateScenes(coords([2]int{1, 1}), true)

	if !set.IsActive(manual) {
		t.Error("manually-lit scene was deactivated by controlled activation")
	}
	for _, w := range out.getWrites() {
		if w.Coord == manual {
			t.Errorf("controlled activation wrote to manual scene: %v", w)
		}
	}
}

func TestUncontrolledActivationClearsGuard(t *testing.T) {
	set := NewSet(nil)

	set.ActivateScenes(coords([2]int{0, 0}), true)
	set.ActivateScenes(coords([2]int{1, 1}), true) // (0,0) now guarded
	if !set.Guarded(grid.Coord{X: 0, Y: 0}) {
		t.Fatal("expected (0,0) in guard window after sequence retraction")
	}

	set.ActivateScenes(coords([2]int{5, 5}), false)
	if set.Guarded(grid.Coord{X: 0, Y: 0}) {
		t.Error("manual activation should clear the guard window")
	}
}

func TestToggleSceneTwiceRestoresMembership(t *testing.T) {
	set := NewSet(&mockOutput{})
	c := grid.Coord{X: 4, Y: 2}

	if got := set.ToggleScene(c); !got {
		t.Error("first toggle should activate")
	}
	if got := set.ToggleScene(c); got {
		t.Error("second toggle should deactivate")
	}
	if set.IsActive(c) {
		t.Error("scene active after double toggle")
	}
}

func TestClearControlledLeavesManual(t *testing.T) {
	out := &mockOutput{}
	set := NewSet(out)

	manual := grid.Coord{X: 7, Y: 7}
	set.ToggleScene(manual)
	set.ActivateScenes(coords([2]int{0, 0}, [2]int{1, 0}), true)

	set.ClearControlled()

	if !set.IsActive(manual) {
		t.Error("manual scene cleared by ClearControlled")
	}
	if set.IsActive(grid.Coord{X: 0, Y: 0}) || set.IsActive(grid.Coord{X: 1, Y: 0}) {
		t.Error("controlled scenes still active after ClearControlled")
	}
	// Retracted scenes stay guarded against stale "on" feedback.
	if !set.Guarded(grid.Coord{X: 0, Y: 0}) {
		t.Error("retracted scene not in guard window")
	}
}

func TestClearAll(t *testing.T) {
	set := NewSet(&mockOutput{})
	set.ToggleScene(grid.Coord{X: 1, Y: 1})
	set.ActivateScenes(coords([2]int{2, 2}), true)

	set.ClearAll()

	if got := set.ActiveScenes(); len(got) != 0 {
		t.Errorf("active scenes after ClearAll: %v", got)
	}
	if got := set.GuardScenes(); len(got) != 0 {
		t.Errorf("guard scenes after ClearAll: %v", got)
	}
}

func TestMarkSceneActiveIsStateOnly(t *testing.T) {
	out := &mockOutput{}
	set := NewSet(out)

	set.MarkSceneActive(grid.Coord{X: 3, Y: 3}, true)
	if !set.IsActive(grid.Coord{X: 3, Y: 3}) {
		t.Error("MarkSceneActive(true) did not record state")
	}
	if len(out.getWrites()) != 0 {
		t.Error("MarkSceneActive issued a hardware write")
	}

	set.MarkSceneActive(grid.Coord{X: 3, Y: 3}, false)
	if set.IsActive(grid.Coord{X: 3, Y: 3}) {
		t.Error("MarkSceneActive(false) did not clear state")
	}
}

func TestGuardScenesUnion(t *testing.T) {
	set := NewSet(nil)

	set.ActivateScenes(coords([2]int{0, 0}, [2]int{1, 1}), true)
	set.ActivateScenes(coords([2]int{1, 1}, [2]int{2, 2}), true)

	// Controlled = {(1,1),(2,2)}, recently deactivated = {(0,0)}.
	guard := set.GuardScenes()
	want := coords([2]int{0, 0}, [2]int{1, 1}, [2]int{2, 2})
	grid.SortCoords(want)
	if len(guard) != len(want) {
		t.Fatalf("guard = %v, want %v", guard, want)
	}
	for i := range want {
		if guard[i] != want[i] {
			t.Fatalf("guard = %v, want %v", guard, want)
		}
	}
}

func TestOutputErrorDoesNotPoisonState(t *testing.T) {
	bad := grid.Coord{X: 6, Y: 6}
	out := &mockOutput{failOn: &bad}
	set := NewSet(out)

	set.ActivateScenes(coords([2]int{6, 6}), true)

	// The write failed but the set still considers the scene lit; the
	// hardware will be reconciled via feedback or the next diff.
	if !set.IsActive(bad) {
		t.Error("output error dropped scene from active set")
	}
}

type panickyNotifier struct{}

func (panickyNotifier) SceneActivated(grid.Coord)   { panic("boom") }
func (panickyNotifier) SceneDeactivated(grid.Coord) { panic("boom") }

func TestNotifierPanicIsIsolated(t *testing.T) {
	set := NewSet(nil)
	set.SetNotifier(panickyNotifier{})

	// Must not panic.
	set.ToggleScene(grid.Coord{X: 0, Y: 0})
	set.ToggleScene(grid.Coord{X: 0, Y: 0})
}

// gatedOutput blocks writes for one coordinate until the gate channel is
// closed; all other writes pass straight through.
type gatedOutput struct {
	slow    grid.Coord
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedOutput) SetSceneState(coord grid.Coord, _ bool) error {
	if coord != g.slow {
		return nil
	}
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	return nil
}

func TestSlowOutputDoesNotStallOtherOperations(t *testing.T) {
	out := &gatedOutput{
		slow:    grid.Coord{X: 1, Y: 1},
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	set := NewSet(out)

	// A sequence activation stuck inside the output write.
	go set.ActivateScenes(coords([2]int{1, 1}), true)
	<-out.entered

	// Button input must go through while that write is still in flight.
	done := make(chan bool, 1)
	go func() {
		done <- set.ToggleScene(grid.Coord{X: 5, Y: 5})
	}()

	select {
	case active := <-done:
		if !active {
			t.Error("ToggleScene on an unlit scene returned false")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("ToggleScene blocked behind an in-flight output write")
	}

	close(out.gate)
}
