package scene

import (
	"sync"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// Logger defines the logging interface used by the Set.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Output is the hardware-facing half of the Set: every activation or
// deactivation the diff algorithm decides on is pushed through it.
// Implementations send an explicit on/off command, never a toggle.
type Output interface {
	SetSceneState(coord grid.Coord, active bool) error
}

// Notifier receives scene state-change signals for collaborators (LED
// feedback, GUI). Implementations must not block; panics are recovered
// and logged.
type Notifier interface {
	SceneActivated(coord grid.Coord)
	SceneDeactivated(coord grid.Coord)
}

// Set is the authoritative record of which scenes are currently lit.
//
// Three overlapping views are tracked:
//
//   - active: every lit scene, whether lit manually or by a sequence
//   - controlled: the subset owned by the current step of the active
//     sequence; always a subset of active
//   - recentlyDeactivated: scenes the sequence just turned off, kept as a
//     guard window so stale "on" feedback from the hardware cannot
//     re-light them
//
// All mutations happen under one mutex. Public methods take the lock once
// and delegate to unexported *Locked helpers, so nothing here ever needs a
// re-entrant lock. The *Locked helpers only mutate state and record the
// decided transitions; hardware writes and notifications are flushed after
// the lock is released, so a slow Output can never stall button input or
// the playback worker.
type Set struct {
	mu sync.Mutex

	active              map[grid.Coord]struct{}
	controlled          map[grid.Coord]struct{}
	recentlyDeactivated map[grid.Coord]struct{}

	output   Output
	notifier Notifier
	logger   Logger
}

// NewSet creates a scene set writing through the given output.
// A nil output is allowed; state is then tracked without hardware writes.
func NewSet(output Output) *Set {
	return &Set{
		active:              make(map[grid.Coord]struct{}),
		controlled:          make(map[grid.Coord]struct{}),
		recentlyDeactivated: make(map[grid.Coord]struct{}),
		output:              output,
		logger:              noopLogger{},
	}
}

// SetLogger sets the logger for the set.
func (s *Set) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// SetNotifier sets the observer for scene state-change signals.
func (s *Set) SetNotifier(notifier Notifier) {
	s.mu.Lock()
	s.notifier = notifier
	s.mu.Unlock()
}

// ActivateScenes drives the lit set towards target.
//
// Scenes in target that are not yet active are turned on. When controlled
// is true, scenes the sequence currently owns but that are absent from
// target are turned off first; manually-lit scenes outside the controlled
// set are left alone, and the scenes just turned off enter the guard
// window. When controlled is false the call is a direct manual operation:
// nothing is turned off, and the guard window is cleared because manual
// state is authoritative with no pending reconciliation.
func (s *Set) ActivateScenes(target []grid.Coord, controlled bool) {
	var changes []change
	s.mu.Lock()

	targetSet := make(map[grid.Coord]struct{}, len(target))
	for _, c := range target {
		targetSet[c] = struct{}{}
	}

	if controlled {
		// Offs first: controlled \ target.
		deactivated := make(map[grid.Coord]struct{})
		for c := range s.controlled {
			if _, keep := targetSet[c]; !keep {
				s.deactivateLocked(c, &changes)
				deactivated[c] = struct{}{}
			}
		}
		s.recentlyDeactivated = deactivated
	} else {
		s.recentlyDeactivated = make(map[grid.Coord]struct{})
	}

	// Ons: target \ active.
	for _, c := range target {
		if _, lit := s.active[c]; !lit {
			s.activateLocked(c, &changes)
		}
	}

	if controlled {
		s.controlled = targetSet
	}

	s.mu.Unlock()
	s.flush(changes)
}

// ToggleScene flips a single scene's membership as a manual, uncontrolled
// operation and returns the resulting state (true = now active).
// A toggled scene leaves the controlled set: the operator has taken it over.
func (s *Set) ToggleScene(coord grid.Coord) bool {
	var changes []change
	s.mu.Lock()

	_, lit := s.active[coord]
	if lit {
		s.deactivateLocked(coord, &changes)
		delete(s.controlled, coord)
		delete(s.recentlyDeactivated, coord)
	} else {
		s.activateLocked(coord, &changes)
		delete(s.recentlyDeactivated, coord)
	}

	s.mu.Unlock()
	s.flush(changes)
	return !lit
}

// ClearAll deactivates every active scene and empties all three sets.
func (s *Set) ClearAll() {
	var changes []change
	s.mu.Lock()

	for c := range s.active {
		s.deactivateLocked(c, &changes)
	}
	s.controlled = make(map[grid.Coord]struct{})
	s.recentlyDeactivated = make(map[grid.Coord]struct{})

	s.mu.Unlock()
	s.flush(changes)
}

// ClearControlled deactivates only the scenes owned by the sequence,
// leaving manually-lit scenes alone. Used when a sequence stops but the
// operator's manual scenes should remain.
func (s *Set) ClearControlled() {
	var changes []change
	s.mu.Lock()

	deactivated := make(map[grid.Coord]struct{}, len(s.controlled))
	for c := range s.controlled {
		s.deactivateLocked(c, &changes)
		deactivated[c] = struct{}{}
	}
	s.controlled = make(map[grid.Coord]struct{})
	s.recentlyDeactivated = deactivated

	s.mu.Unlock()
	s.flush(changes)
}

// MarkSceneActive reconciles hardware feedback into the state without
// issuing any hardware write or notification. The feedback path must
// consult Guarded before re-lighting a scene.
func (s *Set) MarkSceneActive(coord grid.Coord, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active {
		s.active[coord] = struct{}{}
		return
	}
	delete(s.active, coord)
	delete(s.controlled, coord)
}

// GuardScenes returns ControlledScenes ∪ RecentlyDeactivated: the scenes
// for which the sequence, not the hardware, is authoritative. Stale "on"
// feedback for these must be ignored; "off" corrections are honoured.
func (s *Set) GuardScenes() []grid.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()

	guard := make([]grid.Coord, 0, len(s.controlled)+len(s.recentlyDeactivated))
	seen := make(map[grid.Coord]struct{}, len(s.controlled))
	for c := range s.controlled {
		guard = append(guard, c)
		seen[c] = struct{}{}
	}
	for c := range s.recentlyDeactivated {
		if _, dup := seen[c]; !dup {
			guard = append(guard, c)
		}
	}
	grid.SortCoords(guard)
	return guard
}

// Guarded reports whether a scene is inside the guard window.
func (s *Set) Guarded(coord grid.Coord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controlled[coord]; ok {
		return true
	}
	_, ok := s.recentlyDeactivated[coord]
	return ok
}

// ActiveScenes returns a sorted snapshot of the currently lit scenes.
func (s *Set) ActiveScenes() []grid.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenes := make([]grid.Coord, 0, len(s.active))
	for c := range s.active {
		scenes = append(scenes, c)
	}
	grid.SortCoords(scenes)
	return scenes
}

// IsActive reports whether a scene is currently lit.
func (s *Set) IsActive(coord grid.Coord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[coord]
	return ok
}

// change is one decided on/off transition, recorded under the lock and
// flushed to the output and notifier after the lock is released.
type change struct {
	coord  grid.Coord
	active bool
}

// activateLocked turns a scene on. Caller holds s.mu.
func (s *Set) activateLocked(coord grid.Coord, changes *[]change) {
	s.active[coord] = struct{}{}
	*changes = append(*changes, change{coord: coord, active: true})
}

// deactivateLocked turns a scene off. Caller holds s.mu.
func (s *Set) deactivateLocked(coord grid.Coord, changes *[]change) {
	delete(s.active, coord)
	*changes = append(*changes, change{coord: coord, active: false})
}

// flush issues the hardware writes and notifications for the recorded
// transitions, in order. Caller must have released s.mu: the output may
// block (the MQTT bridge waits on the publish ack) and must never hold up
// other scene operations.
func (s *Set) flush(changes []change) {
	if len(changes) == 0 {
		return
	}
	s.mu.Lock()
	output := s.output
	notifier := s.notifier
	logger := s.logger
	s.mu.Unlock()

	for _, ch := range changes {
		write(output, logger, ch.coord, ch.active)
		notify(notifier, logger, ch.coord, ch.active)
	}
}

// write pushes a state change to the hardware output.
// Output errors degrade to a log line; scene state stays authoritative here.
func write(output Output, logger Logger, coord grid.Coord, active bool) {
	if output == nil {
		return
	}
	if err := output.SetSceneState(coord, active); err != nil {
		logger.Warn("scene output write failed",
			"scene", coord.String(),
			"active", active,
			"error", err,
		)
	}
}

// notify emits a scene state-change signal with panic isolation.
func notify(notifier Notifier, logger Logger, coord grid.Coord, active bool) {
	if notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scene notifier panic recovered",
				"scene", coord.String(),
				"panic", r,
			)
		}
	}()
	if active {
		notifier.SceneActivated(coord)
	} else {
		notifier.SceneDeactivated(coord)
	}
}
