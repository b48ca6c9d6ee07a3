package sequence

import (
	"sync"
	"time"

	"github.com/cuegrid/cuegrid-core/internal/grid"
)

// SceneActivator is the interface the player needs from the scene set.
type SceneActivator interface {
	// ActivateScenes diffs the lit set towards target. The player always
	// passes controlled=true; manual scenes are not its business.
	ActivateScenes(target []grid.Coord, controlled bool)

	// ClearControlled retracts only the scenes the sequence owns.
	ClearControlled()
}

// Notifier receives playback signals for collaborators (GUI, LED feedback).
// Implementations must not block; panics are recovered and logged and never
// terminate the worker.
type Notifier interface {
	StepChanged(index Index, step int, scenes []grid.Coord)
	SequenceCompleted(index Index)
	PlaybackStateChanged(playing bool)
}

// HistoryRecorder persists playback activations. Recording is best-effort:
// implementations log their own failures and never block playback.
type HistoryRecorder interface {
	// PlaybackStarted opens a history record and returns its ID.
	PlaybackStarted(index Index, source string) string

	// PlaybackEnded closes a record with a final status
	// ("completed", "stopped" or "superseded") and the advance count.
	PlaybackEnded(id string, status string, stepsAdvanced int)
}

// Config contains player timing settings.
type Config struct {
	// BeatsPerBar is how many beat ticks make up one bar.
	BeatsPerBar int

	// JoinTimeout bounds how long a stop waits for the worker to exit.
	JoinTimeout time.Duration
}

// Wait re-check intervals. Waits never block unbounded: both kinds wake at
// least this often to observe stop, pause and manual-advance changes.
const (
	secondsWaitSlice = 100 * time.Millisecond
	barWaitSlice     = 250 * time.Millisecond
)

// waitResult is the outcome of a step wait.
type waitResult int

const (
	waitElapsed waitResult = iota
	waitStopped
	waitSuperseded
)

// playback is the mutable state of one sequence activation. A new playback
// is created on every ActivateSequence; the worker goroutine holds a
// reference and all shared fields are guarded by the player mutex.
type playback struct {
	seq *Sequence

	step          int
	loopsLeft     int // -1 = infinite, otherwise remaining extra passes
	gen           int // bumped by NextStep to supersede an in-flight wait
	stepsAdvanced int

	wait *barWait // outstanding bar wait, nil otherwise

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{} // non-nil once a worker was started
	running  bool          // worker goroutine alive

	historyID string
}

// barWait accumulates externally-supplied beat credit for one BARS-unit
// step. A fresh barWait per wait means credit is never banked across step
// boundaries.
type barWait struct {
	needed int
	credit int
	wake   chan struct{} // buffered 1, nudges the worker on new credit
}

// Player advances through the active sequence's timed steps on a single
// background worker, driving the scene set.
//
// At most one worker goroutine is alive at a time; liveness is checked
// under the mutex before spawning. PLAYING/PAUSED is independent of
// whether a sequence is active and survives sequence switches. No lock is
// ever held across a blocking wait.
type Player struct {
	store  *Store
	scenes SceneActivator

	beatsPerBar int
	joinTimeout time.Duration

	// activateMu serialises whole activations and stops (stop worker, emit
	// step 0, start worker) against each other, so a chain-triggered
	// activation and a button press cannot interleave. It is never held
	// across a blocking wait inside the worker; p.mu stays fine-grained
	// and off the worker join.
	activateMu sync.Mutex

	mu     sync.Mutex
	state  PlaybackState
	active *playback

	notifier Notifier
	history  HistoryRecorder
	logger   Logger
}

// NewPlayer creates a player over the given store and scene set.
func NewPlayer(store *Store, scenes SceneActivator, cfg Config, logger Logger) *Player {
	if cfg.BeatsPerBar < 1 {
		cfg.BeatsPerBar = 4
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Player{
		store:       store,
		scenes:      scenes,
		beatsPerBar: cfg.BeatsPerBar,
		joinTimeout: cfg.JoinTimeout,
		state:       StatePaused,
		logger:      logger,
	}
}

// SetNotifier sets the observer for playback signals.
func (p *Player) SetNotifier(n Notifier) {
	p.mu.Lock()
	p.notifier = n
	p.mu.Unlock()
}

// SetHistory sets the playback history recorder.
func (p *Player) SetHistory(h HistoryRecorder) {
	p.mu.Lock()
	p.history = h
	p.mu.Unlock()
}

// SaveSequence validates and persists a sequence. An active sequence at a
// different slot is not disturbed; saving over the active slot takes
// effect on the next activation, the running snapshot keeps playing.
func (p *Player) SaveSequence(seq *Sequence) error {
	return p.store.Save(seq)
}

// DeleteSequence removes a saved sequence. If it is the active one,
// playback is stopped first.
func (p *Player) DeleteSequence(index Index) error {
	if idx, ok := p.ActiveIndex(); ok && idx == index {
		p.StopPlayback()
	}
	return p.store.Delete(index)
}

// ActivateSequence makes the sequence at index the active one, starting at
// step 0. Any running worker is stopped and joined first. Step 0's scenes
// are emitted synchronously; a worker is then started iff the sequence has
// more than one step and the state is PLAYING. Returns false when the slot
// holds no sequence.
//
// source tags the activation for history ("button", "api", "chain", ...).
func (p *Player) ActivateSequence(index Index, source string) bool {
	seq, err := p.store.Get(index)
	if err != nil {
		p.logger.Warn("activation of unknown sequence ignored", "index", index.String())
		return false
	}

	p.activateMu.Lock()
	defer p.activateMu.Unlock()

	p.stopWorker("superseded")

	pb := &playback{
		seq:       seq,
		loopsLeft: -1,
		stop:      make(chan struct{}),
	}
	if seq.LoopCount != nil {
		pb.loopsLeft = *seq.LoopCount
	}

	p.mu.Lock()
	p.active = pb
	state := p.state
	history := p.history
	p.mu.Unlock()

	if history != nil {
		pb.historyID = history.PlaybackStarted(index, source)
	}

	step := seq.Steps[0]
	p.scenes.ActivateScenes(step.Scenes, true)
	p.notifyStep(index, 0, step.Scenes)

	p.logger.Info("sequence activated",
		"index", index.String(),
		"steps", len(seq.Steps),
		"loop", seq.Loop,
		"source", source,
	)

	if len(seq.Steps) > 1 && state == StatePlaying {
		p.startWorker(pb)
	}
	return true
}

// Play sets the state to PLAYING and ensures exactly one worker is alive.
func (p *Player) Play() {
	p.mu.Lock()
	changed := p.state != StatePlaying
	p.state = StatePlaying
	pb := p.active
	needWorker := pb != nil && len(pb.seq.Steps) > 1 && !pb.running
	p.mu.Unlock()

	if changed {
		p.notifyState(true)
	}
	if needWorker {
		p.startWorker(pb)
	}
}

// Pause freezes timing without killing the worker. The worker keeps
// polling at the wait slice but elapsed pause time never counts against
// step durations, and accumulated beat credit is preserved.
func (p *Player) Pause() {
	p.mu.Lock()
	changed := p.state != StatePaused
	p.state = StatePaused
	p.mu.Unlock()

	if changed {
		p.notifyState(false)
	}
}

// TogglePlayPause flips between PLAYING and PAUSED and returns the
// resulting playing flag.
func (p *Player) TogglePlayPause() bool {
	p.mu.Lock()
	playing := p.state != StatePlaying
	p.mu.Unlock()

	if playing {
		p.Play()
	} else {
		p.Pause()
	}
	return playing
}

// Clear deactivates the active sequence (stopping and joining the worker)
// and retracts its controlled scenes, but leaves PLAYING/PAUSED untouched
// so the next activation resumes the user's last choice.
func (p *Player) Clear() {
	p.activateMu.Lock()
	defer p.activateMu.Unlock()

	if p.stopWorker("stopped") {
		p.scenes.ClearControlled()
	}
}

// StopPlayback is the full reset: stop and join the worker, clear the
// active pointer, retract controlled scenes and force PAUSED. Used on
// shutdown or hard reassignment.
func (p *Player) StopPlayback() {
	p.activateMu.Lock()
	defer p.activateMu.Unlock()

	if p.stopWorker("stopped") {
		p.scenes.ClearControlled()
	}

	p.mu.Lock()
	changed := p.state != StatePaused
	p.state = StatePaused
	p.mu.Unlock()

	if changed {
		p.notifyState(false)
	}
}

// NextStep manually advances the active sequence one step, modulo its
// length, cancelling any outstanding bar wait. Returns false when no
// sequence is active or the sequence has a single step.
func (p *Player) NextStep() bool {
	p.mu.Lock()
	pb := p.active
	if pb == nil || len(pb.seq.Steps) <= 1 {
		p.mu.Unlock()
		return false
	}

	pb.step = (pb.step + 1) % len(pb.seq.Steps)
	pb.gen++
	pb.stepsAdvanced++
	if pb.wait != nil {
		// Nudge a worker blocked on the bar wait so it observes the
		// generation change.
		select {
		case pb.wait.wake <- struct{}{}:
		default:
		}
	}
	index := pb.seq.Index
	stepNo := pb.step
	step := pb.seq.Steps[stepNo]
	p.mu.Unlock()

	p.scenes.ActivateScenes(step.Scenes, true)
	p.notifyStep(index, stepNo, step.Scenes)
	return true
}

// NotifyBeatAdvanced pushes n beats of elapsed-time credit from the
// external clock. Credit only accumulates while the state is PLAYING and a
// bar wait is outstanding; beats delivered at any other moment are
// discarded, never banked.
func (p *Player) NotifyBeatAdvanced(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	if p.state == StatePlaying && p.active != nil && p.active.wait != nil {
		w := p.active.wait
		w.credit += n
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
	p.mu.Unlock()
}

// NotifyBarAdvanced pushes one whole bar of beat credit.
func (p *Player) NotifyBarAdvanced() {
	p.NotifyBeatAdvanced(p.beatsPerBar)
}

// State returns the current play/pause state.
func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsPlaying reports whether the state is PLAYING.
func (p *Player) IsPlaying() bool {
	return p.State() == StatePlaying
}

// ActiveIndex returns the active sequence slot, if any.
func (p *Player) ActiveIndex() (Index, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return Index{}, false
	}
	return p.active.seq.Index, true
}

// CurrentStep returns the active step index, or -1 when nothing is active.
func (p *Player) CurrentStep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return -1
	}
	return p.active.step
}

// WorkerAlive reports whether a playback worker goroutine is running.
func (p *Player) WorkerAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil && p.active.running
}

// Store exposes the underlying sequence store for read paths (API).
func (p *Player) Store() *Store {
	return p.store
}

// ─── Worker Lifecycle ───────────────────────────────────────────────────────

// startWorker spawns the playback worker iff none is alive for this
// playback. The liveness check and the spawn happen under the mutex, so
// two racing Play calls cannot produce two workers.
func (p *Player) startWorker(pb *playback) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != pb || pb.running {
		return
	}
	pb.running = true
	pb.done = make(chan struct{})
	go p.runWorker(pb)
}

// stopWorker detaches the active playback, signals its worker to stop and
// joins it with a bounded timeout. Returns true when a playback was
// actually detached. The lock is never held across the join.
func (p *Player) stopWorker(status string) bool {
	p.mu.Lock()
	pb := p.active
	p.active = nil
	var done chan struct{}
	if pb != nil {
		done = pb.done
	}
	history := p.history
	p.mu.Unlock()

	if pb == nil {
		return false
	}

	pb.stopOnce.Do(func() { close(pb.stop) })

	if done != nil {
		select {
		case <-done:
		case <-time.After(p.joinTimeout):
			// A misbehaving join must never block shutdown.
			p.logger.Error("playback worker did not stop in time",
				"index", pb.seq.Index.String(),
				"timeout", p.joinTimeout,
			)
		}
	}

	if history != nil && pb.historyID != "" {
		p.mu.Lock()
		steps := pb.stepsAdvanced
		p.mu.Unlock()
		history.PlaybackEnded(pb.historyID, status, steps)
	}
	return true
}

// runWorker is the playback loop: wait out the current step's duration,
// advance, emit, repeat. It exits on stop, or on completion of a
// non-looping sequence.
func (p *Player) runWorker(pb *playback) {
	defer func() {
		p.mu.Lock()
		pb.running = false
		p.mu.Unlock()
		close(pb.done)
	}()

	for {
		p.mu.Lock()
		stepIdx := pb.step
		gen := pb.gen
		step := pb.seq.Steps[stepIdx]
		p.mu.Unlock()

		var res waitResult
		if step.EffectiveUnit() == UnitBars {
			res = p.waitBars(pb, step, gen)
		} else {
			res = p.waitSeconds(pb, step, gen)
		}

		switch res {
		case waitStopped:
			return
		case waitSuperseded:
			// NextStep already advanced and emitted; time the new step.
			continue
		case waitElapsed:
		}

		if !p.advance(pb, gen) {
			return
		}
	}
}

// advance moves to the next step after a completed wait, handling
// wrap-around looping, finite loop counts, completion and chaining.
// Returns false when the worker should exit.
func (p *Player) advance(pb *playback, gen int) bool {
	p.mu.Lock()
	if pb.gen != gen {
		// Manually advanced while we were between wait and advance.
		p.mu.Unlock()
		return true
	}

	n := len(pb.seq.Steps)
	next := pb.step + 1
	index := pb.seq.Index

	if next >= n {
		looping := pb.seq.Loop && (pb.loopsLeft < 0 || pb.loopsLeft > 0)
		if !looping {
			followUps := append([]Index(nil), pb.seq.NextSequences...)
			p.mu.Unlock()
			p.finish(pb, index, followUps)
			return false
		}
		if pb.loopsLeft > 0 {
			pb.loopsLeft--
		}
		next = 0
	}

	pb.step = next
	pb.stepsAdvanced++
	step := pb.seq.Steps[next]
	p.mu.Unlock()

	p.scenes.ActivateScenes(step.Scenes, true)
	p.notifyStep(index, next, step.Scenes)
	return true
}

// finish handles completion of a non-looping sequence: emit the completion
// signal, close the history record, and chain to the first follow-up slot
// if one is configured. Chaining runs on a fresh goroutine because
// ActivateSequence joins the worker that is calling us.
func (p *Player) finish(pb *playback, index Index, followUps []Index) {
	p.notifyCompleted(index)

	p.mu.Lock()
	wasActive := p.active == pb
	if wasActive {
		p.active = nil
	}
	steps := pb.stepsAdvanced
	history := p.history
	p.mu.Unlock()

	if wasActive && history != nil && pb.historyID != "" {
		history.PlaybackEnded(pb.historyID, "completed", steps)
	}

	p.logger.Info("sequence completed", "index", index.String())

	if wasActive && len(followUps) > 0 {
		nextIndex := followUps[0]
		go func() {
			if !p.ActivateSequence(nextIndex, "chain") {
				p.logger.Warn("follow-up sequence missing",
					"from", index.String(),
					"to", nextIndex.String(),
				)
			}
		}()
	}
}

// ─── Step Waits ─────────────────────────────────────────────────────────────

// waitSeconds sleeps until an absolute deadline, extending the deadline by
// however long any pause lasted, so pauses never count against the
// duration. The wait wakes at least every secondsWaitSlice to observe
// stop, pause and manual advances.
func (p *Player) waitSeconds(pb *playback, step Step, gen int) waitResult {
	deadline := time.Now().Add(time.Duration(step.Duration * float64(time.Second)))

	for {
		select {
		case <-pb.stop:
			return waitStopped
		default:
		}

		p.mu.Lock()
		paused := p.state == StatePaused
		superseded := pb.gen != gen
		p.mu.Unlock()

		if superseded {
			return waitSuperseded
		}

		if paused {
			start := time.Now()
			select {
			case <-pb.stop:
				return waitStopped
			case <-time.After(secondsWaitSlice):
			}
			deadline = deadline.Add(time.Since(start))
			continue
		}

		now := time.Now()
		if !now.Before(deadline) {
			return waitElapsed
		}
		wait := deadline.Sub(now)
		if wait > secondsWaitSlice {
			wait = secondsWaitSlice
		}
		select {
		case <-pb.stop:
			return waitStopped
		case <-time.After(wait):
		}
	}
}

// waitBars blocks until enough externally-notified beats accumulate for
// the step. Credit arrives via NotifyBeatAdvanced, which only credits an
// outstanding wait while PLAYING, so pauses freeze the wait without losing
// already-accumulated credit and credit is never banked across steps.
func (p *Player) waitBars(pb *playback, step Step, gen int) waitResult {
	needed := int(step.Duration*float64(p.beatsPerBar) + 0.5)
	if needed < 1 {
		needed = 1
	}
	w := &barWait{needed: needed, wake: make(chan struct{}, 1)}

	p.mu.Lock()
	pb.wait = w
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if pb.wait == w {
			pb.wait = nil
		}
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		credit := w.credit
		superseded := pb.gen != gen
		p.mu.Unlock()

		if superseded {
			return waitSuperseded
		}
		if credit >= needed {
			return waitElapsed
		}

		select {
		case <-pb.stop:
			return waitStopped
		case <-w.wake:
		case <-time.After(barWaitSlice):
		}
	}
}

// ─── Signal Emission ────────────────────────────────────────────────────────

// notifyStep emits the step-change signal with panic isolation.
func (p *Player) notifyStep(index Index, step int, scenes []grid.Coord) {
	p.mu.Lock()
	n := p.notifier
	p.mu.Unlock()
	if n == nil {
		return
	}
	defer p.recoverNotify("step-change")
	n.StepChanged(index, step, scenes)
}

// notifyCompleted emits the sequence-completion signal with panic isolation.
func (p *Player) notifyCompleted(index Index) {
	p.mu.Lock()
	n := p.notifier
	p.mu.Unlock()
	if n == nil {
		return
	}
	defer p.recoverNotify("completion")
	n.SequenceCompleted(index)
}

// notifyState emits the playback-state-change signal with panic isolation.
func (p *Player) notifyState(playing bool) {
	p.mu.Lock()
	n := p.notifier
	p.mu.Unlock()
	if n == nil {
		return
	}
	defer p.recoverNotify("state-change")
	n.PlaybackStateChanged(playing)
}

// recoverNotify logs a panicking observer. Observer failures never
// terminate the worker or the caller.
func (p *Player) recoverNotify(signal string) {
	if r := recover(); r != nil {
		p.logger.Error("playback notifier panic recovered",
			"signal", signal,
			"panic", r,
		)
	}
}
