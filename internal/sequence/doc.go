// Package sequence provides the live sequencing engine for CueGrid Core.
//
// A sequence is an ordered, timed list of steps stored under a grid slot;
// each step lights a scene set for a duration measured either in seconds
// or in externally-clocked bars. The package contains:
//
//   - Store: the durable slot → sequence mapping, one JSON document
//     rewritten atomically on every save
//   - Player: the playback engine, advancing through the active sequence's
//     steps on a single background worker and driving the scene set
//   - HistoryRepository: SQLite audit trail of sequence activations
//
// # Timing Model
//
// SECONDS steps sleep against an absolute deadline that is pushed forward
// by however long any pause lasted, so pausing never eats into a step.
// BARS steps block until enough beat credit arrives from the external
// clock (NotifyBeatAdvanced / NotifyBarAdvanced); credit is only accepted
// while PLAYING with a wait outstanding and is never banked across step
// boundaries. Both waits re-check stop, pause and manual advances at a
// sub-second interval, so a paused or stopped sequence never hangs the
// worker.
//
// # Thread Safety
//
// Store and Player are safe for concurrent use. At most one playback
// worker goroutine is alive at a time; shutdown joins it with a bounded
// timeout.
package sequence
