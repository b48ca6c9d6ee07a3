// Package scene maintains the authoritative set of currently-lit scenes.
//
// Scenes are lit from three directions: the operator pressing buttons, the
// sequence player advancing through steps, and hardware feedback echoing
// state back from the lighting software. The Set reconciles all three with
// a diff algorithm that avoids redundant hardware writes and a guard window
// that rejects stale "on" feedback for scenes the sequence has just
// retracted.
//
// # Key Types
//
//   - Set: the diff-based activation engine
//   - Output: hardware write contract (explicit on/off per scene)
//   - Notifier: scene state-change observer for LED/GUI collaborators
//
// # Thread Safety
//
// All Set methods are safe for concurrent use. A single mutex guards the
// three coordinate sets; public methods lock once and call unexported
// *Locked helpers so nested entry never occurs.
package scene
