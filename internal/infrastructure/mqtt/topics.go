package mqtt

import "fmt"

// Topic prefixes for the CueGrid MQTT surface.
//
// Scheme: cuegrid/{category}/{subsystem}/{detail}
const (
	// TopicPrefix is the base for all CueGrid topics.
	TopicPrefix = "cuegrid"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "cuegrid/system"
)

// Topics provides builders for CueGrid MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.LightingSceneCommand()
//	// Returns: "cuegrid/command/lighting/scene"
type Topics struct{}

// LightingSceneCommand returns the topic for scene on/off commands to the
// lighting driver.
//
// Example: cuegrid/command/lighting/scene
func (Topics) LightingSceneCommand() string {
	return fmt.Sprintf("%s/command/lighting/scene", TopicPrefix)
}

// LightingFeedback returns the topic for scene state feedback from the
// lighting driver.
//
// Example: cuegrid/feedback/lighting/state
func (Topics) LightingFeedback() string {
	return fmt.Sprintf("%s/feedback/lighting/state", TopicPrefix)
}

// ButtonInput returns the topic for grid button press events.
//
// Example: cuegrid/input/button
func (Topics) ButtonInput() string {
	return fmt.Sprintf("%s/input/button", TopicPrefix)
}

// ClockBeat returns the topic for beat ticks from the external clock.
//
// Example: cuegrid/clock/beat
func (Topics) ClockBeat() string {
	return fmt.Sprintf("%s/clock/beat", TopicPrefix)
}

// ClockBar returns the topic for bar ticks from the external clock.
//
// Example: cuegrid/clock/bar
func (Topics) ClockBar() string {
	return fmt.Sprintf("%s/clock/bar", TopicPrefix)
}

// SystemStatus returns the controller status topic (also the LWT target).
//
// Example: cuegrid/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllClockTicks returns a pattern matching both clock topics.
//
// Pattern: cuegrid/clock/+
func (Topics) AllClockTicks() string {
	return fmt.Sprintf("%s/clock/+", TopicPrefix)
}

// AllTopics returns a pattern matching every CueGrid topic.
// Use with caution, this receives ALL traffic.
//
// Pattern: cuegrid/#
func (Topics) AllTopics() string {
	return "cuegrid/#"
}
