// Package mqtt wraps paho.mqtt.golang for the CueGrid MQTT surface.
//
// The broker is the transport between the controller core and its
// hardware collaborators: scene commands go out to the lighting driver,
// scene feedback, button presses and clock ticks come in. Topic names are
// built through the Topics helpers:
//
//	cuegrid/command/lighting/scene   scene on/off commands (out)
//	cuegrid/feedback/lighting/state  scene state feedback (in)
//	cuegrid/input/button             grid button presses (in)
//	cuegrid/clock/beat|bar           musical clock ticks (in)
//	cuegrid/system/status            controller online/offline (retained, LWT)
//
// The client auto-reconnects with exponential backoff and restores
// subscriptions on reconnect. Message handlers run with panic recovery;
// a crashing handler never takes the connection down.
package mqtt
