// Package bridge connects the controller core to its MQTT collaborators.
//
// Outbound, LightingOutput publishes explicit scene on/off commands to
// the lighting driver. Inbound, the Bridge routes scene feedback into the
// scene set (honouring the guard window against stale "on" messages),
// grid button presses into scene toggles and sequence activation, and
// clock ticks into the player's beat credit. Broker connectivity is
// surfaced into the device registry through the device monitor.
package bridge
