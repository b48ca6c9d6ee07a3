// Package device tracks hardware reachability for the controller's
// external collaborators.
//
// The Registry holds a 4-state connection machine per device type and
// notifies listeners on actual transitions only. The Monitor polls the
// registry on a fixed interval, calling registered reconnect functions
// for devices that are DISCONNECTED or in ERROR, backing off to every
// fifth cycle once a device exhausts its consecutive-attempt budget.
//
// Connection failures never escalate beyond the registry: the engine
// degrades to "no hardware" rather than terminating.
package device
