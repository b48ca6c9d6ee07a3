package device

import (
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the device package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Listener receives device state transitions. Implementations must not
// block; panics are recovered and logged.
type Listener func(deviceType Type, state State)

// Registry tracks the connection state of each known device type.
//
// State machine per device:
//
//	DISCONNECTED → CONNECTING → CONNECTED → ERROR
//
// with any of CONNECTING/CONNECTED/ERROR dropping back to DISCONNECTED on
// an explicit disconnect. Setters are idempotent: setting the state a
// device is already in is a no-op and does not notify listeners.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.Mutex
	devices   map[Type]*Status
	listeners []Listener
	logger    Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[Type]*Status),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry. Call before the first
// state transition; transitions read the logger after dropping the lock.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Register creates the status entry for a device type, starting
// DISCONNECTED. Registering an already-known type is a no-op.
func (r *Registry) Register(deviceType Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[deviceType]; ok {
		return
	}
	r.devices[deviceType] = &Status{
		Type:  deviceType,
		State: StateDisconnected,
	}
}

// AddListener registers a state-transition listener. Listeners fire only
// on actual transitions, never on idempotent re-sets.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// SetConnecting marks a device as attempting connection.
func (r *Registry) SetConnecting(deviceType Type) {
	r.setState(deviceType, StateConnecting, "")
}

// SetConnected marks a device connected, stamps the last-connected time
// and resets the consecutive reconnect-attempt counter.
func (r *Registry) SetConnected(deviceType Type) {
	r.mu.Lock()
	status, ok := r.devices[deviceType]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("state change for unregistered device", "device", deviceType)
		return
	}

	now := time.Now().UTC()
	status.LastConnected = &now
	status.ReconnectAttempts = 0
	status.LastError = ""

	if status.State == StateConnected {
		r.mu.Unlock()
		return
	}
	status.State = StateConnected
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	r.logger.Info("device connected", "device", deviceType)
	r.notify(listeners, deviceType, StateConnected)
}

// SetError marks a device as failed with the error text.
func (r *Registry) SetError(deviceType Type, errText string) {
	r.setState(deviceType, StateError, errText)
}

// SetDisconnected marks a device explicitly disconnected.
func (r *Registry) SetDisconnected(deviceType Type) {
	r.setState(deviceType, StateDisconnected, "")
}

// setState applies a transition, updating the error text and notifying
// listeners only when the state actually changed.
func (r *Registry) setState(deviceType Type, state State, errText string) {
	r.mu.Lock()
	status, ok := r.devices[deviceType]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("state change for unregistered device", "device", deviceType)
		return
	}

	if status.State == state {
		// Idempotent re-set: refresh the error text, do not notify.
		if state == StateError && errText != "" {
			status.LastError = errText
		}
		r.mu.Unlock()
		return
	}

	status.State = state
	if state == StateError {
		status.LastError = errText
	}
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	if state == StateError {
		r.logger.Warn("device error", "device", deviceType, "error", errText)
	} else {
		r.logger.Info("device state changed", "device", deviceType, "state", state)
	}
	r.notify(listeners, deviceType, state)
}

// RecordAttempt increments the consecutive reconnect-attempt counter and
// returns the new count. Reset to zero by SetConnected.
func (r *Registry) RecordAttempt(deviceType Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.devices[deviceType]
	if !ok {
		return 0
	}
	status.ReconnectAttempts++
	return status.ReconnectAttempts
}

// Status returns a snapshot of one device's state.
func (r *Registry) Status(deviceType Type) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.devices[deviceType]
	if !ok {
		return Status{}, false
	}
	return *status, true
}

// All returns snapshots of every registered device, sorted by type.
func (r *Registry) All() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]Status, 0, len(r.devices))
	for _, status := range r.devices {
		all = append(all, *status)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Type < all[j].Type })
	return all
}

// notify fires the listeners outside the lock with panic isolation.
func (r *Registry) notify(listeners []Listener, deviceType Type, state State) {
	for _, l := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("device listener panic recovered",
						"device", deviceType,
						"panic", rec,
					)
				}
			}()
			l(deviceType, state)
		}()
	}
}
