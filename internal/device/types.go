package device

import "time"

// Type identifies one kind of external hardware the controller talks to.
type Type string

// Known device types. Entries are registered once at startup and only ever
// transition state; they are never removed.
const (
	TypeLighting       Type = "lighting"
	TypeGridController Type = "grid_controller"
	TypeClock          Type = "clock"
)

// State is the connection state of one device type.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Status is a snapshot of one device type's connection state.
type Status struct {
	Type              Type       `json:"type"`
	State             State      `json:"state"`
	LastConnected     *time.Time `json:"last_connected,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	ReconnectAttempts int        `json:"reconnect_attempts"`
}
