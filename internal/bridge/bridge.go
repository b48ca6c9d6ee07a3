package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cuegrid/cuegrid-core/internal/device"
	"github.com/cuegrid/cuegrid-core/internal/grid"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/mqtt"
	"github.com/cuegrid/cuegrid-core/internal/scene"
	"github.com/cuegrid/cuegrid-core/internal/sequence"
)

// Logger defines the logging interface used by the bridge.
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

// Broker is the MQTT surface the bridge needs. Satisfied by *mqtt.Client.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Bridge wires the controller core to its MQTT collaborators: scene
// commands out to the lighting driver, scene feedback / button input /
// clock ticks in.
//
// Feedback reconciliation honours the scene set's guard window: a stale
// "on" for a scene the sequence just retracted is dropped, while "off"
// corrections are always applied, since the sequence, not the hardware,
// is authoritative for scenes it controls.
type Bridge struct {
	broker Broker
	scenes *scene.Set
	player *sequence.Player
	qos    byte
	logger Logger

	// mapping overrides native scene IDs that are not plain "x,y" strings.
	// Written via MapNativeID, read from broker handler goroutines.
	mapMu   sync.RWMutex
	mapping map[string]grid.Coord
}

// New creates a bridge over the broker. The scene set and player receive
// the inbound traffic.
func New(broker Broker, scenes *scene.Set, player *sequence.Player, qos byte, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		broker:  broker,
		scenes:  scenes,
		player:  player,
		qos:     qos,
		logger:  logger,
		mapping: make(map[string]grid.Coord),
	}
}

// MapNativeID registers an explicit native-ID to coordinate mapping for
// lighting drivers whose scene identifiers are not "x,y" strings.
// Safe to call after Start, while feedback is flowing.
func (b *Bridge) MapNativeID(nativeID string, coord grid.Coord) {
	b.mapMu.Lock()
	b.mapping[nativeID] = coord
	b.mapMu.Unlock()
}

// Start subscribes to the inbound topics. Call after the broker is
// connected and before playback begins.
func (b *Bridge) Start() error {
	topics := mqtt.Topics{}

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.LightingFeedback(), b.handleFeedback},
		{topics.ButtonInput(), b.handleButton},
		{topics.ClockBeat(), b.handleBeat},
		{topics.ClockBar(), b.handleBar},
	}
	for _, sub := range subs {
		if err := b.broker.Subscribe(sub.topic, b.qos, sub.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", sub.topic, err)
		}
	}

	b.logger.Info("bridge started", "subscriptions", len(subs))
	return nil
}

// RegisterWithMonitor registers broker-backed reachability checks for the
// external device types. paho handles the actual reconnection; the checks
// surface broker connectivity into the device registry so the grid and
// GUI can show hardware state.
func (b *Bridge) RegisterWithMonitor(monitor *device.Monitor) {
	for _, deviceType := range []device.Type{
		device.TypeLighting,
		device.TypeGridController,
		device.TypeClock,
	} {
		monitor.RegisterReconnect(deviceType, b.checkBroker)
	}
}

// checkBroker reports broker connectivity for the device monitor.
func (b *Bridge) checkBroker() error {
	if !b.broker.IsConnected() {
		return mqtt.ErrNotConnected
	}
	return nil
}

// coordinateFor resolves a native scene ID to a grid coordinate, using
// the explicit mapping first and falling back to "x,y" parsing.
func (b *Bridge) coordinateFor(nativeID string) (grid.Coord, error) {
	b.mapMu.RLock()
	coord, ok := b.mapping[nativeID]
	b.mapMu.RUnlock()
	if ok {
		return coord, nil
	}
	return grid.ParseCoord(nativeID)
}

// handleFeedback reconciles a scene state observation from the lighting
// driver against the scene set.
func (b *Bridge) handleFeedback(_ string, payload []byte) error {
	var msg FeedbackMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed feedback payload: %w", err)
	}

	coord, err := b.coordinateFor(msg.NativeID)
	if err != nil {
		return fmt.Errorf("unknown native scene id %q: %w", msg.NativeID, err)
	}

	// Guard window: reject stale "on" for scenes the sequence just
	// retracted or still owns. "off" corrections always land.
	if msg.Active && b.scenes.Guarded(coord) {
		b.logger.Debug("stale feedback dropped",
			"scene", coord.String(),
			"native_id", msg.NativeID,
		)
		return nil
	}

	b.scenes.MarkSceneActive(coord, msg.Active)
	return nil
}

// handleButton routes a grid button press to the scene set or the player.
func (b *Bridge) handleButton(_ string, payload []byte) error {
	var msg ButtonMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed button payload: %w", err)
	}

	switch msg.Kind {
	case ButtonScene:
		active := b.scenes.ToggleScene(msg.Coord)
		b.logger.Debug("scene toggled", "scene", msg.Coord.String(), "active", active)

	case ButtonSequence:
		// Pressing the active sequence's button toggles play/pause;
		// any other slot activates that sequence.
		if idx, ok := b.player.ActiveIndex(); ok && idx == msg.Coord {
			b.player.TogglePlayPause()
			return nil
		}
		if !b.player.ActivateSequence(msg.Coord, "button") {
			b.logger.Debug("press on empty sequence slot", "slot", msg.Coord.String())
		}

	default:
		return fmt.Errorf("unknown button kind %q", msg.Kind)
	}
	return nil
}

// handleBeat feeds beat credit from the external clock into the player.
func (b *Bridge) handleBeat(_ string, payload []byte) error {
	beats := 1
	if len(payload) > 0 {
		var msg ClockTickMessage
		if err := json.Unmarshal(payload, &msg); err == nil && msg.Beats > 0 {
			beats = msg.Beats
		}
	}
	b.player.NotifyBeatAdvanced(beats)
	return nil
}

// handleBar feeds one whole bar of credit into the player.
func (b *Bridge) handleBar(_ string, _ []byte) error {
	b.player.NotifyBarAdvanced()
	return nil
}
