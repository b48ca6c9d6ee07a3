package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuegrid/cuegrid-core/internal/grid"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/mqtt"
)

// LightingOutput publishes explicit scene on/off commands to the lighting
// driver. It is the hardware write path behind the scene set.
type LightingOutput struct {
	broker Broker
	qos    byte
}

// NewLightingOutput creates the MQTT-backed lighting write path.
func NewLightingOutput(broker Broker, qos byte) *LightingOutput {
	return &LightingOutput{broker: broker, qos: qos}
}

// SetSceneState publishes one scene command. The command is explicit
// on/off, never a toggle, so replays and duplicates are harmless.
func (o *LightingOutput) SetSceneState(coord grid.Coord, active bool) error {
	msg := SceneCommandMessage{
		Scene:     coord,
		Active:    active,
		Source:    "core",
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding scene command: %w", err)
	}

	topic := mqtt.Topics{}.LightingSceneCommand()
	if err := o.broker.Publish(topic, payload, o.qos, false); err != nil {
		return fmt.Errorf("publishing scene command: %w", err)
	}
	return nil
}
