package mqtt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	cases := map[string]string{
		topics.LightingSceneCommand(): "cuegrid/command/lighting/scene",
		topics.LightingFeedback():     "cuegrid/feedback/lighting/state",
		topics.ButtonInput():          "cuegrid/input/button",
		topics.ClockBeat():            "cuegrid/clock/beat",
		topics.ClockBar():             "cuegrid/clock/bar",
		topics.SystemStatus():         "cuegrid/system/status",
		topics.AllClockTicks():        "cuegrid/clock/+",
		topics.AllTopics():            "cuegrid/#",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("topic = %q, want %q", got, want)
		}
	}
}

func TestAllTopicsShareThePrefix(t *testing.T) {
	topics := Topics{}
	for _, topic := range []string{
		topics.LightingSceneCommand(),
		topics.LightingFeedback(),
		topics.ButtonInput(),
		topics.ClockBeat(),
		topics.ClockBar(),
		topics.SystemStatus(),
	} {
		if !strings.HasPrefix(topic, TopicPrefix+"/") {
			t.Errorf("topic %q missing prefix %q", topic, TopicPrefix)
		}
	}
}

func TestStatusPayloadsAreValidJSON(t *testing.T) {
	for name, payload := range map[string]string{
		"online":  buildOnlinePayload("cuegrid-core"),
		"offline": buildOfflinePayload("cuegrid-core"),
	} {
		var doc map[string]any
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			t.Errorf("%s payload not valid JSON: %v", name, err)
			continue
		}
		if doc["client_id"] != "cuegrid-core" {
			t.Errorf("%s payload client_id = %v", name, doc["client_id"])
		}
	}
}
