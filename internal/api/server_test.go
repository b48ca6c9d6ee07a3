package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cuegrid/cuegrid-core/internal/device"
	"github.com/cuegrid/cuegrid-core/internal/grid"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/config"
	"github.com/cuegrid/cuegrid-core/internal/infrastructure/logging"
	"github.com/cuegrid/cuegrid-core/internal/scene"
	"github.com/cuegrid/cuegrid-core/internal/sequence"
)

// testServer creates a Server over a real player, scene set, and registry.
func testServer(t *testing.T) *Server {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	store := sequence.NewStore(filepath.Join(t.TempDir(), "sequences.json"), nil)
	scenes := scene.NewSet(nil)
	player := sequence.NewPlayer(store, scenes, sequence.Config{
		BeatsPerBar: 4,
		JoinTimeout: time.Second,
	}, nil)
	t.Cleanup(player.Clear)

	registry := device.NewRegistry()
	registry.Register(device.TypeLighting)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Player:   player,
		Scenes:   scenes,
		Registry: registry,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv
}

// saveTestSequence stores a two-step seconds sequence under the given slot.
func saveTestSequence(t *testing.T, srv *Server, index sequence.Index) {
	t.Helper()

	seq := &sequence.Sequence{
		Index: index,
		Steps: []sequence.Step{
			{Scenes: []grid.Coord{{X: 0, Y: 0}}, Duration: 60},
			{Scenes: []grid.Coord{{X: 1, Y: 0}}, Duration: 60},
		},
	}
	if err := srv.player.SaveSequence(seq); err != nil {
		t.Fatalf("SaveSequence: %v", err)
	}
}

// doRequest runs one request through the full router.
func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	router := srv.buildRouter()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a JSON response body.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v; body: %s", err, w.Body.String())
	}
	return resp
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeBody(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestNotFound(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Sequence CRUD Tests ───────────────────────────────────────────

func TestListSequences_Empty(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/sequences", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeBody(t, w)
	if int(resp["count"].(float64)) != 0 {
		t.Errorf("count = %v, want 0", resp["count"])
	}
}

func TestSaveAndGetSequence(t *testing.T) {
	srv := testServer(t)

	body := `{
		"steps": [
			{"scenes": [[0,0],[1,1]], "duration": 2.5},
			{"scenes": [[2,0]], "duration": 1, "duration_unit": "bars"}
		],
		"loop": true
	}`
	w := doRequest(srv, http.MethodPut, "/api/v1/sequences/5/2", body)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/sequences/5/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", w.Code, http.StatusOK)
	}

	var seq sequence.Sequence
	if err := json.Unmarshal(w.Body.Bytes(), &seq); err != nil {
		t.Fatalf("unmarshal sequence: %v", err)
	}
	if seq.Index != (grid.Coord{X: 5, Y: 2}) {
		t.Errorf("index = %v, want (5,2)", seq.Index)
	}
	if len(seq.Steps) != 2 {
		t.Errorf("steps = %d, want 2", len(seq.Steps))
	}
	if !seq.Loop {
		t.Error("expected loop to be true")
	}
}

func TestSaveSequence_URLSlotWins(t *testing.T) {
	srv := testServer(t)

	// Body claims slot (9,9); the URL decides.
	body := `{"index": [9,9], "steps": [{"scenes": [[0,0]], "duration": 1}]}`
	w := doRequest(srv, http.MethodPut, "/api/v1/sequences/3/4", body)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d; body: %s", w.Code, w.Body.String())
	}

	if _, err := srv.player.Store().Get(grid.Coord{X: 3, Y: 4}); err != nil {
		t.Errorf("sequence not stored under URL slot: %v", err)
	}
	if _, err := srv.player.Store().Get(grid.Coord{X: 9, Y: 9}); err == nil {
		t.Error("sequence stored under body slot, want URL slot only")
	}
}

func TestSaveSequence_InvalidRejected(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty steps", `{"steps": []}`},
		{"zero duration", `{"steps": [{"scenes": [[0,0]], "duration": 0}]}`},
		{"bad unit", `{"steps": [{"scenes": [[0,0]], "duration": 1, "duration_unit": "hours"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodPut, "/api/v1/sequences/0/0", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
			}
		})
	}
}

func TestGetSequence_NotFound(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/sequences/7/7", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetSequence_BadCoord(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/sequences/abc/0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteSequence(t *testing.T) {
	srv := testServer(t)
	saveTestSequence(t, srv, grid.Coord{X: 1, Y: 1})

	w := doRequest(srv, http.MethodDelete, "/api/v1/sequences/1/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d; body: %s", w.Code, w.Body.String())
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/sequences/1/1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeleteSequence_NotFound(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodDelete, "/api/v1/sequences/6/6", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Playback Control Tests ────────────────────────────────────────

func TestPlaybackStatus_Initial(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/playback", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeBody(t, w)
	if resp["state"] != string(sequence.StatePaused) {
		t.Errorf("state = %v, want paused", resp["state"])
	}
	if _, ok := resp["active_index"]; ok {
		t.Error("expected no active_index before activation")
	}
}

func TestActivateAndStatus(t *testing.T) {
	srv := testServer(t)
	saveTestSequence(t, srv, grid.Coord{X: 2, Y: 3})

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/activate/2/3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("activate status = %d; body: %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	if resp["active_index"] == nil {
		t.Fatal("expected active_index after activation")
	}
	if int(resp["current_step"].(float64)) != 0 {
		t.Errorf("current_step = %v, want 0", resp["current_step"])
	}
}

func TestActivate_EmptySlot(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/activate/4/4", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestPlayPauseToggle(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/play", "")
	if got := decodeBody(t, w)["state"]; got != string(sequence.StatePlaying) {
		t.Errorf("after play state = %v, want playing", got)
	}

	w = doRequest(srv, http.MethodPost, "/api/v1/playback/pause", "")
	if got := decodeBody(t, w)["state"]; got != string(sequence.StatePaused) {
		t.Errorf("after pause state = %v, want paused", got)
	}

	w = doRequest(srv, http.MethodPost, "/api/v1/playback/toggle", "")
	if got := decodeBody(t, w)["state"]; got != string(sequence.StatePlaying) {
		t.Errorf("after toggle state = %v, want playing", got)
	}
}

func TestNextStep(t *testing.T) {
	srv := testServer(t)
	saveTestSequence(t, srv, grid.Coord{X: 0, Y: 5})

	doRequest(srv, http.MethodPost, "/api/v1/playback/activate/0/5", "")

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/next", "")
	if w.Code != http.StatusOK {
		t.Fatalf("next status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := int(decodeBody(t, w)["current_step"].(float64)); got != 1 {
		t.Errorf("current_step = %d, want 1", got)
	}
}

func TestNextStep_NoActive(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/next", "")
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestStopPlayback_ForcesPaused(t *testing.T) {
	srv := testServer(t)
	saveTestSequence(t, srv, grid.Coord{X: 1, Y: 2})

	doRequest(srv, http.MethodPost, "/api/v1/playback/play", "")
	doRequest(srv, http.MethodPost, "/api/v1/playback/activate/1/2", "")

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/stop", "")
	resp := decodeBody(t, w)
	if resp["state"] != string(sequence.StatePaused) {
		t.Errorf("state after stop = %v, want paused", resp["state"])
	}
	if _, ok := resp["active_index"]; ok {
		t.Error("expected no active_index after stop")
	}
}

func TestClearPlayback_KeepsState(t *testing.T) {
	srv := testServer(t)
	saveTestSequence(t, srv, grid.Coord{X: 1, Y: 2})

	doRequest(srv, http.MethodPost, "/api/v1/playback/play", "")
	doRequest(srv, http.MethodPost, "/api/v1/playback/activate/1/2", "")

	w := doRequest(srv, http.MethodPost, "/api/v1/playback/clear", "")
	resp := decodeBody(t, w)
	if resp["state"] != string(sequence.StatePlaying) {
		t.Errorf("state after clear = %v, want playing", resp["state"])
	}
	if _, ok := resp["active_index"]; ok {
		t.Error("expected no active_index after clear")
	}
}

func TestPlaybackHistory_Disabled(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/playback/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := int(decodeBody(t, w)["count"].(float64)); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestPlaybackHistory_BadLimit(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/playback/history?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Scene Endpoint Tests ──────────────────────────────────────────

func TestToggleAndListScenes(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodPost, "/api/v1/scenes/toggle/3/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", w.Code)
	}
	if got := decodeBody(t, w)["active"]; got != true {
		t.Errorf("active = %v, want true", got)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/scenes", "")
	if got := int(decodeBody(t, w)["count"].(float64)); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}

	// Second toggle turns it back off
	w = doRequest(srv, http.MethodPost, "/api/v1/scenes/toggle/3/1", "")
	if got := decodeBody(t, w)["active"]; got != false {
		t.Errorf("active after second toggle = %v, want false", got)
	}
}

func TestClearScenes(t *testing.T) {
	srv := testServer(t)

	doRequest(srv, http.MethodPost, "/api/v1/scenes/toggle/0/0", "")
	doRequest(srv, http.MethodPost, "/api/v1/scenes/toggle/1/1", "")

	w := doRequest(srv, http.MethodPost, "/api/v1/scenes/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}

	w = doRequest(srv, http.MethodGet, "/api/v1/scenes", "")
	if got := int(decodeBody(t, w)["count"].(float64)); got != 0 {
		t.Errorf("count after clear = %d, want 0", got)
	}
}

// ─── Device Endpoint Tests ─────────────────────────────────────────

func TestListDevices(t *testing.T) {
	srv := testServer(t)

	w := doRequest(srv, http.MethodGet, "/api/v1/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeBody(t, w)
	if got := int(resp["count"].(float64)); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	devices := resp["devices"].([]any)
	first := devices[0].(map[string]any)
	if first["type"] != string(device.TypeLighting) {
		t.Errorf("type = %v, want lighting", first["type"])
	}
	if first["state"] != string(device.StateDisconnected) {
		t.Errorf("state = %v, want disconnected", first["state"])
	}
}
