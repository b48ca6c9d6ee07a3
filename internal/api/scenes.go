package api

import (
	"net/http"
)

// handleListScenes returns every currently lit scene.
func (s *Server) handleListScenes(w http.ResponseWriter, _ *http.Request) {
	active := s.scenes.ActiveScenes()
	writeJSON(w, http.StatusOK, map[string]any{
		"active": active,
		"count":  len(active),
	})
}

// handleToggleScene flips one scene's state as a manual action. A scene lit
// this way is not owned by the running sequence and survives step changes.
func (s *Server) handleToggleScene(w http.ResponseWriter, r *http.Request) {
	coord, err := coordParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	active := s.scenes.ToggleScene(coord)
	writeJSON(w, http.StatusOK, map[string]any{
		"scene":  coord,
		"active": active,
	})
}

// handleClearScenes turns off every lit scene, manual and controlled alike.
func (s *Server) handleClearScenes(w http.ResponseWriter, _ *http.Request) {
	s.scenes.ClearAll()
	writeJSON(w, http.StatusOK, map[string]any{"active": []any{}, "count": 0})
}
