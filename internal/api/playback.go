package api

import (
	"net/http"
	"strconv"

	"github.com/cuegrid/cuegrid-core/internal/sequence"
)

// playbackStatus is the response body for GET /playback.
type playbackStatus struct {
	State       sequence.PlaybackState `json:"state"`
	ActiveIndex *sequence.Index        `json:"active_index,omitempty"`
	CurrentStep int                    `json:"current_step"`
}

// currentPlaybackStatus assembles the playback status snapshot.
func (s *Server) currentPlaybackStatus() playbackStatus {
	status := playbackStatus{
		State:       s.player.State(),
		CurrentStep: s.player.CurrentStep(),
	}
	if index, ok := s.player.ActiveIndex(); ok {
		status.ActiveIndex = &index
	}
	return status
}

// handlePlaybackStatus returns the current playback state and active slot.
func (s *Server) handlePlaybackStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handleActivate makes the sequence at a grid slot the active one. Playback
// state is untouched; if paused, the first step lights and holds.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	index, err := coordParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if !s.player.ActivateSequence(index, "api") {
		writeNotFound(w, "no sequence at "+index.String())
		return
	}
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handlePlay sets the playback state to PLAYING.
func (s *Server) handlePlay(w http.ResponseWriter, _ *http.Request) {
	s.player.Play()
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handlePause sets the playback state to PAUSED.
func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.player.Pause()
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handleTogglePlayPause flips the playback state.
func (s *Server) handleTogglePlayPause(w http.ResponseWriter, _ *http.Request) {
	s.player.TogglePlayPause()
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handleNextStep advances the active sequence one step manually.
func (s *Server) handleNextStep(w http.ResponseWriter, _ *http.Request) {
	if !s.player.NextStep() {
		writeError(w, http.StatusConflict, ErrCodeConflict, "no step to advance to")
		return
	}
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handleStopPlayback stops the active sequence, retracts its scenes, and
// forces the playback state to PAUSED.
func (s *Server) handleStopPlayback(w http.ResponseWriter, _ *http.Request) {
	s.player.StopPlayback()
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// handleClearPlayback deactivates the active sequence without touching the
// playback state.
func (s *Server) handleClearPlayback(w http.ResponseWriter, _ *http.Request) {
	s.player.Clear()
	writeJSON(w, http.StatusOK, s.currentPlaybackStatus())
}

// defaultHistoryLimit bounds GET /playback/history when no limit is given.
const defaultHistoryLimit = 50

// handlePlaybackHistory returns recent playback records, newest first.
//
// Query parameters:
//   - limit: maximum number of records (default 50, capped at 500)
func (s *Server) handlePlaybackHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"records": []any{}, "count": 0})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeInternalError(w, "failed to list playback history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}
