package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cuegrid/cuegrid-core/internal/grid"
	"github.com/cuegrid/cuegrid-core/internal/sequence"
)

// coordParam parses the {x}/{y} URL parameters into a grid coordinate.
func coordParam(r *http.Request) (grid.Coord, error) {
	x, err := strconv.Atoi(chi.URLParam(r, "x"))
	if err != nil {
		return grid.Coord{}, errors.New("x must be an integer")
	}
	y, err := strconv.Atoi(chi.URLParam(r, "y"))
	if err != nil {
		return grid.Coord{}, errors.New("y must be an integer")
	}
	return grid.Coord{X: x, Y: y}, nil
}

// handleListSequences returns every stored sequence.
func (s *Server) handleListSequences(w http.ResponseWriter, _ *http.Request) {
	sequences := s.player.Store().List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sequences": sequences,
		"count":     len(sequences),
	})
}

// handleGetSequence returns the sequence stored at one grid slot.
func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	index, err := coordParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	seq, err := s.player.Store().Get(index)
	if err != nil {
		if errors.Is(err, sequence.ErrNotFound) {
			writeNotFound(w, "no sequence at "+index.String())
			return
		}
		writeInternalError(w, "failed to load sequence")
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

// handleSaveSequence stores a sequence under a grid slot, replacing any
// previous occupant. Saving over the active slot does not disturb the
// running snapshot.
func (s *Server) handleSaveSequence(w http.ResponseWriter, r *http.Request) {
	index, err := coordParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var seq sequence.Sequence
	if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
		writeBadRequest(w, "invalid sequence JSON: "+err.Error())
		return
	}

	// The URL slot is authoritative; an index in the body is ignored.
	seq.Index = index

	if err := s.player.SaveSequence(&seq); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	s.logger.Info("sequence saved", "slot", index.String(), "steps", len(seq.Steps))
	writeJSON(w, http.StatusOK, &seq)
}

// handleDeleteSequence removes a stored sequence. Deleting the active
// sequence stops its playback first.
func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	index, err := coordParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.player.DeleteSequence(index); err != nil {
		if errors.Is(err, sequence.ErrNotFound) {
			writeNotFound(w, "no sequence at "+index.String())
			return
		}
		writeInternalError(w, "failed to delete sequence")
		return
	}

	s.logger.Info("sequence deleted", "slot", index.String())
	writeJSON(w, http.StatusOK, map[string]any{"deleted": index})
}
