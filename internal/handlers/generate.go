package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
	"github.com/cryptodaily/newsroom/internal/registry"
)

// Generate handles POST /sessions/{id}/generate. It runs the audio pipeline
// synchronously over the supplied script and returns per-segment results.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Script) == 0 {
		writeJSONError(w, http.StatusBadRequest, "script is required")
		return
	}
	for _, line := range req.Script {
		if _, err := models.ParseSpeaker(string(line.Speaker)); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if line.Text == "" {
			writeJSONError(w, http.StatusBadRequest, "script line text is required")
			return
		}
		if h.cfg != nil && h.cfg.MaxTextLength > 0 && len(line.Text) > h.cfg.MaxTextLength {
			writeJSONError(w, http.StatusBadRequest, "script line text too long")
			return
		}
	}

	results, err := h.pipeline.Generate(r.Context(), sessionID, req.Script)
	if err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Pipeline run failed")
		writeJSONError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateResponse{
		SessionID: sessionID,
		Results:   results,
	})
}
