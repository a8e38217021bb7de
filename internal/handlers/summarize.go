package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
)

// Summarize handles POST /summarize.
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	if h.scripts == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "summarization not configured")
		return
	}

	var req models.SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	summary, err := h.scripts.Summarize(r.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("Summarization failed")
		writeJSONError(w, http.StatusBadGateway, "summarization failed")
		return
	}

	writeJSON(w, http.StatusOK, models.SummarizeResponse{
		OriginalLength: len(req.Text),
		SummaryLength:  len(summary),
		Summary:        summary,
	})
}
