package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/events"
	"github.com/cryptodaily/newsroom/internal/models"
)

// CreateConversation handles POST /conversations. It generates a script for
// the topic, creates a session, and enqueues the audio work for the worker.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	if h.scripts == nil || h.queue == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "conversation generation not configured")
		return
	}

	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeJSONError(w, http.StatusBadRequest, "topic is required")
		return
	}

	turns := req.Turns
	if turns <= 0 {
		turns = h.cfg.DefaultTurns
	}
	if h.cfg.MaxTurns > 0 && turns > h.cfg.MaxTurns {
		writeJSONError(w, http.StatusBadRequest, "turns exceeds maximum")
		return
	}

	script, err := h.scripts.GenerateScript(r.Context(), req.Topic, turns)
	if err != nil {
		log.Error().Err(err).Str("topic", req.Topic).Msg("Script generation failed")
		writeJSONError(w, http.StatusBadGateway, "script generation failed")
		return
	}

	name := req.Name
	if name == "" {
		name = req.Topic
	}
	session, err := h.registry.CreateSession(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		writeJSONError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	job := events.ConversationJob{
		SessionID: session.SessionID,
		Script:    script,
		TraceID:   uuid.NewString(),
	}
	if err := h.queue.PublishConversation(r.Context(), job); err != nil {
		log.Error().Err(err).Str("session_id", session.SessionID.String()).Msg("Failed to enqueue conversation job")
		writeJSONError(w, http.StatusInternalServerError, "failed to enqueue conversation")
		return
	}

	writeJSON(w, http.StatusAccepted, models.CreateConversationResponse{
		SessionID: session.SessionID,
		Name:      session.Name,
		Status:    "queued",
		Turns:     len(script),
	})
}
