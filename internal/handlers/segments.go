package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
	"github.com/cryptodaily/newsroom/internal/registry"
	"github.com/cryptodaily/newsroom/internal/store"
)

// AppendSegment handles POST /sessions/{id}/segments (multipart/form-data).
// Fields: audio (file, required), speaker (required), text, segmentIndex
// (optional; defaults to appending after the last segment).
func (h *Handler) AppendSegment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	session, err := h.registry.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to load session")
		writeJSONError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	const maxMemory = 32 << 20 // 32MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	speaker, err := models.ParseSpeaker(r.FormValue("speaker"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := r.FormValue("text")
	if h.cfg != nil && h.cfg.MaxTextLength > 0 && len(text) > h.cfg.MaxTextLength {
		writeJSONError(w, http.StatusBadRequest, "text too long")
		return
	}

	segmentIndex := len(session.Segments)
	if raw := r.FormValue("segmentIndex"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid segmentIndex")
			return
		}
		segmentIndex = idx
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing or invalid audio field (use form field name: audio)")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read audio data")
		return
	}
	if len(audio) == 0 {
		writeJSONError(w, http.StatusBadRequest, "audio data is empty")
		return
	}

	key := store.Key{SessionID: sessionID, Speaker: speaker, Index: segmentIndex}
	locator, err := h.store.Put(r.Context(), key, audio)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to store audio")
		writeJSONError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	segment := &models.Segment{
		SessionID:    sessionID,
		Speaker:      speaker,
		SegmentIndex: segmentIndex,
		Text:         text,
		AudioLocator: locator,
		Success:      true,
	}
	if err := h.registry.AppendSegment(r.Context(), sessionID, segment); err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to append segment")
		writeJSONError(w, http.StatusInternalServerError, "failed to append segment")
		return
	}

	writeJSON(w, http.StatusCreated, segment)
}

// ListSegments handles GET /sessions/{id}/segments.
func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	segments, err := h.registry.ListSegments(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to list segments")
		writeJSONError(w, http.StatusInternalServerError, "failed to list segments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segments": segments,
	})
}

// audioURLTTL bounds how long a redirected download link stays valid.
const audioURLTTL = 15 * time.Minute

// GetSegmentAudio handles GET /sessions/{id}/segments/{segmentId}. Stores
// that hand out direct URLs get a redirect; otherwise the stored MP3 bytes
// are streamed.
func (h *Handler) GetSegmentAudio(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	segmentID, err := uuid.Parse(vars["segmentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid segment id")
		return
	}

	segment, err := h.registry.GetSegment(r.Context(), sessionID, segmentID)
	if err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		if errors.Is(err, registry.ErrSegmentNotFound) {
			writeJSONError(w, http.StatusNotFound, "segment not found")
			return
		}
		log.Error().Err(err).Str("segment_id", segmentID.String()).Msg("Failed to get segment")
		writeJSONError(w, http.StatusInternalServerError, "failed to get segment")
		return
	}

	if segment.AudioLocator == "" {
		writeJSONError(w, http.StatusNotFound, "segment has no audio")
		return
	}

	if provider, ok := h.store.(store.URLProvider); ok {
		url, err := provider.AudioURL(segment.AudioLocator, audioURLTTL)
		if err != nil {
			log.Error().Err(err).Str("locator", segment.AudioLocator).Msg("Failed to build audio URL")
			writeJSONError(w, http.StatusInternalServerError, "failed to build audio URL")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	audio, err := h.store.Get(r.Context(), segment.AudioLocator)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "audio not found")
			return
		}
		log.Error().Err(err).Str("locator", segment.AudioLocator).Msg("Failed to read audio")
		writeJSONError(w, http.StatusInternalServerError, "failed to read audio")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
