package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/registry"
)

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const progressPingInterval = 30 * time.Second

// ProgressWS handles GET /sessions/{id}/progress. It upgrades to a WebSocket
// and streams pipeline progress events for the session until the client
// disconnects.
func (h *Handler) ProgressWS(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		http.Error(w, "Progress feed not configured", http.StatusServiceUnavailable)
		return
	}

	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	if _, err := h.registry.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, registry.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Progress ws upgrade failed")
		return
	}
	defer conn.Close()

	eventCh, cancel := h.broadcaster.Subscribe(sessionID)
	defer cancel()

	// Drain client frames so close and pong handling work; the feed is
	// write-only from the client's perspective.
	go func() {
		conn.SetReadLimit(4 << 10)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ping := time.NewTicker(progressPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := writeWSJSON(conn, event); err != nil {
				log.Debug().Err(err).Msg("Progress ws write")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(v)
}
