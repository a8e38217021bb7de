// Package handlers contains the HTTP surface of the newsroom API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cryptodaily/newsroom/internal/config"
	"github.com/cryptodaily/newsroom/internal/events"
	"github.com/cryptodaily/newsroom/internal/models"
	"github.com/cryptodaily/newsroom/internal/pipeline"
	"github.com/cryptodaily/newsroom/internal/registry"
	"github.com/cryptodaily/newsroom/internal/store"
)

// ScriptService generates scripts and summaries. The LLM client satisfies it.
type ScriptService interface {
	GenerateScript(ctx context.Context, topic string, turns int) ([]models.ScriptLine, error)
	Summarize(ctx context.Context, text string) (string, error)
}

// JobQueue enqueues conversation jobs for the worker. The Kafka producer
// satisfies it.
type JobQueue interface {
	PublishConversation(ctx context.Context, job events.ConversationJob) error
}

// Handler contains all HTTP handlers.
type Handler struct {
	registry    registry.Registry
	store       store.Store
	pipeline    *pipeline.Pipeline
	scripts     ScriptService
	queue       JobQueue
	broadcaster *pipeline.Broadcaster
	cfg         *config.Config
}

// NewHandler creates a handler. scripts and queue may be nil; the endpoints
// that need them respond 503 until they are configured.
func NewHandler(
	reg registry.Registry,
	st store.Store,
	pipe *pipeline.Pipeline,
	scripts ScriptService,
	queue JobQueue,
	broadcaster *pipeline.Broadcaster,
	cfg *config.Config,
) *Handler {
	return &Handler{
		registry:    reg,
		store:       st,
		pipeline:    pipe,
		scripts:     scripts,
		queue:       queue,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

// Routes registers all API routes on a new router. authMW, when non-nil, is
// applied to everything except the health check, which stays public so load
// balancers can reach it without a token.
func (h *Handler) Routes(authMW mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	if authMW != nil {
		api.Use(authMW)
	}

	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", h.ListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/segments", h.AppendSegment).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/segments", h.ListSegments).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/segments/{segmentId}", h.GetSegmentAudio).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/generate", h.Generate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/progress", h.ProgressWS).Methods(http.MethodGet)

	api.HandleFunc("/conversations", h.CreateConversation).Methods(http.MethodPost)
	api.HandleFunc("/summarize", h.Summarize).Methods(http.MethodPost)

	return r
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
