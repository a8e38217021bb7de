// Package events carries conversation jobs and segment progress over Kafka.
package events

import (
	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

// ConversationJob asks a worker to run the audio pipeline for a session whose
// script was already generated and attached by the API.
type ConversationJob struct {
	SessionID uuid.UUID           `json:"session_id"`
	Script    []models.ScriptLine `json:"script"`
	TraceID   string              `json:"trace_id,omitempty"`
}

// Segment progress event names.
const (
	EventSegmentStarted   = "segment_started"
	EventSegmentCompleted = "segment_completed"
	EventSegmentFailed    = "segment_failed"
	EventSessionCompleted = "session_completed"
)

// SegmentEvent reports pipeline progress for one segment of a session.
type SegmentEvent struct {
	SessionID    uuid.UUID      `json:"session_id"`
	Event        string         `json:"event"`
	Speaker      models.Speaker `json:"speaker,omitempty"`
	SegmentIndex int            `json:"segment_index"`
	TotalTurns   int            `json:"total_turns"`
	Error        string         `json:"error,omitempty"`
	TraceID      string         `json:"trace_id,omitempty"`
}
