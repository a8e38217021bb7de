package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies one of the two fixed newsroom hosts.
type Speaker string

const (
	SpeakerAlex   Speaker = "Alex"
	SpeakerMorgan Speaker = "Morgan"
)

// ParseSpeaker validates a speaker name from user input.
func ParseSpeaker(s string) (Speaker, error) {
	switch Speaker(s) {
	case SpeakerAlex, SpeakerMorgan:
		return Speaker(s), nil
	}
	return "", fmt.Errorf("invalid speaker: %q (must be Alex or Morgan)", s)
}

// Session represents a single newsroom conversation with its ordered segments.
type Session struct {
	SessionID uuid.UUID  `json:"sessionId"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	Segments  []*Segment `json:"segments"`
}

// SessionSummary is the list-view shape of a session (no embedded segments).
type SessionSummary struct {
	SessionID    uuid.UUID `json:"sessionId"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	SegmentCount int       `json:"segmentCount"`
}

// Segment is one turn in a conversation. AudioLocator is an opaque reference
// (filename, S3 key, or IPFS CID) into the configured audio store.
type Segment struct {
	SegmentID    uuid.UUID `json:"segmentId"`
	SessionID    uuid.UUID `json:"sessionId"`
	Speaker      Speaker   `json:"speaker"`
	SegmentIndex int       `json:"segmentIndex"`
	Text         string    `json:"text"`
	AudioLocator string    `json:"audioLocator,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Success      bool      `json:"success"`
}

// ScriptLine is one (speaker, text) turn of a generated or supplied script.
type ScriptLine struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// SegmentResult is the per-segment outcome of a pipeline run. Failed segments
// carry Success=false and no locator; the list always has one entry per
// script line, in segment index order.
type SegmentResult struct {
	Speaker      Speaker `json:"speaker"`
	Text         string  `json:"text"`
	SegmentIndex int     `json:"segmentIndex"`
	Success      bool    `json:"success"`
	AudioLocator string  `json:"audioLocator,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	SessionID uuid.UUID `json:"sessionId"`
	Name      string    `json:"name"`
}

// GenerateRequest is the body of POST /sessions/{id}/generate.
type GenerateRequest struct {
	Script []ScriptLine `json:"script"`
}

// GenerateResponse is returned by POST /sessions/{id}/generate.
type GenerateResponse struct {
	SessionID uuid.UUID       `json:"sessionId"`
	Results   []SegmentResult `json:"results"`
}

// CreateConversationRequest is the body of POST /conversations.
type CreateConversationRequest struct {
	Topic string `json:"topic"`
	Name  string `json:"name,omitempty"`
	Turns int    `json:"turns,omitempty"`
}

// CreateConversationResponse is returned by POST /conversations.
type CreateConversationResponse struct {
	SessionID uuid.UUID `json:"sessionId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // queued
	Turns     int       `json:"turns"`
}

// SummarizeRequest is the body of POST /summarize.
type SummarizeRequest struct {
	Text string `json:"text"`
}

// SummarizeResponse is returned by POST /summarize.
type SummarizeResponse struct {
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
	Summary        string `json:"summary"`
}
