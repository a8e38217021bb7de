// Package registry tracks sessions and their segment metadata. Audio bytes
// live in the store; the registry only holds locators pointing at them.
package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSegmentNotFound = errors.New("segment not found")
)

// Registry persists sessions and segment metadata. Implementations keep a
// session's segments sorted by segment index; appending a segment with an
// index that already exists replaces the earlier entry.
type Registry interface {
	CreateSession(ctx context.Context, name string) (*models.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)

	AppendSegment(ctx context.Context, sessionID uuid.UUID, segment *models.Segment) error
	ListSegments(ctx context.Context, sessionID uuid.UUID) ([]*models.Segment, error)
	GetSegment(ctx context.Context, sessionID, segmentID uuid.UUID) (*models.Segment, error)
}
