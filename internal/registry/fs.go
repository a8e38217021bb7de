package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
)

// FSRegistry stores each session as a metadata.json file under
// <root>/sessions/<sessionID>/. Writes go through a temp file and rename so a
// crash mid-write never leaves a truncated session on disk.
type FSRegistry struct {
	root string
	mu   sync.Mutex
}

// NewFSRegistry creates a filesystem-backed registry rooted at dir.
func NewFSRegistry(dir string) (*FSRegistry, error) {
	sessionsDir := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	log.Info().Str("root", dir).Msg("Filesystem registry initialized")
	return &FSRegistry{root: dir}, nil
}

func (r *FSRegistry) sessionDir(sessionID uuid.UUID) string {
	return filepath.Join(r.root, "sessions", sessionID.String())
}

func (r *FSRegistry) metadataPath(sessionID uuid.UUID) string {
	return filepath.Join(r.sessionDir(sessionID), "metadata.json")
}

// CreateSession creates a new session directory with empty metadata.
func (r *FSRegistry) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	session := &models.Session{
		SessionID: uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Segments:  []*models.Segment{},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.sessionDir(session.SessionID), 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	if err := r.save(session); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.SessionID.String()).
		Str("name", name).
		Msg("Session created")

	return session, nil
}

// GetSession loads a session with its segments sorted by index.
func (r *FSRegistry) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(sessionID)
}

// ListSessions scans the sessions directory. Entries whose metadata cannot
// be read are skipped with a warning instead of failing the whole listing.
func (r *FSRegistry) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(r.root, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.SessionSummary{}, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	summaries := make([]models.SessionSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}
		session, err := r.load(id)
		if err != nil {
			log.Warn().Err(err).Str("session_id", entry.Name()).Msg("Skipping unreadable session")
			continue
		}
		summaries = append(summaries, models.SessionSummary{
			SessionID:    session.SessionID,
			Name:         session.Name,
			CreatedAt:    session.CreatedAt,
			SegmentCount: len(session.Segments),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// AppendSegment adds a segment to a session. A negative index means "append
// at the end". An index that already exists replaces the earlier segment so
// indices stay unique. Segments are re-sorted before persisting.
func (r *FSRegistry) AppendSegment(ctx context.Context, sessionID uuid.UUID, segment *models.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.load(sessionID)
	if err != nil {
		return err
	}

	if segment.SegmentIndex < 0 {
		segment.SegmentIndex = len(session.Segments)
	}
	segment.SessionID = sessionID
	if segment.SegmentID == uuid.Nil {
		segment.SegmentID = uuid.New()
	}
	if segment.CreatedAt.IsZero() {
		segment.CreatedAt = time.Now().UTC()
	}

	replaced := false
	for i, existing := range session.Segments {
		if existing.SegmentIndex == segment.SegmentIndex {
			session.Segments[i] = segment
			replaced = true
			break
		}
	}
	if !replaced {
		session.Segments = append(session.Segments, segment)
	}

	sort.Slice(session.Segments, func(i, j int) bool {
		return session.Segments[i].SegmentIndex < session.Segments[j].SegmentIndex
	})

	if err := r.save(session); err != nil {
		return err
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("segment_id", segment.SegmentID.String()).
		Int("segment_index", segment.SegmentIndex).
		Bool("replaced", replaced).
		Msg("Segment appended")

	return nil
}

// ListSegments returns a session's segments sorted by index.
func (r *FSRegistry) ListSegments(ctx context.Context, sessionID uuid.UUID) ([]*models.Segment, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Segments, nil
}

// GetSegment finds one segment by ID within a session.
func (r *FSRegistry) GetSegment(ctx context.Context, sessionID, segmentID uuid.UUID) (*models.Segment, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, segment := range session.Segments {
		if segment.SegmentID == segmentID {
			return segment, nil
		}
	}
	return nil, ErrSegmentNotFound
}

// load reads and decodes a session's metadata. Caller holds the mutex.
func (r *FSRegistry) load(sessionID uuid.UUID) (*models.Session, error) {
	data, err := os.ReadFile(r.metadataPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session metadata: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}
	if session.Segments == nil {
		session.Segments = []*models.Segment{}
	}

	sort.Slice(session.Segments, func(i, j int) bool {
		return session.Segments[i].SegmentIndex < session.Segments[j].SegmentIndex
	})
	return &session, nil
}

// save writes session metadata atomically. Caller holds the mutex.
func (r *FSRegistry) save(session *models.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session metadata: %w", err)
	}

	path := r.metadataPath(session.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit session metadata: %w", err)
	}
	return nil
}
