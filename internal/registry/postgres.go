package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
)

// DB wraps sql.DB with pool configuration for the Postgres registry.
type DB struct {
	*sql.DB
}

// Connect establishes a connection to PostgreSQL.
func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Database connection established")

	return &DB{DB: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	log.Info().Msg("Closing database connection")
	return db.DB.Close()
}

// Health checks if the database is reachable.
func (db *DB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// PostgresRegistry implements Registry on top of the sessions and segments
// tables. Index uniqueness is enforced by the database: appending at an
// occupied index upserts over the earlier row.
type PostgresRegistry struct {
	db *DB
}

// NewPostgresRegistry creates a Postgres-backed registry.
func NewPostgresRegistry(db *DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// CreateSession inserts a new session row.
func (r *PostgresRegistry) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	session := &models.Session{
		SessionID: uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Segments:  []*models.Segment{},
	}

	query := `INSERT INTO sessions (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, session.SessionID, session.Name, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	log.Info().
		Str("session_id", session.SessionID.String()).
		Str("name", name).
		Msg("Session created")

	return session, nil
}

// GetSession loads a session and its segments ordered by index.
func (r *PostgresRegistry) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	session := &models.Session{SessionID: sessionID}

	query := `SELECT name, created_at FROM sessions WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&session.Name, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	segments, err := r.ListSegments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Segments = segments
	return session, nil
}

// ListSessions returns all sessions newest-first with their segment counts.
func (r *PostgresRegistry) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	query := `
		SELECT s.id, s.name, s.created_at, COUNT(g.id)
		FROM sessions s
		LEFT JOIN segments g ON g.session_id = s.id
		GROUP BY s.id, s.name, s.created_at
		ORDER BY s.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []models.SessionSummary{}
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.SessionID, &s.Name, &s.CreatedAt, &s.SegmentCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// AppendSegment inserts a segment, replacing any earlier segment at the same
// index. A negative index appends after the current highest index.
func (r *PostgresRegistry) AppendSegment(ctx context.Context, sessionID uuid.UUID, segment *models.Segment) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT true FROM sessions WHERE id = $1`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}

	segment.SessionID = sessionID
	if segment.SegmentID == uuid.Nil {
		segment.SegmentID = uuid.New()
	}
	if segment.CreatedAt.IsZero() {
		segment.CreatedAt = time.Now().UTC()
	}

	if segment.SegmentIndex < 0 {
		err := r.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(segment_index) + 1, 0) FROM segments WHERE session_id = $1`,
			sessionID,
		).Scan(&segment.SegmentIndex)
		if err != nil {
			return fmt.Errorf("next segment index: %w", err)
		}
	}

	query := `
		INSERT INTO segments (
			id, session_id, speaker, segment_index, segment_text,
			audio_locator, success, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, segment_index) DO UPDATE SET
			id = EXCLUDED.id,
			speaker = EXCLUDED.speaker,
			segment_text = EXCLUDED.segment_text,
			audio_locator = EXCLUDED.audio_locator,
			success = EXCLUDED.success,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.ExecContext(ctx, query,
		segment.SegmentID, segment.SessionID, segment.Speaker, segment.SegmentIndex,
		segment.Text, segment.AudioLocator, segment.Success, segment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert segment: %w", err)
	}

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("segment_id", segment.SegmentID.String()).
		Int("segment_index", segment.SegmentIndex).
		Msg("Segment appended")

	return nil
}

// ListSegments returns a session's segments ordered by index.
func (r *PostgresRegistry) ListSegments(ctx context.Context, sessionID uuid.UUID) ([]*models.Segment, error) {
	query := `
		SELECT id, session_id, speaker, segment_index, segment_text,
		       audio_locator, success, created_at
		FROM segments
		WHERE session_id = $1
		ORDER BY segment_index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	segments := []*models.Segment{}
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(
			&seg.SegmentID, &seg.SessionID, &seg.Speaker, &seg.SegmentIndex,
			&seg.Text, &seg.AudioLocator, &seg.Success, &seg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, &seg)
	}
	return segments, rows.Err()
}

// GetSegment looks up one segment by ID within a session.
func (r *PostgresRegistry) GetSegment(ctx context.Context, sessionID, segmentID uuid.UUID) (*models.Segment, error) {
	query := `
		SELECT id, session_id, speaker, segment_index, segment_text,
		       audio_locator, success, created_at
		FROM segments
		WHERE session_id = $1 AND id = $2
	`

	var seg models.Segment
	err := r.db.QueryRowContext(ctx, query, sessionID, segmentID).Scan(
		&seg.SegmentID, &seg.SessionID, &seg.Speaker, &seg.SegmentIndex,
		&seg.Text, &seg.AudioLocator, &seg.Success, &seg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSegmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query segment: %w", err)
	}
	return &seg, nil
}
