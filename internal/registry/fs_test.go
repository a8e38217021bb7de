package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

func newTestRegistry(t *testing.T) *FSRegistry {
	t.Helper()
	r, err := NewFSRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSRegistry: %v", err)
	}
	return r
}

func TestCreateAndGetSession(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	created, err := r.CreateSession(ctx, "Evening Bulletin")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := r.GetSession(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Name != "Evening Bulletin" {
		t.Errorf("name = %q", got.Name)
	}
	if len(got.Segments) != 0 {
		t.Errorf("segments = %d, want 0", len(got.Segments))
	}
}

func TestGetSessionUnknown(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.GetSession(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestAppendSegmentSortsByIndex(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	session, err := r.CreateSession(ctx, "ordering")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Append out of order: 2, 0, 1.
	for _, idx := range []int{2, 0, 1} {
		seg := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: idx, Text: "t"}
		if err := r.AppendSegment(ctx, session.SessionID, seg); err != nil {
			t.Fatalf("AppendSegment(%d): %v", idx, err)
		}
	}

	got, err := r.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(got.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(got.Segments))
	}
	for i, seg := range got.Segments {
		if seg.SegmentIndex != i {
			t.Errorf("segments[%d].SegmentIndex = %d", i, seg.SegmentIndex)
		}
	}
}

func TestAppendSegmentDefaultsToEnd(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	session, _ := r.CreateSession(ctx, "append")

	first := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: -1, Text: "a"}
	if err := r.AppendSegment(ctx, session.SessionID, first); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}
	if first.SegmentIndex != 0 {
		t.Errorf("first index = %d, want 0", first.SegmentIndex)
	}

	second := &models.Segment{Speaker: models.SpeakerMorgan, SegmentIndex: -1, Text: "b"}
	if err := r.AppendSegment(ctx, session.SessionID, second); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}
	if second.SegmentIndex != 1 {
		t.Errorf("second index = %d, want 1", second.SegmentIndex)
	}
}

func TestAppendSegmentReplacesSameIndex(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	session, _ := r.CreateSession(ctx, "replace")

	old := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: 0, Text: "old take"}
	if err := r.AppendSegment(ctx, session.SessionID, old); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}

	redo := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: 0, Text: "new take"}
	if err := r.AppendSegment(ctx, session.SessionID, redo); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}

	got, _ := r.GetSession(ctx, session.SessionID)
	if len(got.Segments) != 1 {
		t.Fatalf("segments = %d, want 1 (replaced, not duplicated)", len(got.Segments))
	}
	if got.Segments[0].Text != "new take" {
		t.Errorf("text = %q", got.Segments[0].Text)
	}
}

func TestAppendSegmentUnknownSession(t *testing.T) {
	r := newTestRegistry(t)

	seg := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: 0, Text: "t"}
	err := r.AppendSegment(context.Background(), uuid.New(), seg)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound (no implicit session creation)", err)
	}
}

func TestGetSegment(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	session, _ := r.CreateSession(ctx, "lookup")
	seg := &models.Segment{Speaker: models.SpeakerMorgan, SegmentIndex: 0, Text: "hello"}
	if err := r.AppendSegment(ctx, session.SessionID, seg); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}

	got, err := r.GetSegment(ctx, session.SessionID, seg.SegmentID)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("text = %q", got.Text)
	}

	if _, err := r.GetSegment(ctx, session.SessionID, uuid.New()); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("err = %v, want ErrSegmentNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	a, _ := r.CreateSession(ctx, "first")
	b, _ := r.CreateSession(ctx, "second")

	seg := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: 0, Text: "t"}
	if err := r.AppendSegment(ctx, b.SessionID, seg); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}

	summaries, err := r.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("sessions = %d, want 2", len(summaries))
	}

	counts := map[uuid.UUID]int{}
	for _, s := range summaries {
		counts[s.SessionID] = s.SegmentCount
	}
	if counts[a.SessionID] != 0 || counts[b.SessionID] != 1 {
		t.Errorf("segment counts = %v", counts)
	}
}

func TestSessionSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	r1, err := NewFSRegistry(dir)
	if err != nil {
		t.Fatalf("NewFSRegistry: %v", err)
	}
	ctx := context.Background()

	session, _ := r1.CreateSession(ctx, "durable")
	seg := &models.Segment{Speaker: models.SpeakerAlex, SegmentIndex: 0, Text: "persisted"}
	if err := r1.AppendSegment(ctx, session.SessionID, seg); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}

	// A fresh registry over the same directory sees the session.
	r2, err := NewFSRegistry(dir)
	if err != nil {
		t.Fatalf("NewFSRegistry: %v", err)
	}
	got, err := r2.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("GetSession after reload: %v", err)
	}
	if len(got.Segments) != 1 || got.Segments[0].Text != "persisted" {
		t.Errorf("reloaded session = %+v", got)
	}
}
