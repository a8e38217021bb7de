package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/events"
	"github.com/cryptodaily/newsroom/internal/models"
	"github.com/cryptodaily/newsroom/internal/registry"
	"github.com/cryptodaily/newsroom/internal/store"
	"github.com/cryptodaily/newsroom/internal/tts"
)

// fakeSynth is a Synthesizer that counts calls and can fail on chosen texts.
type fakeSynth struct {
	mu     sync.Mutex
	calls  int
	failOn map[string]bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, speaker models.Speaker) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOn[text] {
		return nil, fmt.Errorf("%w: injected failure", tts.ErrSynthesis)
	}
	return []byte("audio:" + string(speaker) + ":" + text), nil
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDeps(t *testing.T) (*fakeSynth, store.Store, registry.Registry, uuid.UUID) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	reg, err := registry.NewFSRegistry(dir)
	if err != nil {
		t.Fatalf("NewFSRegistry: %v", err)
	}
	session, err := reg.CreateSession(context.Background(), "pipeline test")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return &fakeSynth{}, st, reg, session.SessionID
}

func testScript(n int) []models.ScriptLine {
	script := make([]models.ScriptLine, n)
	for i := range script {
		speaker := models.SpeakerAlex
		if i%2 == 1 {
			speaker = models.SpeakerMorgan
		}
		script[i] = models.ScriptLine{Speaker: speaker, Text: fmt.Sprintf("line %d", i)}
	}
	return script
}

func TestGenerateProducesOrderedResults(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)
	p := New(synth, st, reg)

	script := testScript(4)
	results, err := p.Generate(context.Background(), sessionID, script)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	for i, r := range results {
		if r.SegmentIndex != i {
			t.Errorf("results[%d].SegmentIndex = %d", i, r.SegmentIndex)
		}
		if !r.Success {
			t.Errorf("results[%d] failed: %s", i, r.Error)
		}
		if r.AudioLocator == "" {
			t.Errorf("results[%d] has no locator", i)
		}
	}

	session, err := reg.GetSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(session.Segments) != 4 {
		t.Errorf("registry segments = %d, want 4", len(session.Segments))
	}
}

func TestGeneratePartialFailureContinues(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)
	synth.failOn = map[string]bool{"line 1": true}
	p := New(synth, st, reg)

	results, err := p.Generate(context.Background(), sessionID, testScript(3))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 (one failure must not abort the batch)", len(results))
	}
	if results[0].Success != true || results[2].Success != true {
		t.Errorf("surrounding segments should succeed: %+v", results)
	}
	if results[1].Success {
		t.Error("segment 1 should have failed")
	}
	if results[1].Error == "" {
		t.Error("failed segment should carry an error message")
	}

	// The failed segment is still recorded with Success=false.
	session, _ := reg.GetSession(context.Background(), sessionID)
	if len(session.Segments) != 3 {
		t.Fatalf("registry segments = %d, want 3", len(session.Segments))
	}
	if session.Segments[1].Success {
		t.Error("registry should record the failure")
	}
}

func TestGenerateRerunIsIdempotent(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)
	p := New(synth, st, reg)

	script := testScript(3)
	if _, err := p.Generate(context.Background(), sessionID, script); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if synth.callCount() != 3 {
		t.Fatalf("first run calls = %d, want 3", synth.callCount())
	}

	results, err := p.Generate(context.Background(), sessionID, script)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if synth.callCount() != 3 {
		t.Errorf("second run should synthesize nothing, total calls = %d", synth.callCount())
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("rerun results[%d] failed: %s", i, r.Error)
		}
	}
}

func TestGenerateHydratesFromStoreWithColdCache(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)

	script := testScript(2)
	p1 := New(synth, st, reg)
	if _, err := p1.Generate(context.Background(), sessionID, script); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// A new pipeline has an empty cache but finds the artifacts in the store.
	p2 := New(synth, st, reg)
	if _, err := p2.Generate(context.Background(), sessionID, script); err != nil {
		t.Fatalf("Generate with cold cache: %v", err)
	}
	if synth.callCount() != 2 {
		t.Errorf("cold-cache rerun should hit the store, total calls = %d", synth.callCount())
	}
	if p2.Cache().Len() != 2 {
		t.Errorf("cache should be hydrated from the store, len = %d", p2.Cache().Len())
	}
}

func TestGenerateCacheIsSessionScoped(t *testing.T) {
	synth, st, reg, sessionA := newTestDeps(t)
	sessionB, err := reg.CreateSession(context.Background(), "second session")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// One long-lived pipeline serving both sessions, same speaker and index.
	p := New(synth, st, reg)
	scriptA := []models.ScriptLine{{Speaker: models.SpeakerAlex, Text: "opening for session A"}}
	scriptB := []models.ScriptLine{{Speaker: models.SpeakerAlex, Text: "opening for session B"}}

	resultsA, err := p.Generate(context.Background(), sessionA, scriptA)
	if err != nil {
		t.Fatalf("Generate A: %v", err)
	}
	resultsB, err := p.Generate(context.Background(), sessionB.SessionID, scriptB)
	if err != nil {
		t.Fatalf("Generate B: %v", err)
	}

	// Session B must synthesize its own audio, not reuse A's cache entry.
	if synth.callCount() != 2 {
		t.Errorf("calls = %d, want 2 (one per session)", synth.callCount())
	}
	if resultsA[0].AudioLocator == resultsB[0].AudioLocator {
		t.Errorf("sessions share a locator: %q", resultsA[0].AudioLocator)
	}
	if !strings.Contains(resultsB[0].AudioLocator, sessionB.SessionID.String()) {
		t.Errorf("session B locator %q does not point into session B", resultsB[0].AudioLocator)
	}
	if strings.Contains(resultsB[0].AudioLocator, sessionA.String()) {
		t.Errorf("session B locator %q points into session A", resultsB[0].AudioLocator)
	}

	audioB, err := st.Get(context.Background(), resultsB[0].AudioLocator)
	if err != nil {
		t.Fatalf("Get B audio: %v", err)
	}
	if string(audioB) != "audio:Alex:opening for session B" {
		t.Errorf("session B audio = %q", audioB)
	}
}

// failingAppendRegistry errors on AppendSegment after a set number of calls.
type failingAppendRegistry struct {
	registry.Registry
	okCalls int
	calls   int
}

func (f *failingAppendRegistry) AppendSegment(ctx context.Context, sessionID uuid.UUID, segment *models.Segment) error {
	f.calls++
	if f.calls > f.okCalls {
		return fmt.Errorf("registry unavailable")
	}
	return f.Registry.AppendSegment(ctx, sessionID, segment)
}

func TestGenerateRegistryFailureAborts(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)
	failing := &failingAppendRegistry{Registry: reg, okCalls: 1}
	p := New(synth, st, failing)

	results, err := p.Generate(context.Background(), sessionID, testScript(3))
	if err == nil {
		t.Fatal("expected error when the registry stops accepting writes")
	}
	if results != nil {
		t.Errorf("results = %+v, want nil on abort", results)
	}

	// Segment 0 was recorded before the registry went away; nothing after.
	session, getErr := reg.GetSession(context.Background(), sessionID)
	if getErr != nil {
		t.Fatalf("GetSession: %v", getErr)
	}
	if len(session.Segments) != 1 {
		t.Errorf("registry segments = %d, want 1", len(session.Segments))
	}
}

func TestGenerateUnknownSession(t *testing.T) {
	synth, st, reg, _ := newTestDeps(t)
	p := New(synth, st, reg)

	_, err := p.Generate(context.Background(), uuid.New(), testScript(1))
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestGenerateCancellationStopsBetweenSegments(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)
	p := New(synth, st, reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.Generate(ctx, sessionID, testScript(3))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 (remaining segments marked failed)", len(results))
	}
	for i, r := range results {
		if r.Success {
			t.Errorf("results[%d] should be failed after cancellation", i)
		}
	}
	if synth.callCount() != 0 {
		t.Errorf("no synthesis expected after cancellation, calls = %d", synth.callCount())
	}
}

func TestGenerateEmitsProgressEvents(t *testing.T) {
	synth, st, reg, sessionID := newTestDeps(t)
	b := NewBroadcaster()
	p := New(synth, st, reg, WithBroadcaster(b))

	ch, cancel := b.Subscribe(sessionID)
	defer cancel()

	if _, err := p.Generate(context.Background(), sessionID, testScript(2)); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var got []string
	for len(got) < 5 {
		e := <-ch
		got = append(got, e.Event)
	}

	want := []string{
		events.EventSegmentStarted, events.EventSegmentCompleted,
		events.EventSegmentStarted, events.EventSegmentCompleted,
		events.EventSessionCompleted,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
