package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

func TestLookupMiss(t *testing.T) {
	c := New()
	if _, ok := c.Lookup(uuid.New(), models.SpeakerAlex, 0); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestInsertAndLookup(t *testing.T) {
	c := New()
	sessionID := uuid.New()
	c.Insert(sessionID, models.SpeakerAlex, 2, Entry{Locator: "cid-a", Data: []byte("mp3")})

	e, ok := c.Lookup(sessionID, models.SpeakerAlex, 2)
	if !ok {
		t.Fatal("expected hit")
	}
	if e.Locator != "cid-a" {
		t.Errorf("locator = %q, want cid-a", e.Locator)
	}
	if string(e.Data) != "mp3" {
		t.Errorf("data = %q", e.Data)
	}

	// Same index, different speaker is a distinct key.
	if _, ok := c.Lookup(sessionID, models.SpeakerMorgan, 2); ok {
		t.Error("speaker should be part of the key")
	}
}

func TestKeyIsSessionScoped(t *testing.T) {
	c := New()
	sessionA := uuid.New()
	sessionB := uuid.New()

	c.Insert(sessionA, models.SpeakerAlex, 0, Entry{Locator: "session-a-audio"})

	// Same speaker and index under another session must miss.
	if _, ok := c.Lookup(sessionB, models.SpeakerAlex, 0); ok {
		t.Error("session should be part of the key")
	}

	c.Insert(sessionB, models.SpeakerAlex, 0, Entry{Locator: "session-b-audio"})
	a, _ := c.Lookup(sessionA, models.SpeakerAlex, 0)
	b, _ := c.Lookup(sessionB, models.SpeakerAlex, 0)
	if a.Locator == b.Locator {
		t.Errorf("sessions share a cache entry: %q", a.Locator)
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestInsertReplaces(t *testing.T) {
	c := New()
	sessionID := uuid.New()
	c.Insert(sessionID, models.SpeakerMorgan, 0, Entry{Locator: "old"})
	c.Insert(sessionID, models.SpeakerMorgan, 0, Entry{Locator: "new"})

	e, _ := c.Lookup(sessionID, models.SpeakerMorgan, 0)
	if e.Locator != "new" {
		t.Errorf("locator = %q, want new (last write wins)", e.Locator)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestClear(t *testing.T) {
	c := New()
	sessionID := uuid.New()
	for i := 0; i < 5; i++ {
		c.Insert(sessionID, models.SpeakerAlex, i, Entry{Locator: fmt.Sprintf("cid-%d", i)})
	}
	if c.Len() != 5 {
		t.Fatalf("len = %d, want 5", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", c.Len())
	}
	if _, ok := c.Lookup(sessionID, models.SpeakerAlex, 0); ok {
		t.Error("expected miss after clear")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	sessionID := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Insert(sessionID, models.SpeakerAlex, i, Entry{Locator: fmt.Sprintf("cid-%d", i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Lookup(sessionID, models.SpeakerAlex, i)
		}(i)
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Errorf("len = %d, want 50", c.Len())
	}
}
