// Package cache holds the process-lifetime index of generated segment audio.
// It only avoids redundant generation/upload work within one run; the durable
// store remains the source of truth and the cache is rebuilt from it on miss.
package cache

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

// Entry is a cached reference to a stored audio artifact. Data may be nil
// when only the locator is known (e.g. hydrated from an existence check).
type Entry struct {
	Locator string
	Data    []byte
}

// SegmentCache maps (session, speaker, segment index) to stored audio
// references. The session is part of the key so one shared pipeline never
// serves one session's audio to another. The pipeline is the single writer;
// playback may read concurrently.
type SegmentCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty segment cache.
func New() *SegmentCache {
	return &SegmentCache{entries: make(map[string]Entry)}
}

func cacheKey(sessionID uuid.UUID, speaker models.Speaker, index int) string {
	return fmt.Sprintf("%s_%s_%d", sessionID, speaker, index)
}

// Lookup returns the cached entry for (session, speaker, index), if any.
func (c *SegmentCache) Lookup(sessionID uuid.UUID, speaker models.Speaker, index int) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey(sessionID, speaker, index)]
	return e, ok
}

// Insert records an entry for (session, speaker, index). Idempotent; an
// existing entry is silently replaced (last write wins).
func (c *SegmentCache) Insert(sessionID uuid.UUID, speaker models.Speaker, index int, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(sessionID, speaker, index)] = e
}

// Clear drops all entries. Called when a conversation run is torn down; the
// store re-hydrates any entry that is still needed.
func (c *SegmentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of cached entries.
func (c *SegmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
