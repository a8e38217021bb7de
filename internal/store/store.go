// Package store provides durable, content-addressed storage for generated
// segment audio. Artifacts are immutable once stored; regeneration produces a
// new locator rather than mutating in place.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cryptodaily/newsroom/internal/models"
)

// ErrNotFound is returned by Get when a locator is unknown or the artifact
// was never written. Readers racing the pipeline must treat it as a normal,
// retryable condition.
var ErrNotFound = errors.New("audio artifact not found")

// Key addresses an audio artifact. Backends may scope by session (fs, s3) or
// globally (ipfs), per the key layout they document.
type Key struct {
	SessionID uuid.UUID
	Speaker   models.Speaker
	Index     int
}

// Basename returns the canonical file stem for a key, e.g. "alex_3".
func (k Key) Basename() string {
	return fmt.Sprintf("%s_%d", strings.ToLower(string(k.Speaker)), k.Index)
}

// Store persists and retrieves audio bytes. Locators are opaque to callers:
// a relative path for the fs backend, an object key for s3, a CID for ipfs.
type Store interface {
	// Put stores data under key and returns a stable locator. Safe to call
	// again for the same key; callers check Exists first to avoid redundant
	// writes.
	Put(ctx context.Context, key Key, data []byte) (string, error)
	// Get retrieves previously stored bytes. Returns ErrNotFound when the
	// locator is unknown.
	Get(ctx context.Context, locator string) ([]byte, error)
	// Exists reports whether an artifact for key is already stored and, if
	// so, its locator.
	Exists(ctx context.Context, key Key) (string, bool, error)
}

// URLProvider is implemented by stores that can hand out a direct download
// URL for a locator. The API redirects playback to it instead of proxying
// the audio bytes.
type URLProvider interface {
	AudioURL(locator string, expiration time.Duration) (string, error)
}
