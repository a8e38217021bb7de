package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FSStore keeps audio artifacts on the local filesystem under
// <root>/sessions/<sessionID>/audio/<speaker>_<index>.mp3. It shares its root
// with the filesystem registry so a session's metadata and audio live side by
// side.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "sessions"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) keyPath(key Key) string {
	return filepath.Join("sessions", key.SessionID.String(), "audio", key.Basename()+".mp3")
}

// Put writes data to the session's audio directory. The returned locator is
// the path relative to the storage root.
func (s *FSStore) Put(ctx context.Context, key Key, data []byte) (string, error) {
	rel := s.keyPath(key)
	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	// Write to a temp file and rename so concurrent readers never observe a
	// partial artifact.
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".tmp-audio-*")
	if err != nil {
		return "", fmt.Errorf("create temp audio file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize audio file: %w", err)
	}

	log.Debug().
		Str("locator", rel).
		Int("size_bytes", len(data)).
		Msg("Audio artifact written")

	return filepath.ToSlash(rel), nil
}

// Get reads the bytes for a locator returned by Put.
func (s *FSStore) Get(ctx context.Context, locator string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(locator))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("invalid locator %q: %w", locator, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("locator %q: %w", locator, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read audio %q: %w", locator, err)
	}
	return data, nil
}

// Exists reports whether an artifact for key is already on disk.
func (s *FSStore) Exists(ctx context.Context, key Key) (string, bool, error) {
	rel := s.keyPath(key)
	if _, err := os.Stat(filepath.Join(s.root, rel)); err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat audio: %w", err)
	}
	return filepath.ToSlash(rel), true, nil
}
