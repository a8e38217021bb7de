// Package tts turns script text into speech through an external
// text-to-speech service.
package tts

import (
	"context"
	"errors"

	"github.com/cryptodaily/newsroom/internal/models"
)

// ErrSynthesis wraps failures of the external TTS call (auth, quota,
// network, malformed response). The pipeline records these per segment and
// keeps going; it never retries the synthesis path itself.
var ErrSynthesis = errors.New("speech synthesis failed")

// Synthesizer converts one segment's text into audio bytes for the given
// speaker's voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speaker models.Speaker) ([]byte, error)
}
