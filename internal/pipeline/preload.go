package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/models"
	"github.com/cryptodaily/newsroom/internal/store"
)

const (
	preloadBatchSize    = 3
	preloadRetryRounds  = 2
	preloadMinBatchGap  = 200 * time.Millisecond
	preloadMaxBatchGap  = 500 * time.Millisecond
)

// Preload warms the cache and store for a script ahead of playback. Segments
// run in small concurrent batches with a randomized pause between batches to
// stay under upstream rate limits. Failed segments get extra retry rounds;
// whatever still fails is left for the on-demand path. Nothing is written to
// the registry.
func (p *Pipeline) Preload(ctx context.Context, sessionID uuid.UUID, script []models.ScriptLine) {
	pending := make([]int, 0, len(script))
	for i := range script {
		pending = append(pending, i)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("turns", len(script)).
		Msg("Preloading segment audio")

	for round := 0; round <= preloadRetryRounds; round++ {
		if len(pending) == 0 {
			break
		}
		if round > 0 {
			log.Warn().
				Int("round", round).
				Int("remaining", len(pending)).
				Msg("Retrying failed preload segments")
		}
		pending = p.preloadRound(ctx, sessionID, script, pending)
		if ctx.Err() != nil {
			return
		}
	}

	if len(pending) > 0 {
		log.Warn().
			Str("session_id", sessionID.String()).
			Int("failed", len(pending)).
			Msg("Preload finished with unrecovered segments")
		return
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("cached", p.cache.Len()).
		Msg("Preload complete")
}

// preloadRound attempts the given segment indices in batches and returns the
// indices that still failed.
func (p *Pipeline) preloadRound(ctx context.Context, sessionID uuid.UUID, script []models.ScriptLine, indices []int) []int {
	var (
		mu     sync.Mutex
		failed []int
	)

	for start := 0; start < len(indices); start += preloadBatchSize {
		if ctx.Err() != nil {
			return append(failed, indices[start:]...)
		}

		end := start + preloadBatchSize
		if end > len(indices) {
			end = len(indices)
		}

		var wg sync.WaitGroup
		for _, idx := range indices[start:end] {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				line := script[idx]
				key := store.Key{SessionID: sessionID, Speaker: line.Speaker, Index: idx}
				if _, err := p.ensureAudio(ctx, key, line.Text); err != nil {
					log.Warn().
						Err(err).
						Int("segment_index", idx).
						Str("speaker", string(line.Speaker)).
						Msg("Preload segment failed")
					mu.Lock()
					failed = append(failed, idx)
					mu.Unlock()
				}
			}(idx)
		}
		wg.Wait()

		if end < len(indices) {
			gap := preloadMinBatchGap + time.Duration(rand.Int63n(int64(preloadMaxBatchGap-preloadMinBatchGap)))
			select {
			case <-ctx.Done():
				return append(failed, indices[end:]...)
			case <-time.After(gap):
			}
		}
	}

	return failed
}
