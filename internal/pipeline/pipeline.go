// Package pipeline runs the sequential audio generation loop: for each script
// line, reuse cached or stored audio when present, otherwise synthesize,
// store, and register the segment.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/cache"
	"github.com/cryptodaily/newsroom/internal/events"
	"github.com/cryptodaily/newsroom/internal/models"
	"github.com/cryptodaily/newsroom/internal/registry"
	"github.com/cryptodaily/newsroom/internal/store"
	"github.com/cryptodaily/newsroom/internal/tts"
)

// EventSink receives pipeline progress for cross-process consumers. The
// Kafka producer satisfies it; nil disables publishing.
type EventSink interface {
	PublishSegment(ctx context.Context, event events.SegmentEvent) error
}

// Pipeline generates conversation audio one segment at a time. A cache and
// the durable store make reruns idempotent: audio that already exists is
// never synthesized again.
type Pipeline struct {
	synth       tts.Synthesizer
	store       store.Store
	registry    registry.Registry
	cache       *cache.SegmentCache
	broadcaster *Broadcaster
	sink        EventSink
	timeout     time.Duration
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithBroadcaster attaches an in-process progress broadcaster.
func WithBroadcaster(b *Broadcaster) Option {
	return func(p *Pipeline) { p.broadcaster = b }
}

// WithEventSink attaches a cross-process progress sink.
func WithEventSink(s EventSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithTimeout bounds a whole Generate run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// New creates a pipeline. Each pipeline owns its own segment cache.
func New(synth tts.Synthesizer, st store.Store, reg registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		synth:    synth,
		store:    st,
		registry: reg,
		cache:    cache.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cache exposes the pipeline's segment cache for playback lookups.
func (p *Pipeline) Cache() *cache.SegmentCache {
	return p.cache
}

// Generate runs the full script for a session. One failed segment never
// aborts the batch: it is recorded with Success=false and the loop moves on.
// On cancellation the in-flight segment finishes; remaining segments are
// marked failed without being attempted. The error return is reserved for
// fatal conditions: an unknown session, or a registry that stops accepting
// writes mid-run.
func (p *Pipeline) Generate(ctx context.Context, sessionID uuid.UUID, script []models.ScriptLine) ([]models.SegmentResult, error) {
	if _, err := p.registry.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Int("turns", len(script)).
		Msg("Starting conversation pipeline")

	start := time.Now()
	results := make([]models.SegmentResult, 0, len(script))
	succeeded := 0

	for i, line := range script {
		if err := ctx.Err(); err != nil {
			log.Warn().
				Str("session_id", sessionID.String()).
				Int("segment_index", i).
				Msg("Pipeline cancelled, skipping remaining segments")
			for j := i; j < len(script); j++ {
				results = append(results, models.SegmentResult{
					Speaker:      script[j].Speaker,
					Text:         script[j].Text,
					SegmentIndex: j,
					Success:      false,
					Error:        err.Error(),
				})
			}
			break
		}

		p.emit(ctx, events.SegmentEvent{
			SessionID:    sessionID,
			Event:        events.EventSegmentStarted,
			Speaker:      line.Speaker,
			SegmentIndex: i,
			TotalTurns:   len(script),
		})

		result, err := p.runSegment(ctx, sessionID, i, line)
		if err != nil {
			log.Error().
				Err(err).
				Str("session_id", sessionID.String()).
				Int("segment_index", i).
				Msg("Registry write failed, aborting pipeline run")
			return nil, err
		}
		results = append(results, result)

		eventName := events.EventSegmentCompleted
		if result.Success {
			succeeded++
		} else {
			eventName = events.EventSegmentFailed
		}
		p.emit(ctx, events.SegmentEvent{
			SessionID:    sessionID,
			Event:        eventName,
			Speaker:      line.Speaker,
			SegmentIndex: i,
			TotalTurns:   len(script),
			Error:        result.Error,
		})
	}

	p.emit(ctx, events.SegmentEvent{
		SessionID:  sessionID,
		Event:      events.EventSessionCompleted,
		TotalTurns: len(script),
	})

	log.Info().
		Str("session_id", sessionID.String()).
		Int("succeeded", succeeded).
		Int("failed", len(results)-succeeded).
		Dur("elapsed", time.Since(start)).
		Msg("Conversation pipeline finished")

	return results, nil
}

// runSegment produces one segment end to end and records it in the registry.
// Synthesis and storage failures are folded into the result; a registry
// write failure is returned so the caller can abort the run.
func (p *Pipeline) runSegment(ctx context.Context, sessionID uuid.UUID, index int, line models.ScriptLine) (models.SegmentResult, error) {
	result := models.SegmentResult{
		Speaker:      line.Speaker,
		Text:         line.Text,
		SegmentIndex: index,
	}

	locator, err := p.ensureAudio(ctx, store.Key{SessionID: sessionID, Speaker: line.Speaker, Index: index}, line.Text)
	if err != nil {
		result.Error = err.Error()
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Int("segment_index", index).
			Str("speaker", string(line.Speaker)).
			Msg("Segment generation failed")
	} else {
		result.Success = true
		result.AudioLocator = locator
	}

	segment := &models.Segment{
		SessionID:    sessionID,
		Speaker:      line.Speaker,
		SegmentIndex: index,
		Text:         line.Text,
		AudioLocator: result.AudioLocator,
		Success:      result.Success,
	}
	if err := p.registry.AppendSegment(ctx, sessionID, segment); err != nil {
		return result, fmt.Errorf("record segment %d: %w", index, err)
	}

	return result, nil
}

// ensureAudio returns a locator for (key, text), synthesizing and storing
// only when neither the cache nor the store already has the artifact.
func (p *Pipeline) ensureAudio(ctx context.Context, key store.Key, text string) (string, error) {
	if entry, ok := p.cache.Lookup(key.SessionID, key.Speaker, key.Index); ok {
		log.Debug().
			Str("session_id", key.SessionID.String()).
			Int("segment_index", key.Index).
			Msg("Segment audio served from cache")
		return entry.Locator, nil
	}

	if locator, ok, err := p.store.Exists(ctx, key); err == nil && ok {
		p.cache.Insert(key.SessionID, key.Speaker, key.Index, cache.Entry{Locator: locator})
		log.Debug().
			Str("session_id", key.SessionID.String()).
			Int("segment_index", key.Index).
			Str("locator", locator).
			Msg("Segment audio already stored")
		return locator, nil
	} else if err != nil {
		log.Warn().Err(err).Int("segment_index", key.Index).Msg("Store existence check failed, regenerating")
	}

	audio, err := p.synth.Synthesize(ctx, text, key.Speaker)
	if err != nil {
		return "", err
	}

	locator, err := p.store.Put(ctx, key, audio)
	if err != nil {
		return "", err
	}

	p.cache.Insert(key.SessionID, key.Speaker, key.Index, cache.Entry{Locator: locator, Data: audio})
	return locator, nil
}

// emit delivers a progress event to the attached broadcaster and sink.
func (p *Pipeline) emit(ctx context.Context, event events.SegmentEvent) {
	if p.broadcaster != nil {
		p.broadcaster.Publish(event)
	}
	if p.sink != nil {
		if err := p.sink.PublishSegment(ctx, event); err != nil {
			log.Warn().Err(err).Str("event", event.Event).Msg("Failed to publish progress event")
		}
	}
}
