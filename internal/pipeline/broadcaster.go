package pipeline

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/events"
)

// Broadcaster fans pipeline progress out to in-process subscribers, one
// group per session. The WebSocket progress feed subscribes here.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan events.SegmentEvent]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uuid.UUID]map[chan events.SegmentEvent]struct{})}
}

// Subscribe registers a listener for one session's events. The returned
// cancel function removes the subscription and closes the channel.
func (b *Broadcaster) Subscribe(sessionID uuid.UUID) (<-chan events.SegmentEvent, func()) {
	ch := make(chan events.SegmentEvent, 32)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan events.SegmentEvent]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[sessionID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, sessionID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its session. Events for
// slow subscribers are dropped rather than blocking the pipeline.
func (b *Broadcaster) Publish(event events.SegmentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[event.SessionID] {
		select {
		case ch <- event:
		default:
			log.Warn().
				Str("session_id", event.SessionID.String()).
				Str("event", event.Event).
				Msg("Dropping progress event for slow subscriber")
		}
	}
}
