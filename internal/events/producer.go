package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Producer wraps a Kafka writer bound to one topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a producer for the given topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
	}

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Kafka producer initialized")

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishConversation enqueues a conversation job for the worker. Keyed by
// session ID so all events for a session land on the same partition.
func (p *Producer) PublishConversation(ctx context.Context, job ConversationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation job: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(job.SessionID.String()),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Info().
		Str("session_id", job.SessionID.String()).
		Int("turns", len(job.Script)).
		Str("topic", p.topic).
		Msg("Conversation job published to Kafka")

	return nil
}

// PublishSegment publishes a pipeline progress event.
func (p *Producer) PublishSegment(ctx context.Context, event SegmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal segment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID.String()),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write segment event to kafka: %w", err)
	}

	log.Debug().
		Str("session_id", event.SessionID.String()).
		Str("event", event.Event).
		Int("segment_index", event.SegmentIndex).
		Msg("Segment event published to Kafka")

	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	log.Info().Msg("Closing Kafka producer")
	return p.writer.Close()
}
