package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// JobHandler processes conversation jobs pulled off the queue.
type JobHandler interface {
	HandleJob(ctx context.Context, job *ConversationJob) error
}

// Consumer wraps a Kafka reader on the conversation jobs topic. Offsets are
// committed manually, only after the handler succeeds or the message is
// deliberately skipped.
type Consumer struct {
	reader  *kafka.Reader
	handler JobHandler
}

// NewConsumer creates a consumer in the given group.
func NewConsumer(brokers []string, topic, groupID string, handler JobHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits only
		// Start from earliest when no committed offset exists so jobs
		// published before the first worker came up are not lost.
		StartOffset: kafka.FirstOffset,
	})

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		reader:  reader,
		handler: handler,
	}
}

// Start consumes jobs until the context is cancelled. Failed jobs are retried
// with exponential backoff; after maxRetriesSkip attempts the message is
// committed and skipped so one poisoned job cannot block the partition.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer")

	const (
		maxBackoffShift = 10
		baseDelay       = 1 * time.Second
		maxDelay        = 5 * time.Minute
		maxRetriesSkip  = 50
	)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Consumer context cancelled, stopping")
			return ctx.Err()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error().Err(err).Msg("Failed to fetch message")
				continue
			}

			var lastErr error
			for attempt := 0; attempt < maxRetriesSkip; attempt++ {
				if err := c.processMessage(ctx, msg); err != nil {
					lastErr = err

					log.Error().
						Err(err).
						Str("topic", msg.Topic).
						Int("partition", msg.Partition).
						Int64("offset", msg.Offset).
						Int("attempt", attempt+1).
						Int("max_retries", maxRetriesSkip).
						Msg("Failed to process job - will retry")

					delay := baseDelay * time.Duration(1<<uint(min(attempt, maxBackoffShift)))
					if delay > maxDelay {
						delay = maxDelay
					}

					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(delay):
						continue
					}
				} else {
					lastErr = nil
					if err := c.reader.CommitMessages(ctx, msg); err != nil {
						// Message already processed; on redelivery the pipeline
						// finds the audio in the store and skips synthesis.
						log.Error().Err(err).Msg("Failed to commit message")
					}
					break
				}
			}

			if lastErr != nil {
				log.Error().
					Err(lastErr).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("CRITICAL: Job failed after all retries - SKIPPING MESSAGE")

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					log.Error().Err(err).Msg("Failed to commit skipped message")
				}
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	log.Debug().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("Processing job message")

	var job ConversationJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	if err := c.handler.HandleJob(ctx, &job); err != nil {
		return fmt.Errorf("handler error: %w", err)
	}

	log.Info().
		Str("session_id", job.SessionID.String()).
		Int("turns", len(job.Script)).
		Msg("Conversation job processed successfully")

	return nil
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	return c.reader.Close()
}
