package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/config"
	"github.com/cryptodaily/newsroom/internal/events"
	"github.com/cryptodaily/newsroom/internal/pipeline"
	"github.com/cryptodaily/newsroom/internal/registry"
	"github.com/cryptodaily/newsroom/internal/store"
	"github.com/cryptodaily/newsroom/internal/tts"
	"github.com/cryptodaily/newsroom/migrations"
)

// jobRunner adapts the pipeline to the consumer's handler interface.
type jobRunner struct {
	pipeline *pipeline.Pipeline
}

// HandleJob runs the audio pipeline for one conversation job. Per-segment
// failures are recorded in the registry, not surfaced as job errors, so a
// partially failed conversation is not redelivered forever.
func (j *jobRunner) HandleJob(ctx context.Context, job *events.ConversationJob) error {
	results, err := j.pipeline.Generate(ctx, job.SessionID, job.Script)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	log.Info().
		Str("session_id", job.SessionID.String()).
		Int("turns", len(results)).
		Int("failed", failed).
		Msg("Conversation job finished")

	// Cache entries for this run are not needed once the job is done; the
	// store re-hydrates them on a rerun.
	j.pipeline.Cache().Clear()

	return nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Newsroom worker")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	reg, cleanup, err := buildRegistry(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize registry")
	}
	defer cleanup()

	audioStore, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio store")
	}

	synth, err := tts.NewElevenLabsClient(
		cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.TTSModelID,
		cfg.VoiceAlex, cfg.VoiceMorgan,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize TTS client")
	}

	eventProducer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
	defer eventProducer.Close()

	pipe := pipeline.New(synth, audioStore, reg,
		pipeline.WithEventSink(eventProducer),
		pipeline.WithTimeout(cfg.PipelineTimeout),
	)

	consumer := events.NewConsumer(
		cfg.KafkaBrokers, cfg.KafkaTopicJobs, cfg.KafkaConsumerGroup,
		&jobRunner{pipeline: pipe},
	)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Consumer stopped with error")
	}

	log.Info().Msg("Worker exited")
}

// buildRegistry constructs the configured session registry. The returned
// cleanup closes the database connection for the postgres backend.
func buildRegistry(cfg *config.Config) (registry.Registry, func(), error) {
	switch cfg.RegistryBackend {
	case "postgres":
		db, err := registry.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(db.DB); err != nil {
			db.Close()
			return nil, nil, err
		}
		return registry.NewPostgresRegistry(db), func() { db.Close() }, nil
	default:
		reg, err := registry.NewFSRegistry(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		return reg, func() {}, nil
	}
}

// buildStore constructs the configured audio store backend.
func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "s3":
		return store.NewS3Store(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
			cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL, cfg.S3PublicURL,
		)
	case "ipfs":
		return store.NewIPFSStore(cfg.PinataJWT, cfg.PinataUploadURL, cfg.IPFSGateways, cfg.GatewayTimeout)
	default:
		return store.NewFSStore(cfg.StorageDir)
	}
}
