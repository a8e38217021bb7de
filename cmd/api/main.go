package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cryptodaily/newsroom/internal/auth"
	"github.com/cryptodaily/newsroom/internal/config"
	"github.com/cryptodaily/newsroom/internal/events"
	"github.com/cryptodaily/newsroom/internal/handlers"
	"github.com/cryptodaily/newsroom/internal/llm"
	"github.com/cryptodaily/newsroom/internal/pipeline"
	"github.com/cryptodaily/newsroom/internal/registry"
	"github.com/cryptodaily/newsroom/internal/store"
	"github.com/cryptodaily/newsroom/internal/tts"
	"github.com/cryptodaily/newsroom/migrations"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Newsroom API")

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

	broadcaster := pipeline.NewBroadcaster()
	pipe := pipeline.New(synth, audioStore, reg,
		pipeline.WithBroadcaster(broadcaster),
		pipeline.WithTimeout(cfg.PipelineTimeout),
	)

	var scripts handlers.ScriptService
	if cfg.OpenAIAPIKey != "" {
		llmClient, err := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize LLM client")
		}
		scripts = llmClient
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set; conversation and summarize endpoints disabled")
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicJobs)
	defer producer.Close()

	h := handlers.NewHandler(reg, audioStore, pipe, scripts, producer, broadcaster, cfg)

	r := h.Routes(auth.Middleware(cfg.APITokenHash))

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No write timeout: generate runs synthesize the whole script and
		// the progress feed holds its connection open.
		WriteTimeout: 0,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
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
