package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string

	// Auth: bcrypt hash of the API bearer token. Empty disables auth (dev mode).
	APITokenHash string

	// Registry backend: "fs" or "postgres"
	RegistryBackend string
	StorageDir      string // root for the filesystem registry and fs audio store
	DatabaseURL     string // required when RegistryBackend is postgres

	// Audio store backend: "fs", "s3" or "ipfs"
	StoreBackend string

	// S3/Storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3PublicURL string

	// IPFS pinning (Pinata-compatible)
	PinataJWT       string
	PinataUploadURL string
	IPFSGateways    []string // tried in order on reads
	GatewayTimeout  time.Duration

	// ElevenLabs TTS
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	TTSModelID        string
	VoiceAlex         string
	VoiceMorgan       string

	// OpenAI (script generation + summarization)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Kafka
	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaTopicJobs     string
	KafkaTopicEvents   string

	// Pipeline
	DefaultTurns    int
	MaxTurns        int
	MaxTextLength   int
	PipelineTimeout time.Duration // 0 disables the overall bound
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APITokenHash: getEnv("API_TOKEN_HASH", ""),

		RegistryBackend: getEnv("REGISTRY_BACKEND", "fs"),
		StorageDir:      getEnv("STORAGE_DIR", "./storage"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		StoreBackend: getEnv("STORE_BACKEND", "fs"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "newsroom-audio"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:    getEnvBool("S3_USE_SSL", false),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		PinataJWT:       getEnv("PINATA_JWT", ""),
		PinataUploadURL: getEnv("PINATA_UPLOAD_URL", "https://uploads.pinata.cloud/v3/files"),
		IPFSGateways: getEnvList("IPFS_GATEWAYS", []string{
			"https://gateway.pinata.cloud",
			"https://ipfs.io",
			"https://cloudflare-ipfs.com",
		}),
		GatewayTimeout: getEnvDuration("IPFS_GATEWAY_TIMEOUT", 10*time.Second),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		TTSModelID:        getEnv("TTS_MODEL_ID", "eleven_multilingual_v2"),
		VoiceAlex:         getEnv("VOICE_ALEX", "onwK4e9ZLuTAKqWW03F9"),
		VoiceMorgan:       getEnv("VOICE_MORGAN", "Zlb1dXrM653N07WRdFW3"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "newsroom-worker-main"),
		KafkaTopicJobs:     getEnv("KAFKA_TOPIC_JOBS", "newsroom.conversations.v1"),
		KafkaTopicEvents:   getEnv("KAFKA_TOPIC_EVENTS", "newsroom.segments.v1"),

		DefaultTurns:    getEnvInt("DEFAULT_TURNS", 8),
		MaxTurns:        getEnvInt("MAX_TURNS", 40),
		MaxTextLength:   getEnvInt("MAX_TEXT_LENGTH", 5000),
		PipelineTimeout: getEnvDuration("PIPELINE_TIMEOUT", 0),
	}
}

// Validate checks that the configured backends have the credentials they
// need. Called once at startup; a failure here is fatal.
func (c *Config) Validate() error {
	switch c.RegistryBackend {
	case "fs":
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the fs registry")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres registry")
		}
	default:
		return fmt.Errorf("invalid REGISTRY_BACKEND: %q (must be fs or postgres)", c.RegistryBackend)
	}

	switch c.StoreBackend {
	case "fs":
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the fs audio store")
		}
	case "s3":
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 audio store")
		}
	case "ipfs":
		if c.PinataJWT == "" {
			return fmt.Errorf("PINATA_JWT is required for the ipfs audio store")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q (must be fs, s3 or ipfs)", c.StoreBackend)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
