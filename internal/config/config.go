// Package config loads service configuration from defaults, an optional
// .env file, and LEXSIFT_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Storage       StorageConfig
	Blob          BlobConfig
	Gemini        GeminiConfig
	Retrieval     RetrievalConfig
	Orchestration OrchestrationConfig
	Auth          AuthConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GeminiConfig struct {
	APIKey          string
	CredentialsFile string
	ProjectID       string
	Region          string
	GenerationModel string
	EmbeddingModel  string
}

type RetrievalConfig struct {
	TopK         int
	ChunkSize    int
	ChunkOverlap int
}

type OrchestrationConfig struct {
	MaxAttempts            int
	WaitIntervalSeconds    int
	SummarizeFallbackChars int
	ChatFallbackChars      int
}

type AuthConfig struct {
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Blob: BlobConfig{
			Endpoint: "localhost:9000",
			Bucket:   "lexsift-docs",
		},
		Gemini: GeminiConfig{
			GenerationModel: "gemini-2.0-flash-001",
			EmbeddingModel:  "text-embedding-004",
		},
		Retrieval: RetrievalConfig{
			TopK:         4,
			ChunkSize:    512,
			ChunkOverlap: 100,
		},
		Orchestration: OrchestrationConfig{
			MaxAttempts:            8,
			WaitIntervalSeconds:    15,
			SummarizeFallbackChars: 15000,
			ChatFallbackChars:      8000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lexsift")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "lexsift")
}

// Load reads configuration from an optional .env file and LEXSIFT_*
// environment variables. Environment variables win over .env values.
func Load() (Config, error) {
	// Missing .env is fine; explicit env vars are the primary mechanism.
	_ = godotenv.Load()
	return loadFromEnv()
}

func loadFromEnv() (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Gemini.APIKey == "" && cfg.Gemini.CredentialsFile == "" {
		return fmt.Errorf("missing required config: set LEXSIFT_GEMINI_API_KEY or LEXSIFT_GEMINI_CREDENTIALS_FILE")
	}
	if cfg.Blob.AccessKey == "" || cfg.Blob.SecretKey == "" {
		return fmt.Errorf("missing required config: set LEXSIFT_BLOB_ACCESS_KEY and LEXSIFT_BLOB_SECRET_KEY")
	}
	if cfg.Blob.Bucket == "" {
		return fmt.Errorf("missing required config: LEXSIFT_BLOB_BUCKET must not be empty")
	}
	if cfg.Retrieval.ChunkOverlap >= cfg.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval chunk overlap (%d) must be smaller than chunk size (%d)",
			cfg.Retrieval.ChunkOverlap, cfg.Retrieval.ChunkSize)
	}
	return nil
}
