package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "LEXSIFT_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "LEXSIFT_STORAGE_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		env: "LEXSIFT_BLOB_ENDPOINT", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Blob.Endpoint = v.(string) },
	},
	{
		env: "LEXSIFT_BLOB_ACCESS_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Blob.AccessKey = v.(string) },
	},
	{
		env: "LEXSIFT_BLOB_SECRET_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Blob.SecretKey = v.(string) },
	},
	{
		env: "LEXSIFT_BLOB_BUCKET", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Blob.Bucket = v.(string) },
	},
	{
		env: "LEXSIFT_BLOB_USE_SSL", typ: kBool,
		apply: func(cfg *Config, v any) { cfg.Blob.UseSSL = v.(bool) },
	},
	{
		env: "LEXSIFT_GEMINI_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
	},
	{
		env: "LEXSIFT_GEMINI_CREDENTIALS_FILE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.CredentialsFile = v.(string) },
	},
	{
		env: "LEXSIFT_GEMINI_PROJECT_ID", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.ProjectID = v.(string) },
	},
	{
		env: "LEXSIFT_GEMINI_REGION", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.Region = v.(string) },
	},
	{
		env: "LEXSIFT_GEMINI_GENERATION_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.GenerationModel = v.(string) },
	},
	{
		env: "LEXSIFT_GEMINI_EMBEDDING_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Gemini.EmbeddingModel = v.(string) },
	},
	{
		env: "LEXSIFT_RETRIEVAL_TOP_K", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
	},
	{
		env: "LEXSIFT_RETRIEVAL_CHUNK_SIZE", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.ChunkSize = v.(int) },
	},
	{
		env: "LEXSIFT_RETRIEVAL_CHUNK_OVERLAP", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Retrieval.ChunkOverlap = v.(int) },
	},
	{
		env: "LEXSIFT_ORCHESTRATION_MAX_ATTEMPTS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Orchestration.MaxAttempts = v.(int) },
	},
	{
		env: "LEXSIFT_ORCHESTRATION_WAIT_SECONDS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Orchestration.WaitIntervalSeconds = v.(int) },
	},
	{
		env: "LEXSIFT_ORCHESTRATION_SUMMARIZE_FALLBACK_CHARS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Orchestration.SummarizeFallbackChars = v.(int) },
	},
	{
		env: "LEXSIFT_ORCHESTRATION_CHAT_FALLBACK_CHARS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Orchestration.ChatFallbackChars = v.(int) },
	},
	{
		env: "LEXSIFT_AUTH_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Auth.Token = v.(string) },
	},
	{
		env: "LEXSIFT_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
