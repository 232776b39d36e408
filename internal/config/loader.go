package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "regent.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "REGENT_PORT")
	setString(&cfg.Server.CORSOrigin, "REGENT_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "REGENT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "REGENT_LOG_SERVICE")

	setBool(&cfg.Features.Retrieval, "ENABLE_RAG")
	setBool(&cfg.Features.CitationSearch, "ENABLE_SONAR")
	setBool(&cfg.Features.Hints, "ENABLE_HINTS")

	// Upstream credentials keep their historical names.
	setString(&cfg.Pinecone.APIKey, "PINECONE_API_KEY")
	setString(&cfg.Pinecone.IndexHost, "PINECONE_INDEX_HOST")
	setString(&cfg.Pinecone.Namespace, "PINECONE_NAMESPACE")
	setInt(&cfg.Pinecone.TopK, "REGENT_PINECONE_TOP_K")
	setDuration(&cfg.Pinecone.Timeout, "REGENT_PINECONE_TIMEOUT")

	setString(&cfg.Embeddings.URL, "REGENT_EMBEDDINGS_URL")
	setString(&cfg.Embeddings.APIKey, "REGENT_EMBEDDINGS_API_KEY")
	setString(&cfg.Embeddings.Model, "REGENT_EMBEDDINGS_MODEL")
	setDuration(&cfg.Embeddings.Timeout, "REGENT_EMBEDDINGS_TIMEOUT")

	setString(&cfg.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	setString(&cfg.Perplexity.URL, "REGENT_PERPLEXITY_URL")
	setString(&cfg.Perplexity.SearchModel, "REGENT_SEARCH_MODEL")
	setString(&cfg.Perplexity.HintModel, "REGENT_HINT_MODEL")
	setInt(&cfg.Perplexity.HintMaxTokens, "REGENT_HINT_MAX_TOKENS")
	setDuration(&cfg.Perplexity.SearchTimeout, "REGENT_SEARCH_TIMEOUT")
	setDuration(&cfg.Perplexity.HintTimeout, "REGENT_HINT_TIMEOUT")

	setInt(&cfg.Retry.MaxAttempts, "REGENT_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.InitialInterval, "REGENT_RETRY_INITIAL_INTERVAL")
	setDuration(&cfg.Retry.MaxInterval, "REGENT_RETRY_MAX_INTERVAL")

	setInt(&cfg.Breaker.MaxFailures, "REGENT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "REGENT_BREAKER_TIMEOUT")

	setInt64(&cfg.Cache.MaxSizeMB, "REGENT_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.EmbeddingTTL, "REGENT_CACHE_EMBEDDING_TTL")

	setBool(&cfg.Tracing.Enabled, "REGENT_TRACING_ENABLED")
	setString(&cfg.Tracing.OTLPEndpoint, "REGENT_OTLP_ENDPOINT")
}

// validate checks that required fields are set. Missing upstream API keys are
// deliberately not an error: the corresponding capability simply reports not
// ready and the orchestrator skips it.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Pinecone.TopK < 1 {
		return errors.New("pinecone.top_k must be >= 1")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.MaxSizeMB < 1 {
		return errors.New("cache.max_size_mb must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
