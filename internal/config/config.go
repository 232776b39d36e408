// Package config provides hierarchical configuration loading for Regent.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Regent service.
type Config struct {
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
	Features   Features   `yaml:"features"`
	Pinecone   Pinecone   `yaml:"pinecone"`
	Embeddings Embeddings `yaml:"embeddings"`
	Perplexity Perplexity `yaml:"perplexity"`
	Retry      Retry      `yaml:"retry"`
	Breaker    Breaker    `yaml:"breaker"`
	Cache      Cache      `yaml:"cache"`
	Tracing    Tracing    `yaml:"tracing"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Features toggles the retrieval backends per deployment. A request can
// narrow these further but never widen them past an unconfigured capability.
type Features struct {
	Retrieval      bool `yaml:"retrieval"`
	CitationSearch bool `yaml:"citation_search"`
	Hints          bool `yaml:"hints"`
}

// Pinecone holds vector index configuration for the internal knowledge base.
type Pinecone struct {
	APIKey    string        `yaml:"api_key"`
	IndexHost string        `yaml:"index_host"`
	Namespace string        `yaml:"namespace"`
	TopK      int           `yaml:"top_k"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Embeddings holds the embeddings API configuration.
type Embeddings struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Perplexity holds the citation-search and hint-generation API configuration.
type Perplexity struct {
	APIKey        string        `yaml:"api_key"`
	URL           string        `yaml:"url"`
	SearchModel   string        `yaml:"search_model"`
	HintModel     string        `yaml:"hint_model"`
	HintMaxTokens int           `yaml:"hint_max_tokens"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	HintTimeout   time.Duration `yaml:"hint_timeout"`
}

// Retry holds the upstream retry policy shared by all Perplexity calls.
type Retry struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Breaker holds circuit breaker configuration for upstream HTTP calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	MaxSizeMB    int64         `yaml:"max_size_mb"`
	EmbeddingTTL time.Duration `yaml:"embedding_ttl"`
}

// Tracing holds OpenTelemetry export configuration.
type Tracing struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8000",
			CORSOrigin: "*",
		},
		Logging: Logging{
			Level:   "info",
			Service: "regent",
		},
		Features: Features{
			Retrieval:      true,
			CitationSearch: true,
			Hints:          true,
		},
		Pinecone: Pinecone{
			IndexHost: "",
			Namespace: "",
			TopK:      3,
			Timeout:   15 * time.Second,
		},
		Embeddings: Embeddings{
			URL:     "http://localhost:8081/v1/embeddings",
			Model:   "all-mpnet-base-v2",
			Timeout: 15 * time.Second,
		},
		Perplexity: Perplexity{
			URL:           "https://api.perplexity.ai/chat/completions",
			SearchModel:   "sonar",
			HintModel:     "sonar",
			HintMaxTokens: 100,
			SearchTimeout: 30 * time.Second,
			HintTimeout:   20 * time.Second,
		},
		Retry: Retry{
			MaxAttempts:     3,
			InitialInterval: 4 * time.Second,
			MaxInterval:     10 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB:    64,
			EmbeddingTTL: time.Hour,
		},
		Tracing: Tracing{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
		},
	}
}
