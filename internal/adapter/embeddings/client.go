// Package embeddings provides an HTTP client for the embeddings API used to
// vectorize query text before searching the knowledge index.
package embeddings

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clearway-labs/regent/internal/port/cache"
)

// Client talks to an OpenAI-compatible embeddings endpoint.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client

	cache    cache.Cache
	cacheTTL time.Duration
}

// NewClient creates an embeddings client. cache may be nil to disable caching.
func NewClient(url, apiKey, model string, timeout time.Duration, c cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(c.model, text)

	if c.cache != nil {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			var vec []float64
			if err := json.Unmarshal(data, &vec); err == nil {
				return vec, nil
			}
		}
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embeddings API error %d: %s", resp.StatusCode, string(data))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal embeddings: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embeddings API returned no vectors")
	}

	vec := parsed.Data[0].Embedding
	if c.cache != nil {
		if encoded, err := json.Marshal(vec); err == nil {
			_ = c.cache.Set(ctx, key, encoded, c.cacheTTL)
		}
	}
	return vec, nil
}

// cacheKey derives a stable cache key from model and text.
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}
