// Package perplexity provides the HTTP client and capability adapters for the
// Perplexity chat-completions API, which backs both the external citation
// search and next-step hint generation.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/clearway-labs/regent/internal/resilience"
)

// RetryPolicy bounds the retry loop around one upstream request.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client talks to the Perplexity chat-completions endpoint.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	retry      RetryPolicy
	breaker    *resilience.Breaker
}

// NewClient creates a Perplexity client. An empty apiKey leaves the client
// usable but never ready; callers gate on the adapters' Ready methods.
func NewClient(apiURL, apiKey string, timeout time.Duration, retry RetryPolicy) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// BreakerState exposes the breaker position for the debug endpoint.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the completion request body.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// SourceCitation is a structured citation attached to a response.
type SourceCitation struct {
	Title string `json:"title"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// ToolOutput carries structured citations from a tool invocation.
type ToolOutput struct {
	Citations []SourceCitation `json:"citations"`
}

// ResponseMessage is the assistant message in a completion response.
type ResponseMessage struct {
	Content     string           `json:"content"`
	ToolOutputs []ToolOutput     `json:"tool_outputs,omitempty"`
	Sources     []SourceCitation `json:"sources,omitempty"`
}

// ChatResponse is the completion response body.
type ChatResponse struct {
	Choices []struct {
		Message ResponseMessage `json:"message"`
	} `json:"choices"`
}

// CreateChatCompletion issues one completion request under the retry policy:
// up to MaxAttempts attempts with exponential backoff between them. The
// context cancels both the in-flight request and any remaining backoff wait.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	var result *ChatResponse
	operation := func() error {
		resp, err := c.doRequest(ctx, body)
		if err != nil {
			return err
		}
		result = resp
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retry.InitialInterval
	policy.MaxInterval = c.retry.MaxInterval
	policy.MaxElapsedTime = 0 // attempts are bounded by count, not wall clock

	retries := uint64(0)
	if c.retry.MaxAttempts > 1 {
		retries = uint64(c.retry.MaxAttempts - 1)
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (*ChatResponse, error) {
	var result *ChatResponse
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("perplexity API error %d: %s", resp.StatusCode, string(data))
		}

		var parsed ChatResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("unmarshal chat response: %w", err)
		}
		result = &parsed
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
