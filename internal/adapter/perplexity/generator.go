package perplexity

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearway-labs/regent/internal/domain"
	"github.com/clearway-labs/regent/internal/port/generation"
)

// Generator implements the text-generation port used for next-step hints.
type Generator struct {
	client *Client
	model  string
}

// NewGenerator creates the generation adapter.
func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Ready reports whether the upstream API key was configured at startup.
func (g *Generator) Ready() bool { return g.client.Configured() }

// Generate produces one bounded completion for the prompt.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, ChatRequest{
		Model: g.model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Stream:    false,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
