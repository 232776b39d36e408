// Package generation defines the port for the text-generation capability
// consumed by the hint generator.
package generation

import "context"

// Request is a single bounded generation call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Generator produces one completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)

	// Ready reports whether the upstream is configured.
	Ready() bool
}
