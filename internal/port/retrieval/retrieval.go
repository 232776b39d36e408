// Package retrieval defines the port for the internal knowledge-search capability.
package retrieval

import (
	"context"

	"github.com/clearway-labs/regent/internal/domain/citation"
)

// Retriever searches the internal knowledge index for scored citations.
//
// Production adapters degrade to an empty slice on any internal failure and
// return a nil error; the error return exists so the orchestrator can treat a
// raising implementation as a task failure rather than crashing the request.
type Retriever interface {
	Search(ctx context.Context, text string) ([]citation.Record, error)

	// Ready reports whether the backing index is usable. Decided once at
	// construction and never mutated mid-request.
	Ready() bool
}
