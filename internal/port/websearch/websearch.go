// Package websearch defines the port for the external citation-search capability.
package websearch

import (
	"context"

	"github.com/clearway-labs/regent/internal/domain/citation"
)

// Analysis is the envelope returned by one citation search.
type Analysis struct {
	Query          string            `json:"query"`
	CitationsFound int               `json:"citations_found"`
	Citations      []citation.Record `json:"citations"`
	Summary        string            `json:"analysis_summary"`
	CitationTypes  []string          `json:"citation_types"`
}

// Searcher queries an external provider for regulatory citations.
// Unlike the internal Retriever, a Searcher may fail; the orchestrator turns
// any returned error into exactly one task-error stream event.
type Searcher interface {
	Search(ctx context.Context, text string) (*Analysis, error)

	// Ready reports whether the upstream is configured. Decided once at
	// construction and never mutated mid-request.
	Ready() bool
}
