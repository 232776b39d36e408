// Package query defines the compliance query and orchestration result entities.
package query

import (
	"fmt"
	"strings"

	"github.com/clearway-labs/regent/internal/domain"
	"github.com/clearway-labs/regent/internal/domain/citation"
)

// Query is a single user question plus the feature flags controlling which
// retrieval backends participate. Immutable once accepted.
type Query struct {
	Text              string `json:"text"`
	UseRetrieval      bool   `json:"use_rag"`
	UseCitationSearch bool   `json:"use_sonar"`
	UseHints          bool   `json:"use_hints"`
}

// Validate rejects queries whose text is empty after trimming.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text cannot be empty", domain.ErrValidation)
	}
	return nil
}

// Hints is the combined output of the hint generator.
type Hints struct {
	BasicHints   []string `json:"basic_hints"`
	NextStepHint *string  `json:"next_step_hint"`
	Query        string   `json:"query"`
}

// Summary holds the aggregate citation counts of one orchestration.
type Summary struct {
	InternalCount  int `json:"internal_count"`
	ExternalCount  int `json:"external_count"`
	TotalCitations int `json:"total_citations"`
}

// Result is the aggregate outcome of one orchestration run. It is built
// incrementally by the orchestrator and immutable once the terminal event
// has been emitted.
type Result struct {
	Query    string
	Internal []citation.Record
	External []citation.Record
	Hints    *Hints
}

// NextStepHint returns the generated next-step hint, or nil when hints were
// disabled or no citations were available.
func (r *Result) NextStepHint() *string {
	if r.Hints == nil {
		return nil
	}
	return r.Hints.NextStepHint
}

// Summary computes the citation counts for the terminal payload.
func (r *Result) Summary() Summary {
	return Summary{
		InternalCount:  len(r.Internal),
		ExternalCount:  len(r.External),
		TotalCitations: len(r.Internal) + len(r.External),
	}
}
