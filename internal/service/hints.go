package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clearway-labs/regent/internal/domain"
	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/domain/query"
	"github.com/clearway-labs/regent/internal/port/generation"
)

const (
	maxBasicHints       = 3
	maxContextCitations = 3
	maxExcerptLen       = 200

	hintSystemPrompt = "You are a concise assistant providing actionable next steps for compliance " +
		"and regulatory queries. Keep responses short and practical."

	// Substituted when generation fails after retries.
	fallbackHint = "Could not generate a next step hint at this time. Please review the provided citations."

	// Substituted when the upstream answers with no choices.
	emptyCompletionHint = "Review the provided citations and consider consulting relevant documentation for more details."
)

// HintService produces rule-based hints and one model-generated next step.
type HintService struct {
	gen       generation.Generator
	maxTokens int
}

// NewHintService creates a HintService. gen may be nil when hint generation
// is not configured; rule-based hints still work in that case.
func NewHintService(gen generation.Generator, maxTokens int) *HintService {
	return &HintService{gen: gen, maxTokens: maxTokens}
}

// Ready reports whether the generation upstream is configured.
func (s *HintService) Ready() bool {
	return s.gen != nil && s.gen.Ready()
}

// Hints returns up to three rule-based hints for the query text.
// When several regulation categories match, the first matching category's
// hints win because the combined list is truncated to three.
func (s *HintService) Hints(text string) []string {
	var hints []string
	q := strings.ToLower(text)

	if containsAny(q, "gdpr", "data protection", "privacy") {
		switch {
		case strings.Contains(q, "breach"):
			hints = append(hints,
				"Implement automated breach detection systems",
				"Create 72-hour notification templates for supervisory authorities",
				"Develop breach assessment and documentation procedures",
			)
		case strings.Contains(q, "transfer") || strings.Contains(q, "cross-border"):
			hints = append(hints,
				"Review adequacy decisions and Standard Contractual Clauses (SCCs)",
				"Implement Binding Corporate Rules (BCRs) for intra-group transfers",
				"Conduct Transfer Impact Assessments (TIAs) for third countries",
			)
		default:
			hints = append(hints,
				"Map personal data flows and processing activities (Article 30 records)",
				"Conduct Data Protection Impact Assessments (DPIAs) for high-risk processing",
				"Implement privacy by design and by default measures",
			)
		}
	}

	if containsAny(q, "sec", "securities", "filing") {
		hints = append(hints,
			"Review SEC Form 10-K filing requirements",
			"Consider materiality thresholds for disclosure",
			"Consult with legal counsel for securities compliance",
		)
	}

	if containsAny(q, "sox", "sarbanes", "internal controls") {
		if strings.Contains(q, "reporting") || strings.Contains(q, "financial") {
			hints = append(hints,
				"Implement COSO framework for internal controls design",
				"Document walkthrough procedures for key business processes",
				"Establish quarterly management assessment testing protocols",
			)
		} else {
			hints = append(hints,
				"Map IT general controls (ITGC) and application controls",
				"Create SOD (Segregation of Duties) matrices and monitoring",
				"Implement continuous monitoring using GRC platforms",
			)
		}
	}

	if len(hints) == 0 {
		hints = []string{
			"Review relevant compliance documentation",
			"Consider consulting with legal or compliance teams",
			"Check for recent regulatory updates",
		}
	}

	if len(hints) > maxBasicHints {
		hints = hints[:maxBasicHints]
	}
	return hints
}

// ContextualHints combines the rule-based hints with a model-generated next
// step conditioned on the citations already retrieved. The combined result is
// always returned, even on partial failure; the error reports a generation
// failure after a fallback sentence has been substituted. The next-step hint
// is absent when no citations were supplied (no model call is attempted).
func (s *HintService) ContextualHints(ctx context.Context, text string, internal, external []citation.Record) (*query.Hints, error) {
	hints := &query.Hints{
		BasicHints: s.Hints(text),
		Query:      text,
	}

	if len(internal) == 0 && len(external) == 0 {
		return hints, nil
	}

	hint, err := s.nextStepHint(ctx, text, internal, external)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCompletion) {
			hint = emptyCompletionHint
			err = nil
		} else {
			slog.Error("next step hint generation failed", "error", err)
			hint = fallbackHint
		}
	}
	hints.NextStepHint = &hint
	return hints, err
}

// nextStepHint issues one bounded generation request built from the query and
// up to three citations of each origin.
func (s *HintService) nextStepHint(ctx context.Context, text string, internal, external []citation.Record) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("%w: hint generator", domain.ErrUnready)
	}

	hint, err := s.gen.Generate(ctx, generation.Request{
		System:    hintSystemPrompt,
		Prompt:    buildHintPrompt(text, internal, external),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", err
	}

	slog.Info("next step hint generated", "query", text)
	return hint, nil
}

func buildHintPrompt(text string, internal, external []citation.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", text)
	fmt.Fprintf(&b, "User Query: %s\n\n", text)

	if len(internal) > 0 {
		b.WriteString("Internal Citations:\n")
		for _, rec := range capRecords(internal) {
			fmt.Fprintf(&b, "- %s (%s): %s...\n", rec.Title, rec.URL, truncate(rec.Excerpt, maxExcerptLen))
		}
		b.WriteString("\n")
	}

	if len(external) > 0 {
		b.WriteString("External Citations:\n")
		for _, rec := range capRecords(external) {
			fmt.Fprintf(&b, "- %s (%s): %s\n", rec.Title, rec.Type, rec.URL)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b,
		"Focusing specifically on %s, provide ONE actionable next step (1-2 sentences) "+
			"that addresses the specific query. Be concrete and implementation-focused. "+
			"Examples: 'Draft a breach response plan with 72-hour notification timeline.' or "+
			"'Implement SOC 1 Type II controls for financial reporting systems.'\n\n"+
			"Specific Next Step:",
		contextFocus(text),
	)
	return b.String()
}

// contextFocus selects the topical framing phrase for the prompt. The check
// order matters: breach beats transfer beats SOX reporting beats consent.
func contextFocus(text string) string {
	q := strings.ToLower(text)
	switch {
	case strings.Contains(q, "breach"):
		return "breach notification procedures, timelines, and reporting requirements"
	case strings.Contains(q, "transfer") || strings.Contains(q, "cross-border"):
		return "data transfer mechanisms, adequacy decisions, and safeguards"
	case strings.Contains(q, "sox") && (strings.Contains(q, "reporting") || strings.Contains(q, "control")):
		return "internal controls implementation, documentation, and testing procedures"
	case strings.Contains(q, "consent"):
		return "consent mechanisms, withdrawal procedures, and documentation"
	default:
		return "implementation requirements and compliance procedures"
	}
}

func capRecords(records []citation.Record) []citation.Record {
	if len(records) > maxContextCitations {
		return records[:maxContextCitations]
	}
	return records
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
