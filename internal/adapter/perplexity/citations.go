package perplexity

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/port/websearch"
)

const (
	searchSystemPrompt = "You are a helpful assistant that finds compliance documents and citations " +
		"from the web. Focus on SEC, GDPR, SOX, and other regulatory compliance information."

	// Appended to every query to steer the search toward regulatory sources.
	searchQuerySuffix = " SEC GDPR SOX compliance regulations legal requirements"

	maxContentURLs = 5
	linkLabelLen   = 50
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s\])]+`)

	// Regulatory references recognized in free-text answers. Scanned
	// unconditionally, even when structured citations were already found.
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)SEC[- ]?\d+[- ]?\d*`),
		regexp.MustCompile(`(?i)GDPR[- ]?Article[- ]?\d+`),
		regexp.MustCompile(`(?i)SOX[- ]?Section[- ]?\d+`),
		regexp.MustCompile(`(?i)Regulation[- ]?[A-Z]+`),
	}
)

// Searcher implements the websearch port on top of the Perplexity API.
type Searcher struct {
	client *Client
	model  string
}

// NewSearcher creates the citation-search adapter.
func NewSearcher(client *Client, model string) *Searcher {
	return &Searcher{client: client, model: model}
}

// Ready reports whether the upstream API key was configured at startup.
func (s *Searcher) Ready() bool { return s.client.Configured() }

// Search fetches compliance citations for the query and normalizes the
// loosely-structured upstream response into citation records.
func (s *Searcher) Search(ctx context.Context, text string) (*websearch.Analysis, error) {
	req := ChatRequest{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: text + searchQuerySuffix},
		},
		Stream: false,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("citation search: %w", err)
	}

	var records []citation.Record
	if len(resp.Choices) > 0 {
		records = NormalizeCitations(resp.Choices[0].Message)
	}

	slog.Info("external citations retrieved", "count", len(records), "query", text)

	return &websearch.Analysis{
		Query:          text,
		CitationsFound: len(records),
		Citations:      records,
		Summary:        fmt.Sprintf("Found %d relevant compliance citations", len(records)),
		CitationTypes:  citation.DistinctTypes(records),
	}, nil
}

// NormalizeCitations maps one upstream message to citation records using a
// first-match-wins precedence: structured tool-output citations, then a
// generic sources list, then literal URLs scanned out of the answer text.
// The regulatory-reference scan then runs on the answer text regardless of
// which branch fired.
func NormalizeCitations(msg ResponseMessage) []citation.Record {
	var records []citation.Record

	switch {
	case len(msg.ToolOutputs) > 0:
		for _, out := range msg.ToolOutputs {
			for _, src := range out.Citations {
				records = append(records, recordFromSource(src))
			}
		}
	case len(msg.Sources) > 0:
		for _, src := range msg.Sources {
			records = append(records, recordFromSource(src))
		}
	case strings.Contains(msg.Content, "http"):
		for _, url := range firstN(urlPattern.FindAllString(msg.Content, -1), maxContentURLs) {
			records = append(records, citation.Record{
				Title: fmt.Sprintf("Link from Perplexity: %s...", truncate(url, linkLabelLen)),
				URL:   url,
				Type:  citation.Classify("", url),
			})
		}
	}

	return appendReferences(msg.Content, records)
}

// appendReferences scans text for regulatory references and appends one
// synthetic record per distinct match not already named by an existing title
// (case-insensitive substring containment).
func appendReferences(text string, records []citation.Record) []citation.Record {
	for _, pattern := range referencePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if containedInTitles(records, match) {
				continue
			}
			records = append(records, citation.Record{
				Title: "Regulatory Reference: " + match,
				URL:   "https://www.sec.gov/search?query=" + strings.ReplaceAll(match, " ", "+"),
				Type:  citation.TypeReference,
			})
		}
	}
	return records
}

func containedInTitles(records []citation.Record, match string) bool {
	lower := strings.ToLower(match)
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Title), lower) {
			return true
		}
	}
	return false
}

func recordFromSource(src SourceCitation) citation.Record {
	title := src.Title
	if title == "" {
		title = src.Name
	}
	if title == "" {
		title = "Untitled Citation"
	}
	url := src.URL
	if url == "" {
		url = "#"
	}

	rec := citation.Record{
		Title: title,
		URL:   url,
		Type:  citation.Classify(title, url),
	}
	if src.Date != "" {
		rec.Metadata = map[string]string{"date": src.Date}
	}
	return rec
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
