// Package citation defines the CitationRecord domain entity: a normalized
// unit of regulatory evidence regardless of whether it came from the internal
// knowledge index or an external web search.
package citation

import "strings"

// Type classifies a citation by the regulatory regime it belongs to.
type Type string

const (
	TypeSEC        Type = "SEC"
	TypeGDPR       Type = "GDPR"
	TypeSOX        Type = "SOX"
	TypeCompliance Type = "Compliance"
	TypeReference  Type = "Regulatory Reference"
	TypeExternal   Type = "External Citation"
)

// Record is a single piece of evidence backing an answer.
// Internal-origin records carry a similarity Score; external-origin records
// carry a classification Type instead.
type Record struct {
	Title    string            `json:"title"`
	Excerpt  string            `json:"excerpt,omitempty"`
	URL      string            `json:"source_url"`
	Type     Type              `json:"type,omitempty"`
	Score    *float64          `json:"score,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Classify derives a citation Type from title and URL keyword matching.
// The check order is load-bearing: a title containing both "sec" and "gdpr"
// keywords resolves to SEC because that check runs first.
func Classify(title, url string) Type {
	titleLower := strings.ToLower(title)
	urlLower := strings.ToLower(url)

	switch {
	case containsAny(titleLower, "sec", "securities", "exchange"):
		return TypeSEC
	case containsAny(titleLower, "gdpr", "general data protection"):
		return TypeGDPR
	case containsAny(titleLower, "sox", "sarbanes", "oxley"):
		return TypeSOX
	case strings.Contains(urlLower, "sec.gov"):
		return TypeSEC
	case strings.Contains(urlLower, "europa.eu"):
		return TypeGDPR
	case containsAny(titleLower, "regulation", "compliance", "legal"):
		return TypeCompliance
	default:
		return TypeExternal
	}
}

// DistinctTypes returns the set of citation types present in records,
// preserving first-seen order.
func DistinctTypes(records []Record) []string {
	seen := make(map[Type]bool, len(records))
	types := make([]string, 0, len(records))
	for _, rec := range records {
		t := rec.Type
		if t == "" {
			t = "Unknown"
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, string(t))
		}
	}
	return types
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
