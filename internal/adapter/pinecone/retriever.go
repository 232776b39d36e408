package pinecone

import (
	"context"
	"log/slog"

	"github.com/clearway-labs/regent/internal/adapter/embeddings"
	"github.com/clearway-labs/regent/internal/domain/citation"
)

// metadata fields carried by knowledge-base vectors.
const (
	metaTitle        = "title"
	metaExcerpt      = "excerpt"
	metaSourceURL    = "source_url"
	metaStandard     = "standard"
	metaArticle      = "article_number"
	metaDocumentType = "document_type"
)

// Retriever implements the retrieval port: embed the query text, run a
// similarity search, and map matches to citation records.
//
// Search never returns an error: any upstream failure degrades to an empty
// result set with a logged cause, per the capability contract.
type Retriever struct {
	index    *Client
	embedder *embeddings.Client
	topK     int
	ready    bool
}

// NewRetriever wires the index client and embedder into a Retriever.
// Readiness is decided here, once, and never changes afterwards.
func NewRetriever(index *Client, embedder *embeddings.Client, topK int, ready bool) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		topK:     topK,
		ready:    ready,
	}
}

// Ready reports whether the index was configured at startup.
func (r *Retriever) Ready() bool { return r.ready }

// Search returns the top-k scored citations for the query text.
func (r *Retriever) Search(ctx context.Context, text string) ([]citation.Record, error) {
	if !r.ready {
		slog.Warn("knowledge retriever not initialized, returning empty results")
		return []citation.Record{}, nil
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		slog.Error("embedding query failed", "error", err)
		return []citation.Record{}, nil
	}

	matches, err := r.index.Query(ctx, vector, r.topK)
	if err != nil {
		slog.Error("knowledge index query failed", "error", err)
		return []citation.Record{}, nil
	}

	records := make([]citation.Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, recordFromMatch(m))
	}

	slog.Info("knowledge citations retrieved", "count", len(records))
	return records, nil
}

func recordFromMatch(m Match) citation.Record {
	meta := m.Metadata
	score := m.Score
	return citation.Record{
		Title:   metaOr(meta, metaTitle, "N/A"),
		Excerpt: metaOr(meta, metaExcerpt, "No excerpt available."),
		URL:     metaOr(meta, metaSourceURL, "N/A"),
		Score:   &score,
		Metadata: map[string]string{
			metaStandard:     metaOr(meta, metaStandard, "unknown"),
			metaArticle:      metaOr(meta, metaArticle, "N/A"),
			metaDocumentType: metaOr(meta, metaDocumentType, "general"),
		},
	}
}

func metaOr(meta map[string]string, key, fallback string) string {
	if v, ok := meta[key]; ok && v != "" {
		return v
	}
	return fallback
}
