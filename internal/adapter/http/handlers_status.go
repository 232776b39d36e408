package http

import (
	"net/http"
	"os"
)

// Root handles GET /.
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "regent",
		"version": Version,
		"status":  "running",
	})
}

// Health handles GET /health. A deployment with no backends configured is
// still healthy; the modules map tells the caller what it can expect.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": Version,
		"modules": map[string]bool{
			"rag":   h.Retriever != nil && h.Retriever.Ready(),
			"sonar": h.Searcher != nil && h.Searcher.Ready(),
			"hint":  h.Hints != nil && h.Hints.Ready(),
		},
	})
}

// Debug handles GET /debug: configuration presence and runtime counters,
// with secrets reduced to set/missing.
func (h *Handlers) Debug(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"modules": map[string]bool{
			"rag":   h.Retriever != nil && h.Retriever.Ready(),
			"sonar": h.Searcher != nil && h.Searcher.Ready(),
			"hint":  h.Hints != nil && h.Hints.Ready(),
		},
		"keys": map[string]string{
			"pinecone":   keyStatus(os.Getenv("PINECONE_API_KEY")),
			"perplexity": keyStatus(os.Getenv("PERPLEXITY_API_KEY")),
		},
	}
	if h.Perplexity != nil {
		resp["perplexity_breaker"] = h.Perplexity.BreakerState()
	}
	if h.Hub != nil {
		resp["observers"] = h.Hub.ObserverCount()
	}
	if h.Documents != nil {
		resp["documents"] = h.Documents.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

func keyStatus(v string) string {
	if v == "" {
		return "missing"
	}
	return "set"
}
