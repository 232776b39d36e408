package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/domain/event"
	"github.com/clearway-labs/regent/internal/domain/query"
)

// queryRequest is the body of POST /chat and POST /query. The flags are
// pointers so an absent field defaults to enabled.
type queryRequest struct {
	Text              string `json:"text"`
	UseRetrieval      *bool  `json:"use_rag"`
	UseCitationSearch *bool  `json:"use_sonar"`
	UseHints          *bool  `json:"use_hints"`
}

func (r queryRequest) toQuery() query.Query {
	return query.Query{
		Text:              r.Text,
		UseRetrieval:      flagOr(r.UseRetrieval, true),
		UseCitationSearch: flagOr(r.UseCitationSearch, true),
		UseHints:          flagOr(r.UseHints, true),
	}
}

func flagOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Chat handles POST /chat: it runs the orchestration and streams every event
// over SSE as it happens.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[queryRequest](w, r)
	if !ok {
		return
	}

	events, err := h.Orchestrator.Run(r.Context(), req.toQuery())
	if err != nil {
		writeDomainError(w, err, "invalid query")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("streaming unsupported by response writer")
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("marshal stream event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// syncResponse is the body of a successful POST /query.
type syncResponse struct {
	Query             string            `json:"query"`
	InternalCitations []citation.Record `json:"internal_citations"`
	ExternalCitations []citation.Record `json:"external_citations"`
	Hints             *query.Hints      `json:"hints"`
	Summary           query.Summary     `json:"summary"`
}

// Query handles POST /query: it runs the same orchestration as Chat but
// swallows the intermediate events and answers once with the terminal result.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[queryRequest](w, r)
	if !ok {
		return
	}

	events, err := h.Orchestrator.Run(r.Context(), req.toQuery())
	if err != nil {
		writeDomainError(w, err, "invalid query")
		return
	}

	for ev := range events {
		switch e := ev.(type) {
		case event.Completed:
			writeJSON(w, http.StatusOK, syncResponse{
				Query:             e.Result.Query,
				InternalCitations: e.Result.Internal,
				ExternalCitations: e.Result.External,
				Hints:             e.Result.Hints,
				Summary:           e.Result.Summary(),
			})
			return
		case event.Failed:
			slog.Error("orchestration failed", "details", e.Details)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	// Channel closed without a terminal event: the client went away.
	writeError(w, http.StatusInternalServerError, "internal server error")
}
