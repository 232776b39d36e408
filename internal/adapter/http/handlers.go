package http

import (
	"github.com/clearway-labs/regent/internal/adapter/perplexity"
	"github.com/clearway-labs/regent/internal/adapter/ws"
	"github.com/clearway-labs/regent/internal/port/retrieval"
	"github.com/clearway-labs/regent/internal/port/websearch"
	"github.com/clearway-labs/regent/internal/service"
)

// Version reported by the status endpoints.
const Version = "1.0.0"

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orchestrator *service.Orchestrator
	Hints        *service.HintService
	Documents    *service.DocumentService
	Retriever    retrieval.Retriever
	Searcher     websearch.Searcher
	Perplexity   *perplexity.Client
	Hub          *ws.Hub
}
