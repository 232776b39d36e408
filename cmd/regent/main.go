package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clearway-labs/regent/internal/adapter/embeddings"
	rghttp "github.com/clearway-labs/regent/internal/adapter/http"
	rgotel "github.com/clearway-labs/regent/internal/adapter/otel"
	"github.com/clearway-labs/regent/internal/adapter/perplexity"
	"github.com/clearway-labs/regent/internal/adapter/pinecone"
	"github.com/clearway-labs/regent/internal/adapter/ristretto"
	"github.com/clearway-labs/regent/internal/adapter/ws"
	"github.com/clearway-labs/regent/internal/config"
	"github.com/clearway-labs/regent/internal/logger"
	"github.com/clearway-labs/regent/internal/port/retrieval"
	"github.com/clearway-labs/regent/internal/port/websearch"
	"github.com/clearway-labs/regent/internal/resilience"
	"github.com/clearway-labs/regent/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"retrieval", cfg.Features.Retrieval,
		"citation_search", cfg.Features.CitationSearch,
		"hints", cfg.Features.Hints,
	)

	ctx := context.Background()

	// --- Observability ---
	shutdownTracer, err := rgotel.InitTracer(ctx, cfg.Logging.Service, cfg.Tracing.OTLPEndpoint, cfg.Tracing.Enabled)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown failed", "error", err)
		}
	}()

	metrics, err := rgotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	embedCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer embedCache.Close()

	// --- Knowledge retrieval ---
	var retriever retrieval.Retriever
	{
		embedder := embeddings.NewClient(
			cfg.Embeddings.URL, cfg.Embeddings.APIKey, cfg.Embeddings.Model,
			cfg.Embeddings.Timeout, embedCache, cfg.Cache.EmbeddingTTL,
		)
		index := pinecone.NewClient(cfg.Pinecone.IndexHost, cfg.Pinecone.APIKey, cfg.Pinecone.Namespace, cfg.Pinecone.Timeout)
		ready := cfg.Pinecone.APIKey != "" && cfg.Pinecone.IndexHost != ""
		if !ready {
			slog.Warn("knowledge index not configured, retrieval will return empty results")
		}
		retriever = pinecone.NewRetriever(index, embedder, cfg.Pinecone.TopK, ready)
	}

	// --- Citation search and hint generation ---
	retryPolicy := perplexity.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}
	breaker := resilience.NewBreaker("perplexity", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	searchClient := perplexity.NewClient(cfg.Perplexity.URL, cfg.Perplexity.APIKey, cfg.Perplexity.SearchTimeout, retryPolicy)
	searchClient.SetBreaker(breaker)
	hintClient := perplexity.NewClient(cfg.Perplexity.URL, cfg.Perplexity.APIKey, cfg.Perplexity.HintTimeout, retryPolicy)
	hintClient.SetBreaker(breaker)

	var searcher websearch.Searcher = perplexity.NewSearcher(searchClient, cfg.Perplexity.SearchModel)
	generator := perplexity.NewGenerator(hintClient, cfg.Perplexity.HintModel)

	// --- Services ---
	hub := ws.NewHub()
	hints := service.NewHintService(generator, cfg.Perplexity.HintMaxTokens)
	documents := service.NewDocumentService()

	orchestrator := service.NewOrchestrator(retriever, searcher, hints, service.Features{
		Retrieval:      cfg.Features.Retrieval,
		CitationSearch: cfg.Features.CitationSearch,
		Hints:          cfg.Features.Hints,
	})
	orchestrator.SetBroadcaster(hub)
	orchestrator.SetInstrumentation(metrics)

	// --- HTTP ---
	handlers := &rghttp.Handlers{
		Orchestrator: orchestrator,
		Hints:        hints,
		Documents:    documents,
		Retriever:    retriever,
		Searcher:     searcher,
		Perplexity:   searchClient,
		Hub:          hub,
	}

	r := chi.NewRouter()
	r.Use(rghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(rghttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(rgotel.HTTPMiddleware(cfg.Logging.Service))

	r.Get("/ws", hub.HandleWS)
	rghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	// WriteTimeout stays zero so SSE responses can outlive slow orchestrations.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
