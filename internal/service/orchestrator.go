package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/clearway-labs/regent/internal/domain/citation"
	"github.com/clearway-labs/regent/internal/domain/event"
	"github.com/clearway-labs/regent/internal/domain/query"
	"github.com/clearway-labs/regent/internal/port/broadcast"
	"github.com/clearway-labs/regent/internal/port/retrieval"
	"github.com/clearway-labs/regent/internal/port/websearch"
)

// eventBuffer sizes the per-run channel so producers never block on a
// consumer that reads in bursts.
const eventBuffer = 16

// Instrumentation receives orchestration lifecycle signals. Implementations
// must be safe for concurrent use.
type Instrumentation interface {
	QueryStarted(ctx context.Context)
	QueryCompleted(ctx context.Context, elapsed time.Duration, summary query.Summary)
	QueryFailed(ctx context.Context)
	TaskFailed(ctx context.Context, kind string)
}

// Features are the deployment-level switches for the retrieval backends.
// A request flag can disable a backend per query; it can never enable one
// the deployment has switched off.
type Features struct {
	Retrieval      bool
	CitationSearch bool
	Hints          bool
}

// Orchestrator fans a query out to the enabled retrieval backends, isolates
// per-task failures, attaches hints, and emits the ordered event sequence for
// one run. Each Run is independent; the orchestrator itself holds no
// per-request state.
type Orchestrator struct {
	retriever   retrieval.Retriever
	searcher    websearch.Searcher
	hints       *HintService
	features    Features
	broadcaster broadcast.Broadcaster
	metrics     Instrumentation
	tracer      trace.Tracer
}

// NewOrchestrator wires the backends into an orchestrator. retriever,
// searcher, and hints may each be nil when the deployment omits that backend.
func NewOrchestrator(retriever retrieval.Retriever, searcher websearch.Searcher, hints *HintService, features Features) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		searcher:  searcher,
		hints:     hints,
		features:  features,
		tracer:    otel.Tracer("regent/orchestrator"),
	}
}

// SetBroadcaster mirrors every emitted event to the broadcaster.
func (o *Orchestrator) SetBroadcaster(b broadcast.Broadcaster) { o.broadcaster = b }

// SetInstrumentation attaches lifecycle metrics.
func (o *Orchestrator) SetInstrumentation(m Instrumentation) { o.metrics = m }

// Run validates the query and starts one orchestration. A validation failure
// is returned directly and no event is ever produced for the request. On
// success the returned channel carries the run's ordered events and is closed
// after the single terminal event.
func (o *Orchestrator) Run(ctx context.Context, q query.Query) (<-chan event.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ch := make(chan event.Event, eventBuffer)
	go o.run(ctx, q, ch)
	return ch, nil
}

func (o *Orchestrator) run(ctx context.Context, q query.Query, ch chan<- event.Event) {
	defer close(ch)

	started := time.Now()
	ctx, span := o.tracer.Start(ctx, "orchestrate",
		trace.WithAttributes(attribute.Int("query.length", len(q.Text))))
	defer span.End()

	if o.metrics != nil {
		o.metrics.QueryStarted(ctx)
	}

	stream := event.NewStream()
	emit := func(ev event.Event) {
		if err := stream.Accept(ev); err != nil {
			slog.Error("event stream violation", "error", err)
			return
		}
		o.publish(ctx, ev)
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}

	// Any panic below still produces the single terminal event.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("orchestration panic", "panic", r)
			if o.metrics != nil {
				o.metrics.QueryFailed(ctx)
			}
			emit(event.NewFailed(fmt.Sprintf("%v", r)))
		}
	}()

	result := &query.Result{
		Query:    q.Text,
		Internal: []citation.Record{},
		External: []citation.Record{},
	}

	useRetrieval := q.UseRetrieval && o.features.Retrieval && o.retriever != nil && o.retriever.Ready()
	useSearch := q.UseCitationSearch && o.features.CitationSearch && o.searcher != nil && o.searcher.Ready()

	var (
		internal    []citation.Record
		retErr      error
		retPanic    any
		analysis    *websearch.Analysis
		searchErr   error
		searchPanic any
	)

	// Barrier fan-out: the closures never return an error, so one task's
	// failure cannot cancel the other. Each task catches its own panic;
	// errgroup.Wait does not carry panics across goroutines.
	g, gctx := errgroup.WithContext(ctx)
	if useRetrieval {
		g.Go(func() error {
			defer func() { retPanic = recover() }()
			tctx, tspan := o.tracer.Start(gctx, "task.rag")
			defer tspan.End()
			internal, retErr = o.retriever.Search(tctx, q.Text)
			return nil
		})
	}
	if useSearch {
		g.Go(func() error {
			defer func() { searchPanic = recover() }()
			tctx, tspan := o.tracer.Start(gctx, "task.sonar")
			defer tspan.End()
			analysis, searchErr = o.searcher.Search(tctx, q.Text)
			return nil
		})
	}
	_ = g.Wait()

	// Re-raise a task panic on this goroutine, where the deferred recover
	// settles the run with the fatal terminal event.
	if retPanic != nil {
		panic(retPanic)
	}
	if searchPanic != nil {
		panic(searchPanic)
	}

	// Settle in a fixed order regardless of which task finished first.
	if useRetrieval {
		if retErr != nil {
			slog.Error("retrieval task failed", "error", retErr)
			if o.metrics != nil {
				o.metrics.TaskFailed(ctx, string(event.TaskRetrieval))
			}
			emit(event.NewTaskError(event.TaskRetrieval, retErr))
		} else {
			result.Internal = internal
			emit(event.NewTaskProgress(event.TaskRetrieval, len(internal)))
		}
	}
	if useSearch {
		if searchErr != nil {
			slog.Error("citation search task failed", "error", searchErr)
			if o.metrics != nil {
				o.metrics.TaskFailed(ctx, string(event.TaskCitationSearch))
			}
			emit(event.NewTaskError(event.TaskCitationSearch, searchErr))
		} else {
			result.External = analysis.Citations
			emit(event.NewTaskProgress(event.TaskCitationSearch, analysis.CitationsFound))
		}
	}

	// An unready hint generator is skipped silently: no model call, no hint
	// event, and a null hints field in the result.
	if q.UseHints && o.features.Hints && o.hints != nil && o.hints.Ready() {
		hints, err := o.hints.ContextualHints(ctx, q.Text, result.Internal, result.External)
		result.Hints = hints
		if err != nil {
			emit(event.NewHintsError(err))
		} else {
			emit(event.NewHintsReady())
		}
	}

	if o.metrics != nil {
		o.metrics.QueryCompleted(ctx, time.Since(started), result.Summary())
	}
	slog.Info("orchestration completed",
		"internal", len(result.Internal),
		"external", len(result.External),
		"elapsed", time.Since(started))

	emit(event.Completed{Result: result})
}

// publish mirrors an event to connected stream observers. Broadcast failures
// never affect the run.
func (o *Orchestrator) publish(ctx context.Context, ev event.Event) {
	if o.broadcaster == nil {
		return
	}
	o.broadcaster.BroadcastEvent(ctx, eventType(ev), ev)
}

func eventType(ev event.Event) string {
	switch e := ev.(type) {
	case event.TaskProgress:
		return "query.task." + string(e.Kind)
	case event.TaskError:
		return "query.task_error." + string(e.Kind)
	case event.HintsReady:
		return "query.hints"
	case event.HintsError:
		return "query.hints_error"
	case event.Completed:
		return "query.completed"
	case event.Failed:
		return "query.failed"
	default:
		return "query.event"
	}
}
