package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/clearway-labs/regent/internal/domain/query"
)

const meterName = "regent"

// Metrics holds all orchestration metric instruments and implements the
// orchestrator's instrumentation hooks.
type Metrics struct {
	QueriesStarted   metric.Int64Counter
	QueriesCompleted metric.Int64Counter
	QueriesFailed    metric.Int64Counter
	TasksFailed      metric.Int64Counter
	QueryDuration    metric.Float64Histogram
	CitationsFound   metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QueriesStarted, err = meter.Int64Counter("regent.queries.started",
		metric.WithDescription("Number of orchestrations started"))
	if err != nil {
		return nil, err
	}

	m.QueriesCompleted, err = meter.Int64Counter("regent.queries.completed",
		metric.WithDescription("Number of orchestrations completed"))
	if err != nil {
		return nil, err
	}

	m.QueriesFailed, err = meter.Int64Counter("regent.queries.failed",
		metric.WithDescription("Number of orchestrations that failed fatally"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("regent.tasks.failed",
		metric.WithDescription("Number of retrieval tasks that failed"))
	if err != nil {
		return nil, err
	}

	m.QueryDuration, err = meter.Float64Histogram("regent.query.duration_seconds",
		metric.WithDescription("Orchestration duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.CitationsFound, err = meter.Int64Histogram("regent.query.citations",
		metric.WithDescription("Total citations returned per orchestration"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// QueryStarted records one orchestration start.
func (m *Metrics) QueryStarted(ctx context.Context) {
	m.QueriesStarted.Add(ctx, 1)
}

// QueryCompleted records one successful orchestration.
func (m *Metrics) QueryCompleted(ctx context.Context, elapsed time.Duration, summary query.Summary) {
	m.QueriesCompleted.Add(ctx, 1)
	m.QueryDuration.Record(ctx, elapsed.Seconds())
	m.CitationsFound.Record(ctx, int64(summary.TotalCitations))
}

// QueryFailed records one fatal orchestration failure.
func (m *Metrics) QueryFailed(ctx context.Context) {
	m.QueriesFailed.Add(ctx, 1)
}

// TaskFailed records one isolated task failure.
func (m *Metrics) TaskFailed(ctx context.Context, kind string) {
	m.TasksFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("task.kind", kind)))
}
