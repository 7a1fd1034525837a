package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Recorder counts sync outcomes and opens spans for units of work.
type Recorder struct {
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

// Recorder returns a Recorder bound to t.
func (t *Telemetry) Recorder() *Recorder {
	outcomes, _ := t.meter.Int64Counter("jiramirror.sync.outcomes",
		metric.WithDescription("Sync units of work by kind and outcome"),
	)
	return &Recorder{tracer: t.tracer, outcomes: outcomes}
}

// Outcome adds one to the outcome counter.
func (r *Recorder) Outcome(ctx context.Context, kind, outcome string) {
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// Start opens a span named "sync.<name>" for the given Jira issue key.
func (r *Recorder) Start(ctx context.Context, name, issueKey string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "sync."+name,
		trace.WithAttributes(attribute.String("jira.issue.key", issueKey)),
	)
}

// End closes span and records err on it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
