package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gi8lino/jiramirror/internal/state"
)

// InstrumentedStore wraps state.Store with spans and jiramirror.state.*
// metrics. ErrNotFound and ErrExists are expected answers, not errors.
type InstrumentedStore struct {
	inner  state.Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStore decorates s. When telemetry is disabled s is returned as is.
func (t *Telemetry) WrapStore(s state.Store) state.Store {
	if !t.enabled {
		return s
	}
	ops, _ := t.meter.Int64Counter("jiramirror.state.operations",
		metric.WithDescription("Total sync state store operations"),
	)
	dur, _ := t.meter.Float64Histogram("jiramirror.state.operation.duration",
		metric.WithDescription("Sync state store operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := t.meter.Int64Counter("jiramirror.state.errors",
		metric.WithDescription("Total sync state store errors"),
	)
	return &InstrumentedStore{inner: s, tracer: t.tracer, ops: ops, dur: dur, errs: errs}
}

func (s *InstrumentedStore) op(ctx context.Context, name, key string) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{attribute.String("db.operation", name)}
	ctx, span := s.tracer.Start(ctx, "state."+name,
		trace.WithAttributes(append(attrs, attribute.String("jira.issue.key", key))...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(attrs...))
	return ctx, span, time.Now(), attrs
}

func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	s.dur.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil && !errors.Is(err, state.ErrNotFound) && !errors.Is(err, state.ErrExists) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (state.Record, error) {
	ctx, span, t, attrs := s.op(ctx, "Get", key)
	rec, err := s.inner.Get(ctx, key)
	s.done(ctx, span, t, err, attrs)
	return rec, err
}

func (s *InstrumentedStore) CreateIfAbsent(ctx context.Context, rec state.Record) error {
	ctx, span, t, attrs := s.op(ctx, "CreateIfAbsent", rec.JiraIssueKey)
	err := s.inner.CreateIfAbsent(ctx, rec)
	s.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) Update(ctx context.Context, key string, fn state.Mutator) (state.Record, error) {
	ctx, span, t, attrs := s.op(ctx, "Update", key)
	rec, err := s.inner.Update(ctx, key, fn)
	s.done(ctx, span, t, err, attrs)
	return rec, err
}

func (s *InstrumentedStore) Purge(ctx context.Context) (int, error) {
	ctx, span, t, attrs := s.op(ctx, "Purge", "")
	n, err := s.inner.Purge(ctx)
	s.done(ctx, span, t, err, attrs)
	return n, err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
