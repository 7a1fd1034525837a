package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gi8lino/jiramirror/internal/state"
)

func newTestTelemetry(t *testing.T) (*Telemetry, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})
	return NewWithProviders(tp, mp), reader, spans
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInit(t *testing.T) {
	t.Run("Disabled installs noop", func(t *testing.T) {
		tel, err := Init(context.Background(), Config{ServiceName: "jiramirror"})
		require.NoError(t, err)
		assert.False(t, tel.Enabled())
		assert.NoError(t, tel.Shutdown(context.Background()))

		s := state.NewMemoryStore()
		assert.Same(t, s, tel.WrapStore(s))
	})

	t.Run("Stdout exporter", func(t *testing.T) {
		var buf bytes.Buffer
		tel, err := Init(context.Background(), Config{
			ServiceName: "jiramirror",
			Version:     "test",
			Stdout:      true,
			Writer:      &buf,
		})
		require.NoError(t, err)
		assert.True(t, tel.Enabled())

		_, span := tel.Tracer().Start(context.Background(), "sync.check")
		span.End()

		require.NoError(t, tel.Shutdown(context.Background()))
		assert.Contains(t, buf.String(), "sync.check")
	})
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	tel, reader, spans := newTestTelemetry(t)
	rec := tel.Recorder()

	ctx, span := rec.Start(context.Background(), "issue", "PROJ-1")
	rec.Outcome(ctx, "issue", "created")
	rec.Outcome(ctx, "issue", "unchanged")
	End(span, errors.New("boom"))

	assert.Equal(t, int64(2), sumOf(t, reader, "jiramirror.sync.outcomes"))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "sync.issue", ended[0].Name())
	assert.Equal(t, "boom", ended[0].Status().Description)
}

func TestInstrumentedStore(t *testing.T) {
	t.Parallel()

	tel, reader, spans := newTestTelemetry(t)
	store := tel.WrapStore(state.NewMemoryStore())
	ctx := context.Background()

	_, err := store.Get(ctx, "PROJ-1")
	assert.ErrorIs(t, err, state.ErrNotFound)

	require.NoError(t, store.CreateIfAbsent(ctx, state.Record{JiraIssueKey: "PROJ-1", GitHubIssueNumber: 7}))
	assert.ErrorIs(t, store.CreateIfAbsent(ctx, state.Record{JiraIssueKey: "PROJ-1"}), state.ErrExists)

	_, err = store.Update(ctx, "PROJ-1", func(r *state.Record) error {
		return errors.New("mutator failed")
	})
	assert.Error(t, err)

	n, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, int64(5), sumOf(t, reader, "jiramirror.state.operations"))
	assert.Equal(t, int64(1), sumOf(t, reader, "jiramirror.state.errors"))
	assert.Len(t, spans.Ended(), 5)
	assert.NoError(t, store.Close())
}
