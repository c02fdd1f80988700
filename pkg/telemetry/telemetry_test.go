//go:build unit || !integration

package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordErrorOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()))
	})

	_, span := tp.Tracer("test").Start(context.Background(), "worker/ProveBlock")
	expectedErr := errors.New("dummy error")
	actualErr := RecordErrorOnSpan(span)(expectedErr)
	assert.Equal(t, expectedErr, actualErr)
	assert.NoError(t, RecordErrorOnSpan(span)(nil))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, expectedErr.Error(), ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	counter, err := NewCounter(provider.Meter("test"), "requestor.work.cycles", "cycles")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Inc(ctx)
	counter.Add(ctx, 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestDetachedContext(t *testing.T) {
	type key struct{}
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), key{}, "value"), time.Millisecond)
	cancel()

	detached := NewDetachedContext(parent)
	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	assert.Equal(t, "value", detached.Value(key{}))
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}

func TestCleanupContextOutlivesParent(t *testing.T) {
	type key struct{}
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "activity-1"))
	cancel()

	ctx, cleanupCancel := NewCleanupContext(parent, time.Hour)
	defer cleanupCancel()
	require.NoError(t, ctx.Err())
	assert.Equal(t, "activity-1", ctx.Value(key{}))
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)

	cleanupCancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
