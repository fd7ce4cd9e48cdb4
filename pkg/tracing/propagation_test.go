package tracing

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInjectTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	headers := http.Header{}
	InjectTraceContext(ctx, headers)

	traceparent := headers.Get("traceparent")
	require.NotEmpty(t, traceparent)
	assert.Contains(t, traceparent, TraceID(ctx))
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestInit_NoEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "circle-transfer", "", "development")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
