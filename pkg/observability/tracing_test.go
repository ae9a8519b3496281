package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanEvents(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	hooks := observability.SpanEvents()
	hooks.OnTurnStart(ctx, &domain.TurnEvent{RequestType: domain.RequestText})
	hooks.OnDispatch(ctx, &domain.DispatchEvent{Selector: "speak", Kind: domain.KindSpeak, Handlers: 2})
	hooks.OnDispatch(ctx, &domain.DispatchEvent{Selector: "after_batch", Err: errors.New("boom")})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 3)
	assert.Equal(t, "turn.start", events[0].Name)
	assert.Equal(t, "dispatch", events[1].Name)

	attrs := map[string]string{}
	for _, kv := range events[1].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "speak", attrs["convo.trace.kind"])
	assert.Equal(t, "2", attrs["convo.handlers"])

	var hasError bool
	for _, kv := range events[2].Attributes {
		if kv.Key == "error" {
			hasError = true
		}
	}
	assert.True(t, hasError)
}

func TestSpanEvents_NoSpanIsSafe(t *testing.T) {
	hooks := observability.SpanEvents()
	assert.NotPanics(t, func() {
		hooks.OnDispatch(context.Background(), &domain.DispatchEvent{Selector: "trace"})
	})
}
