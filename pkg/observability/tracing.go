package observability

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpanEvents returns hooks that annotate the span found in the hook context.
// Sessions open one span per turn, so every dispatch shows up as an event of
// the turn that produced it.
func SpanEvents() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			trace.SpanFromContext(ctx).AddEvent("turn.start",
				trace.WithAttributes(attribute.String("convo.request.type", requestLabel(e.RequestType))),
			)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			attrs := []attribute.KeyValue{
				attribute.String("convo.selector", e.Selector),
				attribute.Int("convo.handlers", e.Handlers),
			}
			if e.Kind != "" {
				attrs = append(attrs, attribute.String("convo.trace.kind", string(e.Kind)))
			}
			if e.Err != nil {
				attrs = append(attrs, attribute.String("error", e.Err.Error()))
			}
			trace.SpanFromContext(ctx).AddEvent("dispatch", trace.WithAttributes(attrs...))
		},
	}
}
