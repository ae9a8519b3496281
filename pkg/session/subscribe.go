package session

import (
	"context"
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/events"
)

// On registers h for every trace of kind k.
func (s *Session) On(k domain.Kind, h events.TraceHandler) (events.Subscription, error) {
	if !k.Valid() {
		return events.Subscription{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidSelector, k)
	}
	return s.events.Subscribe(events.ForKind(k), h)
}

// OnAny registers h for every trace, after the kind handlers.
func (s *Session) OnAny(h events.TraceHandler) (events.Subscription, error) {
	return s.events.Subscribe(events.Wildcard, h)
}

// OnBeforeBatch registers h to run once per turn, before the first trace.
func (s *Session) OnBeforeBatch(h events.LifecycleHandler) (events.Subscription, error) {
	return s.events.SubscribeLifecycle(events.BeforeBatch, h)
}

// OnAfterBatch registers h to run once per turn, after the last trace.
func (s *Session) OnAfterBatch(h events.LifecycleHandler) (events.Subscription, error) {
	return s.events.SubscribeLifecycle(events.AfterBatch, h)
}

// Subscribe registers h under a selector given as a string: a trace kind or "trace".
// Lifecycle selectors take a different handler shape and are rejected here.
func (s *Session) Subscribe(selector string, h events.TraceHandler) (events.Subscription, error) {
	sel, err := events.ParseSelector(selector)
	if err != nil {
		return events.Subscription{}, err
	}
	if sel.IsLifecycle() {
		return events.Subscription{}, fmt.Errorf("%w: %q takes a lifecycle handler", domain.ErrInvalidSelector, selector)
	}
	return s.events.Subscribe(sel, h)
}

// Off removes one registration.
func (s *Session) Off(sub events.Subscription) error {
	return s.events.Unsubscribe(sub)
}

// Handle registers a handler typed on a concrete trace struct, e.g.
//
//	session.Handle(s, func(ctx context.Context, t domain.SpeakTrace) error { ... })
func Handle[T domain.Trace](s *Session, h func(context.Context, T) error) (events.Subscription, error) {
	var zero T
	return s.On(zero.Kind(), func(ctx context.Context, t domain.Trace, _ *domain.Envelope) error {
		typed, ok := t.(T)
		if !ok {
			return nil
		}
		return h(ctx, typed)
	})
}

// OnSpeak registers h for speak traces.
func (s *Session) OnSpeak(h func(context.Context, domain.SpeakTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnChoice registers h for choice traces.
func (s *Session) OnChoice(h func(context.Context, domain.ChoiceTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnVisual registers h for visual traces.
func (s *Session) OnVisual(h func(context.Context, domain.VisualTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnAudio registers h for audio traces.
func (s *Session) OnAudio(h func(context.Context, domain.AudioTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnStream registers h for stream traces.
func (s *Session) OnStream(h func(context.Context, domain.StreamTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnBlock registers h for block traces.
func (s *Session) OnBlock(h func(context.Context, domain.BlockTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnFlow registers h for flow traces.
func (s *Session) OnFlow(h func(context.Context, domain.FlowTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnDebug registers h for debug traces.
func (s *Session) OnDebug(h func(context.Context, domain.DebugTrace) error) (events.Subscription, error) {
	return Handle(s, h)
}

// OnEnd registers h for the end trace.
func (s *Session) OnEnd(h func(context.Context) error) (events.Subscription, error) {
	return Handle(s, func(ctx context.Context, _ domain.EndTrace) error {
		return h(ctx)
	})
}
