package traceproc

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/events"
)

// Processor routes one trace to its typed callback.
type Processor func(ctx context.Context, t domain.Trace) error

// New builds a Processor from h.
// A known kind without a callback yields a NotImplementedError; an unknown kind
// yields an UnknownKindError.
func New(h Handlers) Processor {
	return func(ctx context.Context, t domain.Trace) error {
		switch tr := t.(type) {
		case domain.BlockTrace:
			if h.Block == nil {
				return notImplemented(tr)
			}
			return h.Block(ctx, tr.BlockID)
		case domain.ChoiceTrace:
			if h.Choice == nil {
				return notImplemented(tr)
			}
			return h.Choice(ctx, tr.Choices)
		case domain.DebugTrace:
			if h.Debug == nil {
				return notImplemented(tr)
			}
			return h.Debug(ctx, tr.Message)
		case domain.EndTrace:
			if h.End == nil {
				return notImplemented(tr)
			}
			return h.End(ctx)
		case domain.FlowTrace:
			if h.Flow == nil {
				return notImplemented(tr)
			}
			return h.Flow(ctx, tr.DiagramID)
		case domain.SpeakTrace:
			if h.Speak == nil {
				return notImplemented(tr)
			}
			return h.Speak.handleSpeak(ctx, tr)
		case domain.AudioTrace:
			if h.Audio == nil {
				return notImplemented(tr)
			}
			return h.Audio(ctx, tr.Src)
		case domain.VisualTrace:
			if h.Visual == nil {
				return notImplemented(tr)
			}
			return h.Visual.handleVisual(ctx, tr)
		case domain.StreamTrace:
			if h.Stream == nil {
				return notImplemented(tr)
			}
			return h.Stream(ctx, tr.Src, tr.Action, tr.Token)
		default:
			return &domain.UnknownKindError{Kind: domain.KindOf(t)}
		}
	}
}

func notImplemented(t domain.Trace) error {
	return &domain.NotImplementedError{Kind: t.Kind()}
}

// Handler adapts p for subscription on the dispatch table.
func (p Processor) Handler() events.TraceHandler {
	return func(ctx context.Context, t domain.Trace, _ *domain.Envelope) error {
		return p(ctx, t)
	}
}

// Lenient returns a Processor that ignores kinds without a callback and unknown
// kinds. Callback errors still propagate.
func (p Processor) Lenient() Processor {
	return func(ctx context.Context, t domain.Trace) error {
		err := p(ctx, t)
		if _, ok := domain.AsNotImplemented(err); ok {
			return nil
		}
		if _, ok := domain.AsUnknownKind(err); ok {
			return nil
		}
		return err
	}
}
