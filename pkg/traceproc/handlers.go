package traceproc

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
)

// Handlers holds one optional callback per trace kind.
type Handlers struct {
	Block  func(ctx context.Context, blockID string) error
	Choice func(ctx context.Context, choices []domain.Choice) error
	Debug  func(ctx context.Context, message string) error
	End    func(ctx context.Context) error
	Flow   func(ctx context.Context, diagramID string) error
	Speak  SpeakHandler
	Audio  func(ctx context.Context, src string) error
	Visual VisualHandler
	Stream func(ctx context.Context, src string, action domain.StreamAction, token string) error
}

// SpeakHandler is either a SpeakFunc receiving every speak trace, or a
// SpeakHandlers map keyed by subtype.
type SpeakHandler interface {
	handleSpeak(ctx context.Context, t domain.SpeakTrace) error
}

// SpeakFunc handles every speak trace regardless of subtype.
type SpeakFunc func(ctx context.Context, message, src string, subtype domain.SpeakSubtype) error

func (f SpeakFunc) handleSpeak(ctx context.Context, t domain.SpeakTrace) error {
	return f(ctx, t.Message, t.Src, t.Subtype)
}

// SpeakHandlers dispatches speak traces by subtype.
type SpeakHandlers struct {
	Speech func(ctx context.Context, message, src string) error
	Audio  func(ctx context.Context, message, src string) error
}

func (h SpeakHandlers) handleSpeak(ctx context.Context, t domain.SpeakTrace) error {
	switch t.Subtype {
	case domain.SpeakMessage, "":
		if h.Speech == nil {
			return &domain.NotImplementedError{Kind: domain.KindSpeak, Subtype: string(domain.SpeakMessage)}
		}
		return h.Speech(ctx, t.Message, t.Src)
	case domain.SpeakAudio:
		if h.Audio == nil {
			return &domain.NotImplementedError{Kind: domain.KindSpeak, Subtype: string(domain.SpeakAudio)}
		}
		return h.Audio(ctx, t.Message, t.Src)
	default:
		return &domain.UnknownKindError{Kind: domain.KindSpeak, Subtype: string(t.Subtype)}
	}
}

// VisualHandler is either a VisualFunc receiving every visual trace, or a
// VisualHandlers map keyed by variant.
type VisualHandler interface {
	handleVisual(ctx context.Context, t domain.VisualTrace) error
}

// VisualFunc handles every visual trace regardless of variant.
type VisualFunc func(ctx context.Context, t domain.VisualTrace) error

func (f VisualFunc) handleVisual(ctx context.Context, t domain.VisualTrace) error {
	return f(ctx, t)
}

// VisualHandlers dispatches visual traces by variant.
type VisualHandlers struct {
	Image func(ctx context.Context, image string, device domain.DeviceType, dims *domain.Dimensions, visibility domain.CanvasVisibility) error
	APL   func(ctx context.Context, apl domain.APLVisual) error
}

func (h VisualHandlers) handleVisual(ctx context.Context, t domain.VisualTrace) error {
	switch v := t.Variant.(type) {
	case domain.ImageVisual:
		if h.Image == nil {
			return &domain.NotImplementedError{Kind: domain.KindVisual, Subtype: string(domain.VisualImage)}
		}
		return h.Image(ctx, v.Image, v.Device, v.Dimensions, v.CanvasVisibility)
	case domain.APLVisual:
		if h.APL == nil {
			return &domain.NotImplementedError{Kind: domain.KindVisual, Subtype: string(domain.VisualAPL)}
		}
		return h.APL(ctx, v)
	default:
		return &domain.UnknownKindError{Kind: domain.KindVisual, Subtype: string(t.Subtype())}
	}
}
