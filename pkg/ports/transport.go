package ports

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
)

// Transport reaches the conversational runtime.
// Implementations return their own errors; callers pass them through unchanged.
type Transport interface {
	// FetchInitialState returns the starting state of the configured version.
	FetchInitialState(ctx context.Context) (*domain.State, error)

	// Exchange performs exactly one turn.
	Exchange(ctx context.Context, req domain.TurnRequest) (*domain.Envelope, error)
}

// TransportFunc adapts a function to the Exchange half of Transport.
// FetchInitialState returns an empty state.
type TransportFunc func(ctx context.Context, req domain.TurnRequest) (*domain.Envelope, error)

func (f TransportFunc) FetchInitialState(context.Context) (*domain.State, error) {
	return domain.NewState(nil), nil
}

func (f TransportFunc) Exchange(ctx context.Context, req domain.TurnRequest) (*domain.Envelope, error) {
	return f(ctx, req)
}
