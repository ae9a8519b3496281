package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
)

// ErrScriptExhausted is returned when every scripted turn has been consumed.
var ErrScriptExhausted = errors.New("scripted transport has no more turns")

// Transport implements ports.Transport by replaying scripted turns in order.
// It records every request it receives. Safe for concurrent use.
type Transport struct {
	mu       sync.Mutex
	initial  *domain.State
	turns    []domain.TraceList
	requests []domain.TurnRequest
	fail     map[int]error
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithInitialState sets the state returned by FetchInitialState.
func WithInitialState(s *domain.State) TransportOption {
	return func(t *Transport) {
		t.initial = s.Clone()
	}
}

// WithFailure makes the turn at index (zero-based) fail with err instead of answering.
// The failed call still consumes the turn.
func WithFailure(index int, err error) TransportOption {
	return func(t *Transport) {
		t.fail[index] = err
	}
}

// NewTransport creates a transport that answers turn i with turns[i].
func NewTransport(turns []domain.TraceList, opts ...TransportOption) *Transport {
	t := &Transport{
		initial: domain.NewState(nil),
		turns:   turns,
		fail:    make(map[int]error),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FetchInitialState returns a copy of the configured initial state.
func (t *Transport) FetchInitialState(ctx context.Context) (*domain.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initial.Clone(), nil
}

// Exchange answers with the next scripted turn. The returned state is the
// request state with the turn's request echoed back.
func (t *Transport) Exchange(ctx context.Context, req domain.TurnRequest) (*domain.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	index := len(t.requests)
	t.requests = append(t.requests, domain.TurnRequest{
		State:   req.State.Clone(),
		Request: req.Request,
		Config:  req.Config,
	})

	if err, ok := t.fail[index]; ok {
		return nil, err
	}
	if index >= len(t.turns) {
		return nil, ErrScriptExhausted
	}

	trace := make(domain.TraceList, len(t.turns[index]))
	copy(trace, t.turns[index])

	state := req.State.Clone()
	if state == nil {
		state = domain.NewState(nil)
	}
	return &domain.Envelope{
		State:   state,
		Request: req.Request,
		Trace:   trace,
	}, nil
}

// Requests returns every request received so far.
func (t *Transport) Requests() []domain.TurnRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.TurnRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

// Calls returns the number of Exchange calls.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
