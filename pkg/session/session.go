package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/events"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/variables"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/convo/pkg/session"

// Session is the turn controller of one conversation.
type Session struct {
	transport ports.Transport
	events    *events.Manager

	// turn serializes Advance; it is only ever acquired with TryLock.
	turn sync.Mutex

	mu  sync.RWMutex
	env *domain.Envelope

	config         domain.DataConfig
	logger         *slog.Logger
	hooks          domain.LifecycleHooks
	handlerTimeout time.Duration
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	maxInput       int
}

// New creates a session positioned at state. A nil state leaves the session
// uninitialized: every advancing call fails with domain.ErrSessionNotInitialized.
func New(state *domain.State, transport ports.Transport, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		config:    domain.DefaultDataConfig(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	s.tracer = s.tracerProvider.Tracer(tracerName)
	s.events = events.NewManager(
		events.WithLogger(s.logger),
		events.WithHandlerTimeout(s.handlerTimeout),
		events.WithLifecycleHooks(s.hooks),
	)
	if state != nil {
		s.env = &domain.Envelope{State: state.Clone(), Trace: domain.TraceList{}}
	}
	return s
}

// Events exposes the dispatch table backing the subscription methods.
func (s *Session) Events() *events.Manager {
	return s.events
}

// Config returns the output configuration of the session.
func (s *Session) Config() domain.DataConfig {
	return s.config
}

// Initialized reports whether the session has a state to advance from.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env != nil
}

// Start restarts the conversation: the stack and the trace history are cleared,
// variables and storage are kept, and the launch request is sent.
// Unlike the other advancing calls it is allowed after the conversation ended.
func (s *Session) Start(ctx context.Context) (*Context, error) {
	if !s.beginTurn() {
		return nil, domain.ErrTurnInProgress
	}
	defer s.turn.Unlock()

	s.mu.Lock()
	if s.env == nil {
		s.mu.Unlock()
		return nil, domain.ErrSessionNotInitialized
	}
	state := s.env.State.Clone()
	state.ResetStack()
	s.env = &domain.Envelope{State: state, Trace: domain.TraceList{}}
	s.mu.Unlock()

	return s.advance(ctx, nil)
}

// SendText sends user text. Blank text is sent as a launch (nil request).
func (s *Session) SendText(ctx context.Context, text string) (*Context, error) {
	if strings.TrimSpace(text) == "" {
		return s.Advance(ctx, nil)
	}
	clean, err := sanitize(text, maxInputSize(s.maxInput))
	if err != nil {
		return nil, err
	}
	return s.Advance(ctx, domain.TextRequest(clean))
}

// SendIntent sends a pre-resolved intent.
func (s *Session) SendIntent(ctx context.Context, name string, entities []domain.Entity, query string, confidence float64) (*Context, error) {
	return s.Advance(ctx, domain.IntentRequest(name, entities, query, confidence))
}

// Send sends req as is. A nil request is a launch.
func (s *Session) Send(ctx context.Context, req *domain.Request) (*Context, error) {
	return s.Advance(ctx, req)
}

// Advance runs one turn: exactly one exchange with the runtime, then dispatch
// of before_batch, every trace in order and after_batch.
//
// Transport errors are returned unchanged and leave the session as it was.
// A handler error stops the dispatch and is returned as *events.HandlerError;
// the new turn stays installed and is visible through Context.
func (s *Session) Advance(ctx context.Context, req *domain.Request) (*Context, error) {
	if !s.beginTurn() {
		return nil, domain.ErrTurnInProgress
	}
	defer s.turn.Unlock()
	return s.advance(ctx, req)
}

// beginTurn takes the turn lock. It refuses while a handler of an earlier turn
// is still running past its timeout.
func (s *Session) beginTurn() bool {
	if !s.turn.TryLock() {
		return false
	}
	if s.events.Pending() > 0 {
		s.turn.Unlock()
		return false
	}
	return true
}

func (s *Session) advance(ctx context.Context, req *domain.Request) (*Context, error) {
	s.mu.RLock()
	current := s.env
	s.mu.RUnlock()

	if current == nil {
		return nil, domain.ErrSessionNotInitialized
	}
	if current.IsEnding() {
		return nil, domain.ErrConversationEnded
	}
	if s.transport == nil {
		return nil, fmt.Errorf("session: no transport configured")
	}

	reqType := requestType(req)
	ctx, span := s.tracer.Start(ctx, "convo.turn", trace.WithAttributes(
		attribute.String("convo.request_type", string(reqType)),
	))
	defer span.End()

	start := time.Now()
	event := &domain.TurnEvent{Timestamp: start, RequestType: reqType}
	if s.hooks.OnTurnStart != nil {
		s.hooks.OnTurnStart(ctx, event)
	}
	s.logger.Debug("turn started", "request_type", reqType)

	finish := func(err error) {
		event.Duration = time.Since(start)
		event.Err = err
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("convo.trace_count", event.TraceCount),
			attribute.Bool("convo.ended", event.Ended),
		)
		if s.hooks.OnTurnEnd != nil {
			s.hooks.OnTurnEnd(ctx, event)
		}
	}

	env, err := s.transport.Exchange(ctx, domain.TurnRequest{
		State:   current.State.Clone(),
		Request: req,
		Config:  s.config.RequestConfig(),
	})
	if err != nil {
		s.logger.Warn("turn failed", "request_type", reqType, "err", err)
		finish(err)
		return nil, err
	}
	if env == nil {
		env = &domain.Envelope{}
	}
	if env.State == nil {
		env.State = current.State.Clone()
	}
	if env.Trace == nil {
		env.Trace = domain.TraceList{}
	}
	env.Request = req

	s.mu.Lock()
	s.env = env
	s.mu.Unlock()

	event.TraceCount = len(env.Trace)
	event.Ended = env.IsEnding()

	if err := s.dispatch(ctx, env); err != nil {
		s.logger.Warn("turn dispatch failed", "request_type", reqType, "err", err)
		finish(err)
		return nil, err
	}

	s.logger.Debug("turn finished", "request_type", reqType, "traces", event.TraceCount, "ended", event.Ended)
	finish(nil)
	return newContext(env, s.config), nil
}

func (s *Session) dispatch(ctx context.Context, env *domain.Envelope) error {
	if err := s.events.DispatchLifecycle(ctx, events.BeforeBatch, env); err != nil {
		return err
	}
	for _, t := range env.Trace {
		if err := s.events.DispatchTrace(ctx, t, env); err != nil {
			return err
		}
	}
	return s.events.DispatchLifecycle(ctx, events.AfterBatch, env)
}

func requestType(req *domain.Request) domain.RequestType {
	if req == nil {
		return domain.RequestLaunch
	}
	return req.Type
}

// Context returns a snapshot of the current turn, or nil when uninitialized.
func (s *Session) Context() *Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return nil
	}
	return newContext(s.env, s.config)
}

// IsEnding reports whether the current turn ended the conversation.
func (s *Session) IsEnding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env.IsEnding()
}

// Variables returns an accessor over the live variable bag. Writes are sent
// with the next turn.
func (s *Session) Variables() *variables.Manager {
	return variables.New(s)
}

// View implements variables.Backend.
func (s *Session) View(fn func(*domain.State) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil || s.env.State == nil {
		return domain.ErrSessionNotInitialized
	}
	return fn(s.env.State)
}

// Update implements variables.Backend.
func (s *Session) Update(fn func(*domain.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env == nil || s.env.State == nil {
		return domain.ErrSessionNotInitialized
	}
	return fn(s.env.State)
}
