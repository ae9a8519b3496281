package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional option for configuring a Session.
type Option func(*Session)

// WithDataConfig sets the output configuration. The default is domain.DefaultDataConfig().
func WithDataConfig(cfg domain.DataConfig) Option {
	return func(s *Session) {
		s.config = cfg
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks for turns and dispatches.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithHandlerTimeout bounds every handler call. Zero (the default) disables the bound.
// A handler that exceeds it is not stopped: it keeps running in the background
// and new turns fail with domain.ErrTurnInProgress until it returns.
func WithHandlerTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.handlerTimeout = d
	}
}

// WithTracerProvider sets the provider used to open one span per turn.
// The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Session) {
		if tp != nil {
			s.tracerProvider = tp
		}
	}
}

// WithMaxInputSize overrides the text input limit (see SanitizeInput).
func WithMaxInputSize(n int) Option {
	return func(s *Session) {
		s.maxInput = n
	}
}
