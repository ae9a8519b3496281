package events

import (
	"context"
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
)

// TraceHandler receives one trace together with the envelope it belongs to.
type TraceHandler func(ctx context.Context, trace domain.Trace, env *domain.Envelope) error

// LifecycleHandler receives the envelope of a turn at a batch boundary.
type LifecycleHandler func(ctx context.Context, env *domain.Envelope) error

// Subscription identifies one registration. It is returned by Subscribe and
// consumed by Unsubscribe.
type Subscription struct {
	Selector Selector
	id       uint64
}

// HandlerError reports the handler failure that stopped a dispatch.
type HandlerError struct {
	Selector Selector
	Kind     domain.Kind
	Err      error
}

func (e *HandlerError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("handler for %q failed on %q trace: %v", e.Selector, e.Kind, e.Err)
	}
	return fmt.Sprintf("handler for %q failed: %v", e.Selector, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PanicError is the cause recorded when a handler panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}
