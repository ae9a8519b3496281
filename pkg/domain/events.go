package domain

import (
	"context"
	"time"
)

// TurnEvent describes one turn from the client's point of view.
type TurnEvent struct {
	Timestamp   time.Time
	RequestType RequestType
	TraceCount  int
	Ended       bool
	Duration    time.Duration
	Err         error
}

// DispatchEvent describes the delivery of one trace (or lifecycle notification)
// to its handlers.
type DispatchEvent struct {
	Timestamp time.Time
	Selector  string
	Kind      Kind
	Handlers  int
	Duration  time.Duration
	Err       error
}

// LifecycleHooks defines callbacks for client observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnTurnStart func(context.Context, *TurnEvent)
	OnTurnEnd   func(context.Context, *TurnEvent)
	OnDispatch  func(context.Context, *DispatchEvent)
}

// CombineHooks returns hooks that call each non-nil hook of every argument in order.
func CombineHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *TurnEvent) {
			for _, h := range all {
				if h.OnTurnStart != nil {
					h.OnTurnStart(ctx, e)
				}
			}
		},
		OnTurnEnd: func(ctx context.Context, e *TurnEvent) {
			for _, h := range all {
				if h.OnTurnEnd != nil {
					h.OnTurnEnd(ctx, e)
				}
			}
		},
		OnDispatch: func(ctx context.Context, e *DispatchEvent) {
			for _, h := range all {
				if h.OnDispatch != nil {
					h.OnDispatch(ctx, e)
				}
			}
		},
	}
}
