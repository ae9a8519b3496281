package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/domain"
)

type traceEntry struct {
	id      uint64
	handler TraceHandler
}

type lifecycleEntry struct {
	id      uint64
	handler LifecycleHandler
}

// Manager is the dispatch table. It is safe for concurrent use; registry changes
// made while a dispatch is running take effect from the next dispatch call.
type Manager struct {
	mu        sync.RWMutex
	nextID    uint64
	traces    map[Selector][]traceEntry
	lifecycle map[Selector][]lifecycleEntry

	logger  *slog.Logger
	timeout time.Duration
	hooks   domain.LifecycleHooks

	// pending counts bounded handler calls whose goroutine has not returned.
	pending atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHandlerTimeout bounds every handler call. Zero disables the bound.
// A handler that exceeds it keeps running in the background; its result is
// discarded and Pending reports it until it returns.
func WithHandlerTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithLifecycleHooks registers observability hooks. Only OnDispatch is used here.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// NewManager creates an empty dispatch table.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		traces:    make(map[Selector][]traceEntry),
		lifecycle: make(map[Selector][]lifecycleEntry),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers h for a trace kind or the wildcard.
// Registering the same function twice yields two deliveries.
func (m *Manager) Subscribe(sel Selector, h TraceHandler) (Subscription, error) {
	if !sel.IsTrace() {
		return Subscription{}, fmt.Errorf("%w: %q does not accept trace handlers", domain.ErrInvalidSelector, sel)
	}
	if h == nil {
		return Subscription{}, fmt.Errorf("events: nil handler for %q", sel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.traces[sel] = append(m.traces[sel], traceEntry{id: m.nextID, handler: h})
	return Subscription{Selector: sel, id: m.nextID}, nil
}

// SubscribeLifecycle registers h for before_batch or after_batch.
func (m *Manager) SubscribeLifecycle(sel Selector, h LifecycleHandler) (Subscription, error) {
	if !sel.IsLifecycle() {
		return Subscription{}, fmt.Errorf("%w: %q does not accept lifecycle handlers", domain.ErrInvalidSelector, sel)
	}
	if h == nil {
		return Subscription{}, fmt.Errorf("events: nil handler for %q", sel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.lifecycle[sel] = append(m.lifecycle[sel], lifecycleEntry{id: m.nextID, handler: h})
	return Subscription{Selector: sel, id: m.nextID}, nil
}

// Unsubscribe removes the registration identified by sub.
// Removing a registration that is not present is a no-op.
func (m *Manager) Unsubscribe(sub Subscription) error {
	if !sub.Selector.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSelector, sub.Selector)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.Selector.IsLifecycle() {
		list := m.lifecycle[sub.Selector]
		for i, e := range list {
			if e.id == sub.id {
				m.lifecycle[sub.Selector] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
		return nil
	}

	list := m.traces[sub.Selector]
	for i, e := range list {
		if e.id == sub.id {
			m.traces[sub.Selector] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count returns the number of handlers registered for sel.
func (m *Manager) Count(sel Selector) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sel.IsLifecycle() {
		return len(m.lifecycle[sel])
	}
	return len(m.traces[sel])
}

// Clear removes every registration.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traces = make(map[Selector][]traceEntry)
	m.lifecycle = make(map[Selector][]lifecycleEntry)
}

func (m *Manager) snapshotTrace(sel Selector) []traceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.traces[sel]
	out := make([]traceEntry, len(list))
	copy(out, list)
	return out
}

func (m *Manager) snapshotLifecycle(sel Selector) []lifecycleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.lifecycle[sel]
	out := make([]lifecycleEntry, len(list))
	copy(out, list)
	return out
}

// DispatchTrace delivers t to the handlers of its kind, then to the wildcard handlers.
// Unknown kinds reach wildcard handlers only.
func (m *Manager) DispatchTrace(ctx context.Context, t domain.Trace, env *domain.Envelope) error {
	kind := domain.KindOf(t)
	start := time.Now()
	delivered := 0

	var err error
	if kind.Valid() {
		delivered, err = m.runTrace(ctx, ForKind(kind), t, env)
	} else {
		m.logger.Warn("dispatching unknown trace kind", "kind", kind)
	}
	if err == nil {
		var n int
		n, err = m.runTrace(ctx, Wildcard, t, env)
		delivered += n
	}

	m.emit(ctx, &domain.DispatchEvent{
		Timestamp: start,
		Selector:  string(ForKind(kind)),
		Kind:      kind,
		Handlers:  delivered,
		Duration:  time.Since(start),
		Err:       err,
	})
	return err
}

// DispatchLifecycle delivers env to the before_batch or after_batch handlers.
func (m *Manager) DispatchLifecycle(ctx context.Context, sel Selector, env *domain.Envelope) error {
	if !sel.IsLifecycle() {
		return fmt.Errorf("%w: %q is not a lifecycle selector", domain.ErrInvalidSelector, sel)
	}
	start := time.Now()
	delivered := 0

	var err error
	for _, e := range m.snapshotLifecycle(sel) {
		if err = ctx.Err(); err != nil {
			break
		}
		delivered++
		if err = m.invoke(ctx, func(ctx context.Context) error { return e.handler(ctx, env) }); err != nil {
			err = &HandlerError{Selector: sel, Err: err}
			break
		}
	}

	m.emit(ctx, &domain.DispatchEvent{
		Timestamp: start,
		Selector:  string(sel),
		Handlers:  delivered,
		Duration:  time.Since(start),
		Err:       err,
	})
	return err
}

func (m *Manager) runTrace(ctx context.Context, sel Selector, t domain.Trace, env *domain.Envelope) (int, error) {
	delivered := 0
	for _, e := range m.snapshotTrace(sel) {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		delivered++
		if err := m.invoke(ctx, func(ctx context.Context) error { return e.handler(ctx, t, env) }); err != nil {
			m.logger.Debug("handler failed", "selector", sel, "kind", domain.KindOf(t), "err", err)
			return delivered, &HandlerError{Selector: sel, Kind: domain.KindOf(t), Err: err}
		}
	}
	return delivered, nil
}

func (m *Manager) emit(ctx context.Context, e *domain.DispatchEvent) {
	if m.hooks.OnDispatch != nil {
		m.hooks.OnDispatch(ctx, e)
	}
}

// Pending returns the number of handlers that exceeded their timeout and are
// still running.
func (m *Manager) Pending() int {
	return int(m.pending.Load())
}
