package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/adapters/http"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/aretw0/convo/pkg/session"
	"github.com/aretw0/convo/pkg/variables"
)

// DefaultEndpoint is the public runtime the factory talks to unless WithEndpoint is given.
const DefaultEndpoint = http.DefaultEndpoint

// fetchLockTTL bounds how long one process may hold the initial-state fetch lock.
const fetchLockTTL = 30 * time.Second

// Factory creates sessions for one published conversation version.
// It is safe for concurrent use.
type Factory struct {
	versionID string
	apiKey    string
	endpoint  string

	transport  ports.Transport
	cache      ports.StateCache
	locker     ports.Locker
	config     domain.DataConfig
	variables  map[string]any
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	timeout    time.Duration
	sessionOps []session.Option

	fetchMu sync.Mutex
}

// Option defines a functional option for configuring the Factory.
type Option func(*Factory)

// WithAPIKey sets the key sent to the runtime.
func WithAPIKey(key string) Option {
	return func(f *Factory) {
		f.apiKey = key
	}
}

// WithEndpoint overrides the runtime base URL.
func WithEndpoint(endpoint string) Option {
	return func(f *Factory) {
		f.endpoint = endpoint
	}
}

// WithDataConfig sets the output configuration of every session.
func WithDataConfig(cfg domain.DataConfig) Option {
	return func(f *Factory) {
		f.config = cfg
	}
}

// WithVariables sets variables merged into every session's initial state.
// Values must be JSON serializable; New reports the first that is not.
func WithVariables(vars map[string]any) Option {
	return func(f *Factory) {
		f.variables = vars
	}
}

// WithTransport replaces the HTTP transport, e.g. with a replay or scripted one.
func WithTransport(t ports.Transport) Option {
	return func(f *Factory) {
		f.transport = t
	}
}

// WithStateCache replaces the in-memory initial-state cache.
func WithStateCache(c ports.StateCache) Option {
	return func(f *Factory) {
		f.cache = c
	}
}

// WithFetchLocker serializes initial-state fetches across processes sharing a cache.
func WithFetchLocker(l ports.Locker) Option {
	return func(f *Factory) {
		f.locker = l
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Factory) {
		f.hooks = hooks
	}
}

// WithHandlerTimeout bounds every handler call of every session.
// See session.WithHandlerTimeout for what happens to a handler that overruns.
func WithHandlerTimeout(d time.Duration) Option {
	return func(f *Factory) {
		f.timeout = d
	}
}

// WithSessionOptions appends raw session options, applied last.
func WithSessionOptions(opts ...session.Option) Option {
	return func(f *Factory) {
		f.sessionOps = append(f.sessionOps, opts...)
	}
}

// New creates a factory for versionID.
func New(versionID string, opts ...Option) (*Factory, error) {
	f := &Factory{
		versionID: versionID,
		endpoint:  DefaultEndpoint,
		config:    domain.DefaultDataConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := variables.ValidateAll(f.variables); err != nil {
		return nil, fmt.Errorf("invalid factory variables: %w", err)
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}
	if f.cache == nil {
		f.cache = memory.NewCache()
	}

	if f.transport == nil {
		if versionID == "" {
			return nil, http.ErrMissingVersion
		}
		t, err := http.New(versionID,
			http.WithEndpoint(f.endpoint),
			http.WithAPIKey(f.apiKey),
			http.WithLogger(f.logger),
		)
		if err != nil {
			return nil, err
		}
		f.transport = t
	}

	if versionID != "" {
		f.logger = f.logger.With("version", versionID)
	}
	return f, nil
}

// VersionID returns the version the factory was created for.
func (f *Factory) VersionID() string {
	return f.versionID
}

// Transport returns the transport shared by every session.
func (f *Factory) Transport() ports.Transport {
	return f.transport
}

// DefaultState returns a fresh state holding the factory variables.
func (f *Factory) DefaultState() *domain.State {
	return domain.NewState(f.variables)
}

// NewSession creates a session positioned at state.
// A nil state starts from DefaultState.
func (f *Factory) NewSession(state *domain.State) *session.Session {
	if state == nil {
		state = f.DefaultState()
	}
	opts := []session.Option{
		session.WithDataConfig(f.config),
		session.WithLogger(f.logger),
		session.WithLifecycleHooks(f.hooks),
		session.WithHandlerTimeout(f.timeout),
	}
	return session.New(state, f.transport, append(opts, f.sessionOps...)...)
}

// FetchSession creates a session from the runtime's initial state.
// The state is fetched once per version and cached; every session gets its own
// copy with the factory variables merged on top.
func (f *Factory) FetchSession(ctx context.Context) (*session.Session, error) {
	state, err := f.InitialState(ctx)
	if err != nil {
		return nil, err
	}
	state.MergeVariables(f.variables)
	return f.NewSession(state), nil
}

// InitialState returns a copy of the cached initial state, fetching it on a miss.
func (f *Factory) InitialState(ctx context.Context) (*domain.State, error) {
	if state, err := f.cache.Get(ctx, f.versionID); err == nil {
		f.logger.Debug("initial state cache hit")
		return state.Clone(), nil
	} else if !errors.Is(err, domain.ErrStateNotCached) {
		return nil, fmt.Errorf("failed to read state cache: %w", err)
	}

	f.fetchMu.Lock()
	defer f.fetchMu.Unlock()

	if f.locker != nil {
		unlock, err := f.locker.Lock(ctx, f.versionID, fetchLockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock initial state fetch: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				f.logger.Warn("failed to release fetch lock", "err", err)
			}
		}()
	}

	// Another caller may have filled the cache while we waited.
	if state, err := f.cache.Get(ctx, f.versionID); err == nil {
		return state.Clone(), nil
	}

	f.logger.Debug("initial state cache miss")
	state, err := f.transport.FetchInitialState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = domain.NewState(nil)
	}
	if err := f.cache.Set(ctx, f.versionID, state); err != nil {
		f.logger.Warn("failed to cache initial state", "err", err)
	}
	return state.Clone(), nil
}

// Invalidate drops the cached initial state so the next FetchSession refetches it.
func (f *Factory) Invalidate(ctx context.Context) error {
	return f.cache.Delete(ctx, f.versionID)
}
