package convo_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script() []domain.TraceList {
	return []domain.TraceList{
		{domain.SpeakTrace{Message: "Hi"}},
		{domain.SpeakTrace{Message: "Bye"}, domain.EndTrace{}},
	}
}

func TestNew_RequiresVersionForHTTP(t *testing.T) {
	_, err := convo.New("")
	assert.Error(t, err)

	f, err := convo.New("v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", f.VersionID())
	assert.NotNil(t, f.Transport())
}

func TestNew_RejectsInvalidEndpoint(t *testing.T) {
	_, err := convo.New("v1", convo.WithEndpoint("::not a url"))
	assert.Error(t, err)
}

func TestNew_RejectsNonSerializableVariables(t *testing.T) {
	_, err := convo.New("v1",
		convo.WithTransport(memory.NewTransport(nil)),
		convo.WithVariables(map[string]any{"bad": math.NaN()}),
	)
	assert.ErrorIs(t, err, domain.ErrNotSerializable)

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err = convo.New("v1",
		convo.WithTransport(memory.NewTransport(nil)),
		convo.WithVariables(map[string]any{"loop": cyclic}),
	)
	assert.ErrorIs(t, err, domain.ErrNotSerializable)
}

func TestFactory_NewSessionDefaultState(t *testing.T) {
	tr := memory.NewTransport(script())
	f, err := convo.New("v1",
		convo.WithTransport(tr),
		convo.WithVariables(map[string]any{"name": "Ada"}),
	)
	require.NoError(t, err)

	s := f.NewSession(nil)
	_, err = s.Start(context.Background())
	require.NoError(t, err)

	reqs := tr.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Ada", reqs[0].State.Variables["name"])
	assert.Empty(t, reqs[0].State.Stack)
	assert.NotNil(t, reqs[0].State.Storage)
}

func TestFactory_FetchSessionCachesInitialState(t *testing.T) {
	initial := domain.NewState(map[string]any{"name": "runtime", "level": 1})
	initial.Stack = []map[string]any{{"programID": "root"}}
	counting := &countingTransport{Transport: memory.NewTransport(script(), memory.WithInitialState(initial))}

	f, err := convo.New("v1",
		convo.WithTransport(counting),
		convo.WithVariables(map[string]any{"name": "factory"}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	s1, err := f.FetchSession(ctx)
	require.NoError(t, err)
	s2, err := f.FetchSession(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, counting.fetches())

	require.NoError(t, s1.Variables().Set("level", 5))
	level, err := s2.Variables().Get("level")
	require.NoError(t, err)
	assert.Equal(t, 1, level)

	name, err := s2.Variables().Get("name")
	require.NoError(t, err)
	assert.Equal(t, "factory", name)

	cached, err := f.InitialState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "runtime", cached.Variables["name"])
	assert.Equal(t, []map[string]any{{"programID": "root"}}, cached.Stack)
}

func TestFactory_InvalidateRefetches(t *testing.T) {
	counting := &countingTransport{Transport: memory.NewTransport(nil)}
	f, err := convo.New("v1", convo.WithTransport(counting))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.FetchSession(ctx)
	require.NoError(t, err)
	require.NoError(t, f.Invalidate(ctx))
	_, err = f.FetchSession(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, counting.fetches())
}

func TestFactory_SharedCache(t *testing.T) {
	cache := memory.NewCache()
	require.NoError(t, cache.Set(context.Background(), "v1", domain.NewState(map[string]any{"seeded": true})))

	counting := &countingTransport{Transport: memory.NewTransport(nil)}
	f, err := convo.New("v1", convo.WithTransport(counting), convo.WithStateCache(cache))
	require.NoError(t, err)

	s, err := f.FetchSession(context.Background())
	require.NoError(t, err)
	seeded, err := s.Variables().Get("seeded")
	require.NoError(t, err)
	assert.Equal(t, true, seeded)
	assert.Zero(t, counting.fetches())
}

func TestFactory_FetchErrorIsReturned(t *testing.T) {
	boom := errors.New("unreachable")
	f, err := convo.New("v1", convo.WithTransport(failingTransport{err: boom}))
	require.NoError(t, err)

	_, err = f.FetchSession(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFactory_FetchLocker(t *testing.T) {
	locker := &recordingLocker{}
	f, err := convo.New("v1",
		convo.WithTransport(memory.NewTransport(nil)),
		convo.WithFetchLocker(locker),
	)
	require.NoError(t, err)

	_, err = f.FetchSession(context.Background())
	require.NoError(t, err)
	_, err = f.FetchSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"lock:v1", "unlock:v1"}, locker.log)
}

func TestFactory_SessionsShareConfigAndHooks(t *testing.T) {
	tr := memory.NewTransport(script())
	var turns int
	f, err := convo.New("v1",
		convo.WithTransport(tr),
		convo.WithDataConfig(domain.DataConfig{TTS: true}),
		convo.WithHandlerTimeout(time.Second),
		convo.WithLifecycleHooks(domain.LifecycleHooks{
			OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) { turns++ },
		}),
	)
	require.NoError(t, err)

	s := f.NewSession(nil)
	_, err = s.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, turns)
	assert.True(t, tr.Requests()[0].Config.TTS)
}

type countingTransport struct {
	*memory.Transport
	mu sync.Mutex
	n  int
}

func (c *countingTransport) FetchInitialState(ctx context.Context) (*domain.State, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return c.Transport.FetchInitialState(ctx)
}

func (c *countingTransport) fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type failingTransport struct {
	ports.TransportFunc
	err error
}

func (f failingTransport) FetchInitialState(context.Context) (*domain.State, error) {
	return nil, f.err
}

type recordingLocker struct {
	log []string
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.log = append(l.log, "lock:"+key)
	return func(ctx context.Context) error {
		l.log = append(l.log, "unlock:"+key)
		return nil
	}, nil
}
