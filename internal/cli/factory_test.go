package cli

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/convo/internal/logging"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactory_RequiresVersionForHTTP(t *testing.T) {
	_, err := NewFactory(DefaultConfig(), nil, logging.NewNop())
	assert.Error(t, err)
}

func TestNewFactory_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.VersionID = "v1"
	cfg.Redis.Addr = mr.Addr()
	cfg.Variables = map[string]any{"lang": "en"}

	tr := memory.NewTransport(nil, memory.WithInitialState(domain.NewState(map[string]any{"seed": 1})))
	f, err := NewFactory(cfg, tr, logging.NewNop())
	require.NoError(t, err)

	s, err := f.FetchSession(context.Background())
	require.NoError(t, err)

	lang, err := s.Variables().Get("lang")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	assert.True(t, mr.Exists("convo:state:v1"))
	assert.False(t, mr.Exists("convo:state:lock:v1"), "fetch lock is released")
}

func TestNewFactory_MaskedVariablesStayLiveInSessions(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.VersionID = "v1"
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	cfg.MaskVariables = []string{"token"}

	tr := memory.NewTransport(
		[]domain.TraceList{{domain.SpeakTrace{Message: "hi"}}, {domain.SpeakTrace{Message: "hi again"}}},
		memory.WithInitialState(domain.NewState(map[string]any{"api_token": "real-secret"})),
	)
	f, err := NewFactory(cfg, tr, logging.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := f.InitialState(ctx)
	require.NoError(t, err)
	second, err := f.InitialState(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Variables, second.Variables)
	assert.Equal(t, "real-secret", second.Variables["api_token"])

	raw, err := mr.Get("convo:state:v1")
	require.NoError(t, err)
	assert.Contains(t, raw, "__encrypted__")
	assert.NotContains(t, raw, `"api_token":`)

	// A session created from a cache hit sends the real value to the runtime.
	for range 2 {
		s, err := f.FetchSession(ctx)
		require.NoError(t, err)
		_, err = s.Start(ctx)
		require.NoError(t, err)
	}
	require.Len(t, tr.Requests(), 2)
	for _, req := range tr.Requests() {
		assert.Equal(t, "real-secret", req.State.Variables["api_token"])
	}
}

func TestNewFactory_InvalidMaskPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VersionID = "v1"
	cfg.MaskVariables = []string{"("}

	_, err := NewFactory(cfg, memory.NewTransport(nil), logging.NewNop())
	assert.ErrorContains(t, err, "mask_variables")
}

func TestNewFactory_InvalidEncryptionKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VersionID = "v1"
	cfg.Redis.Addr = "localhost:0"
	cfg.Redis.EncryptionKey = "not base64!"

	_, err := NewFactory(cfg, memory.NewTransport(nil), logging.NewNop())
	assert.Error(t, err)
}
