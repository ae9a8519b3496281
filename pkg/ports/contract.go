package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateCacheContract runs a suite of tests to verify that a StateCache implementation
// adheres to the defined interface contract.
func RunStateCacheContract(t *testing.T, cache StateCache) {
	ctx := context.Background()
	versionID := "contract-test-version-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		state := domain.NewState(map[string]any{"name": "Ada"})
		state.Storage["visits"] = 1

		err := cache.Set(ctx, versionID, state)
		require.NoError(t, err, "Set should not return error")

		loaded, err := cache.Get(ctx, versionID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, "Ada", loaded.Variables["name"])
		// JSON-backed caches turn ints into float64.
		assert.NotNil(t, loaded.Storage["visits"])
		assert.NotNil(t, loaded.Stack)
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, versionID, domain.NewState(map[string]any{"name": "Ada"})))

		first, err := cache.Get(ctx, versionID)
		require.NoError(t, err)
		first.Variables["name"] = "changed"

		second, err := cache.Get(ctx, versionID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", second.Variables["name"])
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+versionID)
		assert.ErrorIs(t, err, domain.ErrStateNotCached)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, versionID, domain.NewState(nil)))

		err := cache.Delete(ctx, versionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = cache.Get(ctx, versionID)
		assert.ErrorIs(t, err, domain.ErrStateNotCached, "Get after Delete should return ErrStateNotCached")

		assert.NoError(t, cache.Delete(ctx, versionID), "Delete of a missing entry is a no-op")
	})
}
