package memory_test

import (
	"testing"

	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/ports"
)

func TestMemoryCache_Contract(t *testing.T) {
	cache := memory.NewCache()
	ports.RunStateCacheContract(t, cache)
}
