package ports

import (
	"context"

	"github.com/aretw0/convo/pkg/domain"
)

// StateCache stores initial states keyed by version ID.
type StateCache interface {
	// Get returns domain.ErrStateNotCached on a miss.
	Get(ctx context.Context, versionID string) (*domain.State, error)

	// Set stores a copy of state.
	Set(ctx context.Context, versionID string, state *domain.State) error

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, versionID string) error
}
