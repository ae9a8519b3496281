package variables

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/mohae/deepcopy"
)

// Backend gives guarded access to the state the variables live in.
// Both methods return domain.ErrSessionNotInitialized when there is no state yet.
type Backend interface {
	View(fn func(s *domain.State) error) error
	Update(fn func(s *domain.State) error) error
}

// Manager is the variable bag accessor.
type Manager struct {
	backend Backend
}

// New creates a Manager over backend.
func New(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// ForState creates a Manager over a standalone state. A nil state is uninitialized.
func ForState(s *domain.State) *Manager {
	return New(&stateBackend{state: s})
}

// Get returns the value of key. A missing key yields domain.ErrVariableUndefined.
// The returned value is a copy.
func (m *Manager) Get(key string) (any, error) {
	var out any
	err := m.backend.View(func(s *domain.State) error {
		v, ok := s.Variables[key]
		if !ok {
			return fmt.Errorf("%w: %q", domain.ErrVariableUndefined, key)
		}
		out = deepcopy.Copy(v)
		return nil
	})
	return out, err
}

// GetAll returns a copy of the whole bag.
func (m *Manager) GetAll() (map[string]any, error) {
	out := map[string]any{}
	err := m.backend.View(func(s *domain.State) error {
		for k, v := range s.Variables {
			out[k] = deepcopy.Copy(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Keys returns the variable names in lexical order.
func (m *Manager) Keys() ([]string, error) {
	var keys []string
	err := m.backend.View(func(s *domain.State) error {
		keys = slices.Sorted(maps.Keys(s.Variables))
		return nil
	})
	return keys, err
}

// Set assigns one variable.
func (m *Manager) Set(key string, value any) error {
	if err := Validate(value); err != nil {
		return fmt.Errorf("assigned value for %q: %w", key, err)
	}
	return m.backend.Update(func(s *domain.State) error {
		s.MergeVariables(map[string]any{key: value})
		return nil
	})
}

// SetMany merges vars into the bag. Nothing is written unless every value is valid.
func (m *Manager) SetMany(vars map[string]any) error {
	if err := ValidateAll(vars); err != nil {
		return err
	}
	return m.backend.Update(func(s *domain.State) error {
		s.MergeVariables(vars)
		return nil
	})
}

// Decode copies the bag into target, a pointer to a struct or map.
// Struct fields are matched by their json tag.
func (m *Manager) Decode(target any) error {
	return m.backend.View(func(s *domain.State) error {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           target,
		})
		if err != nil {
			return err
		}
		return dec.Decode(s.Variables)
	})
}

type stateBackend struct {
	mu    sync.RWMutex
	state *domain.State
}

func (b *stateBackend) View(fn func(s *domain.State) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state == nil {
		return domain.ErrSessionNotInitialized
	}
	return fn(b.state)
}

func (b *stateBackend) Update(fn func(s *domain.State) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return domain.ErrSessionNotInitialized
	}
	return fn(b.state)
}
