package events

import (
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
)

// Selector names a dispatch slot.
type Selector string

const (
	// Wildcard receives every trace after the kind-specific handlers.
	Wildcard Selector = "trace"
	// BeforeBatch fires once per turn before any trace is dispatched.
	BeforeBatch Selector = "before_batch"
	// AfterBatch fires once per turn after every trace is dispatched.
	AfterBatch Selector = "after_batch"
)

// ForKind returns the selector of a trace kind.
func ForKind(k domain.Kind) Selector {
	return Selector(k)
}

// IsLifecycle reports whether s is a batch lifecycle selector.
func (s Selector) IsLifecycle() bool {
	return s == BeforeBatch || s == AfterBatch
}

// IsTrace reports whether s accepts trace handlers: a known kind or the wildcard.
func (s Selector) IsTrace() bool {
	return s == Wildcard || domain.Kind(s).Valid()
}

// Valid reports whether s is any known selector.
func (s Selector) Valid() bool {
	return s.IsTrace() || s.IsLifecycle()
}

// ParseSelector validates a selector string.
func ParseSelector(s string) (Selector, error) {
	sel := Selector(s)
	if !sel.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSelector, s)
	}
	return sel, nil
}
