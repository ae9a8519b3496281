package events

import (
	"context"
	"errors"

	"github.com/aretw0/convo/pkg/domain"
)

func (m *Manager) invoke(parent context.Context, call func(context.Context) error) error {
	if m.timeout <= 0 {
		return safeCall(parent, call)
	}

	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	m.pending.Add(1)
	go func() {
		err := safeCall(ctx, call)
		m.pending.Add(-1)
		done <- err
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
			return domain.ErrHandlerTimeout
		}
		return err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return err
		}
		return domain.ErrHandlerTimeout
	}
}

func safeCall(ctx context.Context, call func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return call(ctx)
}
