package session

import (
	"encoding/json"

	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/filter"
)

// Context is a read-only snapshot of one turn.
// Later turns and variable writes on the session do not change it.
type Context struct {
	env    *domain.Envelope
	config domain.DataConfig
}

func newContext(env *domain.Envelope, cfg domain.DataConfig) *Context {
	trace := make(domain.TraceList, len(env.Trace))
	copy(trace, env.Trace)
	return &Context{
		env: &domain.Envelope{
			State:   env.State.Clone(),
			Request: env.Request,
			Trace:   trace,
		},
		config: cfg,
	}
}

// Trace returns the raw traces of the turn, in order.
func (c *Context) Trace() []domain.Trace {
	out := make([]domain.Trace, len(c.env.Trace))
	copy(out, c.env.Trace)
	return out
}

// Response returns the traces filtered by the session's DataConfig.
func (c *Context) Response() []domain.Trace {
	return filter.Filter(c.env.Trace, c.config)
}

// Choices returns every suggested reply of the turn, in order.
func (c *Context) Choices() []domain.Choice {
	return c.env.Choices()
}

// IsEnding reports whether the turn ended the conversation.
func (c *Context) IsEnding() bool {
	return c.env.IsEnding()
}

// State returns a copy of the state after the turn.
func (c *Context) State() *domain.State {
	return c.env.State.Clone()
}

// Request returns the request that produced the turn, or nil for a launch.
func (c *Context) Request() *domain.Request {
	return c.env.Request
}

// Variables returns a copy of the variable bag after the turn.
func (c *Context) Variables() map[string]any {
	return c.env.State.Clone().Variables
}

// Envelope returns a copy of the whole turn.
func (c *Context) Envelope() *domain.Envelope {
	return &domain.Envelope{
		State:   c.State(),
		Request: c.env.Request,
		Trace:   c.Trace(),
	}
}

// MarshalJSON renders the turn in wire shape.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.env)
}
