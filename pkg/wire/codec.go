package wire

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/convo/pkg/domain"
)

// Option configures decoding.
type Option func(*config)

type config struct {
	strict       bool
	inferSubtype bool
}

func newConfig(opts []Option) config {
	cfg := config{inferSubtype: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithStrictKinds rejects traces of unknown kinds instead of preserving them.
func WithStrictKinds() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithAudioInference toggles the legacy speak subtype inference. It is on by default.
func WithAudioInference(enabled bool) Option {
	return func(c *config) {
		c.inferSubtype = enabled
	}
}

type rawEnvelope struct {
	State   *domain.State    `json:"state"`
	Request *domain.Request  `json:"request"`
	Trace   []map[string]any `json:"trace"`
}

// DecodeEnvelope parses a turn response.
func DecodeEnvelope(data []byte, opts ...Option) (*domain.Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	traces, err := decodeTraces(raw.Trace, newConfig(opts))
	if err != nil {
		return nil, err
	}
	if raw.State == nil {
		raw.State = domain.NewState(nil)
	}
	return &domain.Envelope{
		State:   raw.State,
		Request: raw.Request,
		Trace:   traces,
	}, nil
}

// DecodeTraces parses a bare JSON array of traces.
func DecodeTraces(data []byte, opts ...Option) (domain.TraceList, error) {
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode traces: %w", err)
	}
	return decodeTraces(raws, newConfig(opts))
}

func decodeTraces(raws []map[string]any, cfg config) (domain.TraceList, error) {
	var parseOpts []domain.ParseOption
	if cfg.strict {
		parseOpts = append(parseOpts, domain.StrictKinds())
	}

	out := make(domain.TraceList, 0, len(raws))
	for i, raw := range raws {
		if cfg.inferSubtype {
			raw = inferSpeakSubtype(raw)
		}
		t, err := domain.ParseTrace(raw, parseOpts...)
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// DecodeState parses an initial state document.
func DecodeState(data []byte) (*domain.State, error) {
	var s domain.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return s.Clone(), nil
}

// EncodeTurnRequest renders the body of one runtime exchange.
func EncodeTurnRequest(req domain.TurnRequest) ([]byte, error) {
	if req.State == nil {
		return nil, domain.ErrSessionNotInitialized
	}
	return json.Marshal(req)
}
