package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ParseOption configures ParseTrace.
type ParseOption func(*parseConfig)

type parseConfig struct {
	strict bool
}

// StrictKinds makes ParseTrace reject unknown kinds with an UnknownKindError
// instead of preserving them as UnknownTrace.
func StrictKinds() ParseOption {
	return func(c *parseConfig) {
		c.strict = true
	}
}

// ParseTrace builds a Trace from an untyped wire object of the form
// {"type": "<kind>", "payload": {...}}.
// Required payload fields are never defaulted: a missing one yields a MalformedTraceError.
func ParseTrace(raw map[string]any, opts ...ParseOption) (Trace, error) {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	typ, ok := raw["type"].(string)
	if !ok || typ == "" {
		return nil, &MalformedTraceError{Field: "type", Reason: "missing or not a string"}
	}
	kind := Kind(typ)

	payload, err := payloadOf(kind, raw["payload"])
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindBlock:
		return decodeAs[BlockTrace](kind, payload, "blockID")
	case KindChoice:
		t, err := decodeAs[ChoiceTrace](kind, payload, "choices")
		if err != nil {
			return nil, err
		}
		for i, c := range t.(ChoiceTrace).Choices {
			if c.Name == "" {
				return nil, &MalformedTraceError{Kind: kind, Field: fmt.Sprintf("choices[%d].name", i), Reason: "missing"}
			}
		}
		return t, nil
	case KindDebug:
		return decodeAs[DebugTrace](kind, payload, "message")
	case KindEnd:
		return EndTrace{}, nil
	case KindFlow:
		return decodeAs[FlowTrace](kind, payload, "diagramID")
	case KindSpeak:
		return decodeAs[SpeakTrace](kind, payload, "message")
	case KindAudio:
		return decodeAs[AudioTrace](kind, payload, "src")
	case KindStream:
		return decodeAs[StreamTrace](kind, payload, "src")
	case KindVisual:
		return parseVisual(payload)
	default:
		if cfg.strict {
			return nil, &UnknownKindError{Kind: kind}
		}
		return UnknownTrace{Type: typ, Payload: payload}, nil
	}
}

func payloadOf(kind Kind, v any) (map[string]any, error) {
	switch p := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return p, nil
	default:
		return nil, &MalformedTraceError{Kind: kind, Field: "payload", Reason: fmt.Sprintf("expected object, got %T", v)}
	}
}

func decodeAs[T Trace](kind Kind, payload map[string]any, required ...string) (Trace, error) {
	var t T
	if err := decodePayload(kind, payload, &t, required...); err != nil {
		return nil, err
	}
	return t, nil
}

// decodePayload checks required keys then decodes with mapstructure.
// A decode error means a field had the wrong type, which is also malformed.
func decodePayload(kind Kind, payload map[string]any, target any, required ...string) error {
	for _, field := range required {
		v, ok := payload[field]
		if !ok || v == nil {
			return &MalformedTraceError{Kind: kind, Field: field, Reason: "missing"}
		}
	}
	if err := mapstructure.Decode(payload, target); err != nil {
		return &MalformedTraceError{Kind: kind, Reason: err.Error()}
	}
	return nil
}

func parseVisual(payload map[string]any) (Trace, error) {
	vt, _ := payload["visualType"].(string)
	switch VisualType(vt) {
	case VisualImage:
		var img ImageVisual
		if err := decodePayload(KindVisual, withoutKey(payload, "visualType"), &img); err != nil {
			return nil, err
		}
		return VisualTrace{Variant: img}, nil
	case VisualAPL:
		var apl APLVisual
		if err := decodePayload(KindVisual, withoutKey(payload, "visualType"), &apl); err != nil {
			return nil, err
		}
		return VisualTrace{Variant: apl}, nil
	case "":
		return nil, &MalformedTraceError{Kind: KindVisual, Field: "visualType", Reason: "missing"}
	default:
		return nil, &MalformedTraceError{Kind: KindVisual, Field: "visualType", Reason: fmt.Sprintf("unknown variant %q", vt)}
	}
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// MarshalTrace renders t in its wire shape.
func MarshalTrace(t Trace) ([]byte, error) {
	if t == nil {
		return nil, &MalformedTraceError{Reason: "nil trace"}
	}
	if u, ok := t.(UnknownTrace); ok {
		return json.Marshal(u)
	}
	if _, ok := t.(EndTrace); ok {
		return json.Marshal(map[string]any{"type": KindEnd})
	}
	return json.Marshal(struct {
		Type    Kind  `json:"type"`
		Payload Trace `json:"payload"`
	}{Type: t.Kind(), Payload: t})
}

// TraceList is an ordered trace sequence with wire-shaped JSON encoding.
type TraceList []Trace

// MarshalJSON encodes every trace in order.
func (l TraceList) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, 0, len(l))
	for _, t := range l {
		raw, err := MarshalTrace(t)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return json.Marshal(items)
}

// UnmarshalJSON parses every trace in order. Unknown kinds are preserved as UnknownTrace.
func (l *TraceList) UnmarshalJSON(data []byte) error {
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(TraceList, 0, len(raws))
	for i, raw := range raws {
		t, err := ParseTrace(raw)
		if err != nil {
			return fmt.Errorf("trace[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	*l = out
	return nil
}
