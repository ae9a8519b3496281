package domain

// RequestType is the discriminant of a Request.
type RequestType string

const (
	RequestText   RequestType = "text"
	RequestIntent RequestType = "intent"
	RequestLaunch RequestType = "launch"
)

// Request is the user action that drives a turn. A nil *Request starts or continues
// the flow without user input.
type Request struct {
	Type    RequestType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// IntentPayload is the payload of an intent request.
type IntentPayload struct {
	Intent     IntentName `json:"intent"`
	Entities   []Entity   `json:"entities"`
	Query      string     `json:"query"`
	Confidence float64    `json:"confidence,omitempty"`
}

// IntentName wraps the intent identifier the way the runtime expects it.
type IntentName struct {
	Name string `json:"name"`
}

// Entity is one resolved slot of an intent.
type Entity struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TextRequest builds a free-text request.
func TextRequest(text string) *Request {
	return &Request{Type: RequestText, Payload: text}
}

// IntentRequest builds an intent request.
func IntentRequest(name string, entities []Entity, query string, confidence float64) *Request {
	if entities == nil {
		entities = []Entity{}
	}
	return &Request{Type: RequestIntent, Payload: IntentPayload{
		Intent:     IntentName{Name: name},
		Entities:   entities,
		Query:      query,
		Confidence: confidence,
	}}
}

// RequestConfig is the per-turn output configuration sent to the runtime.
type RequestConfig struct {
	TTS       bool     `json:"tts"`
	StripSSML bool     `json:"stripSSML"`
	StopTypes []string `json:"stopTypes,omitempty"`
}

// TurnRequest is the body of one runtime exchange.
type TurnRequest struct {
	State   *State        `json:"state"`
	Request *Request      `json:"request"`
	Config  RequestConfig `json:"config"`
}

// Envelope is everything the runtime returned for one turn.
type Envelope struct {
	State   *State    `json:"state"`
	Request *Request  `json:"request"`
	Trace   TraceList `json:"trace"`
}

// IsEnding reports whether the envelope contains an end trace.
func (e *Envelope) IsEnding() bool {
	if e == nil {
		return false
	}
	for _, t := range e.Trace {
		if t.Kind() == KindEnd {
			return true
		}
	}
	return false
}

// Choices flattens every choice trace of the envelope, in order.
func (e *Envelope) Choices() []Choice {
	if e == nil {
		return nil
	}
	var out []Choice
	for _, t := range e.Trace {
		if c, ok := t.(ChoiceTrace); ok {
			out = append(out, c.Choices...)
		}
	}
	return out
}
