package domain

// Kind is the discriminant of a Trace.
type Kind string

// Trace kinds emitted by the runtime.
const (
	KindBlock  Kind = "block"
	KindChoice Kind = "choice"
	KindDebug  Kind = "debug"
	KindEnd    Kind = "end"
	KindFlow   Kind = "flow"
	KindSpeak  Kind = "speak"
	KindAudio  Kind = "audio"
	KindVisual Kind = "visual"
	KindStream Kind = "stream"
)

var knownKinds = []Kind{
	KindBlock,
	KindChoice,
	KindDebug,
	KindEnd,
	KindFlow,
	KindSpeak,
	KindAudio,
	KindVisual,
	KindStream,
}

// Kinds returns the closed set of known trace kinds, in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(knownKinds))
	copy(out, knownKinds)
	return out
}

// Valid reports whether k belongs to the closed set of known kinds.
func (k Kind) Valid() bool {
	for _, known := range knownKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Trace is one typed event emitted by the runtime for a turn.
// The set of implementations is closed: only this package can add one.
type Trace interface {
	Kind() Kind
	isTrace()
}

// KindOf returns the kind of t, or "" for a nil trace.
func KindOf(t Trace) Kind {
	if t == nil {
		return ""
	}
	return t.Kind()
}

// BlockTrace marks entry into a block of the conversation diagram.
type BlockTrace struct {
	BlockID string `json:"blockID" mapstructure:"blockID"`
}

// Choice is a single suggested reply (a "chip").
type Choice struct {
	Name     string         `json:"name" mapstructure:"name"`
	Intent   string         `json:"intent,omitempty" mapstructure:"intent"`
	Metadata map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
}

// ChoiceTrace offers the user an ordered list of replies.
type ChoiceTrace struct {
	Choices []Choice `json:"choices" mapstructure:"choices"`
}

// DebugTrace carries a diagnostic message from the runtime.
type DebugTrace struct {
	Message string `json:"message" mapstructure:"message"`
}

// EndTrace is the terminal marker of a conversation.
type EndTrace struct{}

// FlowTrace marks entry into a diagram (flow).
type FlowTrace struct {
	DiagramID string `json:"diagramID" mapstructure:"diagramID"`
}

// SpeakSubtype is the internal variant tag of a SpeakTrace payload.
type SpeakSubtype string

const (
	SpeakMessage SpeakSubtype = "message"
	SpeakAudio   SpeakSubtype = "audio"
)

// SpeakTrace is a line of speech. Src holds the TTS or audio file URL when present.
type SpeakTrace struct {
	Message string       `json:"message" mapstructure:"message"`
	Src     string       `json:"src,omitempty" mapstructure:"src"`
	Voice   string       `json:"voice,omitempty" mapstructure:"voice"`
	Subtype SpeakSubtype `json:"type,omitempty" mapstructure:"type"`
}

// AudioTrace asks the host to play an audio file.
type AudioTrace struct {
	Src     string `json:"src" mapstructure:"src"`
	Message string `json:"message,omitempty" mapstructure:"message"`
}

// StreamAction controls playback of a StreamTrace.
type StreamAction string

const (
	StreamPlay  StreamAction = "PLAY"
	StreamLoop  StreamAction = "LOOP"
	StreamPause StreamAction = "PAUSE"
	StreamEnd   StreamAction = "END"
)

// StreamTrace asks the host to start or control a long-running audio stream.
type StreamTrace struct {
	Src    string       `json:"src" mapstructure:"src"`
	Action StreamAction `json:"action,omitempty" mapstructure:"action"`
	Token  string       `json:"token,omitempty" mapstructure:"token"`
}

// UnknownTrace preserves a trace whose kind is not in the known set.
// It is never coerced into a known kind; dispatch delivers it to wildcard handlers only.
type UnknownTrace struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (BlockTrace) Kind() Kind { return KindBlock }
func (ChoiceTrace) Kind() Kind { return KindChoice }
func (DebugTrace) Kind() Kind { return KindDebug }
func (EndTrace) Kind() Kind { return KindEnd }
func (FlowTrace) Kind() Kind { return KindFlow }
func (SpeakTrace) Kind() Kind { return KindSpeak }
func (AudioTrace) Kind() Kind { return KindAudio }
func (VisualTrace) Kind() Kind { return KindVisual }
func (StreamTrace) Kind() Kind { return KindStream }
func (u UnknownTrace) Kind() Kind { return Kind(u.Type) }

func (BlockTrace) isTrace() {}
func (ChoiceTrace) isTrace() {}
func (DebugTrace) isTrace() {}
func (EndTrace) isTrace() {}
func (FlowTrace) isTrace() {}
func (SpeakTrace) isTrace() {}
func (AudioTrace) isTrace() {}
func (VisualTrace) isTrace() {}
func (StreamTrace) isTrace() {}
func (UnknownTrace) isTrace() {}
