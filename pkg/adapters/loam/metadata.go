package loam

// TurnMetadata is the frontmatter of one replay turn document.
//
// Turn 0 describes the initial state; its body is ignored. Turns 1..N are
// answered in order. The document body, when not blank, becomes a speak trace
// placed before the listed traces.
type TurnMetadata struct {
	Turn      int              `json:"turn" mapstructure:"turn"`
	Trace     []map[string]any `json:"trace" mapstructure:"trace"`
	Variables map[string]any   `json:"variables" mapstructure:"variables"`
	End       bool             `json:"end" mapstructure:"end"`
}
