package domain

// DataConfig controls what the runtime produces and how the client filters the
// trace list it returns.
type DataConfig struct {
	// TTS keeps speech audio URLs on speak traces. When false they are stripped.
	TTS bool `json:"tts" yaml:"tts"`

	// StripMarkup removes SSML and HTML tags from speak messages.
	StripMarkup bool `json:"stripMarkup" yaml:"strip_markup"`

	// IncludeKinds limits the filtered response to these kinds. Speak is always kept.
	// Empty means every kind.
	IncludeKinds []Kind `json:"includeKinds,omitempty" yaml:"include_kinds"`

	// StopTypes are custom trace types the runtime should stop the turn on.
	StopTypes []string `json:"stopTypes,omitempty" yaml:"stop_types"`
}

// DefaultDataConfig returns the defaults: no TTS, markup stripped, every kind kept.
func DefaultDataConfig() DataConfig {
	return DataConfig{StripMarkup: true}
}

// RequestConfig derives the runtime-side configuration for a turn.
func (c DataConfig) RequestConfig() RequestConfig {
	return RequestConfig{
		TTS:       c.TTS,
		StripSSML: c.StripMarkup,
		StopTypes: c.StopTypes,
	}
}

// Includes reports whether kind k passes the IncludeKinds filter.
func (c DataConfig) Includes(k Kind) bool {
	if len(c.IncludeKinds) == 0 || k == KindSpeak {
		return true
	}
	for _, inc := range c.IncludeKinds {
		if inc == k {
			return true
		}
	}
	return false
}
