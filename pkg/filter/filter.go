// Package filter derives the sanitized response view of a trace list.
package filter

import (
	"io"
	"strings"

	"github.com/aretw0/convo/pkg/domain"
	"golang.org/x/net/html"
)

// Filter returns a new list with cfg applied. The input is never modified.
//   - IncludeKinds drops every kind not listed, except speak.
//   - StripMarkup removes SSML and HTML tags from speak messages.
//   - TTS=false clears the audio URL of speak traces.
func Filter(traces []domain.Trace, cfg domain.DataConfig) []domain.Trace {
	out := make([]domain.Trace, 0, len(traces))
	for _, t := range traces {
		if !cfg.Includes(domain.KindOf(t)) {
			continue
		}
		if speak, ok := t.(domain.SpeakTrace); ok {
			if cfg.StripMarkup {
				speak.Message = StripMarkup(speak.Message)
			}
			if !cfg.TTS {
				speak.Src = ""
			}
			t = speak
		}
		out = append(out, t)
	}
	return out
}

// StripMarkup removes every tag from s and keeps the text content, with
// character references decoded.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	z := html.NewTokenizer(strings.NewReader(s))
	raw := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// Malformed input: keep what was read verbatim.
				b.Write(z.Raw())
			}
			return b.String()
		case html.TextToken:
			if raw {
				// The tokenizer does not parse tags inside raw text elements.
				b.WriteString(StripMarkup(string(z.Text())))
			} else {
				b.Write(z.Text())
			}
		}
		raw = false
		if tt == html.StartTagToken {
			name, _ := z.TagName()
			raw = rawTextElements[string(name)]
		}
	}
}

// rawTextElements hold text the tokenizer emits without parsing tags.
var rawTextElements = map[string]bool{
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
	"script":    true,
	"style":     true,
	"textarea":  true,
	"title":     true,
	"xmp":       true,
}
