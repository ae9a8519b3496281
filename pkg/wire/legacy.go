package wire

import (
	"maps"
	"strings"

	"github.com/aretw0/convo/pkg/domain"
	"golang.org/x/net/html"
)

// inferSpeakSubtype tags a speak trace that arrived without a subtype.
// Traces that already carry one are returned unchanged.
func inferSpeakSubtype(raw map[string]any) map[string]any {
	if raw["type"] != string(domain.KindSpeak) {
		return raw
	}
	payload, ok := raw["payload"].(map[string]any)
	if !ok {
		return raw
	}
	if st, _ := payload["type"].(string); st != "" {
		return raw
	}
	message, _ := payload["message"].(string)

	patched := maps.Clone(payload)
	if src, ok := leadingAudioSrc(message); ok {
		patched["type"] = string(domain.SpeakAudio)
		patched["src"] = src
	} else {
		patched["type"] = string(domain.SpeakMessage)
	}

	out := maps.Clone(raw)
	out["payload"] = patched
	return out
}

// leadingAudioSrc returns the src attribute of message's first element when
// that element is an audio tag. Leading whitespace is ignored.
func leadingAudioSrc(message string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(message))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) != "" {
				return "", false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "audio" {
				return "", false
			}
			for _, attr := range tok.Attr {
				if attr.Key == "src" {
					return attr.Val, true
				}
			}
			return "", true
		default:
			return "", false
		}
	}
}
