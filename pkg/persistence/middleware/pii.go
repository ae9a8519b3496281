package middleware

import (
	"fmt"
	"regexp"

	"github.com/aretw0/convo/pkg/domain"
)

// Mask replaces sensitive values.
const Mask = "***"

// MaskVariables returns a copy of vars where every value whose key matches one
// of the patterns is replaced by Mask. Nested maps are searched too.
// It is meant for output paths (tool results, printed states). Session state
// and cached initial states are never masked.
func MaskVariables(vars map[string]any, patternStrings []string) (map[string]any, error) {
	patterns, err := compile(patternStrings)
	if err != nil {
		return nil, err
	}
	out := domain.NewState(vars).Clone().Variables
	maskMap(out, patterns)
	return out, nil
}

// ValidatePatterns reports the first pattern that does not compile.
func ValidatePatterns(patternStrings []string) error {
	_, err := compile(patternStrings)
	return err
}

func compile(patternStrings []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return patterns, nil
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
