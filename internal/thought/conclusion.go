package thought

import "strings"

// DefaultConclusionPhrases are the case-insensitive substrings that signal a
// concluding thought when phrase detection is enabled. The phrase match is a
// convenience detector, not the only path to completion: an explicit
// conclusion type always terminates the sequence.
var DefaultConclusionPhrases = []string{
	"therefore",
	"decision:",
	"in conclusion",
	"final answer",
}

// ConclusionDetector decides whether a thought terminates its sequence.
// Detection is an explicit policy rather than an inferred heuristic: the
// type check is always on, phrase matching is configurable.
type ConclusionDetector struct {
	// MatchPhrases enables substring matching on content
	MatchPhrases bool

	// Phrases are matched case-insensitively; empty falls back to defaults
	Phrases []string
}

// Detect reports conclusion intent for a thought of the given type and content.
func (d ConclusionDetector) Detect(typ Type, content string) bool {
	if typ == TypeConclusion {
		return true
	}
	if !d.MatchPhrases {
		return false
	}

	phrases := d.Phrases
	if len(phrases) == 0 {
		phrases = DefaultConclusionPhrases
	}

	lower := strings.ToLower(content)
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
