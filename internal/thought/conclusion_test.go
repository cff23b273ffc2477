package thought

import "testing"

func TestConclusionDetector_TypeAlwaysConcludes(t *testing.T) {
	d := ConclusionDetector{MatchPhrases: false}

	if !d.Detect(TypeConclusion, "we are done") {
		t.Error("conclusion type should conclude even with phrase matching off")
	}
	if d.Detect(TypeReasoning, "still thinking") {
		t.Error("reasoning type without phrases should not conclude")
	}
}

func TestConclusionDetector_Phrases(t *testing.T) {
	d := ConclusionDetector{MatchPhrases: true}

	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"therefore", "Therefore use JWT.", true},
		{"case-insensitive", "THEREFORE we proceed", true},
		{"decision prefix", "decision: go with option B", true},
		{"in conclusion", "In conclusion, the cache wins", true},
		{"final answer", "the final answer is 42", true},
		{"no signal", "JWT is stateless", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(TypeReasoning, tt.content)
			if got != tt.want {
				t.Errorf("Detect(reasoning, %q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestConclusionDetector_CustomPhrases(t *testing.T) {
	d := ConclusionDetector{MatchPhrases: true, Phrases: []string{"ship it"}}

	if !d.Detect(TypeReasoning, "ok, SHIP IT") {
		t.Error("custom phrase should match case-insensitively")
	}
	// Custom list replaces the defaults entirely.
	if d.Detect(TypeReasoning, "therefore we wait") {
		t.Error("default phrases should not match when a custom list is set")
	}
}

func TestConclusionDetector_PhrasesOff(t *testing.T) {
	d := ConclusionDetector{MatchPhrases: false}

	if d.Detect(TypeReasoning, "Therefore use JWT.") {
		t.Error("phrase matching disabled; only an explicit conclusion type should conclude")
	}
}
