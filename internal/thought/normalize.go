package thought

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeLabel normalizes a caller-supplied label:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func NormalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// branchIntentLabels are labels that signal a fork into an alternative line.
// They are stored as hypothesis but flagged so the append path creates a branch.
var branchIntentLabels = map[string]bool{
	"alternative": true,
	"branch":      true,
	"option":      true,
	"variant":     true,
	"fork":        true,
}

// synonyms folds common free-form labels to canonical types. Callers are
// language models; unknown labels are not an error.
var synonyms = map[string]Type{
	"answer":      TypeReasoning,
	"analysis":    TypeReasoning,
	"thinking":    TypeReasoning,
	"reason":      TypeReasoning,
	"step":        TypeReasoning,
	"idea":        TypeHypothesis,
	"theory":      TypeHypothesis,
	"guess":       TypeHypothesis,
	"ask":         TypeQuestion,
	"query":       TypeQuestion,
	"note":        TypeObservation,
	"observe":     TypeObservation,
	"finding":     TypeObservation,
	"assume":      TypeAssumption,
	"premise":     TypeAssumption,
	"decision":    TypeConclusion,
	"conclude":    TypeConclusion,
	"final":       TypeConclusion,
	"summary":     TypeConclusion,
}

// canonical is the set of valid stored types.
var canonical = map[Type]bool{
	TypeReasoning:   true,
	TypeConclusion:  true,
	TypeQuestion:    true,
	TypeHypothesis:  true,
	TypeObservation: true,
	TypeAssumption:  true,
	TypeGeneral:     true,
}

// NormalizedType is the result of folding a caller-supplied label.
type NormalizedType struct {
	// Type is one of the canonical stored types
	Type Type

	// BranchIntent is set when the label asks for an alternative line;
	// the stored type is hypothesis in that case
	BranchIntent bool
}

// NormalizeType maps a caller-supplied label to a canonical type. Branch-intent
// labels map to hypothesis with BranchIntent set. Anything unrecognized
// silently normalizes to general; this boundary is deliberately permissive.
func NormalizeType(label string) NormalizedType {
	norm := NormalizeLabel(label)

	if branchIntentLabels[norm] {
		return NormalizedType{Type: TypeHypothesis, BranchIntent: true}
	}
	if canonical[Type(norm)] {
		return NormalizedType{Type: Type(norm)}
	}
	if t, ok := synonyms[norm]; ok {
		return NormalizedType{Type: t}
	}
	return NormalizedType{Type: TypeGeneral}
}
