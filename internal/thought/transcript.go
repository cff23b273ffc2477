package thought

import (
	"fmt"
	"sort"
	"strings"
)

// latestVersions collapses revisions: for each (branch, number) pair only the
// most recent row survives, so the transcript always reflects the latest
// revision of every step.
func latestVersions(thoughts []*Thought) []*Thought {
	type key struct {
		branch string
		number int
	}

	latest := make(map[key]*Thought, len(thoughts))
	for _, t := range thoughts {
		branch := t.BranchID
		if branch == TrunkBranchID {
			branch = ""
		}
		k := key{branch: branch, number: t.Number}
		if cur, ok := latest[k]; !ok || t.ID > cur.ID {
			latest[k] = t
		}
	}

	out := make([]*Thought, 0, len(latest))
	for _, t := range latest {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Transcript renders the whole sequence as a human-readable markdown chain:
// a goal header, then one line per thought with its ordinal, type, and branch
// annotation. Recomputed on every append; never cached.
func Transcript(goal string, thoughts []*Thought, branchNames map[string]string) string {
	var b strings.Builder

	b.WriteString("# Goal: ")
	b.WriteString(strings.TrimSpace(goal))
	b.WriteString("\n\n")

	for _, t := range latestVersions(thoughts) {
		b.WriteString(fmt.Sprintf("%d. [%s]", t.Number, t.Type))
		if !t.OnTrunk() {
			name := branchNames[t.BranchID]
			if name == "" {
				name = t.BranchID
			}
			b.WriteString(fmt.Sprintf(" (branch: %s)", name))
		}
		if t.IsRevision {
			b.WriteString(" (revised)")
		}
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	}

	return b.String()
}

// DecisionDocument renders the structured decision artifact filed with the
// memory store when a sequence concludes.
func DecisionDocument(goal string, thoughts []*Thought, branchNames map[string]string, summary string) string {
	var b strings.Builder

	b.WriteString("# Decision: ")
	b.WriteString(strings.TrimSpace(goal))
	b.WriteString("\n\n## Reasoning chain\n\n")

	for _, t := range latestVersions(thoughts) {
		b.WriteString(fmt.Sprintf("%d. [%s]", t.Number, t.Type))
		if !t.OnTrunk() {
			name := branchNames[t.BranchID]
			if name == "" {
				name = t.BranchID
			}
			b.WriteString(fmt.Sprintf(" (branch: %s)", name))
		}
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	}

	b.WriteString("\n## Outcome\n\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")

	return b.String()
}
