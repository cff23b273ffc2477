package memory

// Kind categorizes a memory record.
type Kind string

const (
	// KindDecision records the artifact derived from a concluded reasoning
	// sequence. Reasoning-derived decisions are treated as high-value.
	KindDecision Kind = "decision"

	// KindInsight records output of the asynchronous insight worker.
	KindInsight Kind = "insight"

	// KindNote is a plain caller-stored memory.
	KindNote Kind = "note"
)

// DecisionImportance is the elevated importance score stamped onto
// reasoning-derived decision memories.
const DecisionImportance = 0.9

// DefaultImportance is used when the caller does not provide a score.
const DefaultImportance = 0.5

// Memory is a durable record filed under a project.
type Memory struct {
	// ID is a ULID that uniquely identifies this memory
	ID string

	// ProjectName is the owning project
	ProjectName string

	// Type is the memory kind ("decision", "insight", "note", ...)
	Type Kind

	// Content is the memory body (markdown)
	Content string

	// Importance is in [0.0, 1.0]
	Importance float64

	// Metadata is an open key/value bag (stored as JSON)
	Metadata map[string]any

	// CreatedAt is the Unix timestamp when the memory was created
	CreatedAt int64
}
