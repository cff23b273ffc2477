package thought

// Type classifies a single reasoning step.
type Type string

const (
	TypeReasoning   Type = "reasoning"
	TypeConclusion  Type = "conclusion"
	TypeQuestion    Type = "question"
	TypeHypothesis  Type = "hypothesis"
	TypeObservation Type = "observation"
	TypeAssumption  Type = "assumption"
	TypeGeneral     Type = "general"
)

// TrunkBranchID is the branch token of the main reasoning line. Thoughts with
// an empty branch ID are treated the same.
const TrunkBranchID = "main"

// Sequence is one reasoning session tied to a goal.
type Sequence struct {
	// ID uniquely identifies the sequence (SQLite rowid)
	ID int64

	// ProjectID is the owning project
	ProjectID int64

	// SessionID is the owning session
	SessionID int64

	// Name is a short human-readable label, derived from the goal
	Name string

	// Description is optional free text
	Description string

	// Goal is the problem statement the sequence reasons about
	Goal string

	// IsComplete is monotonic: once true, no further thoughts may be appended
	IsComplete bool

	// CompletionSummary holds the concluding thought's content (nullable)
	CompletionSummary *string

	// Metadata is an open key/value bag (stored as JSON)
	Metadata map[string]any

	// CreatedAt is the Unix timestamp when the sequence was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last append or completion
	UpdatedAt int64
}

// Thought is one atomic reasoning step inside a sequence. Thoughts are
// append-only: a revision is a new row that reuses the revised thought's
// number rather than an update in place.
type Thought struct {
	ID         int64
	SequenceID int64

	// Number is 1-based and global to the sequence: trunk and branches share
	// the counter. A revision reuses the number of the thought it revises.
	Number int

	// TotalEstimate is the caller's running estimate of total thoughts,
	// not a hard cap
	TotalEstimate int

	Content string
	Type    Type

	// Confidence is in [0.0, 1.0]
	Confidence float64

	// NextNeeded is false only for concluding thoughts
	NextNeeded bool

	// IsRevision marks a logical overwrite of an earlier thought
	IsRevision bool

	// RevisesThoughtID references the revised thought (nullable)
	RevisesThoughtID *int64

	// BranchIntent records that the caller asked for an alternative line,
	// independent of the stored Type (which folds branch intent to hypothesis)
	BranchIntent bool

	// BranchFromThoughtID is the trunk thought this line forked from (nullable)
	BranchFromThoughtID *int64

	// BranchID is the owning branch token; empty or "main" means trunk
	BranchID string

	Metadata  map[string]any
	CreatedAt int64
}

// OnTrunk reports whether the thought belongs to the main line.
func (t *Thought) OnTrunk() bool {
	return t.BranchID == "" || t.BranchID == TrunkBranchID
}

// Branch is a named fork of reasoning rooted at a specific thought.
type Branch struct {
	ID         int64
	SequenceID int64

	// BranchID is the externally visible token stamped onto thoughts
	BranchID string

	Name string

	// FromThoughtID references the thought that existed at branch-creation
	// time (branches cannot fork from the future)
	FromThoughtID int64

	Description string
	Rationale   string

	IsActive bool

	// Merge state is recorded for out-of-scope tooling; this core only
	// records provenance
	IsMerged     bool
	MergeSummary *string

	CreatedAt int64
}
