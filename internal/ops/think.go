package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/strand/internal/config"
	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/thought"
)

// ThinkInput contains parameters for the Think operation.
type ThinkInput struct {
	SequenceID int64  // required
	Content    string // required

	// ThoughtType is a free-form label; unknown labels normalize to general
	ThoughtType string

	// BranchName names the branch when the thought type signals branch
	// intent. On an ordinary thought it must name (or token-reference) an
	// existing branch, which the thought then continues.
	BranchName string

	// Confidence overrides the configured default when set, clamped to [0, 1]
	Confidence *float64

	// TotalEstimate is the caller's running estimate of total thoughts
	TotalEstimate int

	// RevisesThoughtID turns this append into a revision: the new thought
	// reuses the revised thought's number
	RevisesThoughtID *int64

	Metadata map[string]any
}

// ThinkOutput contains the result of the Think operation.
type ThinkOutput struct {
	SequenceID    int64        `json:"sequence_id"`
	ThoughtID     int64        `json:"thought_id"`
	ThoughtNumber int          `json:"thought_number"`
	ThoughtType   thought.Type `json:"thought_type"`
	Content       string       `json:"content"`

	// Transcript is the full rendered chain, recomputed on every append
	Transcript string `json:"transcript"`

	IsComplete    bool   `json:"is_complete"`
	BranchCreated bool   `json:"branch_created"`
	BranchID      string `json:"branch_id,omitempty"`
}

// Think appends one reasoning step to a sequence. Branch-intent thought types
// fork a new branch first so the thought carries its token, or continue an
// existing branch when the name matches one; conclusion intent
// finalizes the sequence synchronously before returning. Completion is a hard
// stop: appends against a complete sequence fail with SEQUENCE_COMPLETE.
func Think(ctx context.Context, database *sql.DB, cfg *config.Config, input ThinkInput) (*ThinkOutput, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	// One consistent read: the sequence plus its current max thought number.
	seq, maxNumber, err := db.GetSequenceWithCount(ctx, database, input.SequenceID)
	if err != nil {
		return nil, err
	}
	if seq.IsComplete {
		return nil, errors.NewSequenceComplete(seq.ID)
	}
	if cfg.MaxThoughtsPerSequence > 0 && maxNumber >= cfg.MaxThoughtsPerSequence {
		return nil, errors.NewInvalidRequest(fmt.Sprintf(
			"sequence %d has reached the limit of %d thoughts; conclude it or start a new one",
			seq.ID, cfg.MaxThoughtsPerSequence,
		))
	}

	norm := thought.NormalizeType(input.ThoughtType)
	number := maxNumber + 1

	th := &thought.Thought{
		SequenceID:   seq.ID,
		Number:       number,
		Content:      content,
		Type:         norm.Type,
		BranchIntent: norm.BranchIntent,
		Metadata:     input.Metadata,
		CreatedAt:    time.Now().Unix(),
	}

	branchCreated := false
	switch {
	case input.RevisesThoughtID != nil:
		// A revision is a logical overwrite: new row, same number, same line.
		target, err := db.GetThought(ctx, database, seq.ID, *input.RevisesThoughtID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.NewInvalidRequest(fmt.Sprintf(
					"revises_thought_id %d does not reference a thought in sequence %d",
					*input.RevisesThoughtID, seq.ID,
				))
			}
			return nil, err
		}
		th.Number = target.Number
		th.IsRevision = true
		th.RevisesThoughtID = &target.ID
		th.BranchID = target.BranchID
		th.BranchFromThoughtID = target.BranchFromThoughtID

	case norm.BranchIntent:
		// A fork that names an already existing branch continues it instead
		// of creating a duplicate row.
		branch, err := findNamedBranch(ctx, database, seq.ID, input.BranchName)
		if err != nil {
			return nil, err
		}
		if branch == nil {
			// Fork before persisting so the thought carries the branch token.
			branch, err = createBranch(ctx, database, seq.ID, number, input.BranchName)
			if err != nil {
				return nil, err
			}
			branchCreated = branch != nil
		}
		if branch != nil {
			th.BranchID = branch.BranchID
			th.BranchFromThoughtID = &branch.FromThoughtID
		}
		// No prior thought to fork from: the thought lands on the trunk.

	case strings.TrimSpace(input.BranchName) != "":
		// Ordinary append onto an existing branch.
		branch, err := findNamedBranch(ctx, database, seq.ID, input.BranchName)
		if err != nil {
			return nil, err
		}
		if branch == nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf(
				"branch %q does not exist in sequence %d; use a branching thought type to create it",
				strings.TrimSpace(input.BranchName), seq.ID,
			))
		}
		th.BranchID = branch.BranchID
		th.BranchFromThoughtID = &branch.FromThoughtID
	}

	detector := thought.ConclusionDetector{
		MatchPhrases: !cfg.DisableConclusionPhrases,
		Phrases:      cfg.ConclusionPhrases,
	}
	isConclusion := detector.Detect(norm.Type, content)

	th.Confidence = defaultConfidence(cfg, isConclusion, input.Confidence)
	th.NextNeeded = !isConclusion
	th.TotalEstimate = input.TotalEstimate
	if th.TotalEstimate < th.Number {
		th.TotalEstimate = th.Number
	}

	if err := db.InsertThought(ctx, database, th); err != nil {
		return nil, err
	}
	if err := db.TouchSequence(ctx, database, seq.ID); err != nil {
		return nil, err
	}

	if isConclusion {
		// Synchronous: completion must be observable before Think returns.
		if err := finalize(ctx, database, seq, content); err != nil {
			return nil, err
		}
	}

	transcript, err := renderTranscript(ctx, database, seq)
	if err != nil {
		return nil, err
	}

	return &ThinkOutput{
		SequenceID:    seq.ID,
		ThoughtID:     th.ID,
		ThoughtNumber: th.Number,
		ThoughtType:   th.Type,
		Content:       content,
		Transcript:    transcript,
		IsComplete:    isConclusion,
		BranchCreated: branchCreated,
		BranchID:      th.BranchID,
	}, nil
}

// findNamedBranch resolves a caller-supplied branch name or token. A blank
// name matches nothing.
func findNamedBranch(ctx context.Context, database *sql.DB, sequenceID int64, name string) (*thought.Branch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	return db.FindBranch(ctx, database, sequenceID, name)
}

// createBranch forks a new branch rooted at the most recent thought on the
// sequence (by thought number, globally across existing branches). Returns
// nil on an empty sequence: there is nothing to branch from yet.
func createBranch(ctx context.Context, database *sql.DB, sequenceID int64, position int, name string) (*thought.Branch, error) {
	tip, err := db.LatestThought(ctx, database, sequenceID)
	if err != nil {
		return nil, err
	}
	if tip == nil {
		return nil, nil
	}

	token, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Alternative %d", position)
	}

	branch := &thought.Branch{
		SequenceID:    sequenceID,
		BranchID:      token,
		Name:          name,
		FromThoughtID: tip.ID,
		IsActive:      true,
		CreatedAt:     time.Now().Unix(),
	}
	if err := db.InsertBranch(ctx, database, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// defaultConfidence resolves the stored confidence: an explicit override wins
// (clamped), otherwise conclusions default higher than ordinary thoughts.
func defaultConfidence(cfg *config.Config, isConclusion bool, override *float64) float64 {
	if override != nil {
		c := *override
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		return c
	}
	if isConclusion {
		return cfg.ConclusionConfidence
	}
	return cfg.DefaultConfidence
}

// renderTranscript reconstructs the sequence transcript from storage.
func renderTranscript(ctx context.Context, database *sql.DB, seq *thought.Sequence) (string, error) {
	thoughts, err := db.ListThoughts(ctx, database, seq.ID)
	if err != nil {
		return "", err
	}
	names, err := db.BranchNames(ctx, database, seq.ID)
	if err != nil {
		return "", err
	}
	return thought.Transcript(seq.Goal, thoughts, names), nil
}
