package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/thought"
)

// ShowInput contains parameters for the Show operation.
type ShowInput struct {
	SequenceID int64 // required
}

// ShowOutput contains the result of the Show operation.
type ShowOutput struct {
	SequenceID        int64   `json:"sequence_id"`
	ProjectName       string  `json:"project_name"`
	Name              string  `json:"name"`
	Goal              string  `json:"goal"`
	IsComplete        bool    `json:"is_complete"`
	CompletionSummary *string `json:"completion_summary,omitempty"`
	ThoughtCount      int     `json:"thought_count"`
	BranchCount       int     `json:"branch_count"`
	Transcript        string  `json:"transcript"`
	CreatedAt         int64   `json:"created_at"`
	UpdatedAt         int64   `json:"updated_at"`
}

// Show retrieves a sequence with its rendered transcript.
func Show(ctx context.Context, database *sql.DB, input ShowInput) (*ShowOutput, error) {
	seq, _, err := db.GetSequenceWithCount(ctx, database, input.SequenceID)
	if err != nil {
		return nil, err
	}

	projectName, err := db.GetProjectName(ctx, database, seq.ProjectID)
	if err != nil {
		return nil, err
	}

	thoughts, err := db.ListThoughts(ctx, database, seq.ID)
	if err != nil {
		return nil, err
	}
	branches, err := db.ListBranches(ctx, database, seq.ID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(branches))
	for _, b := range branches {
		names[b.BranchID] = b.Name
	}

	return &ShowOutput{
		SequenceID:        seq.ID,
		ProjectName:       projectName,
		Name:              seq.Name,
		Goal:              seq.Goal,
		IsComplete:        seq.IsComplete,
		CompletionSummary: seq.CompletionSummary,
		ThoughtCount:      len(thoughts),
		BranchCount:       len(branches),
		Transcript:        thought.Transcript(seq.Goal, thoughts, names),
		CreatedAt:         seq.CreatedAt,
		UpdatedAt:         seq.UpdatedAt,
	}, nil
}
