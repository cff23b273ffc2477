package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/strand/internal/db"
)

// BranchesInput contains parameters for the Branches operation.
type BranchesInput struct {
	SequenceID int64 // required
}

// BranchItem is one branch row in the Branches output.
type BranchItem struct {
	BranchID      string `json:"branch_id"`
	Name          string `json:"name"`
	FromThoughtID int64  `json:"from_thought_id"`
	Rationale     string `json:"rationale,omitempty"`
	IsActive      bool   `json:"is_active"`
	IsMerged      bool   `json:"is_merged"`
	ThoughtCount  int    `json:"thought_count"`
	CreatedAt     int64  `json:"created_at"`
}

// BranchesOutput contains the result of the Branches operation.
type BranchesOutput struct {
	SequenceID int64        `json:"sequence_id"`
	Items      []BranchItem `json:"items"`
}

// Branches retrieves all branches of a sequence with per-branch thought counts.
func Branches(ctx context.Context, database *sql.DB, input BranchesInput) (*BranchesOutput, error) {
	// Existence check first so a missing sequence surfaces as such.
	seq, _, err := db.GetSequenceWithCount(ctx, database, input.SequenceID)
	if err != nil {
		return nil, err
	}

	branches, err := db.ListBranches(ctx, database, seq.ID)
	if err != nil {
		return nil, err
	}
	thoughts, err := db.ListThoughts(ctx, database, seq.ID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, t := range thoughts {
		if !t.OnTrunk() {
			counts[t.BranchID]++
		}
	}

	items := make([]BranchItem, 0, len(branches))
	for _, b := range branches {
		items = append(items, BranchItem{
			BranchID:      b.BranchID,
			Name:          b.Name,
			FromThoughtID: b.FromThoughtID,
			Rationale:     b.Rationale,
			IsActive:      b.IsActive,
			IsMerged:      b.IsMerged,
			ThoughtCount:  counts[b.BranchID],
			CreatedAt:     b.CreatedAt,
		})
	}

	return &BranchesOutput{
		SequenceID: seq.ID,
		Items:      items,
	}, nil
}
