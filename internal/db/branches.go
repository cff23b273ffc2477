package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/thought"
)

// InsertBranch stores a new branch record and sets its ID. A branch is
// created exactly once, when a branch-intent thought is appended.
func InsertBranch(ctx context.Context, db *sql.DB, b *thought.Branch) error {
	mergeSummary := sql.NullString{}
	if b.MergeSummary != nil {
		mergeSummary = sql.NullString{String: *b.MergeSummary, Valid: true}
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO branches (
			sequence_id, branch_id, branch_name, branch_from_thought_id,
			description, rationale, is_active, is_merged, merge_summary, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.SequenceID, b.BranchID, b.Name, b.FromThoughtID,
		b.Description, b.Rationale, b.IsActive, b.IsMerged, mergeSummary, b.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	b.ID, err = res.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// FindBranch looks up a branch of a sequence by its token or display name.
// Returns nil when no branch matches.
func FindBranch(ctx context.Context, db *sql.DB, sequenceID int64, nameOrToken string) (*thought.Branch, error) {
	var (
		b            thought.Branch
		description  sql.NullString
		rationale    sql.NullString
		mergeSummary sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, sequence_id, branch_id, branch_name, branch_from_thought_id,
			description, rationale, is_active, is_merged, merge_summary, created_at
		FROM branches
		WHERE sequence_id = ? AND (branch_id = ? OR branch_name = ?)
		ORDER BY id ASC
		LIMIT 1
	`, sequenceID, nameOrToken, nameOrToken).Scan(
		&b.ID, &b.SequenceID, &b.BranchID, &b.Name, &b.FromThoughtID,
		&description, &rationale, &b.IsActive, &b.IsMerged, &mergeSummary, &b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	b.Description = description.String
	b.Rationale = rationale.String
	if mergeSummary.Valid {
		b.MergeSummary = &mergeSummary.String
	}
	return &b, nil
}

// ListBranches retrieves all branches of a sequence in creation order.
func ListBranches(ctx context.Context, db *sql.DB, sequenceID int64) ([]*thought.Branch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sequence_id, branch_id, branch_name, branch_from_thought_id,
			description, rationale, is_active, is_merged, merge_summary, created_at
		FROM branches
		WHERE sequence_id = ?
		ORDER BY id ASC
	`, sequenceID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var branches []*thought.Branch
	for rows.Next() {
		var (
			b            thought.Branch
			description  sql.NullString
			rationale    sql.NullString
			mergeSummary sql.NullString
		)
		if err := rows.Scan(
			&b.ID, &b.SequenceID, &b.BranchID, &b.Name, &b.FromThoughtID,
			&description, &rationale, &b.IsActive, &b.IsMerged, &mergeSummary, &b.CreatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		b.Description = description.String
		b.Rationale = rationale.String
		if mergeSummary.Valid {
			b.MergeSummary = &mergeSummary.String
		}
		branches = append(branches, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return branches, nil
}

// BranchNames returns a branch token -> display name map for a sequence,
// used when rendering transcripts.
func BranchNames(ctx context.Context, db *sql.DB, sequenceID int64) (map[string]string, error) {
	branches, err := ListBranches(ctx, db, sequenceID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(branches))
	for _, b := range branches {
		names[b.BranchID] = b.Name
	}
	return names, nil
}
