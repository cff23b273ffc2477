package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/thought"
)

// InsertThought stores a new thought row and sets its ID. Thoughts are
// append-only; revisions insert a new row rather than updating in place.
func InsertThought(ctx context.Context, db *sql.DB, t *thought.Thought) error {
	metadataJSON, err := marshalMetadata(t.Metadata)
	if err != nil {
		return errors.NewInternal(err)
	}

	branchID := sql.NullString{}
	if t.BranchID != "" {
		branchID = sql.NullString{String: t.BranchID, Valid: true}
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO thoughts (
			sequence_id, thought_number, total_estimate, content, thought_type,
			confidence, next_needed, is_revision, revises_thought_id,
			branch_intent, branch_from_thought_id, branch_id,
			metadata_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.SequenceID, t.Number, t.TotalEstimate, t.Content, string(t.Type),
		t.Confidence, t.NextNeeded, t.IsRevision, toNullInt64(t.RevisesThoughtID),
		t.BranchIntent, toNullInt64(t.BranchFromThoughtID), branchID,
		metadataJSON, t.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetThought retrieves a single thought by id within a sequence.
func GetThought(ctx context.Context, db *sql.DB, sequenceID, id int64) (*thought.Thought, error) {
	row := db.QueryRowContext(ctx, thoughtSelect+` WHERE id = ? AND sequence_id = ?`, id, sequenceID)
	t, err := scanThought(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("thought %d", id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// LatestThought returns the most recent thought on a sequence by thought
// number (ties broken by rowid), or nil if the sequence has no thoughts.
// "Most recent" is global: branches share the counter with the trunk.
func LatestThought(ctx context.Context, db *sql.DB, sequenceID int64) (*thought.Thought, error) {
	row := db.QueryRowContext(ctx, thoughtSelect+`
		WHERE sequence_id = ?
		ORDER BY thought_number DESC, id DESC
		LIMIT 1`, sequenceID)
	t, err := scanThought(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// ListThoughts retrieves all thoughts for a sequence (trunk and branches)
// ordered by thought number, then insertion order.
func ListThoughts(ctx context.Context, db *sql.DB, sequenceID int64) ([]*thought.Thought, error) {
	rows, err := db.QueryContext(ctx, thoughtSelect+`
		WHERE sequence_id = ?
		ORDER BY thought_number ASC, id ASC`, sequenceID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var thoughts []*thought.Thought
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		thoughts = append(thoughts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return thoughts, nil
}

const thoughtSelect = `
	SELECT id, sequence_id, thought_number, total_estimate, content, thought_type,
		confidence, next_needed, is_revision, revises_thought_id,
		branch_intent, branch_from_thought_id, branch_id,
		metadata_json, created_at
	FROM thoughts`

// scanner abstracts *sql.Row and *sql.Rows for scanThought.
type scanner interface {
	Scan(dest ...any) error
}

// scanThought scans a single row into a Thought struct.
func scanThought(row scanner) (*thought.Thought, error) {
	var (
		t            thought.Thought
		typ          string
		revises      sql.NullInt64
		branchFrom   sql.NullInt64
		branchID     sql.NullString
		metadataJSON sql.NullString
	)

	err := row.Scan(
		&t.ID, &t.SequenceID, &t.Number, &t.TotalEstimate, &t.Content, &typ,
		&t.Confidence, &t.NextNeeded, &t.IsRevision, &revises,
		&t.BranchIntent, &branchFrom, &branchID,
		&metadataJSON, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Type = thought.Type(typ)
	t.RevisesThoughtID = fromNullInt64(revises)
	t.BranchFromThoughtID = fromNullInt64(branchFrom)
	t.BranchID = branchID.String
	if err := unmarshalMetadata(metadataJSON, &t.Metadata); err != nil {
		return nil, err
	}

	return &t, nil
}

// toNullInt64 converts a *int64 to sql.NullInt64.
func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// fromNullInt64 converts a sql.NullInt64 to *int64.
func fromNullInt64(nv sql.NullInt64) *int64 {
	if !nv.Valid {
		return nil
	}
	return &nv.Int64
}
