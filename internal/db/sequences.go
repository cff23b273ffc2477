package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/thought"
)

// InsertSequence stores a new thinking sequence and sets its ID.
func InsertSequence(ctx context.Context, db *sql.DB, s *thought.Sequence) error {
	metadataJSON, err := marshalMetadata(s.Metadata)
	if err != nil {
		return errors.NewInternal(err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO sequences (
			project_id, session_id, name, description, goal,
			is_complete, completion_summary, metadata_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?, ?)
	`,
		s.ProjectID, s.SessionID, s.Name, s.Description, s.Goal,
		metadataJSON, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	s.ID, err = res.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSequenceWithCount retrieves a sequence together with the current maximum
// thought number in a single consistent read. The append engine relies on
// this aggregate to compute the next number: the counter is global to the
// sequence, trunk and branches included. Returns SequenceNotFound if the
// sequence does not exist.
func GetSequenceWithCount(ctx context.Context, db *sql.DB, id int64) (*thought.Sequence, int, error) {
	row := db.QueryRowContext(ctx, `
		SELECT s.id, s.project_id, s.session_id, s.name, s.description, s.goal,
			s.is_complete, s.completion_summary, s.metadata_json,
			s.created_at, s.updated_at,
			COALESCE((SELECT MAX(t.thought_number) FROM thoughts t WHERE t.sequence_id = s.id), 0)
		FROM sequences s
		WHERE s.id = ?
	`, id)

	var (
		s            thought.Sequence
		description  sql.NullString
		summary      sql.NullString
		metadataJSON sql.NullString
		maxNumber    int
	)
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.SessionID, &s.Name, &description, &s.Goal,
		&s.IsComplete, &summary, &metadataJSON,
		&s.CreatedAt, &s.UpdatedAt,
		&maxNumber,
	)
	if err == sql.ErrNoRows {
		return nil, 0, errors.NewSequenceNotFound(id)
	}
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	s.Description = description.String
	if summary.Valid {
		s.CompletionSummary = &summary.String
	}
	if err := unmarshalMetadata(metadataJSON, &s.Metadata); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return &s, maxNumber, nil
}

// TouchSequence bumps the sequence's updated_at after an append.
func TouchSequence(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sequences SET updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CompleteSequence marks a sequence complete with a conditional update so the
// completion flag stays monotonic under concurrent finalizers: only the call
// that flips 0 -> 1 reports won = true. Completion is the last visible state
// change for the sequence.
func CompleteSequence(ctx context.Context, db *sql.DB, id int64, summary string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE sequences
		SET is_complete = 1, completion_summary = ?, updated_at = ?
		WHERE id = ? AND is_complete = 0
	`, summary, time.Now().Unix(), id)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return rows > 0, nil
}

// SequenceSummary is a light row for list views.
type SequenceSummary struct {
	ID           int64  `json:"id"`
	ProjectName  string `json:"project_name"`
	Name         string `json:"name"`
	Goal         string `json:"goal"`
	IsComplete   bool   `json:"is_complete"`
	ThoughtCount int    `json:"thought_count"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// SequenceFilters narrows ListSequences.
type SequenceFilters struct {
	ProjectName *string
	// ActiveOnly excludes completed sequences
	ActiveOnly bool
}

// ListSequences retrieves sequence summaries ordered by last activity.
func ListSequences(ctx context.Context, db *sql.DB, filters SequenceFilters, limit, offset int) ([]SequenceSummary, int, error) {
	where := "1=1"
	args := []any{}
	if filters.ProjectName != nil {
		where += " AND p.name = ?"
		args = append(args, *filters.ProjectName)
	}
	if filters.ActiveOnly {
		where += " AND s.is_complete = 0"
	}

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM sequences s JOIN projects p ON p.id = s.project_id
		WHERE ` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT s.id, p.name, s.name, s.goal, s.is_complete,
			(SELECT COUNT(*) FROM thoughts t WHERE t.sequence_id = s.id),
			s.created_at, s.updated_at
		FROM sequences s JOIN projects p ON p.id = s.project_id
		WHERE ` + where + `
		ORDER BY s.updated_at DESC, s.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []SequenceSummary
	for rows.Next() {
		var item SequenceSummary
		if err := rows.Scan(
			&item.ID, &item.ProjectName, &item.Name, &item.Goal, &item.IsComplete,
			&item.ThoughtCount, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// marshalMetadata converts a metadata map to a nullable JSON string.
func marshalMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalMetadata parses a nullable JSON string into a metadata map.
func unmarshalMetadata(ns sql.NullString, out *map[string]any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), out)
}
