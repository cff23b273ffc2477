package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/strand/internal/errors"
)

// Insight job states. Jobs are an outbox: the enqueue write commits with the
// completion fact, and a worker drains pending rows later.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// InsightJob is one queued analysis task.
type InsightJob struct {
	ID string

	// TaskType names the analysis, e.g. "sequence_insights"
	TaskType string

	// SourceIDs are the originating record ids (JSON array of numbers)
	SourceIDs []int64

	// Payload is the task-specific body (JSON)
	Payload map[string]any

	Priority    int
	Status      string
	Error       *string
	CreatedAt   int64
	ProcessedAt *int64
}

// EnqueueInsightJob stores a new pending job.
func EnqueueInsightJob(ctx context.Context, db *sql.DB, job *InsightJob) error {
	sourceJSON, err := marshalJSON(job.SourceIDs)
	if err != nil {
		return errors.NewInternal(err)
	}
	payloadJSON, err := marshalMetadata(job.Payload)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO insight_jobs (id, task_type, source_ids_json, payload_json, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?)
	`,
		job.ID, job.TaskType, sourceJSON, payloadJSON, job.Priority, job.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ClaimNextJob atomically claims the highest-priority pending job by flipping
// it to running. Returns nil when the queue is empty.
func ClaimNextJob(ctx context.Context, db *sql.DB) (*InsightJob, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE insight_jobs
		SET status = 'running'
		WHERE id = (
			SELECT id FROM insight_jobs
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
		)
		RETURNING id, task_type, source_ids_json, payload_json, priority, status, error, created_at, processed_at
	`)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return job, nil
}

// MarkJobDone finishes a running job successfully.
func MarkJobDone(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE insight_jobs SET status = 'done', processed_at = ? WHERE id = ?`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// MarkJobFailed records a job failure. Failures never propagate back to the
// reasoning path that enqueued the job.
func MarkJobFailed(ctx context.Context, db *sql.DB, id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	_, err := db.ExecContext(ctx,
		`UPDATE insight_jobs SET status = 'failed', error = ?, processed_at = ? WHERE id = ?`,
		msg, time.Now().Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CountJobsByStatus returns job counts keyed by status, for diagnostics.
func CountJobsByStatus(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM insight_jobs GROUP BY status`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// marshalJSON encodes a value for a NOT NULL JSON column.
func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalJSON decodes a JSON column, treating empty as absent.
func unmarshalJSON(s string, out any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), out)
}

// scanJob scans a single row into an InsightJob.
func scanJob(row scanner) (*InsightJob, error) {
	var (
		job         InsightJob
		sourceJSON  string
		payloadJSON sql.NullString
		jobError    sql.NullString
		processedAt sql.NullInt64
	)

	err := row.Scan(
		&job.ID, &job.TaskType, &sourceJSON, &payloadJSON,
		&job.Priority, &job.Status, &jobError, &job.CreatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(sourceJSON, &job.SourceIDs); err != nil {
		return nil, err
	}
	if err := unmarshalMetadata(payloadJSON, &job.Payload); err != nil {
		return nil, err
	}
	if jobError.Valid {
		job.Error = &jobError.String
	}
	job.ProcessedAt = fromNullInt64(processedAt)

	return &job, nil
}
