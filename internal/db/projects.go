package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/strand/internal/errors"
)

// GetOrCreateProject resolves a project by name, creating it if absent.
func GetOrCreateProject(ctx context.Context, db *sql.DB, name string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM projects WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.NewInternal(err)
	}

	// RETURNING yields the row's id whether the insert won or lost the race;
	// LastInsertId would report a stale rowid on conflict.
	err = db.QueryRowContext(ctx,
		`INSERT INTO projects (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET name = name
		 RETURNING id`,
		name, time.Now().Unix(),
	).Scan(&id)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return id, nil
}

// GetProjectName resolves a project id back to its name.
func GetProjectName(ctx context.Context, db *sql.DB, id int64) (string, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM projects WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFound(fmt.Sprintf("project %d", id))
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return name, nil
}

// GetOrCreateSession resolves a session by (project, name), creating it if
// absent. Session names are typically dated, one per project per day.
func GetOrCreateSession(ctx context.Context, db *sql.DB, projectID int64, name string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE project_id = ? AND name = ?`,
		projectID, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.NewInternal(err)
	}

	err = db.QueryRowContext(ctx,
		`INSERT INTO sessions (project_id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(project_id, name) DO UPDATE SET name = name
		 RETURNING id`,
		projectID, name, time.Now().Unix(),
	).Scan(&id)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return id, nil
}
