package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/thought"
)

// maxSequenceNameChars caps the name derived from the goal.
const maxSequenceNameChars = 80

// StartInput contains parameters for the Start operation.
type StartInput struct {
	Goal        string // required
	ProjectName string // default: "default"
	Description string
	Metadata    map[string]any
}

// StartOutput contains the result of the Start operation.
type StartOutput struct {
	SequenceID  int64  `json:"sequence_id"`
	Goal        string `json:"goal"`
	ProjectName string `json:"project_name"`
	SessionName string `json:"session_name"`
}

// Start creates a new thinking sequence for a goal, resolving or creating the
// owning project and a dated session. Sequences are cheap: storage failures
// propagate unchanged and the caller simply retries Start.
func Start(ctx context.Context, database *sql.DB, input StartInput) (*StartOutput, error) {
	goal := strings.TrimSpace(input.Goal)
	if goal == "" {
		return nil, errors.NewInvalidRequest("goal is required")
	}

	projectName := strings.TrimSpace(input.ProjectName)
	if projectName == "" {
		projectName = "default"
	}

	projectID, err := db.GetOrCreateProject(ctx, database, projectName)
	if err != nil {
		return nil, err
	}

	sessionName := "session-" + time.Now().UTC().Format("2006-01-02")
	sessionID, err := db.GetOrCreateSession(ctx, database, projectID, sessionName)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	seq := &thought.Sequence{
		ProjectID:   projectID,
		SessionID:   sessionID,
		Name:        sequenceName(goal),
		Description: strings.TrimSpace(input.Description),
		Goal:        goal,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.InsertSequence(ctx, database, seq); err != nil {
		return nil, err
	}

	return &StartOutput{
		SequenceID:  seq.ID,
		Goal:        goal,
		ProjectName: projectName,
		SessionName: sessionName,
	}, nil
}

// sequenceName derives a short display name from the goal.
func sequenceName(goal string) string {
	if utf8.RuneCountInString(goal) <= maxSequenceNameChars {
		return goal
	}
	runes := []rune(goal)
	return strings.TrimSpace(string(runes[:maxSequenceNameChars])) + "…"
}
