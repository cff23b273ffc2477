package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/memory"
)

// RememberInput contains parameters for the Remember operation.
type RememberInput struct {
	Content     string // required
	ProjectName string // default: "default"
	MemoryType  string // default: "note"
	Importance  *float64
	Metadata    map[string]any
}

// RememberOutput contains the result of the Remember operation.
type RememberOutput struct {
	MemoryID    string  `json:"memory_id"`
	ProjectName string  `json:"project_name"`
	MemoryType  string  `json:"memory_type"`
	Importance  float64 `json:"importance"`
}

// Remember stores a memory record directly, outside the reasoning flow.
func Remember(ctx context.Context, database *sql.DB, input RememberInput) (*RememberOutput, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.NewInvalidRequest("content is required")
	}

	projectName := strings.TrimSpace(input.ProjectName)
	if projectName == "" {
		projectName = "default"
	}

	memType := strings.TrimSpace(input.MemoryType)
	if memType == "" {
		memType = string(memory.KindNote)
	}

	importance := memory.DefaultImportance
	if input.Importance != nil {
		importance = *input.Importance
		if importance < 0 {
			importance = 0
		}
		if importance > 1 {
			importance = 1
		}
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	mem := &memory.Memory{
		ID:          id,
		ProjectName: projectName,
		Type:        memory.Kind(memType),
		Content:     content,
		Importance:  importance,
		Metadata:    input.Metadata,
		CreatedAt:   time.Now().Unix(),
	}
	if err := db.InsertMemory(ctx, database, mem); err != nil {
		return nil, err
	}

	return &RememberOutput{
		MemoryID:    id,
		ProjectName: projectName,
		MemoryType:  memType,
		Importance:  importance,
	}, nil
}
