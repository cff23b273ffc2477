package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/strand/internal/db"
	"github.com/hpungsan/strand/internal/memory"
)

// MemoryItem is one memory row in list/search output.
type MemoryItem struct {
	ID          string         `json:"id"`
	ProjectName string         `json:"project_name"`
	MemoryType  string         `json:"memory_type"`
	Content     string         `json:"content"`
	Importance  float64        `json:"importance"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   int64          `json:"created_at"`
}

// MemoriesInput contains parameters for the Memories operation.
type MemoriesInput struct {
	Query       string  // optional substring search
	ProjectName *string // optional filter
	MemoryType  *string // optional filter
	Limit       int     // default: 20, max: 100
	Offset      int     // default: 0
}

// MemoriesOutput contains the result of the Memories operation.
type MemoriesOutput struct {
	Items      []MemoryItem `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// Memories lists or searches stored memories, newest first.
func Memories(ctx context.Context, database *sql.DB, input MemoriesInput) (*MemoriesOutput, error) {
	limit := boundLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)
	offset := max(input.Offset, 0)

	filters := db.MemoryFilters{
		ProjectName: cleanOptionalString(input.ProjectName),
		Type:        cleanOptionalString(input.MemoryType),
	}

	var (
		records []*memory.Memory
		total   int
		err     error
	)
	query := strings.TrimSpace(input.Query)
	if query != "" {
		records, total, err = db.SearchMemories(ctx, database, query, filters, limit, offset)
	} else {
		records, total, err = db.ListMemories(ctx, database, filters, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	items := make([]MemoryItem, 0, len(records))
	for _, m := range records {
		items = append(items, MemoryItem{
			ID:          m.ID,
			ProjectName: m.ProjectName,
			MemoryType:  string(m.Type),
			Content:     m.Content,
			Importance:  m.Importance,
			Metadata:    m.Metadata,
			CreatedAt:   m.CreatedAt,
		})
	}

	return &MemoriesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
