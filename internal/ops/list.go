package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/strand/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	ProjectName *string // optional filter
	ActiveOnly  bool    // exclude completed sequences
	Limit       int     // default: 20, max: 100
	Offset      int     // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []db.SequenceSummary `json:"items"`
	Pagination Pagination           `json:"pagination"`
	Sort       string               `json:"sort"`
}

// List retrieves sequence summaries ordered by last activity.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	limit := boundLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	filters := db.SequenceFilters{
		ProjectName: cleanOptionalString(input.ProjectName),
		ActiveOnly:  input.ActiveOnly,
	}

	items, total, err := db.ListSequences(ctx, database, filters, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []db.SequenceSummary{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}
