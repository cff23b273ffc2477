package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/strand/internal/config"
	"github.com/hpungsan/strand/internal/errors"
	"github.com/hpungsan/strand/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// StartRequest represents the arguments for think_start.
type StartRequest struct {
	Goal        string `json:"goal"`
	Project     string `json:"project,omitempty"`
	Description string `json:"description,omitempty"`
}

// AddRequest represents the arguments for think_add.
type AddRequest struct {
	SequenceID       int64    `json:"sequence_id"`
	Content          string   `json:"content"`
	ThoughtType      string   `json:"thought_type,omitempty"`
	BranchName       string   `json:"branch_name,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	TotalEstimate    int      `json:"total_estimate,omitempty"`
	RevisesThoughtID *int64   `json:"revises_thought_id,omitempty"`
}

// ShowRequest represents the arguments for think_show.
type ShowRequest struct {
	SequenceID int64 `json:"sequence_id"`
}

// ListRequest represents the arguments for think_list.
type ListRequest struct {
	Project    *string `json:"project,omitempty"`
	ActiveOnly bool    `json:"active_only,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Offset     int     `json:"offset,omitempty"`
}

// BranchesRequest represents the arguments for think_branches.
type BranchesRequest struct {
	SequenceID int64 `json:"sequence_id"`
}

// RememberRequest represents the arguments for memory_store.
type RememberRequest struct {
	Content    string   `json:"content"`
	Project    string   `json:"project,omitempty"`
	MemoryType string   `json:"memory_type,omitempty"`
	Importance *float64 `json:"importance,omitempty"`
}

// MemoriesRequest represents the arguments for memory_search.
type MemoriesRequest struct {
	Query      string  `json:"query,omitempty"`
	Project    *string `json:"project,omitempty"`
	MemoryType *string `json:"memory_type,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Offset     int     `json:"offset,omitempty"`
}

// Handler implementations

// HandleStart handles the think_start tool call.
func (h *Handlers) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StartRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Start(ctx, h.db, ops.StartInput{
		Goal:        input.Goal,
		ProjectName: input.Project,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAdd handles the think_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Think(ctx, h.db, h.cfg, ops.ThinkInput{
		SequenceID:       input.SequenceID,
		Content:          input.Content,
		ThoughtType:      input.ThoughtType,
		BranchName:       input.BranchName,
		Confidence:       input.Confidence,
		TotalEstimate:    input.TotalEstimate,
		RevisesThoughtID: input.RevisesThoughtID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleShow handles the think_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(ctx, h.db, ops.ShowInput{SequenceID: input.SequenceID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the think_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		ProjectName: input.Project,
		ActiveOnly:  input.ActiveOnly,
		Limit:       input.Limit,
		Offset:      input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBranches handles the think_branches tool call.
func (h *Handlers) HandleBranches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BranchesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Branches(ctx, h.db, ops.BranchesInput{SequenceID: input.SequenceID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemember handles the memory_store tool call.
func (h *Handlers) HandleRemember(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RememberRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Remember(ctx, h.db, ops.RememberInput{
		Content:     input.Content,
		ProjectName: input.Project,
		MemoryType:  input.MemoryType,
		Importance:  input.Importance,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMemories handles the memory_search tool call.
func (h *Handlers) HandleMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MemoriesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Memories(ctx, h.db, ops.MemoriesInput{
		Query:       input.Query,
		ProjectName: input.Project,
		MemoryType:  input.MemoryType,
		Limit:       input.Limit,
		Offset:      input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult converts an error into an MCP error result.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := err.(*errors.StrandError); ok {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
